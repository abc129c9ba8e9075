package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	flag "github.com/spf13/pflag"
)

// Command is one savectl subcommand. Help output and slot argument checks
// are both derived from Usage.
type Command struct {
	// Flags defines command-specific flags.
	// The FlagSet name is not used - command identity comes from Usage.
	Flags *flag.FlagSet

	// Usage is shown after "savectl" in help: the command name, then its
	// arguments. The slot placeholder sets how many slot arguments Run
	// accepts: "<slot>" exactly one, "<slot>..." one or more, "[slot...]"
	// any number, and none when absent.
	// Examples: "inspect <slot>", "verify [slot...]", "list [flags]"
	Usage string

	// Short is a one-line description for the global help listing.
	Short string

	// Long is the full description shown in command help.
	// If empty, Short is used instead.
	Long string

	// Exec runs the command after flags are parsed.
	Exec func(ctx context.Context, o *IO, args []string) error
}

// Name returns the command name (first word of Usage).
func (c *Command) Name() string {
	name, _, _ := strings.Cut(c.Usage, " ")
	return name
}

// HelpLine returns the short help line for the main usage display.
func (c *Command) HelpLine() string {
	return fmt.Sprintf("  %-22s %s", c.Usage, c.Short)
}

// PrintHelp prints the full help output for "savectl <cmd> --help".
func (c *Command) PrintHelp(o *IO) {
	o.Println("Usage: savectl", c.Usage)
	o.Println()

	desc := c.Long
	if desc == "" {
		desc = c.Short
	}

	o.Println(desc)

	if c.Flags != nil && c.Flags.HasFlags() {
		o.Println()
		o.Println("Flags:")

		var buf strings.Builder
		c.Flags.SetOutput(&buf)
		c.Flags.PrintDefaults()
		o.Printf("%s", buf.String())
	}
}

// Run parses flags and executes the command. Returns exit code.
// Handles error printing internally for consistent output ordering.
func (c *Command) Run(ctx context.Context, o *IO, args []string) int {
	c.Flags.SetOutput(&strings.Builder{}) // discard pflag output

	err := c.Flags.Parse(args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			c.PrintHelp(o)
			return 0
		}
		o.ErrPrintln("error:", err)
		o.ErrPrintln()
		c.PrintHelp(o)
		return 1
	}

	args = c.Flags.Args()

	if err := c.checkSlots(args); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	if err := c.Exec(ctx, o, args); err != nil {
		o.ErrPrintln("error:", err)
		return 1
	}

	return o.Finish()
}

// checkSlots validates the number of slot arguments against Usage.
func (c *Command) checkSlots(args []string) error {
	usage := " " + c.Usage + " "

	switch {
	case strings.Contains(usage, " [slot...] "):
		return nil
	case strings.Contains(usage, " <slot>... "):
		if len(args) == 0 {
			return errSlotRequired
		}
	case strings.Contains(usage, " <slot> "):
		if len(args) == 0 {
			return errSlotRequired
		}

		if len(args) > 1 {
			return fmt.Errorf("%s takes one slot, got %d", c.Name(), len(args))
		}
	default:
		if len(args) > 0 {
			return fmt.Errorf("%s takes no arguments, got %q", c.Name(), args[0])
		}
	}

	return nil
}
