package cli

import (
	"context"
	"errors"
	"fmt"

	flag "github.com/spf13/pflag"
)

var errVerifyFailed = errors.New("verification failed")

// VerifyCmd returns the verify command.
func VerifyCmd(a *app) *Command {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.BoolP("quiet", "q", false, "Only print failures")

	return &Command{
		Flags: fs,
		Usage: "verify [slot...] [flags]",
		Short: "Check save files for corruption",
		Long: `Verify the checksum of each named slot, or of every slot under the root
when none are given. Prints one line per slot:

  ok <slot>
  FAIL <slot>: <reason>

Exits 1 if any slot fails. Saves readable only with a retired key, or with
a schema version this build cannot decode, pass with a warning.`,
		Exec: func(ctx context.Context, io *IO, args []string) error {
			return execVerify(ctx, io, a, fs, args)
		},
	}
}

func execVerify(ctx context.Context, io *IO, a *app, fs *flag.FlagSet, args []string) error {
	m, err := a.manager()
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names, err = m.List()
		if err != nil {
			return err
		}
	}

	quiet, _ := fs.GetBool("quiet")
	failed := 0

	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("verify interrupted: %w", err)
		}

		key := parseKey(m.Store(), name)

		info, err := m.Inspect(key)
		if err != nil {
			failed++

			io.Printf("FAIL %s: %v\n", name, err)

			continue
		}

		if info.KeyIndex > 0 {
			io.Warn(name, "encrypted with a retired key", "re-save it to move it to the active key")
		}

		if !info.Supported {
			io.Warn(name, fmt.Sprintf("schema version %d", info.SchemaVersion), "this build cannot decode it")
		}

		if !quiet {
			io.Println("ok " + name)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d slots", errVerifyFailed, failed, len(names))
	}

	return nil
}
