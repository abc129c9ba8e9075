package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/calvinalkan/savekit/internal/config"
	"github.com/calvinalkan/savekit/pkg/save"
	"github.com/calvinalkan/savekit/pkg/save/codec"
	"github.com/calvinalkan/savekit/pkg/save/slot"

	flag "github.com/spf13/pflag"
)

// Run is the main entry point. Returns exit code.
//
// A value on sigCh cancels the context passed to the command; commands that
// walk several slots stop between slots.
func Run(in io.Reader, out io.Writer, errOut io.Writer, args []string, env map[string]string, sigCh <-chan os.Signal) int {
	globals := flag.NewFlagSet("savectl", flag.ContinueOnError)
	globals.SetInterspersed(false)
	globals.SetOutput(&strings.Builder{})

	workDir := globals.StringP("cwd", "C", "", "Run as if started in `dir`")
	configPath := globals.StringP("config", "c", "", "Use specified config `file`")
	root := globals.String("root", "", "Save directory (overrides config)")
	key := globals.String("key", "", "Encryption key (overrides config and $"+config.KeyEnvVar+")")
	prefix := globals.String("prefix", "", "File name prefix for well-known slots")
	verbose := globals.BoolP("verbose", "v", false, "Log save/load details to stderr")
	help := globals.BoolP("help", "h", false, "Show help")

	if len(args) > 0 {
		args = args[1:]
	}

	err := globals.Parse(args)
	if err != nil {
		fprintln(errOut, "error:", err)
		printUsage(errOut, globals)

		return 1
	}

	rest := globals.Args()
	if *help || len(rest) == 0 {
		printUsage(out, globals)

		return 0
	}

	cfg, err := config.Load(config.Input{
		WorkDirOverride: *workDir,
		ConfigPath:      *configPath,
		RootOverride:    *root,
		KeyOverride:     *key,
		PrefixOverride:  *prefix,
		Env:             env,
	})
	if err != nil {
		fprintln(errOut, "error:", err)

		return 1
	}

	a := &app{cfg: cfg, logger: newLogger(errOut, *verbose)}
	defer func() { _ = a.logger.Sync() }()

	cmd, ok := commandMap(a)[rest[0]]
	if !ok {
		fprintln(errOut, "error: unknown command:", rest[0])
		printUsage(errOut, globals)

		return 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if sigCh != nil {
		go func() {
			select {
			case <-sigCh:
				cancel()
			case <-ctx.Done():
			}
		}()
	}

	return cmd.Run(ctx, NewIO(in, out, errOut), rest[1:])
}

// commands returns all commands in display order.
func commands(a *app) []*Command {
	return []*Command{
		ListCmd(a),
		InspectCmd(a),
		DumpCmd(a),
		PutCmd(a),
		VerifyCmd(a),
		RmCmd(a),
		SweepCmd(a),
		PrintConfigCmd(a),
	}
}

func commandMap(a *app) map[string]*Command {
	m := make(map[string]*Command)
	for _, c := range commands(a) {
		m[c.Name()] = c
	}

	return m
}

// app is the state shared by commands: resolved config and a logger.
type app struct {
	cfg    config.Config
	logger *zap.Logger
}

// store opens the slot store. It needs no key.
func (a *app) store() (*slot.Store, error) {
	return slot.NewStore(a.cfg.RootAbs, slot.StoreOptions{Prefix: a.cfg.Prefix})
}

// manager opens a save manager with the configured key and codec.
func (a *app) manager() (*save.Manager, error) {
	c, err := a.cfg.Codec()
	if err != nil {
		return nil, err
	}

	return a.managerWith(c)
}

// managerAt opens a save manager whose codec reads exactly schema version.
func (a *app) managerAt(version uint32) (*save.Manager, error) {
	cfg := a.cfg
	cfg.SchemaVersion = version

	c, err := cfg.Codec()
	if err != nil {
		return nil, err
	}

	return a.managerWith(c)
}

func (a *app) managerWith(c *codec.Codec) (*save.Manager, error) {
	err := a.cfg.RequireKey()
	if err != nil {
		return nil, err
	}

	return save.New(a.cfg.RootAbs, save.Options{
		Key:         a.cfg.Key,
		RetiredKeys: a.cfg.RetiredKeys,
		Prefix:      a.cfg.Prefix,
		Codec:       c,
		Logger:      a.logger,
	})
}

var errSlotRequired = errors.New("slot is required")

// parseKey maps a command-line slot argument to a key: a well-known slot
// identifier (any case), a listed file name, or a free-form name.
func parseKey(store *slot.Store, arg string) slot.Key {
	if s, ok := slot.ParseSlot(arg); ok {
		return s.Key()
	}

	return store.ParseName(arg)
}

// newLogger writes human-readable logs to errOut: errors only, or everything
// down to debug with verbose set.
func newLogger(errOut io.Writer, verbose bool) *zap.Logger {
	level := zapcore.ErrorLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.TimeKey = ""

	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.AddSync(errOut), level)

	return zap.New(core)
}

func fprintln(w io.Writer, a ...any) {
	_, _ = fmt.Fprintln(w, a...)
}

func printUsage(w io.Writer, globals *flag.FlagSet) {
	fprintln(w, `savectl - inspect and maintain save files

Usage: savectl [flags] <command> [args]

Global flags:`)
	fprintln(w, globals.FlagUsages())
	fprintln(w, "Commands:")

	for _, c := range commands(&app{}) {
		fprintln(w, c.HelpLine())
	}
}
