package cli

import (
	"context"
	"strings"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/savekit/internal/config"
)

// PrintConfigCmd returns the print-config command.
func PrintConfigCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("print-config", flag.ContinueOnError),
		Usage: "print-config",
		Short: "Show resolved configuration",
		Long:  "Display the effective configuration and which files it was loaded from. Keys are masked.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execPrintConfig(io, a.cfg)
		},
	}
}

func execPrintConfig(io *IO, cfg config.Config) error {
	io.Println("effective_cwd=" + cfg.EffectiveCwd)
	io.Println("root=" + cfg.RootAbs)
	io.Println("prefix=" + cfg.Prefix)
	io.Println("format=" + cfg.Format)

	if cfg.SchemaVersion != 0 {
		io.Printf("schema_version=%d\n", cfg.SchemaVersion)
	}

	if cfg.Key == "" {
		io.Println("key=(unset)")
	} else {
		io.Println("key=" + mask(cfg.Key))
	}

	if len(cfg.RetiredKeys) > 0 {
		masked := make([]string, len(cfg.RetiredKeys))
		for i, k := range cfg.RetiredKeys {
			masked[i] = mask(k)
		}

		io.Println("retired_keys=" + strings.Join(masked, ","))
	}

	io.Println("")
	io.Println("# sources")

	if cfg.Sources.Global == "" && cfg.Sources.Project == "" && !cfg.Sources.KeyEnv {
		io.Println("(defaults only)")
	} else {
		if cfg.Sources.Global != "" {
			io.Println("global_config=" + cfg.Sources.Global)
		}

		if cfg.Sources.Project != "" {
			io.Println("project_config=" + cfg.Sources.Project)
		}

		if cfg.Sources.KeyEnv {
			io.Println("key_env=$" + config.KeyEnvVar)
		}
	}

	return nil
}

// mask hides all but the first two characters of a key.
func mask(key string) string {
	r := []rune(key)
	if len(r) <= 2 {
		return strings.Repeat("*", len(r))
	}

	return string(r[:2]) + strings.Repeat("*", len(r)-2)
}
