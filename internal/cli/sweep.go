package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// SweepCmd returns the sweep command.
func SweepCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("sweep", flag.ContinueOnError),
		Usage: "sweep",
		Short: "Remove temp files left by interrupted saves",
		Long: `Remove temp files left behind when a process died mid-save. Existing save
files are never touched. Do not run while a game is saving.`,
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execSweep(io, a)
		},
	}
}

func execSweep(io *IO, a *app) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	removed, err := store.Sweep()
	if err != nil {
		return err
	}

	io.Printf("removed %d temp files\n", removed)

	return nil
}
