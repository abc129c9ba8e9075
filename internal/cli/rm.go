package cli

import (
	"context"
	"errors"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/savekit/pkg/save/slot"
)

// RmCmd returns the rm command.
func RmCmd(a *app) *Command {
	fs := flag.NewFlagSet("rm", flag.ContinueOnError)
	fs.BoolP("force", "f", false, "Ignore slots without a save file")

	return &Command{
		Flags: fs,
		Usage: "rm <slot>... [flags]",
		Short: "Delete save files",
		Long:  "Delete the save file of each slot. Does not need the key.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execRm(io, a, fs, args)
		},
	}
}

func execRm(io *IO, a *app, fs *flag.FlagSet, args []string) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	force, _ := fs.GetBool("force")

	for _, name := range args {
		key := parseKey(store, name)

		err := store.Delete(key)
		if err != nil {
			if force && errors.Is(err, slot.ErrNotFound) {
				continue
			}

			return err
		}

		io.Println("removed " + key.String())
	}

	return nil
}
