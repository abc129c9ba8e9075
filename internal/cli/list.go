package cli

import (
	"context"

	flag "github.com/spf13/pflag"
)

// ListCmd returns the list command.
func ListCmd(a *app) *Command {
	fs := flag.NewFlagSet("list", flag.ContinueOnError)
	fs.BoolP("paths", "p", false, "Print file paths instead of slot names")

	return &Command{
		Flags: fs,
		Usage: "list [flags]",
		Short: "List slots that have a save file",
		Long:  "List every slot with a save file under the root, sorted by name. Does not need the key.",
		Exec: func(_ context.Context, io *IO, _ []string) error {
			return execList(io, a, fs)
		},
	}
}

func execList(io *IO, a *app, fs *flag.FlagSet) error {
	store, err := a.store()
	if err != nil {
		return err
	}

	names, err := store.List()
	if err != nil {
		return err
	}

	paths, _ := fs.GetBool("paths")

	for _, name := range names {
		if !paths {
			io.Println(name)

			continue
		}

		path, err := store.PathFor(store.ParseName(name))
		if err != nil {
			return err
		}

		io.Println(path)
	}

	return nil
}
