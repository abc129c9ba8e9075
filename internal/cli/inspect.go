package cli

import (
	"context"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/savekit/pkg/save"
)

// InspectCmd returns the inspect command.
func InspectCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("inspect", flag.ContinueOnError),
		Usage: "inspect <slot>",
		Short: "Show header details of a save file",
		Long: `Verify a save file and print its header: path, size, schema version,
body format, checksum, and which key decrypted it.

<slot> is a well-known slot (AutoSave, QuickSave, Slot1..Slot3) or a name
as printed by "list".`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execInspect(io, a, args)
		},
	}
}

func execInspect(io *IO, a *app, args []string) error {
	m, err := a.manager()
	if err != nil {
		return err
	}

	key := parseKey(m.Store(), args[0])

	info, err := m.Inspect(key)
	if err != nil {
		return err
	}

	io.Println("slot=" + key.String())
	io.Println("path=" + info.Path)
	io.Printf("size=%d\n", info.Size)
	io.Printf("schema_version=%d\n", info.SchemaVersion)
	io.Println("format=" + info.Format.String())
	io.Printf("checksum=%08x\n", info.Checksum)
	io.Println("key=" + keyLabel(info))
	io.Printf("supported=%t\n", info.Supported)

	if info.KeyIndex > 0 {
		io.Warn(key.String(), "encrypted with a retired key", `re-encrypt with "savectl dump | savectl put"`)
	}

	if !info.Supported {
		io.Warn(key.String(), fmt.Sprintf("schema version %d", info.SchemaVersion), "this build cannot decode it")
	}

	return nil
}

func keyLabel(info save.Info) string {
	if info.KeyIndex == 0 {
		return "active"
	}

	return fmt.Sprintf("retired[%d]", info.KeyIndex-1)
}
