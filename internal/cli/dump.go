package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/savekit/pkg/save"
	"github.com/calvinalkan/savekit/pkg/save/codec"
	"github.com/calvinalkan/savekit/pkg/save/slot"
)

// DumpCmd returns the dump command.
func DumpCmd(a *app) *Command {
	fs := flag.NewFlagSet("dump", flag.ContinueOnError)
	fs.Bool("compact", false, "Print the document on one line")

	return &Command{
		Flags: fs,
		Usage: "dump <slot> [flags]",
		Short: "Print a save's payload as JSON",
		Long:  "Decrypt, verify, and decode a save file, then print its payload as JSON. Older schema versions are not migrated.",
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execDump(io, a, fs, args)
		},
	}
}

func execDump(io *IO, a *app, fs *flag.FlagSet, args []string) error {
	m, err := a.manager()
	if err != nil {
		return err
	}

	key := parseKey(m.Store(), args[0])

	// Decode at the file's own version so no migration is required.
	info, err := m.Inspect(key)
	if err != nil {
		return err
	}

	reader, err := a.managerAt(info.SchemaVersion)
	if err != nil {
		return err
	}

	compact, _ := fs.GetBool("compact")

	out, err := dumpPayload(reader, key, info.Format, compact)
	if err != nil {
		return err
	}

	io.Println(string(out))

	return nil
}

// dumpPayload renders the payload of key as JSON. JSON bodies are printed
// as stored; msgpack bodies decode to exact integers before rendering.
func dumpPayload(m *save.Manager, key slot.Key, format codec.Format, compact bool) ([]byte, error) {
	var (
		raw json.RawMessage
		doc any
		dst any = &doc
	)

	if format == codec.FormatJSON {
		dst = &raw
	}

	found, err := m.LoadInto(key, dst)
	if err != nil {
		return nil, err
	}

	if !found {
		return nil, fmt.Errorf("%w: %s", save.ErrNotFound, key)
	}

	if format != codec.FormatJSON {
		raw, err = json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("format payload: %w", err)
		}
	}

	var buf bytes.Buffer

	if compact {
		err = json.Compact(&buf, raw)
	} else {
		err = json.Indent(&buf, raw, "", "  ")
	}

	if err != nil {
		return nil, fmt.Errorf("format payload: %w", err)
	}

	return buf.Bytes(), nil
}
