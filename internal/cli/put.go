package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"

	flag "github.com/spf13/pflag"

	"github.com/tailscale/hujson"
)

var errEmptyInput = errors.New("no document on stdin")

// PutCmd returns the put command.
func PutCmd(a *app) *Command {
	return &Command{
		Flags: flag.NewFlagSet("put", flag.ContinueOnError),
		Usage: "put <slot>",
		Short: "Write a save from a JSON document on stdin",
		Long: `Read a JSON (or JSONC) document from stdin and save it to <slot> with the
configured key and format. The previous file is replaced atomically. Use it
to repair saves or re-encrypt after a key rotation:

  savectl dump QuickSave | savectl put QuickSave

If <slot> holds a readable save, the document keeps that save's schema
version, matching what dump prints; the game migrates it on its next load.
Otherwise the configured schema version is used. Integers are stored
exactly.`,
		Exec: func(_ context.Context, io *IO, args []string) error {
			return execPut(io, a, args)
		},
	}
}

func execPut(o *IO, a *app, args []string) error {
	if o.In() == nil {
		return errEmptyInput
	}

	data, err := io.ReadAll(o.In())
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}

	if len(bytes.TrimSpace(data)) == 0 {
		return errEmptyInput
	}

	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("invalid JSONC: %w", err)
	}

	doc, err := decodeDocument(standardized)
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	m, err := a.manager()
	if err != nil {
		return err
	}

	key := parseKey(m.Store(), args[0])

	// Keep an existing save at its own version so dump | put round-trips.
	info, err := m.Inspect(key)
	if err == nil && info.SchemaVersion != m.Codec().Version() {
		m, err = a.managerAt(info.SchemaVersion)
		if err != nil {
			return err
		}
	}

	err = m.Save(key, doc)
	if err != nil {
		return err
	}

	path, _ := m.PathFor(key)
	o.Println("saved " + path)

	return nil
}

// decodeDocument parses a single JSON value, keeping integers exact.
func decodeDocument(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc any

	err := dec.Decode(&doc)
	if err != nil {
		return nil, err
	}

	if dec.More() {
		return nil, errors.New("trailing data after document")
	}

	return exactNumbers(doc)
}

// exactNumbers replaces json.Number values with int64, uint64 or float64 so
// every body format stores them as numbers.
func exactNumbers(v any) (any, error) {
	var err error

	switch v := v.(type) {
	case map[string]any:
		for k, e := range v {
			v[k], err = exactNumbers(e)
			if err != nil {
				return nil, err
			}
		}
	case []any:
		for i, e := range v {
			v[i], err = exactNumbers(e)
			if err != nil {
				return nil, err
			}
		}
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i, nil
		}

		if u, err := strconv.ParseUint(v.String(), 10, 64); err == nil {
			return u, nil
		}

		f, err := v.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", v, err)
		}

		return f, nil
	}

	return v, nil
}
