// Package save persists typed values to per-slot save files.
//
// A [Manager] combines the codec, record framing, transform, and slot store:
//
//	Save: value -> codec.Encode -> record (checksum) -> transform -> store.Write
//	Load: store.Read -> transform -> record (verify) -> codec.Decode -> value
//
// A missing save file is the normal first-run state, not an error:
// [Manager.LoadInto] reports found=false and [Load] returns the zero value.
//
// Construct one Manager per storage root and pass it to whatever needs
// persistence; the package keeps no global state.
//
//	m, err := save.New(dataDir, save.Options{Key: "encryption_key"})
//	if err != nil {
//	    return err
//	}
//	if err := m.Save(slot.QuickSave.Key(), progress); err != nil {
//	    return err
//	}
//	progress, err := save.Load[Progress](m, slot.QuickSave.Key())
package save

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/calvinalkan/savekit/pkg/fs"
	"github.com/calvinalkan/savekit/pkg/save/codec"
	"github.com/calvinalkan/savekit/pkg/save/record"
	"github.com/calvinalkan/savekit/pkg/save/slot"
	"github.com/calvinalkan/savekit/pkg/save/transform"
)

// Options configures a [Manager].
type Options struct {
	// Key is the transform key. Required.
	Key string

	// RetiredKeys are tried, in order, when a file does not verify under Key.
	// Use them to keep reading saves written before a key change; the next
	// Save rewrites the slot under Key.
	RetiredKeys []string

	// Prefix is prepended to well-known slot names. Defaults to
	// [slot.DefaultPrefix].
	Prefix string

	// Codec encodes values. Defaults to [codec.Default] (JSON, version 1).
	Codec *codec.Codec

	// FS is the filesystem. Defaults to [fs.NewReal].
	FS fs.FS

	// SkipDirSync trades durability of the last save for speed.
	SkipDirSync bool

	// Logger receives debug/warn logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// Manager saves and loads values. It is safe for concurrent use; see the
// slot package for same-slot write semantics.
type Manager struct {
	store  *slot.Store
	codec  *codec.Codec
	keys   []transform.Keystream
	logger *zap.Logger
}

// New returns a Manager storing files under root.
//
// Returns [ErrInvalidKey] if opts.Key or any retired key is empty.
func New(root string, opts Options) (*Manager, error) {
	active, err := transform.NewKeystream(opts.Key)
	if err != nil {
		return nil, fmt.Errorf("key: %w", err)
	}

	keys := []transform.Keystream{active}

	for i, k := range opts.RetiredKeys {
		ks, err := transform.NewKeystream(k)
		if err != nil {
			return nil, fmt.Errorf("retired key %d: %w", i, err)
		}

		keys = append(keys, ks)
	}

	store, err := slot.NewStore(root, slot.StoreOptions{
		FS:          opts.FS,
		Prefix:      opts.Prefix,
		SkipDirSync: opts.SkipDirSync,
	})
	if err != nil {
		return nil, err
	}

	if opts.Codec == nil {
		opts.Codec = codec.Default()
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	return &Manager{
		store:  store,
		codec:  opts.Codec,
		keys:   keys,
		logger: opts.Logger,
	}, nil
}

// Store returns the underlying slot store.
func (m *Manager) Store() *slot.Store { return m.store }

// Codec returns the codec used for new saves.
func (m *Manager) Codec() *codec.Codec { return m.codec }

// Save encodes v and atomically replaces the file for key.
//
// Either the whole new file is in place when Save returns nil, or the
// previous file (if any) is untouched.
func (m *Manager) Save(key slot.Key, v any) error {
	path, err := m.store.PathFor(key)
	if err != nil {
		return err
	}

	payload, err := m.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	rec, err := record.New(payload)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	data, err := record.Marshal(rec)
	if err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}

	m.keys[0].XOR(data, data)

	err = m.store.Write(key, data)
	if err != nil {
		m.logger.Error("save failed", zap.Stringer("slot", key), zap.String("path", path), zap.Error(err))

		return err
	}

	m.logger.Debug("saved",
		zap.Stringer("slot", key),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Uint32("schema_version", rec.SchemaVersion),
	)

	return nil
}

// LoadInto decodes the file for key into v, which must be a non-nil pointer.
//
// If the slot has no file, LoadInto returns (false, nil) and leaves v
// untouched. Otherwise errors are [ErrIO], [ErrCorruptSave],
// [ErrUnsupportedSchema], or [ErrMalformedPayload].
func (m *Manager) LoadInto(key slot.Key, v any) (bool, error) {
	rec, keyIndex, path, err := m.read(key)
	if errors.Is(err, slot.ErrNotFound) {
		m.logger.Warn("save file does not exist", zap.Stringer("slot", key), zap.String("path", path))

		return false, nil
	}

	if err != nil {
		return false, err
	}

	err = m.codec.Decode(rec.Payload, v)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}

	if keyIndex > 0 {
		m.logger.Warn("save file read with retired key",
			zap.Stringer("slot", key),
			zap.Int("retired_key", keyIndex-1),
		)
	}

	m.logger.Debug("loaded",
		zap.Stringer("slot", key),
		zap.String("path", path),
		zap.Uint32("schema_version", rec.SchemaVersion),
	)

	return true, nil
}

// Load decodes the file for key into a new T.
//
// A missing file is not an error: Load returns the zero T. Use
// [Manager.LoadInto] or [Manager.Exists] to tell "absent" from "saved zero".
func Load[T any](m *Manager, key slot.Key) (T, error) {
	var v T

	_, err := m.LoadInto(key, &v)
	if err != nil {
		var zero T

		return zero, err
	}

	return v, nil
}

// Exists reports whether key has a save file. It never fails.
func (m *Manager) Exists(key slot.Key) bool {
	return m.store.Exists(key)
}

// Delete removes the save file for key. Returns [ErrNotFound] if there is none.
func (m *Manager) Delete(key slot.Key) error {
	err := m.store.Delete(key)
	if err != nil {
		return err
	}

	m.logger.Debug("deleted", zap.Stringer("slot", key))

	return nil
}

// List returns the names of all slots with a save file. Turn a name back into
// a key with [slot.Store.ParseName].
func (m *Manager) List() ([]string, error) {
	return m.store.List()
}

// PathFor returns the file path for key.
func (m *Manager) PathFor(key slot.Key) (string, error) {
	return m.store.PathFor(key)
}

// Sweep removes temp files left by interrupted saves. Call it at startup.
func (m *Manager) Sweep() (int, error) {
	n, err := m.store.Sweep()
	if n > 0 {
		m.logger.Info("removed interrupted save files", zap.Int("count", n))
	}

	return n, err
}

// Info describes a save file as found on disk.
type Info struct {
	Path          string
	Size          int
	SchemaVersion uint32
	Format        codec.Format
	Checksum      uint32

	// KeyIndex is 0 when the active key verified the file and i+1 when
	// RetiredKeys[i] did.
	KeyIndex int

	// Supported reports whether the manager's codec can decode the payload's
	// schema version.
	Supported bool
}

// Inspect reads and verifies the file for key without decoding the payload.
//
// Returns [ErrNotFound] for a missing slot and [ErrCorruptSave] if no key
// verifies the file.
func (m *Manager) Inspect(key slot.Key) (Info, error) {
	rec, keyIndex, path, err := m.read(key)
	if err != nil {
		return Info{}, err
	}

	_, format, err := codec.Peek(rec.Payload)
	if err != nil {
		return Info{}, fmt.Errorf("inspect %s: %w", key, err)
	}

	return Info{
		Path:          path,
		Size:          record.HeaderSize + len(rec.Payload),
		SchemaVersion: rec.SchemaVersion,
		Format:        format,
		Checksum:      rec.Checksum,
		KeyIndex:      keyIndex,
		Supported:     m.codec.Supports(rec.SchemaVersion),
	}, nil
}

// read loads and verifies the record for key, trying the active key first
// and then each retired key. It returns the index of the key that verified.
func (m *Manager) read(key slot.Key) (record.Record, int, string, error) {
	path, err := m.store.PathFor(key)
	if err != nil {
		return record.Record{}, 0, "", err
	}

	raw, err := m.store.Read(key)
	if err != nil {
		return record.Record{}, 0, path, err
	}

	buf := make([]byte, len(raw))

	var firstErr error

	for i, ks := range m.keys {
		ks.XOR(buf, raw)

		rec, err := record.Unmarshal(buf)
		if err == nil {
			return rec, i, path, nil
		}

		if firstErr == nil {
			firstErr = err
		}

		if i+1 < len(m.keys) {
			buf = make([]byte, len(raw))
		}
	}

	return record.Record{}, 0, path, fmt.Errorf("load %s: %w", key, firstErr)
}
