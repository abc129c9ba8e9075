// Package slot maps save slots to files and performs crash-safe reads and
// writes of whole save files.
//
// Each slot is one file directly under the store root:
//
//	<root>/<prefix><Slot><ext>   well-known slots, e.g. SaveFile_QuickSave.sav
//	<root>/<name><ext>           named slots, e.g. profile.sav
//
// Writes go through [fs.AtomicWriter]: a reader sees either the previous file
// or the complete new one. A crash between the temp write and the rename
// leaves a dot-prefixed temp file behind, which [Store.Sweep] removes.
//
// The store does no locking. Concurrent writes to the same slot race (the
// last rename wins, files are never torn); writes to different slots touch
// disjoint files and are safe.
package slot

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/calvinalkan/savekit/pkg/fs"
)

// Sentinel errors returned by [Store] operations.
var (
	// ErrNotFound indicates the slot has no file.
	ErrNotFound = errors.New("slot: not found")

	// ErrIO indicates the underlying storage failed (permission denied, disk
	// full, I/O error). The cause is wrapped and can be inspected with
	// errors.Is/As.
	ErrIO = errors.New("slot: storage failure")

	// ErrInvalidSlot indicates a key or store option that cannot be mapped to
	// a file name under the root.
	//
	// This is a programming error.
	ErrInvalidSlot = errors.New("slot: invalid slot")
)

// Defaults for [StoreOptions].
const (
	DefaultPrefix = "SaveFile_"
	DefaultExt    = ".sav"
	DefaultPerm   = os.FileMode(0o600)
	dirPerm       = os.FileMode(0o700)
)

// StoreOptions configures a [Store]. The zero value uses the defaults.
type StoreOptions struct {
	// FS is the filesystem. Defaults to [fs.NewReal].
	FS fs.FS

	// Prefix is prepended to well-known slot identifiers. Defaults to
	// [DefaultPrefix]. Set NoPrefix for bare identifiers.
	Prefix string

	// NoPrefix renders well-known slots without any prefix.
	NoPrefix bool

	// Ext is the file extension including the dot. Defaults to [DefaultExt].
	Ext string

	// Perm is the file mode for save files. Defaults to [DefaultPerm].
	Perm os.FileMode

	// SkipDirSync skips the parent directory fsync after each write.
	// Faster, but a power loss may roll back a completed save.
	SkipDirSync bool
}

// Store reads and writes save files under a root directory.
type Store struct {
	root   string
	prefix string
	ext    string
	fs     fs.FS
	writer *fs.AtomicWriter
}

// NewStore returns a store rooted at root. The directory is created on the
// first write.
func NewStore(root string, opts StoreOptions) (*Store, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: root is empty", ErrInvalidSlot)
	}

	if opts.FS == nil {
		opts.FS = fs.NewReal()
	}

	if opts.Prefix == "" && !opts.NoPrefix {
		opts.Prefix = DefaultPrefix
	}

	if opts.NoPrefix {
		opts.Prefix = ""
	}

	if opts.Prefix != "" {
		if err := validateName(opts.Prefix); err != nil {
			return nil, fmt.Errorf("prefix: %w", err)
		}
	}

	if opts.Ext == "" {
		opts.Ext = DefaultExt
	}

	if !strings.HasPrefix(opts.Ext, ".") || len(opts.Ext) < 2 || validateName(opts.Ext[1:]) != nil {
		return nil, fmt.Errorf("%w: extension %q", ErrInvalidSlot, opts.Ext)
	}

	if opts.Perm == 0 {
		opts.Perm = DefaultPerm
	}

	return &Store{
		root:   filepath.Clean(root),
		prefix: opts.Prefix,
		ext:    opts.Ext,
		fs:     opts.FS,
		writer: fs.NewAtomicWriter(opts.FS, fs.AtomicWriteOptions{
			Perm:    opts.Perm,
			SyncDir: !opts.SkipDirSync,
		}),
	}, nil
}

// Root returns the store root directory.
func (s *Store) Root() string { return s.root }

// Prefix returns the prefix applied to well-known slots.
func (s *Store) Prefix() string { return s.prefix }

// Name returns the slot name of key: the file name without extension.
func (s *Store) Name(key Key) (string, error) {
	return key.render(s.prefix)
}

// PathFor returns the file path for key. It is pure and deterministic:
// distinct slot names map to distinct paths.
func (s *Store) PathFor(key Key) (string, error) {
	name, err := key.render(s.prefix)
	if err != nil {
		return "", err
	}

	return filepath.Join(s.root, name+s.ext), nil
}

// Write atomically replaces the file for key with data.
func (s *Store) Write(key Key, data []byte) error {
	path, err := s.PathFor(key)
	if err != nil {
		return err
	}

	err = s.fs.MkdirAll(s.root, dirPerm)
	if err != nil {
		return fmt.Errorf("%w: create root %q: %w", ErrIO, s.root, err)
	}

	err = s.writer.WriteFile(path, data)
	if err != nil {
		return fmt.Errorf("%w: write %q: %w", ErrIO, path, err)
	}

	return nil
}

// Read returns the contents of the file for key.
//
// Returns [ErrNotFound] if the file does not exist and [ErrIO] for other
// failures.
func (s *Store) Read(key Key) ([]byte, error) {
	path, err := s.PathFor(key)
	if err != nil {
		return nil, err
	}

	data, err := s.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return nil, fmt.Errorf("%w: read %q: %w", ErrIO, path, err)
	}

	return data, nil
}

// Exists reports whether a file exists for key. It never fails: invalid keys
// and stat errors report false.
func (s *Store) Exists(key Key) bool {
	path, err := s.PathFor(key)
	if err != nil {
		return false
	}

	ok, err := s.fs.Exists(path)

	return err == nil && ok
}

// Delete removes the file for key. Returns [ErrNotFound] if it does not exist.
func (s *Store) Delete(key Key) error {
	path, err := s.PathFor(key)
	if err != nil {
		return err
	}

	err = s.fs.Remove(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrNotFound, path)
		}

		return fmt.Errorf("%w: remove %q: %w", ErrIO, path, err)
	}

	return nil
}

// List returns the names of all slots that have a file, sorted. Temp files
// and files without the store extension are skipped. A missing root yields
// an empty list.
//
// Use [Store.ParseName] to turn a name back into a [Key].
func (s *Store) List() ([]string, error) {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("%w: list %q: %w", ErrIO, s.root, err)
	}

	var names []string

	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}

		stem, ok := strings.CutSuffix(e.Name(), s.ext)
		if !ok || validateName(stem) != nil {
			continue
		}

		names = append(names, stem)
	}

	slices.Sort(names)

	return names, nil
}

// ParseName returns the key for a slot name as produced by [Store.List] or
// [Store.Name]. Names matching a well-known slot under this store's prefix
// return that slot's key.
func (s *Store) ParseName(name string) Key {
	if id, ok := strings.CutPrefix(name, s.prefix); ok {
		for _, slot := range Slots() {
			if slot.String() == id {
				return slot.Key()
			}
		}
	}

	return Named(name)
}

// Sweep removes temp files left by interrupted writes and returns how many
// were removed. Call it at startup, before any writes, since it cannot tell
// an orphan from a write in progress.
func (s *Store) Sweep() (int, error) {
	entries, err := s.fs.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}

		return 0, fmt.Errorf("%w: list %q: %w", ErrIO, s.root, err)
	}

	removed := 0

	var errs []error

	for _, e := range entries {
		target, ok := fs.TempTarget(e.Name())
		if !ok || !strings.HasSuffix(target, s.ext) {
			continue
		}

		err := s.fs.Remove(filepath.Join(s.root, e.Name()))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)

			continue
		}

		removed++
	}

	if len(errs) > 0 {
		return removed, fmt.Errorf("%w: sweep %q: %w", ErrIO, s.root, errors.Join(errs...))
	}

	return removed, nil
}
