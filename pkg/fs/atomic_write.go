package fs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
)

// ErrAtomicWriteDirSync indicates the parent directory could not be synced after rename.
//
// When returned, the new file is in place but durability is not guaranteed.
// Callers can detect this with errors.Is(err, ErrAtomicWriteDirSync).
var ErrAtomicWriteDirSync = errors.New("dir sync")

// AtomicWriteOptions configures [AtomicWriter].
type AtomicWriteOptions struct {
	// SyncDir controls whether the parent directory is synced after rename.
	SyncDir bool

	// Perm specifies the file permissions. Must be non-zero.
	// The file is always explicitly chmod'd to this mode, regardless of umask.
	Perm os.FileMode
}

// DefaultAtomicWriteOptions returns durable options with owner-only permissions.
func DefaultAtomicWriteOptions() AtomicWriteOptions {
	return AtomicWriteOptions{
		SyncDir: true,
		Perm:    0o600,
	}
}

// AtomicWriter replaces files so readers observe either the old or the new
// contents, never a partial write.
type AtomicWriter struct {
	fs   FS
	opts AtomicWriteOptions
}

// NewAtomicWriter creates an AtomicWriter on the given filesystem.
// Panics if fs is nil or opts.Perm is zero.
func NewAtomicWriter(fs FS, opts AtomicWriteOptions) *AtomicWriter {
	if fs == nil {
		panic("fs is nil")
	}

	if opts.Perm == 0 {
		panic("opts.Perm must be non-zero")
	}

	return &AtomicWriter{fs: fs, opts: opts}
}

// WriteFile writes data to path atomically and durably.
//
// It writes to a temp file in the same directory, syncs it, renames it over
// path, then syncs the parent directory (if SyncDir is set). Any failure
// before the rename leaves path untouched and removes the temp file.
//
// If the directory sync step fails, the returned error satisfies
// errors.Is(err, ErrAtomicWriteDirSync).
func (w *AtomicWriter) WriteFile(path string, data []byte) error {
	if path == "" {
		return errors.New("path is empty")
	}

	dir, base := filepath.Split(path)
	if base == "" || base == "." || base == ".." {
		return fmt.Errorf("path is invalid: %q", path)
	}

	if dir == "" {
		dir = "."
	}

	dir = filepath.Clean(dir)

	tmpFile, tmpPath, err := createTempFile(w.fs, dir, base, w.opts.Perm)
	if err != nil {
		return err
	}

	closed := false
	cleanup := func() error {
		var closeErr error
		if !closed {
			closeErr = closeFile("temp file", tmpPath, tmpFile)
		}

		return errors.Join(closeErr, removeTempFile(w.fs, tmpPath))
	}

	err = tmpFile.Chmod(w.opts.Perm)
	if err != nil {
		return errors.Join(fmt.Errorf("chmod temp file %q: %w", tmpPath, err), cleanup())
	}

	err = writeAndSync(tmpFile, tmpPath, data)
	if err != nil {
		return errors.Join(err, cleanup())
	}

	closed = true

	err = closeFile("temp file", tmpPath, tmpFile)
	if err != nil {
		return errors.Join(err, cleanup())
	}

	err = w.fs.Rename(tmpPath, path)
	if err != nil {
		return errors.Join(fmt.Errorf("rename: %w", err), cleanup())
	}

	if w.opts.SyncDir {
		return syncDir(w.fs, dir)
	}

	return nil
}

// IsTempName reports whether name is a temp file left by [AtomicWriter],
// for example after a crash between the temp write and the rename.
func IsTempName(name string) bool {
	_, ok := TempTarget(name)

	return ok
}

// TempTarget returns the base name a temp file was going to replace.
func TempTarget(name string) (string, bool) {
	if !strings.HasPrefix(name, ".") {
		return "", false
	}

	i := strings.LastIndex(name, tempMarker)
	if i <= 1 {
		return "", false
	}

	base, seq := name[1:i], name[i+len(tempMarker):]
	if seq == "" {
		return "", false
	}

	for _, c := range seq {
		if c < '0' || c > '9' {
			return "", false
		}
	}

	return base, true
}

const (
	tempMarker         = ".tmp-"
	tempCreateAttempts = 10000
)

var tempCounter atomic.Uint64

func createTempFile(fs FS, dir, base string, perm os.FileMode) (File, string, error) {
	for range tempCreateAttempts {
		seq := tempCounter.Add(1)
		path := filepath.Join(dir, fmt.Sprintf(".%s%s%d", base, tempMarker, seq))

		file, err := fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
		if err == nil {
			return file, path, nil
		}

		if os.IsExist(err) {
			continue
		}

		return nil, "", fmt.Errorf("create temp file: %w", err)
	}

	return nil, "", fmt.Errorf("exhausted temp file attempts in %q", dir)
}

func writeAndSync(file File, path string, data []byte) error {
	n, err := file.Write(data)
	if err != nil {
		return fmt.Errorf("write temp file %q: %w", path, err)
	}

	if n != len(data) {
		return fmt.Errorf("write temp file %q: short write (%d of %d bytes)", path, n, len(data))
	}

	err = file.Sync()
	if err != nil {
		return fmt.Errorf("sync temp file %q: %w", path, err)
	}

	return nil
}

func syncDir(fs FS, dir string) error {
	dirFile, err := fs.Open(dir)
	if err != nil {
		return errors.Join(ErrAtomicWriteDirSync, fmt.Errorf("open dir %q: %w", dir, err))
	}

	err = dirFile.Sync()
	if err == nil {
		return closeFile("dir", dir, dirFile)
	}

	return errors.Join(
		ErrAtomicWriteDirSync,
		fmt.Errorf("%q: %w", dir, err),
		closeFile("dir", dir, dirFile),
	)
}

func closeFile(kind, path string, file File) error {
	err := file.Close()
	if err == nil {
		return nil
	}

	return fmt.Errorf("close %s %q: %w", kind, path, err)
}

func removeTempFile(fs FS, path string) error {
	err := fs.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove temp file %q: %w", path, err)
	}

	return nil
}
