package fs

import (
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"strings"
	"sync"
	"syscall"
)

// Op names a filesystem operation that [Faulty] can intercept.
type Op string

// Operations understood by [Faulty].
const (
	OpOpen     Op = "open"
	OpOpenFile Op = "openfile"
	OpReadFile Op = "readfile"
	OpReadDir  Op = "readdir"
	OpMkdirAll Op = "mkdirall"
	OpStat     Op = "stat"
	OpRemove   Op = "remove"
	OpRename   Op = "rename"
	OpWrite    Op = "write"
	OpSync     Op = "sync"
	OpClose    Op = "close"
	OpChmod    Op = "chmod"
)

// Fault describes one injected failure.
//
// A fault matches an operation when Op is equal and Path is empty or a
// substring of the operation's path (for [OpRename], the source path).
type Fault struct {
	Op   Op
	Path string

	// Skip lets the first Skip matching operations pass through.
	Skip int

	// Times limits how often the fault fires. Zero means every time.
	Times int

	// Err is returned from the operation. Defaults to EIO.
	Err error

	// Partial makes an [OpWrite] fault write the first half of the buffer
	// before failing.
	Partial bool

	// Crash panics with a [*CrashError] instead of returning an error,
	// simulating the process dying at that point. Recover it with [RunUntilCrash].
	Crash bool
}

// InjectedError marks an error as intentionally injected by [Faulty].
//
// It wraps the underlying error so errors.Is/As continue to work.
type InjectedError struct {
	Err error
}

// Error returns the underlying error's message.
func (e *InjectedError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *InjectedError) Unwrap() error {
	return e.Err
}

// IsInjected reports whether err (or any wrapped error) was injected by [Faulty].
func IsInjected(err error) bool {
	var injected *InjectedError

	return errors.As(err, &injected)
}

// CrashError is the panic value raised by a [Fault] with Crash set.
type CrashError struct {
	Op   Op
	Path string
}

func (e *CrashError) Error() string {
	return fmt.Sprintf("simulated crash during %s %q", e.Op, e.Path)
}

// RunUntilCrash runs fn and returns the [*CrashError] it panicked with, or nil
// if fn returned normally. Other panics are re-raised.
func RunUntilCrash(fn func()) (crash *CrashError) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}

		c, ok := r.(*CrashError)
		if !ok {
			panic(r)
		}

		crash = c
	}()

	fn()

	return nil
}

// Faulty wraps an [FS] and fails selected operations deterministically.
//
// Unlike random chaos testing, every fault is configured explicitly, so
// tests can target a precise step of a write protocol (for example the
// rename after a temp file was synced).
//
// Faulty is not meant for production use.
type Faulty struct {
	fs FS

	mu     sync.Mutex
	faults []*faultState
}

type faultState struct {
	Fault

	seen  int
	fired int
}

// NewFaulty wraps fs. With no faults injected it behaves like fs.
func NewFaulty(fs FS) *Faulty {
	if fs == nil {
		panic("fs is nil")
	}

	return &Faulty{fs: fs}
}

// Inject registers a fault.
func (f *Faulty) Inject(fault Fault) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.faults = append(f.faults, &faultState{Fault: fault})
}

// Reset removes all faults.
func (f *Faulty) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.faults = nil
}

// Fired reports how many times faults for op have fired.
func (f *Faulty) Fired(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	total := 0

	for _, s := range f.faults {
		if s.Op == op {
			total += s.fired
		}
	}

	return total
}

// Open opens path for reading. Faults match [OpOpen]; the returned file
// injects the per-file ops ([OpWrite] and the rest).
func (f *Faulty) Open(path string) (File, error) {
	if err := f.check(OpOpen, path); err != nil {
		return nil, err
	}

	file, err := f.fs.Open(path)
	if err != nil {
		return nil, err
	}

	return &faultyFile{File: file, owner: f, path: path}, nil
}

// OpenFile opens path with flag and perm. Faults match [OpOpenFile]; the
// returned file injects per-file faults like [Faulty.Open].
func (f *Faulty) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if err := f.check(OpOpenFile, path); err != nil {
		return nil, err
	}

	file, err := f.fs.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &faultyFile{File: file, owner: f, path: path}, nil
}

// ReadFile reads the whole file. Faults match [OpReadFile].
func (f *Faulty) ReadFile(path string) ([]byte, error) {
	if err := f.check(OpReadFile, path); err != nil {
		return nil, err
	}

	return f.fs.ReadFile(path)
}

// ReadDir lists a directory. Faults match [OpReadDir].
func (f *Faulty) ReadDir(path string) ([]os.DirEntry, error) {
	if err := f.check(OpReadDir, path); err != nil {
		return nil, err
	}

	return f.fs.ReadDir(path)
}

// MkdirAll creates path and its parents. Faults match [OpMkdirAll].
func (f *Faulty) MkdirAll(path string, perm os.FileMode) error {
	if err := f.check(OpMkdirAll, path); err != nil {
		return err
	}

	return f.fs.MkdirAll(path, perm)
}

// Stat returns file info. Faults match [OpStat].
func (f *Faulty) Stat(path string) (os.FileInfo, error) {
	if err := f.check(OpStat, path); err != nil {
		return nil, err
	}

	return f.fs.Stat(path)
}

// Exists reports whether path exists. Faults match [OpStat].
func (f *Faulty) Exists(path string) (bool, error) {
	if err := f.check(OpStat, path); err != nil {
		return false, err
	}

	return f.fs.Exists(path)
}

// Remove removes path. Faults match [OpRemove].
func (f *Faulty) Remove(path string) error {
	if err := f.check(OpRemove, path); err != nil {
		return err
	}

	return f.fs.Remove(path)
}

// Rename renames oldpath to newpath. Faults match [OpRename] against oldpath.
func (f *Faulty) Rename(oldpath, newpath string) error {
	if err := f.check(OpRename, oldpath); err != nil {
		return err
	}

	return f.fs.Rename(oldpath, newpath)
}

// match finds the first fault that fires for op/path and records it.
func (f *Faulty) match(op Op, path string) *faultState {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.faults {
		if s.Op != op || (s.Path != "" && !strings.Contains(path, s.Path)) {
			continue
		}

		s.seen++
		if s.seen <= s.Skip {
			continue
		}

		if s.Times > 0 && s.fired >= s.Times {
			continue
		}

		s.fired++

		return s
	}

	return nil
}

func (f *Faulty) check(op Op, path string) error {
	s := f.match(op, path)
	if s == nil {
		return nil
	}

	return s.raise(op, path)
}

func (s *faultState) raise(op Op, path string) error {
	if s.Crash {
		panic(&CrashError{Op: op, Path: path})
	}

	err := s.Err
	if err == nil {
		err = &iofs.PathError{Op: string(op), Path: path, Err: syscall.EIO}
	}

	return &InjectedError{Err: err}
}

type faultyFile struct {
	File

	owner *Faulty
	path  string
}

func (ff *faultyFile) Write(p []byte) (int, error) {
	s := ff.owner.match(OpWrite, ff.path)
	if s == nil {
		return ff.File.Write(p)
	}

	if s.Partial && !s.Crash {
		n, _ := ff.File.Write(p[:len(p)/2])

		return n, s.raise(OpWrite, ff.path)
	}

	if s.Partial {
		_, _ = ff.File.Write(p[:len(p)/2])
	}

	return 0, s.raise(OpWrite, ff.path)
}

func (ff *faultyFile) Sync() error {
	if err := ff.owner.check(OpSync, ff.path); err != nil {
		return err
	}

	return ff.File.Sync()
}

func (ff *faultyFile) Close() error {
	if s := ff.owner.match(OpClose, ff.path); s != nil {
		// The descriptor is always released so tests do not leak it.
		_ = ff.File.Close()

		return s.raise(OpClose, ff.path)
	}

	return ff.File.Close()
}

func (ff *faultyFile) Chmod(mode os.FileMode) error {
	if err := ff.owner.check(OpChmod, ff.path); err != nil {
		return err
	}

	return ff.File.Chmod(mode)
}

// Compile-time interface checks.
var (
	_ FS   = (*Faulty)(nil)
	_ File = (*faultyFile)(nil)
)
