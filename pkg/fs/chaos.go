package fs

import (
	"errors"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"syscall"
)

// ChaosConfig controls fault injection probabilities.
// Each rate is a float64 from 0.0 (never) to 1.0 (always).
//
// The zero value disables all fault injection.
type ChaosConfig struct {
	// OpenFailRate controls how often FS.Open and FS.OpenFile fail.
	OpenFailRate float64

	// ReadFailRate controls how often FS.ReadFile fails. Half of the failures
	// return a truncated prefix along with the error.
	ReadFailRate float64

	// WriteFailRate controls how often File.Write fails without writing.
	WriteFailRate float64

	// PartialWriteRate controls how often File.Write writes a prefix of the
	// buffer before failing.
	PartialWriteRate float64

	// SyncFailRate controls how often File.Sync fails.
	SyncFailRate float64

	// CloseFailRate controls how often File.Close reports an error. The
	// underlying file is always closed.
	CloseFailRate float64

	// RenameFailRate controls how often FS.Rename fails. Returns an
	// *os.LinkError like os.Rename.
	RenameFailRate float64

	// RemoveFailRate controls how often FS.Remove fails.
	RemoveFailRate float64

	// MkdirAllFailRate controls how often FS.MkdirAll fails.
	MkdirAllFailRate float64
}

// ChaosMode controls how [Chaos] behaves.
type ChaosMode uint8

const (
	// ChaosModeActive enables fault-rate injection.
	// This is the default mode for a new [Chaos].
	ChaosModeActive ChaosMode = iota

	// ChaosModeNoOp passes every operation directly to the underlying FS.
	ChaosModeNoOp
)

// Chaos wraps an [FS] and injects random failures for testing.
//
// Where [Faulty] targets one precise step, Chaos spreads failures over every
// step of a write protocol, so a test can assert an invariant holds no matter
// where the failure lands. Injected errors carry a real [syscall.Errno] and
// satisfy [IsInjected]. Chaos never injects ENOENT.
type Chaos struct {
	fs     FS
	config ChaosConfig
	mode   atomic.Uint32
	faults atomic.Int64

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewChaos creates a new [Chaos] filesystem wrapping the given [FS].
// The seed controls random fault injection for reproducibility.
// Panics if underlying is nil.
func NewChaos(underlying FS, seed uint64, config ChaosConfig) *Chaos {
	if underlying == nil {
		panic("underlying fs is nil")
	}

	return &Chaos{
		fs:     underlying,
		config: config,
		rng:    rand.New(rand.NewPCG(seed, seed)),
	}
}

// SetMode updates [Chaos] behavior. It is safe to call concurrently with
// filesystem operations.
func (c *Chaos) SetMode(m ChaosMode) { c.mode.Store(uint32(m)) }

// Faults returns the number of injected faults.
func (c *Chaos) Faults() int64 { return c.faults.Load() }

// Open opens path for reading, failing with OpenFailRate.
func (c *Chaos) Open(path string) (File, error) {
	if c.should(c.config.OpenFailRate) {
		return nil, c.pathError("open", path, syscall.EACCES, syscall.EMFILE, syscall.EIO)
	}

	f, err := c.fs.Open(path)
	if err != nil {
		return nil, err
	}

	return &chaosFile{File: f, owner: c, path: path}, nil
}

// OpenFile opens path with flag and perm, failing with OpenFailRate. File
// operations on the result fail at their own rates.
func (c *Chaos) OpenFile(path string, flag int, perm os.FileMode) (File, error) {
	if c.should(c.config.OpenFailRate) {
		return nil, c.pathError("open", path, syscall.EACCES, syscall.ENOSPC, syscall.EROFS)
	}

	f, err := c.fs.OpenFile(path, flag, perm)
	if err != nil {
		return nil, err
	}

	return &chaosFile{File: f, owner: c, path: path}, nil
}

// ReadFile reads the whole file, failing with ReadFailRate. A failed read
// may return a truncated prefix along with the error.
func (c *Chaos) ReadFile(path string) ([]byte, error) {
	if !c.should(c.config.ReadFailRate) {
		return c.fs.ReadFile(path)
	}

	data, err := c.fs.ReadFile(path)
	if err != nil {
		return nil, err
	}

	injected := c.pathError("read", path, syscall.EIO)

	if len(data) > 1 && c.randIntn(2) == 0 {
		return data[:c.randIntn(len(data))], injected
	}

	return nil, injected
}

// ReadDir lists a directory. It never fails by injection.
func (c *Chaos) ReadDir(path string) ([]os.DirEntry, error) {
	return c.fs.ReadDir(path)
}

// MkdirAll creates path and its parents, failing with MkdirAllFailRate.
func (c *Chaos) MkdirAll(path string, perm os.FileMode) error {
	if c.should(c.config.MkdirAllFailRate) {
		return c.pathError("mkdir", path, syscall.EACCES, syscall.ENOSPC, syscall.EROFS)
	}

	return c.fs.MkdirAll(path, perm)
}

// Stat returns file info. It never fails by injection.
func (c *Chaos) Stat(path string) (os.FileInfo, error) {
	return c.fs.Stat(path)
}

// Exists reports whether path exists. It never fails by injection.
func (c *Chaos) Exists(path string) (bool, error) {
	return c.fs.Exists(path)
}

// Remove removes path, failing with RemoveFailRate.
func (c *Chaos) Remove(path string) error {
	if c.should(c.config.RemoveFailRate) {
		return c.pathError("remove", path, syscall.EACCES, syscall.EBUSY, syscall.EIO)
	}

	return c.fs.Remove(path)
}

// Rename renames oldpath to newpath, failing with RenameFailRate.
func (c *Chaos) Rename(oldpath, newpath string) error {
	if c.should(c.config.RenameFailRate) {
		errno := c.pick(syscall.EACCES, syscall.EIO, syscall.ENOSPC, syscall.EXDEV)

		return &InjectedError{Err: &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: errno}}
	}

	return c.fs.Rename(oldpath, newpath)
}

func (c *Chaos) should(rate float64) bool {
	if rate <= 0 || ChaosMode(c.mode.Load()) == ChaosModeNoOp {
		return false
	}

	c.rngMu.Lock()
	hit := c.rng.Float64() < rate
	c.rngMu.Unlock()

	if hit {
		c.faults.Add(1)
	}

	return hit
}

func (c *Chaos) randIntn(n int) int {
	c.rngMu.Lock()
	defer c.rngMu.Unlock()

	return c.rng.IntN(n)
}

func (c *Chaos) pick(errs ...syscall.Errno) syscall.Errno {
	return errs[c.randIntn(len(errs))]
}

func (c *Chaos) pathError(op, path string, errs ...syscall.Errno) error {
	return &InjectedError{Err: &os.PathError{Op: op, Path: path, Err: c.pick(errs...)}}
}

var _ FS = (*Chaos)(nil)

type chaosFile struct {
	File

	owner *Chaos
	path  string
}

func (cf *chaosFile) Write(data []byte) (int, error) {
	c := cf.owner

	if c.should(c.config.WriteFailRate) {
		return 0, c.pathError("write", cf.path, syscall.EIO, syscall.ENOSPC, syscall.EDQUOT)
	}

	if len(data) > 1 && c.should(c.config.PartialWriteRate) {
		n, err := cf.File.Write(data[:1+c.randIntn(len(data)-1)])
		if err != nil {
			return n, err
		}

		if c.randIntn(10) == 0 {
			return n, &InjectedError{Err: io.ErrShortWrite}
		}

		return n, c.pathError("write", cf.path, syscall.EIO, syscall.ENOSPC)
	}

	return cf.File.Write(data)
}

func (cf *chaosFile) Sync() error {
	c := cf.owner

	if c.should(c.config.SyncFailRate) {
		return c.pathError("sync", cf.path, syscall.EIO, syscall.ENOSPC, syscall.EROFS)
	}

	return cf.File.Sync()
}

func (cf *chaosFile) Close() error {
	c := cf.owner

	err := cf.File.Close()
	if c.should(c.config.CloseFailRate) {
		return errors.Join(err, c.pathError("close", cf.path, syscall.EIO))
	}

	return err
}
