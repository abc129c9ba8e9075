package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/calvinalkan/savekit/pkg/fs"
)

func allFaults() fs.ChaosConfig {
	return fs.ChaosConfig{
		OpenFailRate:     1,
		ReadFailRate:     1,
		WriteFailRate:    1,
		SyncFailRate:     1,
		CloseFailRate:    1,
		RenameFailRate:   1,
		RemoveFailRate:   1,
		MkdirAllFailRate: 1,
	}
}

func TestChaos_Injects_At_Full_Rate(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "file")

	if err := os.WriteFile(path, []byte("data"), 0o600); err != nil {
		t.Fatalf("setup: %v", err)
	}

	chaos := fs.NewChaos(fs.NewReal(), 1, allFaults())

	_, err := chaos.ReadFile(path)
	if !fs.IsInjected(err) {
		t.Fatalf("ReadFile err=%v, want injected", err)
	}

	_, err = chaos.OpenFile(filepath.Join(dir, "new"), os.O_CREATE|os.O_WRONLY, 0o600)
	if !fs.IsInjected(err) {
		t.Fatalf("OpenFile err=%v, want injected", err)
	}

	err = chaos.Rename(path, filepath.Join(dir, "other"))

	var linkErr *os.LinkError
	if !fs.IsInjected(err) || !errors.As(err, &linkErr) {
		t.Fatalf("Rename err=%v, want injected *os.LinkError", err)
	}

	if err := chaos.MkdirAll(filepath.Join(dir, "sub"), 0o700); !fs.IsInjected(err) {
		t.Fatalf("MkdirAll err=%v, want injected", err)
	}

	if err := chaos.Remove(path); !fs.IsInjected(err) {
		t.Fatalf("Remove err=%v, want injected", err)
	}

	if chaos.Faults() != 5 {
		t.Fatalf("Faults=%d, want 5", chaos.Faults())
	}

	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file should survive injected remove: %v", err)
	}
}

func TestChaos_Never_Injects_NotExist(t *testing.T) {
	t.Parallel()

	chaos := fs.NewChaos(fs.NewReal(), 7, allFaults())

	for range 50 {
		_, err := chaos.ReadFile(filepath.Join(t.TempDir(), "missing"))
		if !errors.Is(err, os.ErrNotExist) {
			t.Fatalf("ReadFile missing: err=%v, want ErrNotExist", err)
		}

		if fs.IsInjected(err) {
			t.Fatal("not-exist error must come from the real filesystem")
		}
	}
}

func TestChaos_File_Faults(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	base := fs.NewReal()

	f, err := base.OpenFile(filepath.Join(dir, "f"), os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	_ = f.Close()

	chaos := fs.NewChaos(base, 3, fs.ChaosConfig{WriteFailRate: 1, SyncFailRate: 1, CloseFailRate: 1})

	cf, err := chaos.OpenFile(filepath.Join(dir, "f"), os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	n, err := cf.Write([]byte("hello"))
	if n != 0 || !fs.IsInjected(err) {
		t.Fatalf("Write n=%d err=%v, want 0 and injected", n, err)
	}

	if err := cf.Sync(); !fs.IsInjected(err) {
		t.Fatalf("Sync err=%v, want injected", err)
	}

	if err := cf.Close(); !fs.IsInjected(err) {
		t.Fatalf("Close err=%v, want injected", err)
	}
}

func TestChaos_Partial_Write_Writes_A_Prefix(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "f")
	chaos := fs.NewChaos(fs.NewReal(), 11, fs.ChaosConfig{PartialWriteRate: 1})

	f, err := chaos.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}

	data := []byte("0123456789")

	n, err := f.Write(data)
	if err == nil || n <= 0 || n >= len(data) {
		t.Fatalf("Write n=%d err=%v, want partial write with error", n, err)
	}

	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}

	if string(got) != string(data[:n]) {
		t.Fatalf("file=%q, want prefix %q", got, data[:n])
	}
}

func TestChaos_NoOp_Mode_Passes_Through(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	chaos := fs.NewChaos(fs.NewReal(), 1, allFaults())
	chaos.SetMode(fs.ChaosModeNoOp)

	w := fs.NewAtomicWriter(chaos, fs.DefaultAtomicWriteOptions())

	if err := w.WriteFile(filepath.Join(dir, "f"), []byte("ok")); err != nil {
		t.Fatalf("WriteFile in no-op mode: %v", err)
	}

	if chaos.Faults() != 0 {
		t.Fatalf("Faults=%d, want 0", chaos.Faults())
	}
}

func TestChaos_Same_Seed_Same_Faults(t *testing.T) {
	t.Parallel()

	run := func() []bool {
		dir := t.TempDir()
		chaos := fs.NewChaos(fs.NewReal(), 42, fs.ChaosConfig{MkdirAllFailRate: 0.5})

		out := make([]bool, 32)
		for i := range out {
			out[i] = chaos.MkdirAll(filepath.Join(dir, "d"), 0o700) != nil
		}

		return out
	}

	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("fault sequence differs at %d", i)
		}
	}
}

func TestChaos_Errors_Carry_Errno(t *testing.T) {
	t.Parallel()

	chaos := fs.NewChaos(fs.NewReal(), 5, fs.ChaosConfig{MkdirAllFailRate: 1})

	err := chaos.MkdirAll(filepath.Join(t.TempDir(), "d"), 0o700)

	var errno syscall.Errno
	if !errors.As(err, &errno) {
		t.Fatalf("err=%v, want a syscall.Errno inside", err)
	}
}
