package fs_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/savekit/pkg/fs"
)

const (
	testContentOld = "old save"
	testContentNew = "new save with more bytes"
)

func newTestWriter(fsys fs.FS) *fs.AtomicWriter {
	return fs.NewAtomicWriter(fsys, fs.DefaultAtomicWriteOptions())
}

func seedFile(t *testing.T, path, content string) {
	t.Helper()

	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("seed %s: %v", path, err)
	}
}

func readString(t *testing.T, path string) string {
	t.Helper()

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile %s: %v", path, err)
	}

	return string(got)
}

func dirNames(t *testing.T, dir string) []string {
	t.Helper()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}

func TestAtomicWriter_WriteFile_CreatesFileWithPerm(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "slot.sav")

	err := newTestWriter(fs.NewReal()).WriteFile(path, []byte(testContentNew))
	if err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	if got := readString(t, path); got != testContentNew {
		t.Fatalf("content=%q, want %q", got, testContentNew)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}

	if got, want := info.Mode().Perm(), os.FileMode(0o600); got != want {
		t.Fatalf("perm=%v, want %v", got, want)
	}

	if names := dirNames(t, dir); len(names) != 1 {
		t.Fatalf("dir entries=%v, want only slot.sav", names)
	}
}

func TestAtomicWriter_WriteFile_KeepsOldContent_When_Step_Fails(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		fault fs.Fault
	}{
		{name: "create temp", fault: fs.Fault{Op: fs.OpOpenFile}},
		{name: "chmod", fault: fs.Fault{Op: fs.OpChmod}},
		{name: "partial write", fault: fs.Fault{Op: fs.OpWrite, Partial: true}},
		{name: "sync", fault: fs.Fault{Op: fs.OpSync, Path: ".tmp-"}},
		{name: "close", fault: fs.Fault{Op: fs.OpClose, Path: ".tmp-"}},
		{name: "rename", fault: fs.Fault{Op: fs.OpRename}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			dir := t.TempDir()
			path := filepath.Join(dir, "slot.sav")
			seedFile(t, path, testContentOld)

			faulty := fs.NewFaulty(fs.NewReal())
			faulty.Inject(tt.fault)

			err := newTestWriter(faulty).WriteFile(path, []byte(testContentNew))
			if err == nil {
				t.Fatal("WriteFile succeeded, want error")
			}

			if !fs.IsInjected(err) {
				t.Fatalf("err=%v, want injected error", err)
			}

			if got := readString(t, path); got != testContentOld {
				t.Fatalf("content=%q, want old content %q", got, testContentOld)
			}

			if names := dirNames(t, dir); len(names) != 1 {
				t.Fatalf("temp file left behind: %v", names)
			}
		})
	}
}

func TestAtomicWriter_WriteFile_CrashBeforeRename_LeavesTargetIntact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "slot.sav")
	seedFile(t, path, testContentOld)

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Inject(fs.Fault{Op: fs.OpRename, Crash: true})

	crash := fs.RunUntilCrash(func() {
		_ = newTestWriter(faulty).WriteFile(path, []byte(testContentNew))
	})
	if crash == nil {
		t.Fatal("expected simulated crash")
	}

	if got := readString(t, path); got != testContentOld {
		t.Fatalf("content=%q, want %q", got, testContentOld)
	}

	var temps []string

	for _, name := range dirNames(t, dir) {
		if fs.IsTempName(name) {
			temps = append(temps, name)
		}
	}

	if len(temps) != 1 {
		t.Fatalf("temps=%v, want exactly one orphaned temp file", temps)
	}

	if got := readString(t, filepath.Join(dir, temps[0])); got != testContentNew {
		t.Fatalf("temp content=%q, want full new content", got)
	}
}

func TestAtomicWriter_WriteFile_CrashMidWrite_LeavesTargetIntact(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "slot.sav")
	seedFile(t, path, testContentOld)

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Inject(fs.Fault{Op: fs.OpWrite, Partial: true, Crash: true})

	if crash := fs.RunUntilCrash(func() {
		_ = newTestWriter(faulty).WriteFile(path, []byte(testContentNew))
	}); crash == nil {
		t.Fatal("expected simulated crash")
	}

	if got := readString(t, path); got != testContentOld {
		t.Fatalf("content=%q, want %q", got, testContentOld)
	}
}

func TestAtomicWriter_WriteFile_ReportsDirSyncFailure(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "slot.sav")

	faulty := fs.NewFaulty(fs.NewReal())
	faulty.Inject(fs.Fault{Op: fs.OpOpen, Path: dir})

	err := newTestWriter(faulty).WriteFile(path, []byte(testContentNew))
	if !errors.Is(err, fs.ErrAtomicWriteDirSync) {
		t.Fatalf("err=%v, want ErrAtomicWriteDirSync", err)
	}

	if got := readString(t, path); got != testContentNew {
		t.Fatalf("content=%q, want new content in place", got)
	}
}

func TestAtomicWriter_WriteFile_RejectsInvalidPath(t *testing.T) {
	t.Parallel()

	w := newTestWriter(fs.NewReal())

	for _, path := range []string{"", "dir/", "dir/.."} {
		if err := w.WriteFile(path, []byte("x")); err == nil {
			t.Errorf("WriteFile(%q) succeeded, want error", path)
		}
	}
}

func TestTempTarget(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		target string
		ok     bool
	}{
		{name: ".SaveFile_AutoSave.sav.tmp-12", target: "SaveFile_AutoSave.sav", ok: true},
		{name: ".a.tmp-1.sav.tmp-5", target: "a.tmp-1.sav", ok: true},
		{name: "SaveFile_AutoSave.sav", ok: false},
		{name: ".slot.sav.tmp-", ok: false},
		{name: ".slot.sav.tmp-1x", ok: false},
		{name: ".tmp-3", ok: false},
	}

	for _, tt := range tests {
		target, ok := fs.TempTarget(tt.name)
		if ok != tt.ok || target != tt.target {
			t.Errorf("TempTarget(%q) = (%q, %v), want (%q, %v)", tt.name, target, ok, tt.target, tt.ok)
		}
	}
}
