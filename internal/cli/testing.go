package cli

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// CLI provides a clean interface for running CLI commands in tests.
// It manages a temp directory and environment variables.
type CLI struct {
	t   *testing.T
	Dir string
	Env map[string]string
}

// NewCLI creates a new test CLI with a temp directory. Saves go to
// Dir/saves and the key is "test-key" unless a test overrides them.
func NewCLI(t *testing.T) *CLI {
	t.Helper()

	dir := t.TempDir()

	return &CLI{
		t:   t,
		Dir: dir,
		Env: map[string]string{"HOME": filepath.Join(dir, "home"), "SAVECTL_KEY": "test-key"},
	}
}

// SaveDir returns the directory saves are written to.
func (r *CLI) SaveDir() string {
	return filepath.Join(r.Dir, "saves")
}

// Run executes the CLI with the given args and returns stdout, stderr, and exit code.
// Args should not include "savectl", "--cwd" or "--root" - those are added automatically.
func (r *CLI) Run(args ...string) (string, string, int) {
	return r.RunWithInput(strings.NewReader(""), args...)
}

// RunWithInput executes the CLI with stdin and returns stdout, stderr, and exit code.
// stdin must be a string or io.Reader; panics otherwise.
func (r *CLI) RunWithInput(stdin any, args ...string) (string, string, int) {
	var inReader io.Reader
	switch v := stdin.(type) {
	case string:
		inReader = strings.NewReader(v)
	case io.Reader:
		inReader = v
	default:
		panic(fmt.Sprintf("stdin must be string or io.Reader, got %T", stdin))
	}

	var outBuf, errBuf bytes.Buffer

	fullArgs := append([]string{"savectl", "--cwd", r.Dir, "--root", r.SaveDir()}, args...)
	code := Run(inReader, &outBuf, &errBuf, fullArgs, r.Env, nil)

	return outBuf.String(), errBuf.String(), code
}

// MustRun executes the CLI and fails the test if the command returns non-zero.
// Returns trimmed stdout on success.
func (r *CLI) MustRun(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code != 0 {
		r.t.Fatalf("command %v failed with exit code %d\nstderr: %s", args, code, stderr)
	}

	return strings.TrimSpace(stdout)
}

// MustPut saves a JSON document to slotName via "put".
func (r *CLI) MustPut(slotName, doc string) {
	r.t.Helper()

	_, stderr, code := r.RunWithInput(doc, "put", slotName)
	if code != 0 {
		r.t.Fatalf("put %s failed with exit code %d\nstderr: %s", slotName, code, stderr)
	}
}

// MustFail executes the CLI and fails the test if the command succeeds.
// Returns trimmed stderr.
func (r *CLI) MustFail(args ...string) string {
	r.t.Helper()

	stdout, stderr, code := r.Run(args...)
	if code == 0 {
		r.t.Fatalf("command %v should have failed but succeeded\nstdout: %s", args, stdout)
	}

	return strings.TrimSpace(stderr)
}

// SavePath returns the path of a save file by its listed name.
func (r *CLI) SavePath(name string) string {
	return filepath.Join(r.SaveDir(), name+".sav")
}

// ReadSave reads the raw bytes of a save file.
func (r *CLI) ReadSave(name string) []byte {
	r.t.Helper()

	content, err := os.ReadFile(r.SavePath(name))
	if err != nil {
		r.t.Fatalf("failed to read save %s: %v", name, err)
	}

	return content
}

// WriteSave overwrites the raw bytes of a save file.
func (r *CLI) WriteSave(name string, content []byte) {
	r.t.Helper()

	err := os.MkdirAll(r.SaveDir(), 0o750)
	if err != nil {
		r.t.Fatalf("failed to create save dir: %v", err)
	}

	err = os.WriteFile(r.SavePath(name), content, 0o600)
	if err != nil {
		r.t.Fatalf("failed to write save %s: %v", name, err)
	}
}

// AssertContains fails the test if content doesn't contain substr.
func AssertContains(t *testing.T, content, substr string) {
	t.Helper()

	if !strings.Contains(content, substr) {
		t.Errorf("content should contain %q\ncontent:\n%s", substr, content)
	}
}

// AssertNotContains fails the test if content contains substr.
func AssertNotContains(t *testing.T, content, substr string) {
	t.Helper()

	if strings.Contains(content, substr) {
		t.Errorf("content should NOT contain %q\ncontent:\n%s", substr, content)
	}
}
