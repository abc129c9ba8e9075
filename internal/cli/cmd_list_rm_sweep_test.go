package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/savekit/internal/cli"
)

func Test_List_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	if got := c.MustRun("list"); got != "" {
		t.Fatalf("list on empty root=%q, want empty", got)
	}

	c.MustPut("Slot2", `{}`)
	c.MustPut("AutoSave", `{}`)
	c.MustPut("profile", `{}`)

	got := c.MustRun("list")
	if want := "SaveFile_AutoSave\nSaveFile_Slot2\nprofile"; got != want {
		t.Fatalf("list=%q, want %q", got, want)
	}

	got = c.MustRun("list", "--paths")
	cli.AssertContains(t, got, c.SavePath("SaveFile_AutoSave"))
	cli.AssertContains(t, got, c.SavePath("profile"))
}

func Test_List_Custom_Prefix_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)

	_, stderr, code := c.RunWithInput(`{"level": 1}`, "--prefix", "Game_", "put", "QuickSave")
	if code != 0 {
		t.Fatalf("put failed: %s", stderr)
	}

	got := c.MustRun("list")
	if got != "Game_QuickSave" {
		t.Fatalf("list=%q, want Game_QuickSave", got)
	}
}

func Test_Rm_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustPut("QuickSave", `{}`)
	c.MustPut("Slot1", `{}`)

	stdout := c.MustRun("rm", "QuickSave", "Slot1")
	cli.AssertContains(t, stdout, "removed QuickSave")
	cli.AssertContains(t, stdout, "removed Slot1")

	if got := c.MustRun("list"); got != "" {
		t.Fatalf("list after rm=%q, want empty", got)
	}

	stderr := c.MustFail("rm", "QuickSave")
	cli.AssertContains(t, stderr, "not found")

	c.MustRun("rm", "--force", "QuickSave")

	stderr = c.MustFail("rm")
	cli.AssertContains(t, stderr, "slot is required")
}

func Test_Sweep_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	c.MustPut("AutoSave", `{"level": 1}`)

	orphan := filepath.Join(c.SaveDir(), ".SaveFile_AutoSave.sav.tmp-42")

	err := os.WriteFile(orphan, []byte("partial"), 0o600)
	if err != nil {
		t.Fatalf("write orphan: %v", err)
	}

	stdout := c.MustRun("sweep")
	cli.AssertContains(t, stdout, "removed 1 temp files")

	if _, err := os.Stat(orphan); !os.IsNotExist(err) {
		t.Fatalf("orphan still present: %v", err)
	}

	got := c.MustRun("dump", "AutoSave", "--compact")
	if got != `{"level":1}` {
		t.Fatalf("dump after sweep=%q", got)
	}

	stdout = c.MustRun("sweep")
	cli.AssertContains(t, stdout, "removed 0 temp files")
}
