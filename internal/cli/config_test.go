package cli_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/calvinalkan/savekit/internal/cli"
)

// Tests for print-config command.

func Test_Print_Config_Defaults_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "root="+c.SaveDir())
	cli.AssertContains(t, stdout, "prefix=SaveFile_")
	cli.AssertContains(t, stdout, "format=json")
	cli.AssertContains(t, stdout, "key=te******")
	cli.AssertContains(t, stdout, "key_env=$SAVECTL_KEY")
	cli.AssertNotContains(t, stdout, "test-key")
}

func Test_Print_Config_From_Config_File_With_Comments_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	delete(c.Env, "SAVECTL_KEY")

	writeFile(t, filepath.Join(c.Dir, ".savectl.json"), `{
		// rotated after the 1.2 release
		"key": "new-key",
		"retired_keys": ["old-key"],
		"prefix": "Game_",
		"format": "msgpack",
	}`)

	stdout := c.MustRun("print-config")

	cli.AssertContains(t, stdout, "prefix=Game_")
	cli.AssertContains(t, stdout, "format=msgpack")
	cli.AssertContains(t, stdout, "key=ne*****")
	cli.AssertContains(t, stdout, "retired_keys=ol*****")
	cli.AssertContains(t, stdout, "project_config="+filepath.Join(c.Dir, ".savectl.json"))
}

func Test_Print_Config_Explicit_Config_Flag_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	writeFile(t, filepath.Join(c.Dir, "custom.json"), `{"prefix": "Custom_"}`)

	stdout := c.MustRun("--config=custom.json", "print-config")
	cli.AssertContains(t, stdout, "prefix=Custom_")
}

func Test_Print_Config_Prefix_Override_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	writeFile(t, filepath.Join(c.Dir, ".savectl.json"), `{"prefix": "FromFile_"}`)

	stdout := c.MustRun("--prefix=FromCli_", "print-config")
	cli.AssertContains(t, stdout, "prefix=FromCli_")
}

func Test_Print_Config_Missing_Explicit_Config_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	stderr := c.MustFail("-c", "missing.json", "print-config")

	cli.AssertContains(t, stderr, "config file not found")
}

func Test_Print_Config_Empty_Key_In_File_When_Invoked(t *testing.T) {
	t.Parallel()

	c := cli.NewCLI(t)
	writeFile(t, filepath.Join(c.Dir, ".savectl.json"), `{"key": ""}`)

	stderr := c.MustFail("print-config")
	cli.AssertContains(t, stderr, "invalid config file")
	cli.AssertContains(t, stderr, "key cannot be empty")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()

	dir := filepath.Dir(path)

	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		t.Fatalf("failed to create dir %s: %v", dir, err)
	}

	err = os.WriteFile(path, []byte(content), 0o600)
	if err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}
