// Package commands_test provides tests for CLI command creation and behavior.
package commands

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pantrylab/pantry/internal/cli/config"
)

func TestNewSetupCommand(t *testing.T) {
	cmd := NewSetupCommand()

	assert.Equal(t, "setup", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestNewDataCommand(t *testing.T) {
	cmd := NewDataCommand()

	assert.Equal(t, "data", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotEmpty(t, cmd.Example, "Example should not be empty")
}

func TestNewStatusCommand(t *testing.T) {
	cmd := NewStatusCommand()

	assert.Equal(t, "status [run-id]", cmd.Use)
	assert.NotEmpty(t, cmd.Short, "Short should not be empty")
	assert.NotNil(t, cmd.Flags().Lookup("limit"), "flag %q should exist", "limit")
}

func TestNewVersionCommand(t *testing.T) {
	cmd := NewVersionCommand("1.2.3")

	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.Run(cmd, nil)

	assert.Contains(t, out.String(), "pantry v1.2.3")
}

// loadProjectConfig points the package-level configuration at a temp project
// root so commands built on getConfig see it.
func loadProjectConfig(t *testing.T, root string, yaml string) {
	t.Helper()

	require.NoError(t, os.WriteFile(filepath.Join(root, "pantry.yaml"), []byte(yaml), 0o644))

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() {
		_ = os.Chdir(wd)
		config.ResetConfig()
	})

	_, err = config.LoadConfig("", nil)
	require.NoError(t, err)
}

func execute(t *testing.T, cmd *cobra.Command) (string, string, error) {
	t.Helper()

	var out, errW bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errW)
	err := cmd.Execute()
	return out.String(), errW.String(), err
}

func TestSetupCommandIsIdempotent(t *testing.T) {
	root := t.TempDir()
	loadProjectConfig(t, root, `
output: markdown
setup:
  marker: .venv
  commands:
    - mkdir .venv
`)

	_, _, err := execute(t, NewSetupCommand())
	require.NoError(t, err)
	assert.DirExists(t, filepath.Join(root, ".venv"))

	out, _, err := execute(t, NewSetupCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "already present")
}

func TestDataCommandEndToEnd(t *testing.T) {
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	f, err := w.Create("wrapped/recipes.csv")
	require.NoError(t, err)
	_, err = f.Write([]byte("id,name\n1,soup\n"))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write(buf.Bytes())
	}))
	t.Cleanup(srv.Close)

	root := t.TempDir()
	loadProjectConfig(t, root, `
output: markdown
dataset:
  url: `+srv.URL+`
  archive: dataset.zip
  inner_dir: wrapped
tools:
  process: ""
`)

	out, _, err := execute(t, NewDataCommand())
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, "data", "raw", "recipes.csv"))
	assert.NoFileExists(t, filepath.Join(root, "data", "raw", "dataset.zip"))
	assert.Contains(t, out, "data ready")
}

func TestStatusCommandListsRuns(t *testing.T) {
	root := t.TempDir()
	loadProjectConfig(t, root, `
output: markdown
setup:
  marker: .venv
  commands:
    - mkdir .venv
`)

	_, _, err := execute(t, NewSetupCommand())
	require.NoError(t, err)

	out, _, err := execute(t, NewStatusCommand())
	require.NoError(t, err)
	assert.Contains(t, out, "setup")
	assert.Contains(t, out, "completed")
}

func TestCleanCommandReportsRemovals(t *testing.T) {
	root := t.TempDir()
	loadProjectConfig(t, root, `
output: markdown
clean:
  paths:
    - .venv
`)
	require.NoError(t, os.MkdirAll(filepath.Join(root, ".venv"), 0o755))

	out, _, err := execute(t, NewCleanCommand())
	require.NoError(t, err)
	assert.NoDirExists(t, filepath.Join(root, ".venv"))
	assert.Contains(t, out, "clean complete")
}

func TestRunCommandWithoutToolFails(t *testing.T) {
	root := t.TempDir()
	loadProjectConfig(t, root, `
output: markdown
tools:
  run: ""
`)

	_, _, err := execute(t, NewRunCommand())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tools.run")
}
