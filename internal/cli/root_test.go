package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate keeps config lookups and the log file inside a temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, ".config"))
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestNewRootCmd(t *testing.T) {
	cmd := newRootCmd()
	assert.Equal(t, "crmgrip", cmd.Use)
	assert.Equal(t, rootLongDescription, cmd.Long)

	names := make([]string, 0)
	for _, c := range cmd.Commands() {
		names = append(names, c.Name())
	}
	assert.Subset(t, names, []string{"browse", "simulate", "config", "help-pager", "version"})

	for _, flag := range []string{configFlagName, debugFlagName, logFileFlagName, rowsFlagName, renderTimeoutFlagName, frameIntervalFlagName, debounceFlagName} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestRootCmd_HelpOutput(t *testing.T) {
	isolate(t)
	out, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "crmgrip browses CRM list views")
	assert.Contains(t, out, "simulate")
}

func TestConfigShow_FlagsAndEnv(t *testing.T) {
	isolate(t)
	t.Setenv("CRMGRIP_RENDER_TIMEOUT", "250ms")

	out, err := execute(t, "--debounce", "40ms", "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "debounce = '40ms'")
	assert.Contains(t, out, "timeout = '250ms'")
}

func TestConfigShow_ExplicitFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	require.NoError(t, os.WriteFile(path, []byte("[ui]\nscopes = ['partners']\n"), 0644))

	out, err := execute(t, "--config", path, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "scopes = ['partners']")

	_, err = execute(t, "--config", filepath.Join(dir, "missing.toml"), "config", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestConfigWrite(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "out", "crmgrip.toml")

	out, err := execute(t, "--frame-interval", "8ms", "config", "write", path)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "frame_interval = '8ms'")

	_, err = execute(t, "config", "write", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, err = execute(t, "config", "write", "--force", path)
	require.NoError(t, err)
}

func TestHelpPager_NotATerminal(t *testing.T) {
	isolate(t)
	out, err := execute(t, "help-pager")
	require.NoError(t, err)
	assert.Contains(t, out, "crmgrip Help")
	assert.Contains(t, out, "Select all visible rows")
}

func TestVersionCmd_Output(t *testing.T) {
	cmd := newVersionCmd()

	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{})

	require.NoError(t, cmd.Execute())

	output := out.String()
	if bytes.Contains(out.Bytes(), []byte("version: unknown")) {
		return
	}
	assert.Contains(t, output, "tool version")
	assert.Contains(t, output, "go version")
}
