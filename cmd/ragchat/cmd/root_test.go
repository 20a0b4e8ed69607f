package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupCLIEnv isolates a test from the user's home, config and data
// directories and runs it from an empty working directory.
func setupCLIEnv(t *testing.T) string {
	t.Helper()

	tmpDir := t.TempDir()
	t.Setenv("HOME", tmpDir)
	t.Setenv("RAGCHAT_CONFIG_DIR", filepath.Join(tmpDir, "config"))
	t.Setenv("RAGCHAT_DATA_DIR", filepath.Join(tmpDir, "data"))
	t.Setenv("RAGCHAT_RETRIEVAL_MODE", "keyword")
	t.Setenv("RAGCHAT_PERSIST_CHUNKS", "true")
	t.Setenv("OPENROUTER_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("RAGCHAT_TELEMETRY", "")

	workDir := filepath.Join(tmpDir, "work")
	require.NoError(t, os.MkdirAll(workDir, 0o755))
	oldDir, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(workDir))
	t.Cleanup(func() { _ = os.Chdir(oldDir) })

	debugMode = false
	configDir = ""
	return workDir
}

// runCLI executes the root command with args and returns its stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCmd()
	buf := new(bytes.Buffer)
	cmd.SetOut(buf)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return buf.String(), err
}

func TestRootCmd_ShowsHelp(t *testing.T) {
	// Given: a root command
	setupCLIEnv(t)

	// When: executing with --help
	out, err := runCLI(t, "--help")

	// Then: usage lists the main commands
	require.NoError(t, err)
	assert.Contains(t, out, "ragchat")
	assert.Contains(t, out, "ingest")
	assert.Contains(t, out, "ask")
	assert.Contains(t, out, "serve")
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// Then: every subcommand is registered
	want := []string{"ingest", "ask", "search", "documents", "chunks", "serve", "chat", "stats", "doctor", "config", "version"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	// Given: the root command
	cmd := NewRootCmd()

	// Then: --debug and --config-dir are available to every subcommand
	assert.NotNil(t, cmd.PersistentFlags().Lookup("debug"))
	assert.NotNil(t, cmd.PersistentFlags().Lookup("config-dir"))
}

func TestRootCmd_ConfigDirFlagSetsEnv(t *testing.T) {
	// Given: an isolated environment and a custom config dir
	setupCLIEnv(t)
	dir := filepath.Join(t.TempDir(), "custom")

	// When: running a command with --config-dir
	out, err := runCLI(t, "--config-dir", dir, "config", "path")

	// Then: the user config path lives under that dir
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "config.yaml"), strings.TrimSpace(out))
	configDir = ""
}

func TestRootCmd_UnknownCommand(t *testing.T) {
	setupCLIEnv(t)

	_, err := runCLI(t, "frobnicate")

	assert.Error(t, err)
}

