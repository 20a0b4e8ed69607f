package logging

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TS01: Setup writes JSON records to the configured file
func TestSetup_WritesJSONToFile(t *testing.T) {
	// Given: a file-only config
	path := filepath.Join(t.TempDir(), "logs", "server.log")
	cfg := Config{Level: "debug", FilePath: path, MaxSizeMB: 1, MaxFiles: 2}

	// When: logging one record
	logger, cleanup, err := Setup(cfg)
	require.NoError(t, err)
	logger.Info("document_ingested", slog.String("filename", "notes.txt"), slog.Int("chunks", 3))
	cleanup()

	// Then: the file holds one JSON line with the attributes
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(string(data))), &rec))
	assert.Equal(t, "document_ingested", rec["msg"])
	assert.Equal(t, "notes.txt", rec["filename"])
	assert.EqualValues(t, 3, rec["chunks"])
}

func TestSetup_LevelFiltersRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "server.log")
	logger, cleanup, err := Setup(Config{Level: "warn", FilePath: path, MaxSizeMB: 1, MaxFiles: 1})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown")
	cleanup()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden")
	assert.Contains(t, string(data), "shown")
}

func TestSetup_NoOutputsDiscards(t *testing.T) {
	logger, cleanup, err := Setup(Config{Level: "info"})
	require.NoError(t, err)
	defer cleanup()
	logger.Info("nowhere")
}

func TestStdioConfig_NeverWritesToStderr(t *testing.T) {
	cfg := StdioConfig()
	assert.False(t, cfg.WriteToStderr)
	assert.Equal(t, "debug", cfg.Level)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("verbose"))
	assert.True(t, ValidLevel("warn"))
	assert.False(t, ValidLevel("verbose"))
}

// TS02: RotatingWriter rolls over at the size limit and caps the file count
func TestRotatingWriter_RotatesAndCapsFiles(t *testing.T) {
	// Given: a writer with a 1MB limit keeping two rotated files
	path := filepath.Join(t.TempDir(), "server.log")
	w, err := NewRotatingWriter(path, 1, 2)
	require.NoError(t, err)
	defer w.Close()

	// When: writing four chunks of 600KB
	chunk := []byte(strings.Repeat("x", 600*1024))
	for i := 0; i < 4; i++ {
		_, err := w.Write(chunk)
		require.NoError(t, err)
	}

	// Then: server.log, .1 and .2 exist but .3 does not
	assert.FileExists(t, path)
	assert.FileExists(t, path+".1")
	assert.FileExists(t, path+".2")
	assert.NoFileExists(t, path+".3")
}

func TestDefaultLogPath(t *testing.T) {
	assert.True(t, strings.HasSuffix(DefaultLogPath(), filepath.Join(".ragchat", "logs", "server.log")))
}
