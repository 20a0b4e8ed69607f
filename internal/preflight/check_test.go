package preflight

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/briany/genai-rag-chatbot/internal/config"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.NewConfig()
	cfg.Data.Dir = filepath.Join(t.TempDir(), "data")
	cfg.LLM.APIKey = "sk-test"
	return cfg
}

func find(t *testing.T, results []CheckResult, name string) CheckResult {
	t.Helper()
	for _, r := range results {
		if r.Name == name {
			return r
		}
	}
	t.Fatalf("check %q not run", name)
	return CheckResult{}
}

func TestCheckStatus_String(t *testing.T) {
	assert.Equal(t, "PASS", StatusPass.String())
	assert.Equal(t, "WARN", StatusWarn.String())
	assert.Equal(t, "FAIL", StatusFail.String())
	assert.Equal(t, "UNKNOWN", CheckStatus(99).String())
}

// TS01: A valid configuration with a key passes every check
func TestRunAll_Ready(t *testing.T) {
	// Given: a fresh data directory and an API key
	cfg := testConfig(t)
	c := New(cfg)

	// When: running all checks
	results := c.RunAll(context.Background())

	// Then: nothing fails and the data directory now exists
	require.Len(t, results, 7)
	assert.False(t, c.HasCriticalFailures(results))
	assert.Equal(t, StatusPass, find(t, results, "config").Status)
	assert.Equal(t, StatusPass, find(t, results, "data_dir").Status)
	assert.Equal(t, StatusPass, find(t, results, "disk_space").Status)
	assert.Equal(t, StatusPass, find(t, results, "data_lock").Status)
	assert.Equal(t, StatusPass, find(t, results, "llm").Status)
	assert.DirExists(t, cfg.Data.Dir)
}

func TestCheckLLM_MockModeWarns(t *testing.T) {
	cfg := testConfig(t)
	cfg.LLM.APIKey = ""
	cfg.LLM.Provider = "gemini"

	r := New(cfg).CheckLLM()

	assert.Equal(t, StatusWarn, r.Status)
	assert.Contains(t, r.Message, "mock mode")
	assert.Equal(t, "set GEMINI_API_KEY", r.Details)
	assert.False(t, r.IsCritical())
}

func TestCheckConfig_Invalid(t *testing.T) {
	cfg := testConfig(t)
	cfg.Chunking.Overlap = cfg.Chunking.Size

	c := New(cfg)
	r := c.CheckConfig()

	assert.True(t, r.IsCritical())
	assert.Equal(t, "failed", c.SummaryStatus([]CheckResult{r}))
}

func TestCheckWritePermissions_Unwritable(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root ignores directory permissions")
	}
	// Given: a read-only parent directory
	parent := t.TempDir()
	require.NoError(t, os.Chmod(parent, 0o500))
	t.Cleanup(func() { _ = os.Chmod(parent, 0o755) })
	cfg := testConfig(t)
	cfg.Data.Dir = filepath.Join(parent, "data")

	// When: checking write permissions
	r := New(cfg).CheckWritePermissions()

	// Then: the check fails critically
	assert.True(t, r.IsCritical())
}

func TestCheckDataLock_Held(t *testing.T) {
	// Given: the data directory locked by someone else
	cfg := testConfig(t)
	lock := store.NewDataLock(cfg.Data.Dir)
	require.NoError(t, lock.TryLock())
	defer func() { _ = lock.Unlock() }()

	// When: checking the lock
	r := New(cfg).CheckDataLock()

	// Then: it warns without failing
	assert.Equal(t, StatusWarn, r.Status)
	assert.False(t, r.IsCritical())
}

func TestCheckEmbeddings(t *testing.T) {
	t.Run("unused outside embedding mode", func(t *testing.T) {
		r := New(testConfig(t)).CheckEmbeddings()
		assert.Equal(t, StatusPass, r.Status)
		assert.Contains(t, r.Message, "not used")
	})

	t.Run("openai without key fails", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Retrieval.Mode = config.ModeEmbedding
		cfg.Embeddings.Provider = "openai"
		r := New(cfg).CheckEmbeddings()
		assert.True(t, r.IsCritical())
	})

	t.Run("static passes", func(t *testing.T) {
		cfg := testConfig(t)
		cfg.Retrieval.Mode = config.ModeEmbedding
		r := New(cfg).CheckEmbeddings()
		assert.Equal(t, StatusPass, r.Status)
		assert.Equal(t, "static, flat index", r.Message)
	})
}

func TestSummaryStatus(t *testing.T) {
	c := New(testConfig(t))

	assert.Equal(t, "ready", c.SummaryStatus([]CheckResult{{Status: StatusPass}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusPass}, {Status: StatusWarn}}))
	assert.Equal(t, "ready_with_warnings", c.SummaryStatus([]CheckResult{{Status: StatusFail}}))
	assert.Equal(t, "failed", c.SummaryStatus([]CheckResult{{Status: StatusFail, Required: true}}))
}

func TestPrintResults(t *testing.T) {
	// Given: one warning and one critical failure
	var buf bytes.Buffer
	c := New(testConfig(t), WithOutput(&buf), WithVerbose(true))
	results := []CheckResult{
		{Name: "llm", Status: StatusWarn, Message: "no API key", Details: "set OPENROUTER_API_KEY"},
		{Name: "disk_space", Status: StatusFail, Message: "10 MB free", Required: true},
	}

	// When: printing
	c.PrintResults(results)

	// Then: each check, its details and the summary appear
	out := buf.String()
	assert.Contains(t, out, "[WARN] llm: no API key")
	assert.Contains(t, out, "set OPENROUTER_API_KEY")
	assert.Contains(t, out, "Status: FAILED")
	assert.Contains(t, out, "1 error(s):")
	assert.Contains(t, out, "1 warning(s):")
}

func TestCheckResult_JSONStatusLabel(t *testing.T) {
	data, err := json.Marshal(CheckResult{Name: "x", Status: StatusWarn})

	require.NoError(t, err)
	assert.Contains(t, string(data), `"status":"WARN"`)
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 bytes", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "100 MB", formatBytes(MinDiskSpaceBytes))
	assert.Equal(t, "2.0 GB", formatBytes(2*1024*1024*1024))
}
