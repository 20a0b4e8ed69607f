package preflight

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/briany/genai-rag-chatbot/internal/config"
	"github.com/briany/genai-rag-chatbot/internal/embed"
	"github.com/briany/genai-rag-chatbot/internal/llm"
	"github.com/briany/genai-rag-chatbot/internal/store"
)

// CheckStatus is the outcome of one check.
type CheckStatus int

const (
	StatusPass CheckStatus = iota
	StatusWarn
	StatusFail
)

// String returns the status label.
func (s CheckStatus) String() string {
	switch s {
	case StatusPass:
		return "PASS"
	case StatusWarn:
		return "WARN"
	case StatusFail:
		return "FAIL"
	default:
		return "UNKNOWN"
	}
}

// MarshalText renders the status as its label in JSON.
func (s CheckStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// CheckResult holds the result of a single check.
type CheckResult struct {
	Name     string      `json:"name"`
	Status   CheckStatus `json:"status"`
	Message  string      `json:"message"`
	Details  string      `json:"details,omitempty"`
	Required bool        `json:"required"`
}

// IsCritical reports whether a required check failed.
func (r CheckResult) IsCritical() bool {
	return r.Required && r.Status == StatusFail
}

// Checker runs the checks for one configuration.
type Checker struct {
	cfg     *config.Config
	verbose bool
	output  io.Writer
}

// Option configures a Checker.
type Option func(*Checker)

// WithVerbose prints check details.
func WithVerbose(verbose bool) Option {
	return func(c *Checker) {
		c.verbose = verbose
	}
}

// WithOutput sets where PrintResults writes.
func WithOutput(w io.Writer) Option {
	return func(c *Checker) {
		c.output = w
	}
}

// New creates a Checker for cfg.
func New(cfg *config.Config, opts ...Option) *Checker {
	c := &Checker{cfg: cfg, output: os.Stdout}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RunAll runs every check in a fixed order.
func (c *Checker) RunAll(_ context.Context) []CheckResult {
	return []CheckResult{
		c.CheckConfig(),
		c.CheckWritePermissions(),
		c.CheckDiskSpace(),
		c.CheckFileDescriptors(),
		c.CheckDataLock(),
		c.CheckLLM(),
		c.CheckEmbeddings(),
	}
}

// HasCriticalFailures reports whether any required check failed.
func (c *Checker) HasCriticalFailures(results []CheckResult) bool {
	for _, r := range results {
		if r.IsCritical() {
			return true
		}
	}
	return false
}

// SummaryStatus returns "ready", "ready_with_warnings" or "failed".
func (c *Checker) SummaryStatus(results []CheckResult) string {
	hasWarnings := false
	for _, r := range results {
		if r.IsCritical() {
			return "failed"
		}
		if r.Status != StatusPass {
			hasWarnings = true
		}
	}
	if hasWarnings {
		return "ready_with_warnings"
	}
	return "ready"
}

// PrintResults writes one line per check and a summary.
func (c *Checker) PrintResults(results []CheckResult) {
	_, _ = fmt.Fprintln(c.output, "ragchat system check")
	_, _ = fmt.Fprintln(c.output, "====================")
	_, _ = fmt.Fprintln(c.output)

	var warnings, errs []string
	for _, r := range results {
		_, _ = fmt.Fprintf(c.output, "[%s] %s: %s\n", r.Status, r.Name, r.Message)
		if c.verbose && r.Details != "" {
			_, _ = fmt.Fprintf(c.output, "       %s\n", r.Details)
		}
		switch {
		case r.IsCritical():
			errs = append(errs, r.Name+": "+r.Message)
		case r.Status != StatusPass:
			warnings = append(warnings, r.Name+": "+r.Message)
		}
	}

	_, _ = fmt.Fprintln(c.output)
	_, _ = fmt.Fprintf(c.output, "Status: %s\n", strings.ToUpper(c.SummaryStatus(results)))
	printList(c.output, "error(s)", errs)
	printList(c.output, "warning(s)", warnings)
}

func printList(w io.Writer, label string, items []string) {
	if len(items) == 0 {
		return
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintf(w, "%d %s:\n", len(items), label)
	for _, item := range items {
		_, _ = fmt.Fprintf(w, "  - %s\n", item)
	}
}

// CheckConfig validates the configuration.
func (c *Checker) CheckConfig() CheckResult {
	result := CheckResult{Name: "config", Required: true}
	if err := c.cfg.Validate(); err != nil {
		result.Status = StatusFail
		result.Message = err.Error()
		return result
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("mode %s, chunks %d/%d", c.cfg.Retrieval.Mode, c.cfg.Chunking.Size, c.cfg.Chunking.Overlap)
	return result
}

// CheckWritePermissions creates the data directory if needed and writes
// a probe file into it.
func (c *Checker) CheckWritePermissions() CheckResult {
	result := CheckResult{Name: "data_dir", Required: true, Details: c.cfg.Data.Dir}

	if err := os.MkdirAll(c.cfg.Data.Dir, 0o755); err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("cannot create: %v", err)
		return result
	}
	probe, err := os.CreateTemp(c.cfg.Data.Dir, ".ragchat-preflight-*")
	if err != nil {
		result.Status = StatusFail
		result.Message = fmt.Sprintf("permission denied: %v", err)
		return result
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	result.Status = StatusPass
	result.Message = "writable"
	if abs, err := filepath.Abs(c.cfg.Data.Dir); err == nil {
		result.Details = abs
	}
	return result
}

// CheckDataLock reports whether another ragchat process holds the data
// directory. It is a warning: that process may simply be the server.
func (c *Checker) CheckDataLock() CheckResult {
	result := CheckResult{Name: "data_lock"}

	lock := store.NewDataLock(c.cfg.Data.Dir)
	result.Details = lock.Path()
	if err := lock.TryLock(); err != nil {
		result.Status = StatusWarn
		result.Message = "held by another ragchat process"
		return result
	}
	_ = lock.Unlock()
	result.Status = StatusPass
	result.Message = "free"
	return result
}

// CheckLLM warns when no completion key is configured, which means
// answers come from the mock writer.
func (c *Checker) CheckLLM() CheckResult {
	result := CheckResult{Name: "llm"}
	provider := strings.ToLower(c.cfg.LLM.Provider)
	if c.cfg.LLM.APIKey == "" {
		envVar := "OPENROUTER_API_KEY"
		if provider == llm.ProviderGemini {
			envVar = "GEMINI_API_KEY"
		}
		result.Status = StatusWarn
		result.Message = fmt.Sprintf("%s: no API key, answers run in mock mode", provider)
		result.Details = "set " + envVar
		return result
	}
	result.Status = StatusPass
	result.Message = provider + ": API key configured"
	return result
}

// CheckEmbeddings checks the embedding provider settings. It only
// matters in embedding mode.
func (c *Checker) CheckEmbeddings() CheckResult {
	result := CheckResult{Name: "embeddings"}
	if !strings.EqualFold(c.cfg.Retrieval.Mode, config.ModeEmbedding) {
		result.Status = StatusPass
		result.Message = "not used in " + c.cfg.Retrieval.Mode + " mode"
		return result
	}

	provider := embed.ParseProvider(c.cfg.Embeddings.Provider)
	switch provider {
	case embed.ProviderOpenAI:
		if c.cfg.Embeddings.APIKey == "" {
			result.Status = StatusFail
			result.Required = true
			result.Message = "openai: no API key"
			result.Details = "set OPENAI_API_KEY or switch embeddings.provider to static"
			return result
		}
	case embed.ProviderOllama:
		result.Details = c.cfg.Embeddings.Host
	}
	result.Status = StatusPass
	result.Message = fmt.Sprintf("%s, %s index", provider, c.cfg.Embeddings.IndexBackend)
	return result
}
