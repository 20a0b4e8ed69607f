// Package cmd provides the CLI commands for ragchat.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/config"
	"github.com/briany/genai-rag-chatbot/internal/logging"
	"github.com/briany/genai-rag-chatbot/internal/retrieval"
	"github.com/briany/genai-rag-chatbot/pkg/version"
)

var (
	debugMode      bool
	configDir      string
	loggingCleanup func()
)

// NewRootCmd creates the root command for the ragchat CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragchat",
		Short: "Chat with your documents using retrieval augmented generation",
		Long: `ragchat ingests PDF, DOCX and TXT files, splits them into overlapping
chunks and answers questions from the most relevant passages.

Retrieval runs on one of three stores (keyword, embedding, bm25) chosen in
the configuration. Answers come from OpenRouter or Gemini when an API key is
set, and from a built-in mock writer otherwise.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("ragchat version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.ragchat/logs/")
	cmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "Directory holding config.yaml (default $XDG_CONFIG_HOME/ragchat)")

	cmd.PersistentPreRunE = startLogging
	cmd.PersistentPostRunE = stopLogging

	cmd.AddCommand(newIngestCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newDocumentsCmd())
	cmd.AddCommand(newChunksCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newDoctorCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return NewRootCmd().ExecuteContext(ctx)
}

// startLogging applies --config-dir and installs file logging. CLI output
// owns stdout, so records never go to the terminal unless --debug is set.
func startLogging(_ *cobra.Command, _ []string) error {
	if configDir != "" {
		if err := os.Setenv(config.EnvConfigDir, configDir); err != nil {
			return fmt.Errorf("failed to set config dir: %w", err)
		}
	}

	logCfg := logging.DefaultConfig()
	logCfg.WriteToStderr = false
	if debugMode {
		logCfg = logging.DebugConfig()
	}
	return installLogging(logCfg)
}

func stopLogging(_ *cobra.Command, _ []string) error {
	if loggingCleanup != nil {
		loggingCleanup()
		loggingCleanup = nil
	}
	return nil
}

// installLogging replaces the default logger, closing the previous log file.
func installLogging(cfg logging.Config) error {
	cleanup, err := logging.Install(cfg)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	if loggingCleanup != nil {
		loggingCleanup()
	}
	loggingCleanup = cleanup
	return nil
}

// loadConfig loads the configuration for the working directory and
// re-installs logging with its settings. stdio mode keeps stdout and
// stderr silent.
func loadConfig(stdio bool) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get current directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}

	logCfg := logging.Config{
		Level:     cfg.Logging.Level,
		FilePath:  cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
		MaxFiles:  cfg.Logging.MaxFiles,
	}
	if logCfg.FilePath == "" {
		logCfg.FilePath = logging.DefaultLogPath()
	}
	if debugMode {
		logCfg.Level = "debug"
		logCfg.WriteToStderr = !stdio
	}
	if err := installLogging(logCfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openService loads the configuration and opens the retrieval service.
// The returned function closes the service and releases the data lock.
func openService(ctx context.Context, stdio bool) (*retrieval.Service, *config.Config, func(), error) {
	cfg, err := loadConfig(stdio)
	if err != nil {
		return nil, nil, nil, err
	}
	svc, cleanup, err := retrieval.Open(ctx, cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	slog.Debug("service_ready",
		slog.String("mode", cfg.Retrieval.Mode),
		slog.String("data_dir", cfg.Data.Dir),
		slog.Bool("mock", svc.MockMode()))
	return svc, cfg, cleanup, nil
}
