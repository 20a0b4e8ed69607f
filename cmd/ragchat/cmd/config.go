package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/briany/genai-rag-chatbot/internal/config"
	"github.com/briany/genai-rag-chatbot/internal/output"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage ragchat configuration.

Configuration precedence (lowest to highest):
  1. Built-in defaults
  2. User config ($XDG_CONFIG_HOME/ragchat/config.yaml, or --config-dir)
  3. Project config (.ragchat.yaml in the working directory)
  4. .env in the working directory (never overrides real variables)
  5. Environment variables (RAGCHAT_*, OPENROUTER_API_KEY, GEMINI_API_KEY)

API keys are read from the environment only and never written to files.`,
		Example: `  ragchat config init
  ragchat config show --json
  ragchat config path`,
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigPathCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	var project bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a configuration file with the defaults",
		Long: `Write the default configuration to the user config file, or with
--project to .ragchat.yaml in the working directory.

An existing file is kept unless --force is given, in which case it is
backed up next to itself first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.GetUserConfigPath()
			if project {
				cwd, err := os.Getwd()
				if err != nil {
					return fmt.Errorf("failed to get current directory: %w", err)
				}
				path = filepath.Join(cwd, config.ProjectConfigFile)
			}
			return runConfigInit(cmd, path, force)
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing file after backing it up")
	cmd.Flags().BoolVar(&project, "project", false, "Write .ragchat.yaml in the working directory")
	return cmd
}

func runConfigInit(cmd *cobra.Command, path string, force bool) error {
	out := output.New(cmd.OutOrStdout())

	if _, err := os.Stat(path); err == nil {
		if !force {
			out.Warning("Configuration already exists")
			out.Statusf("📁", "Location: %s", path)
			out.Status("💡", "Use --force to overwrite it (a backup is kept)")
			return nil
		}
		backup, err := config.BackupFile(path)
		if err != nil {
			return fmt.Errorf("failed to backup config: %w", err)
		}
		out.Statusf("💾", "Backup: %s", backup)
	}

	if err := config.NewConfig().WriteYAML(path); err != nil {
		return err
	}
	out.Success("Wrote default configuration")
	out.Statusf("📁", "Location: %s", path)
	out.Status("💡", "Set OPENROUTER_API_KEY or GEMINI_API_KEY to enable model answers")
	return nil
}

func newConfigShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(false)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cfg)
			}

			text, err := cfg.YAML()
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the user config file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.GetUserConfigPath())
			return err
		},
	}
}
