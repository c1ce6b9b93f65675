// Package commands defines all Cobra CLI commands for the lore binary.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/audit"
	"github.com/lorehq/lore/internal/config"
	"github.com/lorehq/lore/internal/logging"
)

// configPath holds the --config flag value for YAML config file override.
var configPath string

// loadedConfigPath stores the resolved config file path for audit logging.
var loadedConfigPath string

// NewRootCmd constructs the root Cobra command that all subcommands attach to.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lore",
		Short: "Lore - a conversational knowledge base over your documents",
		Long: `Lore turns a folder of documents into a question-answering service.

Upload text, Markdown, or CSV files and each becomes its own searchable
collection. Questions are routed to the most relevant document, answered
with retrieved context, and remembered per session so follow-ups work.

Model provider is selected via the MODEL_PROVIDER environment variable
or a YAML config file (~/.lore/config.yaml).
See 'lore --help' for available commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			log := logging.New()

			// A local .env file is a convenience for development; missing is fine.
			_ = godotenv.Load()

			// Load YAML config (env vars always override YAML values).
			path, err := config.Load(configPath, log)
			if err != nil {
				return err
			}
			loadedConfigPath = path

			// Emit structured audit log for every command invocation.
			audit.LogCommandStart(log, cmd.Name(), loadedConfigPath)

			return nil
		},
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Path to YAML config file (default: ~/.lore/config.yaml)")

	root.AddCommand(
		NewServeCmd(),
		NewAskCmd(),
		NewIngestCmd(),
		NewForgetCmd(),
		NewVersionCmd(),
	)

	return root
}
