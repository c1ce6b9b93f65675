package commands

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/convo"
	"github.com/lorehq/lore/internal/embedder"
	"github.com/lorehq/lore/internal/logging"
)

// NewAskCmd constructs the `lore ask` command, which answers a single
// question against the ingested knowledge base from the terminal.
func NewAskCmd() *cobra.Command {
	var session string

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question against the knowledge base",
		Long: `Ask a natural language question against the ingested documents.

The question is routed to the most relevant document collection and answered
with retrieved context. Pass --session to continue an earlier conversation;
without it each invocation starts a fresh session.

Examples:
  lore ask "what does the onboarding guide say about VPN access?"
  lore ask --session standup "and who approves the request?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			embedderFor, err := embedder.FactoryFromEnv()
			if err != nil {
				return fmt.Errorf("ask: failed to initialise embedder: %w", err)
			}

			modelFor, providerCfg := buildModelFactory()
			if err := providerCfg.Validate(); err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			store, closeStore, err := buildVectorStore(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeStore()

			cat, err := buildCatalog(log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer func() { _ = cat.Close() }()

			sessions, closeSessions, err := buildHistory(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer closeSessions()

			orchestrator, err := convo.New(convo.Config{
				ModelFor:    modelFor,
				EmbedderFor: embedderFor,
				Store:       store,
				Catalog:     cat,
				History:     sessions,
			})
			if err != nil {
				return fmt.Errorf("ask: failed to create orchestrator: %w", err)
			}

			if session == "" {
				session = uuid.NewString()
			}

			answer, err := orchestrator.Answer(ctx, convo.Request{
				SessionID: session,
				Question:  args[0],
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Println(answer)
			return nil
		},
	}

	cmd.Flags().StringVarP(&session, "session", "s", "", "Session ID for conversation continuity (default: random)")

	return cmd
}
