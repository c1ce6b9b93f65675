package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/embedder"
	"github.com/lorehq/lore/internal/ingestion"
	"github.com/lorehq/lore/internal/logging"
)

// NewForgetCmd constructs the `lore forget` command, which removes an
// ingested document by the URL printed at ingest time.
func NewForgetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forget [url]",
		Short: "Remove an ingested document from the knowledge base",
		Long: `Remove a document and everything derived from it: the vector store
collection, the catalog rows, and the stored blob.

The URL argument is the one printed by 'lore ingest' (or returned by
POST /api/knowledge).

Examples:
  lore forget http://localhost:9000/lore/knowledges/a1b2c3_notes.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			embedderFor, err := embedder.FactoryFromEnv()
			if err != nil {
				return fmt.Errorf("forget: failed to initialise embedder: %w", err)
			}

			store, closeStore, err := buildVectorStore(log)
			if err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			defer closeStore()

			cat, err := buildCatalog(log)
			if err != nil {
				return fmt.Errorf("forget: %w", err)
			}
			defer func() { _ = cat.Close() }()

			blobs, err := buildBlobStore(ctx, log)
			if err != nil {
				return fmt.Errorf("forget: %w", err)
			}

			pipeline, err := ingestion.New(embedderFor, store, cat, blobs, ingestion.Config{})
			if err != nil {
				return fmt.Errorf("forget: failed to create pipeline: %w", err)
			}

			if err := pipeline.Delete(ctx, args[0]); err != nil {
				return fmt.Errorf("forget: %w", err)
			}

			fmt.Println("knowledge deleted")
			return nil
		},
	}

	return cmd
}
