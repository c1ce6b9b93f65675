package commands

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/embedder"
	"github.com/lorehq/lore/internal/ingestion"
	"github.com/lorehq/lore/internal/loader"
	"github.com/lorehq/lore/internal/logging"
)

// NewIngestCmd constructs the `lore ingest` command, which indexes local
// documents into the knowledge base.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest documents into the knowledge base",
		Long: `Index one or more local documents into the knowledge base.

Each document gets its own vector store collection and a blob copy of the
original file. The printed URL is the handle for 'lore forget'.

Supported formats: ` + strings.Join(loader.Extensions(), ", ") + `

Required environment variables:
  QDRANT_HOST          Qdrant server hostname (in-memory fallback if unset)
  QDRANT_PORT          Qdrant gRPC port (default: 6334)
  QDRANT_API_KEY       Optional API key for authenticated clusters
  MODEL_PROVIDER       Embedding backend: ollama, openai, azure (default: ollama)
  EMBEDDING_*          Provider-specific overrides (see README)

Examples:
  lore ingest ./docs/onboarding.md
  lore ingest notes.txt metrics.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			embedderFor, err := embedder.FactoryFromEnv()
			if err != nil {
				return fmt.Errorf("ingest: failed to initialise embedder: %w", err)
			}

			store, closeStore, err := buildVectorStore(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer closeStore()

			cat, err := buildCatalog(log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}
			defer func() { _ = cat.Close() }()

			blobs, err := buildBlobStore(ctx, log)
			if err != nil {
				return fmt.Errorf("ingest: %w", err)
			}

			pipeline, err := ingestion.New(embedderFor, store, cat, blobs, ingestion.Config{})
			if err != nil {
				return fmt.Errorf("ingest: failed to create pipeline: %w", err)
			}

			for _, path := range args {
				res, err := pipeline.Ingest(ctx, ingestion.Request{
					Path:     path,
					Filename: filepath.Base(path),
				})
				if err != nil {
					return fmt.Errorf("ingest: %s: %w", path, err)
				}
				log.Info("document ingested",
					slog.String("file", path),
					slog.String("collection", res.CollectionName),
					slog.Int("chunks", res.Chunks),
				)
				fmt.Println(res.URL)
			}
			return nil
		},
	}

	return cmd
}
