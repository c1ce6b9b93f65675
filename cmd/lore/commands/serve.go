package commands

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/lorehq/lore/internal/convo"
	"github.com/lorehq/lore/internal/embedder"
	"github.com/lorehq/lore/internal/history"
	"github.com/lorehq/lore/internal/ingestion"
	"github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/rag"
	"github.com/lorehq/lore/internal/server"
	"github.com/lorehq/lore/internal/tracing"
)

// NewServeCmd constructs the `lore serve` command, which starts the HTTP
// server exposing the ingestion and question-answering API.
func NewServeCmd() *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the Lore HTTP server",
		Long: `Start the Lore HTTP server on localhost.

The server exposes:
  POST   /api/query       ask a question within a session
  POST   /api/knowledge   upload a document (multipart, field "file")
  DELETE /api/knowledge   remove a document by its upload URL
  GET    /api/health      liveness probe
  GET    /api/ready       readiness probe (checks Qdrant/Redis)
  GET    /metrics         Prometheus metrics

Examples:
  lore serve
  lore serve --port 9090
  MODEL_PROVIDER=openai lore serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.New()
			ctx = logging.WithLogger(ctx, log)

			log.Info("serve starting", slog.String("provider", os.Getenv("MODEL_PROVIDER")))

			// Setup Langfuse tracing. Opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", slog.String("reason", "LANGFUSE_PUBLIC_KEY not set"))
			}

			if err := embedder.ValidateForRAG(log); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			embedderFor, err := embedder.FactoryFromEnv()
			if err != nil {
				return fmt.Errorf("serve: failed to initialise embedder: %w", err)
			}

			modelFor, providerCfg := buildModelFactory()
			if err := providerCfg.Validate(); err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			log.Info("provider initialised", slog.String("provider", string(providerCfg.Backend)))

			store, closeStore, err := buildVectorStore(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeStore()

			cat, err := buildCatalog(log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer func() { _ = cat.Close() }()

			sessions, closeSessions, err := buildHistory(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer closeSessions()

			blobs, err := buildBlobStore(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			pipeline, err := ingestion.New(embedderFor, store, cat, blobs, ingestion.Config{})
			if err != nil {
				return fmt.Errorf("serve: failed to create ingestion pipeline: %w", err)
			}

			orchestrator, err := convo.New(convo.Config{
				ModelFor:    modelFor,
				EmbedderFor: embedderFor,
				Store:       store,
				Catalog:     cat,
				History:     sessions,
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create orchestrator: %w", err)
			}

			// Readiness probes cover only the external dependencies actually
			// in use; in-memory fallbacks have nothing to probe.
			var pingers []server.Pinger
			if qs, isQdrant := store.(*rag.QdrantStore); isQdrant {
				pingers = append(pingers, server.NewDependencyPinger(qs, "qdrant"))
			}
			if rs, isRedis := sessions.(*history.RedisStore); isRedis {
				pingers = append(pingers, server.NewDependencyPinger(rs, "redis"))
			}

			srv, err := server.New(server.Deps{
				Answerer: orchestrator,
				Ingestor: pipeline,
				Deleter:  pipeline,
			}, &server.Config{
				Host:    host,
				Port:    port,
				Logger:  log,
				Pingers: pingers,
				APIKey:  os.Getenv("LORE_API_KEY"),
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")

	return cmd
}
