package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/lorehq/lore/internal/blob"
	"github.com/lorehq/lore/internal/catalog"
	"github.com/lorehq/lore/internal/convo"
	"github.com/lorehq/lore/internal/history"
	"github.com/lorehq/lore/internal/provider"
	"github.com/lorehq/lore/internal/rag"
)

// getEnvOrDefault returns the value of the environment variable or a default.
func getEnvOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// getEnvInt returns the integer value of the environment variable or a default.
func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// buildVectorStore connects to Qdrant when QDRANT_HOST is set, otherwise it
// falls back to an in-memory store for local development. The returned close
// func releases the underlying connection.
func buildVectorStore(log *slog.Logger) (rag.VectorStore, func(), error) {
	if os.Getenv("QDRANT_HOST") == "" {
		log.Warn("QDRANT_HOST not set, using in-memory vector store (contents are lost on exit)")
		return rag.NewMemoryStore(), func() {}, nil
	}

	store, err := rag.NewQdrantStore(&rag.QdrantConfig{
		Host:   os.Getenv("QDRANT_HOST"),
		Port:   getEnvInt("QDRANT_PORT", 6334),
		APIKey: os.Getenv("QDRANT_API_KEY"),
		UseTLS: os.Getenv("QDRANT_TLS") == "true",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Qdrant: %w", err)
	}
	log.Info("qdrant store ready",
		slog.String("host", os.Getenv("QDRANT_HOST")),
		slog.Int("port", getEnvInt("QDRANT_PORT", 6334)),
	)
	return store, func() { store.Close() }, nil
}

// buildCatalog opens the SQLite collection catalog. LORE_CATALOG_DB overrides
// the default path (~/.lore/catalog.db).
func buildCatalog(log *slog.Logger) (*catalog.Catalog, error) {
	path := os.Getenv("LORE_CATALOG_DB")
	if path == "" {
		var err error
		path, err = catalog.DefaultDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve catalog path: %w", err)
		}
	}
	cat, err := catalog.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	log.Info("catalog opened", slog.String("path", path))
	return cat, nil
}

// buildHistory connects to Redis when REDIS_ADDR is set, otherwise it falls
// back to an in-memory session store for local development.
func buildHistory(ctx context.Context, log *slog.Logger) (history.Store, func(), error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		log.Warn("REDIS_ADDR not set, using in-memory session history (lost on exit)")
		return history.NewMemoryStore(), func() {}, nil
	}

	store, err := history.NewRedisStore(ctx, history.RedisConfig{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       getEnvInt("REDIS_DB", 0),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to Redis at %s: %w", addr, err)
	}
	log.Info("redis history store ready", slog.String("addr", addr))
	return store, func() { _ = store.Close() }, nil
}

// buildBlobStore connects to the S3-compatible object store when
// BLOB_ENDPOINT is set, otherwise documents are kept under ~/.lore/blobs.
func buildBlobStore(ctx context.Context, log *slog.Logger) (blob.Store, error) {
	endpoint := os.Getenv("BLOB_ENDPOINT")
	if endpoint == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %w", err)
		}
		root := filepath.Join(home, ".lore", "blobs")
		store, err := blob.NewFSStore(root)
		if err != nil {
			return nil, fmt.Errorf("failed to open local blob store: %w", err)
		}
		log.Info("local blob store ready", slog.String("root", root))
		return store, nil
	}

	store, err := blob.NewMinioStore(ctx, blob.MinioConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("BLOB_ACCESS_KEY"),
		SecretKey: os.Getenv("BLOB_SECRET_KEY"),
		Bucket:    getEnvOrDefault("BLOB_BUCKET", "lore"),
		UseSSL:    os.Getenv("BLOB_SSL") == "true",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to blob store at %s: %w", endpoint, err)
	}
	log.Info("object blob store ready",
		slog.String("endpoint", endpoint),
		slog.String("bucket", getEnvOrDefault("BLOB_BUCKET", "lore")),
	)
	return store, nil
}

// buildModelFactory resolves the provider configuration once and returns a
// factory that builds a chat model per request, honouring the per-request
// credential override.
func buildModelFactory() (convo.ModelFactory, *provider.Config) {
	cfg := provider.ConfigFromEnv()
	factory := func(ctx context.Context, credential string) (convo.ChatModel, error) {
		return provider.NewWithCredential(ctx, cfg, credential)
	}
	return factory, cfg
}
