package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/lorehq/lore/internal/convo"
	"github.com/lorehq/lore/internal/ingestion"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 8080).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// MaxUploadBytes caps the size of document uploads (default: 25 MiB).
	MaxUploadBytes int64
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all protected /api/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics. If nil, the default
	// registry is used. Tests inject a fresh registry to stay hermetic.
	Registry *prometheus.Registry
}

// answerer is the interface handleQuery calls to answer a question.
// *convo.Orchestrator satisfies it; tests inject a fake.
type answerer interface {
	Answer(ctx context.Context, req convo.Request) (string, error)
}

// ingestor is the interface handleKnowledgeCreate calls to ingest a document.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type ingestor interface {
	Ingest(ctx context.Context, req ingestion.Request) (ingestion.Result, error)
}

// deleter is the interface handleKnowledgeDelete calls to remove a document.
// *ingestion.Pipeline satisfies it; tests inject a fake.
type deleter interface {
	Delete(ctx context.Context, url string) error
}

// Deps bundles the domain collaborators the server exposes over HTTP.
type Deps struct {
	// Answerer handles POST /api/query.
	Answerer answerer
	// Ingestor handles POST /api/knowledge.
	Ingestor ingestor
	// Deleter handles DELETE /api/knowledge.
	Deleter deleter
}

// Server is the HTTP server exposing the knowledge base API.
type Server struct {
	// deps holds the domain collaborators.
	deps Deps
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the server's Prometheus instruments.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/query.
type queryRequest struct {
	// Question is the user's natural-language question.
	Question string `json:"question"`
	// SessionID scopes the conversation history.
	SessionID string `json:"session_id"`
	// APIKey optionally overrides the configured model/embedding credentials
	// for this request only.
	APIKey string `json:"api_key,omitempty"`
}

// deleteRequest is the JSON body for DELETE /api/knowledge.
type deleteRequest struct {
	// URL is the blob locator returned when the document was uploaded.
	URL string `json:"url"`
	// APIKey is accepted for parity with the other endpoints; deletion does
	// not call any model.
	APIKey string `json:"api_key,omitempty"`
}

// messageResponse is the JSON body returned by every /api endpoint.
type messageResponse struct {
	// Message is the human-readable result: the answer, a confirmation, or
	// an error description.
	Message string `json:"message"`
	// URL is the blob locator of an uploaded document. Only set by
	// POST /api/knowledge.
	URL string `json:"url,omitempty"`
}
