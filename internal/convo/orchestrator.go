package convo

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lorehq/lore/internal/catalog"
	"github.com/lorehq/lore/internal/embedder"
	"github.com/lorehq/lore/internal/history"
	"github.com/lorehq/lore/internal/logging"
	"github.com/lorehq/lore/internal/rag"
)

// Config wires the orchestrator's collaborators.
type Config struct {
	// ModelFor builds the chat model for one request.
	ModelFor ModelFactory
	// EmbedderFor builds the embedder for one request.
	EmbedderFor embedder.Factory
	// Store is the vector store holding all collections.
	Store rag.VectorStore
	// Catalog lists the known collections.
	Catalog *catalog.Catalog
	// History persists session transcripts.
	History history.Store
	// Refiner optionally overrides the collection shortlist policy.
	Refiner rag.Refiner
	// TopK is how many chunks retrieval returns (default 4).
	TopK int
	// SystemPrompt optionally replaces the built-in answering prompt.
	SystemPrompt string
	// MaxContextTokens caps the prompt size (default budget.DefaultMaxContextTokens).
	MaxContextTokens int
}

// Orchestrator runs the full question-answering pipeline.
type Orchestrator struct {
	cfg      Config
	selector *rag.Selector
}

// New constructs an Orchestrator from the given config.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.ModelFor == nil {
		return nil, fmt.Errorf("convo: model factory must not be nil")
	}
	if cfg.EmbedderFor == nil {
		return nil, fmt.Errorf("convo: embedder factory must not be nil")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("convo: vector store must not be nil")
	}
	if cfg.Catalog == nil {
		return nil, fmt.Errorf("convo: catalog must not be nil")
	}
	if cfg.History == nil {
		return nil, fmt.Errorf("convo: history store must not be nil")
	}
	if cfg.TopK <= 0 {
		cfg.TopK = 4
	}

	sel, err := rag.NewSelector(cfg.Store, cfg.Refiner)
	if err != nil {
		return nil, err
	}
	return &Orchestrator{cfg: cfg, selector: sel}, nil
}

// Answer runs one question through the pipeline: pick the most relevant
// collection, rewrite the question against the session history, retrieve
// grounding chunks, and generate the answer. The exchange is appended to the
// session transcript only after the answer exists, so a failed query leaves
// the history untouched.
//
// Returns rag.ErrNoCollections when nothing has been ingested yet — no model
// or embedding call is made in that case.
func (o *Orchestrator) Answer(ctx context.Context, req Request) (string, error) {
	log := logging.FromContext(ctx)

	cols, err := o.cfg.Catalog.Collections(ctx)
	if err != nil {
		return "", fmt.Errorf("convo: list collections: %w", err)
	}
	if len(cols) == 0 {
		return "", rag.ErrNoCollections
	}
	refs := make([]rag.CollectionRef, len(cols))
	for i, c := range cols {
		refs[i] = rag.CollectionRef{ID: c.ID, Name: c.Name}
	}

	emb := o.cfg.EmbedderFor(req.Credential)
	vectors, err := emb.Embed(ctx, []string{req.Question})
	if err != nil {
		return "", fmt.Errorf("convo: embed question: %w", err)
	}
	if len(vectors) == 0 {
		return "", fmt.Errorf("convo: embedder returned no vector for question")
	}

	chosen, err := o.selector.Select(ctx, vectors[0], refs)
	if err != nil {
		return "", err
	}
	log.Debug("collection selected",
		slog.String("collection", chosen.CollectionName),
		slog.String("session_id", req.SessionID),
	)

	turns, err := o.cfg.History.Turns(ctx, req.SessionID)
	if err != nil {
		return "", fmt.Errorf("convo: read session history: %w", err)
	}

	chat, err := o.cfg.ModelFor(ctx, req.Credential)
	if err != nil {
		return "", fmt.Errorf("convo: build chat model: %w", err)
	}

	standalone, err := contextualize(ctx, chat, turns, req.Question)
	if err != nil {
		return "", err
	}

	retriever, err := rag.NewRetriever(emb, o.cfg.Store, o.cfg.TopK)
	if err != nil {
		return "", err
	}
	chunks, err := retriever.Retrieve(ctx, chosen.CollectionName, standalone, o.cfg.TopK)
	if err != nil {
		return "", fmt.Errorf("convo: retrieve context: %w", err)
	}

	answer, err := synthesize(ctx, chat, o.cfg.SystemPrompt, chunks, turns, standalone, o.cfg.MaxContextTokens)
	if err != nil {
		return "", err
	}

	// The original question goes into history, not the rewritten one — the
	// transcript must read the way the user actually spoke. The answer turn
	// is only written when the human turn made it in: an unpaired AI turn
	// would corrupt the transcript for every later query in the session.
	if o.appendTurn(ctx, req.SessionID, history.Turn{Role: history.RoleHuman, Content: req.Question}) {
		o.appendTurn(ctx, req.SessionID, history.Turn{Role: history.RoleAI, Content: answer})
	}

	return answer, nil
}

// appendTurn records a turn, logging instead of failing — the user already
// has their answer by the time history is written. Reports whether the turn
// was stored.
func (o *Orchestrator) appendTurn(ctx context.Context, sessionID string, turn history.Turn) bool {
	if err := o.cfg.History.Append(ctx, sessionID, turn); err != nil {
		logging.FromContext(ctx).Warn("history append failed",
			slog.String("session_id", sessionID),
			slog.String("role", string(turn.Role)),
			slog.Any("error", err),
		)
		return false
	}
	return true
}
