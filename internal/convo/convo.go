// Package convo answers questions over the ingested knowledge base. Each
// question is routed to the single most relevant collection, rewritten into a
// standalone form when the session has history, grounded with retrieved
// chunks, and answered by the chat model.
package convo

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ChatModel is the subset of the eino chat model surface the pipeline needs.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// ModelFactory builds a ChatModel for one request. A non-empty credential
// replaces the configured API key for that model only; the process
// environment is never modified.
type ModelFactory func(ctx context.Context, credential string) (ChatModel, error)

// Request is one question within a session.
type Request struct {
	// SessionID scopes the conversation history. A new id starts a fresh
	// conversation.
	SessionID string
	// Question is the user's message.
	Question string
	// Credential optionally overrides the configured model and embedding
	// API keys for this request only.
	Credential string
}
