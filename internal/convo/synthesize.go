package convo

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/lorehq/lore/internal/budget"
	"github.com/lorehq/lore/internal/history"
	"github.com/lorehq/lore/internal/rag"
)

// defaultSystemPrompt keeps answers grounded in the retrieved chunks and
// keeps the model from free-associating when retrieval comes back thin.
const defaultSystemPrompt = "You are an assistant for question-answering tasks. " +
	"Use the following pieces of retrieved context to answer the question. " +
	"If you don't know the answer based on the context, say that you don't know. " +
	"Keep the answer concise."

// synthesize produces the final answer from the retrieved chunks, the
// session history, and the standalone question. History is trimmed
// oldest-first to fit the token budget; the system prompt, context block,
// and question are never trimmed.
func synthesize(ctx context.Context, chat ChatModel, systemPrompt string, chunks []rag.Chunk, turns []history.Turn, question string, maxTokens int) (string, error) {
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	if maxTokens <= 0 {
		maxTokens = budget.DefaultMaxContextTokens
	}

	fixed := []*schema.Message{
		schema.SystemMessage(systemPrompt + "\n\nContext:\n" + contextBlock(chunks)),
		schema.UserMessage(question),
	}
	trimmed := budget.TrimHistory(fixed, toMessages(turns), maxTokens)

	msgs := make([]*schema.Message, 0, 1+len(trimmed)+1)
	msgs = append(msgs, fixed[0])
	msgs = append(msgs, trimmed...)
	msgs = append(msgs, fixed[1])

	resp, err := chat.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("convo: generate answer: %w", err)
	}
	return resp.Content, nil
}

// contextBlock formats retrieved chunks for the system prompt. An empty
// retrieval still produces a block — the prompt tells the model to admit it
// doesn't know.
func contextBlock(chunks []rag.Chunk) string {
	if len(chunks) == 0 {
		return "(no relevant context found)"
	}
	parts := make([]string, len(chunks))
	for i, ch := range chunks {
		parts[i] = ch.Content
	}
	return strings.Join(parts, "\n\n")
}
