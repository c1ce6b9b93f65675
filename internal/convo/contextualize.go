package convo

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"github.com/lorehq/lore/internal/history"
)

// contextualizePrompt instructs the model to rewrite a follow-up question
// into a standalone one. The model must not answer here — retrieval needs a
// self-contained query, not an answer.
const contextualizePrompt = "Given a chat history and the latest user question " +
	"which might reference context in the chat history, formulate a standalone " +
	"question which can be understood without the chat history. Do NOT answer " +
	"the question, just reformulate it if needed and otherwise return it as is."

// contextualize rewrites question into a standalone form using the session
// transcript. With no history the question is already standalone and the
// model is not called at all.
func contextualize(ctx context.Context, chat ChatModel, turns []history.Turn, question string) (string, error) {
	if len(turns) == 0 {
		return question, nil
	}

	msgs := make([]*schema.Message, 0, len(turns)+2)
	msgs = append(msgs, schema.SystemMessage(contextualizePrompt))
	msgs = append(msgs, toMessages(turns)...)
	msgs = append(msgs, schema.UserMessage(question))

	resp, err := chat.Generate(ctx, msgs)
	if err != nil {
		return "", fmt.Errorf("convo: contextualize question: %w", err)
	}
	if resp.Content == "" {
		// A silent model is not a reason to fail the whole query.
		return question, nil
	}
	return resp.Content, nil
}

// toMessages converts transcript turns into chat messages.
func toMessages(turns []history.Turn) []*schema.Message {
	msgs := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case history.RoleAI:
			msgs = append(msgs, schema.AssistantMessage(t.Content, nil))
		default:
			msgs = append(msgs, schema.UserMessage(t.Content))
		}
	}
	return msgs
}
