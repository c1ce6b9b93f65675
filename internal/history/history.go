// Package history stores per-session conversation transcripts. Each session
// is an append-only list of turns alternating between the user and the
// assistant; the pipeline reads it to contextualize follow-up questions.
package history

import "context"

// Role identifies the author of a turn.
type Role string

const (
	// RoleHuman marks a turn authored by the user.
	RoleHuman Role = "human"
	// RoleAI marks a turn authored by the assistant.
	RoleAI Role = "ai"
)

// Turn is one message in a session transcript.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Store persists session transcripts.
type Store interface {
	// Append adds a turn to the end of the session's transcript. A previously
	// unseen session id starts an empty transcript.
	Append(ctx context.Context, sessionID string, turn Turn) error

	// Turns returns the session's transcript in append order. An unknown
	// session yields an empty slice, not an error.
	Turns(ctx context.Context, sessionID string) ([]Turn, error)
}
