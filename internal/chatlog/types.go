package chatlog

import (
	"context"
	"time"
)

// Sender identifies which side of the conversation wrote a turn.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Turn is a single persisted conversational message. Turns are append-only
// and never mutated after creation.
type Turn struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Sender    Sender    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// UserSummary is the rolling per-user conversation summary. At most one row
// exists per user; writes replace the previous value.
type UserSummary struct {
	UserID    string    `json:"user_id"`
	Summary   string    `json:"summary"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store persists conversation turns and rolling summaries.
type Store interface {
	// AppendTurns writes the given turns as one atomic unit: either every
	// turn is durably recorded or none is.
	AppendTurns(ctx context.Context, turns []Turn) error
	// TurnsSince returns the user's turns with CreatedAt >= since, in
	// ascending chronological order (insertion order breaks ties).
	TurnsSince(ctx context.Context, userID string, since time.Time) ([]Turn, error)
	// HasAnyTurn reports whether any turn was ever recorded for the user.
	HasAnyTurn(ctx context.Context, userID string) (bool, error)
	// Summary returns the user's rolling summary, or nil when none exists.
	Summary(ctx context.Context, userID string) (*UserSummary, error)
	// UpsertSummary inserts or replaces the user's rolling summary.
	UpsertSummary(ctx context.Context, userID, summary string, updatedAt time.Time) error
	Close() error
}
