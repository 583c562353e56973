package conversation

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getmetherapy/mochat/internal/chatlog"
)

// Classifier decides which conversational state applies to a user at a given
// moment, from persisted history alone.
type Classifier struct {
	store  chatlog.Store
	window time.Duration
}

func NewClassifier(store chatlog.Store, window time.Duration) *Classifier {
	if window <= 0 {
		window = time.Hour
	}
	return &Classifier{store: store, window: window}
}

// Classify inspects the trailing window for the user. A non-empty window
// means the conversation is ongoing. An empty window falls back to an
// unbounded existence check: no history at all makes a new user, anything
// older makes a returning one — even when the gap only just exceeds the
// window.
func (c *Classifier) Classify(ctx context.Context, userID string, now time.Time) (PromptContext, error) {
	since := now.Add(-c.window)
	recent, err := c.store.TurnsSince(ctx, userID, since)
	if err != nil {
		return PromptContext{}, fmt.Errorf("load trailing window: %w", err)
	}
	if len(recent) > 0 {
		return PromptContext{State: StateOngoing, TrailingTurns: recent}, nil
	}

	exists, err := c.store.HasAnyTurn(ctx, userID)
	if err != nil {
		return PromptContext{}, fmt.Errorf("check history: %w", err)
	}
	if !exists {
		return PromptContext{State: StateNewUser}, nil
	}

	summary, err := c.store.Summary(ctx, userID)
	if err != nil {
		// A missing summary only costs personalization; the returning
		// greeting still works without it.
		log.Printf("summary lookup failed for returning user: %v", err)
		summary = nil
	}
	return PromptContext{State: StateReturning, PriorSummary: summary}, nil
}
