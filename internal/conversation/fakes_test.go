package conversation

import (
	"context"
	"errors"
	"time"

	"github.com/getmetherapy/mochat/internal/chatlog"
	"github.com/getmetherapy/mochat/internal/genai"
)

// fakeAdapter records prompts and plays back canned replies.
type fakeAdapter struct {
	reply   string
	err     error
	prompts []string
}

func (f *fakeAdapter) Generate(_ context.Context, req genai.Request) (genai.Response, error) {
	f.prompts = append(f.prompts, req.Prompt)
	if f.err != nil {
		return genai.Response{}, f.err
	}
	return genai.Response{Text: f.reply}, nil
}

func (f *fakeAdapter) calls() int { return len(f.prompts) }

func (f *fakeAdapter) lastPrompt() string {
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

var errStoreBroken = errors.New("store broken")

// brokenStore wraps the in-memory store and fails selected operations.
type brokenStore struct {
	*chatlog.InMemoryStore
	failAppend  bool
	failSummary bool
	failUpsert  bool
}

func (b *brokenStore) AppendTurns(ctx context.Context, turns []chatlog.Turn) error {
	if b.failAppend {
		return errStoreBroken
	}
	return b.InMemoryStore.AppendTurns(ctx, turns)
}

func (b *brokenStore) Summary(ctx context.Context, userID string) (*chatlog.UserSummary, error) {
	if b.failSummary {
		return nil, errStoreBroken
	}
	return b.InMemoryStore.Summary(ctx, userID)
}

func (b *brokenStore) UpsertSummary(ctx context.Context, userID, summary string, updatedAt time.Time) error {
	if b.failUpsert {
		return errStoreBroken
	}
	return b.InMemoryStore.UpsertSummary(ctx, userID, summary, updatedAt)
}

func seedTurns(store chatlog.Store, userID string, age time.Duration, messages ...string) error {
	now := time.Now().UTC()
	turns := make([]chatlog.Turn, 0, len(messages))
	for i, msg := range messages {
		sender := chatlog.SenderUser
		if i%2 == 1 {
			sender = chatlog.SenderBot
		}
		turns = append(turns, chatlog.Turn{
			UserID:    userID,
			Sender:    sender,
			Message:   msg,
			CreatedAt: now.Add(-age).Add(time.Duration(i) * time.Second),
		})
	}
	return store.AppendTurns(context.Background(), turns)
}
