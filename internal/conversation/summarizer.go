package conversation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/getmetherapy/mochat/internal/chatlog"
	"github.com/getmetherapy/mochat/internal/genai"
	"github.com/getmetherapy/mochat/internal/observability"
)

// SummaryResult reports the outcome of one summarization attempt.
type SummaryResult struct {
	Skipped bool
	Reason  string
	Summary string
}

// Summarizer condenses the trailing window of a user's conversation into the
// rolling per-user summary. Repeated invocation within the same window
// re-derives and overwrites the same row rather than appending.
type Summarizer struct {
	store    chatlog.Store
	gen      genai.Adapter
	window   time.Duration
	minTurns int
	metrics  *observability.Metrics
}

func NewSummarizer(store chatlog.Store, gen genai.Adapter, window time.Duration, minTurns int, metrics *observability.Metrics) *Summarizer {
	if window <= 0 {
		window = time.Hour
	}
	if minTurns <= 0 {
		minTurns = 4
	}
	return &Summarizer{
		store:    store,
		gen:      gen,
		window:   window,
		minTurns: minTurns,
		metrics:  metrics,
	}
}

// Summarize fetches the trailing window and, when it holds enough turns,
// generates and upserts the rolling summary. Too little history is a
// skip, not an error.
func (s *Summarizer) Summarize(ctx context.Context, userID string) (SummaryResult, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return SummaryResult{}, ErrInvalidRequest
	}

	now := time.Now().UTC()
	turns, err := s.store.TurnsSince(ctx, userID, now.Add(-s.window))
	if err != nil {
		s.countResult("failed")
		return SummaryResult{}, fmt.Errorf("load trailing window: %w", err)
	}
	if len(turns) < s.minTurns {
		s.countResult("skipped")
		return SummaryResult{Skipped: true, Reason: "not enough to summarize"}, nil
	}

	resp, err := s.gen.Generate(ctx, genai.Request{Prompt: BuildSummaryPrompt(turns)})
	if err != nil {
		s.countResult("failed")
		return SummaryResult{}, fmt.Errorf("generate summary: %w", err)
	}
	summary := strings.TrimSpace(resp.Text)
	if summary == "" {
		s.countResult("failed")
		return SummaryResult{}, fmt.Errorf("generate summary: empty text")
	}

	if err := s.store.UpsertSummary(ctx, userID, summary, time.Now().UTC()); err != nil {
		s.countResult("failed")
		return SummaryResult{}, fmt.Errorf("upsert summary: %w", err)
	}

	s.countResult("generated")
	return SummaryResult{Summary: summary}, nil
}

func (s *Summarizer) countResult(result string) {
	if s.metrics != nil {
		s.metrics.Summaries.WithLabelValues(result).Inc()
	}
}
