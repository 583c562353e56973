package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getmetherapy/mochat/internal/chatlog"
	"github.com/getmetherapy/mochat/internal/genai"
	"github.com/getmetherapy/mochat/internal/observability"
)

var (
	// ErrInvalidRequest marks a missing or empty required field.
	ErrInvalidRequest = errors.New("message and userId are required")
	// ErrGenerationFailed marks a model-call failure.
	ErrGenerationFailed = errors.New("generation failed")
	// ErrStoreFailed marks a persistence failure. A reply computed but not
	// durably recorded still surfaces as this error: nothing is shown as
	// sent unless both turns landed.
	ErrStoreFailed = errors.New("store failed")
)

// Sampling is the fixed generation configuration applied to every chat reply.
type Sampling struct {
	MaxOutputTokens int
	Temperature     float64
}

// TurnHandler orchestrates classify, assemble, generate, and persist for a
// single incoming user message.
type TurnHandler struct {
	store      chatlog.Store
	gen        genai.Adapter
	classifier *Classifier
	sampling   Sampling
	metrics    *observability.Metrics
}

func NewTurnHandler(store chatlog.Store, gen genai.Adapter, classifier *Classifier, sampling Sampling, metrics *observability.Metrics) *TurnHandler {
	return &TurnHandler{
		store:      store,
		gen:        gen,
		classifier: classifier,
		sampling:   sampling,
		metrics:    metrics,
	}
}

// Handle processes one user message and returns the bot reply. On success
// exactly two turns are appended as one atomic pair; on any failure, none.
func (h *TurnHandler) Handle(ctx context.Context, userID, message string) (string, error) {
	userID = strings.TrimSpace(userID)
	message = strings.TrimSpace(message)
	if userID == "" || message == "" {
		return "", ErrInvalidRequest
	}

	now := time.Now().UTC()
	pc, err := h.classifier.Classify(ctx, userID, now)
	if err != nil {
		h.countFailure("classify")
		return "", fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	prompt := BuildPrompt(pc, message)

	start := time.Now()
	resp, err := h.gen.Generate(ctx, genai.Request{
		Prompt:          prompt,
		MaxOutputTokens: h.sampling.MaxOutputTokens,
		Temperature:     h.sampling.Temperature,
	})
	if err != nil {
		h.countFailure("generation")
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if h.metrics != nil {
		h.metrics.ObserveGenerationLatency(time.Since(start))
	}

	reply := strings.TrimSpace(resp.Text)
	if reply == "" {
		h.countFailure("generation")
		return "", fmt.Errorf("%w: empty reply", ErrGenerationFailed)
	}

	writtenAt := time.Now().UTC()
	pair := []chatlog.Turn{
		{UserID: userID, Sender: chatlog.SenderUser, Message: message, CreatedAt: writtenAt},
		{UserID: userID, Sender: chatlog.SenderBot, Message: reply, CreatedAt: writtenAt},
	}
	if err := h.store.AppendTurns(ctx, pair); err != nil {
		h.countFailure("store")
		return "", fmt.Errorf("%w: %v", ErrStoreFailed, err)
	}

	if h.metrics != nil {
		h.metrics.TurnsHandled.WithLabelValues(string(pc.State)).Inc()
	}
	return reply, nil
}

func (h *TurnHandler) countFailure(kind string) {
	if h.metrics != nil {
		h.metrics.TurnFailures.WithLabelValues(kind).Inc()
	}
}
