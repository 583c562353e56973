package genai

import (
	"context"
	"strings"
)

// MockAdapter provides deterministic local replies when no model is configured.
type MockAdapter struct{}

func NewMockAdapter() *MockAdapter { return &MockAdapter{} }

func (a *MockAdapter) Generate(ctx context.Context, req Request) (Response, error) {
	select {
	case <-ctx.Done():
		return Response{}, ctx.Err()
	default:
	}
	return Response{Text: buildMockText(req.Prompt)}, nil
}

func buildMockText(prompt string) string {
	if strings.Contains(prompt, "Summary:") {
		return "They shared how their week has been going and we talked through what was weighing on them."
	}

	message := lastPromptLine(prompt, "Current message from user:")
	if message == "" {
		return "I'm here with you. What's on your mind?"
	}
	return "Thanks for telling me that. I hear you: " + message
}

func lastPromptLine(prompt, marker string) string {
	idx := strings.LastIndex(prompt, marker)
	if idx < 0 {
		return ""
	}
	rest := prompt[idx+len(marker):]
	if nl := strings.Index(rest, "\n"); nl >= 0 {
		rest = rest[:nl]
	}
	return strings.TrimSpace(rest)
}
