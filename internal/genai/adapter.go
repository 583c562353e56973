package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Request is one text-generation call. Zero-valued sampling fields defer to
// the provider defaults.
type Request struct {
	Prompt          string
	MaxOutputTokens int
	Temperature     float64
}

// Response is the generated text.
type Response struct {
	Text string
}

// Adapter bridges the chat runtime with a text-generation model.
type Adapter interface {
	Generate(ctx context.Context, req Request) (Response, error)
}

// Config controls adapter construction.
type Config struct {
	Mode    string
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

func NewAdapter(cfg Config) (Adapter, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Mode))
	if mode == "" {
		mode = "auto"
	}

	switch mode {
	case "auto":
		if strings.TrimSpace(cfg.APIKey) != "" {
			return NewGeminiAdapter(cfg), nil
		}
		return NewMockAdapter(), nil
	case "gemini":
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, errors.New("gemini API key is required for gemini mode")
		}
		return NewGeminiAdapter(cfg), nil
	case "mock":
		return NewMockAdapter(), nil
	default:
		return nil, fmt.Errorf("unsupported generation adapter mode %q", cfg.Mode)
	}
}
