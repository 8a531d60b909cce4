package ai

import (
	"context"
	"fmt"

	"github.com/v0xg/uxspec/internal/scanner"
)

// Request is one screen to analyze. Screenshot is a PNG and may be nil.
type Request struct {
	Screen     *scanner.ScreenRecord
	Screenshot []byte
	// Objective is free text describing what the product is for
	Objective string
}

// Result is a provider's answer
type Result struct {
	Provider string         `json:"provider"`
	Model    string         `json:"model"`
	ID       string         `json:"id,omitempty"`
	Spec     map[string]any `json:"spec"`
	Text     string         `json:"-"`
}

// Provider defines the interface for vision analysis of a screen
type Provider interface {
	Analyze(ctx context.Context, req *Request) (*Result, error)
}

// Config selects and configures a provider
type Config struct {
	Name    string
	Model   string
	APIKey  string
	BaseURL string
	// MaxWidth bounds the screenshot width sent to the model, 0 means DefaultMaxWidth
	MaxWidth uint
}

// NewProvider creates a new AI provider based on the provider name
func NewProvider(cfg Config) (Provider, error) {
	switch cfg.Name {
	case "claude", "anthropic":
		return NewClaudeProvider(cfg)
	case "openai", "gpt":
		return NewOpenAIProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider: %s (supported: claude, openai)", cfg.Name)
	}
}
