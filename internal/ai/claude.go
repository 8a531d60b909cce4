package ai

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// ClaudeProvider implements the Provider interface using Anthropic's Claude
type ClaudeProvider struct {
	client   *anthropic.Client
	model    string
	maxWidth uint
}

// NewClaudeProvider creates a new Claude provider
func NewClaudeProvider(cfg Config) (*ClaudeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("UXSPEC_ANTHROPIC_KEY or ANTHROPIC_API_KEY required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL), option.WithMaxRetries(0))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = string(anthropic.ModelClaudeSonnet4_20250514)
	}

	return &ClaudeProvider{
		client:   &client,
		model:    model,
		maxWidth: cfg.MaxWidth,
	}, nil
}

// Analyze sends the screen description and screenshot to Claude
func (p *ClaudeProvider) Analyze(ctx context.Context, req *Request) (*Result, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return nil, err
	}
	image, err := screenshotBase64(req, p.maxWidth)
	if err != nil {
		return nil, err
	}

	var blocks []anthropic.ContentBlockParamUnion
	if image != "" {
		blocks = append(blocks, anthropic.NewImageBlockBase64("image/png", image))
	}
	blocks = append(blocks, anthropic.NewTextBlock(userPrompt))

	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 2048,
		System: []anthropic.TextBlockParam{
			{Text: systemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(blocks...),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("Claude API error: %w", err)
	}

	var responseText string
	for _, block := range resp.Content {
		if block.Type == "text" {
			responseText = block.Text
			break
		}
	}
	if responseText == "" {
		return nil, fmt.Errorf("empty response from Claude")
	}

	spec, err := parseSpecJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Claude response as JSON: %w\nResponse: %s", err, responseText)
	}

	return &Result{
		Provider: "claude",
		Model:    string(resp.Model),
		ID:       resp.ID,
		Spec:     spec,
		Text:     responseText,
	}, nil
}
