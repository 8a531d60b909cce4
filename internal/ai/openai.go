package ai

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIProvider implements the Provider interface using OpenAI
type OpenAIProvider struct {
	client   *openai.Client
	model    string
	maxWidth uint
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(cfg Config) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("UXSPEC_OPENAI_KEY or OPENAI_API_KEY required")
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	model := cfg.Model
	if model == "" {
		model = openai.GPT4o
	}

	return &OpenAIProvider{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		maxWidth: cfg.MaxWidth,
	}, nil
}

// Analyze sends the screen description and screenshot to OpenAI
func (p *OpenAIProvider) Analyze(ctx context.Context, req *Request) (*Result, error) {
	userPrompt, err := buildUserPrompt(req)
	if err != nil {
		return nil, err
	}
	image, err := screenshotBase64(req, p.maxWidth)
	if err != nil {
		return nil, err
	}

	parts := []openai.ChatMessagePart{
		{Type: openai.ChatMessagePartTypeText, Text: userPrompt},
	}
	if image != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{
				URL:    "data:image/png;base64," + image,
				Detail: openai.ImageURLDetailAuto,
			},
		})
	}

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:         openai.ChatMessageRoleUser,
				MultiContent: parts,
			},
		},
		MaxTokens: 2048,
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty response from OpenAI")
	}
	responseText := resp.Choices[0].Message.Content

	spec, err := parseSpecJSON(responseText)
	if err != nil {
		return nil, fmt.Errorf("failed to parse OpenAI response as JSON: %w\nResponse: %s", err, responseText)
	}

	return &Result{
		Provider: "openai",
		Model:    resp.Model,
		ID:       resp.ID,
		Spec:     spec,
		Text:     responseText,
	}, nil
}
