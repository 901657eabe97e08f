package model

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// GeminiCaller implements Caller over the Google GenAI SDK.
type GeminiCaller struct {
	client *genai.Client
	model  string
}

// NewGeminiCaller creates a Gemini-backed caller.
func NewGeminiCaller(ctx context.Context, apiKey, modelName string) (*GeminiCaller, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.0-flash"
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}

	return &GeminiCaller{client: client, model: modelName}, nil
}

// Call sends the prompt and returns the response text with token usage.
func (g *GeminiCaller) Call(ctx context.Context, prompt string) (string, Usage, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", Usage{}, fmt.Errorf("model call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", Usage{}, fmt.Errorf("empty response from model")
	}

	var usage Usage
	if resp.UsageMetadata != nil {
		usage.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		usage.ResponseTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return text, usage, nil
}
