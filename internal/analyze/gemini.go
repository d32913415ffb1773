package analyze

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// geminiClient adapts the Gemini SDK to the Generator handle.
type geminiClient struct {
	client *genai.Client
}

var _ Generator = (*geminiClient)(nil)

// NewGeminiClient builds the production Generator on the Gemini API.
// The key comes from the caller (flag or GEMINI_API_KEY), never from
// package state.
func NewGeminiClient(ctx context.Context, apiKey string) (Generator, error) {
	if apiKey == "" {
		return nil, ErrNoAPIKey
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("creating analysis client: %w", err)
	}
	return &geminiClient{client: client}, nil
}

func (g *geminiClient) Generate(ctx context.Context, model, prompt string) (string, error) {
	res, err := g.client.Models.GenerateContent(ctx, model,
		[]*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}, nil)
	if err != nil {
		return "", err
	}
	return res.Text(), nil
}
