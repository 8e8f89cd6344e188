package llm

import (
	"context"
	"fmt"
	"strings"

	genai "google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.0-flash"

// Gemini talks to the Gemini API through the official genai client.
type Gemini struct {
	cli   *genai.Client
	model string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if model == "" {
		model = defaultGeminiModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Gemini{cli: cli, model: model}, nil
}

func (g *Gemini) Chat(ctx context.Context, prompt string) (string, error) {
	temp := float32(0)
	resp, err := g.cli.Models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Role: "user", Parts: []*genai.Part{{Text: prompt}}}},
		&genai.GenerateContentConfig{Temperature: &temp},
	)
	if err != nil {
		return "", fmt.Errorf("Gemini API error: %w", err)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrEmptyResponse
	}

	// A candidate without parts is the model saying it has nothing to report.
	var sb strings.Builder
	if content := resp.Candidates[0].Content; content != nil {
		for _, part := range content.Parts {
			if part != nil {
				sb.WriteString(part.Text)
			}
		}
	}
	return sb.String(), nil
}

// GetModel returns the model being used by this Gemini client
func (g *Gemini) GetModel() string {
	return g.model
}
