package llm

import (
	"context"
	"fmt"
	"net/http"
)

const (
	claudeEndpoint     = "https://api.anthropic.com/v1/messages"
	claudeDefaultModel = "claude-sonnet-4-20250514"
	claudeAPIVersion   = "2023-06-01"
)

// Claude talks to the Anthropic messages API.
type Claude struct {
	apiKey   string
	client   *http.Client
	model    string
	endpoint string
}

func NewClaude(apiKey string) *Claude {
	return NewClaudeWithModel(apiKey, claudeDefaultModel)
}

func NewClaudeWithModel(apiKey, model string) *Claude {
	return &Claude{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		model:    model,
		endpoint: claudeEndpoint,
	}
}

func (c *Claude) Chat(ctx context.Context, prompt string) (string, error) {
	header := http.Header{}
	header.Set("x-api-key", c.apiKey)
	header.Set("anthropic-version", claudeAPIVersion)

	var resp struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := postJSON(ctx, c.client, "Claude", c.endpoint, header, newChatRequest(c.model, prompt), &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("Claude: %w", ErrEmptyResponse)
	}
	return resp.Content[0].Text, nil
}

// GetModel returns the model being used by this Claude client
func (c *Claude) GetModel() string {
	return c.model
}
