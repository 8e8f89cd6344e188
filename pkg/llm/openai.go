package llm

import (
	"context"
	"fmt"
	"net/http"
)

const (
	openAIEndpoint     = "https://api.openai.com/v1/chat/completions"
	openAIDefaultModel = "gpt-4o"
)

// OpenAI talks to the chat completions API.
type OpenAI struct {
	apiKey   string
	client   *http.Client
	model    string
	endpoint string
}

func NewOpenAI(apiKey string) *OpenAI {
	return NewOpenAIWithModel(apiKey, openAIDefaultModel)
}

func NewOpenAIWithModel(apiKey, model string) *OpenAI {
	return &OpenAI{
		apiKey:   apiKey,
		client:   &http.Client{Timeout: defaultHTTPTimeout},
		model:    model,
		endpoint: openAIEndpoint,
	}
}

func (o *OpenAI) Chat(ctx context.Context, prompt string) (string, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+o.apiKey)

	var resp struct {
		Choices []struct {
			Message chatMessage `json:"message"`
		} `json:"choices"`
	}
	if err := postJSON(ctx, o.client, "OpenAI", o.endpoint, header, newChatRequest(o.model, prompt), &resp); err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("OpenAI: %w", ErrEmptyResponse)
	}
	return resp.Choices[0].Message.Content, nil
}

// GetModel returns the model being used by this OpenAI client
func (o *OpenAI) GetModel() string {
	return o.model
}
