package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultHTTPTimeout = 60 * time.Second
	maxReplyTokens     = 4000
)

// chatMessage is the single-turn message shape both HTTP providers accept.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature float64       `json:"temperature"`
}

func newChatRequest(model, prompt string) chatRequest {
	return chatRequest{
		Model:     model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		MaxTokens: maxReplyTokens,
	}
}

// apiError is the error envelope shared by the Claude and OpenAI APIs.
type apiError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// postJSON sends body to endpoint and decodes a 200 reply into out. The
// provider name prefixes every error.
func postJSON(ctx context.Context, client *http.Client, provider, endpoint string, header http.Header, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	for k, vs := range header {
		req.Header[k] = vs
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", provider, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s response: %w", provider, err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s API error (status %d): %s", provider, resp.StatusCode, string(data))
	}

	var ae apiError
	if json.Unmarshal(data, &ae) == nil && ae.Error.Message != "" {
		return fmt.Errorf("%s API error: %s", provider, ae.Error.Message)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%s response: %w", provider, err)
	}
	return nil
}
