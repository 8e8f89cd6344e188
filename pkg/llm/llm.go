package llm

import (
	"context"
	"errors"
)

// ErrEmptyResponse is returned when the service answers without any content.
var ErrEmptyResponse = errors.New("llm: empty response from model")

// LLM is the text-generation service: one prompt in, free text out.
type LLM interface {
	Chat(ctx context.Context, prompt string) (string, error)
	GetModel() string
}

// Func adapts a plain function to LLM.
type Func func(ctx context.Context, prompt string) (string, error)

func (f Func) Chat(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

func (f Func) GetModel() string {
	return "func"
}
