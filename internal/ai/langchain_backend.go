package ai

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
)

// LangChainBackend serves providers without a structured-outputs API
// (local Ollama models, Anthropic) through langchaingo. The response shape
// is pinned by the prompt instead of a server-side schema, so callers must
// still validate what comes back.
type LangChainBackend struct {
	llm llms.Model
}

// NewLangChainBackend creates a backend for the given provider.
// Supported providers: "ollama" (serverURL, model) and "anthropic" (apiKey, model).
func NewLangChainBackend(provider, serverURL, apiKey, model string) (*LangChainBackend, error) {
	var llm llms.Model
	var err error

	switch provider {
	case "ollama":
		llm, err = ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(serverURL),
		)
	case "anthropic":
		llm, err = anthropic.New(
			anthropic.WithToken(apiKey),
			anthropic.WithModel(model),
		)
	default:
		return nil, fmt.Errorf("unsupported llm provider: %q", provider)
	}
	if err != nil {
		return nil, fmt.Errorf("initialize %s backend: %w", provider, err)
	}

	return &LangChainBackend{llm: llm}, nil
}

// Complete sends the request as a system + user message pair and returns the
// first choice. Temperature is pinned to zero so identical inputs replay to
// identical outputs.
func (b *LangChainBackend) Complete(ctx context.Context, req Request) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, req.System),
		llms.TextParts(llms.ChatMessageTypeHuman, req.Prompt),
	}

	response, err := b.llm.GenerateContent(ctx, messages, llms.WithTemperature(0))
	if err != nil {
		return "", fmt.Errorf("llm request: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return response.Choices[0].Content, nil
}
