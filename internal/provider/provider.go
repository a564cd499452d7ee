package provider

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for provider operations.
var (
	ErrRateLimit       = errors.New("rate limit exceeded")
	ErrTimeout         = errors.New("request timed out")
	ErrInvalidResponse = errors.New("invalid response from provider")
)

// IsRetryable reports whether a failed provider call is worth retrying.
// Rate limits, timeouts and transport errors are transient; a response the
// provider produced but we could not use is permanent.
func IsRetryable(err error) bool {
	return !errors.Is(err, ErrInvalidResponse)
}

// Embedder generates vector embeddings from text.
type Embedder interface {
	// Embed returns a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Completer generates text completions from a system prompt and user input.
type Completer interface {
	// Complete returns a completion bounded by maxTokens.
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error)
}

// Config holds settings for creating an Embedder or Completer.
type Config struct {
	Type   string
	Model  string
	APIKey string
	URL    string
}

// NewEmbedder creates an Embedder from config. Supported types: "openai"
// (covers any OpenAI-compatible endpoint via URL) and "ollama".
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAIEmbedder(cfg.APIKey, cfg.Model, cfg.URL), nil
	case "ollama":
		return NewOllamaEmbedder(cfg.URL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider type %q", cfg.Type)
	}
}

// NewCompleter creates a Completer from config. Supported types: "openai"
// (covers any OpenAI-compatible endpoint via URL), "anthropic" and "ollama".
func NewCompleter(cfg Config) (Completer, error) {
	switch cfg.Type {
	case "openai", "":
		return NewOpenAICompleter(cfg.APIKey, cfg.Model, cfg.URL), nil
	case "anthropic":
		return NewAnthropicCompleter(cfg.APIKey, cfg.Model), nil
	case "ollama":
		return NewOllamaCompleter(cfg.URL, cfg.Model), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider type %q", cfg.Type)
	}
}
