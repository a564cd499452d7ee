package provider

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	defaultOpenAIModel    = "gpt-4o-mini"
	defaultEmbeddingModel = "text-embedding-ada-002"
)

// OpenAICompleter implements the Completer interface against any
// OpenAI-compatible chat endpoint (OpenAI itself, DeepInfra, etc. — set
// baseURL to point elsewhere).
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a new OpenAICompleter.
// If model is empty, it defaults to gpt-4o-mini. If baseURL is non-empty,
// requests are sent to that endpoint instead of api.openai.com.
func NewOpenAICompleter(apiKey, model, baseURL string) *OpenAICompleter {
	if model == "" {
		model = defaultOpenAIModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompleter{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Complete sends a system+user prompt pair and returns the text completion.
func (o *OpenAICompleter) Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: userPrompt,
			},
		},
		MaxTokens: maxTokens,
	})
	if err != nil {
		// Check for rate limit errors
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == 429 {
				return "", fmt.Errorf("%w: %s", ErrRateLimit, err)
			}
			if apiErr.HTTPStatusCode == 408 || apiErr.HTTPStatusCode == 504 {
				return "", fmt.Errorf("%w: %s", ErrTimeout, err)
			}
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
		}
		return "", fmt.Errorf("openai completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in response", ErrInvalidResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// OpenAIEmbedder implements the Embedder interface using the OpenAI
// embeddings API (or a compatible endpoint).
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates a new OpenAIEmbedder.
// If model is empty, it defaults to text-embedding-ada-002 (1536 dims).
func NewOpenAIEmbedder(apiKey, model, baseURL string) *OpenAIEmbedder {
	if model == "" {
		model = defaultEmbeddingModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
	}
}

// Embed returns a vector embedding for the given text.
func (o *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: []string{text},
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == 429 {
			return nil, fmt.Errorf("%w: %s", ErrRateLimit, err)
		}
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %s", ErrTimeout, ctx.Err())
		}
		return nil, fmt.Errorf("openai embedding: %w", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("%w: no embedding in response", ErrInvalidResponse)
	}

	return resp.Data[0].Embedding, nil
}
