package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestOllamaEmbedder(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req ollamaEmbeddingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Prompt != "hello" {
			t.Errorf("expected prompt 'hello', got %q", req.Prompt)
		}
		json.NewEncoder(w).Encode(ollamaEmbeddingResponse{Embedding: []float64{0.1, 0.2, 0.3}})
	}))
	defer server.Close()

	e := NewOllamaEmbedder(server.URL, "nomic-embed-text")
	vec, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(vec) != 3 {
		t.Errorf("expected 3 dims, got %d", len(vec))
	}
}

func TestOllamaEmbedderEmptyText(t *testing.T) {
	e := NewOllamaEmbedder("http://localhost:1", "nomic-embed-text")
	if _, err := e.Embed(context.Background(), "   "); err == nil {
		t.Error("expected error for empty text")
	}
}

func TestOllamaCompleterSendsSystemPromptAndTokenBudget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.System != "you are a bot" {
			t.Errorf("expected system prompt forwarded, got %q", req.System)
		}
		if req.Options.NumPredict != 180 {
			t.Errorf("expected num_predict 180, got %d", req.Options.NumPredict)
		}
		json.NewEncoder(w).Encode(ollamaCompletionResponse{Response: "ok"})
	}))
	defer server.Close()

	c := NewOllamaCompleter(server.URL, "llama3.1:8b")
	out, err := c.Complete(context.Background(), "you are a bot", "summarize this", 180)
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if out != "ok" {
		t.Errorf("expected 'ok', got %q", out)
	}
}

func TestOllamaCompleterRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	c := NewOllamaCompleter(server.URL, "")
	_, err := c.Complete(context.Background(), "sys", "user", 100)
	if err == nil {
		t.Fatal("expected rate limit error")
	}
}

func TestNewEmbedderUnknownType(t *testing.T) {
	if _, err := NewEmbedder(Config{Type: "bogus"}); err == nil {
		t.Error("expected error for unknown embedder type")
	}
}

func TestNewCompleterUnknownType(t *testing.T) {
	if _, err := NewCompleter(Config{Type: "bogus"}); err == nil {
		t.Error("expected error for unknown completer type")
	}
}
