// Package vector is a client for a qdrant-compatible vector store over its
// REST API. Points carry the entity id, a kind tag and the indexed text as
// payload so search results can be partitioned without a second lookup.
package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultQdrantURL = "http://localhost:6333"

// Payload is the metadata stored alongside each point.
type Payload struct {
	EntityID string `json:"entity_id"`
	Kind     string `json:"kind,omitempty"`
	Text     string `json:"text"`
}

// Point is a vector plus payload, identified by a UUID string.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// ScoredPoint is a search hit with its cosine similarity score.
type ScoredPoint struct {
	ID      string  `json:"id"`
	Score   float32 `json:"score"`
	Payload Payload `json:"payload"`
}

// CollectionInfo reports the state of a collection.
type CollectionInfo struct {
	PointsCount int64 `json:"points_count"`
}

// Client talks to one collection of a qdrant-compatible store.
type Client struct {
	baseURL    string
	collection string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a vector store client. If baseURL is empty, it
// defaults to http://localhost:6333.
func NewClient(baseURL, collection string) *Client {
	if baseURL == "" {
		baseURL = defaultQdrantURL
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		collection: collection,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// WithAPIKey sets the api-key header sent on every request and returns
// the client for chaining. An empty key leaves requests unauthenticated.
func (c *Client) WithAPIKey(key string) *Client {
	c.apiKey = key
	return c
}

// Collection returns the collection name this client operates on.
func (c *Client) Collection() string {
	return c.collection
}

// do sends a JSON request and decodes the qdrant response envelope's result
// field into out (when out is non-nil).
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("vector store request: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading vector store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	if out != nil {
		var envelope struct {
			Result json.RawMessage `json:"result"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("decoding vector store response: %w", err)
		}
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("decoding vector store result: %w", err)
		}
	}

	return nil
}

// statusError is a non-2xx reply from the store.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("vector store returned status %d: %s", e.code, e.body)
}

// EnsureCollection creates the collection with the given vector size and
// cosine distance. An already existing collection is not an error.
func (c *Client) EnsureCollection(ctx context.Context, dimensions int) error {
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimensions,
			"distance": "Cosine",
		},
	}
	err := c.do(ctx, http.MethodPut, "/collections/"+c.collection, body, nil)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && se.code == http.StatusConflict {
			return nil
		}
		return fmt.Errorf("creating collection %s: %w", c.collection, err)
	}
	return nil
}

// DropCollection deletes the collection and all its points.
func (c *Client) DropCollection(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/collections/"+c.collection, nil, nil); err != nil {
		return fmt.Errorf("deleting collection %s: %w", c.collection, err)
	}
	return nil
}

// Info returns the collection's point count.
func (c *Client) Info(ctx context.Context) (*CollectionInfo, error) {
	var info CollectionInfo
	if err := c.do(ctx, http.MethodGet, "/collections/"+c.collection, nil, &info); err != nil {
		return nil, fmt.Errorf("getting collection %s: %w", c.collection, err)
	}
	return &info, nil
}

// Upsert writes points into the collection. Existing point ids are
// overwritten.
func (c *Client) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	if err := c.do(ctx, http.MethodPut, "/collections/"+c.collection+"/points?wait=true", body, nil); err != nil {
		return fmt.Errorf("upserting %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the limit nearest points to the query vector, with
// payloads included.
func (c *Client) Search(ctx context.Context, queryVector []float32, limit int) ([]ScoredPoint, error) {
	body := map[string]any{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	var hits []ScoredPoint
	if err := c.do(ctx, http.MethodPost, "/collections/"+c.collection+"/points/search", body, &hits); err != nil {
		return nil, fmt.Errorf("searching collection %s: %w", c.collection, err)
	}
	return hits, nil
}
