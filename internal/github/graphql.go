package github

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// postGraphQL sends a GraphQL query and returns the raw response body.
func (c *Client) postGraphQL(ctx context.Context, query string) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("marshaling graphql query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.graphqlURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting graphql query: %w", err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graphql response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github returned status %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

// escapeQuery makes a search string safe for embedding in a GraphQL document.
func escapeQuery(q string) string {
	return strings.ReplaceAll(q, `"`, `\"`)
}

// cursorArg renders an after: argument, null on the first page.
func cursorArg(cursor string) string {
	if cursor == "" {
		return "null"
	}
	return fmt.Sprintf("%q", cursor)
}

// pageInfo is the shared cursor envelope of paginated search responses.
type pageInfo struct {
	EndCursor   string `json:"endCursor"`
	HasNextPage bool   `json:"hasNextPage"`
}

// RateLimit reports the authenticated caller's GraphQL API quota.
type RateLimit struct {
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	Used      int    `json:"used"`
	ResetAt   string `json:"resetAt"`
}

const rateLimitQuery = `
	query {
		rateLimit {
			limit
			remaining
			used
			resetAt
		}
	}`

// GetRateLimit queries the remaining GraphQL API quota.
func (c *Client) GetRateLimit(ctx context.Context) (*RateLimit, error) {
	body, err := c.postGraphQL(ctx, rateLimitQuery)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			RateLimit *RateLimit `json:"rateLimit"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding rate limit response: %w", err)
	}
	if resp.Data.RateLimit == nil {
		return nil, fmt.Errorf("no rate limit data in response")
	}
	return resp.Data.RateLimit, nil
}
