package github

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/bradleyfalzon/ghinstallation/v2"
	gogithub "github.com/google/go-github/v60/github"
)

const defaultGraphQLURL = "https://api.github.com/graphql"

const (
	// DefaultMaxPages caps how many search pages a single walk fetches.
	DefaultMaxPages = 10

	// DefaultPageSize is the number of nodes requested per search page.
	DefaultPageSize = 100
)

// Options configures a Client. Either Token or the App credentials
// (AppID, InstallationID and a private key) must be set.
type Options struct {
	Token string

	AppID          int64
	InstallationID int64
	PrivateKey     []byte
	PrivateKeyPath string

	// GraphQLURL overrides the GraphQL endpoint (used in tests).
	GraphQLURL string

	// RESTBaseURL overrides the REST API base URL (used in tests).
	RESTBaseURL string

	MaxPages int
	PageSize int
}

// Client talks to the GitHub search API (GraphQL) and the REST API.
type Client struct {
	graphqlURL string
	httpClient *http.Client
	rest       *gogithub.Client
	maxPages   int
	pageSize   int
}

// NewClient creates a GitHub client. When App credentials are present it
// authenticates as a GitHub App installation via ghinstallation, which
// manages JWT and installation token refresh; otherwise it sends the
// personal access token as a bearer header.
func NewClient(opts Options) (*Client, error) {
	var transport http.RoundTripper
	switch {
	case opts.AppID != 0:
		key, err := resolvePrivateKey(opts.PrivateKey, opts.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("resolving private key: %w", err)
		}
		transport, err = ghinstallation.New(http.DefaultTransport, opts.AppID, opts.InstallationID, key)
		if err != nil {
			return nil, fmt.Errorf("creating installation transport: %w", err)
		}
	case opts.Token != "":
		transport = &tokenTransport{token: opts.Token, base: http.DefaultTransport}
	default:
		return nil, fmt.Errorf("no credentials: set token or app_id/installation_id/private_key")
	}

	httpClient := &http.Client{Transport: transport}

	rest := gogithub.NewClient(httpClient)
	if opts.RESTBaseURL != "" {
		base, err := url.Parse(strings.TrimRight(opts.RESTBaseURL, "/") + "/")
		if err != nil {
			return nil, fmt.Errorf("parsing REST base URL: %w", err)
		}
		rest.BaseURL = base
	}

	graphqlURL := opts.GraphQLURL
	if graphqlURL == "" {
		graphqlURL = defaultGraphQLURL
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > 100 {
		pageSize = DefaultPageSize
	}

	return &Client{
		graphqlURL: graphqlURL,
		httpClient: httpClient,
		rest:       rest,
		maxPages:   maxPages,
		pageSize:   pageSize,
	}, nil
}

// tokenTransport adds a bearer token to every request.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	r := req.Clone(req.Context())
	r.Header.Set("Authorization", "Bearer "+t.token)
	return t.base.RoundTrip(r)
}

// resolvePrivateKey returns PEM-encoded private key bytes from either the
// provided raw/base64-encoded key or by reading from a file path.
func resolvePrivateKey(key []byte, keyPath string) ([]byte, error) {
	if len(key) > 0 {
		s := strings.TrimSpace(string(key))
		if strings.HasPrefix(s, "-----BEGIN") {
			return []byte(s), nil
		}
		// Try base64 decode
		decoded, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			// Try URL-safe base64
			decoded, err = base64.URLEncoding.DecodeString(s)
			if err != nil {
				return nil, fmt.Errorf("private key is neither PEM nor valid base64: %w", err)
			}
		}
		return decoded, nil
	}

	if keyPath != "" {
		data, err := os.ReadFile(keyPath)
		if err != nil {
			return nil, fmt.Errorf("reading private key file %s: %w", keyPath, err)
		}
		return data, nil
	}

	return nil, fmt.Errorf("no private key provided: set private_key or private_key_path")
}
