package github

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, serverURL string) *Client {
	t.Helper()
	c, err := NewClient(Options{
		Token:       "test-token",
		GraphQLURL:  serverURL,
		RESTBaseURL: serverURL,
	})
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}
	return c
}

func TestSearchOpenIssuesPaginationCap(t *testing.T) {
	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		// Every page claims there is another one; the walker must stop
		// at the page cap regardless.
		fmt.Fprintf(w, `{"data": {"search": {
			"nodes": [{"title": "issue %d", "url": "https://github.com/o/r/issues/%d", "body": "b", "author": {"login": "alice"}}],
			"pageInfo": {"endCursor": "c%d", "hasNextPage": true}
		}}}`, fetches, fetches, fetches)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	issues, err := c.SearchOpenIssues(context.Background(), "is:issue is:open")
	if err != nil {
		t.Fatalf("SearchOpenIssues failed: %v", err)
	}
	if fetches != DefaultMaxPages {
		t.Errorf("expected exactly %d page fetches, got %d", DefaultMaxPages, fetches)
	}
	if len(issues) != DefaultMaxPages {
		t.Errorf("expected %d issues (one per page), got %d", DefaultMaxPages, len(issues))
	}
	// Pages are concatenated in fetch order.
	if issues[0].IssueID != "https://github.com/o/r/issues/1" {
		t.Errorf("unexpected first issue: %s", issues[0].IssueID)
	}
	if issues[9].IssueID != "https://github.com/o/r/issues/10" {
		t.Errorf("unexpected last issue: %s", issues[9].IssueID)
	}
}

func TestSearchOpenIssuesStopsWhenExhausted(t *testing.T) {
	var fetches int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches++
		hasNext := fetches < 3
		fmt.Fprintf(w, `{"data": {"search": {
			"nodes": [{"title": "t", "url": "https://github.com/o/r/issues/%d", "body": "", "author": {"login": "bob"}}],
			"pageInfo": {"endCursor": "c%d", "hasNextPage": %t}
		}}}`, fetches, fetches, hasNext)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	issues, err := c.SearchOpenIssues(context.Background(), "is:issue")
	if err != nil {
		t.Fatalf("SearchOpenIssues failed: %v", err)
	}
	if fetches != 3 {
		t.Errorf("expected 3 fetches, got %d", fetches)
	}
	if len(issues) != 3 {
		t.Errorf("expected 3 issues, got %d", len(issues))
	}
}

func TestSearchOpenIssuesForwardsCursor(t *testing.T) {
	var cursors []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Query string `json:"query"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		switch {
		case strings.Contains(req.Query, "after: null"):
			cursors = append(cursors, "null")
		case strings.Contains(req.Query, `after: "page-1"`):
			cursors = append(cursors, "page-1")
		}
		hasNext := len(cursors) < 2
		fmt.Fprintf(w, `{"data": {"search": {
			"nodes": [],
			"pageInfo": {"endCursor": "page-%d", "hasNextPage": %t}
		}}}`, len(cursors), hasNext)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.SearchOpenIssues(context.Background(), "q"); err != nil {
		t.Fatalf("SearchOpenIssues failed: %v", err)
	}
	if len(cursors) != 2 || cursors[0] != "null" || cursors[1] != "page-1" {
		t.Errorf("expected cursor progression [null page-1], got %v", cursors)
	}
}

func TestSearchOpenIssuesTruncatesDescription(t *testing.T) {
	longBody := strings.Repeat("x", 500)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"data": {"search": {
			"nodes": [{"title": "t", "url": "https://github.com/o/r/issues/1", "body": "%s", "author": {"login": "a"}}],
			"pageInfo": {"endCursor": null, "hasNextPage": false}
		}}}`, longBody)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	issues, err := c.SearchOpenIssues(context.Background(), "q")
	if err != nil {
		t.Fatalf("SearchOpenIssues failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 issue, got %d", len(issues))
	}
	if got := len([]rune(issues[0].Description)); got != descriptionLimit {
		t.Errorf("expected description truncated to %d chars, got %d", descriptionLimit, got)
	}
	if issues[0].ProjectID != "https://github.com/o/r" {
		t.Errorf("unexpected project id: %s", issues[0].ProjectID)
	}
}

func TestSearchOpenIssuesDecodeFailureAborts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": not json`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	if _, err := c.SearchOpenIssues(context.Background(), "q"); err == nil {
		t.Fatal("expected decode error")
	}
}

func TestSearchRepos(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"search": {"nodes": [
			{"url": "https://github.com/o/r", "description": "a tool", "stargazers": {"totalCount": 42},
			 "owner": {"avatarUrl": "https://avatars.example/o"}, "primaryLanguage": {"name": "Go"},
			 "readme": {"text": "# readme"}},
			{"url": "https://github.com/o/bare"}
		]}}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	repos, err := c.SearchRepos(context.Background(), "language:go")
	if err != nil {
		t.Fatalf("SearchRepos failed: %v", err)
	}
	if len(repos) != 2 {
		t.Fatalf("expected 2 repos, got %d", len(repos))
	}
	first := repos[0]
	if first.ProjectID != "https://github.com/o/r" || first.Stars != 42 ||
		first.MainLanguage != "Go" || first.Readme != "# readme" {
		t.Errorf("unexpected repo data: %+v", first)
	}
	// Missing sub-objects decode to zero values rather than failing.
	if repos[1].Stars != 0 || repos[1].Readme != "" {
		t.Errorf("expected zero values for bare repo, got %+v", repos[1])
	}
}

func TestSearchClosedIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"search": {
			"nodes": [
				{"url": "https://github.com/o/r/issues/1",
				 "assignees": {"nodes": [{"name": "Alice"}, {"name": ""}]},
				 "timelineItems": {"nodes": [{"closer": {"url": "https://github.com/o/r/pull/9"}}]}},
				{"url": "https://github.com/o/r/issues/2",
				 "assignees": {"nodes": []},
				 "timelineItems": {"nodes": [{}]}}
			],
			"pageInfo": {"endCursor": null, "hasNextPage": false}
		}}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	issues, err := c.SearchClosedIssues(context.Background(), "is:issue is:closed")
	if err != nil {
		t.Fatalf("SearchClosedIssues failed: %v", err)
	}
	if len(issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(issues))
	}
	if len(issues[0].Assignees) != 1 || issues[0].Assignees[0] != "Alice" {
		t.Errorf("unexpected assignees: %v", issues[0].Assignees)
	}
	if issues[0].LinkedPR != "https://github.com/o/r/pull/9" {
		t.Errorf("unexpected linked PR: %s", issues[0].LinkedPR)
	}
	if issues[1].LinkedPR != "" || issues[1].Assignees != nil {
		t.Errorf("expected empty close data, got %+v", issues[1])
	}
}

func TestSearchAssignedIssues(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"search": {
			"nodes": [{"url": "https://github.com/o/r/issues/3",
				"timelineItems": {"nodes": [{"assignee": {"login": "carol"}, "createdAt": "2024-03-01T10:30:00Z"}]}}],
			"pageInfo": {"endCursor": null, "hasNextPage": false}
		}}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	issues, err := c.SearchAssignedIssues(context.Background(), "q")
	if err != nil {
		t.Fatalf("SearchAssignedIssues failed: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("expected 1 assignment, got %d", len(issues))
	}
	if issues[0].Assignee != "carol" {
		t.Errorf("unexpected assignee: %s", issues[0].Assignee)
	}
	if issues[0].DateAssigned != "2024-03-01 10:30:00" {
		t.Errorf("unexpected date: %s", issues[0].DateAssigned)
	}
}

func TestSearchPullRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"search": {
			"nodes": [{"title": "fix crash", "url": "https://github.com/o/r/pull/7",
				"author": {"login": "dave"}, "mergedAt": "2024-05-05T00:00:00Z"}],
			"pageInfo": {"endCursor": null, "hasNextPage": false}
		}}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	pulls, err := c.SearchPullRequests(context.Background(), "is:pr is:merged")
	if err != nil {
		t.Fatalf("SearchPullRequests failed: %v", err)
	}
	if len(pulls) != 1 {
		t.Fatalf("expected 1 pull, got %d", len(pulls))
	}
	p := pulls[0]
	if p.ProjectID != "https://github.com/o/r" {
		t.Errorf("unexpected project id: %s", p.ProjectID)
	}
	if p.MergedAt != "2024-05-05 00:00:00" {
		t.Errorf("unexpected merged_at: %s", p.MergedAt)
	}
}

func TestSearchParticipants(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"search": {
			"nodes": [{"participants": {"nodes": [
				{"login": "erin", "avatarUrl": "https://avatars.example/erin", "email": ""},
				{"login": "", "avatarUrl": "", "email": ""}
			]}}],
			"pageInfo": {"endCursor": null, "hasNextPage": false}
		}}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	users, err := c.SearchParticipants(context.Background(), "q")
	if err != nil {
		t.Fatalf("SearchParticipants failed: %v", err)
	}
	// Participants without a login are dropped.
	if len(users) != 1 || users[0].Login != "erin" {
		t.Errorf("unexpected participants: %+v", users)
	}
}

func TestGetRateLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data": {"rateLimit": {"limit": 5000, "remaining": 4990, "used": 10, "resetAt": "2024-01-01T00:00:00Z"}}}`)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)
	rl, err := c.GetRateLimit(context.Background())
	if err != nil {
		t.Fatalf("GetRateLimit failed: %v", err)
	}
	if rl.Remaining != 4990 || rl.Used != 10 {
		t.Errorf("unexpected rate limit: %+v", rl)
	}
}

func TestProjectFromURL(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"https://github.com/owner/repo/issues/42", "https://github.com/owner/repo"},
		{"https://github.com/owner/repo/pull/7", "https://github.com/owner/repo"},
		{"no-slashes", ""},
		{"one/segment", ""},
	}
	for _, tc := range cases {
		if got := projectFromURL(tc.in); got != tc.want {
			t.Errorf("projectFromURL(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	if got := formatTimestamp("2024-03-01T10:30:00Z"); got != "2024-03-01 10:30:00" {
		t.Errorf("unexpected timestamp: %s", got)
	}
	if got := formatTimestamp("garbage"); got != "" {
		t.Errorf("expected empty string for bad input, got %q", got)
	}
}

func TestNewClientRequiresCredentials(t *testing.T) {
	if _, err := NewClient(Options{}); err == nil {
		t.Fatal("expected error without credentials")
	}
}
