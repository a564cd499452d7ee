package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	gogithub "github.com/google/go-github/v60/github"
)

// IssueComment is a single comment fetched from an issue's thread.
type IssueComment struct {
	IssueID   string
	Creator   string
	CreatedAt string
	Body      string
}

// parseIssueURL extracts owner, repo and issue number from an issue URL
// like https://github.com/owner/repo/issues/123.
func parseIssueURL(issueURL string) (owner, repo string, number int, err error) {
	parts := strings.Split(strings.TrimRight(issueURL, "/"), "/")
	if len(parts) < 7 {
		return "", "", 0, fmt.Errorf("malformed issue URL %q", issueURL)
	}
	number, err = strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", "", 0, fmt.Errorf("malformed issue number in URL %q", issueURL)
	}
	return parts[3], parts[4], number, nil
}

// FetchComments retrieves all comments on the issue via the REST API,
// following pagination.
func (c *Client) FetchComments(ctx context.Context, issueURL string) ([]IssueComment, error) {
	owner, repo, number, err := parseIssueURL(issueURL)
	if err != nil {
		return nil, err
	}

	var all []IssueComment
	opts := &gogithub.IssueListCommentsOptions{
		ListOptions: gogithub.ListOptions{PerPage: c.pageSize},
	}

	for {
		comments, resp, err := c.rest.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing comments for %s: %w", issueURL, err)
		}

		for _, comment := range comments {
			ic := IssueComment{
				IssueID: issueURL,
				Body:    comment.GetBody(),
			}
			if u := comment.GetUser(); u != nil {
				ic.Creator = u.GetLogin()
			}
			if ts := comment.GetCreatedAt(); !ts.IsZero() {
				ic.CreatedAt = ts.UTC().Format(timeLayout)
			}
			all = append(all, ic)
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}
