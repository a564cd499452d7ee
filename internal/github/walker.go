package github

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// timeLayout is the timestamp format stored for crawled records.
const timeLayout = "2006-01-02 15:04:05"

// descriptionLimit is the maximum number of characters of issue body text
// kept at crawl time.
const descriptionLimit = 240

// RepoData is a repository discovered by a repository search.
type RepoData struct {
	ProjectID    string
	Description  string
	Readme       string
	Stars        int64
	Logo         string
	MainLanguage string
}

// OpenIssue is an open issue discovered by an issue search.
type OpenIssue struct {
	IssueID     string
	ProjectID   string
	Title       string
	Creator     string
	Description string
}

// ClosedIssue records the close outcome of an issue.
type ClosedIssue struct {
	IssueID   string
	Assignees []string
	LinkedPR  string
}

// AssignedIssue records an assignment event on an issue.
type AssignedIssue struct {
	IssueID      string
	Assignee     string
	DateAssigned string
}

// MergedPull is a merged pull request discovered by a search.
type MergedPull struct {
	PullID    string
	Title     string
	Author    string
	ProjectID string
	MergedAt  string
}

// Participant is a user that commented on or reacted to a searched issue.
type Participant struct {
	Login     string
	AvatarURL string
	Email     string
}

// formatTimestamp converts an ISO 8601 timestamp to the stored layout in
// UTC. Unparseable input yields an empty string.
func formatTimestamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

// projectFromURL derives the repository URL from an issue or pull URL by
// dropping the last two path segments
// (https://github.com/o/r/issues/1 -> https://github.com/o/r).
func projectFromURL(u string) string {
	i := strings.LastIndex(u, "/")
	if i <= 0 {
		return ""
	}
	j := strings.LastIndex(u[:i], "/")
	if j <= 0 {
		return ""
	}
	return u[:j]
}

// truncateRunes limits s to at most n characters.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// SearchRepos finds repositories matching a search query. Repository
// search is a single page: the result set for the queries this tool runs
// fits in one request.
func (c *Client) SearchRepos(ctx context.Context, query string) ([]RepoData, error) {
	q := fmt.Sprintf(`
		query {
			search(query: "%s", type: REPOSITORY, first: %d) {
				repositoryCount
				nodes {
					... on Repository {
						url
						description
						stargazers {
							totalCount
						}
						owner {
							avatarUrl
						}
						primaryLanguage {
							name
						}
						readme: object(expression: "HEAD:README.md") {
							... on Blob {
								text
							}
						}
					}
				}
			}
		}`, escapeQuery(query), c.pageSize)

	body, err := c.postGraphQL(ctx, q)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Data struct {
			Search struct {
				Nodes []struct {
					URL         string `json:"url"`
					Description string `json:"description"`
					Stargazers  struct {
						TotalCount int64 `json:"totalCount"`
					} `json:"stargazers"`
					Owner struct {
						AvatarURL string `json:"avatarUrl"`
					} `json:"owner"`
					PrimaryLanguage struct {
						Name string `json:"name"`
					} `json:"primaryLanguage"`
					Readme struct {
						Text string `json:"text"`
					} `json:"readme"`
				} `json:"nodes"`
			} `json:"search"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding repository search response: %w", err)
	}

	repos := make([]RepoData, 0, len(resp.Data.Search.Nodes))
	for _, node := range resp.Data.Search.Nodes {
		if node.URL == "" {
			continue
		}
		repos = append(repos, RepoData{
			ProjectID:    node.URL,
			Description:  node.Description,
			Readme:       node.Readme.Text,
			Stars:        node.Stargazers.TotalCount,
			Logo:         node.Owner.AvatarURL,
			MainLanguage: node.PrimaryLanguage.Name,
		})
	}
	return repos, nil
}

// SearchOpenIssues walks the issue search for open issues, following the
// cursor until the result set is exhausted or the page cap is reached.
// Issue bodies are truncated to 240 characters at crawl time.
func (c *Client) SearchOpenIssues(ctx context.Context, query string) ([]OpenIssue, error) {
	var all []OpenIssue
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		q := fmt.Sprintf(`
			query {
				search(query: "%s", type: ISSUE, first: %d, after: %s) {
					issueCount
					nodes {
						... on Issue {
							title
							url
							body
							author {
								login
							}
						}
					}
					pageInfo {
						endCursor
						hasNextPage
					}
				}
			}`, escapeQuery(query), c.pageSize, cursorArg(cursor))

		body, err := c.postGraphQL(ctx, q)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Data struct {
				Search struct {
					Nodes []struct {
						Title  string `json:"title"`
						URL    string `json:"url"`
						Body   string `json:"body"`
						Author struct {
							Login string `json:"login"`
						} `json:"author"`
					} `json:"nodes"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"search"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding issue search response: %w", err)
		}

		for _, node := range resp.Data.Search.Nodes {
			if node.URL == "" {
				continue
			}
			all = append(all, OpenIssue{
				IssueID:     node.URL,
				ProjectID:   projectFromURL(node.URL),
				Title:       node.Title,
				Creator:     node.Author.Login,
				Description: truncateRunes(node.Body, descriptionLimit),
			})
		}

		if !resp.Data.Search.PageInfo.HasNextPage {
			break
		}
		cursor = resp.Data.Search.PageInfo.EndCursor
	}

	return all, nil
}

// SearchClosedIssues walks the issue search for closed issues, recording
// the assignees and the pull request that closed each one.
func (c *Client) SearchClosedIssues(ctx context.Context, query string) ([]ClosedIssue, error) {
	var all []ClosedIssue
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		q := fmt.Sprintf(`
			query {
				search(query: "%s", type: ISSUE, first: %d, after: %s) {
					issueCount
					nodes {
						... on Issue {
							url
							assignees(first: 5) {
								nodes {
									name
								}
							}
							timelineItems(first: 1, itemTypes: [CLOSED_EVENT]) {
								nodes {
									... on ClosedEvent {
										stateReason
										closer {
											... on PullRequest {
												url
											}
										}
									}
								}
							}
						}
					}
					pageInfo {
						endCursor
						hasNextPage
					}
				}
			}`, escapeQuery(query), c.pageSize, cursorArg(cursor))

		body, err := c.postGraphQL(ctx, q)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Data struct {
				Search struct {
					Nodes []struct {
						URL       string `json:"url"`
						Assignees struct {
							Nodes []struct {
								Name string `json:"name"`
							} `json:"nodes"`
						} `json:"assignees"`
						TimelineItems struct {
							Nodes []struct {
								Closer struct {
									URL string `json:"url"`
								} `json:"closer"`
							} `json:"nodes"`
						} `json:"timelineItems"`
					} `json:"nodes"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"search"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding closed issue search response: %w", err)
		}

		for _, node := range resp.Data.Search.Nodes {
			if node.URL == "" {
				continue
			}
			var assignees []string
			for _, a := range node.Assignees.Nodes {
				if a.Name != "" {
					assignees = append(assignees, a.Name)
				}
			}
			var linkedPR string
			for _, ev := range node.TimelineItems.Nodes {
				if ev.Closer.URL != "" {
					linkedPR = ev.Closer.URL
					break
				}
			}
			all = append(all, ClosedIssue{
				IssueID:   node.URL,
				Assignees: assignees,
				LinkedPR:  linkedPR,
			})
		}

		if !resp.Data.Search.PageInfo.HasNextPage {
			break
		}
		cursor = resp.Data.Search.PageInfo.EndCursor
	}

	return all, nil
}

// SearchAssignedIssues walks the issue search for issues with an assignment
// event, recording who was assigned and when.
func (c *Client) SearchAssignedIssues(ctx context.Context, query string) ([]AssignedIssue, error) {
	var all []AssignedIssue
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		q := fmt.Sprintf(`
			query {
				search(query: "%s", type: ISSUE, first: %d, after: %s) {
					issueCount
					nodes {
						... on Issue {
							url
							timelineItems(first: 1, itemTypes: [ASSIGNED_EVENT]) {
								nodes {
									... on AssignedEvent {
										assignee {
											... on User {
												login
											}
										}
										createdAt
									}
								}
							}
						}
					}
					pageInfo {
						endCursor
						hasNextPage
					}
				}
			}`, escapeQuery(query), c.pageSize, cursorArg(cursor))

		body, err := c.postGraphQL(ctx, q)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Data struct {
				Search struct {
					Nodes []struct {
						URL           string `json:"url"`
						TimelineItems struct {
							Nodes []struct {
								Assignee struct {
									Login string `json:"login"`
								} `json:"assignee"`
								CreatedAt string `json:"createdAt"`
							} `json:"nodes"`
						} `json:"timelineItems"`
					} `json:"nodes"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"search"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding assigned issue search response: %w", err)
		}

		for _, node := range resp.Data.Search.Nodes {
			if node.URL == "" {
				continue
			}
			for _, ev := range node.TimelineItems.Nodes {
				all = append(all, AssignedIssue{
					IssueID:      node.URL,
					Assignee:     ev.Assignee.Login,
					DateAssigned: formatTimestamp(ev.CreatedAt),
				})
			}
		}

		if !resp.Data.Search.PageInfo.HasNextPage {
			break
		}
		cursor = resp.Data.Search.PageInfo.EndCursor
	}

	return all, nil
}

// SearchPullRequests walks the issue search for merged pull requests.
func (c *Client) SearchPullRequests(ctx context.Context, query string) ([]MergedPull, error) {
	var all []MergedPull
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		q := fmt.Sprintf(`
			query {
				search(query: "%s", type: ISSUE, first: %d, after: %s) {
					issueCount
					nodes {
						... on PullRequest {
							title
							url
							author {
								login
							}
							mergedAt
						}
					}
					pageInfo {
						endCursor
						hasNextPage
					}
				}
			}`, escapeQuery(query), c.pageSize, cursorArg(cursor))

		body, err := c.postGraphQL(ctx, q)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Data struct {
				Search struct {
					Nodes []struct {
						Title  string `json:"title"`
						URL    string `json:"url"`
						Author struct {
							Login string `json:"login"`
						} `json:"author"`
						MergedAt string `json:"mergedAt"`
					} `json:"nodes"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"search"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding pull request search response: %w", err)
		}

		for _, node := range resp.Data.Search.Nodes {
			if node.URL == "" {
				continue
			}
			all = append(all, MergedPull{
				PullID:    node.URL,
				Title:     node.Title,
				Author:    node.Author.Login,
				ProjectID: projectFromURL(node.URL),
				MergedAt:  formatTimestamp(node.MergedAt),
			})
		}

		if !resp.Data.Search.PageInfo.HasNextPage {
			break
		}
		cursor = resp.Data.Search.PageInfo.EndCursor
	}

	return all, nil
}

// SearchParticipants walks the issue search and collects the users
// participating in the matched issues.
func (c *Client) SearchParticipants(ctx context.Context, query string) ([]Participant, error) {
	var all []Participant
	cursor := ""

	for page := 0; page < c.maxPages; page++ {
		q := fmt.Sprintf(`
			query {
				search(query: "%s", type: ISSUE, first: %d, after: %s) {
					issueCount
					nodes {
						... on Issue {
							participants(first: 10) {
								totalCount
								nodes {
									login
									avatarUrl
									email
								}
							}
						}
					}
					pageInfo {
						endCursor
						hasNextPage
					}
				}
			}`, escapeQuery(query), c.pageSize, cursorArg(cursor))

		body, err := c.postGraphQL(ctx, q)
		if err != nil {
			return nil, err
		}

		var resp struct {
			Data struct {
				Search struct {
					Nodes []struct {
						Participants struct {
							Nodes []struct {
								Login     string `json:"login"`
								AvatarURL string `json:"avatarUrl"`
								Email     string `json:"email"`
							} `json:"nodes"`
						} `json:"participants"`
					} `json:"nodes"`
					PageInfo pageInfo `json:"pageInfo"`
				} `json:"search"`
			} `json:"data"`
		}
		if err := json.Unmarshal(body, &resp); err != nil {
			return nil, fmt.Errorf("decoding participant search response: %w", err)
		}

		for _, node := range resp.Data.Search.Nodes {
			for _, p := range node.Participants.Nodes {
				if p.Login == "" {
					continue
				}
				all = append(all, Participant{
					Login:     p.Login,
					AvatarURL: p.AvatarURL,
					Email:     p.Email,
				})
			}
		}

		if !resp.Data.Search.PageInfo.HasNextPage {
			break
		}
		cursor = resp.Data.Search.PageInfo.EndCursor
	}

	return all, nil
}
