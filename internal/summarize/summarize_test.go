package summarize

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// fakeCompleter records the last request and returns a canned reply.
type fakeCompleter struct {
	lastSystemPrompt string
	lastUserPrompt   string
	lastMaxTokens    int
	reply            string
	err              error
}

func (f *fakeCompleter) Complete(_ context.Context, systemPrompt, userPrompt string, maxTokens int) (string, error) {
	f.lastSystemPrompt = systemPrompt
	f.lastUserPrompt = userPrompt
	f.lastMaxTokens = maxTokens
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestIssueShortInputUsesShortPrompt(t *testing.T) {
	fake := &fakeCompleter{reply: `{"summary": "s", "keywords": ["k"]}`}
	g := NewGenerator(fake, Config{})

	// 199 characters: one below the threshold.
	_, err := g.Issue(context.Background(), Issue{
		ID:          "https://github.com/golang/go/issues/1",
		Title:       "crash on start",
		Description: strings.Repeat("a", 199),
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if fake.lastSystemPrompt != issueSystemPromptShort {
		t.Error("expected short-input prompt for 199-char body")
	}
	if fake.lastMaxTokens != DefaultShortMaxTokens {
		t.Errorf("expected %d max tokens, got %d", DefaultShortMaxTokens, fake.lastMaxTokens)
	}
	if !strings.Contains(fake.lastUserPrompt, "`go`") || !strings.Contains(fake.lastUserPrompt, "`golang`") {
		t.Errorf("expected owner and repo in user prompt: %s", fake.lastUserPrompt)
	}
}

func TestIssueLongInputUsesLongPrompt(t *testing.T) {
	fake := &fakeCompleter{reply: `{"summary": "s", "keywords": []}`}
	g := NewGenerator(fake, Config{})

	// Exactly at the threshold routes to the long prompt.
	_, err := g.Issue(context.Background(), Issue{
		ID:          "https://github.com/golang/go/issues/1",
		Title:       "crash on start",
		Description: strings.Repeat("a", 200),
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if fake.lastSystemPrompt != issueSystemPromptLong {
		t.Error("expected long-input prompt for 200-char body")
	}
	if fake.lastMaxTokens != DefaultLongMaxTokens {
		t.Errorf("expected %d max tokens, got %d", DefaultLongMaxTokens, fake.lastMaxTokens)
	}
}

func TestIssueLongInputTruncated(t *testing.T) {
	fake := &fakeCompleter{reply: `{"summary": "s", "keywords": []}`}
	g := NewGenerator(fake, Config{})

	_, err := g.Issue(context.Background(), Issue{
		ID:          "https://github.com/golang/go/issues/1",
		Title:       "t",
		Description: strings.Repeat("b", 5000),
	})
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if got := len([]rune(fake.lastUserPrompt)); got != DefaultLongInputMaxChars {
		t.Errorf("expected user prompt truncated to %d chars, got %d", DefaultLongInputMaxChars, got)
	}
}

func TestIssueCompletionError(t *testing.T) {
	fake := &fakeCompleter{err: errors.New("provider down")}
	g := NewGenerator(fake, Config{})

	_, err := g.Issue(context.Background(), Issue{ID: "https://github.com/o/r/issues/1"})
	if err == nil {
		t.Fatal("expected error from failed completion")
	}
}

func TestIssueUnparseableReplyIsNotAnError(t *testing.T) {
	fake := &fakeCompleter{reply: "Sorry, I can't help with that."}
	g := NewGenerator(fake, Config{})

	res, err := g.Issue(context.Background(), Issue{ID: "https://github.com/o/r/issues/1"})
	if err != nil {
		t.Fatalf("unparseable reply should not be an error: %v", err)
	}
	if res.Summary != "" || res.Keywords != nil {
		t.Errorf("expected empty result, got %+v", res)
	}
}

func TestProjectShortReadme(t *testing.T) {
	fake := &fakeCompleter{reply: `{"summary": "a db", "keywords": ["database"]}`}
	g := NewGenerator(fake, Config{})

	res, err := g.Project(context.Background(), Project{
		ID:           "https://github.com/o/r",
		Description:  "an embedded database",
		Readme:       "short readme",
		MainLanguage: "Go",
	})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if fake.lastSystemPrompt != projectSystemPromptShort {
		t.Error("expected short-input prompt for short readme")
	}
	if !strings.Contains(fake.lastUserPrompt, "mainly uses `Go` in the project") {
		t.Errorf("expected language mention in user prompt: %s", fake.lastUserPrompt)
	}
	if res.Summary != "a db" || len(res.Keywords) != 1 {
		t.Errorf("unexpected result: %+v", res)
	}
}

func TestProjectLongReadme(t *testing.T) {
	fake := &fakeCompleter{reply: `{"summary": "s", "keywords": []}`}
	g := NewGenerator(fake, Config{})

	_, err := g.Project(context.Background(), Project{
		ID:     "https://github.com/o/r",
		Readme: strings.Repeat("r", 300),
	})
	if err != nil {
		t.Fatalf("Project failed: %v", err)
	}
	if fake.lastSystemPrompt != projectSystemPromptLong {
		t.Error("expected long-input prompt for 300-char readme")
	}
}

func TestParseSummaryAndKeywords(t *testing.T) {
	cases := []struct {
		name     string
		raw      string
		summary  string
		keywords []string
	}{
		{
			name:     "plain json",
			raw:      `{"summary": "a summary", "keywords": ["k1", "k2"]}`,
			summary:  "a summary",
			keywords: []string{"k1", "k2"},
		},
		{
			name:     "fenced json",
			raw:      "```json\n{\"summary\": \"fenced\", \"keywords\": [\"x\"]}\n```",
			summary:  "fenced",
			keywords: []string{"x"},
		},
		{
			name:     "untagged fence",
			raw:      "```\n{\"summary\": \"plain fence\", \"keywords\": []}\n```",
			summary:  "plain fence",
			keywords: []string{},
		},
		{
			name:    "malformed",
			raw:     "not json at all",
			summary: "",
		},
		{
			name:    "wrong types",
			raw:     `{"summary": 42, "keywords": "oops"}`,
			summary: "",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			summary, keywords := ParseSummaryAndKeywords(tc.raw)
			if summary != tc.summary {
				t.Errorf("summary = %q, want %q", summary, tc.summary)
			}
			if len(keywords) != len(tc.keywords) {
				t.Fatalf("keywords = %v, want %v", keywords, tc.keywords)
			}
			for i := range keywords {
				if keywords[i] != tc.keywords[i] {
					t.Errorf("keywords[%d] = %q, want %q", i, keywords[i], tc.keywords[i])
				}
			}
		})
	}
}
