// Package summarize turns crawled issues and repositories into short
// summaries with keyword tags via an LLM. Inputs below the short-input
// threshold get a prompt tuned for scant detail and a tighter token
// budget; longer inputs are truncated before submission.
package summarize

import (
	"context"
	"fmt"
	"strings"

	"github.com/jacklau/scout/internal/provider"
)

const (
	// DefaultShortInputThreshold is the body length below which the
	// short-input prompt is used.
	DefaultShortInputThreshold = 200

	// DefaultLongInputMaxChars caps the user prompt for long inputs.
	DefaultLongInputMaxChars = 4000

	// DefaultShortMaxTokens bounds completions for short inputs.
	DefaultShortMaxTokens = 180

	// DefaultLongMaxTokens bounds completions for long inputs.
	DefaultLongMaxTokens = 250
)

// Issue is the summarizable view of a crawled issue.
type Issue struct {
	ID          string
	Title       string
	Description string
}

// Project is the summarizable view of a crawled repository.
type Project struct {
	ID           string
	Description  string
	Readme       string
	MainLanguage string
}

// Result is a generated summary with its keyword tags. A Result with an
// empty Summary and nil Keywords means the model reply could not be
// parsed; the entity is still considered processed.
type Result struct {
	Summary  string
	Keywords []string
}

// Config tunes the input routing and token budgets.
type Config struct {
	ShortInputThreshold int
	LongInputMaxChars   int
	ShortMaxTokens      int
	LongMaxTokens       int
}

// Generator produces summaries through a completion provider.
type Generator struct {
	completer provider.Completer
	cfg       Config
}

// NewGenerator creates a Generator. Zero config fields get defaults.
func NewGenerator(completer provider.Completer, cfg Config) *Generator {
	if cfg.ShortInputThreshold <= 0 {
		cfg.ShortInputThreshold = DefaultShortInputThreshold
	}
	if cfg.LongInputMaxChars <= 0 {
		cfg.LongInputMaxChars = DefaultLongInputMaxChars
	}
	if cfg.ShortMaxTokens <= 0 {
		cfg.ShortMaxTokens = DefaultShortMaxTokens
	}
	if cfg.LongMaxTokens <= 0 {
		cfg.LongMaxTokens = DefaultLongMaxTokens
	}
	return &Generator{completer: completer, cfg: cfg}
}

const issueSystemPromptLong = `Summarize the GitHub issue in one paragraph without mentioning the issue number. Highlight the key problem and any signature information provided. The summary should be concise, informative, and easy to understand, prioritizing clarity and brevity. Additionally, extract high-level keywords that represent broader categories or themes relevant to the issue's purpose, features, and tools used. These keywords should help categorize the issue in a wider context and should not be too literal or specific, avoiding overly long phrases unless absolutely necessary. Expected Output:
{ "summary": "the_summary_generated, a short paragraph summarizing the issue, including its purpose and features, without referencing the issue number.",
  "keywords": ["a list of high-level keywords that encapsulate the broader context, categories, or themes of the issue, excluding specific details and issue numbers."] }
Ensure you reply in RFC8259-compliant JSON format.`

const issueSystemPromptShort = `Given the limited information available, summarize the GitHub issue in one paragraph without mentioning the issue number. Highlight the key problem and any signature information that can be inferred. The summary should be concise, informative, and easy to understand, prioritizing clarity and brevity even with scant details. Additionally, extract high-level keywords that represent broader categories or themes relevant to the issue's inferred purpose, features, and tools used. These keywords should help categorize the issue in a wider context and should not be too literal or specific, avoiding overly long phrases unless absolutely necessary. Expected Output:
{ "summary": "The summary generated should be a concise paragraph that highlights any discernible purpose, technologies, or features from the limited information.",
  "keywords": ["A list of inferred high-level keywords that broadly categorize the issue based on the scant details available."] }
Ensure you reply in RFC8259-compliant JSON format.`

const projectSystemPromptLong = `Summarize the GitHub repository's README or description in one detailed paragraph, focusing solely on the essential aspects such as the project's purpose, technologies used, and notable features. Do not include non-essential elements like personal appeals or donation links. Extract high-level keywords that represent broader categories or themes relevant to the project. These keywords should categorize the project in a wider context and not be overly specific or literal. Expected Output:
{ "summary": "A comprehensive paragraph that succinctly summarizes the repository, highlighting its purpose, technologies, and key features, without including extraneous details.",
  "keywords": ["A list of high-level keywords that encapsulate the broader context, categories, or themes of the repository, focusing on essential aspects only."] }
Ensure your reply is in RFC8259-compliant JSON format.`

const projectSystemPromptShort = `When summarizing a GitHub repository's README or description, concentrate on the core content. Provide a concise paragraph that captures the primary purpose, technologies used, and notable features. Avoid mentioning non-essential elements such as donation links or personal appeals. Deduce and include high-level keywords that broadly categorize the repository, focusing on the technologies, functionality, and scope based on the available information. These keywords should reflect the main themes or categories relevant to the project. Expected Output:
{ "summary": "The summary generated should be a concise paragraph that highlights any discernible purpose, technologies, or features from the limited information.",
  "keywords": ["A list of inferred high-level keywords that broadly categorize the repository based on the scant details available."] }
Ensure you reply in RFC8259-compliant JSON format.`

// ownerRepo extracts owner and repo names from a GitHub URL. Either may
// be empty when the URL is not in the expected shape.
func ownerRepo(url string) (owner, repo string) {
	parts := strings.Split(url, "/")
	if len(parts) > 3 {
		owner = parts[3]
	}
	if len(parts) > 4 {
		repo = parts[4]
	}
	return owner, repo
}

// truncateRunes limits s to at most n characters.
func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// Issue summarizes a crawled issue. A completion failure is returned as an
// error; an unparseable completion yields an empty Result and no error.
func (g *Generator) Issue(ctx context.Context, in Issue) (Result, error) {
	owner, repo := ownerRepo(in.ID)

	var systemPrompt, userPrompt string
	var maxTokens int
	if len(in.Description) < g.cfg.ShortInputThreshold {
		systemPrompt = issueSystemPromptShort
		userPrompt = fmt.Sprintf(
			"Here is the input: `%s` at repository `%s` by owner `%s`, states: %s",
			in.Title, repo, owner, in.Description)
		maxTokens = g.cfg.ShortMaxTokens
	} else {
		systemPrompt = issueSystemPromptLong
		userPrompt = truncateRunes(fmt.Sprintf(
			"Here is the input: The issue titled `%s` at repository `%s` by owner `%s`, states in the body text: %s",
			in.Title, repo, owner, in.Description), g.cfg.LongInputMaxChars)
		maxTokens = g.cfg.LongMaxTokens
	}

	raw, err := g.completer.Complete(ctx, systemPrompt, userPrompt, maxTokens)
	if err != nil {
		return Result{}, fmt.Errorf("summarizing issue %s: %w", in.ID, err)
	}

	summary, keywords := ParseSummaryAndKeywords(raw)
	return Result{Summary: summary, Keywords: keywords}, nil
}

// Project summarizes a crawled repository. The readme length decides
// between the short and long prompt.
func (g *Generator) Project(ctx context.Context, in Project) (Result, error) {
	owner, repo := ownerRepo(in.ID)

	langStr := ""
	if in.MainLanguage != "" {
		langStr = fmt.Sprintf("mainly uses `%s` in the project", in.MainLanguage)
	}

	var systemPrompt, userPrompt string
	var maxTokens int
	if len(in.Readme) < g.cfg.ShortInputThreshold {
		readmeStr := ""
		if in.Readme != "" {
			readmeStr = fmt.Sprintf("states in readme: %s", in.Readme)
		}
		systemPrompt = projectSystemPromptShort
		userPrompt = fmt.Sprintf(
			"Here is the input: The repository `%s` by owner `%s` %s,`%s`, %s",
			repo, owner, langStr, in.Description, readmeStr)
		maxTokens = g.cfg.ShortMaxTokens
	} else {
		systemPrompt = projectSystemPromptLong
		userPrompt = truncateRunes(fmt.Sprintf(
			"Here is the input: The repository `%s` by owner `%s` %s, has a short text description: `%s`, mentioned more details in readme: `%s`",
			repo, owner, langStr, in.Description, in.Readme), g.cfg.LongInputMaxChars)
		maxTokens = g.cfg.LongMaxTokens
	}

	raw, err := g.completer.Complete(ctx, systemPrompt, userPrompt, maxTokens)
	if err != nil {
		return Result{}, fmt.Errorf("summarizing project %s: %w", in.ID, err)
	}

	summary, keywords := ParseSummaryAndKeywords(raw)
	return Result{Summary: summary, Keywords: keywords}, nil
}
