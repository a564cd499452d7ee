// Package search answers natural-language queries against the vector
// index. The hybrid ranker partitions candidates into issues and projects,
// reads the asker's intent from the query wording, and drains the
// partitions best-first until the result cap is reached.
package search

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/jacklau/scout/internal/provider"
	"github.com/jacklau/scout/internal/retry"
	"github.com/jacklau/scout/internal/vector"
)

const (
	// DefaultHybridThreshold drops hybrid candidates scoring at or below it.
	DefaultHybridThreshold = 0.75

	// DefaultPlainThreshold keeps plain-search hits scoring above it.
	DefaultPlainThreshold = 0.79

	// DefaultCandidateLimit is how many nearest points the hybrid ranker
	// considers.
	DefaultCandidateLimit = 10

	// DefaultResultLimit caps how many results a search returns.
	DefaultResultLimit = 5

	// embedAttempts is how often a failed query embedding is retried.
	embedAttempts = 3
)

// Whole-word intent markers, matched case-insensitively.
var (
	projectRe = regexp.MustCompile(`\bproject\b`)
	issueRe   = regexp.MustCompile(`\bissue\b`)
)

// Index is the searchable subset of the vector store client.
type Index interface {
	Search(ctx context.Context, queryVector []float32, limit int) ([]vector.ScoredPoint, error)
}

// Result is a ranked search hit.
type Result struct {
	EntityID string  `json:"entity_id"`
	Text     string  `json:"text"`
	Score    float32 `json:"score"`
	Kind     string  `json:"kind"`
}

// Config tunes thresholds and result caps.
type Config struct {
	HybridThreshold float64
	PlainThreshold  float64
	CandidateLimit  int
	ResultLimit     int
}

// Searcher runs vector searches over summarized entities.
type Searcher struct {
	embedder provider.Embedder
	index    Index
	cfg      Config
}

// NewSearcher creates a Searcher. Zero config fields get defaults.
func NewSearcher(embedder provider.Embedder, index Index, cfg Config) *Searcher {
	if cfg.HybridThreshold <= 0 {
		cfg.HybridThreshold = DefaultHybridThreshold
	}
	if cfg.PlainThreshold <= 0 {
		cfg.PlainThreshold = DefaultPlainThreshold
	}
	if cfg.CandidateLimit <= 0 {
		cfg.CandidateLimit = DefaultCandidateLimit
	}
	if cfg.ResultLimit <= 0 {
		cfg.ResultLimit = DefaultResultLimit
	}
	return &Searcher{embedder: embedder, index: index, cfg: cfg}
}

// embedQuestion embeds the query text, retrying transient failures. A
// query that cannot be embedded fails the whole search.
func (s *Searcher) embedQuestion(ctx context.Context, question string) ([]float32, error) {
	var vec []float32
	err := retry.DoIf(ctx, embedAttempts, func() error {
		var embedErr error
		vec, embedErr = s.embedder.Embed(ctx, question)
		return embedErr
	}, provider.IsRetryable)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}
	return vec, nil
}

// Hybrid runs the intent-aware ranked search. Candidates scoring at or
// below the hybrid threshold are dropped; the survivors are partitioned by
// kind and drained in up to three phases: the wanted kind(s) first, then
// both partitions if the result cap is still not met.
func (s *Searcher) Hybrid(ctx context.Context, question string) ([]Result, error) {
	lower := strings.ToLower(question)
	wantProject := projectRe.MatchString(lower)
	wantIssue := issueRe.MatchString(lower)

	queryVector, err := s.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, queryVector, s.cfg.CandidateLimit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var projects, issues []Result
	for _, hit := range hits {
		// Compare in float32: scores arrive as float32, and widening
		// them would move at-threshold values past thresholds that are
		// not exactly representable (0.79, 0.8, ...).
		if hit.Score <= float32(s.cfg.HybridThreshold) {
			continue
		}
		r := Result{
			EntityID: hit.Payload.EntityID,
			Text:     hit.Payload.Text,
			Score:    hit.Score,
			Kind:     vector.PointKind(hit.Payload),
		}
		if r.Kind == vector.KindIssue {
			issues = append(issues, r)
		} else {
			projects = append(projects, r)
		}
	}

	sortByScore(projects)
	sortByScore(issues)

	results := make([]Result, 0, s.cfg.ResultLimit)
	if wantProject {
		results = drain(results, &projects, s.cfg.ResultLimit)
	}
	if wantIssue && len(results) < s.cfg.ResultLimit {
		results = drain(results, &issues, s.cfg.ResultLimit)
	}
	if len(results) < s.cfg.ResultLimit {
		results = drain(results, &projects, s.cfg.ResultLimit)
		results = drain(results, &issues, s.cfg.ResultLimit)
	}

	return results, nil
}

// Plain runs an intent-free search: the top results above the plain
// threshold, in score order.
func (s *Searcher) Plain(ctx context.Context, question string) ([]Result, error) {
	queryVector, err := s.embedQuestion(ctx, question)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, queryVector, s.cfg.ResultLimit)
	if err != nil {
		return nil, fmt.Errorf("searching index: %w", err)
	}

	var results []Result
	for _, hit := range hits {
		if hit.Score <= float32(s.cfg.PlainThreshold) {
			continue
		}
		results = append(results, Result{
			EntityID: hit.Payload.EntityID,
			Text:     hit.Payload.Text,
			Score:    hit.Score,
			Kind:     vector.PointKind(hit.Payload),
		})
	}
	return results, nil
}

// sortByScore orders results best-first.
func sortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// drain moves results from src into dst until dst reaches limit or src is
// exhausted. Src is consumed front-first, so it must already be sorted.
func drain(dst []Result, src *[]Result, limit int) []Result {
	for len(dst) < limit && len(*src) > 0 {
		dst = append(dst, (*src)[0])
		*src = (*src)[1:]
	}
	return dst
}
