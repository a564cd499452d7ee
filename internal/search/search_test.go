package search

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jacklau/scout/internal/provider"
	"github.com/jacklau/scout/internal/vector"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(context.Context, string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vec, nil
}

type fakeIndex struct {
	hits      []vector.ScoredPoint
	err       error
	lastLimit int
}

func (f *fakeIndex) Search(_ context.Context, _ []float32, limit int) ([]vector.ScoredPoint, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return f.hits, nil
}

func issueHit(n int, score float32) vector.ScoredPoint {
	return vector.ScoredPoint{
		ID:    fmt.Sprintf("i%d", n),
		Score: score,
		Payload: vector.Payload{
			EntityID: fmt.Sprintf("https://github.com/o/r/issues/%d", n),
			Kind:     vector.KindIssue,
			Text:     fmt.Sprintf("issue %d", n),
		},
	}
}

func projectHit(n int, score float32) vector.ScoredPoint {
	return vector.ScoredPoint{
		ID:    fmt.Sprintf("p%d", n),
		Score: score,
		Payload: vector.Payload{
			EntityID: fmt.Sprintf("https://github.com/o/repo%d", n),
			Kind:     vector.KindProject,
			Text:     fmt.Sprintf("project %d", n),
		},
	}
}

func newTestSearcher(index Index) *Searcher {
	return NewSearcher(&fakeEmbedder{vec: []float32{0.1}}, index, Config{})
}

func TestHybridIssueIntentFillsFromIssues(t *testing.T) {
	// Six issues above the threshold and six high-scoring projects: an
	// issue-intent query must return only issues, best-first, capped at 5.
	scores := []float32{0.95, 0.91, 0.88, 0.85, 0.80, 0.77}
	var hits []vector.ScoredPoint
	for i, s := range scores {
		hits = append(hits, issueHit(i+1, s))
	}
	for i := 0; i < 6; i++ {
		hits = append(hits, projectHit(i+1, 0.99))
	}

	s := newTestSearcher(&fakeIndex{hits: hits})
	results, err := s.Hybrid(context.Background(), "open issue about crash")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	for i, want := range []string{"issues/1", "issues/2", "issues/3", "issues/4", "issues/5"} {
		if got := results[i].EntityID; got != "https://github.com/o/r/"+want {
			t.Errorf("result %d: got %s, want .../%s", i, got, want)
		}
	}
}

func TestHybridNoIntentDrainsProjectsThenIssues(t *testing.T) {
	// Two projects and four issues survive the threshold. A query with no
	// intent words takes all projects first, then fills with issues.
	hits := []vector.ScoredPoint{
		projectHit(1, 0.90),
		projectHit(2, 0.85),
		issueHit(1, 0.95),
		issueHit(2, 0.88),
		issueHit(3, 0.82),
		issueHit(4, 0.78),
	}

	s := newTestSearcher(&fakeIndex{hits: hits})
	results, err := s.Hybrid(context.Background(), "something broken")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}

	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if results[0].Kind != vector.KindProject || results[1].Kind != vector.KindProject {
		t.Errorf("expected projects first, got kinds %s %s", results[0].Kind, results[1].Kind)
	}
	if results[2].Kind != vector.KindIssue {
		t.Errorf("expected issues after projects, got %s", results[2].Kind)
	}
	// Both partitions are internally best-first.
	if results[0].Score < results[1].Score || results[2].Score < results[3].Score {
		t.Error("expected score-descending order within partitions")
	}
}

func TestHybridDropsAtOrBelowThreshold(t *testing.T) {
	hits := []vector.ScoredPoint{
		issueHit(1, 0.76),
		issueHit(2, 0.75), // at the threshold: dropped
		issueHit(3, 0.40),
	}

	s := newTestSearcher(&fakeIndex{hits: hits})
	results, err := s.Hybrid(context.Background(), "issue query")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result above 0.75, got %d", len(results))
	}
	if results[0].EntityID != "https://github.com/o/r/issues/1" {
		t.Errorf("unexpected survivor: %s", results[0].EntityID)
	}
}

func TestHybridIntentIsWholeWordAndCaseInsensitive(t *testing.T) {
	hits := []vector.ScoredPoint{
		projectHit(1, 0.90),
		issueHit(1, 0.95),
	}

	// "projection" must not trigger project intent: with no intent, the
	// combined drain still runs projects first.
	s := newTestSearcher(&fakeIndex{hits: hits})
	results, err := s.Hybrid(context.Background(), "projection issues")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if results[0].Kind != vector.KindProject {
		t.Errorf("expected no-intent ordering (projects first), got %s", results[0].Kind)
	}

	// Uppercase "PROJECT" does trigger intent.
	s = newTestSearcher(&fakeIndex{hits: hits})
	results, err = s.Hybrid(context.Background(), "best PROJECT for beginners")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if results[0].Kind != vector.KindProject {
		t.Errorf("expected project intent ordering, got %s", results[0].Kind)
	}
}

func TestHybridRequestsCandidateLimit(t *testing.T) {
	idx := &fakeIndex{}
	s := newTestSearcher(idx)
	if _, err := s.Hybrid(context.Background(), "q"); err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if idx.lastLimit != DefaultCandidateLimit {
		t.Errorf("expected candidate limit %d, got %d", DefaultCandidateLimit, idx.lastLimit)
	}
}

func TestHybridEmbedFailureIsFatal(t *testing.T) {
	embedErr := fmt.Errorf("%w: empty embedding", provider.ErrInvalidResponse)
	s := NewSearcher(&fakeEmbedder{err: embedErr}, &fakeIndex{}, Config{})
	if _, err := s.Hybrid(context.Background(), "q"); err == nil {
		t.Fatal("expected error when embedding fails")
	}
}

func TestHybridLegacyPointsClassifiedByURL(t *testing.T) {
	// Points written before kind tagging carry no kind; the URL shape
	// decides the partition.
	hits := []vector.ScoredPoint{
		{
			ID:    "legacy",
			Score: 0.9,
			Payload: vector.Payload{
				EntityID: "https://github.com/o/r/issues/9",
				Text:     "legacy issue",
			},
		},
	}
	s := newTestSearcher(&fakeIndex{hits: hits})
	results, err := s.Hybrid(context.Background(), "issue query")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if len(results) != 1 || results[0].Kind != vector.KindIssue {
		t.Errorf("expected legacy point classified as issue, got %+v", results)
	}
}

func TestPlainKeepsOnlyAboveThreshold(t *testing.T) {
	hits := []vector.ScoredPoint{
		issueHit(1, 0.95),
		projectHit(1, 0.80),
		issueHit(2, 0.79), // at the threshold: dropped
		issueHit(3, 0.50),
	}

	idx := &fakeIndex{hits: hits}
	s := newTestSearcher(idx)
	results, err := s.Plain(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Plain failed: %v", err)
	}
	if idx.lastLimit != DefaultResultLimit {
		t.Errorf("expected search limit %d, got %d", DefaultResultLimit, idx.lastLimit)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above 0.79, got %d", len(results))
	}
	if results[0].EntityID != "https://github.com/o/r/issues/1" {
		t.Errorf("unexpected first result: %s", results[0].EntityID)
	}
}

func TestThresholdComparisonStaysFloat32(t *testing.T) {
	// 0.79 has no exact binary representation: widening a float32 score
	// of 0.79 to float64 yields 0.79000002..., which lands above the
	// float64 threshold 0.79000000... and keeps a hit that must drop.
	// Both modes compare in float32 so at-threshold hits are dropped.
	atThreshold := []vector.ScoredPoint{issueHit(1, 0.79)}

	plain := newTestSearcher(&fakeIndex{hits: atThreshold})
	results, err := plain.Plain(context.Background(), "query")
	if err != nil {
		t.Fatalf("Plain failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("plain: score at threshold 0.79 must be dropped, got %d results", len(results))
	}

	hybrid := NewSearcher(&fakeEmbedder{vec: []float32{0.1}}, &fakeIndex{hits: atThreshold}, Config{HybridThreshold: 0.79})
	results, err = hybrid.Hybrid(context.Background(), "query")
	if err != nil {
		t.Fatalf("Hybrid failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("hybrid: score at threshold 0.79 must be dropped, got %d results", len(results))
	}
}

func TestPlainIndexErrorPropagates(t *testing.T) {
	s := newTestSearcher(&fakeIndex{err: errors.New("store down")})
	if _, err := s.Plain(context.Background(), "q"); err == nil {
		t.Fatal("expected error from index failure")
	}
}
