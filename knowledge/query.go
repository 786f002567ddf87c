package knowledge

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// Query returns the k records most similar to text, by cosine similarity.
// Results are ordered by descending score, ties by ascending id.
// k == 0 or an empty knowledge base returns no results without embedding
// the query. A blank query is core.ErrInvalidInput.
func (kb *KnowledgeBase) Query(ctx context.Context, text string, k int) ([]core.RetrievalMatch, error) {
	if k < 0 {
		return nil, fmt.Errorf("%w: k must not be negative, got %d", core.ErrInvalidParameter, k)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: query: %w", core.ErrInvalidInput, core.ErrEmptyContent)
	}
	records := kb.snapshot()
	if k == 0 || len(records) == 0 {
		return []core.RetrievalMatch{}, nil
	}
	k = min(k, len(records))

	vectors, err := kb.embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	query := vectors[0]

	var matches []core.RetrievalMatch
	if len(records) <= kb.parallelThreshold || kb.shards < 2 {
		matches = scan(query, records, k)
	} else {
		matches, err = kb.scanSharded(ctx, query, records, k)
		if err != nil {
			return nil, err
		}
	}

	kb.logger.Debug("knowledge query",
		"records", len(records),
		"k", k,
		"matches", len(matches))
	return matches, nil
}

// better reports whether a ranks ahead of b.
func better(a, b core.RetrievalMatch) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.RecordID < b.RecordID
}

func compareMatches(a, b core.RetrievalMatch) int {
	switch {
	case better(a, b):
		return -1
	case better(b, a):
		return 1
	}
	return 0
}

// scan ranks records against query, keeping the best k.
func scan(query []float32, records []*core.KnowledgeRecord, k int) []core.RetrievalMatch {
	best := make([]core.RetrievalMatch, 0, min(k, len(records))+1)
	for _, r := range records {
		m := core.RetrievalMatch{RecordID: r.ID, Score: ai.Dot(query, r.Embedding), Content: r.Text}
		if len(best) == k && !better(m, best[k-1]) {
			continue
		}
		i, _ := slices.BinarySearchFunc(best, m, compareMatches)
		best = slices.Insert(best, i, m)
		if len(best) > k {
			best = best[:k]
		}
	}
	return best
}

// scanSharded splits records into contiguous shards ranked in parallel,
// then merges the per-shard winners under the same order as scan.
func (kb *KnowledgeBase) scanSharded(ctx context.Context, query []float32, records []*core.KnowledgeRecord, k int) ([]core.RetrievalMatch, error) {
	shards := min(kb.shards, len(records))
	size := (len(records) + shards - 1) / shards
	results := make([][]core.RetrievalMatch, shards)

	g, gctx := errgroup.WithContext(ctx)
	for s := 0; s < shards; s++ {
		lo := s * size
		hi := min(lo+size, len(records))
		if lo >= hi {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[s] = scan(query, records[lo:hi], k)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := make([]core.RetrievalMatch, 0, shards*min(k, len(records)))
	for _, r := range results {
		merged = append(merged, r...)
	}
	slices.SortFunc(merged, compareMatches)
	if len(merged) > k {
		merged = merged[:k]
	}
	return merged, nil
}
