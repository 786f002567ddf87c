package knowledge

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/poiesic/medscribe/ai/local"
	"github.com/poiesic/medscribe/ai/mock"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tableEmbedder returns fixed vectors for known texts.
func tableEmbedder(dims int, table map[string][]float32) *mock.MockEmbedder {
	e := mock.NewMockEmbedderWithDimensions(dims)
	e.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		out := make([][]float32, len(texts))
		for i, t := range texts {
			v, ok := table[t]
			if !ok {
				return nil, fmt.Errorf("no vector for %q", t)
			}
			out[i] = v
		}
		return out, nil
	}
	return e
}

var medicalSnippets = []string{
	"Diabetes complications include neuropathy, retinopathy and kidney disease.",
	"Poorly controlled diabetes raises the risk of heart disease and stroke.",
	"Metformin is usually the first medicine prescribed for type 2 diabetes.",
	"Hypertension is often symptomless and is found during routine checks.",
	"Asthma causes wheezing, coughing and shortness of breath.",
	"Influenza spreads through respiratory droplets and peaks in winter.",
	"A persistent cough lasting more than three weeks should be investigated.",
	"Migraine headaches are often accompanied by nausea and sensitivity to light.",
}

func TestQuery_Bounds(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(8)
	kb, err := New(embedder)
	require.NoError(t, err)

	results, err := kb.Query(context.Background(), "anything", 3)
	require.NoError(t, err)
	assert.Empty(t, results, "empty knowledge base")
	assert.Zero(t, embedder.CallCount(), "empty knowledge base does not embed the query")

	_, err = kb.InsertBatch(context.Background(), []string{"one", "two"})
	require.NoError(t, err)
	embedder.Reset()

	_, err = kb.Query(context.Background(), "anything", -1)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)

	results, err = kb.Query(context.Background(), "anything", 0)
	require.NoError(t, err)
	assert.Empty(t, results)
	assert.Zero(t, embedder.CallCount(), "k == 0 does not embed the query")

	results, err = kb.Query(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Len(t, results, 2, "k larger than the base returns everything")

	_, err = kb.Query(context.Background(), "  ", 3)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestQuery_OrderAndTies(t *testing.T) {
	embedder := tableEmbedder(2, map[string][]float32{
		"first":  {1, 0},
		"second": {2, 0},
		"third":  {0, 3},
		"fourth": {1, 1},
		"query":  {5, 0},
	})
	kb, err := New(embedder)
	require.NoError(t, err)

	ids, err := kb.InsertBatch(context.Background(), []string{"third", "first", "fourth", "second"})
	require.NoError(t, err)
	assert.Equal(t, []core.ID{1, 2, 3, 4}, ids)

	results, err := kb.Query(context.Background(), "query", 4)
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.Equal(t, "first", results[0].Content, "equal scores rank by ascending id")
	assert.Equal(t, "second", results[1].Content)
	assert.Equal(t, "fourth", results[2].Content)
	assert.Equal(t, "third", results[3].Content)
	assert.InDelta(t, 1.0, results[0].Score, 1e-6)
	assert.InDelta(t, 1.0, results[1].Score, 1e-6)
	assert.InDelta(t, 0.7071, results[2].Score, 1e-4)
	assert.InDelta(t, 0.0, results[3].Score, 1e-6)

	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}
}

func TestInsert_DuplicateTextGetsTwoIDs(t *testing.T) {
	kb, err := New(local.NewHashEmbedder(64))
	require.NoError(t, err)

	a, err := kb.Insert(context.Background(), "Aspirin thins the blood.")
	require.NoError(t, err)
	b, err := kb.Insert(context.Background(), "Aspirin thins the blood.")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, kb.Len())

	results, err := kb.Query(context.Background(), "aspirin", 5)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, a, results[0].RecordID)
	assert.Equal(t, b, results[1].RecordID)
}

func TestInsert_Validation(t *testing.T) {
	kb, err := New(mock.NewMockEmbedderWithDimensions(4))
	require.NoError(t, err)

	_, err = kb.Insert(context.Background(), "   ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = kb.InsertBatch(context.Background(), []string{"ok", ""})
	assert.ErrorIs(t, err, core.ErrInvalidInput)
	assert.Zero(t, kb.Len(), "a rejected batch inserts nothing")
}

func TestInsert_DimensionMismatch(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return [][]float32{{1, 2, 3}}, nil
	}
	kb, err := New(embedder)
	require.NoError(t, err)

	_, err = kb.Insert(context.Background(), "text")
	var mismatch *core.DimensionMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, 4, mismatch.Expected)
	assert.Equal(t, 3, mismatch.Actual)
	assert.Zero(t, kb.Len())
}

func TestInsert_EmbedderFailure(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, core.ErrCapabilityUnavailable
	}
	kb, err := New(embedder)
	require.NoError(t, err)

	_, err = kb.Insert(context.Background(), "text")
	assert.ErrorIs(t, err, core.ErrCapabilityUnavailable)
}

func TestGet(t *testing.T) {
	kb, err := New(mock.NewMockEmbedderWithDimensions(4))
	require.NoError(t, err)
	ids, err := kb.InsertBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)

	record, err := kb.Get(ids[1])
	require.NoError(t, err)
	assert.Equal(t, "b", record.Text)
	assert.False(t, record.InsertedAt.IsZero())

	_, err = kb.Get(99)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestQuery_Deterministic(t *testing.T) {
	kb, err := New(local.NewHashEmbedder(384))
	require.NoError(t, err)
	_, err = kb.InsertBatch(context.Background(), medicalSnippets)
	require.NoError(t, err)

	first, err := kb.Query(context.Background(), "diabetes complications", 3)
	require.NoError(t, err)
	second, err := kb.Query(context.Background(), "diabetes complications", 3)
	require.NoError(t, err)

	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	assert.Contains(t, strings.ToLower(first[0].Content), "diabetes")
}

func TestQuery_ShardedMatchesBruteForce(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(16)
	texts := make([]string, 500)
	for i := range texts {
		// Every fifth text repeats so some scores tie.
		texts[i] = fmt.Sprintf("snippet %d", i%100)
	}

	brute, err := New(embedder)
	require.NoError(t, err)
	sharded, err := New(embedder, WithParallelThreshold(10), WithShards(7))
	require.NoError(t, err)

	_, err = brute.InsertBatch(context.Background(), texts)
	require.NoError(t, err)
	_, err = sharded.InsertBatch(context.Background(), texts)
	require.NoError(t, err)

	for _, k := range []int{1, 3, 17, 600} {
		want, err := brute.Query(context.Background(), "snippet 42", k)
		require.NoError(t, err)
		got, err := sharded.Query(context.Background(), "snippet 42", k)
		require.NoError(t, err)
		assert.Equal(t, want, got, "k=%d", k)
	}
}

func TestQuery_HugeK(t *testing.T) {
	tests := []struct {
		name string
		opts []Option
	}{
		{"sequential", nil},
		{"sharded", []Option{WithParallelThreshold(1), WithShards(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kb, err := New(local.NewHashEmbedder(64), tt.opts...)
			require.NoError(t, err)
			_, err = kb.InsertBatch(context.Background(), medicalSnippets[:3])
			require.NoError(t, err)

			results, err := kb.Query(context.Background(), "diabetes", math.MaxInt)
			require.NoError(t, err)
			assert.Len(t, results, 3)
		})
	}
}

func TestScanSharded_SameAsScan(t *testing.T) {
	kb, err := New(mock.NewMockEmbedderWithDimensions(8), WithShards(4))
	require.NoError(t, err)
	texts := make([]string, 103)
	for i := range texts {
		texts[i] = fmt.Sprintf("record %d", i%37)
	}
	_, err = kb.InsertBatch(context.Background(), texts)
	require.NoError(t, err)

	query, err := kb.embed(context.Background(), []string{"record 5"})
	require.NoError(t, err)
	records := kb.snapshot()

	got, err := kb.scanSharded(context.Background(), query[0], records, 10)
	require.NoError(t, err)
	assert.Equal(t, scan(query[0], records, 10), got)
}

func TestConcurrentInsertAndQuery(t *testing.T) {
	kb, err := New(local.NewHashEmbedder(64), WithParallelThreshold(16), WithShards(3))
	require.NoError(t, err)

	const writers, perWriter = 4, 25
	var wg sync.WaitGroup
	errs := make(chan error, writers*perWriter*2)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if _, err := kb.Insert(context.Background(), fmt.Sprintf("writer %d note %d about cough", w, i)); err != nil {
					errs <- err
				}
			}
		}()
	}
	for r := 0; r < writers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				results, err := kb.Query(context.Background(), "cough note", 5)
				if err != nil {
					errs <- err
					continue
				}
				for j := 1; j < len(results); j++ {
					if results[j].Score > results[j-1].Score {
						errs <- errors.New("results out of order")
					}
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	assert.Equal(t, writers*perWriter, kb.Len())
	records := kb.snapshot()
	for i := 1; i < len(records); i++ {
		assert.Less(t, records[i-1].ID, records[i].ID, "ids ascend with insertion order")
	}
}

func TestIndexDocument(t *testing.T) {
	kb, err := New(local.NewHashEmbedder(64), WithChunking(80, 20))
	require.NoError(t, err)

	doc := strings.Join(medicalSnippets, "\n\n")
	ids, err := kb.IndexDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Greater(t, len(ids), 1)
	assert.Equal(t, len(ids), kb.Len())

	for _, id := range ids {
		record, err := kb.Get(id)
		require.NoError(t, err)
		assert.LessOrEqual(t, len([]rune(record.Text)), 80)
	}

	_, err = kb.IndexDocument(context.Background(), " \n ")
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestOptions_Validation(t *testing.T) {
	embedder := mock.NewMockEmbedderWithDimensions(4)

	_, err := New(nil)
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = New(embedder, WithChunking(50, 50))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
	_, err = New(embedder, WithShards(0))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
	_, err = New(embedder, WithParallelThreshold(0))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
	_, err = New(mock.NewMockEmbedderWithDimensions(0))
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestOpen_ReloadsPersistedRecords(t *testing.T) {
	repo, reports, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	defer reports.Close()
	defer repo.Close()

	embedder := local.NewHashEmbedder(128)
	kb, err := Open(context.Background(), embedder, repo)
	require.NoError(t, err)
	ids, err := kb.InsertBatch(context.Background(), medicalSnippets)
	require.NoError(t, err)
	want, err := kb.Query(context.Background(), "diabetes complications", 3)
	require.NoError(t, err)

	reloaded, err := Open(context.Background(), embedder, repo)
	require.NoError(t, err)
	assert.Equal(t, len(medicalSnippets), reloaded.Len())

	got, err := reloaded.Query(context.Background(), "diabetes complications", 3)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	more, err := reloaded.Insert(context.Background(), "Insulin lowers blood sugar.")
	require.NoError(t, err)
	assert.Greater(t, more, ids[len(ids)-1])
}

func TestOpen_DimensionMismatch(t *testing.T) {
	repo, reports, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	defer reports.Close()
	defer repo.Close()

	kb, err := Open(context.Background(), local.NewHashEmbedder(32), repo)
	require.NoError(t, err)
	_, err = kb.Insert(context.Background(), "Cough")
	require.NoError(t, err)

	_, err = Open(context.Background(), local.NewHashEmbedder(64), repo)
	assert.ErrorIs(t, err, core.ErrDimensionMismatch)

	_, err = Open(context.Background(), local.NewHashEmbedder(64), nil)
	assert.ErrorIs(t, err, ErrRepositoryRequired)
}
