package badger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport(id string) *core.Report {
	return &core.Report{
		ID:        id,
		Entities:  []core.Entity{{Term: "cough", Type: core.EntitySymptom, Confidence: 1, Span: core.Span{Start: 0, End: 5}}},
		Summary:   core.Summary{Text: "cough", SourceLength: 1, SummaryLength: 1},
		Narrative: "Patient reports cough.",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
}

func TestReportRepository_PutGet(t *testing.T) {
	_, repo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	report := testReport("r-1")
	require.NoError(t, repo.PutReport(ctx, report))

	// Repeated reads return identical content
	first, err := repo.GetReport(ctx, "r-1")
	require.NoError(t, err)
	second, err := repo.GetReport(ctx, "r-1")
	require.NoError(t, err)
	assert.Equal(t, report, first)
	assert.Equal(t, first, second)
}

func TestReportRepository_InsertOnce(t *testing.T) {
	_, repo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, repo.PutReport(ctx, testReport("dup")))

	replacement := testReport("dup")
	replacement.Narrative = "changed"
	err = repo.PutReport(ctx, replacement)
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)

	got, err := repo.GetReport(ctx, "dup")
	require.NoError(t, err)
	assert.Equal(t, "Patient reports cough.", got.Narrative)
}

func TestReportRepository_ConcurrentInsertOnce(t *testing.T) {
	_, repo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	const writers = 8
	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- repo.PutReport(ctx, testReport("race"))
		}()
	}
	wg.Wait()
	close(errs)

	succeeded := 0
	for err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrDuplicateKey)
	}
	assert.Equal(t, 1, succeeded)
}

func TestReportRepository_NotFound(t *testing.T) {
	_, repo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()

	_, err = repo.GetReport(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestReportRepository_Closed(t *testing.T) {
	knowledgeRepo, repo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, repo.PutReport(ctx, testReport("r")))
	require.NoError(t, knowledgeRepo.Close())
	require.NoError(t, backend.Close())

	_, err = repo.GetReport(ctx, "r")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	assert.NotErrorIs(t, err, storage.ErrNotFound)
}

func TestReportRepository_Delete(t *testing.T) {
	_, repo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	require.NoError(t, repo.PutReport(ctx, testReport("gone")))
	require.NoError(t, repo.DeleteReport(ctx, "gone"))

	_, err = repo.GetReport(ctx, "gone")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, repo.DeleteReport(ctx, "gone"), storage.ErrNotFound)
}

func TestReportRepository_TTL(t *testing.T) {
	backend, err := OpenBackend("", true)
	require.NoError(t, err)
	defer backend.Close()
	ctx := context.Background()

	repo := NewReportRepository(backend, WithReportTTL(time.Second))
	require.NoError(t, repo.PutReport(ctx, testReport("short-lived")))

	_, err = repo.GetReport(ctx, "short-lived")
	require.NoError(t, err)

	// Badger expiry has one second granularity
	time.Sleep(2100 * time.Millisecond)

	_, err = repo.GetReport(ctx, "short-lived")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
