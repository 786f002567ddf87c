package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupKnowledgeRepo(t *testing.T) *KnowledgeRepository {
	t.Helper()
	knowledgeRepo, reportRepo, backend, err := NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		reportRepo.Close()
		knowledgeRepo.Close()
		backend.Close()
	})
	return knowledgeRepo
}

func TestAddKnowledgeRecords(t *testing.T) {
	repo := setupKnowledgeRepo(t)
	ctx := context.Background()

	records := []*core.KnowledgeRecord{
		{Text: "Hypertension is persistently elevated blood pressure.", Embedding: []float32{1, 0}},
		{Text: "Asthma causes wheezing and shortness of breath.", Embedding: []float32{0, 1}},
	}

	added, err := repo.AddKnowledgeRecords(ctx, records...)
	require.NoError(t, err)
	require.Len(t, added, 2)

	assert.NotZero(t, added[0].ID)
	assert.Greater(t, added[1].ID, added[0].ID, "IDs follow argument order")
	assert.False(t, added[0].InsertedAt.IsZero())

	got, err := repo.GetKnowledgeRecord(ctx, added[1].ID)
	require.NoError(t, err)
	assert.Equal(t, records[1].Text, got.Text)
	assert.Equal(t, records[1].Embedding, got.Embedding)
}

func TestAddKnowledgeRecords_KeepsExplicitFields(t *testing.T) {
	repo := setupKnowledgeRepo(t)
	ctx := context.Background()
	inserted := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := repo.AddKnowledgeRecords(ctx, &core.KnowledgeRecord{
		ID:         99,
		Text:       "explicit",
		Embedding:  []float32{1},
		InsertedAt: inserted,
	})
	require.NoError(t, err)

	got, err := repo.GetKnowledgeRecord(ctx, 99)
	require.NoError(t, err)
	assert.Equal(t, inserted, got.InsertedAt)
}

func TestGetKnowledgeRecord_NotFound(t *testing.T) {
	repo := setupKnowledgeRepo(t)

	_, err := repo.GetKnowledgeRecord(context.Background(), 12345)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestForEachKnowledgeRecord_Order(t *testing.T) {
	repo := setupKnowledgeRepo(t)
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		_, err := repo.AddKnowledgeRecords(ctx, &core.KnowledgeRecord{Text: "snippet", Embedding: []float32{float32(i)}})
		require.NoError(t, err)
	}

	var ids []core.ID
	err := repo.ForEachKnowledgeRecord(ctx, func(r *core.KnowledgeRecord) error {
		ids = append(ids, r.ID)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, ids, 300)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}

	count, err := repo.CountKnowledgeRecords(ctx)
	require.NoError(t, err)
	assert.Equal(t, 300, count)
}

func TestForEachKnowledgeRecord_StopsOnError(t *testing.T) {
	repo := setupKnowledgeRepo(t)
	ctx := context.Background()

	_, err := repo.AddKnowledgeRecords(ctx,
		&core.KnowledgeRecord{Text: "a", Embedding: []float32{1}},
		&core.KnowledgeRecord{Text: "b", Embedding: []float32{1}},
	)
	require.NoError(t, err)

	stop := errors.New("stop")
	visited := 0
	err = repo.ForEachKnowledgeRecord(ctx, func(r *core.KnowledgeRecord) error {
		visited++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, visited)
}

func TestKnowledgeRepository_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	backend, err := OpenBackend(dir, false)
	require.NoError(t, err)
	repo, err := NewKnowledgeRepository(backend)
	require.NoError(t, err)

	added, err := repo.AddKnowledgeRecords(ctx, &core.KnowledgeRecord{Text: "persisted", Embedding: []float32{0.5, 0.5}})
	require.NoError(t, err)
	firstID := added[0].ID

	require.NoError(t, repo.Close())
	require.NoError(t, backend.Close())

	backend, err = OpenBackend(dir, false)
	require.NoError(t, err)
	defer backend.Close()
	repo, err = NewKnowledgeRepository(backend)
	require.NoError(t, err)
	defer repo.Close()

	got, err := repo.GetKnowledgeRecord(ctx, firstID)
	require.NoError(t, err)
	assert.Equal(t, "persisted", got.Text)

	// IDs keep increasing across restarts
	added, err = repo.AddKnowledgeRecords(ctx, &core.KnowledgeRecord{Text: "next", Embedding: []float32{1, 0}})
	require.NoError(t, err)
	assert.Greater(t, added[0].ID, firstID)
}

func TestUpdateKnowledgeRecords(t *testing.T) {
	repo := setupKnowledgeRepo(t)
	ctx := context.Background()

	added, err := repo.AddKnowledgeRecords(ctx, &core.KnowledgeRecord{Text: "Asthma narrows the airways.", Embedding: []float32{1, 0}})
	require.NoError(t, err)

	record := added[0]
	record.Embedding = []float32{0, 1}
	require.NoError(t, repo.UpdateKnowledgeRecords(ctx, record))

	got, err := repo.GetKnowledgeRecord(ctx, record.ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 1}, got.Embedding)
	assert.Equal(t, record.Text, got.Text)
	assert.Equal(t, record.InsertedAt.Unix(), got.InsertedAt.Unix())
}

func TestUpdateKnowledgeRecords_MissingRecord(t *testing.T) {
	repo := setupKnowledgeRepo(t)
	ctx := context.Background()

	added, err := repo.AddKnowledgeRecords(ctx, &core.KnowledgeRecord{Text: "kept", Embedding: []float32{1}})
	require.NoError(t, err)

	changed := *added[0]
	changed.Embedding = []float32{2}
	err = repo.UpdateKnowledgeRecords(ctx, &changed, &core.KnowledgeRecord{ID: 12345, Text: "ghost", Embedding: []float32{1}})
	require.ErrorIs(t, err, storage.ErrNotFound)

	got, err := repo.GetKnowledgeRecord(ctx, added[0].ID)
	require.NoError(t, err)
	assert.Equal(t, []float32{1}, got.Embedding, "failed update writes nothing")
}
