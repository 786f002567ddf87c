package medscribe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/poiesic/medscribe/ai/mock"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
	"github.com/poiesic/medscribe/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coughText = "Patient reports persistent cough for two weeks and mild fever."

var snippets = []string{
	"Diabetes complications include neuropathy, retinopathy and kidney disease.",
	"Poorly controlled diabetes raises the risk of heart disease.",
	"A persistent cough lasting more than three weeks should be investigated.",
	"Fever is a common sign of infection.",
	"Hypertension is often found during routine checks.",
}

func newTestService(t *testing.T, path string, opts ...Option) *Service {
	t.Helper()
	svc, err := NewService(context.Background(), path, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	return svc
}

func TestNewService(t *testing.T) {
	t.Run("in memory with local models", func(t *testing.T) {
		svc := newTestService(t, "")
		assert.NotNil(t, svc.KnowledgeBase())
		assert.NotNil(t, svc.Pipeline())
		assert.NotNil(t, svc.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		svc, err := NewService(context.Background(), tmpFile)
		assert.Error(t, err)
		assert.Nil(t, svc)
	})

	t.Run("invalid retry policy", func(t *testing.T) {
		_, err := NewService(context.Background(), "", WithRetryPolicy(pipeline.RetryPolicy{}))
		assert.ErrorIs(t, err, pipeline.ErrInvalidMaxAttempts)
	})

	t.Run("closes the supplied provider", func(t *testing.T) {
		provider := mock.NewMockProvider()
		svc, err := NewService(context.Background(), "", WithProvider(provider))
		require.NoError(t, err)
		require.NoError(t, svc.Close())
		assert.True(t, provider.(*mock.MockProvider).Closed())
	})
}

func TestService_ProcessAndDownload(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	entities, err := svc.ExtractEntities(ctx, coughText)
	require.NoError(t, err)
	terms := make([]string, len(entities))
	for i, e := range entities {
		terms[i] = strings.ToLower(e.Term)
		assert.Equal(t, core.EntitySymptom, e.Type)
	}
	assert.Contains(t, terms, "cough")
	assert.Contains(t, terms, "fever")

	summary, err := svc.Summarize(ctx, coughText, 150, 5)
	require.NoError(t, err)
	assert.LessOrEqual(t, summary.SummaryLength, core.WordCount(coughText))

	report, err := svc.GenerateReport(ctx, pipeline.ReportRequest{Entities: entities, Summary: summary.Text})
	require.NoError(t, err)

	stored, err := svc.GetReport(ctx, report.ID)
	require.NoError(t, err)
	document := strings.ToLower(stored.Document())
	assert.Contains(t, document, "cough")

	again, err := svc.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, again)
}

func TestService_Process(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()
	_, err := svc.IngestKnowledge(ctx, snippets, nil)
	require.NoError(t, err)

	result, err := svc.Process(ctx, pipeline.Input{Text: coughText})
	require.NoError(t, err)
	assert.Len(t, result.Report.Context, pipeline.DefaultTopK)

	_, err = svc.Process(ctx, pipeline.Input{})
	assert.ErrorIs(t, err, core.ErrInvalidInput)

	_, err = svc.Process(ctx, pipeline.Input{Audio: &core.Audio{Data: []byte("RIFF"), Filename: "a.wav"}})
	assert.ErrorIs(t, err, core.ErrUnsupportedMedia, "transcription is disabled by default")
}

func TestService_Reports(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	_, err := svc.GetReport(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.ErrorIs(t, svc.DeleteReport(ctx, "missing"), core.ErrNotFound)

	report, err := svc.GenerateReport(ctx, pipeline.ReportRequest{Summary: "Mild fever."})
	require.NoError(t, err)
	require.NoError(t, svc.DeleteReport(ctx, report.ID))
	_, err = svc.GetReport(ctx, report.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestTranslateStorageError(t *testing.T) {
	assert.ErrorIs(t, translateStorageError("x", storage.ErrNotFound), core.ErrNotFound)

	err := translateStorageError("x", storage.ErrStorageClosed)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)

	other := errors.New("disk full")
	assert.Equal(t, other, translateStorageError("x", other))
}

func TestService_Knowledge(t *testing.T) {
	svc := newTestService(t, "")
	ctx := context.Background()

	ids, err := svc.IngestKnowledge(ctx, snippets, nil)
	require.NoError(t, err)
	assert.Len(t, ids, len(snippets))

	first, err := svc.QueryKnowledge(ctx, "diabetes complications", 3)
	require.NoError(t, err)
	second, err := svc.QueryKnowledge(ctx, "diabetes complications", 3)
	require.NoError(t, err)
	require.Len(t, first, 3)
	assert.Equal(t, first, second)
	for i := 1; i < len(first); i++ {
		assert.GreaterOrEqual(t, first[i-1].Score, first[i].Score)
	}

	added, err := svc.AddKnowledge(ctx, "Insulin lowers blood sugar.", false)
	require.NoError(t, err)
	assert.Len(t, added, 1)

	_, err = svc.QueryKnowledge(ctx, "fever", -1)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
}

func TestService_Persistence(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	ctx := context.Background()

	svc, err := NewService(ctx, dir)
	require.NoError(t, err)
	_, err = svc.IngestKnowledge(ctx, snippets, nil)
	require.NoError(t, err)
	report, err := svc.GenerateReport(ctx, pipeline.ReportRequest{Summary: "Persistent cough."})
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	reopened := newTestService(t, dir)
	assert.Equal(t, len(snippets), reopened.KnowledgeBase().Len())
	stored, err := reopened.GetReport(ctx, report.ID)
	require.NoError(t, err)
	assert.Equal(t, report.Narrative, stored.Narrative)
}

func TestService_ExplainTerms(t *testing.T) {
	svc := newTestService(t, "")

	explanations, err := svc.ExplainTerms(context.Background(), []string{"Asthma", " ", "flibbertigibbet"})
	require.NoError(t, err)
	require.Len(t, explanations, 2)
	assert.Equal(t, "Asthma", explanations[0].Term)
	assert.Contains(t, explanations[0].Explanation, "airways")
	assert.NotEmpty(t, explanations[1].Explanation)

	none, err := svc.ExplainTerms(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_SummarizeValidation(t *testing.T) {
	svc := newTestService(t, "")

	_, err := svc.Summarize(context.Background(), coughText, 5, 10)
	assert.ErrorIs(t, err, core.ErrInvalidParameter)
	_, err = svc.Summarize(context.Background(), "  ", 10, 5)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}
