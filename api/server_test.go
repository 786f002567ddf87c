package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/medscribe"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

const coughText = "Patient reports persistent cough for two weeks and mild fever."

func newTestServer(t *testing.T, opts ...Option) (*Server, *medscribe.Service) {
	t.Helper()
	svc, err := medscribe.NewService(context.Background(), "")
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })

	opts = append([]Option{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return New(svc, opts...), svc
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if file != nil {
		fw, err := mw.CreateFormFile("file", "visit.wav")
		require.NoError(t, err)
		_, err = fw.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestRootAndHealth(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Welcome")
	assert.NotEmpty(t, rec.Header().Get("Content-Type"))

	rec = doJSON(t, srv, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestExtractEntities(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/extract_entities", textRequest{Text: coughText})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[entitiesResponse](t, rec)
	found := map[string]string{}
	for _, e := range resp.Entities {
		found[strings.ToLower(e.Term)] = e.Type
		assert.Equal(t, strings.ToLower(e.Term), strings.ToLower(coughText[e.Start:e.End]))
	}
	assert.Equal(t, "SYMPTOM", found["cough"])
	assert.Equal(t, "SYMPTOM", found["fever"])

	rec = doJSON(t, srv, http.MethodPost, "/extract_entities", textRequest{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"entities":[]}`, rec.Body.String())
}

func TestSummarize(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/summarize", summarizeRequest{Text: coughText})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[summarizeResponse](t, rec)
	assert.NotEmpty(t, resp.Summary)
	assert.LessOrEqual(t, resp.SummaryLength, resp.SourceLength)

	rec = doJSON(t, srv, http.MethodPost, "/summarize", summarizeRequest{Text: coughText, MaxLength: 5, MinLength: 10})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, srv, http.MethodPost, "/summarize", summarizeRequest{Text: "   "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/summarize", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decode[errorResponse](t, rr).Error, "malformed JSON body")
}

func TestGenerateReportAndDownload(t *testing.T) {
	srv, _ := newTestServer(t, WithBaseURL("http://scribe.local/"))

	rec := doJSON(t, srv, http.MethodPost, "/generate_report", generateReportRequest{
		Entities: []Entity{{Term: "cough", Type: "SYMPTOM", Confidence: 0.9}},
		Summary:  "Persistent cough for two weeks.",
		Patient:  &Patient{Name: "Jane Doe", Age: "42"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[generateReportResponse](t, rec)
	require.NotEmpty(t, resp.ReportID)
	assert.Equal(t, "http://scribe.local/download_report/"+resp.ReportID, resp.ReportURL)
	assert.Contains(t, resp.Report, "Jane Doe")

	download := func() *httptest.ResponseRecorder {
		return doJSON(t, srv, http.MethodGet, "/download_report/"+resp.ReportID, nil)
	}
	first := download()
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "text/markdown; charset=utf-8", first.Header().Get("Content-Type"))
	assert.Contains(t, first.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, first.Header().Get("Content-Disposition"), resp.ReportID)
	assert.Contains(t, strings.ToLower(first.Body.String()), "cough")
	assert.Equal(t, first.Body.String(), download().Body.String())

	rec = doJSON(t, srv, http.MethodGet, "/reports/"+resp.ReportID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decode[Report](t, rec)
	assert.Equal(t, resp.ReportID, report.ID)
	assert.Equal(t, "Jane Doe", report.Patient.Name)
	assert.Equal(t, "Persistent cough for two weeks.", report.Summary)
	assert.Equal(t, first.Body.String(), report.Document)

	rec = doJSON(t, srv, http.MethodPost, "/generate_report", generateReportRequest{Summary: " "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestReports_NotFoundAndDelete(t *testing.T) {
	srv, svc := newTestServer(t)

	rec := doJSON(t, srv, http.MethodGet, "/download_report/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/reports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	report, err := svc.GenerateReport(context.Background(), pipeline.ReportRequest{Summary: "Mild fever."})
	require.NoError(t, err)

	rec = doJSON(t, srv, http.MethodDelete, "/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = doJSON(t, srv, http.MethodGet, "/reports/"+report.ID, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProcess(t *testing.T) {
	srv, _ := newTestServer(t)

	t.Run("json text", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/process", processRequest{Text: coughText})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[processResponse](t, rec)
		require.NotNil(t, resp.Transcription)
		assert.Equal(t, coughText, *resp.Transcription)
		assert.NotEmpty(t, resp.Entities)
		assert.NotEmpty(t, resp.Summary)
		assert.Equal(t, "/download_report/"+resp.ReportID, resp.ReportURL)

		download := doJSON(t, srv, http.MethodGet, resp.ReportURL, nil)
		assert.Equal(t, http.StatusOK, download.Code)
		assert.Equal(t, resp.Report, download.Body.String())
	})

	t.Run("form text with patient", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{
			"text":         coughText,
			"patient_name": "John Roe",
		}, nil)
		req := httptest.NewRequest(http.MethodPost, "/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Contains(t, decode[processResponse](t, rec).Report, "John Roe")
	})

	t.Run("neither input", func(t *testing.T) {
		rec := doJSON(t, srv, http.MethodPost, "/process", processRequest{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("both inputs", func(t *testing.T) {
		body, contentType := multipartBody(t, map[string]string{"text": coughText}, []byte("RIFF....WAVE"))
		req := httptest.NewRequest(http.MethodPost, "/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("audio without transcription backend", func(t *testing.T) {
		body, contentType := multipartBody(t, nil, []byte("RIFF....WAVE"))
		req := httptest.NewRequest(http.MethodPost, "/process", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, req)

		require.Equal(t, http.StatusUnsupportedMediaType, rec.Code, rec.Body.String())
		resp := decode[errorResponse](t, rec)
		assert.Equal(t, string(pipeline.StageTranscribe), resp.Stage)
		require.NotNil(t, resp.Partial)
		assert.Nil(t, resp.Partial.Transcription)
	})
}

func TestTranscribe(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/transcribe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType := multipartBody(t, nil, []byte("RIFF....WAVE"))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()
	srv.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
}

func TestKnowledge(t *testing.T) {
	srv, _ := newTestServer(t)

	for _, text := range []string{
		"Diabetes complications include neuropathy, retinopathy and nephropathy.",
		"Hypertension is persistently high blood pressure.",
		"Metformin is a first-line treatment for type 2 diabetes.",
		"Asthma causes wheezing and shortness of breath.",
	} {
		rec := doJSON(t, srv, http.MethodPost, "/knowledge", knowledgeRequest{Text: text})
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		assert.Len(t, decode[knowledgeResponse](t, rec).IDs, 1)
	}

	rec := doJSON(t, srv, http.MethodPost, "/query_knowledge_base", queryRequest{Query: "diabetes complications"})
	require.Equal(t, http.StatusOK, rec.Code)
	results := decode[queryResponse](t, rec).Results
	require.Len(t, results, 3)
	for i := 1; i < len(results); i++ {
		assert.GreaterOrEqual(t, results[i-1].Score, results[i].Score)
	}

	rec = doJSON(t, srv, http.MethodPost, "/query_knowledge_base?query=diabetes+complications&k=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	byParams := decode[queryResponse](t, rec).Results
	require.Len(t, byParams, 2)
	assert.Equal(t, results[:2], byParams)

	rec = doJSON(t, srv, http.MethodPost, "/query_knowledge_base?query=fever&k=lots", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	k := -1
	rec = doJSON(t, srv, http.MethodPost, "/query_knowledge_base", queryRequest{Query: "fever", K: &k})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/query_knowledge_base", queryRequest{Query: ""})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = doJSON(t, srv, http.MethodPost, "/knowledge", knowledgeRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExplainTerms(t *testing.T) {
	srv, _ := newTestServer(t)

	rec := doJSON(t, srv, http.MethodPost, "/explain_medical_terms", explainRequest{Terms: []string{"asthma", "zorbitis"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	explanations := decode[explainResponse](t, rec).Explanations
	require.Len(t, explanations, 2)
	assert.Contains(t, explanations[0].Explanation, "airways")
	assert.NotEmpty(t, explanations[1].Explanation)

	rec = doJSON(t, srv, http.MethodPost, "/explain_medical_terms?terms=fever,+cough", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[explainResponse](t, rec).Explanations, 2)
}

func TestUploadLimit(t *testing.T) {
	srv, _ := newTestServer(t, WithMaxUploadBytes(64))

	body, contentType := multipartBody(t, nil, bytes.Repeat([]byte("a"), 1024))
	req := httptest.NewRequest(http.MethodPost, "/transcribe", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)

	// Unknown length bodies are cut off while reading.
	req = httptest.NewRequest(http.MethodPost, "/summarize", io.MultiReader(strings.NewReader(`{"text":"`), strings.NewReader(strings.Repeat("a", 1024)+`"}`)))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

type panickingService struct {
	Service
}

func (panickingService) ExtractEntities(context.Context, string) ([]core.Entity, error) {
	panic("extractor exploded")
}

func TestRecoverer(t *testing.T) {
	srv := New(panickingService{}, WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	rec := doJSON(t, srv, http.MethodPost, "/extract_entities", textRequest{Text: "cough"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrInvalidInput, http.StatusBadRequest},
		{fmt.Errorf("%w: k", core.ErrInvalidParameter), http.StatusBadRequest},
		{core.ErrUnsupportedMedia, http.StatusUnsupportedMediaType},
		{goerr.Wrap(core.ErrNotFound, "failed to load report"), http.StatusNotFound},
		{core.ErrCapabilityUnavailable, http.StatusServiceUnavailable},
		{core.ErrStoreUnavailable, http.StatusServiceUnavailable},
		{&core.DimensionMismatchError{Expected: 3, Actual: 4}, http.StatusInternalServerError},
		{&pipeline.StageError{Stage: pipeline.StageGenerate, Err: core.ErrCapabilityUnavailable}, http.StatusServiceUnavailable},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			assert.Equal(t, tt.want, statusFor(tt.err))
		})
	}
}
