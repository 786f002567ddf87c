package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Welcome to the Medical Transcription Analysis Application",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	audio, err := readUpload(r, "file")
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if audio == nil {
		s.writeError(w, r, goerr.Wrap(core.ErrInvalidInput, "file is required"))
		return
	}

	transcript, err := s.svc.Transcribe(r.Context(), *audio)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to transcribe", goerr.V("filename", audio.Filename)))
		return
	}
	writeJSON(w, http.StatusOK, transcribeResponse{
		Transcription:   transcript.Text,
		DurationSeconds: transcript.DurationSeconds,
	})
}

func (s *Server) handleExtractEntities(w http.ResponseWriter, r *http.Request) {
	var req textRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	entities, err := s.svc.ExtractEntities(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to extract entities"))
		return
	}
	writeJSON(w, http.StatusOK, entitiesResponse{Entities: EntitiesFromCore(entities)})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.MaxLength == 0 {
		req.MaxLength = s.summaryMax
	}
	if req.MinLength == 0 {
		req.MinLength = min(s.summaryMin, req.MaxLength)
	}

	summary, err := s.svc.Summarize(r.Context(), req.Text, req.MaxLength, req.MinLength)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to summarize",
			goerr.V("max_length", req.MaxLength),
			goerr.V("min_length", req.MinLength)))
		return
	}
	writeJSON(w, http.StatusOK, summarizeResponse{
		Summary:       summary.Text,
		SourceLength:  summary.SourceLength,
		SummaryLength: summary.SummaryLength,
	})
}

func (s *Server) handleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req generateReportRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	report, err := s.svc.GenerateReport(r.Context(), pipeline.ReportRequest{
		Entities: EntitiesToCore(req.Entities),
		Summary:  req.Summary,
		Patient:  req.Patient.toCore(),
	})
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to generate report"))
		return
	}
	writeJSON(w, http.StatusOK, generateReportResponse{
		ReportID:  report.ID,
		ReportURL: s.reportURL(report.ID),
		Report:    report.Document(),
		Degraded:  report.Degraded,
	})
}

func (s *Server) handleDownloadReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.svc.GetReport(r.Context(), id)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to load report", goerr.V("report_id", id)))
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{
		"filename": fmt.Sprintf("clinical_report_%s.md", report.ID),
	}))
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, report.Document()) //nolint:errcheck // header already committed
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	report, err := s.svc.GetReport(r.Context(), id)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to load report", goerr.V("report_id", id)))
		return
	}
	writeJSON(w, http.StatusOK, ReportFromCore(report))
}

func (s *Server) handleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.svc.DeleteReport(r.Context(), id); err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to delete report", goerr.V("report_id", id)))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	in, err := readProcessInput(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	in.KeepIntermediates = true

	result, err := s.svc.Process(r.Context(), in)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to process"))
		return
	}

	report := result.Report
	resp := processResponse{
		Entities:  EntitiesFromCore(report.Entities),
		Summary:   report.Summary.Text,
		Report:    report.Document(),
		ReportID:  report.ID,
		ReportURL: s.reportURL(report.ID),
		Degraded:  report.Degraded,
	}
	if result.Transcript != nil {
		resp.Transcription = &result.Transcript.Text
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleQueryKnowledge(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	params := r.URL.Query()
	if params.Has("query") {
		req.Query = params.Get("query")
		if raw := params.Get("k"); raw != "" {
			k, err := strconv.Atoi(raw)
			if err != nil {
				s.writeError(w, r, goerr.Wrap(core.ErrInvalidParameter, "k must be an integer", goerr.V("k", raw)))
				return
			}
			req.K = &k
		}
	} else if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}

	k := s.topK
	if req.K != nil {
		k = *req.K
	}
	matches, err := s.svc.QueryKnowledge(r.Context(), req.Query, k)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to query knowledge base", goerr.V("k", k)))
		return
	}
	writeJSON(w, http.StatusOK, queryResponse{Results: MatchesFromCore(matches)})
}

func (s *Server) handleAddKnowledge(w http.ResponseWriter, r *http.Request) {
	var req knowledgeRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	ids, err := s.svc.AddKnowledge(r.Context(), req.Text, req.Chunk)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to add knowledge", goerr.V("chunk", req.Chunk)))
		return
	}
	resp := knowledgeResponse{IDs: make([]uint64, len(ids))}
	for i, id := range ids {
		resp.IDs[i] = uint64(id)
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleExplainTerms(w http.ResponseWriter, r *http.Request) {
	var req explainRequest
	if raw := r.URL.Query().Get("terms"); raw != "" {
		req.Terms = strings.Split(raw, ",")
	} else if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	explanations, err := s.svc.ExplainTerms(r.Context(), req.Terms)
	if err != nil {
		s.writeError(w, r, goerr.Wrap(err, "failed to explain terms", goerr.V("terms", len(req.Terms))))
		return
	}
	writeJSON(w, http.StatusOK, explainResponse{Explanations: ExplanationsFromCore(explanations)})
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return goerr.Wrap(err, "request body too large")
		}
		return goerr.Wrap(core.ErrInvalidInput, "malformed JSON body", goerr.V("cause", err.Error()))
	}
	return nil
}

// readUpload returns the uploaded file in field, or nil when the request
// has none.
func readUpload(r *http.Request, field string) (*core.Audio, error) {
	if err := parseForm(r); err != nil {
		return nil, err
	}
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(core.ErrInvalidInput, "unreadable upload", goerr.V("cause", err.Error()))
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read upload", goerr.V("filename", header.Filename))
	}
	return &core.Audio{Data: data, Filename: header.Filename}, nil
}

func parseForm(r *http.Request) error {
	if r.MultipartForm != nil {
		return nil
	}
	err := r.ParseMultipartForm(multipartMemory)
	if err == nil || errors.Is(err, http.ErrNotMultipart) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return goerr.Wrap(err, "upload too large")
	}
	return goerr.Wrap(core.ErrInvalidInput, "malformed form body", goerr.V("cause", err.Error()))
}

// readProcessInput accepts a multipart upload with optional text and
// patient fields, a urlencoded form, or a JSON body.
func readProcessInput(r *http.Request) (pipeline.Input, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "multipart/form-data", "application/x-www-form-urlencoded":
		audio, err := readUpload(r, "file")
		if err != nil {
			return pipeline.Input{}, err
		}
		patient := &Patient{
			Name:      r.FormValue("patient_name"),
			Age:       r.FormValue("patient_age"),
			Gender:    r.FormValue("patient_gender"),
			Physician: r.FormValue("physician"),
			VisitDate: r.FormValue("visit_date"),
		}
		return pipeline.Input{Audio: audio, Text: r.FormValue("text"), Patient: patient.toCore()}, nil
	default:
		var req processRequest
		if err := decodeJSON(r, &req); err != nil {
			return pipeline.Input{}, err
		}
		return pipeline.Input{Text: req.Text, Patient: req.Patient.toCore()}, nil
	}
}
