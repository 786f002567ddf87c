// Package api exposes the medscribe service over HTTP.
package api

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/pipeline"
)

// DefaultMaxUploadBytes caps request bodies at 100 MiB.
const DefaultMaxUploadBytes int64 = 100 << 20

// multipartMemory is the part of a multipart body held in memory before
// spilling to temporary files.
const multipartMemory = 32 << 20

// Service is the set of operations the HTTP boundary exposes.
// *medscribe.Service satisfies it.
type Service interface {
	Transcribe(ctx context.Context, audio core.Audio) (*core.Transcript, error)
	ExtractEntities(ctx context.Context, text string) ([]core.Entity, error)
	Summarize(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error)
	Process(ctx context.Context, in pipeline.Input) (*pipeline.Result, error)
	GenerateReport(ctx context.Context, req pipeline.ReportRequest) (*core.Report, error)
	GetReport(ctx context.Context, id string) (*core.Report, error)
	DeleteReport(ctx context.Context, id string) error
	QueryKnowledge(ctx context.Context, query string, k int) ([]core.RetrievalMatch, error)
	AddKnowledge(ctx context.Context, text string, chunk bool) ([]core.ID, error)
	ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error)
}

// Server routes HTTP requests to a Service.
type Server struct {
	router         *chi.Mux
	svc            Service
	baseURL        string
	maxUploadBytes int64
	topK           int
	summaryMax     int
	summaryMin     int
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithBaseURL prefixes report links. Empty produces relative links.
func WithBaseURL(url string) Option {
	return func(s *Server) {
		s.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithMaxUploadBytes limits request body size.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithDefaultTopK sets k for knowledge queries that omit it.
func WithDefaultTopK(k int) Option {
	return func(s *Server) {
		s.topK = k
	}
}

// WithSummaryDefaults sets the bounds for summarize requests that omit them.
func WithSummaryDefaults(maxLength, minLength int) Option {
	return func(s *Server) {
		s.summaryMax = maxLength
		s.summaryMin = minLength
	}
}

// WithLogger sets the logger for access and error logs.
// If logger is nil, slog.Default() will be used.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// New builds the router.
func New(svc Service, opts ...Option) *Server {
	r := chi.NewRouter()
	s := &Server{
		router:         r,
		svc:            svc,
		maxUploadBytes: DefaultMaxUploadBytes,
		topK:           pipeline.DefaultTopK,
		summaryMax:     pipeline.DefaultSummaryMaxLength,
		summaryMin:     pipeline.DefaultSummaryMinLength,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "http")

	r.Use(middleware.RequestID)
	r.Use(s.accessLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.limitBody)

	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealth)
	r.Post("/transcribe", s.handleTranscribe)
	r.Post("/extract_entities", s.handleExtractEntities)
	r.Post("/summarize", s.handleSummarize)
	r.Post("/generate_report", s.handleGenerateReport)
	r.Get("/download_report/{id}", s.handleDownloadReport)
	r.Route("/reports/{id}", func(r chi.Router) {
		r.Get("/", s.handleGetReport)
		r.Delete("/", s.handleDeleteReport)
	})
	r.Post("/process", s.handleProcess)
	r.Post("/query_knowledge_base", s.handleQueryKnowledge)
	r.Post("/knowledge", s.handleAddKnowledge)
	r.Post("/explain_medical_terms", s.handleExplainTerms)

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// accessLogger logs one line per request.
func (s *Server) accessLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			s.logger.Info("access",
				"request_id", middleware.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"remote", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}

func (s *Server) limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.ContentLength > s.maxUploadBytes {
			s.writeError(w, r, ErrPayloadTooLarge)
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
		next.ServeHTTP(w, r)
	})
}

func (s *Server) reportURL(id string) string {
	return s.baseURL + "/download_report/" + id
}
