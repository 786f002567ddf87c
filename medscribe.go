// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package medscribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/poiesic/medscribe/ai"
	aibackend "github.com/poiesic/medscribe/ai/backend"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/knowledge"
	"github.com/poiesic/medscribe/pipeline"
	"github.com/poiesic/medscribe/storage"
	"github.com/poiesic/medscribe/storage/badger"
)

// Service wires storage, models, the knowledge base and the pipeline
// together. Each method is one boundary operation.
type Service struct {
	backend       *badger.Backend
	knowledgeRepo storage.KnowledgeRepository
	reports       storage.ReportRepository
	provider      ai.AIProvider
	kb            *knowledge.KnowledgeBase
	pipeline      *pipeline.Pipeline
	retry         pipeline.RetryPolicy
	logger        *slog.Logger
}

// Option configures a Service.
type Option func(*options)

type options struct {
	aiConfig      *ai.Config
	provider      ai.AIProvider
	reportTTL     time.Duration
	gcInterval    time.Duration
	retry         pipeline.RetryPolicy
	pipelineOpts  []pipeline.Option
	knowledgeOpts []knowledge.Option
}

// WithAIConfig selects the model backends. Default is ai.DefaultConfig().
func WithAIConfig(cfg *ai.Config) Option {
	return func(o *options) {
		o.aiConfig = cfg
	}
}

// WithProvider uses provider instead of building one from the AI config.
// The service closes it.
func WithProvider(provider ai.AIProvider) Option {
	return func(o *options) {
		o.provider = provider
	}
}

// WithReportTTL expires stored reports after ttl. Zero keeps them until deleted.
func WithReportTTL(ttl time.Duration) Option {
	return func(o *options) {
		o.reportTTL = ttl
	}
}

// WithGCInterval sets how often an on-disk store reclaims space from deleted
// and expired reports. Zero disables collection.
func WithGCInterval(interval time.Duration) Option {
	return func(o *options) {
		o.gcInterval = interval
	}
}

// WithRetryPolicy sets the retry policy for every adapter call.
func WithRetryPolicy(policy pipeline.RetryPolicy) Option {
	return func(o *options) {
		o.retry = policy
	}
}

// WithPipelineOptions passes options through to the pipeline.
func WithPipelineOptions(opts ...pipeline.Option) Option {
	return func(o *options) {
		o.pipelineOpts = append(o.pipelineOpts, opts...)
	}
}

// WithKnowledgeOptions passes options through to the knowledge base.
func WithKnowledgeOptions(opts ...knowledge.Option) Option {
	return func(o *options) {
		o.knowledgeOpts = append(o.knowledgeOpts, opts...)
	}
}

// NewService opens a service storing its data at path. An empty path keeps
// everything in memory for the life of the process.
func NewService(ctx context.Context, path string, opts ...Option) (*Service, error) {
	o := &options{
		aiConfig:   ai.DefaultConfig(),
		gcInterval: badger.DefaultGCInterval,
		retry:      pipeline.DefaultRetryPolicy(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if err := o.retry.Validate(); err != nil {
		return nil, err
	}

	backend, err := badger.OpenBackend(path, path == "")
	if err != nil {
		return nil, err
	}

	knowledgeRepo, err := badger.NewKnowledgeRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	reports := badger.NewReportRepository(backend, badger.WithReportTTL(o.reportTTL))
	backend.StartValueLogGC(o.gcInterval)

	s := &Service{
		backend:       backend,
		knowledgeRepo: knowledgeRepo,
		reports:       reports,
		retry:         o.retry,
		logger:        slog.Default().With("component", "medscribe"),
	}

	s.provider = o.provider
	if s.provider == nil {
		if s.provider, err = aibackend.New(o.aiConfig); err != nil {
			s.Close()
			return nil, err
		}
	}

	s.kb, err = knowledge.Open(ctx, s.provider.Embedder(), knowledgeRepo, o.knowledgeOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	pipelineOpts := append([]pipeline.Option{
		pipeline.WithKnowledgeBase(s.kb),
		pipeline.WithRetryPolicy(o.retry),
	}, o.pipelineOpts...)
	s.pipeline, err = pipeline.New(s.provider, reports, pipelineOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.logger.Info("service ready", "path", path, "knowledge_records", s.kb.Len())
	return s, nil
}

// Close drains background work and releases every resource.
func (s *Service) Close() error {
	if s.pipeline != nil {
		s.pipeline.Release()
	}
	if s.provider != nil {
		if err := s.provider.Close(); err != nil {
			s.logger.Error("error closing AI provider", "err", err)
		}
	}
	if err := s.reports.Close(); err != nil {
		s.logger.Error("error closing report repository", "err", err)
		return err
	}
	if err := s.knowledgeRepo.Close(); err != nil {
		s.logger.Error("error closing knowledge repository", "err", err)
		return err
	}
	if err := s.backend.Close(); err != nil {
		s.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

// KnowledgeBase returns the knowledge base used for retrieval.
func (s *Service) KnowledgeBase() *knowledge.KnowledgeBase {
	return s.kb
}

// Pipeline returns the report pipeline.
func (s *Service) Pipeline() *pipeline.Pipeline {
	return s.pipeline
}

// Transcribe converts audio to text.
func (s *Service) Transcribe(ctx context.Context, audio core.Audio) (*core.Transcript, error) {
	if len(audio.Data) == 0 {
		return nil, fmt.Errorf("%w: audio is empty", core.ErrInvalidInput)
	}
	var transcript *core.Transcript
	_, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		transcript, err = s.provider.Transcriber().Transcribe(ctx, audio)
		return err
	}, nil)
	return transcript, err
}

// ExtractEntities returns the medical entities in text.
func (s *Service) ExtractEntities(ctx context.Context, text string) ([]core.Entity, error) {
	var entities []core.Entity
	_, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		entities, err = s.provider.EntityExtractor().ExtractEntities(ctx, text)
		return err
	}, nil)
	if err != nil {
		return nil, err
	}
	valid := make([]core.Entity, 0, len(entities))
	for _, e := range entities {
		if core.ValidateEntity(e, text) == nil {
			valid = append(valid, e)
		}
	}
	return valid, nil
}

// Summarize condenses text to between minLength and maxLength words.
func (s *Service) Summarize(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error) {
	if err := ai.ValidateSummaryBounds(maxLength, minLength); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: text: %w", core.ErrInvalidInput, core.ErrEmptyContent)
	}
	var summary *core.Summary
	_, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		summary, err = s.provider.Summarizer().Summarize(ctx, text, maxLength, minLength)
		return err
	}, nil)
	return summary, err
}

// Process runs the full pipeline on audio or text.
func (s *Service) Process(ctx context.Context, in pipeline.Input) (*pipeline.Result, error) {
	return s.pipeline.Process(ctx, in)
}

// GenerateReport writes and stores a report from existing analysis.
func (s *Service) GenerateReport(ctx context.Context, req pipeline.ReportRequest) (*core.Report, error) {
	return s.pipeline.GenerateReport(ctx, req)
}

// GetReport returns a stored report. Unknown ids fail with core.ErrNotFound;
// a closed store fails with core.ErrStoreUnavailable.
func (s *Service) GetReport(ctx context.Context, id string) (*core.Report, error) {
	report, err := s.reports.GetReport(ctx, id)
	if err != nil {
		return nil, translateStorageError(id, err)
	}
	return report, nil
}

// DeleteReport evicts a stored report.
func (s *Service) DeleteReport(ctx context.Context, id string) error {
	if err := s.reports.DeleteReport(ctx, id); err != nil {
		return translateStorageError(id, err)
	}
	return nil
}

// QueryKnowledge returns the k knowledge snippets most similar to query.
func (s *Service) QueryKnowledge(ctx context.Context, query string, k int) ([]core.RetrievalMatch, error) {
	return s.kb.Query(ctx, query, k)
}

// AddKnowledge inserts text into the knowledge base, split into chunks
// when chunk is set.
func (s *Service) AddKnowledge(ctx context.Context, text string, chunk bool) ([]core.ID, error) {
	if chunk {
		return s.kb.IndexDocument(ctx, text)
	}
	id, err := s.kb.Insert(ctx, text)
	if err != nil {
		return nil, err
	}
	return []core.ID{id}, nil
}

// IngestKnowledge bulk-loads snippets into the knowledge base.
func (s *Service) IngestKnowledge(ctx context.Context, texts []string, opts *knowledge.IngestOptions) ([]core.ID, error) {
	return s.kb.Ingest(ctx, texts, opts)
}

// ExplainTerms describes medical terms in plain language.
func (s *Service) ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error) {
	cleaned := make([]string, 0, len(terms))
	for _, t := range terms {
		if t = strings.TrimSpace(t); t != "" {
			cleaned = append(cleaned, t)
		}
	}
	if len(cleaned) == 0 {
		return []core.TermExplanation{}, nil
	}
	var explanations []core.TermExplanation
	_, err := s.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		explanations, err = s.provider.TermExplainer().ExplainTerms(ctx, cleaned)
		return err
	}, nil)
	return explanations, err
}

func translateStorageError(id string, err error) error {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return fmt.Errorf("%w: report %s", core.ErrNotFound, id)
	case errors.Is(err, storage.ErrStorageClosed):
		return fmt.Errorf("%w: %w", core.ErrStoreUnavailable, err)
	}
	return err
}
