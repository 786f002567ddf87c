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

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/ai/local"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/knowledge"
	"github.com/poiesic/medscribe/storage"
)

// Defaults for a Pipeline.
const (
	DefaultTopK             = 3
	DefaultSummaryMaxLength = 200
	DefaultSummaryMinLength = 30
)

// Pipeline turns a recorded or typed medical conversation into a stored
// clinical report.
type Pipeline struct {
	provider  ai.AIProvider
	reports   storage.ReportRepository
	kb        *knowledge.KnowledgeBase
	fallback  ai.NarrativeGenerator
	retry     RetryPolicy
	monitor   RunMonitor
	topK      int
	maxLength int
	minLength int

	indexTranscripts bool
	pool             *ants.Pool
	background       sync.WaitGroup

	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithKnowledgeBase enables retrieval against kb.
// Without one the RETRIEVING state is skipped.
func WithKnowledgeBase(kb *knowledge.KnowledgeBase) Option {
	return func(p *Pipeline) error {
		p.kb = kb
		return nil
	}
}

// WithRetryPolicy sets the retry policy for adapter calls.
// Default is DefaultRetryPolicy().
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(p *Pipeline) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		p.retry = policy
		return nil
	}
}

// WithTopK sets how many knowledge matches ground a report. Default is 3.
func WithTopK(k int) Option {
	return func(p *Pipeline) error {
		if k < 0 {
			return fmt.Errorf("%w: top k must not be negative, got %d", core.ErrInvalidParameter, k)
		}
		p.topK = k
		return nil
	}
}

// WithSummaryLength sets the summary word bounds.
// Default is 30 to 200 words.
func WithSummaryLength(maxLength, minLength int) Option {
	return func(p *Pipeline) error {
		if err := ai.ValidateSummaryBounds(maxLength, minLength); err != nil {
			return err
		}
		p.maxLength = maxLength
		p.minLength = minLength
		return nil
	}
}

// WithFallbackGenerator sets the generator used when the configured
// narrative generator fails. Default is the local template generator.
func WithFallbackGenerator(g ai.NarrativeGenerator) Option {
	return func(p *Pipeline) error {
		if g == nil {
			g = local.NewTemplateGenerator()
		}
		p.fallback = g
		return nil
	}
}

// WithMonitor sets the monitor used by Process and GenerateReport.
func WithMonitor(m RunMonitor) Option {
	return func(p *Pipeline) error {
		if m == nil {
			m = &noopMonitor{}
		}
		p.monitor = m
		return nil
	}
}

// WithTranscriptIndexing makes every processed transcript searchable by
// indexing it into the knowledge base in the background after its report
// is stored.
func WithTranscriptIndexing(enabled bool) Option {
	return func(p *Pipeline) error {
		p.indexTranscripts = enabled
		return nil
	}
}

// WithPoolSize sets the worker pool size for background indexing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// New creates a pipeline over provider that stores reports in reports.
func New(provider ai.AIProvider, reports storage.ReportRepository, opts ...Option) (*Pipeline, error) {
	if provider == nil {
		return nil, ErrProviderRequired
	}
	if reports == nil {
		return nil, ErrReportRepositoryRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	p := &Pipeline{
		provider:  provider,
		reports:   reports,
		fallback:  local.NewTemplateGenerator(),
		retry:     DefaultRetryPolicy(),
		monitor:   &noopMonitor{},
		topK:      DefaultTopK,
		maxLength: DefaultSummaryMaxLength,
		minLength: DefaultSummaryMinLength,
		pool:      pool,
		now:       time.Now,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}
	p.logger = p.logger.With("component", "pipeline")
	return p, nil
}

// Input is one conversation to process. Exactly one of Audio and Text
// must be set.
type Input struct {
	Audio   *core.Audio
	Text    string
	Patient *core.PatientContext

	// KeepIntermediates returns the transcript and raw matches in the Result.
	KeepIntermediates bool
}

func (in Input) validate() error {
	hasAudio := in.Audio != nil
	hasText := strings.TrimSpace(in.Text) != ""
	switch {
	case hasAudio && hasText:
		return fmt.Errorf("%w: provide audio or text, not both", core.ErrInvalidInput)
	case !hasAudio && !hasText:
		return fmt.Errorf("%w: provide audio or text", core.ErrInvalidInput)
	}
	return nil
}

// Result is the outcome of a successful run.
type Result struct {
	Report     *core.Report
	Transcript *core.Transcript       // Set when KeepIntermediates
	Matches    []core.RetrievalMatch // Set when KeepIntermediates
}

// Process runs the full pipeline with the configured monitor.
func (p *Pipeline) Process(ctx context.Context, in Input) (*Result, error) {
	return p.ProcessWithMonitor(ctx, in, p.monitor)
}

// ProcessWithMonitor runs the full pipeline, reporting progress to monitor.
//
// Invalid input fails with core.ErrInvalidInput before any stage runs.
// A stage failure returns a *StageError carrying the outputs completed so
// far. When narrative generation fails the report is still produced from
// the fallback generator and marked Degraded.
func (p *Pipeline) ProcessWithMonitor(ctx context.Context, in Input, monitor RunMonitor) (*Result, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	r := newRun(uuid.NewString(), monitor, p.logger)
	monitor.Start(r.id)

	transcript, err := p.transcribe(ctx, r, in)
	if err != nil {
		return nil, err
	}
	r.partial.Transcript = transcript

	if err := r.transition(StateAnalyzing); err != nil {
		return nil, err
	}
	if err := p.analyze(ctx, r, transcript.Text); err != nil {
		return nil, err
	}

	queryText := r.partial.Summary.Text
	if strings.TrimSpace(queryText) == "" {
		queryText = transcript.Text
	}
	report, err := p.finish(ctx, r, transcript.Text, queryText, in.Patient)
	if err != nil {
		return nil, err
	}

	if p.indexTranscripts && p.kb != nil {
		p.indexInBackground(transcript.Text)
	}

	result := &Result{Report: report}
	if in.KeepIntermediates {
		result.Transcript = transcript
		result.Matches = r.partial.Matches
	}
	return result, nil
}

// ReportRequest carries externally produced analysis for GenerateReport.
type ReportRequest struct {
	Entities []core.Entity
	Summary  string
	Patient  *core.PatientContext
}

// GenerateReport retrieves knowledge for the summary, writes the narrative
// and stores the report, skipping transcription and analysis.
func (p *Pipeline) GenerateReport(ctx context.Context, req ReportRequest) (*core.Report, error) {
	if strings.TrimSpace(req.Summary) == "" {
		return nil, fmt.Errorf("%w: summary: %w", core.ErrInvalidInput, core.ErrEmptyContent)
	}
	entities := req.Entities
	if entities == nil {
		entities = []core.Entity{}
	}
	for _, e := range entities {
		if strings.TrimSpace(e.Term) == "" {
			return nil, fmt.Errorf("%w: entity term: %w", core.ErrInvalidInput, core.ErrEmptyContent)
		}
	}

	r := newRun(uuid.NewString(), p.monitor, p.logger)
	p.monitor.Start(r.id)
	r.partial.Entities = entities
	r.partial.Summary = core.NewSummary(req.Summary, req.Summary)

	return p.finish(ctx, r, req.Summary, req.Summary, req.Patient)
}

// transcribe produces the transcript, from audio or directly from text.
func (p *Pipeline) transcribe(ctx context.Context, r *run, in Input) (*core.Transcript, error) {
	if in.Audio == nil {
		return &core.Transcript{Text: in.Text, SourceID: "text"}, nil
	}

	if err := r.transition(StateTranscribing); err != nil {
		return nil, err
	}
	start := time.Now()
	var transcript *core.Transcript
	attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		transcript, err = p.provider.Transcriber().Transcribe(ctx, *in.Audio)
		return err
	}, r.retryHook(StageTranscribe))
	if err == nil && (transcript == nil || strings.TrimSpace(transcript.Text) == "") {
		err = fmt.Errorf("%w: no speech recognized", core.ErrUnsupportedMedia)
	}
	if err != nil {
		return nil, r.fail(StageTranscribe, attempts, err)
	}
	r.monitor.StageCompleted(StageTranscribe, attempts, time.Since(start))
	return transcript, nil
}

// finish runs RETRIEVING and GENERATING, then builds and stores the report.
// r.partial must hold the entities and summary.
func (p *Pipeline) finish(ctx context.Context, r *run, sourceText, queryText string, patient *core.PatientContext) (*core.Report, error) {
	var matches []core.RetrievalMatch
	if p.kb != nil && p.topK > 0 {
		if err := r.transition(StateRetrieving); err != nil {
			return nil, err
		}
		start := time.Now()
		attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			matches, err = p.kb.Query(ctx, queryText, p.topK)
			return err
		}, r.retryHook(StageRetrieve))
		if err != nil {
			return nil, r.fail(StageRetrieve, attempts, err)
		}
		r.partial.Matches = matches
		r.monitor.StageCompleted(StageRetrieve, attempts, time.Since(start))
	}

	if err := r.transition(StateGenerating); err != nil {
		return nil, err
	}
	req := ai.NarrativeRequest{
		Entities: r.partial.Entities,
		Summary:  *r.partial.Summary,
		Context:  matches,
		Patient:  patient,
	}
	narrative, degraded, err := p.generate(ctx, r, req)
	if err != nil {
		return nil, err
	}

	report, err := core.NewReport(core.ReportDraft{
		ID:         r.id,
		SourceText: sourceText,
		Patient:    patient,
		Entities:   r.partial.Entities,
		Summary:    r.partial.Summary,
		Narrative:  narrative,
		Context:    matches,
		Degraded:   degraded,
	}, p.now())
	if err != nil {
		return nil, r.fail(StageStore, 0, err)
	}
	if err := p.reports.PutReport(ctx, report); err != nil {
		return nil, r.fail(StageStore, 1, err)
	}

	if err := r.transition(StateCompleted); err != nil {
		return nil, err
	}
	r.logger.Info("report generated",
		"entities", len(report.Entities),
		"matches", len(matches),
		"degraded", degraded)
	r.monitor.Finish(report)
	return report, nil
}

// generate writes the narrative, falling back to the template generator
// when the configured one keeps failing.
func (p *Pipeline) generate(ctx context.Context, r *run, req ai.NarrativeRequest) (string, bool, error) {
	start := time.Now()
	var narrative string
	attempts, err := p.retry.Do(ctx, func(ctx context.Context) error {
		var err error
		narrative, err = p.provider.NarrativeGenerator().GenerateNarrative(ctx, req)
		return err
	}, r.retryHook(StageGenerate))
	if err == nil {
		r.monitor.StageCompleted(StageGenerate, attempts, time.Since(start))
		return narrative, false, nil
	}
	if ctx.Err() != nil {
		return "", false, r.fail(StageGenerate, attempts, err)
	}

	r.logger.Warn("narrative generation failed, using template", "attempts", attempts, "err", err)
	narrative, fbErr := p.fallback.GenerateNarrative(ctx, req)
	if fbErr != nil {
		return "", false, r.fail(StageGenerate, attempts, errors.Join(err, fbErr))
	}
	r.monitor.StageCompleted(StageGenerate, attempts, time.Since(start))
	return narrative, true, nil
}

// indexInBackground adds text to the knowledge base on the worker pool.
// Failures are logged; they never affect the run that produced the text.
func (p *Pipeline) indexInBackground(text string) {
	p.background.Add(1)
	err := p.pool.Submit(func() {
		defer p.background.Done()
		ids, err := p.kb.IndexDocument(context.Background(), text)
		if err != nil {
			p.logger.Error("error indexing transcript", "err", err)
			return
		}
		p.logger.Debug("indexed transcript", "chunks", len(ids))
	})
	if err != nil {
		p.background.Done()
		p.logger.Error("error scheduling transcript indexing", "err", err)
	}
}

// Wait blocks until background indexing has drained.
func (p *Pipeline) Wait() {
	p.background.Wait()
}

// Release waits for background work and releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.Wait()
	if p.pool != nil {
		p.pool.Release()
	}
}
