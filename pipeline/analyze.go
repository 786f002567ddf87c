package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/poiesic/medscribe/core"
)

type extraction struct {
	entities []core.Entity
	attempts int
	elapsed  time.Duration
	err      error
}

type summarization struct {
	summary  *core.Summary
	attempts int
	elapsed  time.Duration
	err      error
}

// analyze extracts entities and summarizes text concurrently. The first
// branch to fail cancels its sibling and fails the run without waiting
// for it.
func (p *Pipeline) analyze(ctx context.Context, r *run, text string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	extracted := make(chan extraction, 1)
	summarized := make(chan summarization, 1)
	extractor := p.provider.EntityExtractor()
	summarizer := p.provider.Summarizer()
	extractRetry := r.retryHook(StageExtract)
	summarizeRetry := r.retryHook(StageSummarize)

	go func() {
		var res extraction
		start := time.Now()
		res.attempts, res.err = p.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			res.entities, err = extractor.ExtractEntities(ctx, text)
			return err
		}, extractRetry)
		res.elapsed = time.Since(start)
		extracted <- res
	}()

	go func() {
		var res summarization
		start := time.Now()
		res.attempts, res.err = p.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			res.summary, err = summarizer.Summarize(ctx, text, p.maxLength, p.minLength)
			return err
		}, summarizeRetry)
		if res.err == nil && res.summary == nil {
			res.err = fmt.Errorf("%w: summarizer returned no summary", core.ErrCapabilityUnavailable)
		}
		res.elapsed = time.Since(start)
		summarized <- res
	}()

	for pending := 2; pending > 0; pending-- {
		select {
		case res := <-extracted:
			if res.err != nil {
				cancel()
				return r.fail(StageExtract, res.attempts, res.err)
			}
			r.partial.Entities = p.validEntities(r, res.entities, text)
			r.monitor.StageCompleted(StageExtract, res.attempts, res.elapsed)
		case res := <-summarized:
			if res.err != nil {
				cancel()
				return r.fail(StageSummarize, res.attempts, res.err)
			}
			r.partial.Summary = res.summary
			r.monitor.StageCompleted(StageSummarize, res.attempts, res.elapsed)
		}
	}
	return nil
}

// validEntities drops entities whose span or confidence is out of range.
func (p *Pipeline) validEntities(r *run, entities []core.Entity, text string) []core.Entity {
	valid := make([]core.Entity, 0, len(entities))
	for _, e := range entities {
		if err := core.ValidateEntity(e, text); err != nil {
			r.logger.Warn("dropping invalid entity", "term", e.Term, "err", err)
			continue
		}
		valid = append(valid, e)
	}
	return valid
}
