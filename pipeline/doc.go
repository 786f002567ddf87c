// Package pipeline orchestrates a clinical report run.
//
// A run moves through RECEIVED, TRANSCRIBING (audio only), ANALYZING
// (entity extraction and summarization in parallel), RETRIEVING and
// GENERATING to COMPLETED, or to FAILED from any of them:
//
//	p, err := pipeline.New(provider, reports,
//	    pipeline.WithKnowledgeBase(kb),
//	    pipeline.WithTranscriptIndexing(true),
//	)
//	defer p.Release()
//
//	result, err := p.Process(ctx, pipeline.Input{Text: conversation})
//
// Adapter calls are retried under a RetryPolicy when they fail
// transiently. Failures are returned as *StageError with the outputs that
// had already completed.
package pipeline
