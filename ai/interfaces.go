package ai

import (
	"context"

	"github.com/poiesic/medscribe/core"
)

// Transcriber converts recorded audio into text.
// Implementations must be thread-safe for concurrent use.
type Transcriber interface {
	// Transcribe returns the transcript of the audio.
	// Returns core.ErrUnsupportedMedia if the audio cannot be decoded and
	// core.ErrCapabilityUnavailable if the service cannot be reached.
	Transcribe(ctx context.Context, audio core.Audio) (*core.Transcript, error)
}

// EntityExtractor finds medical entities in text.
// Implementations must be thread-safe for concurrent use.
type EntityExtractor interface {
	// ExtractEntities returns the entities found in text, with spans into text.
	// Returns an empty slice for empty text. Identical text yields identical
	// results for a fixed model.
	ExtractEntities(ctx context.Context, text string) ([]core.Entity, error)
}

// Summarizer condenses text.
// Implementations must be thread-safe for concurrent use.
type Summarizer interface {
	// Summarize returns a summary of at most maxLength words.
	// Returns core.ErrInvalidParameter unless 0 < minLength <= maxLength.
	// Text shorter than minLength words is returned verbatim.
	Summarize(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error)
}

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// The returned slice contains embeddings in the same order as the input texts.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the length of every vector this embedder produces.
	Dimensions() int
}

// NarrativeRequest carries everything a narrative is written from.
type NarrativeRequest struct {
	Entities []core.Entity
	Summary  core.Summary
	Context  []core.RetrievalMatch
	Patient  *core.PatientContext
}

// NarrativeGenerator writes the prose body of a clinical report.
// Implementations must be thread-safe for concurrent use.
type NarrativeGenerator interface {
	GenerateNarrative(ctx context.Context, req NarrativeRequest) (string, error)
}

// TermExplainer describes medical terms in plain language.
// Implementations must be thread-safe for concurrent use.
type TermExplainer interface {
	// ExplainTerms returns one explanation per term, in input order.
	ExplainTerms(ctx context.Context, terms []string) ([]core.TermExplanation, error)
}

// AIProvider aggregates AI services for convenient initialization and lifecycle management.
type AIProvider interface {
	Transcriber() Transcriber
	EntityExtractor() EntityExtractor
	Summarizer() Summarizer
	Embedder() Embedder
	NarrativeGenerator() NarrativeGenerator
	TermExplainer() TermExplainer

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}

// UnknownTermExplanation is the explanation given for a term no model
// could explain.
const UnknownTermExplanation = "No explanation available for this term."
