package local

import (
	"context"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// bigramWeight scales word pair features against single words.
const bigramWeight = 0.5

// HashEmbedder produces deterministic embeddings by hashing words and
// adjacent word pairs into a fixed number of buckets. Texts sharing
// vocabulary land close together under cosine similarity.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates an embedder producing vectors of length dims.
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

// Dimensions implements ai.Embedder.
func (e *HashEmbedder) Dimensions() int {
	return e.dims
}

// EmbedText implements ai.Embedder.
func (e *HashEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.embed(text), nil
}

// EmbedTexts implements ai.Embedder.
func (e *HashEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

func (e *HashEmbedder) embed(text string) []float32 {
	vec := make([]float32, e.dims)
	words := tokenizeAndFilter(text)
	for i, w := range words {
		e.add(vec, w, 1)
		if i > 0 {
			e.add(vec, words[i-1]+" "+w, bigramWeight)
		}
	}
	return ai.NormalizeVector(vec)
}

func (e *HashEmbedder) add(vec []float32, feature string, weight float32) {
	h := uint64(core.IDFromContent(feature))
	bucket := h % uint64(e.dims)
	if h>>63 == 1 {
		weight = -weight
	}
	vec[bucket] += weight
}
