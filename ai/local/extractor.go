package local

import (
	"context"
	"log/slog"
	"strings"

	"github.com/poiesic/medscribe/core"
)

// Confidence assigned to lexicon hits.
const (
	exactMatchConfidence  = 0.95
	pluralMatchConfidence = 0.85
)

// LexiconExtractor finds medical entities by matching the lexicon against
// the text, longest term first.
type LexiconExtractor struct {
	minConfidence float64
	logger        *slog.Logger
}

// NewLexiconExtractor creates an extractor that drops entities scored
// below minConfidence.
func NewLexiconExtractor(minConfidence float64) *LexiconExtractor {
	return &LexiconExtractor{
		minConfidence: minConfidence,
		logger:        slog.Default().With("component", "lexicon-extractor"),
	}
}

// ExtractEntities implements ai.EntityExtractor.
func (e *LexiconExtractor) ExtractEntities(ctx context.Context, text string) ([]core.Entity, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entities := []core.Entity{}
	if strings.TrimSpace(text) == "" {
		return entities, nil
	}

	tokens := tokenize(text)
	for i := 0; i < len(tokens); {
		n, entry, confidence := matchAt(tokens, i)
		if n == 0 {
			i++
			continue
		}
		start, end := tokens[i].start, tokens[i+n-1].end
		if confidence >= e.minConfidence {
			entities = append(entities, core.Entity{
				Term:       text[start:end],
				Type:       entry.Type,
				Confidence: confidence,
				Span:       core.Span{Start: start, End: end},
			})
		}
		i += n
	}

	e.logger.Debug("extracted entities", "count", len(entities), "tokens", len(tokens))
	return entities, nil
}

// matchAt returns the longest lexicon entry starting at tokens[i] and the
// number of tokens it covers, or zero when nothing matches.
func matchAt(tokens []token, i int) (int, *LexiconEntry, float64) {
	longest := maxTermWords
	if rest := len(tokens) - i; rest < longest {
		longest = rest
	}
	for n := longest; n > 0; n-- {
		words := make([]string, n)
		for j := 0; j < n; j++ {
			words[j] = tokens[i+j].text
		}
		key := strings.Join(words, " ")
		if entry, ok := lexiconIndex[key]; ok {
			return n, entry, exactMatchConfidence
		}
		if singular, ok := singularize(key); ok {
			if entry, ok := lexiconIndex[singular]; ok {
				return n, entry, pluralMatchConfidence
			}
		}
	}
	return 0, nil, 0
}
