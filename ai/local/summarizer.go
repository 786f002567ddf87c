package local

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
)

// ExtractiveSummarizer condenses text by keeping its highest scoring
// sentences in their original order. Sentences score by the frequency of
// their words across the text, with a bonus for medical terms.
type ExtractiveSummarizer struct {
	logger *slog.Logger
}

// NewExtractiveSummarizer creates a new extractive summarizer.
func NewExtractiveSummarizer() *ExtractiveSummarizer {
	return &ExtractiveSummarizer{logger: slog.Default().With("component", "extractive-summarizer")}
}

type scoredSentence struct {
	index int
	text  string
	words int
	score float64
}

// Summarize implements ai.Summarizer.
func (s *ExtractiveSummarizer) Summarize(ctx context.Context, text string, maxLength, minLength int) (*core.Summary, error) {
	if err := ai.ValidateSummaryBounds(maxLength, minLength); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if summary := ai.Verbatim(text, minLength); summary != nil {
		return summary, nil
	}

	source := ai.TruncateRunes(text, ai.MaxSummaryInput)
	sentences := s.score(source)

	// Aim for a third of the source, kept within the requested bounds.
	budget := core.WordCount(source) / 3
	if budget < minLength {
		budget = minLength
	}
	if budget > maxLength {
		budget = maxLength
	}

	ranked := make([]scoredSentence, len(sentences))
	copy(ranked, sentences)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	var picked []scoredSentence
	used := 0
	for _, sent := range ranked {
		if len(picked) > 0 && used+sent.words > budget {
			continue
		}
		picked = append(picked, sent)
		used += sent.words
		if used >= budget {
			break
		}
	}
	sort.Slice(picked, func(i, j int) bool { return picked[i].index < picked[j].index })

	parts := make([]string, len(picked))
	for i, sent := range picked {
		parts[i] = sent.text
	}
	summary := ai.ClampWords(strings.Join(parts, " "), maxLength)

	s.logger.Debug("summarized text",
		"sentences", len(sentences),
		"kept", len(picked),
		"words", core.WordCount(summary))
	return core.NewSummary(text, summary), nil
}

func (s *ExtractiveSummarizer) score(text string) []scoredSentence {
	raw := splitSentences(text)
	freq := make(map[string]int)
	for _, w := range tokenizeAndFilter(text) {
		freq[w]++
	}

	sentences := make([]scoredSentence, len(raw))
	for i, sent := range raw {
		words := tokenizeAndFilter(sent)
		score := 0.0
		for _, w := range words {
			score += float64(freq[w])
		}
		if len(words) > 0 {
			score /= float64(len(words))
		}
		tokens := tokenize(sent)
		for j := 0; j < len(tokens); {
			n, _, _ := matchAt(tokens, j)
			if n == 0 {
				j++
				continue
			}
			score += 1
			j += n
		}
		sentences[i] = scoredSentence{
			index: i,
			text:  sent,
			words: core.WordCount(sent),
			score: score,
		}
	}
	return sentences
}
