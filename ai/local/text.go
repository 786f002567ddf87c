package local

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Stop words ignored when weighing words for summaries and embeddings
var stopWords = map[string]bool{
	"the": true, "a": true, "an": true, "be": true, "is": true, "are": true,
	"was": true, "to": true, "of": true, "and": true, "in": true, "that": true,
	"have": true, "it": true, "for": true, "not": true, "on": true, "with": true,
	"as": true, "you": true, "do": true, "at": true, "this": true, "but": true,
	"by": true, "from": true, "i": true, "he": true, "she": true, "they": true,
	"we": true, "his": true, "her": true, "my": true, "your": true, "has": true,
	"had": true, "or": true, "so": true, "any": true, "some": true, "been": true,
	"were": true, "me": true, "if": true, "there": true, "what": true, "about": true,
}

// token is a lowercased word and its byte offsets in the source text.
type token struct {
	text  string
	start int
	end   int
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

// tokenize splits text into lowercased words. Hyphens and apostrophes
// inside a word are kept, so "x-ray" and "covid-19" stay whole.
func tokenize(text string) []token {
	var tokens []token
	start := -1
	for i, r := range text {
		inner := false
		if (r == '-' || r == '\'') && start >= 0 && i+1 < len(text) {
			next, _ := utf8.DecodeRuneInString(text[i+1:])
			inner = isWordRune(next)
		}
		if isWordRune(r) || inner {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			tokens = append(tokens, token{text: strings.ToLower(text[start:i]), start: start, end: i})
			start = -1
		}
	}
	if start >= 0 {
		tokens = append(tokens, token{text: strings.ToLower(text[start:]), start: start, end: len(text)})
	}
	return tokens
}

// tokenizeAndFilter returns the lowercased words of text without stop words.
func tokenizeAndFilter(text string) []string {
	tokens := tokenize(text)
	filtered := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !stopWords[t.text] {
			filtered = append(filtered, t.text)
		}
	}
	return filtered
}

// splitSentences breaks text on sentence-ending punctuation followed by
// whitespace, or on line breaks.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	runes := []rune(text)
	flush := func(end int) {
		s := strings.TrimSpace(string(runes[start:end]))
		if s != "" {
			sentences = append(sentences, s)
		}
		start = end
	}
	for i, r := range runes {
		switch {
		case r == '\n':
			flush(i + 1)
		case (r == '.' || r == '!' || r == '?') && (i+1 == len(runes) || unicode.IsSpace(runes[i+1])):
			flush(i + 1)
		}
	}
	if start < len(runes) {
		flush(len(runes))
	}
	return sentences
}
