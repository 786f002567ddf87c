package ai

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/poiesic/medscribe/core"
)

// Summary length defaults, in words.
const (
	DefaultSummaryMaxLength = 200
	DefaultSummaryMinLength = 30
)

// MaxSummaryInput caps the characters handed to a summarization model.
const MaxSummaryInput = 50000

// ValidateSummaryBounds checks 0 < minLength <= maxLength.
func ValidateSummaryBounds(maxLength, minLength int) error {
	if minLength <= 0 || maxLength <= 0 {
		return fmt.Errorf("%w: summary lengths must be positive (max %d, min %d)",
			core.ErrInvalidParameter, maxLength, minLength)
	}
	if minLength > maxLength {
		return fmt.Errorf("%w: summary min length %d exceeds max length %d",
			core.ErrInvalidParameter, minLength, maxLength)
	}
	return nil
}

// Verbatim returns the summary of text that is already shorter than
// minLength words, or nil when text needs summarizing.
func Verbatim(text string, minLength int) *core.Summary {
	if core.WordCount(text) >= minLength {
		return nil
	}
	trimmed := strings.TrimSpace(text)
	return core.NewSummary(text, trimmed)
}

// ClampWords cuts text to at most maxWords words.
// Whitespace inside the kept prefix is preserved.
func ClampWords(text string, maxWords int) string {
	text = strings.TrimSpace(text)
	if maxWords <= 0 {
		return ""
	}
	words := 0
	inWord := false
	for i, r := range text {
		space := unicode.IsSpace(r)
		if !space && !inWord {
			words++
			if words > maxWords {
				return strings.TrimSpace(text[:i])
			}
		}
		inWord = !space
	}
	return text
}

// TruncateRunes cuts s to at most n characters without splitting a rune.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
