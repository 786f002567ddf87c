// Package mock provides test double implementations of AI service interfaces.
//
// This package contains mocks for every capability in package ai, plus
// ai.AIProvider, for use in unit tests. The mocks allow tests to run without
// external AI service dependencies and enable controlled, deterministic
// behavior. All mocks are safe for concurrent use.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	provider := mock.NewMockProvider()
//	embedding, err := provider.Embedder().EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	summarizer := provider.(*mock.MockProvider).GetMockSummarizer()
//	summarizer.SummarizeFunc = func(ctx context.Context, text string, max, min int) (*core.Summary, error) {
//	    return nil, core.ErrCapabilityUnavailable
//	}
//
//	// Check call counts
//	count := summarizer.CallCount()
//
// # Default Behavior
//
//   - MockTranscriber: Returns DefaultTranscript
//   - MockEntityExtractor: Finds no entities
//   - MockSummarizer: Truncates text to the maximum length
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockNarrativeGenerator: Echoes the summary
//   - MockTermExplainer: Returns a placeholder explanation per term
package mock
