// Package local provides deterministic, in-process implementations of the
// AI capabilities. They need no network access, which makes them the
// default for development and the basis of most tests.
//
//   - LexiconExtractor matches a built-in medical lexicon against text.
//   - ExtractiveSummarizer keeps the most representative sentences.
//   - HashEmbedder hashes words and word pairs into a fixed-size vector.
//   - TemplateGenerator assembles a narrative from report inputs.
//   - GlossaryExplainer explains lexicon terms.
//
// There is no local transcriber.
package local
