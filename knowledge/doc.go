// Package knowledge implements the medical knowledge base: an append-only
// store of text snippets ranked against a query by the cosine similarity of
// their embeddings.
//
// Every vector is L2-normalized on the way in, so similarity is a dot
// product. Results are ordered by descending score with ties broken by
// ascending record id, which makes rankings deterministic. Small bases are
// scanned directly; above a threshold the scan is split across goroutines
// and the per-shard winners merged under the same order.
//
// A KnowledgeBase created with New lives in memory. Open attaches a
// storage.KnowledgeRepository, loads its records and persists new ones.
package knowledge
