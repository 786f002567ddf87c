// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package knowledge

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/poiesic/medscribe/ai"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage"
)

// Defaults for a KnowledgeBase.
const (
	DefaultParallelThreshold = 4096
	DefaultChunkSize         = 200
	DefaultChunkOverlap      = 50
)

// KnowledgeBase is an append-only collection of embedded text snippets
// searchable by semantic similarity.
//
// Inserts are serialized. Queries run concurrently with inserts and see
// each record entirely or not at all.
type KnowledgeBase struct {
	embedder ai.Embedder
	dims     int
	repo     storage.KnowledgeRepository

	writeMu sync.Mutex   // serializes inserts
	mu      sync.RWMutex // guards records and nextID
	records []*core.KnowledgeRecord
	nextID  core.ID

	parallelThreshold int
	shards            int
	chunkSize         int
	chunkOverlap      int
	workers           int
	logger            *slog.Logger
}

// Option configures a KnowledgeBase.
type Option func(*KnowledgeBase) error

// WithParallelThreshold sets the record count above which queries scan in
// parallel shards. Default is 4096.
func WithParallelThreshold(n int) Option {
	return func(kb *KnowledgeBase) error {
		if n < 1 {
			return fmt.Errorf("%w: parallel threshold must be positive", core.ErrInvalidParameter)
		}
		kb.parallelThreshold = n
		return nil
	}
}

// WithShards sets the number of parallel scan shards.
// Default is runtime.NumCPU().
func WithShards(n int) Option {
	return func(kb *KnowledgeBase) error {
		if n < 1 {
			return fmt.Errorf("%w: shard count must be positive", core.ErrInvalidParameter)
		}
		kb.shards = n
		return nil
	}
}

// WithChunking sets how IndexDocument splits text, in characters.
// Default is 200 character chunks overlapping by 50.
func WithChunking(size, overlap int) Option {
	return func(kb *KnowledgeBase) error {
		if size < 1 || overlap < 0 || overlap >= size {
			return fmt.Errorf("%w: chunk size %d with overlap %d", core.ErrInvalidParameter, size, overlap)
		}
		kb.chunkSize = size
		kb.chunkOverlap = overlap
		return nil
	}
}

// WithWorkers sets the worker pool size used by Ingest.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithWorkers(n int) Option {
	return func(kb *KnowledgeBase) error {
		if n < 1 {
			n = 1
		}
		kb.workers = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(kb *KnowledgeBase) error {
		if logger == nil {
			logger = slog.Default()
		}
		kb.logger = logger
		return nil
	}
}

// New creates an empty in-memory knowledge base. Its dimension is fixed to
// the embedder's.
func New(embedder ai.Embedder, opts ...Option) (*KnowledgeBase, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if embedder.Dimensions() < 1 {
		return nil, fmt.Errorf("%w: embedder dimension %d", core.ErrInvalidParameter, embedder.Dimensions())
	}

	workers := runtime.NumCPU() / 2
	if workers < 1 {
		workers = 1
	}
	kb := &KnowledgeBase{
		embedder:          embedder,
		dims:              embedder.Dimensions(),
		parallelThreshold: DefaultParallelThreshold,
		shards:            runtime.NumCPU(),
		chunkSize:         DefaultChunkSize,
		chunkOverlap:      DefaultChunkOverlap,
		workers:           workers,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(kb); err != nil {
			return nil, err
		}
	}
	kb.logger = kb.logger.With("component", "knowledge")
	return kb, nil
}

// Open creates a knowledge base persisted in repo and loads the records
// already stored there. A stored record of a different dimension fails
// with core.ErrDimensionMismatch.
func Open(ctx context.Context, embedder ai.Embedder, repo storage.KnowledgeRepository, opts ...Option) (*KnowledgeBase, error) {
	if repo == nil {
		return nil, ErrRepositoryRequired
	}
	kb, err := New(embedder, opts...)
	if err != nil {
		return nil, err
	}
	kb.repo = repo

	err = repo.ForEachKnowledgeRecord(ctx, func(record *core.KnowledgeRecord) error {
		if len(record.Embedding) != kb.dims {
			return &core.DimensionMismatchError{Expected: kb.dims, Actual: len(record.Embedding)}
		}
		kb.records = append(kb.records, record)
		kb.nextID = max(kb.nextID, record.ID)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("loading knowledge records: %w", err)
	}

	kb.logger.Info("knowledge base loaded", "records", len(kb.records), "dimensions", kb.dims)
	return kb, nil
}

// Dimensions returns the fixed embedding dimension.
func (kb *KnowledgeBase) Dimensions() int {
	return kb.dims
}

// Len returns the number of records.
func (kb *KnowledgeBase) Len() int {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return len(kb.records)
}

// Get returns the record with the given id.
func (kb *KnowledgeBase) Get(id core.ID) (*core.KnowledgeRecord, error) {
	records := kb.snapshot()
	// Ids ascend with position.
	lo, hi := 0, len(records)
	for lo < hi {
		mid := (lo + hi) / 2
		switch {
		case records[mid].ID == id:
			return records[mid], nil
		case records[mid].ID < id:
			lo = mid + 1
		default:
			hi = mid
		}
	}
	return nil, fmt.Errorf("%w: knowledge record %d", core.ErrNotFound, id)
}

// Insert embeds text and appends it. Inserting the same text twice yields
// two records.
func (kb *KnowledgeBase) Insert(ctx context.Context, text string) (core.ID, error) {
	ids, err := kb.InsertBatch(ctx, []string{text})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertBatch embeds texts in one call and appends them. Ids are assigned
// in input order.
func (kb *KnowledgeBase) InsertBatch(ctx context.Context, texts []string) ([]core.ID, error) {
	if len(texts) == 0 {
		return []core.ID{}, nil
	}
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("%w: knowledge text %d: %w", core.ErrInvalidInput, i, core.ErrEmptyContent)
		}
	}

	vectors, err := kb.embed(ctx, texts)
	if err != nil {
		return nil, err
	}
	return kb.append(ctx, texts, vectors)
}

// IndexDocument splits a document into overlapping chunks and inserts each.
func (kb *KnowledgeBase) IndexDocument(ctx context.Context, text string) ([]core.ID, error) {
	chunks, err := kb.split(text)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: document: %w", core.ErrInvalidInput, core.ErrEmptyContent)
	}
	kb.logger.Debug("indexing document", "characters", len(text), "chunks", len(chunks))
	return kb.InsertBatch(ctx, chunks)
}

func (kb *KnowledgeBase) split(text string) ([]string, error) {
	splitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(kb.chunkSize),
		textsplitter.WithChunkOverlap(kb.chunkOverlap),
	)
	parts, err := splitter.SplitText(text)
	if err != nil {
		return nil, fmt.Errorf("splitting document: %w", err)
	}
	chunks := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			chunks = append(chunks, p)
		}
	}
	return chunks, nil
}

// embed returns unit vectors for texts, checking the dimension of each.
func (kb *KnowledgeBase) embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors, err := kb.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: embedder returned %d vectors for %d texts",
			core.ErrCapabilityUnavailable, len(vectors), len(texts))
	}
	for i, v := range vectors {
		if len(v) != kb.dims {
			return nil, &core.DimensionMismatchError{Expected: kb.dims, Actual: len(v)}
		}
		vectors[i] = ai.NormalizeVector(v)
	}
	return vectors, nil
}

// append assigns ids, persists and publishes records.
func (kb *KnowledgeBase) append(ctx context.Context, texts []string, vectors [][]float32) ([]core.ID, error) {
	kb.writeMu.Lock()
	defer kb.writeMu.Unlock()

	now := time.Now().UTC()
	records := make([]*core.KnowledgeRecord, len(texts))
	for i, text := range texts {
		records[i] = &core.KnowledgeRecord{Text: text, Embedding: vectors[i], InsertedAt: now}
	}

	if kb.repo != nil {
		if _, err := kb.repo.AddKnowledgeRecords(ctx, records...); err != nil {
			return nil, fmt.Errorf("persisting knowledge records: %w", err)
		}
	} else {
		kb.mu.RLock()
		next := kb.nextID
		kb.mu.RUnlock()
		for _, r := range records {
			next++
			r.ID = next
		}
	}

	ids := make([]core.ID, len(records))
	kb.mu.Lock()
	for i, r := range records {
		ids[i] = r.ID
		kb.nextID = max(kb.nextID, r.ID)
	}
	kb.records = append(kb.records, records...)
	kb.mu.Unlock()

	kb.logger.Debug("inserted knowledge records", "count", len(records), "total", kb.Len())
	return ids, nil
}

// snapshot returns the current records. Records are immutable and the
// slice is only ever appended to, so the returned view stays valid.
func (kb *KnowledgeBase) snapshot() []*core.KnowledgeRecord {
	kb.mu.RLock()
	defer kb.mu.RUnlock()
	return kb.records[:len(kb.records):len(kb.records)]
}
