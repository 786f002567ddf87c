package storage

import (
	"context"

	"github.com/poiesic/medscribe/core"
)

// KnowledgeRepository persists knowledge base records.
// Implementations must be thread-safe and support concurrent access.
type KnowledgeRepository interface {
	// AddKnowledgeRecords stores one or more records.
	// Records with ID=0 get a new ID from the sequence, assigned in argument order.
	// Sets InsertedAt if not already set.
	// Returns the records with IDs and timestamps populated.
	AddKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) ([]*core.KnowledgeRecord, error)

	// UpdateKnowledgeRecords replaces stored records that already exist.
	// Returns ErrNotFound if any record doesn't exist, in which case nothing is written.
	UpdateKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) error

	// GetKnowledgeRecord retrieves a single record by ID.
	// Returns ErrNotFound if the record doesn't exist.
	GetKnowledgeRecord(ctx context.Context, id core.ID) (*core.KnowledgeRecord, error)

	// ForEachKnowledgeRecord calls fn for every record in ascending ID order.
	// Iteration stops at the first error returned by fn.
	ForEachKnowledgeRecord(ctx context.Context, fn func(*core.KnowledgeRecord) error) error

	// CountKnowledgeRecords returns the number of stored records.
	CountKnowledgeRecords(ctx context.Context) (int, error)

	// Close releases resources held by the repository.
	Close() error
}

// ReportRepository stores generated reports. Reports are insert-once.
type ReportRepository interface {
	// PutReport stores a report under its ID.
	// Returns ErrDuplicateKey if a report with the same ID exists.
	PutReport(ctx context.Context, report *core.Report) error

	// GetReport retrieves a report by ID.
	// Returns ErrNotFound if the report doesn't exist or has expired,
	// ErrStorageClosed if the store is closed.
	GetReport(ctx context.Context, id string) (*core.Report, error)

	// DeleteReport evicts a report.
	// Returns ErrNotFound if the report doesn't exist.
	DeleteReport(ctx context.Context, id string) error

	// Close releases resources held by the repository.
	Close() error
}
