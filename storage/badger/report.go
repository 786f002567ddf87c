package badger

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage"
)

// ReportRepository implements storage.ReportRepository for BadgerDB.
// Reports are written once and never updated.
type ReportRepository struct {
	backend *Backend
	ttl     time.Duration
}

var _ storage.ReportRepository = (*ReportRepository)(nil)

// ReportOption configures a ReportRepository.
type ReportOption func(*ReportRepository)

// WithReportTTL expires reports after ttl. Zero keeps them until deleted.
func WithReportTTL(ttl time.Duration) ReportOption {
	return func(r *ReportRepository) {
		if ttl < 0 {
			ttl = 0
		}
		r.ttl = ttl
	}
}

// NewReportRepository creates a new ReportRepository.
func NewReportRepository(backend *Backend, opts ...ReportOption) *ReportRepository {
	r := &ReportRepository{backend: backend}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Close is a no-op; the backend owns the database.
func (r *ReportRepository) Close() error {
	return nil
}

// PutReport stores a report under its ID.
func (r *ReportRepository) PutReport(ctx context.Context, report *core.Report) error {
	key := makeReportKey(report.ID)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(key)
		if err == nil {
			return storage.ErrDuplicateKey
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		entry := badger.NewEntry(key, storage.MarshalReport(report))
		if r.ttl > 0 {
			entry = entry.WithTTL(r.ttl)
		}
		if err := tx.SetEntry(entry); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	// A concurrent writer committed the same key first
	if errors.Is(err, badger.ErrConflict) {
		return storage.ErrDuplicateKey
	}
	return err
}

// GetReport retrieves a report by ID.
func (r *ReportRepository) GetReport(ctx context.Context, id string) (*core.Report, error) {
	var result *core.Report
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeReportKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalReport(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// DeleteReport evicts a report.
func (r *ReportRepository) DeleteReport(ctx context.Context, id string) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		key := makeReportKey(id)
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}
