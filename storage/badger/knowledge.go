package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/medscribe/core"
	"github.com/poiesic/medscribe/storage"
)

// KnowledgeRepository implements storage.KnowledgeRepository for BadgerDB.
type KnowledgeRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.KnowledgeRepository = (*KnowledgeRepository)(nil)

// NewKnowledgeRepository creates a new KnowledgeRepository.
func NewKnowledgeRepository(backend *Backend) (*KnowledgeRepository, error) {
	idSeq, err := backend.GetSequence(knowledgeIDSeq)
	if err != nil {
		return nil, err
	}

	return &KnowledgeRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *KnowledgeRepository) Close() error {
	return r.idSeq.Release()
}

// AddKnowledgeRecords stores records, assigning IDs in argument order.
func (r *KnowledgeRepository) AddKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) ([]*core.KnowledgeRecord, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, record := range records {
			if record.ID == 0 {
				id, err := r.nextID()
				if err != nil {
					return err
				}
				record.ID = id
			}
			if record.InsertedAt.IsZero() {
				record.InsertedAt = now
			}

			key := makeKnowledgeKey(record.ID)
			if err := tx.Set(key, storage.MarshalKnowledgeRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateKnowledgeRecords replaces existing records in one transaction.
func (r *KnowledgeRepository) UpdateKnowledgeRecords(ctx context.Context, records ...*core.KnowledgeRecord) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, record := range records {
			key := makeKnowledgeKey(record.ID)
			if _, err := tx.Get(key); err != nil {
				if errors.Is(err, badger.ErrKeyNotFound) {
					return fmt.Errorf("%w: knowledge record %d", storage.ErrNotFound, record.ID)
				}
				return err
			}
			if err := tx.Set(key, storage.MarshalKnowledgeRecord(record)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// nextID draws from the sequence.
func (r *KnowledgeRepository) nextID() (core.ID, error) {
	id, err := r.idSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if id == 0 {
		id, err = r.idSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return core.ID(id), nil
}

// GetKnowledgeRecord retrieves a single record by ID.
func (r *KnowledgeRepository) GetKnowledgeRecord(ctx context.Context, id core.ID) (*core.KnowledgeRecord, error) {
	var result *core.KnowledgeRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeKnowledgeKey(id))
		if err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			result, unmarshalErr = storage.UnmarshalKnowledgeRecord(val)
			return unmarshalErr
		})
	}, false)
	return result, err
}

// ForEachKnowledgeRecord calls fn for every record in ascending ID order.
func (r *KnowledgeRepository) ForEachKnowledgeRecord(ctx context.Context, fn func(*core.KnowledgeRecord) error) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(knowledgeRecordPrefix)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var record *core.KnowledgeRecord
			err := iter.Item().Value(func(val []byte) error {
				var err error
				record, err = storage.UnmarshalKnowledgeRecord(val)
				return err
			})
			if err != nil {
				return err
			}
			if err := fn(record); err != nil {
				return err
			}
		}
		return nil
	}, false)
}

// CountKnowledgeRecords returns the number of stored records.
func (r *KnowledgeRepository) CountKnowledgeRecords(ctx context.Context) (int, error) {
	count := 0
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(knowledgeRecordPrefix)
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}
