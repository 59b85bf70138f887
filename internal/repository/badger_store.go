package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"

	"github.com/ridwanfathin/labellens-service/internal/domain"
)

var (
	pendingPrefix   = []byte("pending/")
	confirmedPrefix = []byte("confirmed/")
	pendingSeqKey   = []byte("seq/pending")
)

// BadgerConfig holds configuration for the embedded store
type BadgerConfig struct {
	Dir      string
	InMemory bool
	Logger   zerolog.Logger
}

// BadgerStore is the default Store, an embedded Badger database. Each
// collection is a key prefix; keys are zero-padded so iteration order is
// numeric order.
type BadgerStore struct {
	db  *badger.DB
	seq *badger.Sequence
}

// NewBadgerStore opens (or creates) the database
func NewBadgerStore(cfg BadgerConfig) (*BadgerStore, error) {
	var opts badger.Options
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.Dir == "" {
			return nil, &domain.StorageError{Op: "open", Err: errors.New("badger directory is not configured")}
		}
		opts = badger.DefaultOptions(cfg.Dir)
	}
	opts = opts.WithLogger(badgerLogger{logger: cfg.Logger.With().Str("component", "badger").Logger()})

	db, err := badger.Open(opts)
	if err != nil {
		return nil, &domain.StorageError{Op: "open", Err: err}
	}

	seq, err := db.GetSequence(pendingSeqKey, 100)
	if err != nil {
		db.Close()
		return nil, &domain.StorageError{Op: "open_sequence", Err: err}
	}

	return &BadgerStore{db: db, seq: seq}, nil
}

func pendingKey(id int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", pendingPrefix, id))
}

func confirmedKey(ts int64) []byte {
	return []byte(fmt.Sprintf("%s%020d", confirmedPrefix, ts))
}

func (s *BadgerStore) Enqueue(_ context.Context, item domain.QueuedImage) (int64, error) {
	n, err := s.seq.Next()
	if err != nil {
		return 0, &domain.StorageError{Op: "enqueue", Err: err}
	}
	// Sequences start at zero; queue ids are positive.
	item.ID = int64(n) + 1
	if item.EnqueuedAt.IsZero() {
		item.EnqueuedAt = time.Now().UTC()
	}

	value, err := json.Marshal(item)
	if err != nil {
		return 0, &domain.StorageError{Op: "enqueue", Err: err}
	}

	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(pendingKey(item.ID), value)
	}); err != nil {
		return 0, &domain.StorageError{Op: "enqueue", Err: err}
	}
	return item.ID, nil
}

func (s *BadgerStore) ListPending(_ context.Context) ([]domain.QueuedImage, error) {
	var items []domain.QueuedImage
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, pendingPrefix, func(value []byte) error {
			var item domain.QueuedImage
			if err := json.Unmarshal(value, &item); err != nil {
				return err
			}
			items = append(items, item)
			return nil
		})
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "list_pending", Err: err}
	}
	return items, nil
}

func (s *BadgerStore) GetPending(_ context.Context, id int64) (domain.QueuedImage, error) {
	var item domain.QueuedImage
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, pendingKey(id), &item)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.QueuedImage{}, &domain.NotFoundError{Collection: CollectionPending, Key: id}
	}
	if err != nil {
		return domain.QueuedImage{}, &domain.StorageError{Op: "get_pending", Err: err}
	}
	return item, nil
}

func (s *BadgerStore) UpdatePendingFields(_ context.Context, id int64, fields domain.PartialDetails) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var item domain.QueuedImage
		if err := getJSON(txn, pendingKey(id), &item); err != nil {
			return err
		}
		item.Prefilled = item.Prefilled.Merge(fields)
		return setJSON(txn, pendingKey(id), item)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &domain.NotFoundError{Collection: CollectionPending, Key: id}
	}
	if err != nil {
		return &domain.StorageError{Op: "update_pending_fields", Err: err}
	}
	return nil
}

func (s *BadgerStore) RemovePending(_ context.Context, id int64) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(pendingKey(id))
	}); err != nil {
		return &domain.StorageError{Op: "remove_pending", Err: err}
	}
	return nil
}

func (s *BadgerStore) AddConfirmed(_ context.Context, product domain.ConfirmedProduct) (int64, error) {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return setJSON(txn, confirmedKey(product.Timestamp), product)
	}); err != nil {
		return 0, &domain.StorageError{Op: "add_confirmed", Err: err}
	}
	return product.Timestamp, nil
}

func (s *BadgerStore) PromotePending(_ context.Context, id int64, product domain.ConfirmedProduct) (int64, error) {
	if err := s.db.Update(func(txn *badger.Txn) error {
		if err := setJSON(txn, confirmedKey(product.Timestamp), product); err != nil {
			return err
		}
		return txn.Delete(pendingKey(id))
	}); err != nil {
		return 0, &domain.StorageError{Op: "promote_pending", Err: err}
	}
	return product.Timestamp, nil
}

func (s *BadgerStore) ListConfirmed(_ context.Context) ([]domain.ConfirmedProduct, error) {
	var products []domain.ConfirmedProduct
	err := s.db.View(func(txn *badger.Txn) error {
		return scanPrefix(txn, confirmedPrefix, func(value []byte) error {
			var p domain.ConfirmedProduct
			if err := json.Unmarshal(value, &p); err != nil {
				return err
			}
			products = append(products, p)
			return nil
		})
	})
	if err != nil {
		return nil, &domain.StorageError{Op: "list_confirmed", Err: err}
	}
	return products, nil
}

func (s *BadgerStore) GetConfirmed(_ context.Context, timestamp int64) (domain.ConfirmedProduct, error) {
	var p domain.ConfirmedProduct
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, confirmedKey(timestamp), &p)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return domain.ConfirmedProduct{}, &domain.NotFoundError{Collection: CollectionConfirmed, Key: timestamp}
	}
	if err != nil {
		return domain.ConfirmedProduct{}, &domain.StorageError{Op: "get_confirmed", Err: err}
	}
	return p, nil
}

func (s *BadgerStore) UpdateConfirmed(_ context.Context, timestamp int64, details domain.ProductDetails) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		var p domain.ConfirmedProduct
		if err := getJSON(txn, confirmedKey(timestamp), &p); err != nil {
			return err
		}
		p.Details = details
		return setJSON(txn, confirmedKey(timestamp), p)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return &domain.NotFoundError{Collection: CollectionConfirmed, Key: timestamp}
	}
	if err != nil {
		return &domain.StorageError{Op: "update_confirmed", Err: err}
	}
	return nil
}

func (s *BadgerStore) RemoveConfirmed(_ context.Context, timestamp int64) error {
	if err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(confirmedKey(timestamp))
	}); err != nil {
		return &domain.StorageError{Op: "remove_confirmed", Err: err}
	}
	return nil
}

func (s *BadgerStore) RemoveAllConfirmed(_ context.Context) error {
	if err := s.db.DropPrefix(confirmedPrefix); err != nil {
		return &domain.StorageError{Op: "remove_all_confirmed", Err: err}
	}
	return nil
}

// Close releases the id sequence and closes the database
func (s *BadgerStore) Close() error {
	seqErr := s.seq.Release()
	if err := s.db.Close(); err != nil {
		return &domain.StorageError{Op: "close", Err: err}
	}
	if seqErr != nil {
		return &domain.StorageError{Op: "release_sequence", Err: seqErr}
	}
	return nil
}

func scanPrefix(txn *badger.Txn, prefix []byte, fn func(value []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	it := txn.NewIterator(opts)
	defer it.Close()

	for it.Rewind(); it.Valid(); it.Next() {
		if err := it.Item().Value(fn); err != nil {
			return err
		}
	}
	return nil
}

func getJSON(txn *badger.Txn, key []byte, out interface{}) error {
	item, err := txn.Get(key)
	if err != nil {
		return err
	}
	return item.Value(func(value []byte) error {
		return json.Unmarshal(value, out)
	})
}

func setJSON(txn *badger.Txn, key []byte, v interface{}) error {
	value, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return txn.Set(key, value)
}

// badgerLogger routes Badger's internal logging into zerolog
type badgerLogger struct {
	logger zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error().Msgf(format, args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn().Msgf(format, args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug().Msgf(format, args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Trace().Msgf(format, args...)
}
