// Package kvstore is the embedded Badger implementation of the account store.
package kvstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/dgraph-io/badger/v3"
	"go.uber.org/zap"

	"github.com/sudo-init-do/fintrade/internal/ledger"
)

// Conflicting Updates are replayed after a jittered exponential backoff,
// up to maxConflictRetries attempts.
const (
	maxConflictRetries = 25
	baseRetryDelay     = 2 * time.Millisecond
	maxRetryDelay      = 100 * time.Millisecond
)

var ErrClosed = errors.New("kvstore: database closed")

type Store struct {
	db  *badger.DB
	log *zap.Logger
}

// Open opens (or creates) the database under dir. An empty dir opens an
// in-memory database.
func Open(dir string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	options := badger.DefaultOptions(dir)
	if dir == "" {
		options = options.WithInMemory(true)
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	options.Logger = nil // Disable badger's own logging

	db, err := badger.Open(options)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db.IsClosed() {
		return ErrClosed
	}
	return ctx.Err()
}

// Update runs fn in a read-write transaction. Conflicting commits are
// retried with a fresh transaction.
func (s *Store) Update(ctx context.Context, fn func(tx ledger.Tx) error) error {
	var err error
	for attempt := 1; attempt <= maxConflictRetries; attempt++ {
		if err = ctx.Err(); err != nil {
			return err
		}
		err = s.db.Update(func(txn *badger.Txn) error {
			return fn(&tx{txn: txn})
		})
		if !errors.Is(err, badger.ErrConflict) {
			return err
		}
		if attempt == maxConflictRetries {
			break
		}
		s.log.Debug("badger transaction conflict, retrying", zap.Int("attempt", attempt))
		if werr := sleepCtx(ctx, retryDelay(attempt)); werr != nil {
			return werr
		}
	}
	s.log.Warn("badger transaction conflict retries exhausted", zap.Int("attempts", maxConflictRetries))
	return err
}

// retryDelay returns a full-jitter delay for the given attempt.
func retryDelay(attempt int) time.Duration {
	d := baseRetryDelay << min(attempt-1, 6)
	if d > maxRetryDelay {
		d = maxRetryDelay
	}
	return time.Duration(rand.Int64N(int64(d))) + time.Millisecond
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (s *Store) View(ctx context.Context, fn func(tx ledger.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.db.View(func(txn *badger.Txn) error {
		return fn(&tx{txn: txn})
	})
}

// RunGC reclaims space in the value log.
func (s *Store) RunGC() error {
	err := s.db.RunValueLogGC(0.5)
	if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
		return nil
	}
	return err
}

// tx adapts a badger transaction to ledger.Tx.
type tx struct {
	txn *badger.Txn
}

func (t *tx) getJSON(key []byte, v any) error {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return ledger.ErrNotFound
		}
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

func (t *tx) setJSON(key []byte, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return t.txn.Set(key, b)
}

func (t *tx) exists(key []byte) (bool, error) {
	_, err := t.txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	return err == nil, err
}

// indexTarget reads the record id stored under an index key.
func (t *tx) indexTarget(key []byte) (string, error) {
	item, err := t.txn.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return "", ledger.ErrNotFound
		}
		return "", err
	}
	val, err := item.ValueCopy(nil)
	return string(val), err
}

// scan walks the keys under prefix, newest first when reverse is set,
// stopping once fn returns false.
func (t *tx) scan(prefix []byte, reverse bool, fn func(item *badger.Item) (bool, error)) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.Reverse = reverse
	it := t.txn.NewIterator(opts)
	defer it.Close()

	start := prefix
	if reverse {
		start = append(append([]byte{}, prefix...), 0xFF)
	}
	for it.Seek(start); it.ValidForPrefix(prefix); it.Next() {
		more, err := fn(it.Item())
		if err != nil {
			return err
		}
		if !more {
			return nil
		}
	}
	return nil
}

func (t *tx) countPrefix(prefix []byte) (int, error) {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	it := t.txn.NewIterator(opts)
	defer it.Close()

	n := 0
	for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
		n++
	}
	return n, nil
}
