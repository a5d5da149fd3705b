package kv

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

const (
	// DefaultMaxAttempts bounds the retry of a failed read-modify-write.
	DefaultMaxAttempts = 3
	// DefaultRetryDelay is the initial wait between attempts, doubled
	// on each retry.
	DefaultRetryDelay = 100 * time.Millisecond
)

var errSetFailed = errors.New("set failed")

// DB serializes mutations on top of a Store. The underlying store has no
// transactions, so two concurrent read-modify-writes of the same key
// would race and the later write would silently discard the earlier one.
// DB holds a per-key lock across the whole read-modify-write, making
// every in-process mutation of a key strictly ordered. Store I/O
// failures are retried a bounded number of times before surfacing.
type DB struct {
	store  Store
	logger logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	maxAttempts int
	retryDelay  time.Duration
}

// NewDB wraps store with per-key mutation ordering.
func NewDB(store Store, log logger.Logger) *DB {
	return &DB{
		store:       store,
		logger:      log,
		locks:       make(map[string]*sync.Mutex),
		maxAttempts: DefaultMaxAttempts,
		retryDelay:  DefaultRetryDelay,
	}
}

func (db *DB) keyLock(key string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()

	l, ok := db.locks[key]
	if !ok {
		l = &sync.Mutex{}
		db.locks[key] = l
	}
	return l
}

// Read fetches one document. found is false when the key has never been
// written.
func (db *DB) Read(ctx context.Context, key string) ([]byte, bool, error) {
	docs, err := db.store.Get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	doc, ok := docs[key]
	return doc, ok, nil
}

// ReadMany fetches several documents in one round trip.
func (db *DB) ReadMany(ctx context.Context, keys ...string) (map[string][]byte, error) {
	return db.store.Get(ctx, keys...)
}

// Update runs a read-modify-write of one document under the key's lock.
// fn receives the current document (nil, found=false when absent) and
// returns the replacement; returning changed=false skips the write
// entirely. On store I/O failure the whole read-modify-write is retried
// with backoff up to the attempt bound.
func (db *DB) Update(ctx context.Context, key string, fn func(current []byte, found bool) (next []byte, changed bool, err error)) error {
	l := db.keyLock(key)
	l.Lock()
	defer l.Unlock()

	var lastErr error
	wait := db.retryDelay

	for attempt := 1; attempt <= db.maxAttempts; attempt++ {
		if attempt > 1 {
			db.logger.Warn("retrying document update",
				logger.String("key", key),
				logger.Int("attempt", attempt),
				logger.Error(lastErr))
			timer := time.NewTimer(wait)
			select {
			case <-timer.C:
			case <-ctx.Done():
				timer.Stop()
				return ctx.Err()
			}
			wait *= 2
		}

		err, retryable := db.tryUpdate(ctx, key, fn)
		if err == nil {
			return nil
		}
		// Mutation-level failures are the caller's business, never retried.
		if !retryable || ctx.Err() != nil {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("update of %s failed after %d attempts: %w", key, db.maxAttempts, lastErr)
}

func (db *DB) tryUpdate(ctx context.Context, key string, fn func([]byte, bool) ([]byte, bool, error)) (err error, retryable bool) {
	docs, err := db.store.Get(ctx, key)
	if err != nil {
		return err, true
	}
	current, found := docs[key]

	next, changed, err := fn(current, found)
	if err != nil {
		return err, false
	}
	if !changed {
		return nil, false
	}

	return db.store.Set(ctx, map[string][]byte{key: next}), true
}

// Write persists documents without a prior read. Used for documents the
// caller fully owns at that moment, like the migration flag or a replace
// import.
func (db *DB) Write(ctx context.Context, values map[string][]byte) error {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	// Fixed lock order so concurrent multi-key writes cannot deadlock.
	sort.Strings(keys)
	for _, key := range keys {
		l := db.keyLock(key)
		l.Lock()
		defer l.Unlock()
	}
	return db.store.Set(ctx, values)
}

// Watch exposes the store's change notification stream.
func (db *DB) Watch(ctx context.Context) (<-chan Change, error) {
	return db.store.Watch(ctx)
}
