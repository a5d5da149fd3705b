package kv

import (
	"context"
	"sync"
)

// MemoryStore is an in-process Store used by tests and by the
// development mode that runs without Redis. It mirrors RedisStore
// semantics: whole-document values, fan-out change notifications.
type MemoryStore struct {
	mu       sync.RWMutex
	docs     map[string][]byte
	watchers []chan Change

	// FailSets makes the next N Set calls fail. Tests use it to exercise
	// the bounded-retry path.
	FailSets int
}

// NewMemoryStore creates an empty in-memory document store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string][]byte),
	}
}

func (s *MemoryStore) Get(_ context.Context, keys ...string) (map[string][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string][]byte, len(keys))
	for _, key := range keys {
		if doc, ok := s.docs[key]; ok {
			cp := make([]byte, len(doc))
			copy(cp, doc)
			result[key] = cp
		}
	}
	return result, nil
}

func (s *MemoryStore) Set(_ context.Context, values map[string][]byte) error {
	s.mu.Lock()
	if s.FailSets > 0 {
		s.FailSets--
		s.mu.Unlock()
		return errSetFailed
	}
	for key, value := range values {
		cp := make([]byte, len(value))
		copy(cp, value)
		s.docs[key] = cp
	}

	// Sends are non-blocking, so notifying under the lock is cheap and
	// means a watcher channel is never closed mid-send.
	for key := range values {
		for _, w := range s.watchers {
			select {
			case w <- Change{Key: key}:
			default: // slow watcher, drop rather than block a writer
			}
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Watch(ctx context.Context) (<-chan Change, error) {
	ch := make(chan Change, 16)

	s.mu.Lock()
	s.watchers = append(s.watchers, ch)
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		for i, w := range s.watchers {
			if w == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}
