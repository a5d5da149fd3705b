package kv

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

func TestDBUpdateSerializesConcurrentWriters(t *testing.T) {
	store := NewMemoryStore()
	db := NewDB(store, logger.New("error", false))
	ctx := context.Background()

	const writers = 32
	var wg sync.WaitGroup
	wg.Add(writers)

	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			err := db.Update(ctx, "counter", func(current []byte, found bool) ([]byte, bool, error) {
				n := 0
				if found {
					if err := json.Unmarshal(current, &n); err != nil {
						return nil, false, err
					}
				}
				next, err := json.Marshal(n + 1)
				return next, true, err
			})
			if err != nil {
				t.Errorf("Update failed: %v", err)
			}
		}()
	}
	wg.Wait()

	doc, found, err := db.Read(ctx, "counter")
	if err != nil || !found {
		t.Fatalf("Read failed: found=%v err=%v", found, err)
	}
	var n int
	if err := json.Unmarshal(doc, &n); err != nil {
		t.Fatal(err)
	}
	if n != writers {
		t.Errorf("counter = %d, want %d (lost updates)", n, writers)
	}
}

func TestDBUpdateRetriesTransientSetFailure(t *testing.T) {
	store := NewMemoryStore()
	store.FailSets = 2 // first two attempts fail, third succeeds

	db := NewDB(store, logger.New("error", false))
	db.retryDelay = 0

	err := db.Update(context.Background(), "doc", func(_ []byte, _ bool) ([]byte, bool, error) {
		return []byte(`"v"`), true, nil
	})
	if err != nil {
		t.Fatalf("Update should survive two transient failures: %v", err)
	}

	doc, found, err := db.Read(context.Background(), "doc")
	if err != nil || !found {
		t.Fatalf("document missing after retried update: found=%v err=%v", found, err)
	}
	if string(doc) != `"v"` {
		t.Errorf("document = %s, want %q", doc, `"v"`)
	}
}

func TestDBUpdateGivesUpAfterBoundedAttempts(t *testing.T) {
	store := NewMemoryStore()
	store.FailSets = 10

	db := NewDB(store, logger.New("error", false))
	db.retryDelay = 0

	err := db.Update(context.Background(), "doc", func(_ []byte, _ bool) ([]byte, bool, error) {
		return []byte(`1`), true, nil
	})
	if err == nil {
		t.Fatal("Update should fail once attempts are exhausted")
	}

	if _, found, _ := db.Read(context.Background(), "doc"); found {
		t.Error("failed update must leave the old state (absence) live")
	}
}

func TestDBUpdateMutationErrorAbortsWithoutRetry(t *testing.T) {
	store := NewMemoryStore()
	db := NewDB(store, logger.New("error", false))

	errAbort := errors.New("target gone")
	calls := 0
	err := db.Update(context.Background(), "doc", func(_ []byte, _ bool) ([]byte, bool, error) {
		calls++
		return nil, false, errAbort
	})
	if !errors.Is(err, errAbort) {
		t.Fatalf("err = %v, want %v", err, errAbort)
	}
	if calls != 1 {
		t.Errorf("mutation fn called %d times, want 1 (no retry on mutation errors)", calls)
	}
	if _, found, _ := db.Read(context.Background(), "doc"); found {
		t.Error("aborted mutation must not write")
	}
}

func TestDBUpdateUnchangedSkipsWrite(t *testing.T) {
	store := NewMemoryStore()
	db := NewDB(store, logger.New("error", false))
	ctx := context.Background()

	watch, err := store.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	err = db.Update(ctx, "doc", func(_ []byte, _ bool) ([]byte, bool, error) {
		return nil, false, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-watch:
		t.Errorf("unexpected change notification for %s", c.Key)
	default:
	}
}

func TestMemoryStoreWatch(t *testing.T) {
	store := NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	watch, err := store.Watch(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Set(ctx, map[string][]byte{"a": []byte(`1`)}); err != nil {
		t.Fatal(err)
	}

	change := <-watch
	if change.Key != "a" {
		t.Errorf("change key = %q, want %q", change.Key, "a")
	}
}

func TestMemoryStoreWatchCancelRacesWriters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(4)
	for i := 0; i < 4; i++ {
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if err := store.Set(ctx, map[string][]byte{"k": []byte(`1`)}); err != nil {
					t.Errorf("Set failed: %v", err)
					return
				}
			}
		}()
	}

	// Cancelling a watch closes its channel; a concurrent Set must never
	// send into the closed channel.
	for i := 0; i < 200; i++ {
		watchCtx, cancel := context.WithCancel(ctx)
		watch, err := store.Watch(watchCtx)
		if err != nil {
			t.Fatal(err)
		}
		cancel()
		for range watch {
		}
	}

	close(done)
	wg.Wait()
}
