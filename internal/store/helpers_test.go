package store

import (
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

type testEnv struct {
	mem      *kv.MemoryStore
	db       *kv.DB
	urls     *URLStore
	groups   *GroupStore
	projects *ProjectStore
	settings *SettingsStore
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.New("error", false)
	mem := kv.NewMemoryStore()
	db := kv.NewDB(mem, log)
	urls := NewURLStore(db, log)
	groups := NewGroupStore(db, urls, log)
	projects := NewProjectStore(db, urls, log)
	settings := NewSettingsStore(db, log)
	return &testEnv{
		mem:      mem,
		db:       db,
		urls:     urls,
		groups:   groups,
		projects: projects,
		settings: settings,
	}
}
