package migrate

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

type testEnv struct {
	db       *kv.DB
	urls     *store.URLStore
	groups   *store.GroupStore
	projects *store.ProjectStore
	engine   *Engine
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.New("error", false)
	db := kv.NewDB(kv.NewMemoryStore(), log)
	urls := store.NewURLStore(db, log)
	groups := store.NewGroupStore(db, urls, log)
	projects := store.NewProjectStore(db, urls, log)
	return &testEnv{
		db:       db,
		urls:     urls,
		groups:   groups,
		projects: projects,
		engine:   NewEngine(db, urls, groups, projects, log),
	}
}

func mustWrite(t *testing.T, db *kv.DB, key string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := db.Write(context.Background(), map[string][]byte{key: data}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
}

func TestRunMigratesLegacyShapes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mustWrite(t, env.db, kv.KeySavedTabs, []domain.DomainGroup{{
		ID:      "g1",
		Domain:  "a.com",
		SavedAt: 500,
		URLs: []domain.LegacySavedURL{
			{URL: "https://a.com/1", Title: "One", SubCategory: "Billing", SavedAt: 100},
			{URL: "https://a.com/2", Title: "Two"}, // no savedAt: falls back to group
		},
	}})
	mustWrite(t, env.db, kv.KeyCustomProjects, []domain.Project{{
		ID:        "p1",
		Name:      "P",
		CreatedAt: 700,
		URLs: []domain.LegacyProjectURL{
			// Shared with the group: must resolve to the same record.
			{URL: "https://a.com/1", Title: "One", Notes: "shared", SavedAt: 100},
		},
	}})

	if err := env.engine.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	records, err := env.urls.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records (shared url deduplicated), got %d", len(records))
	}
	savedAt := make(map[string]int64)
	idByURL := make(map[string]string)
	for _, r := range records {
		savedAt[r.URL] = r.SavedAt
		idByURL[r.URL] = r.ID
	}
	if savedAt["https://a.com/1"] != 100 {
		t.Errorf("savedAt not preserved: %d", savedAt["https://a.com/1"])
	}
	if savedAt["https://a.com/2"] != 500 {
		t.Errorf("missing savedAt should fall back to group savedAt, got %d", savedAt["https://a.com/2"])
	}

	group, err := env.groups.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get group failed: %v", err)
	}
	if len(group.URLIDs) != 2 {
		t.Errorf("group URLIDs = %v, want 2 ids", group.URLIDs)
	}
	if group.URLs != nil {
		t.Error("legacy URLs not cleared from group")
	}
	if group.URLSubCategories[idByURL["https://a.com/1"]] != "Billing" {
		t.Errorf("legacy sub-category not carried over: %v", group.URLSubCategories)
	}

	project, err := env.projects.Get(ctx, "p1")
	if err != nil {
		t.Fatalf("Get project failed: %v", err)
	}
	if len(project.URLIDs) != 1 || project.URLIDs[0] != idByURL["https://a.com/1"] {
		t.Errorf("project should reference the shared record: %v", project.URLIDs)
	}
	if project.URLMeta[project.URLIDs[0]].Notes != "shared" {
		t.Errorf("legacy notes not carried over: %v", project.URLMeta)
	}
	if project.URLs != nil {
		t.Error("legacy URLs not cleared from project")
	}
}

func TestRunIsGuardedByCompletionFlag(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.engine.Run(ctx); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// A legacy group appearing after completion is not touched: the
	// flag short-circuits the whole pass.
	mustWrite(t, env.db, kv.KeySavedTabs, []domain.DomainGroup{{
		ID:     "g1",
		Domain: "a.com",
		URLs:   []domain.LegacySavedURL{{URL: "https://a.com/1"}},
	}})

	if err := env.engine.Run(ctx); err != nil {
		t.Fatalf("second Run failed: %v", err)
	}

	group, err := env.groups.Get(ctx, "g1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if group.URLs == nil {
		t.Error("completed migration ran again")
	}
}
