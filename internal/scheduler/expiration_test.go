package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

func backdate(t *testing.T, env *testEnv, rawURL string, by time.Duration) {
	t.Helper()
	ts := domain.NowMillis() - by.Milliseconds()
	if _, err := env.urls.UpsertAt(context.Background(), rawURL, "", "", ts); err != nil {
		t.Fatalf("UpsertAt failed: %v", err)
	}
}

func TestSweepRemovesExpiredURLs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mustWrite(t, env.db, kv.KeyUserSettings, domain.UserSettings{AutoDeletePeriod: domain.TTL1Minute})

	if _, err := env.groups.AddURL(ctx, "https://a.com/old", "Old", ""); err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if _, err := env.groups.AddURL(ctx, "https://a.com/fresh", "Fresh", ""); err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	backdate(t, env, "https://a.com/old", 2*time.Minute)

	sweeper := NewExpirationSweeper(env.db, env.maintenance, logger.New("error", false), time.Hour)
	if err := sweeper.Sweep(ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	records, _ := env.urls.All(ctx)
	if len(records) != 1 || records[0].URL != "https://a.com/fresh" {
		t.Fatalf("expected only the fresh record to survive, got %+v", records)
	}
	groups, _ := env.groups.All(ctx)
	if len(groups) != 1 || len(groups[0].URLIDs) != 1 {
		t.Errorf("group should survive with one url, got %+v", groups)
	}
}

func TestSweepRemovesEmptiedGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	mustWrite(t, env.db, kv.KeyUserSettings, domain.UserSettings{AutoDeletePeriod: domain.TTL1Minute})

	if _, err := env.groups.AddURL(ctx, "https://b.com/only", "Only", ""); err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	backdate(t, env, "https://b.com/only", 2*time.Minute)

	sweeper := NewExpirationSweeper(env.db, env.maintenance, logger.New("error", false), time.Hour)
	if err := sweeper.Sweep(ctx); err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}

	groups, _ := env.groups.All(ctx)
	if len(groups) != 0 {
		t.Errorf("emptied group should be removed, got %+v", groups)
	}
	records, _ := env.urls.All(ctx)
	if len(records) != 0 {
		t.Errorf("expired record should be removed, got %+v", records)
	}
}

func TestSweepSkipsWhenExpirationDisabled(t *testing.T) {
	tests := []struct {
		name     string
		settings *domain.UserSettings
	}{
		{name: "never", settings: &domain.UserSettings{AutoDeletePeriod: domain.TTLNever}},
		{name: "unknown choice", settings: &domain.UserSettings{AutoDeletePeriod: "fortnight"}},
		{name: "no settings document", settings: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			ctx := context.Background()

			if tt.settings != nil {
				mustWrite(t, env.db, kv.KeyUserSettings, *tt.settings)
			}
			if _, err := env.groups.AddURL(ctx, "https://a.com/ancient", "Ancient", ""); err != nil {
				t.Fatalf("AddURL failed: %v", err)
			}
			backdate(t, env, "https://a.com/ancient", 400*24*time.Hour)

			sweeper := NewExpirationSweeper(env.db, env.maintenance, logger.New("error", false), time.Hour)
			if err := sweeper.Sweep(ctx); err != nil {
				t.Fatalf("Sweep failed: %v", err)
			}

			records, _ := env.urls.All(ctx)
			if len(records) != 1 {
				t.Errorf("record should survive with expiration disabled, got %+v", records)
			}
		})
	}
}
