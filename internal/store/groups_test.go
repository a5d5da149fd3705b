package store

import (
	"context"
	"errors"
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
)

func TestSaveTabLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Two URLs on the same domain land in one group.
	g1, err := env.groups.AddURL(ctx, "https://a.com/1", "Foo", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	g2, err := env.groups.AddURL(ctx, "https://a.com/2", "Bar", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if g1.ID != g2.ID {
		t.Fatalf("same domain created two groups: %s vs %s", g1.ID, g2.ID)
	}

	// Re-saving an existing URL refreshes the record, never duplicates
	// the reference.
	g3, err := env.groups.AddURL(ctx, "https://a.com/1", "Foo Updated", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if len(g3.URLIDs) != 2 {
		t.Errorf("expected 2 url ids after re-save, got %d", len(g3.URLIDs))
	}

	records, err := env.urls.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(records) != 2 {
		t.Errorf("expected 2 records, got %d", len(records))
	}

	groups, err := env.groups.All(ctx)
	if err != nil {
		t.Fatalf("All failed: %v", err)
	}
	if len(groups) != 1 {
		t.Errorf("expected 1 group, got %d", len(groups))
	}
}

func TestAddURLRejectsURLWithoutDomain(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.groups.AddURL(context.Background(), "   ", "Title", "")
	if !errors.Is(err, ErrInvalidURL) {
		t.Fatalf("expected ErrInvalidURL, got %v", err)
	}
}

func TestAddURLRespectsExcludePatterns(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.groups.Settings = env.settings

	settings := domain.DefaultUserSettings()
	settings.ExcludePatterns = []string{"private.example"}
	if err := env.settings.Put(ctx, settings); err != nil {
		t.Fatalf("Put settings failed: %v", err)
	}

	_, err := env.groups.AddURL(ctx, "https://private.example.com/secret", "Secret", "")
	if !errors.Is(err, ErrExcludedURL) {
		t.Fatalf("expected ErrExcludedURL, got %v", err)
	}

	// Nothing was written.
	records, _ := env.urls.All(ctx)
	if len(records) != 0 {
		t.Errorf("excluded URL left %d records behind", len(records))
	}
}

func TestRemoveLastURLCascadesAndShadowsSurvive(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.groups.AddURL(ctx, "https://a.com/1", "Foo", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}

	// Give the group some category configuration.
	err = env.groups.Mutate(ctx, group.ID, func(g *domain.DomainGroup) (bool, error) {
		g.SubCategories = []string{"Billing"}
		g.CategoryKeywords = []domain.KeywordRule{{CategoryName: "Billing", Keywords: []string{"invoice"}}}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if err := env.groups.RemoveURL(ctx, group.ID, "https://a.com/1"); err != nil {
		t.Fatalf("RemoveURL failed: %v", err)
	}

	groups, _ := env.groups.All(ctx)
	if len(groups) != 0 {
		t.Fatalf("emptied group was not removed, %d groups remain", len(groups))
	}

	// Saving the same domain again restores the configuration from the
	// shadow documents.
	restored, err := env.groups.AddURL(ctx, "https://a.com/2", "Bar", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if len(restored.SubCategories) != 1 || restored.SubCategories[0] != "Billing" {
		t.Errorf("sub-categories not restored from shadow: %v", restored.SubCategories)
	}
	if len(restored.CategoryKeywords) != 1 || restored.CategoryKeywords[0].CategoryName != "Billing" {
		t.Errorf("keyword rules not restored from shadow: %v", restored.CategoryKeywords)
	}
}

func TestRemoveLastURLKeepsConfigurationWhenShadowWriteFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.groups.AddURL(ctx, "https://a.com/1", "Foo", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	err = env.groups.Mutate(ctx, group.ID, func(g *domain.DomainGroup) (bool, error) {
		g.SubCategories = []string{"Billing"}
		g.ParentCategoryID = "cat-1"
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	// All writes fail: the shadow write aborts the removal before the
	// group record is touched.
	env.mem.FailSets = 100
	if err := env.groups.RemoveURL(ctx, group.ID, "https://a.com/1"); err == nil {
		t.Fatal("expected RemoveURL to fail while the store is down")
	}
	env.mem.FailSets = 0

	groups, _ := env.groups.All(ctx)
	if len(groups) != 1 {
		t.Fatalf("group must survive a failed cascade, got %d groups", len(groups))
	}
	if len(groups[0].SubCategories) != 1 || groups[0].SubCategories[0] != "Billing" {
		t.Errorf("category configuration lost by failed cascade: %v", groups[0].SubCategories)
	}
	if groups[0].ParentCategoryID != "cat-1" {
		t.Errorf("parent category lost by failed cascade: %q", groups[0].ParentCategoryID)
	}

	// With the store back, the removal completes and the shadows restore
	// the configuration on the next save.
	if err := env.groups.RemoveURL(ctx, group.ID, "https://a.com/1"); err != nil {
		t.Fatalf("RemoveURL failed: %v", err)
	}
	restored, err := env.groups.AddURL(ctx, "https://a.com/2", "Bar", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if len(restored.SubCategories) != 1 || restored.SubCategories[0] != "Billing" {
		t.Errorf("sub-categories not restored from shadow: %v", restored.SubCategories)
	}
	if restored.ParentCategoryID != "cat-1" {
		t.Errorf("parent category not restored from shadow: %q", restored.ParentCategoryID)
	}
}

func TestRemoveURLMissingTargetsAreNoOps(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Unknown URL: no record, logged no-op.
	if err := env.groups.RemoveURL(ctx, "some-group", "https://a.com/unknown"); err != nil {
		t.Fatalf("RemoveURL on unknown url returned error: %v", err)
	}

	// Known record, unknown group: logged no-op.
	if _, err := env.urls.Upsert(ctx, "https://a.com/1", "Foo", ""); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}
	if err := env.groups.RemoveURL(ctx, "no-such-group", "https://a.com/1"); err != nil {
		t.Fatalf("RemoveURL on unknown group returned error: %v", err)
	}
}

func TestDefaultRulesSeedNewGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	env.groups.DefaultRules = func(dom string) []domain.KeywordRule {
		if dom != "news.example.com" {
			return nil
		}
		return []domain.KeywordRule{{CategoryName: "Tech", Keywords: []string{"golang"}}}
	}

	seeded, err := env.groups.AddURL(ctx, "https://news.example.com/article", "Go 1.25", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if len(seeded.CategoryKeywords) != 1 || seeded.CategoryKeywords[0].CategoryName != "Tech" {
		t.Errorf("seed rules not applied: %v", seeded.CategoryKeywords)
	}
	if len(seeded.SubCategories) != 1 || seeded.SubCategories[0] != "Tech" {
		t.Errorf("seed sub-categories not applied: %v", seeded.SubCategories)
	}

	plain, err := env.groups.AddURL(ctx, "https://other.example.com/x", "Other", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	if len(plain.CategoryKeywords) != 0 {
		t.Errorf("unexpected seed rules for unmatched domain: %v", plain.CategoryKeywords)
	}
}
