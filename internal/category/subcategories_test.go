package category

import (
	"context"
	"errors"
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

func TestAddSubCategoryRejectsDuplicates(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, _ := env.groups.AddURL(ctx, "https://a.com/1", "A", "")

	if err := env.service.AddSubCategory(ctx, group.ID, "Billing"); err != nil {
		t.Fatalf("AddSubCategory failed: %v", err)
	}
	if err := env.service.AddSubCategory(ctx, group.ID, "billing"); !errors.Is(err, store.ErrDuplicateName) {
		t.Errorf("duplicate sub-category: error = %v, want ErrDuplicateName", err)
	}
}

func TestRenameSubCategoryRewritesEverywhere(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, _ := env.groups.AddURL(ctx, "https://a.com/1", "A", "")
	urlID := group.URLIDs[0]

	err := env.groups.Mutate(ctx, group.ID, func(g *domain.DomainGroup) (bool, error) {
		g.SubCategories = []string{"Billing", "Docs"}
		g.CategoryKeywords = []domain.KeywordRule{{CategoryName: "Billing", Keywords: []string{"invoice"}}}
		g.SubCategoryOrder = []string{"Docs", "Billing"}
		g.SubCategoryOrderWithUncategorized = []string{"Docs", "Billing", "uncategorized"}
		g.URLSubCategories = map[string]string{urlID: "Billing"}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if err := env.service.RenameSubCategory(ctx, group.ID, "Billing", "Invoices"); err != nil {
		t.Fatalf("RenameSubCategory failed: %v", err)
	}

	g, _ := env.groups.Get(ctx, group.ID)
	if g.SubCategories[0] != "Invoices" {
		t.Errorf("SubCategories = %v", g.SubCategories)
	}
	if g.CategoryKeywords[0].CategoryName != "Invoices" {
		t.Errorf("CategoryKeywords = %v", g.CategoryKeywords)
	}
	if g.SubCategoryOrder[1] != "Invoices" {
		t.Errorf("SubCategoryOrder = %v", g.SubCategoryOrder)
	}
	if g.SubCategoryOrderWithUncategorized[1] != "Invoices" {
		t.Errorf("SubCategoryOrderWithUncategorized = %v", g.SubCategoryOrderWithUncategorized)
	}
	if g.URLSubCategories[urlID] != "Invoices" {
		t.Errorf("url label not renamed: %v", g.URLSubCategories)
	}
}

func TestRemoveSubCategoryUncategorizesURLs(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, _ := env.groups.AddURL(ctx, "https://a.com/1", "A", "")
	urlID := group.URLIDs[0]

	err := env.groups.Mutate(ctx, group.ID, func(g *domain.DomainGroup) (bool, error) {
		g.SubCategories = []string{"Billing"}
		g.SubCategoryOrder = []string{"Billing"}
		g.URLSubCategories = map[string]string{urlID: "Billing"}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	if err := env.service.RemoveSubCategory(ctx, group.ID, "Billing"); err != nil {
		t.Fatalf("RemoveSubCategory failed: %v", err)
	}

	g, _ := env.groups.Get(ctx, group.ID)
	if len(g.SubCategories) != 0 || len(g.SubCategoryOrder) != 0 {
		t.Errorf("sub-category not removed: %v %v", g.SubCategories, g.SubCategoryOrder)
	}
	if _, labeled := g.URLSubCategories[urlID]; labeled {
		t.Error("url still labeled with removed sub-category")
	}
	// The url itself survives.
	if len(g.URLIDs) != 1 {
		t.Errorf("url reference lost: %v", g.URLIDs)
	}
}

func TestSetURLSubCategoryRequiresMembership(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, _ := env.groups.AddURL(ctx, "https://a.com/1", "A", "")
	urlID := group.URLIDs[0]

	if err := env.service.SetURLSubCategory(ctx, group.ID, "not-a-member", "Billing"); err != nil {
		t.Fatalf("unknown url id should be a no-op, got %v", err)
	}
	g, _ := env.groups.Get(ctx, group.ID)
	if len(g.URLSubCategories) != 0 {
		t.Errorf("label written for non-member id: %v", g.URLSubCategories)
	}

	if err := env.service.SetURLSubCategory(ctx, group.ID, urlID, "Billing"); err != nil {
		t.Fatalf("SetURLSubCategory failed: %v", err)
	}
	// Empty name clears.
	if err := env.service.SetURLSubCategory(ctx, group.ID, urlID, ""); err != nil {
		t.Fatalf("clear failed: %v", err)
	}
	g, _ = env.groups.Get(ctx, group.ID)
	if len(g.URLSubCategories) != 0 {
		t.Errorf("label not cleared: %v", g.URLSubCategories)
	}
}
