package migrate

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
)

func TestParseBackupRejectsInvalidDocuments(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "not json", data: `{`},
		{name: "missing version", data: `{"savedTabs":[]}`},
		{name: "group without domain", data: `{"version":1,"savedTabs":[{"urls":[{"url":"https://a.com/1"}]}]}`},
		{name: "url without url field", data: `{"version":1,"savedTabs":[{"domain":"a.com","urls":[{"title":"x"}]}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBackup([]byte(tt.data))
			var invalid *ErrInvalidBackup
			if !errors.As(err, &invalid) {
				t.Errorf("ParseBackup error = %v, want ErrInvalidBackup", err)
			}
		})
	}
}

func TestImportInvalidBackupWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.engine.Import(ctx, []byte(`{"savedTabs":[]}`), domain.ImportMerge)
	var invalid *ErrInvalidBackup
	if !errors.As(err, &invalid) {
		t.Fatalf("Import error = %v, want ErrInvalidBackup", err)
	}

	groups, _ := env.groups.All(ctx)
	records, _ := env.urls.All(ctx)
	if len(groups) != 0 || len(records) != 0 {
		t.Errorf("invalid backup left state behind: %d groups, %d records", len(groups), len(records))
	}
}

func TestImportMergeLocalWins(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Local state: one group, one url, one keyword rule.
	local, err := env.groups.AddURL(ctx, "https://a.com/1", "Local Title", "")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	err = env.groups.Mutate(ctx, local.ID, func(g *domain.DomainGroup) (bool, error) {
		g.SavedAt = 100
		g.CategoryKeywords = []domain.KeywordRule{{CategoryName: "Billing", Keywords: []string{"invoice"}}}
		g.SubCategories = []string{"Billing"}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	backup := domain.Backup{
		Version: domain.BackupVersion,
		SavedTabs: []domain.BackupGroup{{
			Domain:  "a.com",
			SavedAt: 50,
			URLs: []domain.LegacySavedURL{
				{URL: "https://a.com/1", Title: "Imported Title"},
				{URL: "https://a.com/2", Title: "Imported New", SavedAt: 60},
			},
			CategoryKeywords: []domain.KeywordRule{
				{CategoryName: "Billing", Keywords: []string{"INVOICE", "payment"}},
				{CategoryName: "Docs", Keywords: []string{"manual"}},
			},
			SubCategories: []string{"Billing", "Docs"},
		}},
	}
	data, _ := json.Marshal(backup)

	if err := env.engine.Import(ctx, data, domain.ImportMerge); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	// Existing record keeps its local title.
	record, found, err := env.urls.FindByURL(ctx, "https://a.com/1")
	if err != nil || !found {
		t.Fatalf("FindByURL failed: %v found=%v", err, found)
	}
	if record.Title != "Local Title" {
		t.Errorf("local title overwritten: %q", record.Title)
	}

	group, err := env.groups.Get(ctx, local.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(group.URLIDs) != 2 {
		t.Errorf("url ids not unioned: %v", group.URLIDs)
	}
	// Older savedAt wins.
	if group.SavedAt != 50 {
		t.Errorf("group savedAt = %d, want 50", group.SavedAt)
	}
	// Keyword union: local order first, case-insensitive keyword dedup,
	// new rule appended.
	if len(group.CategoryKeywords) != 2 {
		t.Fatalf("CategoryKeywords = %v", group.CategoryKeywords)
	}
	billing := group.CategoryKeywords[0]
	if billing.CategoryName != "Billing" || len(billing.Keywords) != 2 {
		t.Errorf("billing rule = %+v, want invoice+payment", billing)
	}
	if group.CategoryKeywords[1].CategoryName != "Docs" {
		t.Errorf("imported rule missing: %v", group.CategoryKeywords)
	}
	if len(group.SubCategories) != 2 {
		t.Errorf("SubCategories = %v", group.SubCategories)
	}
}

func TestImportMergeAdoptsSettingsOnlyWhenAbsent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	imported := domain.UserSettings{AutoDeletePeriod: domain.TTL30Days}
	backup := domain.Backup{Version: 1, UserSettings: &imported, SavedTabs: []domain.BackupGroup{}}
	data, _ := json.Marshal(backup)

	if err := env.engine.Import(ctx, data, domain.ImportMerge); err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	stored, _, err := env.db.Read(ctx, kv.KeyUserSettings)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var settings domain.UserSettings
	if err := json.Unmarshal(stored, &settings); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if settings.AutoDeletePeriod != domain.TTL30Days {
		t.Errorf("settings not adopted into empty state: %+v", settings)
	}

	// A second import cannot overwrite them.
	imported.AutoDeletePeriod = domain.TTL1Day
	data, _ = json.Marshal(domain.Backup{Version: 1, UserSettings: &imported, SavedTabs: []domain.BackupGroup{}})
	if err := env.engine.Import(ctx, data, domain.ImportMerge); err != nil {
		t.Fatalf("second Import failed: %v", err)
	}
	stored, _, _ = env.db.Read(ctx, kv.KeyUserSettings)
	_ = json.Unmarshal(stored, &settings)
	if settings.AutoDeletePeriod != domain.TTL30Days {
		t.Errorf("merge overwrote existing settings: %+v", settings)
	}
}

func TestImportReplaceOverwritesState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.groups.AddURL(ctx, "https://old.com/1", "Old", ""); err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}

	backup := domain.Backup{
		Version: 1,
		SavedTabs: []domain.BackupGroup{{
			Domain:  "new.com",
			SavedAt: 100,
			URLs:    []domain.LegacySavedURL{{URL: "https://new.com/1", Title: "New", SavedAt: 100}},
		}},
		ParentCategories: []domain.ParentCategory{{
			ID:          "cat-1",
			Name:        "Work",
			DomainNames: []string{"new.com"},
		}},
	}
	data, _ := json.Marshal(backup)

	if err := env.engine.Import(ctx, data, domain.ImportReplace); err != nil {
		t.Fatalf("Import failed: %v", err)
	}

	groups, _ := env.groups.All(ctx)
	if len(groups) != 1 || groups[0].Domain != "new.com" {
		t.Fatalf("replace kept old groups: %+v", groups)
	}
	if groups[0].ID == "" {
		t.Error("replaced group should get a fresh id")
	}

	mappingsDoc, _, err := env.db.Read(ctx, kv.KeyDomainCategoryMappings)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	var mappings []domain.DomainParentCategoryMapping
	if err := json.Unmarshal(mappingsDoc, &mappings); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if len(mappings) != 1 || mappings[0].Domain != "new.com" || mappings[0].CategoryID != "cat-1" {
		t.Errorf("mappings not rebuilt from import: %+v", mappings)
	}
}

func TestExportDenormalizesGroups(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	group, err := env.groups.AddURL(ctx, "https://a.com/1", "One", "fav.ico")
	if err != nil {
		t.Fatalf("AddURL failed: %v", err)
	}
	err = env.groups.Mutate(ctx, group.ID, func(g *domain.DomainGroup) (bool, error) {
		g.URLSubCategories = map[string]string{g.URLIDs[0]: "Billing"}
		return true, nil
	})
	if err != nil {
		t.Fatalf("Mutate failed: %v", err)
	}

	backup, err := env.engine.Export(ctx)
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	if backup.Version != domain.BackupVersion {
		t.Errorf("Version = %d, want %d", backup.Version, domain.BackupVersion)
	}
	if len(backup.SavedTabs) != 1 {
		t.Fatalf("SavedTabs = %+v", backup.SavedTabs)
	}
	exported := backup.SavedTabs[0]
	if len(exported.URLs) != 1 {
		t.Fatalf("exported URLs = %+v", exported.URLs)
	}
	if exported.URLs[0].URL != "https://a.com/1" || exported.URLs[0].Title != "One" {
		t.Errorf("url not denormalized: %+v", exported.URLs[0])
	}
	if exported.URLs[0].SubCategory != "Billing" {
		t.Errorf("sub-category label not inlined: %+v", exported.URLs[0])
	}

	// The export parses back through the same validator.
	data, _ := json.Marshal(backup)
	if _, err := ParseBackup(data); err != nil {
		t.Errorf("exported backup fails validation: %v", err)
	}
}
