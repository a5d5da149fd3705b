package migrate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// backupValidate checks imported documents before any write happens.
var backupValidate = validator.New()

// ErrInvalidBackup wraps schema problems found in an imported file.
// The whole import is rejected; no state has been touched.
type ErrInvalidBackup struct {
	Reason error
}

func (e *ErrInvalidBackup) Error() string {
	return fmt.Sprintf("invalid backup document: %v", e.Reason)
}

func (e *ErrInvalidBackup) Unwrap() error { return e.Reason }

// ParseBackup unmarshals and validates a backup document. Returns an
// ErrInvalidBackup on schema mismatch.
func ParseBackup(data []byte) (*domain.Backup, error) {
	var backup domain.Backup
	if err := json.Unmarshal(data, &backup); err != nil {
		return nil, &ErrInvalidBackup{Reason: err}
	}
	if err := backupValidate.Struct(&backup); err != nil {
		return nil, &ErrInvalidBackup{Reason: err}
	}
	return &backup, nil
}

// Export builds the denormalized backup document from live state.
// The export format keeps URLs inline for human portability.
func (e *Engine) Export(ctx context.Context) (*domain.Backup, error) {
	docs, err := e.db.ReadMany(ctx,
		kv.KeyUserSettings,
		kv.KeyParentCategories,
		kv.KeyDomainCategoryMappings,
	)
	if err != nil {
		return nil, err
	}

	backup := &domain.Backup{
		Version:   domain.BackupVersion,
		Timestamp: domain.NowMillis(),
	}

	if data, ok := docs[kv.KeyUserSettings]; ok {
		var settings domain.UserSettings
		if err := json.Unmarshal(data, &settings); err != nil {
			return nil, fmt.Errorf("failed to decode user settings: %w", err)
		}
		backup.UserSettings = &settings
	}

	groups, err := e.groups.All(ctx)
	if err != nil {
		return nil, err
	}
	records, err := e.urls.All(ctx)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.UrlRecord, len(records))
	for _, r := range records {
		byID[r.ID] = r
	}

	for _, g := range groups {
		exported := domain.BackupGroup{
			ID:                                g.ID,
			Domain:                            g.Domain,
			URLs:                              make([]domain.LegacySavedURL, 0, len(g.URLIDs)),
			SubCategories:                     g.SubCategories,
			CategoryKeywords:                  g.CategoryKeywords,
			SubCategoryOrder:                  g.SubCategoryOrder,
			SubCategoryOrderWithUncategorized: g.SubCategoryOrderWithUncategorized,
			ParentCategoryID:                  g.ParentCategoryID,
			SavedAt:                           g.SavedAt,
		}
		for _, id := range g.URLIDs {
			record, ok := byID[id]
			if !ok {
				continue
			}
			exported.URLs = append(exported.URLs, domain.LegacySavedURL{
				URL:         record.URL,
				Title:       record.Title,
				FavIconURL:  record.FavIconURL,
				SubCategory: g.URLSubCategories[id],
				SavedAt:     record.SavedAt,
			})
		}
		backup.SavedTabs = append(backup.SavedTabs, exported)
	}

	if data, ok := docs[kv.KeyParentCategories]; ok {
		var categories []domain.ParentCategory
		if err := json.Unmarshal(data, &categories); err != nil {
			return nil, fmt.Errorf("failed to decode parent categories: %w", err)
		}
		var mappings []domain.DomainParentCategoryMapping
		if mapData, ok := docs[kv.KeyDomainCategoryMappings]; ok {
			if err := json.Unmarshal(mapData, &mappings); err != nil {
				return nil, fmt.Errorf("failed to decode domain category mappings: %w", err)
			}
		}
		groupIDByDomain := make(map[string]string, len(groups))
		for _, g := range groups {
			groupIDByDomain[g.Domain] = g.ID
		}
		for i := range categories {
			categories[i].Domains = []string{}
			categories[i].DomainNames = []string{}
			for _, m := range mappings {
				if m.CategoryID != categories[i].ID {
					continue
				}
				categories[i].DomainNames = append(categories[i].DomainNames, m.Domain)
				if gid, ok := groupIDByDomain[m.Domain]; ok {
					categories[i].Domains = append(categories[i].Domains, gid)
				}
			}
		}
		backup.ParentCategories = categories
	}

	return backup, nil
}

// Import applies a backup. Merge mode unions with live state keyed by
// domain string (imported ids may collide with unrelated local ids, so
// ids are never trusted); local data wins on per-URL conflicts. Replace
// mode overwrites wholesale after the same normalization.
func (e *Engine) Import(ctx context.Context, data []byte, mode domain.ImportMode) error {
	backup, err := ParseBackup(data)
	if err != nil {
		return err
	}

	switch mode {
	case domain.ImportReplace:
		return e.importReplace(ctx, backup)
	default:
		return e.importMerge(ctx, backup)
	}
}

func (e *Engine) importMerge(ctx context.Context, backup *domain.Backup) error {
	for _, imported := range backup.SavedTabs {
		if err := e.mergeGroup(ctx, imported); err != nil {
			return fmt.Errorf("failed to merge domain %s: %w", imported.Domain, err)
		}
	}
	if err := e.mergeCategories(ctx, backup.ParentCategories); err != nil {
		return err
	}
	// Merge never overwrites local settings; adopt imported ones only
	// when none exist yet.
	if backup.UserSettings != nil {
		err := e.db.Update(ctx, kv.KeyUserSettings, func(current []byte, found bool) ([]byte, bool, error) {
			if found && len(current) > 0 {
				return nil, false, nil
			}
			next, err := json.Marshal(backup.UserSettings)
			return next, true, err
		})
		if err != nil {
			return err
		}
	}
	e.logger.Info("backup merged",
		logger.Int("groups", len(backup.SavedTabs)),
		logger.Int("categories", len(backup.ParentCategories)))
	return nil
}

// mergeGroup unions one imported group into local state by domain.
func (e *Engine) mergeGroup(ctx context.Context, imported domain.BackupGroup) error {
	// Resolve record ids up front: existing records win (the import
	// never overwrites local titles), missing ones are created with the
	// imported metadata.
	ids := make(map[string]string, len(imported.URLs))
	for _, legacy := range imported.URLs {
		record, found, err := e.urls.FindByURL(ctx, legacy.URL)
		if err != nil {
			return err
		}
		if found {
			ids[legacy.URL] = record.ID
			continue
		}
		savedAt := legacy.SavedAt
		if savedAt == 0 {
			savedAt = imported.SavedAt
		}
		created, err := e.urls.UpsertAt(ctx, legacy.URL, legacy.Title, legacy.FavIconURL, savedAt)
		if err != nil {
			return err
		}
		ids[legacy.URL] = created.ID
	}

	return e.groups.MutateAll(ctx, func(groups []domain.DomainGroup) ([]domain.DomainGroup, bool, error) {
		for i := range groups {
			if groups[i].Domain != imported.Domain {
				continue
			}
			changed := mergeIntoGroup(&groups[i], imported, ids)
			return groups, changed, nil
		}

		// Domain unknown locally: create a normalized group from the
		// imported data.
		group := domain.DomainGroup{
			ID:                                uuid.NewString(),
			Domain:                            imported.Domain,
			SubCategories:                     imported.SubCategories,
			CategoryKeywords:                  imported.CategoryKeywords,
			SubCategoryOrder:                  imported.SubCategoryOrder,
			SubCategoryOrderWithUncategorized: imported.SubCategoryOrderWithUncategorized,
			ParentCategoryID:                  imported.ParentCategoryID,
			SavedAt:                           imported.SavedAt,
		}
		if group.SavedAt == 0 {
			group.SavedAt = domain.NowMillis()
		}
		for _, legacy := range imported.URLs {
			id, ok := ids[legacy.URL]
			if !ok || containsString(group.URLIDs, id) {
				continue
			}
			group.URLIDs = append(group.URLIDs, id)
			if legacy.SubCategory != "" {
				if group.URLSubCategories == nil {
					group.URLSubCategories = make(map[string]string)
				}
				group.URLSubCategories[id] = legacy.SubCategory
			}
		}
		if len(group.URLIDs) == 0 {
			return nil, false, nil
		}
		return append(groups, group), true, nil
	})
}

// mergeIntoGroup applies the domain-keyed union onto a live group.
// Local entries win on conflict; savedAt takes the minimum.
func mergeIntoGroup(local *domain.DomainGroup, imported domain.BackupGroup, ids map[string]string) bool {
	changed := false

	for _, legacy := range imported.URLs {
		id, ok := ids[legacy.URL]
		if !ok {
			continue
		}
		if !local.HasURLID(id) {
			local.URLIDs = append(local.URLIDs, id)
			changed = true
		}
		// Label only URLs the local side has not labeled: local wins.
		if legacy.SubCategory != "" {
			if _, labeled := local.URLSubCategories[id]; !labeled {
				if local.URLSubCategories == nil {
					local.URLSubCategories = make(map[string]string)
				}
				local.URLSubCategories[id] = legacy.SubCategory
				changed = true
			}
		}
	}

	if merged, c := unionKeywords(local.CategoryKeywords, imported.CategoryKeywords); c {
		local.CategoryKeywords = merged
		changed = true
	}
	if merged, c := unionStrings(local.SubCategories, imported.SubCategories); c {
		local.SubCategories = merged
		changed = true
	}
	if merged, c := minSavedAt(local.SavedAt, imported.SavedAt); c {
		local.SavedAt = merged
		changed = true
	}
	if local.ParentCategoryID == "" && imported.ParentCategoryID != "" {
		local.ParentCategoryID = imported.ParentCategoryID
		changed = true
	}

	return changed
}

// mergeCategories creates imported categories missing locally (matched
// by name, case preserved from the import) and adopts their domain
// assignments for domains that have none yet.
func (e *Engine) mergeCategories(ctx context.Context, imported []domain.ParentCategory) error {
	if len(imported) == 0 {
		return nil
	}

	// imported category id -> live category id
	idMap := make(map[string]string, len(imported))

	err := e.db.Update(ctx, kv.KeyParentCategories, func(current []byte, found bool) ([]byte, bool, error) {
		var categories []domain.ParentCategory
		if found && len(current) > 0 {
			if err := json.Unmarshal(current, &categories); err != nil {
				return nil, false, fmt.Errorf("failed to decode parent categories: %w", err)
			}
		}

		changed := false
		for _, imp := range imported {
			liveID := ""
			for i := range categories {
				if strings.EqualFold(categories[i].Name, imp.Name) {
					liveID = categories[i].ID
					break
				}
			}
			if liveID == "" {
				liveID = uuid.NewString()
				categories = append(categories, domain.ParentCategory{
					ID:          liveID,
					Name:        imp.Name,
					Domains:     []string{},
					DomainNames: []string{},
				})
				changed = true
			}
			idMap[imp.ID] = liveID
		}
		if !changed {
			return nil, false, nil
		}
		next, err := json.Marshal(categories)
		return next, true, err
	})
	if err != nil {
		return err
	}

	return e.db.Update(ctx, kv.KeyDomainCategoryMappings, func(current []byte, found bool) ([]byte, bool, error) {
		var mappings []domain.DomainParentCategoryMapping
		if found && len(current) > 0 {
			if err := json.Unmarshal(current, &mappings); err != nil {
				return nil, false, fmt.Errorf("failed to decode domain category mappings: %w", err)
			}
		}
		assigned := make(map[string]bool, len(mappings))
		for _, m := range mappings {
			assigned[m.Domain] = true
		}

		changed := false
		for _, imp := range imported {
			liveID := idMap[imp.ID]
			if liveID == "" {
				continue
			}
			for _, dom := range imp.DomainNames {
				if assigned[dom] {
					continue // local assignment wins
				}
				mappings = append(mappings, domain.DomainParentCategoryMapping{
					Domain:     dom,
					CategoryID: liveID,
				})
				assigned[dom] = true
				changed = true
			}
		}
		if !changed {
			return nil, false, nil
		}
		next, err := json.Marshal(mappings)
		return next, true, err
	})
}

// importReplace overwrites group, category and settings state wholesale.
// Imported URLs are still upserted into the shared record store so
// project references to the same URLs survive.
func (e *Engine) importReplace(ctx context.Context, backup *domain.Backup) error {
	groups := make([]domain.DomainGroup, 0, len(backup.SavedTabs))
	for _, imported := range backup.SavedTabs {
		group := domain.DomainGroup{
			ID:                                uuid.NewString(),
			Domain:                            imported.Domain,
			SubCategories:                     imported.SubCategories,
			CategoryKeywords:                  imported.CategoryKeywords,
			SubCategoryOrder:                  imported.SubCategoryOrder,
			SubCategoryOrderWithUncategorized: imported.SubCategoryOrderWithUncategorized,
			ParentCategoryID:                  imported.ParentCategoryID,
			SavedAt:                           imported.SavedAt,
		}
		if group.SavedAt == 0 {
			group.SavedAt = domain.NowMillis()
		}
		for _, legacy := range imported.URLs {
			savedAt := legacy.SavedAt
			if savedAt == 0 {
				savedAt = group.SavedAt
			}
			record, err := e.urls.UpsertAt(ctx, legacy.URL, legacy.Title, legacy.FavIconURL, savedAt)
			if err != nil {
				return err
			}
			if containsString(group.URLIDs, record.ID) {
				continue
			}
			group.URLIDs = append(group.URLIDs, record.ID)
			if legacy.SubCategory != "" {
				if group.URLSubCategories == nil {
					group.URLSubCategories = make(map[string]string)
				}
				group.URLSubCategories[record.ID] = legacy.SubCategory
			}
		}
		if len(group.URLIDs) > 0 {
			groups = append(groups, group)
		}
	}

	values := make(map[string][]byte)

	groupsDoc, err := json.Marshal(groups)
	if err != nil {
		return err
	}
	values[kv.KeySavedTabs] = groupsDoc

	categories := backup.ParentCategories
	if categories == nil {
		categories = []domain.ParentCategory{}
	}
	var mappings []domain.DomainParentCategoryMapping
	for _, c := range categories {
		for _, dom := range c.DomainNames {
			mappings = append(mappings, domain.DomainParentCategoryMapping{
				Domain:     dom,
				CategoryID: c.ID,
			})
		}
	}
	categoriesDoc, err := json.Marshal(categories)
	if err != nil {
		return err
	}
	values[kv.KeyParentCategories] = categoriesDoc
	mappingsDoc, err := json.Marshal(mappings)
	if err != nil {
		return err
	}
	values[kv.KeyDomainCategoryMappings] = mappingsDoc

	if backup.UserSettings != nil {
		settingsDoc, err := json.Marshal(backup.UserSettings)
		if err != nil {
			return err
		}
		values[kv.KeyUserSettings] = settingsDoc
	}

	if err := e.db.Write(ctx, values); err != nil {
		return fmt.Errorf("failed to write replaced state: %w", err)
	}

	e.logger.Info("backup imported in replace mode",
		logger.Int("groups", len(groups)),
		logger.Int("categories", len(categories)))
	return nil
}

func containsString(list []string, s string) bool {
	for _, entry := range list {
		if entry == s {
			return true
		}
	}
	return false
}
