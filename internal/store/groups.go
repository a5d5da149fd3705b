package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
)

// GroupStore manages DomainGroups: one group per distinct domain, no
// duplicate url references, and no empty group. Removing the last URL of
// a group cascades into group removal, persisting the group's category
// configuration into the durable shadows first so that re-saving the
// same domain restores it.
type GroupStore struct {
	db     *kv.DB
	urls   *URLStore
	logger logger.Logger

	// DefaultRules supplies seed keyword rules for a domain whose group
	// is created for the first time and has no shadow settings. Optional.
	DefaultRules func(domain string) []domain.KeywordRule

	// Settings, when set, lets AddURL reject URLs matching the user's
	// exclude patterns. Optional.
	Settings *SettingsStore
}

// NewGroupStore creates the DomainGroup store.
func NewGroupStore(db *kv.DB, urls *URLStore, log logger.Logger) *GroupStore {
	return &GroupStore{
		db:     db,
		urls:   urls,
		logger: log,
	}
}

func decodeGroups(data []byte, found bool) ([]domain.DomainGroup, error) {
	if !found || len(data) == 0 {
		return nil, nil
	}
	var groups []domain.DomainGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("failed to decode domain groups: %w", err)
	}
	return groups, nil
}

// All returns every DomainGroup.
func (s *GroupStore) All(ctx context.Context) ([]domain.DomainGroup, error) {
	data, found, err := s.db.Read(ctx, kv.KeySavedTabs)
	if err != nil {
		return nil, err
	}
	return decodeGroups(data, found)
}

// Get returns one group by id.
func (s *GroupStore) Get(ctx context.Context, id string) (*domain.DomainGroup, error) {
	groups, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if groups[i].ID == id {
			return &groups[i], nil
		}
	}
	return nil, ErrNotFound
}

// GetByDomain returns the group for a domain string, if one exists.
func (s *GroupStore) GetByDomain(ctx context.Context, dom string) (*domain.DomainGroup, bool, error) {
	groups, err := s.All(ctx)
	if err != nil {
		return nil, false, err
	}
	for i := range groups {
		if groups[i].Domain == dom {
			return &groups[i], true, nil
		}
	}
	return nil, false, nil
}

// AddURL saves a tab: the URL is upserted into the record store and its
// id appended to the domain's group, creating the group if needed.
// Appending an id the group already holds is a no-op.
func (s *GroupStore) AddURL(ctx context.Context, rawURL, title, favIconURL string) (*domain.DomainGroup, error) {
	dom := domain.DomainOf(rawURL)
	if dom == "" {
		return nil, ErrInvalidURL
	}

	if s.Settings != nil {
		settings, err := s.Settings.Get(ctx)
		if err != nil {
			return nil, err
		}
		if settings.Excluded(rawURL) {
			return nil, ErrExcludedURL
		}
	}

	record, err := s.urls.Upsert(ctx, rawURL, title, favIconURL)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert url record: %w", err)
	}

	// Shadow config and seed rules are looked up before the mutation so
	// the savedTabs read-modify-write stays small.
	shadow, mapping, err := s.loadShadows(ctx, dom)
	if err != nil {
		return nil, err
	}

	var result domain.DomainGroup
	err = s.db.Update(ctx, kv.KeySavedTabs, func(current []byte, found bool) ([]byte, bool, error) {
		groups, err := decodeGroups(current, found)
		if err != nil {
			return nil, false, err
		}

		for i := range groups {
			if groups[i].Domain != dom {
				continue
			}
			if groups[i].HasURLID(record.ID) {
				result = groups[i]
				return nil, false, nil
			}
			groups[i].URLIDs = append(groups[i].URLIDs, record.ID)
			result = groups[i]
			next, err := json.Marshal(groups)
			return next, true, err
		}

		group := domain.DomainGroup{
			ID:      uuid.NewString(),
			Domain:  dom,
			URLIDs:  []string{record.ID},
			SavedAt: domain.NowMillis(),
		}
		if shadow != nil {
			group.SubCategories = shadow.SubCategories
			group.CategoryKeywords = shadow.CategoryKeywords
		} else if s.DefaultRules != nil {
			if rules := s.DefaultRules(dom); len(rules) > 0 {
				group.CategoryKeywords = rules
				for _, rule := range rules {
					group.SubCategories = append(group.SubCategories, rule.CategoryName)
				}
			}
		}
		if mapping != nil {
			group.ParentCategoryID = mapping.CategoryID
		}

		groups = append(groups, group)
		result = group
		next, err := json.Marshal(groups)
		return next, true, err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// RemoveURL removes rawURL's record reference from the group. When the
// group empties, its category configuration is persisted into the
// DomainCategorySettings and DomainParentCategoryMapping shadows before
// the group itself is deleted. A missing group or URL is a logged no-op.
func (s *GroupStore) RemoveURL(ctx context.Context, groupID, rawURL string) error {
	record, found, err := s.urls.FindByURL(ctx, rawURL)
	if err != nil {
		return err
	}
	if !found {
		s.logger.Warn("remove url: no record for url, nothing to do",
			logger.String("group_id", groupID))
		return nil
	}

	// When this removal empties the group, its category configuration
	// must already be durable in the shadows: a failure between the two
	// writes must leave the configuration recoverable.
	groups, err := s.All(ctx)
	if err != nil {
		return err
	}
	for i := range groups {
		if groups[i].ID != groupID {
			continue
		}
		if len(groups[i].URLIDs) == 1 && groups[i].URLIDs[0] == record.ID {
			if err := s.persistShadows(ctx, &groups[i]); err != nil {
				return err
			}
		}
		break
	}

	var emptied *domain.DomainGroup
	err = s.db.Update(ctx, kv.KeySavedTabs, func(current []byte, foundDoc bool) ([]byte, bool, error) {
		groups, err := decodeGroups(current, foundDoc)
		if err != nil {
			return nil, false, err
		}

		for i := range groups {
			if groups[i].ID != groupID {
				continue
			}
			if !groups[i].RemoveURLID(record.ID) {
				return nil, false, nil
			}
			if len(groups[i].URLIDs) == 0 {
				g := groups[i]
				emptied = &g
				groups = append(groups[:i], groups[i+1:]...)
			}
			next, err := json.Marshal(groups)
			return next, true, err
		}

		s.logger.Warn("remove url: group not found",
			logger.String("group_id", groupID))
		return nil, false, nil
	})
	if err != nil {
		return err
	}

	if emptied != nil {
		s.logger.Info("removed empty domain group",
			logger.String("domain", emptied.Domain))
	}
	return nil
}

// Mutate applies fn to one group under the savedTabs lock. fn returns
// true when the group changed. A missing id aborts without writing.
func (s *GroupStore) Mutate(ctx context.Context, id string, fn func(g *domain.DomainGroup) (bool, error)) error {
	return s.db.Update(ctx, kv.KeySavedTabs, func(current []byte, found bool) ([]byte, bool, error) {
		groups, err := decodeGroups(current, found)
		if err != nil {
			return nil, false, err
		}
		for i := range groups {
			if groups[i].ID != id {
				continue
			}
			changed, err := fn(&groups[i])
			if err != nil || !changed {
				return nil, false, err
			}
			next, err := json.Marshal(groups)
			return next, true, err
		}
		return nil, false, ErrNotFound
	})
}

// MutateAll applies fn to the whole group array under the lock.
func (s *GroupStore) MutateAll(ctx context.Context, fn func(groups []domain.DomainGroup) ([]domain.DomainGroup, bool, error)) error {
	return s.db.Update(ctx, kv.KeySavedTabs, func(current []byte, found bool) ([]byte, bool, error) {
		groups, err := decodeGroups(current, found)
		if err != nil {
			return nil, false, err
		}
		updated, changed, err := fn(groups)
		if err != nil || !changed {
			return nil, false, err
		}
		next, err := json.Marshal(updated)
		return next, true, err
	})
}

// loadShadows returns the surviving category configuration for a domain,
// if any was persisted when its previous group was removed.
func (s *GroupStore) loadShadows(ctx context.Context, dom string) (*domain.DomainCategorySettings, *domain.DomainParentCategoryMapping, error) {
	docs, err := s.db.ReadMany(ctx, kv.KeyDomainCategorySettings, kv.KeyDomainCategoryMappings)
	if err != nil {
		return nil, nil, err
	}

	var shadow *domain.DomainCategorySettings
	if data, ok := docs[kv.KeyDomainCategorySettings]; ok {
		var all []domain.DomainCategorySettings
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, nil, fmt.Errorf("failed to decode domain category settings: %w", err)
		}
		for i := range all {
			if all[i].Domain == dom {
				shadow = &all[i]
				break
			}
		}
	}

	var mapping *domain.DomainParentCategoryMapping
	if data, ok := docs[kv.KeyDomainCategoryMappings]; ok {
		var all []domain.DomainParentCategoryMapping
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, nil, fmt.Errorf("failed to decode domain category mappings: %w", err)
		}
		for i := range all {
			if all[i].Domain == dom {
				mapping = &all[i]
				break
			}
		}
	}

	return shadow, mapping, nil
}

// persistShadows writes a removed group's category configuration into
// the durable shadow documents.
func (s *GroupStore) persistShadows(ctx context.Context, g *domain.DomainGroup) error {
	if len(g.SubCategories) > 0 || len(g.CategoryKeywords) > 0 {
		err := s.db.Update(ctx, kv.KeyDomainCategorySettings, func(current []byte, found bool) ([]byte, bool, error) {
			var all []domain.DomainCategorySettings
			if found && len(current) > 0 {
				if err := json.Unmarshal(current, &all); err != nil {
					return nil, false, fmt.Errorf("failed to decode domain category settings: %w", err)
				}
			}
			entry := domain.DomainCategorySettings{
				Domain:           g.Domain,
				SubCategories:    g.SubCategories,
				CategoryKeywords: g.CategoryKeywords,
			}
			replaced := false
			for i := range all {
				if all[i].Domain == g.Domain {
					all[i] = entry
					replaced = true
					break
				}
			}
			if !replaced {
				all = append(all, entry)
			}
			next, err := json.Marshal(all)
			return next, true, err
		})
		if err != nil {
			return err
		}
	}

	if g.ParentCategoryID != "" {
		err := s.db.Update(ctx, kv.KeyDomainCategoryMappings, func(current []byte, found bool) ([]byte, bool, error) {
			var all []domain.DomainParentCategoryMapping
			if found && len(current) > 0 {
				if err := json.Unmarshal(current, &all); err != nil {
					return nil, false, fmt.Errorf("failed to decode domain category mappings: %w", err)
				}
			}
			entry := domain.DomainParentCategoryMapping{
				Domain:     g.Domain,
				CategoryID: g.ParentCategoryID,
			}
			replaced := false
			for i := range all {
				if all[i].Domain == g.Domain {
					all[i] = entry
					replaced = true
					break
				}
			}
			if !replaced {
				all = append(all, entry)
			}
			next, err := json.Marshal(all)
			return next, true, err
		})
		if err != nil {
			return err
		}
	}

	return nil
}
