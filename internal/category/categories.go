// Package category implements parent categories, domain→category
// assignment, sub-category management and keyword auto-categorization.
//
// Membership state lives in the domainCategoryMappings document, keyed
// by domain string. The id and name arrays on ParentCategory are views
// recomputed from that mapping on read; they are never mutated on their
// own, so the two can not diverge.
package category

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/kv"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

// NoCategory is the assignment target that clears a domain's category.
const NoCategory = "none"

// Service exposes the category subsystem operations.
type Service struct {
	db     *kv.DB
	groups *store.GroupStore
	urls   *store.URLStore
	logger logger.Logger
}

// NewService creates the category service.
func NewService(db *kv.DB, groups *store.GroupStore, urls *store.URLStore, log logger.Logger) *Service {
	return &Service{
		db:     db,
		groups: groups,
		urls:   urls,
		logger: log,
	}
}

func decodeCategories(data []byte, found bool) ([]domain.ParentCategory, error) {
	if !found || len(data) == 0 {
		return nil, nil
	}
	var categories []domain.ParentCategory
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("failed to decode parent categories: %w", err)
	}
	return categories, nil
}

func decodeMappings(data []byte, found bool) ([]domain.DomainParentCategoryMapping, error) {
	if !found || len(data) == 0 {
		return nil, nil
	}
	var mappings []domain.DomainParentCategoryMapping
	if err := json.Unmarshal(data, &mappings); err != nil {
		return nil, fmt.Errorf("failed to decode domain category mappings: %w", err)
	}
	return mappings, nil
}

// CreateParentCategory adds a category. Fails with ErrDuplicateName when
// any existing category matches case-insensitively.
func (s *Service) CreateParentCategory(ctx context.Context, name string) (*domain.ParentCategory, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, store.ErrEmptyName
	}
	if len([]rune(trimmed)) > store.MaxNameLength {
		return nil, store.ErrNameTooLong
	}

	var result domain.ParentCategory
	err := s.db.Update(ctx, kv.KeyParentCategories, func(current []byte, found bool) ([]byte, bool, error) {
		categories, err := decodeCategories(current, found)
		if err != nil {
			return nil, false, err
		}
		for i := range categories {
			if strings.EqualFold(categories[i].Name, trimmed) {
				return nil, false, store.ErrDuplicateName
			}
		}

		result = domain.ParentCategory{
			ID:          uuid.NewString(),
			Name:        trimmed,
			Domains:     []string{},
			DomainNames: []string{},
		}
		categories = append(categories, result)
		next, err := json.Marshal(categories)
		return next, true, err
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// All returns every parent category with its membership views
// recomputed from the authoritative domain→category mapping.
func (s *Service) All(ctx context.Context) ([]domain.ParentCategory, error) {
	docs, err := s.db.ReadMany(ctx, kv.KeyParentCategories, kv.KeyDomainCategoryMappings, kv.KeySavedTabs)
	if err != nil {
		return nil, err
	}

	categories, err := decodeCategories(docs[kv.KeyParentCategories], docs[kv.KeyParentCategories] != nil)
	if err != nil {
		return nil, err
	}
	mappings, err := decodeMappings(docs[kv.KeyDomainCategoryMappings], docs[kv.KeyDomainCategoryMappings] != nil)
	if err != nil {
		return nil, err
	}

	groupIDByDomain := make(map[string]string)
	if data, ok := docs[kv.KeySavedTabs]; ok {
		var groups []domain.DomainGroup
		if err := json.Unmarshal(data, &groups); err != nil {
			return nil, fmt.Errorf("failed to decode domain groups: %w", err)
		}
		for _, g := range groups {
			groupIDByDomain[g.Domain] = g.ID
		}
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
	return categories, nil
}

// Get returns one category with recomputed views.
func (s *Service) Get(ctx context.Context, id string) (*domain.ParentCategory, error) {
	categories, err := s.All(ctx)
	if err != nil {
		return nil, err
	}
	for i := range categories {
		if categories[i].ID == id {
			return &categories[i], nil
		}
	}
	return nil, store.ErrNotFound
}

// AssignDomainToCategory moves a domain group into categoryID, or clears
// its assignment when categoryID is NoCategory. Membership is exclusive:
// the mapping document holds at most one entry per domain, so assignment
// implicitly removes the domain from every other category.
func (s *Service) AssignDomainToCategory(ctx context.Context, groupID, categoryID string) error {
	group, err := s.groups.Get(ctx, groupID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("assign category: group not found",
				logger.String("group_id", groupID))
			return nil
		}
		return err
	}

	if categoryID != NoCategory {
		if _, err := s.Get(ctx, categoryID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				s.logger.Warn("assign category: category not found",
					logger.String("category_id", categoryID))
				return nil
			}
			return err
		}
	}

	err = s.db.Update(ctx, kv.KeyDomainCategoryMappings, func(current []byte, found bool) ([]byte, bool, error) {
		mappings, err := decodeMappings(current, found)
		if err != nil {
			return nil, false, err
		}

		kept := mappings[:0]
		for _, m := range mappings {
			if m.Domain == group.Domain {
				continue
			}
			kept = append(kept, m)
		}
		if categoryID != NoCategory {
			kept = append(kept, domain.DomainParentCategoryMapping{
				Domain:     group.Domain,
				CategoryID: categoryID,
			})
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return err
	}

	// Mirror the assignment onto the group for single-read consumers.
	newID := ""
	if categoryID != NoCategory {
		newID = categoryID
	}
	return s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		if g.ParentCategoryID == newID {
			return false, nil
		}
		g.ParentCategoryID = newID
		return true, nil
	})
}

// DeleteParentCategory removes the category, every mapping pointing at
// it, and the mirrored assignment on live groups. Keyword configuration
// in DomainCategorySettings survives independently.
func (s *Service) DeleteParentCategory(ctx context.Context, id string) error {
	err := s.db.Update(ctx, kv.KeyParentCategories, func(current []byte, found bool) ([]byte, bool, error) {
		categories, err := decodeCategories(current, found)
		if err != nil {
			return nil, false, err
		}
		kept := categories[:0]
		deleted := false
		for _, c := range categories {
			if c.ID == id {
				deleted = true
				continue
			}
			kept = append(kept, c)
		}
		if !deleted {
			return nil, false, nil
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return err
	}

	err = s.db.Update(ctx, kv.KeyDomainCategoryMappings, func(current []byte, found bool) ([]byte, bool, error) {
		mappings, err := decodeMappings(current, found)
		if err != nil {
			return nil, false, err
		}
		kept := mappings[:0]
		changed := false
		for _, m := range mappings {
			if m.CategoryID == id {
				changed = true
				continue
			}
			kept = append(kept, m)
		}
		if !changed {
			return nil, false, nil
		}
		next, err := json.Marshal(kept)
		return next, true, err
	})
	if err != nil {
		return err
	}

	return s.groups.MutateAll(ctx, func(groups []domain.DomainGroup) ([]domain.DomainGroup, bool, error) {
		changed := false
		for i := range groups {
			if groups[i].ParentCategoryID == id {
				groups[i].ParentCategoryID = ""
				changed = true
			}
		}
		return groups, changed, nil
	})
}
