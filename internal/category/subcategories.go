package category

import (
	"context"
	"errors"
	"strings"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

// AddSubCategory declares a sub-category on a group. Duplicate names
// (case-insensitive) are rejected.
func (s *Service) AddSubCategory(ctx context.Context, groupID, name string) error {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return store.ErrEmptyName
	}
	if len([]rune(trimmed)) > store.MaxNameLength {
		return store.ErrNameTooLong
	}

	err := s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		for _, existing := range g.SubCategories {
			if strings.EqualFold(existing, trimmed) {
				return false, store.ErrDuplicateName
			}
		}
		g.SubCategories = append(g.SubCategories, trimmed)
		return true, nil
	})
	return s.swallowMissingGroup(err, groupID, "add sub-category")
}

// SetCategoryKeywords replaces the keyword list of one sub-category,
// creating the rule if the sub-category has none yet.
func (s *Service) SetCategoryKeywords(ctx context.Context, groupID, categoryName string, keywords []string) error {
	err := s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		for i := range g.CategoryKeywords {
			if g.CategoryKeywords[i].CategoryName == categoryName {
				g.CategoryKeywords[i].Keywords = keywords
				return true, nil
			}
		}
		g.CategoryKeywords = append(g.CategoryKeywords, domain.KeywordRule{
			CategoryName: categoryName,
			Keywords:     keywords,
		})
		return true, nil
	})
	return s.swallowMissingGroup(err, groupID, "set keywords")
}

// SetURLSubCategory manually labels one URL, or clears the label when
// name is empty. The id must be referenced by the group.
func (s *Service) SetURLSubCategory(ctx context.Context, groupID, urlID, name string) error {
	err := s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		if !g.HasURLID(urlID) {
			return false, nil
		}
		if name == "" {
			if _, ok := g.URLSubCategories[urlID]; !ok {
				return false, nil
			}
			delete(g.URLSubCategories, urlID)
			return true, nil
		}
		if g.URLSubCategories == nil {
			g.URLSubCategories = make(map[string]string)
		}
		if g.URLSubCategories[urlID] == name {
			return false, nil
		}
		g.URLSubCategories[urlID] = name
		return true, nil
	})
	return s.swallowMissingGroup(err, groupID, "set url sub-category")
}

// RenameSubCategory renames a sub-category everywhere it appears:
// the declaration list, the keyword rules, every per-URL label, and
// both order arrays. Missing any of these would leave URLs stuck under
// a label that no longer exists.
func (s *Service) RenameSubCategory(ctx context.Context, groupID, oldName, newName string) error {
	trimmed := strings.TrimSpace(newName)
	if trimmed == "" {
		return store.ErrEmptyName
	}
	if len([]rune(trimmed)) > store.MaxNameLength {
		return store.ErrNameTooLong
	}

	err := s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		for _, existing := range g.SubCategories {
			if existing != oldName && strings.EqualFold(existing, trimmed) {
				return false, store.ErrDuplicateName
			}
		}
		return rewriteSubCategory(g, oldName, trimmed), nil
	})
	return s.swallowMissingGroup(err, groupID, "rename sub-category")
}

// RemoveSubCategory deletes a sub-category everywhere it appears.
// URLs labeled with it become uncategorized.
func (s *Service) RemoveSubCategory(ctx context.Context, groupID, name string) error {
	err := s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		return rewriteSubCategory(g, name, ""), nil
	})
	return s.swallowMissingGroup(err, groupID, "remove sub-category")
}

// rewriteSubCategory renames oldName to newName across every field that
// can carry it; newName == "" removes instead. Returns true on change.
func rewriteSubCategory(g *domain.DomainGroup, oldName, newName string) bool {
	changed := false

	rewriteList := func(list []string) []string {
		out := list[:0]
		for _, entry := range list {
			if entry != oldName {
				out = append(out, entry)
				continue
			}
			changed = true
			if newName != "" {
				out = append(out, newName)
			}
		}
		return out
	}

	g.SubCategories = rewriteList(g.SubCategories)
	g.SubCategoryOrder = rewriteList(g.SubCategoryOrder)
	g.SubCategoryOrderWithUncategorized = rewriteList(g.SubCategoryOrderWithUncategorized)

	rules := g.CategoryKeywords[:0]
	for _, rule := range g.CategoryKeywords {
		if rule.CategoryName != oldName {
			rules = append(rules, rule)
			continue
		}
		changed = true
		if newName != "" {
			rule.CategoryName = newName
			rules = append(rules, rule)
		}
	}
	g.CategoryKeywords = rules

	for id, label := range g.URLSubCategories {
		if label != oldName {
			continue
		}
		changed = true
		if newName == "" {
			delete(g.URLSubCategories, id)
		} else {
			g.URLSubCategories[id] = newName
		}
	}

	return changed
}

// SetSubCategoryOrder replaces the display order arrays.
func (s *Service) SetSubCategoryOrder(ctx context.Context, groupID string, order, orderWithUncategorized []string) error {
	err := s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		g.SubCategoryOrder = order
		g.SubCategoryOrderWithUncategorized = orderWithUncategorized
		return true, nil
	})
	return s.swallowMissingGroup(err, groupID, "set sub-category order")
}

// swallowMissingGroup downgrades a referential miss to a logged no-op.
func (s *Service) swallowMissingGroup(err error, groupID, op string) error {
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn(op+": group not found",
			logger.String("group_id", groupID))
		return nil
	}
	return err
}
