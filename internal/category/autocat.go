package category

import (
	"context"
	"errors"
	"strings"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
	"github.com/TarouTanakaYokohama/tabbin/internal/logger"
	"github.com/TarouTanakaYokohama/tabbin/internal/store"
)

// AutoCategorizeTabs labels every URL in the group using its keyword
// rules. For each URL the lower-cased title is tested against the rules
// in array order; the first rule with any keyword appearing as a
// case-insensitive substring wins. First-match, not best-match: the
// operation is deterministic for a given title and rule list, so
// re-running it only relabels URLs whose winning rule changed. A URL
// with no match carries no sub-category.
func (s *Service) AutoCategorizeTabs(ctx context.Context, groupID string) (int, error) {
	records, err := s.urls.All(ctx)
	if err != nil {
		return 0, err
	}
	titles := make(map[string]string, len(records))
	for _, r := range records {
		titles[r.ID] = r.Title
	}

	relabeled := 0
	err = s.groups.Mutate(ctx, groupID, func(g *domain.DomainGroup) (bool, error) {
		relabeled = 0
		changed := false

		for _, id := range g.URLIDs {
			label := matchKeywordRule(titles[id], g.CategoryKeywords)
			current, has := g.URLSubCategories[id]

			if label == "" {
				if has {
					delete(g.URLSubCategories, id)
					relabeled++
					changed = true
				}
				continue
			}
			if has && current == label {
				continue
			}
			if g.URLSubCategories == nil {
				g.URLSubCategories = make(map[string]string)
			}
			g.URLSubCategories[id] = label
			relabeled++
			changed = true
		}
		return changed, nil
	})
	if errors.Is(err, store.ErrNotFound) {
		s.logger.Warn("auto-categorize: group not found",
			logger.String("group_id", groupID))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return relabeled, nil
}

// matchKeywordRule returns the first rule name whose keywords contain a
// case-insensitive substring of title, or "" when nothing matches.
func matchKeywordRule(title string, rules []domain.KeywordRule) string {
	lower := strings.ToLower(title)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			if keyword == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(keyword)) {
				return rule.CategoryName
			}
		}
	}
	return ""
}
