package domain

import (
	"net/url"
	"strings"
)

// KeywordRule maps a sub-category name to the keywords that select it.
// Rules are evaluated in array order; the first rule with a matching
// keyword wins.
type KeywordRule struct {
	CategoryName string   `json:"categoryName"`
	Keywords     []string `json:"keywords"`
}

// LegacySavedURL is the embedded-URL shape DomainGroups carried before
// normalization. It survives only in two places: groups written by an old
// schema version (consumed once by the migration engine) and the backup
// export format, which intentionally stays denormalized for portability.
type LegacySavedURL struct {
	URL         string `json:"url" validate:"required"`
	Title       string `json:"title,omitempty"`
	FavIconURL  string `json:"favIconUrl,omitempty"`
	SubCategory string `json:"subCategory,omitempty"`
	SavedAt     int64  `json:"savedAt,omitempty"`
}

// DomainGroup collects every saved URL belonging to one domain, together
// with its sub-category configuration. One group exists per distinct
// domain string, and a group with no URLs must not exist (removal of the
// last URL cascades into group removal).
type DomainGroup struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`

	// URLIDs references UrlRecords by surrogate id, no duplicates.
	URLIDs []string `json:"urlIds"`

	// URLSubCategories labels individual URLs with a sub-category name.
	// Every key must be present in URLIDs.
	URLSubCategories map[string]string `json:"urlSubCategories,omitempty"`

	SubCategories    []string      `json:"subCategories,omitempty"`
	CategoryKeywords []KeywordRule `json:"categoryKeywords,omitempty"`

	SubCategoryOrder                  []string `json:"subCategoryOrder,omitempty"`
	SubCategoryOrderWithUncategorized []string `json:"subCategoryOrderWithUncategorized,omitempty"`

	ParentCategoryID string `json:"parentCategoryId,omitempty"`

	// SavedAt is the group creation time, and the expiration fallback for
	// records without their own timestamp.
	SavedAt int64 `json:"savedAt"`

	// URLs is the legacy embedded shape. Nil once migration has run.
	URLs []LegacySavedURL `json:"urls,omitempty"`
}

// HasURLID reports whether id is already referenced by the group.
func (g *DomainGroup) HasURLID(id string) bool {
	for _, existing := range g.URLIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// RemoveURLID drops id from URLIDs and URLSubCategories.
// Returns true if the group changed.
func (g *DomainGroup) RemoveURLID(id string) bool {
	changed := false
	kept := g.URLIDs[:0]
	for _, existing := range g.URLIDs {
		if existing == id {
			changed = true
			continue
		}
		kept = append(kept, existing)
	}
	g.URLIDs = kept
	if _, ok := g.URLSubCategories[id]; ok {
		delete(g.URLSubCategories, id)
		changed = true
	}
	return changed
}

// DomainOf extracts the grouping domain from a raw URL.
// Scheme-less input is treated as https. Empty string means the URL
// cannot be grouped and must be refused at save time.
func DomainOf(rawURL string) string {
	s := strings.TrimSpace(rawURL)
	if s == "" {
		return ""
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	parsed, err := url.Parse(s)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
