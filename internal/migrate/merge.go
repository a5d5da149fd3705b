package migrate

import (
	"strings"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
)

// unionKeywords merges imported keyword rules into local ones, keyed by
// categoryName. Local rule order is preserved; shared rules get the
// union of their keyword sets; rules only the import knows are appended.
func unionKeywords(local, imported []domain.KeywordRule) ([]domain.KeywordRule, bool) {
	changed := false
	merged := make([]domain.KeywordRule, len(local))
	copy(merged, local)

	index := make(map[string]int, len(merged))
	for i, rule := range merged {
		index[rule.CategoryName] = i
	}

	for _, rule := range imported {
		i, ok := index[rule.CategoryName]
		if !ok {
			merged = append(merged, rule)
			index[rule.CategoryName] = len(merged) - 1
			changed = true
			continue
		}
		seen := make(map[string]bool, len(merged[i].Keywords))
		for _, kw := range merged[i].Keywords {
			seen[strings.ToLower(kw)] = true
		}
		for _, kw := range rule.Keywords {
			if seen[strings.ToLower(kw)] {
				continue
			}
			merged[i].Keywords = append(merged[i].Keywords, kw)
			seen[strings.ToLower(kw)] = true
			changed = true
		}
	}
	return merged, changed
}

// unionStrings appends imported entries local does not already hold.
func unionStrings(local, imported []string) ([]string, bool) {
	changed := false
	merged := make([]string, len(local))
	copy(merged, local)

	seen := make(map[string]bool, len(merged))
	for _, entry := range merged {
		seen[entry] = true
	}
	for _, entry := range imported {
		if seen[entry] {
			continue
		}
		merged = append(merged, entry)
		seen[entry] = true
		changed = true
	}
	return merged, changed
}

// minSavedAt keeps the older of two timestamps: the merged save date
// answers "when was this first captured". A zero import timestamp never
// wins.
func minSavedAt(local, imported int64) (int64, bool) {
	if imported > 0 && (local == 0 || imported < local) {
		return imported, imported != local
	}
	return local, false
}
