package domain

import "time"

// UrlRecord is the canonical, deduplicated representation of a saved URL.
// The URL string is the natural key; ID is a stable surrogate key so that
// several collections can reference the same URL without duplicating it.
type UrlRecord struct {
	// ID is the surrogate key referenced by DomainGroups and Projects.
	ID string `json:"id"`

	// URL is the natural key. At most one record exists per URL
	// (enforced by upsert, restored by the deduplicator).
	URL string `json:"url"`

	// Title is the page title captured at save time, refreshed on re-save.
	Title string `json:"title"`

	// FavIconURL is the favicon captured at save time, if any.
	FavIconURL string `json:"favIconUrl,omitempty"`

	// SavedAt is the capture time in epoch milliseconds.
	// On merge the older of two timestamps wins.
	SavedAt int64 `json:"savedAt"`
}

// NowMillis returns the current time in epoch milliseconds, the unit used
// for every persisted timestamp (backup format compatibility).
func NowMillis() int64 {
	return time.Now().UnixMilli()
}
