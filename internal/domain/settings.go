package domain

import (
	"strings"
	"time"
)

// ExpirationTTL is the user-selectable age after which saved URLs expire.
// "never" disables the sweep entirely.
type ExpirationTTL string

const (
	TTLNever     ExpirationTTL = "never"
	TTL30Seconds ExpirationTTL = "30s"
	TTL1Minute   ExpirationTTL = "1m"
	TTL1Hour     ExpirationTTL = "1h"
	TTL1Day      ExpirationTTL = "1d"
	TTL7Days     ExpirationTTL = "7d"
	TTL14Days    ExpirationTTL = "14d"
	TTL30Days    ExpirationTTL = "30d"
	TTL180Days   ExpirationTTL = "180d"
	TTL365Days   ExpirationTTL = "365d"
)

var ttlDurations = map[ExpirationTTL]time.Duration{
	TTL30Seconds: 30 * time.Second,
	TTL1Minute:   time.Minute,
	TTL1Hour:     time.Hour,
	TTL1Day:      24 * time.Hour,
	TTL7Days:     7 * 24 * time.Hour,
	TTL14Days:    14 * 24 * time.Hour,
	TTL30Days:    30 * 24 * time.Hour,
	TTL180Days:   180 * 24 * time.Hour,
	TTL365Days:   365 * 24 * time.Hour,
}

// Duration maps the TTL choice to a fixed duration.
// ok is false for "never" and for unknown values, both of which disable
// the sweep.
func (t ExpirationTTL) Duration() (time.Duration, bool) {
	d, ok := ttlDurations[t]
	return d, ok
}

// ValidTTL reports whether t is a known expiration choice.
func ValidTTL(t ExpirationTTL) bool {
	if t == TTLNever {
		return true
	}
	_, ok := ttlDurations[t]
	return ok
}

// UserSettings is the flat settings document. The engine consumes it but
// does not own it; unknown fields written by the UI survive round-trips
// only on the UI side, so this struct lists every field the engine reads.
type UserSettings struct {
	// AutoDeletePeriod is the expiration TTL choice.
	AutoDeletePeriod ExpirationTTL `json:"autoDeletePeriod,omitempty"`

	// ExcludePatterns lists URL substrings that must never be saved.
	ExcludePatterns []string `json:"excludePatterns,omitempty"`

	// OpenUrlInBackground controls click behavior in the UI. Stored here
	// so the engine round-trips it on import.
	OpenUrlInBackground bool `json:"openUrlInBackground,omitempty"`

	// RemoveTabAfterOpen controls whether opening a saved URL deletes it.
	RemoveTabAfterOpen bool `json:"removeTabAfterOpen,omitempty"`
}

// DefaultUserSettings returns the settings used before the user has
// saved any: expiration disabled, nothing excluded.
func DefaultUserSettings() UserSettings {
	return UserSettings{AutoDeletePeriod: TTLNever}
}

// Excluded reports whether rawURL matches any exclude pattern.
// Patterns are plain substrings.
func (s *UserSettings) Excluded(rawURL string) bool {
	for _, pattern := range s.ExcludePatterns {
		if pattern == "" {
			continue
		}
		if strings.Contains(rawURL, pattern) {
			return true
		}
	}
	return false
}
