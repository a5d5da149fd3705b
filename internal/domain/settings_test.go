package domain

import (
	"testing"
	"time"
)

func TestExpirationTTLDuration(t *testing.T) {
	tests := []struct {
		name     string
		ttl      ExpirationTTL
		expected time.Duration
		ok       bool
	}{
		{name: "never disables", ttl: TTLNever, ok: false},
		{name: "30 seconds", ttl: TTL30Seconds, expected: 30 * time.Second, ok: true},
		{name: "one day", ttl: TTL1Day, expected: 24 * time.Hour, ok: true},
		{name: "365 days", ttl: TTL365Days, expected: 365 * 24 * time.Hour, ok: true},
		{name: "unknown value disables", ttl: ExpirationTTL("2w"), ok: false},
		{name: "empty disables", ttl: ExpirationTTL(""), ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, ok := tt.ttl.Duration()
			if ok != tt.ok {
				t.Fatalf("Duration() ok = %v, want %v", ok, tt.ok)
			}
			if ok && d != tt.expected {
				t.Errorf("Duration() = %v, want %v", d, tt.expected)
			}
		})
	}
}

func TestUserSettingsExcluded(t *testing.T) {
	s := &UserSettings{ExcludePatterns: []string{"mail.google.com", "localhost", ""}}

	if !s.Excluded("https://mail.google.com/inbox") {
		t.Error("matching pattern should exclude")
	}
	if s.Excluded("https://example.com/") {
		t.Error("non-matching URL should not be excluded")
	}
	if (&UserSettings{}).Excluded("https://example.com/") {
		t.Error("empty pattern list should exclude nothing")
	}
}
