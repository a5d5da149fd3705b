package domain

import "testing"

func TestDomainOf(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "https url",
			input:    "https://a.com/1",
			expected: "a.com",
		},
		{
			name:     "http url with port",
			input:    "http://a.com:8080/path",
			expected: "a.com",
		},
		{
			name:     "scheme-less",
			input:    "docs.example.org/page",
			expected: "docs.example.org",
		},
		{
			name:     "mixed case host",
			input:    "https://Docs.Example.ORG/Page",
			expected: "docs.example.org",
		},
		{
			name:     "empty",
			input:    "",
			expected: "",
		},
		{
			name:     "whitespace only",
			input:    "   ",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DomainOf(tt.input)
			if got != tt.expected {
				t.Errorf("DomainOf(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestGroupRemoveURLID(t *testing.T) {
	g := &DomainGroup{
		Domain: "a.com",
		URLIDs: []string{"u1", "u2", "u3"},
		URLSubCategories: map[string]string{
			"u2": "Billing",
		},
	}

	if changed := g.RemoveURLID("u2"); !changed {
		t.Fatal("RemoveURLID(u2) should report change")
	}
	if len(g.URLIDs) != 2 {
		t.Errorf("URLIDs length = %d, want 2", len(g.URLIDs))
	}
	if _, ok := g.URLSubCategories["u2"]; ok {
		t.Error("urlSubCategories entry for u2 should be gone")
	}

	if changed := g.RemoveURLID("missing"); changed {
		t.Error("RemoveURLID(missing) should be a no-op")
	}
}
