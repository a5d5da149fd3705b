package keywords

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempYAML(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "keywords.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	return path
}

func TestLoadValidFile(t *testing.T) {
	path := writeTempYAML(t, `
- domain: github.com
  rules:
    - name: Issues
      keywords: ["issue", "bug"]
    - name: Pull Requests
      keywords: ["pull request", "pr"]
- domain: "*.google.com"
  rules:
    - name: Docs
      keywords: ["document"]
`)

	config, err := NewLoader(path).Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(config) != 2 {
		t.Fatalf("expected 2 domain entries, got %d", len(config))
	}
	if config[0].Domain != "github.com" || len(config[0].Rules) != 2 {
		t.Errorf("unexpected first entry: %+v", config[0])
	}
	if config[1].Domain != "*.google.com" {
		t.Errorf("wildcard pattern not preserved: %+v", config[1])
	}
	if config[0].Rules[0].Name != "Issues" || len(config[0].Rules[0].Keywords) != 2 {
		t.Errorf("unexpected rule: %+v", config[0].Rules[0])
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := NewLoader(filepath.Join(t.TempDir(), "nope.yaml")).Load()
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeTempYAML(t, "domain: [unclosed")
	_, err := NewLoader(path).Load()
	if err == nil {
		t.Fatal("expected error for invalid yaml")
	}
}
