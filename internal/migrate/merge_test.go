package migrate

import (
	"testing"

	"github.com/TarouTanakaYokohama/tabbin/internal/domain"
)

func TestUnionKeywordsPreservesLocalOrder(t *testing.T) {
	local := []domain.KeywordRule{
		{CategoryName: "Billing", Keywords: []string{"invoice"}},
		{CategoryName: "Docs", Keywords: []string{"manual"}},
	}
	imported := []domain.KeywordRule{
		{CategoryName: "News", Keywords: []string{"breaking"}},
		{CategoryName: "Billing", Keywords: []string{"Invoice", "payment"}},
	}

	merged, changed := unionKeywords(local, imported)
	if !changed {
		t.Fatal("expected change")
	}
	if len(merged) != 3 {
		t.Fatalf("merged = %+v", merged)
	}
	if merged[0].CategoryName != "Billing" || merged[1].CategoryName != "Docs" {
		t.Errorf("local order not preserved: %+v", merged)
	}
	// "Invoice" is a case-duplicate of "invoice" and must not be added.
	if len(merged[0].Keywords) != 2 || merged[0].Keywords[1] != "payment" {
		t.Errorf("billing keywords = %v, want [invoice payment]", merged[0].Keywords)
	}
	if merged[2].CategoryName != "News" {
		t.Errorf("imported rule not appended: %+v", merged)
	}
}

func TestMinSavedAt(t *testing.T) {
	tests := []struct {
		name        string
		local       int64
		imported    int64
		want        int64
		wantChanged bool
	}{
		{name: "older import wins", local: 100, imported: 50, want: 50, wantChanged: true},
		{name: "newer import loses", local: 100, imported: 200, want: 100, wantChanged: false},
		{name: "zero import never wins", local: 100, imported: 0, want: 100, wantChanged: false},
		{name: "zero local adopts import", local: 0, imported: 70, want: 70, wantChanged: true},
		{name: "equal is unchanged", local: 100, imported: 100, want: 100, wantChanged: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed := minSavedAt(tt.local, tt.imported)
			if got != tt.want || changed != tt.wantChanged {
				t.Errorf("minSavedAt(%d, %d) = (%d, %v), want (%d, %v)",
					tt.local, tt.imported, got, changed, tt.want, tt.wantChanged)
			}
		})
	}
}
