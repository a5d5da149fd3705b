package domain

// ProjectURLMeta carries the per-URL metadata a project keeps alongside a
// UrlRecord reference. Sparse: absent entries mean no notes, no category.
type ProjectURLMeta struct {
	Notes    string `json:"notes,omitempty"`
	Category string `json:"category,omitempty"`
	SavedAt  int64  `json:"savedAt,omitempty"`
}

// LegacyProjectURL is the embedded shape project URL lists carried before
// normalization.
type LegacyProjectURL struct {
	URL        string `json:"url"`
	Title      string `json:"title,omitempty"`
	FavIconURL string `json:"favIconUrl,omitempty"`
	Notes      string `json:"notes,omitempty"`
	Category   string `json:"category,omitempty"`
	SavedAt    int64  `json:"savedAt,omitempty"`
}

// Project is a user-defined collection of URLs across domains.
// Names are unique case-insensitively. Unlike DomainGroups, an empty
// project is a valid terminal state.
type Project struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	URLIDs  []string                  `json:"urlIds"`
	URLMeta map[string]ProjectURLMeta `json:"urlMeta,omitempty"`

	Categories    []string `json:"categories,omitempty"`
	CategoryOrder []string `json:"categoryOrder,omitempty"`

	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`

	// URLs is the legacy embedded shape. Nil once migration has run.
	URLs []LegacyProjectURL `json:"urls,omitempty"`
}

// HasURLID reports whether id is already referenced by the project.
func (p *Project) HasURLID(id string) bool {
	for _, existing := range p.URLIDs {
		if existing == id {
			return true
		}
	}
	return false
}

// RemoveURLID drops id from URLIDs and URLMeta. Returns true on change.
func (p *Project) RemoveURLID(id string) bool {
	changed := false
	kept := p.URLIDs[:0]
	for _, existing := range p.URLIDs {
		if existing == id {
			changed = true
			continue
		}
		kept = append(kept, existing)
	}
	p.URLIDs = kept
	if _, ok := p.URLMeta[id]; ok {
		delete(p.URLMeta, id)
		changed = true
	}
	return changed
}

// DefaultProjectName is materialized the first time the project view is
// used and no project exists yet.
const DefaultProjectName = "My Project"
