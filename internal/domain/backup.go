package domain

// BackupVersion is written into every export. Imports accept any version
// the normalizer understands; the field exists so future shapes can be
// told apart.
const BackupVersion = 1

// BackupGroup is a DomainGroup in the export format: URLs stay inline
// (legacy shape) so the file remains human-portable, even though live
// storage is normalized.
type BackupGroup struct {
	ID     string `json:"id,omitempty"`
	Domain string `json:"domain" validate:"required"`

	URLs []LegacySavedURL `json:"urls" validate:"required,dive"`

	SubCategories    []string      `json:"subCategories,omitempty"`
	CategoryKeywords []KeywordRule `json:"categoryKeywords,omitempty"`

	SubCategoryOrder                  []string `json:"subCategoryOrder,omitempty"`
	SubCategoryOrderWithUncategorized []string `json:"subCategoryOrderWithUncategorized,omitempty"`

	ParentCategoryID string `json:"parentCategoryId,omitempty"`
	SavedAt          int64  `json:"savedAt,omitempty"`
}

// Backup is the import/export document.
type Backup struct {
	Version          int              `json:"version" validate:"required,min=1"`
	Timestamp        int64            `json:"timestamp"`
	UserSettings     *UserSettings    `json:"userSettings,omitempty"`
	ParentCategories []ParentCategory `json:"parentCategories,omitempty" validate:"dive"`
	SavedTabs        []BackupGroup    `json:"savedTabs" validate:"dive"`
}

// ImportMode selects how an imported backup is combined with live state.
type ImportMode string

const (
	// ImportMerge unions the backup with live state by domain string.
	// Local data wins on per-URL conflicts.
	ImportMerge ImportMode = "merge"

	// ImportReplace overwrites live state wholesale after normalization.
	ImportReplace ImportMode = "replace"
)
