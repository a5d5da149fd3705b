package domain

// ParentCategory groups DomainGroups under a user-chosen name.
// Names are unique case-insensitively.
//
// Domains and DomainNames are derived views recomputed from the
// domain→category mappings on read. They are persisted for the backup
// format but are never mutated independently; the mapping document is the
// single source of truth for membership.
type ParentCategory struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Domains holds member DomainGroup ids, DomainNames the matching
	// domain strings. Both derived from DomainParentCategoryMappings.
	Domains     []string `json:"domains"`
	DomainNames []string `json:"domainNames"`
}

// DomainCategorySettings is a durable shadow of a DomainGroup's
// sub-category configuration. It outlives the group so that re-saving the
// same domain restores its configuration.
type DomainCategorySettings struct {
	Domain           string        `json:"domain"`
	SubCategories    []string      `json:"subCategories,omitempty"`
	CategoryKeywords []KeywordRule `json:"categoryKeywords,omitempty"`
}

// DomainParentCategoryMapping assigns a domain to at most one
// ParentCategory. This document is authoritative for membership; the
// arrays on ParentCategory are recomputed from it.
type DomainParentCategoryMapping struct {
	Domain     string `json:"domain"`
	CategoryID string `json:"categoryId"`
}
