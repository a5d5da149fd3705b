package kv

// KeyPrefix namespaces every engine document in a shared store.
const KeyPrefix = "tabbin:"

// Persisted document keys. Each one holds a single JSON document.
const (
	// KeyURLs is the canonical UrlRecord array.
	KeyURLs = KeyPrefix + "urls"
	// KeySavedTabs is the DomainGroup array.
	KeySavedTabs = KeyPrefix + "savedTabs"
	// KeyCustomProjects is the Project array.
	KeyCustomProjects = KeyPrefix + "customProjects"
	// KeyCustomProjectOrder is the project display-order id array.
	KeyCustomProjectOrder = KeyPrefix + "customProjectOrder"
	// KeyParentCategories is the ParentCategory array.
	KeyParentCategories = KeyPrefix + "parentCategories"
	// KeyDomainCategorySettings is the per-domain sub-category config shadow.
	KeyDomainCategorySettings = KeyPrefix + "domainCategorySettings"
	// KeyDomainCategoryMappings is the authoritative domain→category mapping.
	KeyDomainCategoryMappings = KeyPrefix + "domainCategoryMappings"
	// KeyMigrationCompleted guards the one-way legacy migration.
	KeyMigrationCompleted = KeyPrefix + "urlsMigrationCompleted"
	// KeyUserSettings is the flat settings document (consumed, not owned).
	KeyUserSettings = KeyPrefix + "userSettings"
)

// ChangeChannel is the pub/sub channel carrying Change notifications
// between execution contexts sharing the same Redis.
const ChangeChannel = KeyPrefix + "changes"
