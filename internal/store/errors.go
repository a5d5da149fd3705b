package store

import "errors"

// Validation errors. Rejected synchronously, no state change.
var (
	// ErrDuplicateName means a project or category name already exists
	// (names compare case-insensitively).
	ErrDuplicateName = errors.New("name already exists")

	// ErrEmptyName means a required name was empty or whitespace.
	ErrEmptyName = errors.New("name must not be empty")

	// ErrNameTooLong means a name exceeded MaxNameLength.
	ErrNameTooLong = errors.New("name too long")

	// ErrExcludedURL means the URL matches a user exclude pattern and
	// must not be saved.
	ErrExcludedURL = errors.New("url matches an exclude pattern")

	// ErrInvalidURL means no domain could be derived from the URL.
	ErrInvalidURL = errors.New("url has no usable domain")

	// ErrInvalidSettings means a settings write carried a value outside
	// the allowed set.
	ErrInvalidSettings = errors.New("invalid settings")
)

// ErrNotFound is referential: the target id no longer exists. Callers
// treat it as a no-op, never as fatal.
var ErrNotFound = errors.New("not found")

// MaxNameLength bounds project and category names.
const MaxNameLength = 50
