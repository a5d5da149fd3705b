// Package kv abstracts the asynchronous key→JSON document store every
// engine component persists into, and serializes mutations so that
// concurrent read-modify-writes on the same key cannot silently lose an
// update.
package kv

import "context"

// Change notifies watchers that a key's document was rewritten.
type Change struct {
	Key string
}

// Store is the raw key→document collaborator. Values are whole JSON
// documents; a missing key is reported by absence from the Get result,
// not by an error.
type Store interface {
	// Get returns the documents for the requested keys. Keys without a
	// document are omitted from the result.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set writes every document in values. Writes within one call are
	// applied together where the backend allows it.
	Set(ctx context.Context, values map[string][]byte) error

	// Watch delivers a Change for every Set observed after the call,
	// including sets from other processes sharing the store. The channel
	// closes when ctx is done.
	Watch(ctx context.Context) (<-chan Change, error)
}
