package kv

import "context"

// Store is the keyed persistent storage contract shared by the usage
// ledger and the result caches. Values are JSON-encoded strings; keys
// are namespaced by the caller (e.g. "usage::<install>",
// "summary::<page>::<key>").
type Store interface {
	// Get returns the value for key. The second result is false when the
	// key is absent.
	Get(ctx context.Context, key string) (string, bool, error)

	Set(ctx context.Context, key, value string) error

	// Delete removes key. Deleting an absent key is a no-op.
	Delete(ctx context.Context, key string) error
}
