package timestore

import "errors"

// ErrNotFound is returned by KeyValueStore.Read for an absent key.
var ErrNotFound = errors.New("key not found")

// KeyValueStore is the per-user persistent settings store holding the
// redundant time slots. Implementations must be safe for concurrent use.
type KeyValueStore interface {
	Write(namespace, key, value string) error
	Read(namespace, key string) (string, error)
	Name() string
}
