package driven

import (
	"context"
	"errors"
)

// ErrEntryNotFound is returned by EntryStore operations addressing a key that
// does not exist.
var ErrEntryNotFound = errors.New("storage entry not found")

// ErrEntryExists is returned by Put when the key is already taken. Entries are
// immutable; there is deliberately no upsert.
var ErrEntryExists = errors.New("storage entry already exists")

// EntryStore is the driven port for raw credential-entry persistence. Entries
// are opaque payloads under string keys; interpreting keys as record ids and
// payloads as current or legacy record shapes belongs to the application
// layer. Writes must be atomic with respect to concurrent readers: a reader
// observes either no entry or the complete payload, never a partial write.
type EntryStore interface {
	// Keys returns every stored entry key, in no particular order.
	Keys(ctx context.Context) ([]string, error)

	// Get returns the payload stored under key, or ErrEntryNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put stores payload under key as an exclusive create. Returns
	// ErrEntryExists if the key is already present.
	Put(ctx context.Context, key string, payload []byte) error

	// Delete removes the entry under key, or returns ErrEntryNotFound.
	Delete(ctx context.Context, key string) error
}
