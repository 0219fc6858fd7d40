package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/avalette/credgate/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.EntryStore = (*EntryRepo)(nil)

// EntryRepo is the SQLite implementation of the EntryStore port. One row per
// credential entry, keyed by its TEXT entry key. Writes go through the single
// writer connection, so an entry becomes visible to readers only as a complete
// row; there is no partial-write state to observe.
type EntryRepo struct {
	db *DB
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(db *DB) *EntryRepo {
	return &EntryRepo{db: db}
}

// Keys returns every stored entry key.
func (r *EntryRepo) Keys(ctx context.Context) ([]string, error) {
	const query = `SELECT entry_key FROM credential_entries`
	rows, err := r.db.Reader.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list entry keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan entry key: %w", err)
		}
		keys = append(keys, key)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entry keys: %w", err)
	}

	return keys, nil
}

// Get returns the payload stored under key.
func (r *EntryRepo) Get(ctx context.Context, key string) ([]byte, error) {
	const query = `SELECT payload FROM credential_entries WHERE entry_key = ?`
	var payload []byte
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, driven.ErrEntryNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get entry %q: %w", key, err)
	}
	return payload, nil
}

// Put stores payload under key. The insert is exclusive: a conflicting key
// surfaces as ErrEntryExists rather than silently replacing the row.
func (r *EntryRepo) Put(ctx context.Context, key string, payload []byte) error {
	const query = `INSERT INTO credential_entries (entry_key, payload) VALUES (?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query, key, payload)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("put entry %q: %w", key, driven.ErrEntryExists)
		}
		return fmt.Errorf("put entry %q: %w", key, err)
	}
	return nil
}

// Delete removes the entry under key.
func (r *EntryRepo) Delete(ctx context.Context, key string) error {
	const query = `DELETE FROM credential_entries WHERE entry_key = ?`
	res, err := r.db.Writer.ExecContext(ctx, query, key)
	if err != nil {
		return fmt.Errorf("delete entry %q: %w", key, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry %q: %w", key, err)
	}
	if n == 0 {
		return driven.ErrEntryNotFound
	}
	return nil
}

// isUniqueViolation reports whether err is a sqlite primary-key/unique
// constraint failure. modernc.org/sqlite does not export a typed error for
// this, so match on the constraint message.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
