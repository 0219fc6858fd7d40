package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// ErrRecordNotFound is returned when no credential record exists for a given
// id, or no record's match expression equals a given expression.
var ErrRecordNotFound = errors.New("credential record not found")

// entryPayload is the on-disk shape of a credential entry. Current-format
// records carry MatchExpression; deprecated legacy entries carry TargetID
// instead and are only ever read, never written.
type entryPayload struct {
	MatchExpression string            `json:"matchExpression,omitempty"`
	TargetID        string            `json:"targetId,omitempty"`
	Credentials     credentialPayload `json:"credentials"`
}

type credentialPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// CredentialService owns the credential record store: id allocation, record
// persistence, and the scan policies over it. The allocation counter is
// computed once at construction and mutated only by Add, so a service value
// that exists is always initialized.
type CredentialService struct {
	entries   driven.EntryStore
	validator driven.ExpressionValidator
	logger    *slog.Logger

	mu     sync.Mutex
	nextID int
}

// NewCredentialService constructs the service and loads the store: every
// entry whose key parses as a non-negative integer feeds the allocation
// counter (next id = max + 1); non-numeric keys are kept if their payload is
// legacy-shaped (MigrateLegacy will rewrite them) and deleted as corrupt
// otherwise. Safe to run on an empty store.
func NewCredentialService(ctx context.Context, entries driven.EntryStore, validator driven.ExpressionValidator, logger *slog.Logger) (*CredentialService, error) {
	s := &CredentialService{
		entries:   entries,
		validator: validator,
		logger:    logger,
	}

	keys, err := entries.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("load credential store: %w", err)
	}

	maxID := -1
	for _, key := range keys {
		id, err := parseRecordID(key)
		if err == nil {
			if id > maxID {
				maxID = id
			}
			continue
		}

		if s.isLegacyEntry(ctx, key) {
			continue
		}

		logger.Warn("removing corrupt credential entry", "key", key)
		if derr := entries.Delete(ctx, key); derr != nil && !errors.Is(derr, driven.ErrEntryNotFound) {
			logger.Error("failed to remove corrupt credential entry", "key", key, "error", derr)
		}
	}

	s.nextID = maxID + 1
	return s, nil
}

// Add validates matchExpression, persists a new record under a freshly
// allocated id, and returns the id. Allocation is serialized: the counter
// increment and the exclusive create of the record are one logical operation,
// and a key collision (another writer on the same storage) advances the
// counter and retries.
func (s *CredentialService) Add(ctx context.Context, matchExpression string, cred model.Credential) (int, error) {
	if err := s.validator.Validate(matchExpression); err != nil {
		return 0, err
	}

	payload, err := json.Marshal(entryPayload{
		MatchExpression: matchExpression,
		Credentials:     credentialPayload{Username: cred.Username, Password: cred.Password},
	})
	if err != nil {
		return 0, fmt.Errorf("encode credential record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for {
		id := s.nextID
		err := s.entries.Put(ctx, strconv.Itoa(id), payload)
		if errors.Is(err, driven.ErrEntryExists) {
			s.nextID++
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("persist credential record: %w", err)
		}
		s.nextID = id + 1
		return id, nil
	}
}

// RemoveByExpression deletes the lowest-id record whose match expression is
// exactly string-equal to matchExpression and returns its id. No semantic
// equivalence is attempted. Returns ErrRecordNotFound when nothing matches.
func (s *CredentialService) RemoveByExpression(ctx context.Context, matchExpression string) (int, error) {
	if err := s.validator.Validate(matchExpression); err != nil {
		return 0, err
	}

	recs, err := s.records(ctx)
	if err != nil {
		return 0, err
	}

	for _, rec := range recs {
		if rec.MatchExpression == matchExpression {
			if err := s.entries.Delete(ctx, strconv.Itoa(rec.ID)); err != nil {
				return 0, fmt.Errorf("delete credential record %d: %w", rec.ID, err)
			}
			return rec.ID, nil
		}
	}

	return 0, ErrRecordNotFound
}

// Get returns the match expression of the record with the given id. Storage
// failures on this single-record path propagate to the caller; only the bulk
// scans are best-effort.
func (s *CredentialService) Get(ctx context.Context, id int) (string, error) {
	payload, err := s.entries.Get(ctx, strconv.Itoa(id))
	if errors.Is(err, driven.ErrEntryNotFound) {
		return "", ErrRecordNotFound
	}
	if err != nil {
		return "", err
	}

	rec, err := parseCurrent(payload)
	if err != nil {
		return "", fmt.Errorf("decode credential record %d: %w", id, err)
	}
	return rec.MatchExpression, nil
}

// Delete removes the record with the given id, or returns ErrRecordNotFound.
func (s *CredentialService) Delete(ctx context.Context, id int) error {
	err := s.entries.Delete(ctx, strconv.Itoa(id))
	if errors.Is(err, driven.ErrEntryNotFound) {
		return ErrRecordNotFound
	}
	return err
}

// GetAll returns a snapshot of id -> match expression for every readable
// record. Unreadable or corrupt records are logged and skipped.
func (s *CredentialService) GetAll(ctx context.Context) (map[int]string, error) {
	recs, err := s.records(ctx)
	if err != nil {
		return nil, err
	}

	out := make(map[int]string, len(recs))
	for _, rec := range recs {
		out[rec.ID] = rec.MatchExpression
	}
	return out, nil
}

// MigrateLegacy converts deprecated per-target entries into current-format
// records: each legacy {targetId, credentials} entry becomes a record whose
// match expression compares the target's connect URL against the literal
// target id, then the legacy entry is deleted. Per-entry failures warn and
// continue; a second run finds nothing legacy-shaped and changes nothing.
func (s *CredentialService) MigrateLegacy(ctx context.Context) error {
	keys, err := s.entries.Keys(ctx)
	if err != nil {
		return fmt.Errorf("migrate legacy credentials: %w", err)
	}

	for _, key := range keys {
		payload, err := s.entries.Get(ctx, key)
		if err != nil {
			s.logger.Warn("skipping unreadable entry during migration", "key", key, "error", err)
			continue
		}

		legacy, ok, reason := parseLegacy(payload)
		if !ok {
			if reason != "" {
				s.logger.Warn("skipping unmigratable entry", "key", key, "reason", reason)
			}
			continue
		}

		id, err := s.Add(ctx, TargetIDToMatchExpression(legacy.TargetID), model.Credential{
			Username: legacy.Credentials.Username,
			Password: legacy.Credentials.Password,
		})
		if err != nil {
			s.logger.Warn("failed to migrate legacy entry", "key", key, "error", err)
			continue
		}

		if err := s.entries.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to remove migrated legacy entry", "key", key, "error", err)
			continue
		}

		s.logger.Info("migrated legacy credential entry", "key", key, "id", id)
	}

	return nil
}

// TargetIDToMatchExpression synthesizes the match expression equivalent of a
// legacy per-target credential: an equality comparison of the target's
// connect URL against the literal target id.
func TargetIDToMatchExpression(targetID string) string {
	return fmt.Sprintf("target.connectUrl == %q", targetID)
}

// records enumerates all current-format records in ascending id order. This
// is the bulk read path shared by resolution, RemoveByExpression, and GetAll:
// an individual unreadable or corrupt record is logged and skipped so one bad
// entry cannot take down the whole scan.
func (s *CredentialService) records(ctx context.Context) ([]model.StoredCredential, error) {
	keys, err := s.entries.Keys(ctx)
	if err != nil {
		return nil, fmt.Errorf("scan credential store: %w", err)
	}

	ids := make([]int, 0, len(keys))
	for _, key := range keys {
		if id, err := parseRecordID(key); err == nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)

	recs := make([]model.StoredCredential, 0, len(ids))
	for _, id := range ids {
		payload, err := s.entries.Get(ctx, strconv.Itoa(id))
		if err != nil {
			s.logger.Warn("skipping unreadable credential record", "id", id, "error", err)
			continue
		}
		rec, err := parseCurrent(payload)
		if err != nil {
			s.logger.Warn("skipping corrupt credential record", "id", id, "error", err)
			continue
		}
		recs = append(recs, model.StoredCredential{
			ID:              id,
			MatchExpression: rec.MatchExpression,
			Credential:      model.Credential{Username: rec.Credentials.Username, Password: rec.Credentials.Password},
		})
	}

	return recs, nil
}

// isLegacyEntry reports whether the entry under key holds a legacy-shaped
// payload. Read failures count as not-legacy; the load scan treats the entry
// as corrupt.
func (s *CredentialService) isLegacyEntry(ctx context.Context, key string) bool {
	payload, err := s.entries.Get(ctx, key)
	if err != nil {
		return false
	}
	_, ok, _ := parseLegacy(payload)
	return ok
}

// parseRecordID parses a storage key as a non-negative decimal record id.
// Signs, spaces, and any non-digit content are rejected so keys like "+3" or
// "3x" are treated as corrupt rather than silently normalized.
func parseRecordID(key string) (int, error) {
	if key == "" || strings.TrimLeft(key, "0123456789") != "" {
		return 0, fmt.Errorf("not a record id: %q", key)
	}
	return strconv.Atoi(key)
}

// parseCurrent decodes a current-format record payload.
func parseCurrent(payload []byte) (entryPayload, error) {
	var rec entryPayload
	if err := json.Unmarshal(payload, &rec); err != nil {
		return entryPayload{}, err
	}
	if rec.MatchExpression == "" {
		return entryPayload{}, errors.New("missing match expression")
	}
	return rec, nil
}

// parseLegacy attempts a tagged-variant parse of payload as a legacy
// per-target entry. A current-format payload is not legacy (ok=false, no
// reason); malformed payloads or blank target ids return a reason for the
// migration warning.
func parseLegacy(payload []byte) (entryPayload, bool, string) {
	var rec entryPayload
	if err := json.Unmarshal(payload, &rec); err != nil {
		return entryPayload{}, false, "payload is not a credential entry"
	}
	if rec.MatchExpression != "" {
		return entryPayload{}, false, ""
	}
	if strings.TrimSpace(rec.TargetID) == "" {
		return entryPayload{}, false, "legacy entry has blank target id"
	}
	return rec, true, ""
}
