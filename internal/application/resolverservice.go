package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// ResolverService maps discovered targets to stored credentials and back. It
// is a pure read path over the credential store and the discovery snapshot:
// no locking, no caching, safe for concurrent use. Every resolution re-reads
// the store, so a record added or removed between two resolutions is
// immediately visible.
type ResolverService struct {
	creds     *CredentialService
	discovery driven.TargetDiscovery
	evaluator driven.ExpressionEvaluator
	logger    *slog.Logger
}

// TargetOverview pairs a discovered target with whether any stored credential
// applies to it.
type TargetOverview struct {
	Target         model.Target
	HasCredentials bool
}

// NewResolverService creates a ResolverService.
func NewResolverService(creds *CredentialService, discovery driven.TargetDiscovery, evaluator driven.ExpressionEvaluator, logger *slog.Logger) *ResolverService {
	return &ResolverService{
		creds:     creds,
		discovery: discovery,
		evaluator: evaluator,
		logger:    logger,
	}
}

// ResolveForTarget returns the credential of the first record, in ascending
// id order, whose match expression applies to target. Nil when no record
// matches. First-match by id is the contract; not "most specific", not "most
// recent". An evaluation failure aborts the scan.
func (s *ResolverService) ResolveForTarget(ctx context.Context, target model.Target) (*model.Credential, error) {
	recs, err := s.creds.records(ctx)
	if err != nil {
		return nil, err
	}

	for _, rec := range recs {
		ok, err := s.evaluator.Applies(rec.MatchExpression, target)
		if err != nil {
			return nil, fmt.Errorf("evaluate record %d: %w", rec.ID, err)
		}
		if ok {
			cred := rec.Credential
			return &cred, nil
		}
	}

	return nil, nil
}

// ResolveForTargetID resolves credentials for the currently discoverable
// target whose connect URL exactly equals targetID. Nil when no such target
// is discoverable or no record matches it.
func (s *ResolverService) ResolveForTargetID(ctx context.Context, targetID string) (*model.Credential, error) {
	target, err := s.FindTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, nil
	}
	return s.ResolveForTarget(ctx, *target)
}

// FindTarget returns the currently discoverable target with the given connect
// URL, or nil if none is discoverable under that identity.
func (s *ResolverService) FindTarget(ctx context.Context, targetID string) (*model.Target, error) {
	targets, err := s.discovery.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}
	for _, t := range targets {
		if t.ConnectURL == targetID {
			target := t
			return &target, nil
		}
	}
	return nil, nil
}

// OverviewTargets returns every currently discoverable target together with
// its credential-coverage flag, from a single discovery snapshot. Cost is
// targets x records; fine at operational scale (tens to low hundreds of each).
func (s *ResolverService) OverviewTargets(ctx context.Context) ([]TargetOverview, error) {
	targets, err := s.discovery.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	out := make([]TargetOverview, 0, len(targets))
	for _, t := range targets {
		cred, err := s.ResolveForTarget(ctx, t)
		if err != nil {
			return nil, err
		}
		out = append(out, TargetOverview{Target: t, HasCredentials: cred != nil})
	}
	return out, nil
}

// ListTargetsWithCredentials returns every currently discoverable target for
// which ResolveForTarget finds a credential.
func (s *ResolverService) ListTargetsWithCredentials(ctx context.Context) ([]model.Target, error) {
	overview, err := s.OverviewTargets(ctx)
	if err != nil {
		return nil, err
	}

	matched := make([]model.Target, 0, len(overview))
	for _, o := range overview {
		if o.HasCredentials {
			matched = append(matched, o.Target)
		}
	}
	return matched, nil
}

// ResolveMatchingTargets evaluates the record's match expression against every
// discoverable target and returns the matches. ErrRecordNotFound for an
// unknown id. An evaluation failure fails the whole call and discards partial
// results; silently returning a partial set would hide the failure.
func (s *ResolverService) ResolveMatchingTargets(ctx context.Context, id int) ([]model.Target, error) {
	matchExpression, err := s.creds.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	targets, err := s.discovery.ListTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("list targets: %w", err)
	}

	matched := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		ok, err := s.evaluator.Applies(matchExpression, t)
		if err != nil {
			return nil, fmt.Errorf("evaluate record %d: %w", id, err)
		}
		if ok {
			matched = append(matched, t)
		}
	}
	return matched, nil
}
