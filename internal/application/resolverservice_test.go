package application

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avalette/credgate/internal/domain/model"
	"github.com/avalette/credgate/internal/domain/port/driven"
)

// --- Mock implementations ---

// mockEvaluator delegates to a func so each test can script the evaluation.
type mockEvaluator struct {
	applies func(expression string, target model.Target) (bool, error)
}

func (m *mockEvaluator) Applies(expression string, target model.Target) (bool, error) {
	return m.applies(expression, target)
}

// equalityEvaluator implements the legacy-style expressions used in tests:
// it matches when the expression equals TargetIDToMatchExpression(connectUrl).
var equalityEvaluator = &mockEvaluator{
	applies: func(expression string, target model.Target) (bool, error) {
		return expression == TargetIDToMatchExpression(target.ConnectURL), nil
	},
}

type mockDiscovery struct {
	targets []model.Target
	err     error
}

func (m *mockDiscovery) ListTargets(_ context.Context) ([]model.Target, error) {
	return m.targets, m.err
}

func target(connectURL string) model.Target {
	return model.Target{ConnectURL: connectURL, Alias: connectURL}
}

func newTestResolver(t *testing.T, store driven.EntryStore, disc *mockDiscovery, eval *mockEvaluator) *ResolverService {
	t.Helper()
	svc := newTestService(t, store)
	return NewResolverService(svc, disc, eval, discardLogger())
}

// --- ResolverService tests ---

func TestResolverService_ResolveForTarget_FirstMatchByAscendingID(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["3"] = recordPayload(t, "both", "first", "pw1")
	store.entries["7"] = recordPayload(t, "both", "second", "pw2")

	alwaysTrue := &mockEvaluator{applies: func(string, model.Target) (bool, error) { return true, nil }}
	resolver := newTestResolver(t, store, &mockDiscovery{}, alwaysTrue)

	cred, err := resolver.ResolveForTarget(context.Background(), target("t"))
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "first", cred.Username, "record 3 wins over record 7")
}

func TestResolverService_ResolveForTarget_NoMatch(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["0"] = recordPayload(t, "nope", "u", "p")

	alwaysFalse := &mockEvaluator{applies: func(string, model.Target) (bool, error) { return false, nil }}
	resolver := newTestResolver(t, store, &mockDiscovery{}, alwaysFalse)

	cred, err := resolver.ResolveForTarget(context.Background(), target("t"))
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestResolverService_ResolveForTarget_EvaluationErrorAbortsScan(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["0"] = recordPayload(t, "broken", "u", "p")
	store.entries["1"] = recordPayload(t, "fine", "u2", "p2")

	calls := 0
	eval := &mockEvaluator{applies: func(expression string, _ model.Target) (bool, error) {
		calls++
		if expression == "broken" {
			return false, fmt.Errorf("%w: bad expression", driven.ErrEvaluation)
		}
		return true, nil
	}}
	resolver := newTestResolver(t, store, &mockDiscovery{}, eval)

	_, err := resolver.ResolveForTarget(context.Background(), target("t"))
	assert.ErrorIs(t, err, driven.ErrEvaluation)
	assert.Equal(t, 1, calls, "scan aborts on the failing record")
}

func TestResolverService_ResolveForTargetID(t *testing.T) {
	const known = "service:jmx:rmi:///jndi/rmi://host:9091/jmxrmi"

	store := newFakeEntryStore()
	store.entries["0"] = recordPayload(t, TargetIDToMatchExpression(known), "u", "p")

	disc := &mockDiscovery{targets: []model.Target{target("other"), target(known)}}
	resolver := newTestResolver(t, store, disc, equalityEvaluator)
	ctx := context.Background()

	cred, err := resolver.ResolveForTargetID(ctx, known)
	require.NoError(t, err)
	require.NotNil(t, cred)
	assert.Equal(t, "u", cred.Username)

	// Identity not among discoverable targets: no credentials, no error.
	cred, err = resolver.ResolveForTargetID(ctx, "service:jmx:rmi:///jndi/rmi://unknown:1/jmxrmi")
	require.NoError(t, err)
	assert.Nil(t, cred)
}

func TestResolverService_ListTargetsWithCredentials(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["0"] = recordPayload(t, TargetIDToMatchExpression("a"), "u", "p")

	disc := &mockDiscovery{targets: []model.Target{target("a"), target("b")}}
	resolver := newTestResolver(t, store, disc, equalityEvaluator)

	matched, err := resolver.ListTargetsWithCredentials(context.Background())
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "a", matched[0].ConnectURL)
}

func TestResolverService_OverviewTargets(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["0"] = recordPayload(t, TargetIDToMatchExpression("a"), "u", "p")

	disc := &mockDiscovery{targets: []model.Target{target("a"), target("b")}}
	resolver := newTestResolver(t, store, disc, equalityEvaluator)

	overview, err := resolver.OverviewTargets(context.Background())
	require.NoError(t, err)
	require.Len(t, overview, 2)
	assert.True(t, overview[0].HasCredentials)
	assert.False(t, overview[1].HasCredentials)
}

func TestResolverService_ResolveMatchingTargets(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["4"] = recordPayload(t, TargetIDToMatchExpression("a"), "u", "p")

	disc := &mockDiscovery{targets: []model.Target{target("a"), target("b")}}
	resolver := newTestResolver(t, store, disc, equalityEvaluator)

	matched, err := resolver.ResolveMatchingTargets(context.Background(), 4)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, "a", matched[0].ConnectURL)
}

func TestResolverService_ResolveMatchingTargets_UnknownID(t *testing.T) {
	resolver := newTestResolver(t, newFakeEntryStore(), &mockDiscovery{}, equalityEvaluator)

	_, err := resolver.ResolveMatchingTargets(context.Background(), 42)
	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestResolverService_ResolveMatchingTargets_FailsFastOnEvaluationError(t *testing.T) {
	store := newFakeEntryStore()
	store.entries["0"] = recordPayload(t, "expr", "u", "p")

	disc := &mockDiscovery{targets: []model.Target{target("a"), target("b"), target("c")}}
	eval := &mockEvaluator{applies: func(_ string, tgt model.Target) (bool, error) {
		if tgt.ConnectURL == "b" {
			return false, fmt.Errorf("%w: blew up mid-scan", driven.ErrEvaluation)
		}
		return true, nil
	}}
	resolver := newTestResolver(t, store, disc, eval)

	matched, err := resolver.ResolveMatchingTargets(context.Background(), 0)
	assert.ErrorIs(t, err, driven.ErrEvaluation)
	assert.Nil(t, matched, "partial results are discarded, never returned silently")
}
