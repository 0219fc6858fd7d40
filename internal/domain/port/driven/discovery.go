package driven

import (
	"context"

	"github.com/avalette/credgate/internal/domain/model"
)

// TargetDiscovery lists the currently discoverable remote targets. Each call
// returns an independent snapshot; there is no live-update push into the
// resolver.
type TargetDiscovery interface {
	ListTargets(ctx context.Context) ([]model.Target, error)
}
