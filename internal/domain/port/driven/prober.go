package driven

import (
	"context"

	"github.com/avalette/credgate/internal/domain/model"
)

// TargetProber attempts a connection-layer handshake with a remote target,
// authenticating with cred when non-nil. Failures are reported as
// *model.ConnectionError so the request gate can classify them.
type TargetProber interface {
	Probe(ctx context.Context, target model.Target, cred *model.Credential) error
}
