package driven

import "context"

// AuthValidator validates the primary authentication of an inbound request.
// header lazily yields the raw Authorization header value. Validate blocks
// until a verdict is available; callers needing a timeout compose one via ctx.
// A false verdict means the request is unauthenticated; an error means the
// validator itself could not reach a verdict.
type AuthValidator interface {
	Validate(ctx context.Context, header func() string) (bool, error)
}
