package shared

import "errors"

// Error categories shared by both services. Concrete domain errors wrap or
// match one of these so transport layers can map them without knowing every type.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrAccessDenied        = errors.New("access denied")
	ErrUpstreamUnavailable = errors.New("upstream service unavailable")
	ErrPartialFailure      = errors.New("partial failure")
)
