package supervisor

import "errors"

var (
	ErrInvalidInput          = errors.New("supervisor: invalid input")
	ErrSessionNotFound       = errors.New("supervisor: session not found")
	ErrSessionNotReady       = errors.New("supervisor: session not ready")
	ErrDeliveryFailed        = errors.New("supervisor: message delivery failed")
	ErrPersistenceFailure    = errors.New("supervisor: credential persistence failed")
	ErrAuthFailure           = errors.New("supervisor: authentication failed")
	ErrInitializationFailure = errors.New("supervisor: session initialization failed")
	ErrShuttingDown          = errors.New("supervisor: shutting down")
	ErrInvalidConfig         = errors.New("supervisor: invalid configuration")
)

// Wire kinds reported to API callers.
const (
	KindInvalidInput    = "invalid_input"
	KindSessionNotFound = "session_not_found"
	KindSessionNotReady = "session_not_ready"
	KindDeliveryFailed  = "delivery_failed"
)

// Kind maps an error returned by the supervisor to its wire kind. It returns
// an empty string for errors that have no client-facing kind.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return KindInvalidInput
	case errors.Is(err, ErrSessionNotFound):
		return KindSessionNotFound
	case errors.Is(err, ErrSessionNotReady):
		return KindSessionNotReady
	case errors.Is(err, ErrDeliveryFailed):
		return KindDeliveryFailed
	default:
		return ""
	}
}
