package notify

import "errors"

// Error kinds returned by Dispatch. Callers classify with errors.Is.
var (
	// ErrDisabled means the notifier is switched off.
	ErrDisabled = errors.New("notifier disabled")
	// ErrPostConditionUnmet means the gate verdict does not match the configured post condition.
	ErrPostConditionUnmet = errors.New("post conditions do not match")
	// ErrConfigurationMissing means a required value was absent.
	ErrConfigurationMissing = errors.New("configuration missing")
	// ErrTransport means the webhook could not be reached.
	ErrTransport = errors.New("transport failure")
	// ErrRejected means the webhook answered with a non-2xx status.
	ErrRejected = errors.New("rejected by endpoint")
	// ErrUnexpected covers every other failure during build or send.
	ErrUnexpected = errors.New("unexpected failure")
)

// GateError reports which gate rule stopped a notification cycle.
type GateError struct {
	Kind error
	Rule string
}

func (e *GateError) Error() string {
	return e.Kind.Error() + ": " + e.Rule
}

func (e *GateError) Unwrap() error { return e.Kind }

// IsSkipped reports whether err means the cycle was deliberately not sent,
// as opposed to a delivery failure.
func IsSkipped(err error) bool {
	var ge *GateError
	return errors.As(err, &ge)
}
