package billing

import "errors"

var (
	// ErrAuthentication marks a webhook that failed signature
	// verification. It is the only condition mapped to a non-2xx
	// response besides malformed payloads.
	ErrAuthentication = errors.New("webhook signature verification failed")

	// ErrMalformedPayload marks a webhook body that cannot be decoded or
	// misses required fields.
	ErrMalformedPayload = errors.New("malformed webhook payload")
)

// Outcome classifies how a delivery was concluded. Everything except a
// ledger failure is acknowledged to the sender with 200 so the provider
// does not redeliver.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	// OutcomeFailed means the handler errored after admission. The event
	// stays recorded as processed; this is the explicit
	// continue-despite-failure branch.
	OutcomeFailed Outcome = "handled_with_error"
)

// Result describes the conclusion of one delivery.
type Result struct {
	Outcome    Outcome
	EventID    string
	EventType  string
	HandlerErr error
}
