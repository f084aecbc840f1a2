// Package retry implements the bounded fixed-interval retry loop used by
// every transition workflow.
//
// A Policy is attached per call site: start and stop confirmations tolerate
// more retries than deletions, and individual kinds can override both. The
// first attempt runs at once; each of the MaxRetries retries follows one
// Interval, so an exhausted loop has waited exactly Budget(). Do runs an
// Operation until it succeeds or the policy is exhausted, and returns the
// number of attempts made alongside an *ExhaustedError carrying the last
// failure.
//
// WithSuccessWhen installs the idempotence carve-out: an error matching the
// predicate ends the loop successfully. Permanent stops the loop at once.
// Delays go through a clockwork.Clock so tests can drive them with a fake
// clock.
package retry
