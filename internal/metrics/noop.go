package metrics

import "time"

// NoopRecorder implements Recorder with no-op methods.
type NoopRecorder struct{}

// NewNoop returns a Recorder that discards all metrics.
func NewNoop() Recorder {
	return &NoopRecorder{}
}

// ObserveHTTPRequest is a no-op.
func (n *NoopRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {}

// IncBudgetCreated is a no-op.
func (n *NoopRecorder) IncBudgetCreated() {}

// IncBudgetUpdated is a no-op.
func (n *NoopRecorder) IncBudgetUpdated() {}

// IncBudgetDeleted is a no-op.
func (n *NoopRecorder) IncBudgetDeleted() {}

// IncSessionOutcome is a no-op.
func (n *NoopRecorder) IncSessionOutcome(outcome string) {}

// IncPrincipalCacheHit is a no-op.
func (n *NoopRecorder) IncPrincipalCacheHit() {}

// IncPrincipalCacheMiss is a no-op.
func (n *NoopRecorder) IncPrincipalCacheMiss() {}

// ObserveCredstoreCall is a no-op.
func (n *NoopRecorder) ObserveCredstoreCall(op, outcome string, duration time.Duration) {}
