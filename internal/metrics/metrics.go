// Package metrics provides lightweight hooks for instrumentation.
package metrics

import "time"

// Session outcomes reported by the validator.
const (
	SessionAuthenticated   = "authenticated"
	SessionRefreshed       = "refreshed"
	SessionUnauthenticated = "unauthenticated"
)

// Recorder captures metric events for the application.
// The Prometheus implementation backs /metrics; the in-memory one is for tests.
type Recorder interface {
	// HTTP metrics
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)

	// Budget management metrics
	IncBudgetCreated()
	IncBudgetUpdated()
	IncBudgetDeleted()

	// Session metrics
	IncSessionOutcome(outcome string)
	IncPrincipalCacheHit()
	IncPrincipalCacheMiss()

	// Credential store metrics. outcome is "success", "rejected" or "error".
	ObserveCredstoreCall(op, outcome string, duration time.Duration)
}
