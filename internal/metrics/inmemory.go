package metrics

import (
	"maps"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	HTTPRequests        map[string]uint64 // "METHOD route status"
	BudgetsCreated      uint64
	BudgetsUpdated      uint64
	BudgetsDeleted      uint64
	SessionOutcomes     map[string]uint64
	PrincipalCacheHits  uint64
	PrincipalCacheMiss  uint64
	CredstoreCalls      map[string]uint64 // "op/outcome"
	CredstoreDurationNs int64
}

// InMemoryRecorder stores metrics in memory for tests.
type InMemoryRecorder struct {
	budgetsCreated      uint64
	budgetsUpdated      uint64
	budgetsDeleted      uint64
	principalCacheHits  uint64
	principalCacheMiss  uint64
	credstoreDurationNs int64

	mu              sync.Mutex
	httpRequests    map[string]uint64
	sessionOutcomes map[string]uint64
	credstoreCalls  map[string]uint64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{
		httpRequests:    make(map[string]uint64),
		sessionOutcomes: make(map[string]uint64),
		credstoreCalls:  make(map[string]uint64),
	}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Snapshot{
		HTTPRequests:        maps.Clone(m.httpRequests),
		BudgetsCreated:      atomic.LoadUint64(&m.budgetsCreated),
		BudgetsUpdated:      atomic.LoadUint64(&m.budgetsUpdated),
		BudgetsDeleted:      atomic.LoadUint64(&m.budgetsDeleted),
		SessionOutcomes:     maps.Clone(m.sessionOutcomes),
		PrincipalCacheHits:  atomic.LoadUint64(&m.principalCacheHits),
		PrincipalCacheMiss:  atomic.LoadUint64(&m.principalCacheMiss),
		CredstoreCalls:      maps.Clone(m.credstoreCalls),
		CredstoreDurationNs: atomic.LoadInt64(&m.credstoreDurationNs),
	}
}

// ObserveHTTPRequest counts a served request.
func (m *InMemoryRecorder) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	m.mu.Lock()
	m.httpRequests[method+" "+route+" "+strconv.Itoa(status)]++
	m.mu.Unlock()
}

// IncBudgetCreated increments budget created counter.
func (m *InMemoryRecorder) IncBudgetCreated() {
	atomic.AddUint64(&m.budgetsCreated, 1)
}

// IncBudgetUpdated increments budget updated counter.
func (m *InMemoryRecorder) IncBudgetUpdated() {
	atomic.AddUint64(&m.budgetsUpdated, 1)
}

// IncBudgetDeleted increments budget deleted counter.
func (m *InMemoryRecorder) IncBudgetDeleted() {
	atomic.AddUint64(&m.budgetsDeleted, 1)
}

// IncSessionOutcome counts a session validation outcome.
func (m *InMemoryRecorder) IncSessionOutcome(outcome string) {
	m.mu.Lock()
	m.sessionOutcomes[outcome]++
	m.mu.Unlock()
}

// IncPrincipalCacheHit increments cache hit counter.
func (m *InMemoryRecorder) IncPrincipalCacheHit() {
	atomic.AddUint64(&m.principalCacheHits, 1)
}

// IncPrincipalCacheMiss increments cache miss counter.
func (m *InMemoryRecorder) IncPrincipalCacheMiss() {
	atomic.AddUint64(&m.principalCacheMiss, 1)
}

// ObserveCredstoreCall counts a credential store call by operation and outcome.
func (m *InMemoryRecorder) ObserveCredstoreCall(op, outcome string, duration time.Duration) {
	atomic.AddInt64(&m.credstoreDurationNs, duration.Nanoseconds())
	m.mu.Lock()
	m.credstoreCalls[op+"/"+outcome]++
	m.mu.Unlock()
}
