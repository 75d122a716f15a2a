package internal

import (
	"sync"
)

// ConnState represents where a pooled connection currently lives
type ConnState int

const (
	// StateIdle represents a connection sitting in the pool queue
	StateIdle ConnState = iota
	// StateBorrowed represents a connection held by a caller
	StateBorrowed
	// StateProbing represents a connection taken by maintenance for a liveness check
	StateProbing
	// StateDead represents a connection destroyed after a failed probe
	StateDead
	// StateEvicted represents a connection destroyed after idling too long
	StateEvicted
	// StateClosed represents a connection destroyed by pool shutdown
	StateClosed
)

// String returns the string representation of the connection state
func (s ConnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBorrowed:
		return "borrowed"
	case StateProbing:
		return "probing"
	case StateDead:
		return "dead"
	case StateEvicted:
		return "evicted"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state is final
func (s ConnState) Terminal() bool {
	return s == StateDead || s == StateEvicted || s == StateClosed
}

// PoolMetrics holds cumulative pool counters
type PoolMetrics struct {
	mu                sync.RWMutex
	Acquired          int64
	Timeouts          int64
	Created           int64
	CreateFailures    int64
	DestroyedDead     int64
	DestroyedIdle     int64
	MaintenanceCycles int64
}

// NewPoolMetrics creates a new PoolMetrics instance
func NewPoolMetrics() *PoolMetrics {
	return &PoolMetrics{}
}

// AddAcquired increments the successful acquire counter
func (m *PoolMetrics) AddAcquired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Acquired++
}

// AddTimeout increments the acquire timeout counter
func (m *PoolMetrics) AddTimeout() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Timeouts++
}

// AddCreated increments the created connection counter
func (m *PoolMetrics) AddCreated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Created++
}

// AddCreateFailure increments the failed creation counter
func (m *PoolMetrics) AddCreateFailure() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CreateFailures++
}

// AddDestroyed increments the destroyed counter matching the terminal state
func (m *PoolMetrics) AddDestroyed(state ConnState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	switch state {
	case StateDead:
		m.DestroyedDead++
	case StateEvicted:
		m.DestroyedIdle++
	}
}

// AddMaintenanceCycle increments the maintenance cycle counter
func (m *PoolMetrics) AddMaintenanceCycle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MaintenanceCycles++
}

// Snapshot returns the current counters keyed by name
func (m *PoolMetrics) Snapshot() map[string]int64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return map[string]int64{
		"acquired":           m.Acquired,
		"timeouts":           m.Timeouts,
		"created":            m.Created,
		"create_failures":    m.CreateFailures,
		"destroyed_dead":     m.DestroyedDead,
		"destroyed_idle":     m.DestroyedIdle,
		"maintenance_cycles": m.MaintenanceCycles,
	}
}
