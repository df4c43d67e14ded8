package authstate

import (
	"sync"
	"time"
)

// Config holds the configuration for the auth state Manager.
type Config struct {
	// OnStateChange is called after every state transition, outside the lock.
	// The reason is empty for StateValid.
	OnStateChange func(state State, reason string)
}

// Manager records the authentication state of the active credentials.
// It does not block requests; refresh decisions belong to the caller.
// It is safe for concurrent use.
type Manager struct {
	mu sync.RWMutex

	state         State
	failureReason string
	changedAt     time.Time
	refreshes     int

	config Config
}

// New creates a Manager in StateValid.
func New(cfg Config) *Manager {
	return &Manager{
		state:     StateValid,
		changedAt: time.Now(),
		config:    cfg,
	}
}

// State returns the current state and the reason for the last failure.
func (m *Manager) State() (State, string) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state, m.failureReason
}

// IsValid reports whether the state is StateValid.
func (m *Manager) IsValid() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state == StateValid
}

// Snapshot is a point-in-time view used by health endpoints.
type Snapshot struct {
	State     string    `json:"state"`
	Reason    string    `json:"reason,omitempty"`
	ChangedAt time.Time `json:"changedAt"`
	Refreshes int       `json:"refreshes"`
}

// Snapshot returns the current state for reporting.
func (m *Manager) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Snapshot{
		State:     m.state.String(),
		Reason:    m.failureReason,
		ChangedAt: m.changedAt,
		Refreshes: m.refreshes,
	}
}

// ReportFailure moves the manager to StateInvalid. Failures observed while a
// refresh is in flight are ignored; the refresh outcome decides the state.
func (m *Manager) ReportFailure(reason string) {
	m.mu.Lock()
	if m.state != StateValid {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateInvalid, reason)
	m.mu.Unlock()
	m.notify(StateInvalid, reason)
}

// ReportSuccess moves an Invalid manager back to StateValid.
func (m *Manager) ReportSuccess() {
	m.mu.Lock()
	if m.state != StateInvalid {
		m.mu.Unlock()
		return
	}
	m.setStateLocked(StateValid, "")
	m.mu.Unlock()
	m.notify(StateValid, "")
}

// BeginRefresh marks a credential refresh as in flight.
func (m *Manager) BeginRefresh() {
	m.mu.Lock()
	if m.state == StateRefreshing {
		m.mu.Unlock()
		return
	}
	reason := m.failureReason
	m.setStateLocked(StateRefreshing, reason)
	m.mu.Unlock()
	m.notify(StateRefreshing, reason)
}

// EndRefresh records the outcome of a refresh started with BeginRefresh.
func (m *Manager) EndRefresh(err error) {
	m.mu.Lock()
	if m.state != StateRefreshing {
		m.mu.Unlock()
		return
	}
	m.refreshes++
	next, reason := StateValid, ""
	if err != nil {
		next, reason = StateInvalid, err.Error()
	}
	m.setStateLocked(next, reason)
	m.mu.Unlock()
	m.notify(next, reason)
}

func (m *Manager) setStateLocked(state State, reason string) {
	m.state = state
	m.failureReason = reason
	m.changedAt = time.Now()
}

func (m *Manager) notify(state State, reason string) {
	if m.config.OnStateChange != nil {
		m.config.OnStateChange(state, reason)
	}
}
