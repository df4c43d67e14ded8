package authstate

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State, _ string) {
	l.mu.Lock()
	l.states = append(l.states, s)
	l.mu.Unlock()
}

func (l *stateLog) get() []State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]State(nil), l.states...)
}

func TestNewManagerStartsValid(t *testing.T) {
	m := New(Config{})
	state, reason := m.State()
	require.Equal(t, StateValid, state)
	require.Empty(t, reason)
	require.True(t, m.IsValid())
}

func TestReportFailureTransitionsToInvalidOnce(t *testing.T) {
	log := &stateLog{}
	m := New(Config{OnStateChange: log.record})

	m.ReportFailure("token expired")
	m.ReportFailure("token expired again")

	state, reason := m.State()
	require.Equal(t, StateInvalid, state)
	require.Equal(t, "token expired", reason)
	require.Equal(t, []State{StateInvalid}, log.get())
}

func TestReportSuccessRestoresValid(t *testing.T) {
	log := &stateLog{}
	m := New(Config{OnStateChange: log.record})

	m.ReportSuccess()
	require.Empty(t, log.get(), "success while valid is a no-op")

	m.ReportFailure("401 Unauthorized")
	m.ReportSuccess()
	require.True(t, m.IsValid())
	require.Equal(t, []State{StateInvalid, StateValid}, log.get())
}

func TestRefreshLifecycle(t *testing.T) {
	log := &stateLog{}
	m := New(Config{OnStateChange: log.record})

	m.ReportFailure("401 Unauthorized")
	m.BeginRefresh()
	m.BeginRefresh()

	state, reason := m.State()
	require.Equal(t, StateRefreshing, state)
	require.Equal(t, "401 Unauthorized", reason)

	// Failures and successes reported mid-refresh do not change the state.
	m.ReportFailure("other")
	m.ReportSuccess()
	state, _ = m.State()
	require.Equal(t, StateRefreshing, state)

	m.EndRefresh(nil)
	require.True(t, m.IsValid())
	require.Equal(t, 1, m.Snapshot().Refreshes)
	require.Equal(t, []State{StateInvalid, StateRefreshing, StateValid}, log.get())
}

func TestEndRefreshFailureLeavesInvalid(t *testing.T) {
	m := New(Config{})
	m.BeginRefresh()
	m.EndRefresh(errors.New("exec plugin: token command failed"))

	snap := m.Snapshot()
	require.Equal(t, "invalid", snap.State)
	require.Equal(t, "exec plugin: token command failed", snap.Reason)
	require.Equal(t, 1, snap.Refreshes)
}

func TestEndRefreshWithoutBeginIsIgnored(t *testing.T) {
	m := New(Config{})
	m.EndRefresh(errors.New("ignored"))
	require.True(t, m.IsValid())
	require.Zero(t, m.Snapshot().Refreshes)
}

func TestConcurrentReports(t *testing.T) {
	m := New(Config{})
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			m.ReportFailure("401 Unauthorized")
		}()
		go func() {
			defer wg.Done()
			m.ReportSuccess()
		}()
	}
	wg.Wait()
	state, _ := m.State()
	require.Contains(t, []State{StateValid, StateInvalid}, state)
}
