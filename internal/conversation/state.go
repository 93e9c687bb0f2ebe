package conversation

import "sync"

// State is the send state of a controller.
type State string

const (
	StateIdle    State = "idle"
	StateSending State = "sending"
)

// stateMachine guards the Idle -> Sending -> Idle cycle.
type stateMachine struct {
	mu       sync.Mutex
	state    State
	onChange func(State)
}

// begin moves Idle -> Sending and reports whether it did.
func (m *stateMachine) begin() bool {
	m.mu.Lock()
	if m.state == StateSending {
		m.mu.Unlock()
		return false
	}
	m.state = StateSending
	cb := m.onChange
	m.mu.Unlock()
	if cb != nil {
		cb(StateSending)
	}
	return true
}

// end returns to Idle.
func (m *stateMachine) end() {
	m.mu.Lock()
	m.state = StateIdle
	cb := m.onChange
	m.mu.Unlock()
	if cb != nil {
		cb(StateIdle)
	}
}

func (m *stateMachine) get() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == "" {
		return StateIdle
	}
	return m.state
}
