package planner

import "fmt"

// RetryState is a state of the plan generation retry loop
type RetryState int

const (
	// StateAttempting sends the original prompt
	StateAttempting RetryState = iota
	// StateCorrecting sends a corrective follow-up after an invalid answer
	StateCorrecting
	// StateSucceeded holds a valid plan
	StateSucceeded
	// StateFailed is terminal: attempts exhausted or aborted
	StateFailed
)

func (s RetryState) String() string {
	switch s {
	case StateAttempting:
		return "attempting"
	case StateCorrecting:
		return "correcting"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("RetryState(%d)", int(s))
}

// DefaultMaxAttempts bounds the outer attempt rounds
const DefaultMaxAttempts = 3

// RetryMachine tracks the attempt/correct protocol.
//
// Every round starts in Attempting. A failed attempt moves to Correcting unless it
// was the last round, in which case the machine fails. A failed correction goes back
// to Attempting for the next round. Abort fails immediately.
type RetryMachine struct {
	maxAttempts int
	state       RetryState
	attempts    int
	lastOutput  string
	lastErr     error
}

// NewRetryMachine creates a machine allowing maxAttempts rounds
func NewRetryMachine(maxAttempts int) *RetryMachine {
	if maxAttempts < 1 {
		maxAttempts = DefaultMaxAttempts
	}
	return &RetryMachine{maxAttempts: maxAttempts, state: StateAttempting}
}

// State returns the current state
func (m *RetryMachine) State() RetryState { return m.state }

// Attempts returns how many outer rounds have failed so far
func (m *RetryMachine) Attempts() int { return m.attempts }

// MaxAttempts returns the round budget
func (m *RetryMachine) MaxAttempts() int { return m.maxAttempts }

// LastOutput returns the most recent non-empty model output
func (m *RetryMachine) LastOutput() string { return m.lastOutput }

// Err returns the last recorded failure
func (m *RetryMachine) Err() error { return m.lastErr }

// Done reports whether the machine reached a terminal state
func (m *RetryMachine) Done() bool {
	return m.state == StateSucceeded || m.state == StateFailed
}

// AttemptFailed records an invalid or failed primary attempt
func (m *RetryMachine) AttemptFailed(output string, err error) {
	if m.state != StateAttempting {
		return
	}
	m.record(output, err)
	m.attempts++
	if m.attempts >= m.maxAttempts {
		m.state = StateFailed
		return
	}
	m.state = StateCorrecting
}

// CorrectionFailed records an invalid or failed corrective reply
func (m *RetryMachine) CorrectionFailed(output string, err error) {
	if m.state != StateCorrecting {
		return
	}
	m.record(output, err)
	m.state = StateAttempting
}

// Succeed marks the current round as valid
func (m *RetryMachine) Succeed() {
	if m.Done() {
		return
	}
	m.state = StateSucceeded
}

// Abort fails the machine without further rounds
func (m *RetryMachine) Abort(err error) {
	if m.Done() {
		return
	}
	m.lastErr = err
	m.state = StateFailed
}

func (m *RetryMachine) record(output string, err error) {
	if output != "" {
		m.lastOutput = output
	}
	if err != nil {
		m.lastErr = err
	}
}
