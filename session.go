package rsp

import "fmt"

// session.go implements SessionStateMachine (§4.10), grounded on upstream's
// state_machine.rs. Go has no typestate/ownership-transfer, so illegal
// transitions are enforced at runtime (method calls check the current state
// and return an error — a caller invoking a wrong-state method is a driver
// bug, not a protocol condition) instead of being unrepresentable at compile
// time, per design notes §9's "in other languages, emulate...".

// SessionState is the four-state driver named in §3/§4.10.
type SessionState int

const (
	StateIdle SessionState = iota
	StateRunning
	StateCtrlCInterrupt
	StateDisconnected
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateCtrlCInterrupt:
		return "CtrlCInterrupt"
	case StateDisconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// DisconnectKind tags why a session reached Disconnected.
type DisconnectKind int

const (
	DisconnectTargetExited DisconnectKind = iota
	DisconnectTargetTerminated
	DisconnectClient
	DisconnectKill
)

// DisconnectReason describes why a session ended.
type DisconnectReason struct {
	Kind   DisconnectKind
	Code   uint8  // DisconnectTargetExited
	Signal Signal // DisconnectTargetTerminated
}

// stateMachineError is returned when a method is invoked from the wrong
// session state — a driver bug, analogous to a Rust typestate violation
// that would otherwise fail to compile.
type stateMachineError struct {
	method string
	have   SessionState
	want   SessionState
}

func (e *stateMachineError) Error() string {
	return fmt.Sprintf("rsp: %s called in state %v, requires %v", e.method, e.have, e.want)
}

// Session is the SessionStateMachine. It holds no packet buffer or
// connection itself — ProtocolCore owns those and drives Session through
// its transitions as packets are dispatched.
type Session struct {
	state SessionState

	// deferredStopReason is valid only while state == StateIdle, and
	// exists solely for the "Ctrl-C while already stopped" case — per
	// design notes §9, it must never be hoisted onto Running.
	deferredStopReason *StopReason

	// fromIdle records, for a CtrlCInterrupt entered from Idle, that the
	// eventual stop reason must be deferred rather than reported.
	fromIdle bool

	disconnectReason DisconnectReason
}

// NewSession starts a new session in the Idle state.
func NewSession() *Session { return &Session{state: StateIdle} }

// State reports the current state.
func (s *Session) State() SessionState { return s.state }

// DispatchOutcome is what ProtocolCore's packet dispatch decided should
// happen to the session.
type DispatchOutcome int

const (
	// OutcomePump means stay in the current state; more packets follow.
	OutcomePump DispatchOutcome = iota
	// OutcomeResumed means a resume command was dispatched; transition
	// toward Running (honoring any deferred stop reason from Idle).
	OutcomeResumed
	// OutcomeCtrlCInterrupt means a 0x03 byte arrived.
	OutcomeCtrlCInterrupt
	// OutcomeDisconnect means the dispatched command (D, k, vKill outside
	// extended mode) ends the session.
	OutcomeDisconnect
)

// AdvanceFromIdle applies a dispatch outcome while Idle, returning the
// stop reason to report immediately, if the outcome resumed execution and a
// stop reason had been deferred from an earlier Ctrl-C.
func (s *Session) AdvanceFromIdle(outcome DispatchOutcome, reason DisconnectReason) (deferred *StopReason, err error) {
	if s.state != StateIdle {
		return nil, &stateMachineError{method: "AdvanceFromIdle", have: s.state, want: StateIdle}
	}

	switch outcome {
	case OutcomePump:
		return nil, nil
	case OutcomeDisconnect:
		s.state = StateDisconnected
		s.disconnectReason = reason

		return nil, nil
	case OutcomeResumed:
		s.state = StateRunning

		d := s.deferredStopReason
		s.deferredStopReason = nil

		return d, nil
	case OutcomeCtrlCInterrupt:
		s.state = StateCtrlCInterrupt
		s.fromIdle = true

		return nil, nil
	default:
		return nil, &ParseError{Reason: "unknown dispatch outcome"}
	}
}

// AdvanceFromRunning applies a dispatch outcome while Running. Unlike Idle,
// OutcomeResumed and OutcomePump both simply stay in Running — a resume
// command received while already running has no further effect on state.
func (s *Session) AdvanceFromRunning(outcome DispatchOutcome, reason DisconnectReason) error {
	if s.state != StateRunning {
		return &stateMachineError{method: "AdvanceFromRunning", have: s.state, want: StateRunning}
	}

	switch outcome {
	case OutcomePump, OutcomeResumed:
		return nil
	case OutcomeDisconnect:
		s.state = StateDisconnected
		s.disconnectReason = reason

		return nil
	case OutcomeCtrlCInterrupt:
		s.state = StateCtrlCInterrupt
		s.fromIdle = false

		return nil
	default:
		return &ParseError{Reason: "unknown dispatch outcome"}
	}
}

// ReportStop transitions Running -> Idle (or -> Disconnected, if the
// reported reason is terminal) after the caller has written the
// corresponding stop-reply packet.
func (s *Session) ReportStop(terminal *DisconnectReason) error {
	if s.state != StateRunning {
		return &stateMachineError{method: "ReportStop", have: s.state, want: StateRunning}
	}

	if terminal != nil {
		s.state = StateDisconnected
		s.disconnectReason = *terminal

		return nil
	}

	s.state = StateIdle
	s.deferredStopReason = nil

	return nil
}

// InterruptHandled acknowledges a Ctrl-C interrupt. If the interrupt arrived
// while Idle, the stop reason (if any) cannot be reported yet and is
// deferred until the next resume; otherwise it is reported immediately by
// the caller via ReportStop after this call transitions back to Running.
func (s *Session) InterruptHandled(stopReason *StopReason) error {
	if s.state != StateCtrlCInterrupt {
		return &stateMachineError{method: "InterruptHandled", have: s.state, want: StateCtrlCInterrupt}
	}

	if s.fromIdle {
		s.state = StateIdle
		s.deferredStopReason = stopReason

		return nil
	}

	s.state = StateRunning

	return nil
}

// GetDisconnectReason returns why a Disconnected session ended.
func (s *Session) GetDisconnectReason() (DisconnectReason, error) {
	if s.state != StateDisconnected {
		return DisconnectReason{}, &stateMachineError{method: "GetDisconnectReason", have: s.state, want: StateDisconnected}
	}

	return s.disconnectReason, nil
}

// ReturnToIdle reuses a Disconnected session instance, re-entering Idle —
// useful for a driver that accepts a new client connection on the same
// Session/ProtocolCore wiring.
func (s *Session) ReturnToIdle() error {
	if s.state != StateDisconnected {
		return &stateMachineError{method: "ReturnToIdle", have: s.state, want: StateDisconnected}
	}

	s.state = StateIdle
	s.deferredStopReason = nil
	s.fromIdle = false

	return nil
}
