/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

// State is the negotiation state of a session.
type State int

const (
	// StateIdle is the state of a fresh session.
	StateIdle State = iota
	// StateCreatingOffer indicates the local offer is being generated.
	StateCreatingOffer
	// StateGathering indicates candidates are being collected.
	StateGathering
	// StateTicketReady indicates the offer ticket was exported.
	StateTicketReady
	// StateAwaitingAnswer indicates the offer ticket is out and unanswered.
	StateAwaitingAnswer
	// StateReceivedOffer indicates a remote offer was decoded.
	StateReceivedOffer
	// StateCreatingAnswer indicates the local answer is being generated.
	StateCreatingAnswer
	// StateAnswerReady indicates the answer ticket was exported.
	StateAnswerReady
	// StateConnecting indicates both descriptions are applied.
	StateConnecting
	// StateConnected indicates the transport reported connected.
	StateConnected
	// StateRenegotiating indicates an in-band offer/answer round is running.
	StateRenegotiating
	// StateClosing indicates teardown is in progress.
	StateClosing
	// StateClosed is terminal.
	StateClosed
	// StateFailed is terminal.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCreatingOffer:
		return "creating offer"
	case StateGathering:
		return "gathering"
	case StateTicketReady:
		return "ticket ready"
	case StateAwaitingAnswer:
		return "awaiting answer"
	case StateReceivedOffer:
		return "received offer"
	case StateCreatingAnswer:
		return "creating answer"
	case StateAnswerReady:
		return "answer ready"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateRenegotiating:
		return "renegotiating"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no transition leaves s.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// observable folds the renegotiation sub-state into Connected: a short
// in-band round never looks like a disconnect to the caller.
func observable(s State) State {
	if s == StateRenegotiating {
		return StateConnected
	}
	return s
}
