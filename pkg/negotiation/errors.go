/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidState is returned when an operation is not allowed in the
	// current state. Nothing changed.
	ErrInvalidState = errors.New("operation not allowed in current state")
	// ErrNegotiationRejected is returned when the transport refuses a
	// description. The session moved to Failed.
	ErrNegotiationRejected = errors.New("description rejected by transport")
	// ErrTransportFailure is reported when connectivity fails. The session
	// moved to Failed.
	ErrTransportFailure = errors.New("transport failure")
	// ErrSessionClosed is returned when the session closed while an
	// operation was waiting.
	ErrSessionClosed = errors.New("session closed")
	// ErrDetached is returned by an engine whose session was handed off.
	ErrDetached = errors.New("session detached")
	// ErrRoleAssigned is returned on a second role assignment.
	ErrRoleAssigned = errors.New("role already assigned")
	// ErrUnexpectedAnswer is returned for an answer with no offer pending.
	ErrUnexpectedAnswer = errors.New("answer without a pending offer")
)

// TimeoutWarning tells the caller an offer or connection attempt is taking
// longer than expected. It does not change state.
type TimeoutWarning struct {
	State  State
	Waited time.Duration
}

func (w TimeoutWarning) String() string {
	return fmt.Sprintf("still %s after %s", w.State, w.Waited)
}

func stateErr(op string, s State) error {
	return fmt.Errorf("%s while %s: %w", op, s, ErrInvalidState)
}

func rejected(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNegotiationRejected, err)
}
