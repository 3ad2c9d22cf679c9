/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"errors"
	"fmt"
)

var (
	// ErrDecode is matched by every DecodeError.
	ErrDecode = errors.New("decode failed")
	// ErrInvalidMagic indicates the compact ticket doesn't start with the expected magic byte
	ErrInvalidMagic = errors.New("invalid compact ticket magic byte")
	// ErrUnsupportedVersion indicates an unsupported compact ticket version
	ErrUnsupportedVersion = errors.New("unsupported compact ticket version")
	// ErrTruncated indicates the compact ticket ended early
	ErrTruncated = errors.New("truncated ticket data")
	// ErrFieldTooLong indicates a string does not fit its length prefix
	ErrFieldTooLong = errors.New("field too long for compact encoding")
	// ErrWrongKind indicates an offer was supplied where an answer was expected or vice versa
	ErrWrongKind = errors.New("unexpected description kind")
)

// DecodeError reports input that could not be turned into a ticket or a
// control message. The caller can re-prompt; nothing has changed state.
type DecodeError struct {
	What string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.What, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, ErrDecode) hold for any DecodeError.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

func decodeErr(what string, err error) error {
	return &DecodeError{What: what, Err: err}
}
