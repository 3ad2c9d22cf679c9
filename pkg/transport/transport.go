/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package transport defines the connection object the negotiation engine
// drives and observes, and provides the pion/webrtc implementation of it.
package transport

import (
	"errors"

	"github.com/abrekhov/edunet/pkg/signal"
)

// ErrChannelNotOpen is returned by Send before the data channel opened or
// after it closed.
var ErrChannelNotOpen = errors.New("data channel is not open")

// ErrNothingToRollback is returned by Rollback without a pending local offer.
var ErrNothingToRollback = errors.New("no pending local offer to roll back")

// GatheringState mirrors the ICE gathering state.
type GatheringState int

const (
	GatheringNew GatheringState = iota
	GatheringInProgress
	GatheringComplete
)

func (s GatheringState) String() string {
	switch s {
	case GatheringNew:
		return "new"
	case GatheringInProgress:
		return "gathering"
	case GatheringComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// ConnectionState mirrors the peer connection state.
type ConnectionState int

const (
	ConnectionNew ConnectionState = iota
	ConnectionConnecting
	ConnectionConnected
	ConnectionDisconnected
	ConnectionFailed
	ConnectionClosed
)

func (s ConnectionState) String() string {
	switch s {
	case ConnectionNew:
		return "new"
	case ConnectionConnecting:
		return "connecting"
	case ConnectionConnected:
		return "connected"
	case ConnectionDisconnected:
		return "disconnected"
	case ConnectionFailed:
		return "failed"
	case ConnectionClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Observer is a set of named signals. Nil members are skipped.
type Observer struct {
	OnGatheringStateChange  func(GatheringState)
	OnLocalCandidate        func(signal.Candidate)
	OnConnectionStateChange func(ConnectionState)
	OnNegotiationNeeded     func()
	OnChannelOpen           func()
	OnChannelMessage        func([]byte)
	OnChannelClose          func()
	OnRemoteTrack           func(kind, id string)
}

// Transport is the connection a single session owns. Descriptions and
// candidates go in through the methods; state comes back through the
// signals registered with Subscribe.
type Transport interface {
	CreateOffer() (signal.SessionDescription, error)
	CreateAnswer() (signal.SessionDescription, error)
	SetLocalDescription(d signal.SessionDescription) error
	SetRemoteDescription(d signal.SessionDescription) error
	// Rollback discards a local offer that was set but not answered.
	Rollback() error
	// LocalDescription returns the current local description, which
	// includes gathered candidates once gathering completed.
	LocalDescription() (signal.SessionDescription, bool)
	AddRemoteCandidate(c signal.Candidate) error
	GatheringState() GatheringState

	ChannelOpen() bool
	Send(data []byte) error

	// Subscribe registers o and returns the function that removes it.
	Subscribe(o Observer) (unsubscribe func())
	Close() error
}
