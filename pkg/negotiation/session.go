/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

import (
	"github.com/abrekhov/edunet/pkg/media"
	"github.com/abrekhov/edunet/pkg/transport"
	"github.com/google/uuid"
)

// PeerSession is everything one call owns: its role, negotiation state and
// the transport handle. An Engine drives it; after Detach it can be handed
// to another Engine with Attach.
type PeerSession struct {
	id                string
	role              Role
	state             State
	pendingLocalOffer bool

	// transportConnected remembers a Connected report that arrived before
	// the local side reached Connecting.
	transportConnected bool

	transport transport.Transport
	tracks    []media.Track
}

// NewPeerSession creates an idle session around t. The tracks stay owned
// by the caller; the session stops them on close.
func NewPeerSession(t transport.Transport, tracks ...media.Track) *PeerSession {
	return &PeerSession{
		id:        uuid.NewString(),
		state:     StateIdle,
		transport: t,
		tracks:    append([]media.Track(nil), tracks...),
	}
}

func (ps *PeerSession) ID() string                     { return ps.id }
func (ps *PeerSession) Transport() transport.Transport { return ps.transport }

func (ps *PeerSession) assignRole(r Role) error {
	if ps.role != RoleUnassigned {
		return ErrRoleAssigned
	}
	ps.role = r
	return nil
}
