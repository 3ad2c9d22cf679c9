/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

// Role is fixed for the lifetime of a session. The initiator generates the
// first offer and is the impolite peer when offers collide; the responder
// accepts that offer and is the polite peer.
type Role int

const (
	RoleUnassigned Role = iota
	RoleInitiator
	RoleResponder
)

func (r Role) String() string {
	switch r {
	case RoleInitiator:
		return "initiator"
	case RoleResponder:
		return "responder"
	default:
		return "unassigned"
	}
}

// Polite peers never offer on their own and give way on collision.
func (r Role) Polite() bool { return r == RoleResponder }

// Impolite peers keep their own offer on collision.
func (r Role) Impolite() bool { return r == RoleInitiator }
