/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

// Detach releases the session so another engine can Attach it. It waits
// for an operation in flight and refuses while the session is closing. The
// engine is unusable afterwards.
func (e *Engine) Detach() (*PeerSession, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil {
		return nil, ErrDetached
	}
	if e.ps.state == StateClosing {
		return nil, stateErr("detach", e.ps.state)
	}
	ps := e.ps
	e.stopTimer()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	e.ps = nil
	e.log.Debugln("Session detached")
	return ps, nil
}
