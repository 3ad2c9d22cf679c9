/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

import (
	"errors"
	"fmt"

	"github.com/abrekhov/edunet/pkg/media"
	"github.com/abrekhov/edunet/pkg/signal"
)

// Close tears the session down: it optionally tells the peer, closes the
// transport and stops every referenced track. Calling it again, or after
// the peer hung up, is a no-op. The returned error joins every cleanup
// failure; the session ends Closed regardless.
func (e *Engine) Close(notifyPeer bool) error {
	return e.teardown(notifyPeer, false)
}

func (e *Engine) teardown(notifyPeer, remote bool) error {
	e.mu.Lock()
	if e.ps == nil {
		e.unlock()
		return ErrDetached
	}
	if e.ps.state == StateClosing || e.ps.state == StateClosed {
		e.unlock()
		return nil
	}
	e.stopTimer()
	e.setState(StateClosing)
	t := e.ps.transport
	tracks := append([]media.Track(nil), e.ps.tracks...)
	e.unlock()

	var errs []error
	if notifyPeer && t.ChannelOpen() {
		if err := send(t, signal.ByeMessage()); err != nil {
			e.log.WithError(err).Warnln("Could not say bye")
			errs = append(errs, fmt.Errorf("send bye: %w", err))
		}
	}
	if err := t.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close transport: %w", err))
	}
	for _, tr := range tracks {
		if err := tr.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop track: %w", err))
		}
	}

	e.mu.Lock()
	defer e.unlock()
	e.ps.pendingLocalOffer = false
	e.ps.transportConnected = false
	e.setState(StateClosed)
	e.closeDone()
	if e.unsubscribe != nil {
		e.unsubscribe()
		e.unsubscribe = nil
	}
	if cb := e.cb.OnClosed; cb != nil {
		e.notify(func() { cb(remote) })
	}
	e.log.WithField("remote", remote).Infoln("Session closed")
	return errors.Join(errs...)
}
