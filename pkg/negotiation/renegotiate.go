/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

import (
	"context"
	"fmt"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/abrekhov/edunet/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// RequestRenegotiation sends a fresh offer over the data channel. A polite
// peer without WithPoliteOffers waits for the other side to offer and
// returns nil. A request while an offer is already pending is a no-op.
func (e *Engine) RequestRenegotiation(ctx context.Context) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.ps == nil {
		e.unlock()
		return ErrDetached
	}
	if e.ps.role.Polite() && !e.politeOffers {
		e.log.Debugln("Polite peer leaves renegotiation to the initiator")
		e.unlock()
		return nil
	}
	if e.ps.state == StateRenegotiating && e.ps.pendingLocalOffer {
		e.unlock()
		return nil
	}
	if err := e.begin("renegotiate", StateConnected); err != nil {
		e.unlock()
		return err
	}
	t := e.ps.transport
	if !t.ChannelOpen() {
		e.unlock()
		return fmt.Errorf("renegotiate: %w", transport.ErrChannelNotOpen)
	}
	e.ps.pendingLocalOffer = true
	e.setState(StateRenegotiating)
	e.unlock()

	if err := ctx.Err(); err != nil {
		return e.abortOffer(t, err, false)
	}
	offer, err := t.CreateOffer()
	if err != nil {
		return e.abortOffer(t, fmt.Errorf("create offer: %w", err), false)
	}
	if err := t.SetLocalDescription(offer); err != nil {
		return e.abortOffer(t, fmt.Errorf("set local offer: %w", err), false)
	}
	if local, ok := t.LocalDescription(); ok {
		offer = local
	}
	if err := send(t, signal.OfferMessage(offer)); err != nil {
		return e.abortOffer(t, fmt.Errorf("send offer: %w", err), true)
	}

	e.mu.Lock()
	defer e.unlock()
	if e.ps != nil && e.ps.pendingLocalOffer {
		e.armTimer(StateRenegotiating)
	}
	e.log.Infoln("Renegotiation offer sent")
	return nil
}

// abortOffer returns the session to Connected after a local renegotiation
// step failed.
func (e *Engine) abortOffer(t transport.Transport, err error, rollback bool) error {
	if rollback {
		if rbErr := t.Rollback(); rbErr != nil {
			e.log.WithError(rbErr).Warnln("Rollback after aborted offer")
		}
	}
	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil {
		return err
	}
	e.ps.pendingLocalOffer = false
	e.stopTimer()
	if e.ps.state == StateRenegotiating {
		e.setState(StateConnected)
	}
	e.log.WithError(err).Warnln("Renegotiation aborted")
	e.reportErr(err)
	return err
}

// HandleIncomingControlMessage applies one message received over the data
// channel. Chat and file messages go to OnMessage.
func (e *Engine) HandleIncomingControlMessage(ctx context.Context, m signal.ControlMessage) error {
	if err := m.Validate(); err != nil {
		return &signal.DecodeError{What: "control message", Err: err}
	}
	switch m.Type {
	case signal.TypeOffer:
		return e.handleOffer(ctx, *m.SDP)
	case signal.TypeAnswer:
		return e.handleAnswer(*m.SDP)
	case signal.TypeCandidate:
		return e.handleCandidate(*m.Candidate)
	case signal.TypeBye:
		e.log.Infoln("Peer hung up")
		return e.teardown(false, true)
	default:
		e.mu.Lock()
		err := e.begin("receive "+string(m.Type), StateConnected, StateRenegotiating)
		e.unlock()
		if err != nil {
			return err
		}
		if cb := e.cb.OnMessage; cb != nil {
			cb(m)
		}
		return nil
	}
}

func (e *Engine) handleOffer(ctx context.Context, offer signal.SessionDescription) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if err := e.begin("remote offer", StateConnected, StateRenegotiating); err != nil {
		e.unlock()
		return err
	}
	t := e.ps.transport
	collision := e.ps.pendingLocalOffer
	if collision && e.ps.role.Impolite() {
		e.log.Infoln("Ignoring colliding remote offer")
		e.unlock()
		return nil
	}
	e.setState(StateRenegotiating)
	e.unlock()

	if collision {
		if err := t.Rollback(); err != nil {
			return e.fail(rejected("rollback local offer", err))
		}
		e.mu.Lock()
		e.ps.pendingLocalOffer = false
		e.stopTimer()
		e.unlock()
		e.log.Infoln("Rolled back local offer for the remote one")
	}

	if err := t.SetRemoteDescription(offer); err != nil {
		return e.fail(rejected("set remote offer", err))
	}
	if err := ctx.Err(); err != nil {
		return e.fail(fmt.Errorf("answer remote offer: %w", err))
	}
	answer, err := t.CreateAnswer()
	if err != nil {
		return e.fail(fmt.Errorf("create answer: %w", err))
	}
	if err := t.SetLocalDescription(answer); err != nil {
		return e.fail(rejected("set local answer", err))
	}
	if local, ok := t.LocalDescription(); ok {
		answer = local
	}
	sendErr := send(t, signal.AnswerMessage(answer))

	e.mu.Lock()
	defer e.unlock()
	if e.ps != nil && e.ps.state == StateRenegotiating {
		e.setState(StateConnected)
	}
	if sendErr != nil {
		return fmt.Errorf("send answer: %w", sendErr)
	}
	e.log.Infoln("Renegotiation answered")
	return nil
}

func (e *Engine) handleAnswer(answer signal.SessionDescription) error {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if e.ps == nil {
		e.unlock()
		return ErrDetached
	}
	if !e.ps.pendingLocalOffer || e.ps.state != StateRenegotiating {
		state := e.ps.state
		e.unlock()
		return fmt.Errorf("remote answer while %s: %w", state, ErrUnexpectedAnswer)
	}
	t := e.ps.transport
	e.unlock()

	if err := t.SetRemoteDescription(answer); err != nil {
		return e.fail(rejected("set remote answer", err))
	}

	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil || e.ps.state != StateRenegotiating {
		return ErrSessionClosed
	}
	e.ps.pendingLocalOffer = false
	e.stopTimer()
	e.setState(StateConnected)
	e.log.Infoln("Renegotiation complete")
	return nil
}

func (e *Engine) handleCandidate(c signal.Candidate) error {
	e.mu.Lock()
	if e.ps == nil {
		e.unlock()
		return ErrDetached
	}
	switch e.ps.state {
	case StateIdle, StateClosing, StateClosed, StateFailed:
		state := e.ps.state
		e.unlock()
		return stateErr("remote candidate", state)
	}
	t := e.ps.transport
	e.unlock()

	if err := t.AddRemoteCandidate(c); err != nil {
		return fmt.Errorf("add remote candidate: %w", err)
	}
	e.log.WithFields(log.Fields{
		"address": c.Address,
		"type":    c.Type,
	}).Debugln("Remote candidate added")
	return nil
}
