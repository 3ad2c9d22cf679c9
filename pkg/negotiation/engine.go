/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package negotiation drives one peer-to-peer session from the first offer
// to teardown: copy-paste ticket exchange, in-band renegotiation with
// perfect-negotiation collision handling, and idempotent close.
package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abrekhov/edunet/pkg/media"
	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/abrekhov/edunet/pkg/transport"
	log "github.com/sirupsen/logrus"
)

// DefaultAnswerTimeout is how long an offer may stay unanswered before a
// TimeoutWarning is reported.
const DefaultAnswerTimeout = 10 * time.Second

// Callbacks are invoked outside the engine lock. Nil members are skipped.
type Callbacks struct {
	OnGatheringStateChange  func(transport.GatheringState)
	OnConnectionStateChange func(transport.ConnectionState)
	// OnStateChange receives observable states only; Renegotiating is
	// reported as Connected.
	OnStateChange    func(State)
	OnError          func(error)
	OnTimeoutWarning func(TimeoutWarning)
	OnMessage        func(signal.ControlMessage)
	OnRemoteTrack    func(kind, id string)
	OnClosed         func(remote bool)
}

// Option configures an Engine.
type Option func(*Engine)

func WithCallbacks(cb Callbacks) Option {
	return func(e *Engine) { e.cb = cb }
}

// WithAnswerTimeout sets the advisory timeout. Zero disables it.
func WithAnswerTimeout(d time.Duration) Option {
	return func(e *Engine) { e.answerTimeout = d }
}

func WithLogger(l *log.Entry) Option {
	return func(e *Engine) { e.log = l }
}

// WithPoliteOffers lets the responder start renegotiation too. Collisions
// are still resolved in the initiator's favour.
func WithPoliteOffers() Option {
	return func(e *Engine) { e.politeOffers = true }
}

// Engine owns a PeerSession and serializes every transition on it.
type Engine struct {
	// opMu serializes operations end to end, transport calls included.
	// Close does not take it so that it can interrupt a waiting operation.
	opMu sync.Mutex

	mu    sync.Mutex
	ps    *PeerSession
	queue []func()

	cb            Callbacks
	answerTimeout time.Duration
	politeOffers  bool
	log           *log.Entry

	done        chan struct{}
	doneOnce    sync.Once
	unsubscribe func()

	timer    *time.Timer
	timerGen uint64
}

// New creates an engine around a fresh session on t.
func New(t transport.Transport, tracks []media.Track, opts ...Option) *Engine {
	return Attach(NewPeerSession(t, tracks...), opts...)
}

// Attach gives ps to a new engine. ps must not be attached elsewhere.
func Attach(ps *PeerSession, opts ...Option) *Engine {
	e := &Engine{
		ps:            ps,
		answerTimeout: DefaultAnswerTimeout,
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.log == nil {
		e.log = log.WithField("session", ps.id)
	}

	e.mu.Lock()
	if ps.state == StateClosed {
		e.closeDone()
	} else {
		e.unsubscribe = ps.transport.Subscribe(transport.Observer{
			OnGatheringStateChange:  e.onGatheringState,
			OnConnectionStateChange: e.onConnectionState,
			OnNegotiationNeeded:     e.onNegotiationNeeded,
			OnChannelMessage:        e.onChannelMessage,
			OnChannelClose:          e.onChannelClose,
			OnRemoteTrack:           e.onRemoteTrack,
		})
		switch {
		case ps.state == StateConnecting:
			e.armTimer(StateConnecting)
		case ps.pendingLocalOffer:
			e.armTimer(ps.state)
		}
	}
	e.mu.Unlock()

	e.log.WithFields(log.Fields{
		"role":  ps.role,
		"state": ps.state,
	}).Debugln("Engine attached")
	return e
}

func (e *Engine) closeDone() {
	e.doneOnce.Do(func() { close(e.done) })
}

// unlock releases mu and runs the callbacks queued while it was held.
func (e *Engine) unlock() {
	q := e.queue
	e.queue = nil
	e.mu.Unlock()
	for _, f := range q {
		f()
	}
}

func (e *Engine) notify(f func()) {
	e.queue = append(e.queue, f)
}

func (e *Engine) reportErr(err error) {
	if cb := e.cb.OnError; cb != nil {
		e.notify(func() { cb(err) })
	}
}

// setState must be called with mu held.
func (e *Engine) setState(s State) {
	prev := e.ps.state
	if prev == s {
		return
	}
	e.ps.state = s
	e.log.WithFields(log.Fields{
		"from": prev,
		"to":   s,
	}).Debugln("Negotiation state changed")
	if observable(prev) == observable(s) {
		return
	}
	if cb := e.cb.OnStateChange; cb != nil {
		ob := observable(s)
		e.notify(func() { cb(ob) })
	}
}

// begin checks the session is attached and in one of allowed. mu must be
// held.
func (e *Engine) begin(op string, allowed ...State) error {
	if e.ps == nil {
		return ErrDetached
	}
	for _, s := range allowed {
		if e.ps.state == s {
			return nil
		}
	}
	if e.ps.state == StateClosed || e.ps.state == StateClosing {
		return fmt.Errorf("%s: %w", op, ErrSessionClosed)
	}
	return stateErr(op, e.ps.state)
}

// fail moves the session to Failed unless teardown already started, and
// reports err. It returns err for convenience.
func (e *Engine) fail(err error) error {
	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil {
		return err
	}
	switch e.ps.state {
	case StateClosing, StateClosed:
		return fmt.Errorf("%w: %w", ErrSessionClosed, err)
	case StateFailed:
		return err
	}
	e.ps.pendingLocalOffer = false
	e.stopTimer()
	e.setState(StateFailed)
	e.log.WithError(err).Errorln("Negotiation failed")
	e.reportErr(err)
	return err
}

// advance moves from one in-flight state to the next. It reports false if
// the session left from meanwhile, which only Close does.
func (e *Engine) advance(from, to State) bool {
	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil || e.ps.state != from {
		return false
	}
	e.setState(to)
	return true
}

// State returns the observable state.
func (e *Engine) State() State {
	return observable(e.Phase())
}

// Phase returns the internal state, Renegotiating included.
func (e *Engine) Phase() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ps == nil {
		return StateClosed
	}
	return e.ps.state
}

func (e *Engine) Role() Role {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ps == nil {
		return RoleUnassigned
	}
	return e.ps.role
}

// PendingLocalOffer reports whether a local offer awaits its answer.
func (e *Engine) PendingLocalOffer() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ps != nil && e.ps.pendingLocalOffer
}

// SessionID returns the ID of the attached session, or "" after Detach.
func (e *Engine) SessionID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ps == nil {
		return ""
	}
	return e.ps.id
}

// Done is closed once the session is closed.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// ReferenceTrack adds a track the session stops on close.
func (e *Engine) ReferenceTrack(t media.Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.ps == nil {
		return ErrDetached
	}
	e.ps.tracks = append(e.ps.tracks, t)
	return nil
}

// CreateInitialOffer assigns the initiator role and exports the offer
// ticket once gathering completed.
func (e *Engine) CreateInitialOffer(ctx context.Context) (signal.Ticket, error) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if err := e.begin("create offer", StateIdle); err != nil {
		e.unlock()
		return signal.Ticket{}, err
	}
	if err := e.ps.assignRole(RoleInitiator); err != nil {
		e.unlock()
		return signal.Ticket{}, err
	}
	e.setState(StateCreatingOffer)
	t := e.ps.transport
	e.unlock()

	e.log.Infoln("Creating offer")
	offer, err := t.CreateOffer()
	if err != nil {
		return signal.Ticket{}, e.fail(fmt.Errorf("create offer: %w", err))
	}
	ticket, err := e.gather(ctx, t, offer, StateCreatingOffer, StateTicketReady)
	if err != nil {
		return signal.Ticket{}, err
	}

	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil || e.ps.state != StateTicketReady {
		return signal.Ticket{}, ErrSessionClosed
	}
	e.ps.pendingLocalOffer = true
	e.setState(StateAwaitingAnswer)
	e.armTimer(StateAwaitingAnswer)
	e.log.WithField("candidates", len(ticket.Candidates)).Infoln("Offer ticket ready")
	return ticket, nil
}

// AcceptOfferTicket assigns the responder role, applies the remote offer
// and exports the answer ticket once gathering completed. A ticket that is
// not a valid offer leaves the session untouched.
func (e *Engine) AcceptOfferTicket(ctx context.Context, offer signal.Ticket) (signal.Ticket, error) {
	if err := offer.Expect(signal.KindOffer); err != nil {
		return signal.Ticket{}, err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if err := e.begin("accept offer", StateIdle); err != nil {
		e.unlock()
		return signal.Ticket{}, err
	}
	if err := e.ps.assignRole(RoleResponder); err != nil {
		e.unlock()
		return signal.Ticket{}, err
	}
	e.setState(StateReceivedOffer)
	t := e.ps.transport
	e.unlock()

	if err := e.applyRemote(t, offer); err != nil {
		return signal.Ticket{}, err
	}
	if !e.advance(StateReceivedOffer, StateCreatingAnswer) {
		return signal.Ticket{}, ErrSessionClosed
	}

	e.log.Infoln("Creating answer")
	answer, err := t.CreateAnswer()
	if err != nil {
		return signal.Ticket{}, e.fail(fmt.Errorf("create answer: %w", err))
	}
	ticket, err := e.gather(ctx, t, answer, StateCreatingAnswer, StateAnswerReady)
	if err != nil {
		return signal.Ticket{}, err
	}

	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil || e.ps.state != StateAnswerReady {
		return signal.Ticket{}, ErrSessionClosed
	}
	e.enterConnecting()
	e.log.WithField("candidates", len(ticket.Candidates)).Infoln("Answer ticket ready")
	return ticket, nil
}

// AcceptAnswerTicket applies the answer to the initial offer. A ticket that
// is not a valid answer leaves the session untouched.
func (e *Engine) AcceptAnswerTicket(answer signal.Ticket) error {
	if err := answer.Expect(signal.KindAnswer); err != nil {
		return err
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	e.mu.Lock()
	if err := e.begin("accept answer", StateAwaitingAnswer); err != nil {
		e.unlock()
		return err
	}
	t := e.ps.transport
	e.unlock()

	if err := e.applyRemote(t, answer); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil || e.ps.state != StateAwaitingAnswer {
		return ErrSessionClosed
	}
	e.ps.pendingLocalOffer = false
	e.enterConnecting()
	e.log.Infoln("Answer applied")
	return nil
}

// AcceptOfferText decodes raw pasted text and accepts it as an offer.
func (e *Engine) AcceptOfferText(ctx context.Context, raw string) (signal.Ticket, error) {
	ticket, err := signal.DecodeTicket(raw)
	if err != nil {
		return signal.Ticket{}, err
	}
	return e.AcceptOfferTicket(ctx, ticket)
}

// AcceptAnswerText decodes raw pasted text and accepts it as an answer.
func (e *Engine) AcceptAnswerText(raw string) error {
	ticket, err := signal.DecodeTicket(raw)
	if err != nil {
		return err
	}
	return e.AcceptAnswerTicket(ticket)
}

// enterConnecting must be called with mu held.
func (e *Engine) enterConnecting() {
	e.stopTimer()
	if e.ps.transportConnected {
		e.setState(StateConnected)
		return
	}
	e.setState(StateConnecting)
	e.armTimer(StateConnecting)
}

func (e *Engine) applyRemote(t transport.Transport, ticket signal.Ticket) error {
	if err := t.SetRemoteDescription(ticket.Description); err != nil {
		return e.fail(rejected("set remote "+string(ticket.Kind()), err))
	}
	for _, c := range ticket.Candidates {
		if err := t.AddRemoteCandidate(c); err != nil {
			return e.fail(rejected("add remote candidate", err))
		}
	}
	return nil
}

// gather sets the local description behind a barrier and exports the
// ticket once gathering completed.
func (e *Engine) gather(ctx context.Context, t transport.Transport, local signal.SessionDescription, from, ready State) (signal.Ticket, error) {
	b := NewBarrier(t)
	defer b.Release()

	if err := t.SetLocalDescription(local); err != nil {
		return signal.Ticket{}, e.fail(rejected("set local "+string(local.Kind), err))
	}
	if !e.advance(from, StateGathering) {
		return signal.Ticket{}, ErrSessionClosed
	}
	desc, cands, err := b.Wait(ctx, e.done)
	if err != nil {
		if errors.Is(err, ErrSessionClosed) {
			return signal.Ticket{}, err
		}
		return signal.Ticket{}, e.fail(fmt.Errorf("gathering: %w", err))
	}
	if !e.advance(StateGathering, ready) {
		return signal.Ticket{}, ErrSessionClosed
	}
	return signal.NewTicket(desc, cands), nil
}

// Send delivers an application message over the data channel.
func (e *Engine) Send(m signal.ControlMessage) error {
	if m.Negotiation() {
		return fmt.Errorf("send %s: negotiation messages are engine-owned: %w", m.Type, ErrInvalidState)
	}
	e.mu.Lock()
	if err := e.begin("send", StateConnected, StateRenegotiating); err != nil {
		e.unlock()
		return err
	}
	t := e.ps.transport
	e.unlock()
	return send(t, m)
}

func send(t transport.Transport, m signal.ControlMessage) error {
	data, err := signal.MarshalControl(m)
	if err != nil {
		return err
	}
	return t.Send(data)
}

// armTimer starts the advisory timer for phase. mu must be held.
func (e *Engine) armTimer(phase State) {
	e.stopTimer()
	if e.answerTimeout <= 0 {
		return
	}
	e.timerGen++
	gen, wait := e.timerGen, e.answerTimeout
	e.timer = time.AfterFunc(wait, func() { e.onTimeout(gen, phase, wait) })
}

// stopTimer must be called with mu held.
func (e *Engine) stopTimer() {
	e.timerGen++
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

func (e *Engine) onTimeout(gen uint64, phase State, wait time.Duration) {
	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil || gen != e.timerGen {
		return
	}
	var still bool
	if phase == StateConnecting {
		still = e.ps.state == StateConnecting
	} else {
		still = e.ps.pendingLocalOffer
	}
	if !still {
		return
	}
	w := TimeoutWarning{State: e.ps.state, Waited: wait}
	e.log.WithField("waited", wait).Warnln("No progress on", e.ps.state)
	if cb := e.cb.OnTimeoutWarning; cb != nil {
		e.notify(func() { cb(w) })
	}
}

func (e *Engine) onGatheringState(s transport.GatheringState) {
	e.log.WithField("state", s).Debugln("Gathering state")
	if cb := e.cb.OnGatheringStateChange; cb != nil {
		cb(s)
	}
}

func (e *Engine) onConnectionState(s transport.ConnectionState) {
	e.mu.Lock()
	if cb := e.cb.OnConnectionStateChange; cb != nil {
		e.notify(func() { cb(s) })
	}
	if e.ps == nil {
		e.unlock()
		return
	}
	e.log.WithField("state", s).Infoln("Connection state")
	switch s {
	case transport.ConnectionConnected:
		e.ps.transportConnected = true
		if e.ps.state == StateConnecting {
			e.stopTimer()
			e.setState(StateConnected)
		}
	case transport.ConnectionFailed:
		e.ps.transportConnected = false
		switch e.ps.state {
		case StateClosing, StateClosed, StateFailed:
		default:
			e.ps.pendingLocalOffer = false
			e.stopTimer()
			e.setState(StateFailed)
			e.reportErr(ErrTransportFailure)
		}
	case transport.ConnectionDisconnected:
		e.ps.transportConnected = false
		e.log.Warnln("Peer disconnected, waiting for recovery")
	case transport.ConnectionClosed:
		e.ps.transportConnected = false
		e.remoteHangUpLocked("transport closed")
	}
	e.unlock()
}

// onChannelClose treats the data channel going away under a live session
// as the peer hanging up without a bye.
func (e *Engine) onChannelClose() {
	e.mu.Lock()
	defer e.unlock()
	if e.ps == nil {
		return
	}
	e.remoteHangUpLocked("data channel closed")
}

// remoteHangUpLocked closes a connected session on behalf of the peer.
// Teardown runs on its own goroutine since the caller is a transport
// callback. mu must be held.
func (e *Engine) remoteHangUpLocked(reason string) {
	switch e.ps.state {
	case StateConnected, StateRenegotiating:
	default:
		return
	}
	e.log.WithField("reason", reason).Infoln("Peer went away")
	go func() {
		if err := e.teardown(false, true); err != nil {
			e.log.WithError(err).Warnln("Close after peer went away")
		}
	}()
}

func (e *Engine) onRemoteTrack(kind, id string) {
	e.log.WithFields(log.Fields{"kind": kind, "id": id}).Infoln("Remote track")
	if cb := e.cb.OnRemoteTrack; cb != nil {
		cb(kind, id)
	}
}

func (e *Engine) onNegotiationNeeded() {
	if e.State() != StateConnected {
		return
	}
	go func() {
		if err := e.RequestRenegotiation(context.Background()); err != nil {
			e.log.WithError(err).Warnln("Renegotiation on transport request")
		}
	}()
}

// onChannelMessage dispatches one data channel payload. Payloads that are
// not control messages are delivered as chat text.
func (e *Engine) onChannelMessage(data []byte) {
	if !signal.IsControlPayload(data) {
		if cb := e.cb.OnMessage; cb != nil {
			cb(signal.ChatMessage(string(data)))
		}
		return
	}
	msg, err := signal.UnmarshalControl(data)
	if err != nil {
		e.log.WithError(err).Warnln("Dropping control message")
		e.mu.Lock()
		e.reportErr(err)
		e.unlock()
		return
	}
	if msg.Type == signal.TypeBye {
		// Closing the transport from inside its own read loop is avoided.
		go func() {
			if err := e.HandleIncomingControlMessage(context.Background(), msg); err != nil {
				e.log.WithError(err).Warnln("Close after bye")
			}
		}()
		return
	}
	if err := e.HandleIncomingControlMessage(context.Background(), msg); err != nil {
		e.log.WithError(err).WithField("type", msg.Type).Warnln("Control message not handled")
		e.mu.Lock()
		e.reportErr(err)
		e.unlock()
	}
}
