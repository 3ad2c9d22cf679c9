/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package negotiation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/abrekhov/edunet/pkg/transport"
	"github.com/stretchr/testify/require"
)

// fakeTransport models the signaling state machine of a peer connection:
// a remote offer is refused while a local offer is outstanding unless it
// was rolled back first.
type fakeTransport struct {
	transport.Emitter

	mu           sync.Mutex
	name         string
	version      int
	signaling    string
	local        *signal.SessionDescription
	gathering    transport.GatheringState
	candidates   []signal.Candidate
	manualGather bool
	channelOpen  bool
	closed       bool

	remoteOffers  []signal.SessionDescription
	remoteAnswers []signal.SessionDescription
	remoteCands   []signal.Candidate
	rollbacks     int
	closeCalls    int
	sent          [][]byte
	deliver       func([]byte)

	setRemoteErr error
	closeErr     error
}

func newFakeTransport(name string) *fakeTransport {
	return &fakeTransport{name: name, signaling: "stable"}
}

func (f *fakeTransport) nextBody() string {
	f.version++
	return fmt.Sprintf("v=0\r\no=- 4242 %d IN IP4 127.0.0.1\r\ns=%s\r\nt=0 0\r\n"+
		"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\nc=IN IP4 0.0.0.0\r\na=mid:0\r\n"+
		"a=ice-ufrag:fakeufrag%s\r\na=ice-pwd:fakepasswordfakepassword\r\n"+
		"a=fingerprint:sha-256 2F:A0:55:DE:C2:70:55:AA:EF:6C:AF:64:8E:68:90:03:0A:E2:CF:39:8D:A6:5D:AB:C9:FE:0D:B8:D6:AA:82:DB\r\n",
		f.version, f.name, f.name)
}

func (f *fakeTransport) CreateOffer() (signal.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return signal.SessionDescription{}, errors.New("closed")
	}
	return signal.NewOffer(f.nextBody()), nil
}

func (f *fakeTransport) CreateAnswer() (signal.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return signal.SessionDescription{}, errors.New("closed")
	}
	if f.signaling != "have-remote-offer" {
		return signal.SessionDescription{}, fmt.Errorf("create answer in %s", f.signaling)
	}
	return signal.NewAnswer(f.nextBody()), nil
}

func (f *fakeTransport) SetLocalDescription(d signal.SessionDescription) error {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return errors.New("closed")
	}
	switch d.Kind {
	case signal.KindOffer:
		if f.signaling == "have-remote-offer" {
			f.mu.Unlock()
			return errors.New("local offer in have-remote-offer")
		}
		f.signaling = "have-local-offer"
	case signal.KindAnswer:
		if f.signaling != "have-remote-offer" {
			f.mu.Unlock()
			return fmt.Errorf("local answer in %s", f.signaling)
		}
		f.signaling = "stable"
	}
	f.local = &d
	gatherNow := !f.manualGather && f.gathering == transport.GatheringNew
	f.mu.Unlock()

	if gatherNow {
		f.finishGathering()
	}
	return nil
}

func (f *fakeTransport) finishGathering() {
	f.mu.Lock()
	f.gathering = transport.GatheringInProgress
	cands := append([]signal.Candidate(nil), f.candidates...)
	f.mu.Unlock()
	f.EmitGatheringState(transport.GatheringInProgress)
	for _, c := range cands {
		f.EmitLocalCandidate(c)
	}
	f.mu.Lock()
	f.gathering = transport.GatheringComplete
	f.mu.Unlock()
	f.EmitGatheringState(transport.GatheringComplete)
}

func (f *fakeTransport) SetRemoteDescription(d signal.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setRemoteErr != nil {
		return f.setRemoteErr
	}
	if f.closed {
		return errors.New("closed")
	}
	switch d.Kind {
	case signal.KindOffer:
		if f.signaling != "stable" {
			return fmt.Errorf("remote offer in %s", f.signaling)
		}
		f.signaling = "have-remote-offer"
		f.remoteOffers = append(f.remoteOffers, d)
	case signal.KindAnswer:
		if f.signaling != "have-local-offer" {
			return fmt.Errorf("remote answer in %s", f.signaling)
		}
		f.signaling = "stable"
		f.remoteAnswers = append(f.remoteAnswers, d)
	}
	return nil
}

func (f *fakeTransport) Rollback() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.signaling != "have-local-offer" {
		return fmt.Errorf("rollback in %s", f.signaling)
	}
	f.signaling = "stable"
	f.rollbacks++
	return nil
}

func (f *fakeTransport) LocalDescription() (signal.SessionDescription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.local == nil {
		return signal.SessionDescription{}, false
	}
	return *f.local, true
}

func (f *fakeTransport) AddRemoteCandidate(c signal.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteCands = append(f.remoteCands, c)
	return nil
}

func (f *fakeTransport) GatheringState() transport.GatheringState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.gathering
}

func (f *fakeTransport) ChannelOpen() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.channelOpen && !f.closed
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	if !f.channelOpen || f.closed {
		f.mu.Unlock()
		return transport.ErrChannelNotOpen
	}
	f.sent = append(f.sent, append([]byte(nil), data...))
	deliver := f.deliver
	f.mu.Unlock()
	if deliver != nil {
		deliver(data)
	}
	return nil
}

func (f *fakeTransport) Close() error {
	f.mu.Lock()
	f.closeCalls++
	f.closed = true
	f.channelOpen = false
	err := f.closeErr
	f.mu.Unlock()
	f.EmitConnectionState(transport.ConnectionClosed)
	return err
}

// connect reports an open channel and a connected transport.
func (f *fakeTransport) connect() {
	f.mu.Lock()
	f.channelOpen = true
	f.mu.Unlock()
	f.EmitChannelOpen()
	f.EmitConnectionState(transport.ConnectionConnected)
}

func (f *fakeTransport) sentMessages(t *testing.T) []signal.ControlMessage {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	msgs := make([]signal.ControlMessage, 0, len(f.sent))
	for _, data := range f.sent {
		m, err := signal.UnmarshalControl(data)
		require.NoError(t, err)
		msgs = append(msgs, m)
	}
	return msgs
}

func (f *fakeTransport) snapshot() (rollbacks int, offers, answers []signal.SessionDescription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rollbacks, append([]signal.SessionDescription(nil), f.remoteOffers...),
		append([]signal.SessionDescription(nil), f.remoteAnswers...)
}

// wire queues payloads sent one way so a test decides when each arrives.
type wire struct {
	mu sync.Mutex
	q  [][]byte
}

func (w *wire) push(data []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.q = append(w.q, append([]byte(nil), data...))
}

func (w *wire) pop() ([]byte, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.q) == 0 {
		return nil, false
	}
	data := w.q[0]
	w.q = w.q[1:]
	return data, true
}

func (w *wire) len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.q)
}

// recorder collects everything an engine reports.
type recorder struct {
	mu       sync.Mutex
	states   []State
	errs     []error
	warnings []TimeoutWarning
	msgs     []signal.ControlMessage
	closed   []bool
}

func (r *recorder) callbacks() Callbacks {
	return Callbacks{
		OnStateChange: func(s State) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.states = append(r.states, s)
		},
		OnError: func(err error) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.errs = append(r.errs, err)
		},
		OnTimeoutWarning: func(w TimeoutWarning) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.warnings = append(r.warnings, w)
		},
		OnMessage: func(m signal.ControlMessage) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.msgs = append(r.msgs, m)
		},
		OnClosed: func(remote bool) {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.closed = append(r.closed, remote)
		},
	}
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) Errs() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) Warnings() []TimeoutWarning {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]TimeoutWarning(nil), r.warnings...)
}

func (r *recorder) Messages() []signal.ControlMessage {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]signal.ControlMessage(nil), r.msgs...)
}

func (r *recorder) Closed() []bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]bool(nil), r.closed...)
}

func hostCandidate(port uint16) signal.Candidate {
	return signal.Candidate{
		Foundation: "1",
		Priority:   2130706431,
		Address:    "192.168.1.10",
		Protocol:   "udp",
		Port:       port,
		Type:       "host",
		Component:  1,
	}
}

// peerPair is two engines joined by queued wires and already connected.
type peerPair struct {
	alice, bob       *Engine
	aliceT, bobT     *fakeTransport
	aliceRec, bobRec *recorder
	toBob, toAlice   *wire
}

func newPeerPair(t *testing.T, bobOpts ...Option) *peerPair {
	t.Helper()
	ctx := context.Background()

	p := &peerPair{
		aliceT:   newFakeTransport("alice"),
		bobT:     newFakeTransport("bob"),
		aliceRec: &recorder{},
		bobRec:   &recorder{},
		toBob:    &wire{},
		toAlice:  &wire{},
	}
	p.aliceT.deliver = p.toBob.push
	p.bobT.deliver = p.toAlice.push

	p.alice = New(p.aliceT, nil, WithAnswerTimeout(0), WithCallbacks(p.aliceRec.callbacks()))
	p.bob = New(p.bobT, nil, append([]Option{
		WithAnswerTimeout(0),
		WithCallbacks(p.bobRec.callbacks()),
	}, bobOpts...)...)

	offer, err := p.alice.CreateInitialOffer(ctx)
	require.NoError(t, err)
	answer, err := p.bob.AcceptOfferTicket(ctx, offer)
	require.NoError(t, err)
	require.NoError(t, p.alice.AcceptAnswerTicket(answer))

	p.aliceT.connect()
	p.bobT.connect()
	require.Equal(t, StateConnected, p.alice.Phase())
	require.Equal(t, StateConnected, p.bob.Phase())
	return p
}

// deliverToBob hands the next queued payload to bob's engine.
func (p *peerPair) deliverToBob() bool {
	data, ok := p.toBob.pop()
	if ok {
		p.bob.onChannelMessage(data)
	}
	return ok
}

func (p *peerPair) deliverToAlice() bool {
	data, ok := p.toAlice.pop()
	if ok {
		p.alice.onChannelMessage(data)
	}
	return ok
}

func (p *peerPair) drain() {
	for p.deliverToBob() || p.deliverToAlice() {
	}
}
