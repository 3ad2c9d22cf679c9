/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package transport

import (
	"fmt"
	"sync"
	"time"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/pion/webrtc/v3"
	log "github.com/sirupsen/logrus"
)

// DefaultICEServers are used when the configuration names none. There is
// no TURN fallback; connectivity is left to host and srflx candidates.
var DefaultICEServers = []string{
	"stun:stun.l.google.com:19302",
	"stun:stun1.l.google.com:19302",
}

// DrainTimeout bounds how long Close waits for queued messages.
const DrainTimeout = time.Second

// DefaultChannelLabel names the data channel the initiator opens.
const DefaultChannelLabel = "chat"

// PeerConfig configures a Peer.
type PeerConfig struct {
	// ICEServers defaults to DefaultICEServers when nil. An empty non-nil
	// slice gathers host candidates only.
	ICEServers   []string
	ChannelLabel string
	Logger       *log.Entry

	// SettingEngine overrides the default setting engine; used by tests to
	// restrict gathering to loopback.
	SettingEngine *webrtc.SettingEngine
}

// Peer is a Transport backed by a pion PeerConnection and a single ordered
// data channel. The initiator creates the channel with its first offer; the
// responder receives it from the remote side.
type Peer struct {
	Emitter

	pc    *webrtc.PeerConnection
	label string
	log   *log.Entry

	mu sync.RWMutex
	dc *webrtc.DataChannel
}

var _ Transport = (*Peer)(nil)

// NewPeer creates the PeerConnection and wires its handlers to the emitter.
func NewPeer(cfg PeerConfig) (*Peer, error) {
	entry := cfg.Logger
	if entry == nil {
		entry = log.NewEntry(log.StandardLogger())
	}
	servers := cfg.ICEServers
	if servers == nil {
		servers = DefaultICEServers
	}
	label := cfg.ChannelLabel
	if label == "" {
		label = DefaultChannelLabel
	}

	se := webrtc.SettingEngine{}
	if cfg.SettingEngine != nil {
		se = *cfg.SettingEngine
	}
	se.LoggerFactory = NewLoggerFactory(entry)

	m := &webrtc.MediaEngine{}
	if err := m.RegisterDefaultCodecs(); err != nil {
		return nil, err
	}
	api := webrtc.NewAPI(webrtc.WithSettingEngine(se), webrtc.WithMediaEngine(m))

	var conf webrtc.Configuration
	if len(servers) > 0 {
		conf.ICEServers = []webrtc.ICEServer{{URLs: servers}}
	}
	pc, err := api.NewPeerConnection(conf)
	if err != nil {
		return nil, err
	}

	p := &Peer{pc: pc, label: label, log: entry}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			p.log.Debugln("End of candidates")
			return
		}
		p.log.WithField("candidate", c.String()).Debugln("ICE candidate found")
		p.EmitLocalCandidate(signal.CandidateFromICE(*c))
	})
	pc.OnICEGatheringStateChange(func(s webrtc.ICEGathererState) {
		p.log.WithField("state", s.String()).Debugln("ICE gathering state has changed")
		p.EmitGatheringState(gatheringStateFromPion(s))
	})
	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		p.log.WithField("state", s.String()).Debugln("ICE connection state has changed")
	})
	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		p.log.WithField("state", s.String()).Infoln("Connection state has changed")
		p.EmitConnectionState(connectionStateFromPion(s))
	})
	pc.OnNegotiationNeeded(func() {
		p.log.Debugln("Negotiation needed")
		p.EmitNegotiationNeeded()
	})
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		p.log.WithField("label", dc.Label()).Debugln("Remote data channel")
		p.attachChannel(dc)
	})
	pc.OnTrack(func(tr *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		p.log.WithFields(log.Fields{"kind": tr.Kind().String(), "id": tr.ID()}).Infoln("Received remote track")
		p.EmitRemoteTrack(tr.Kind().String(), tr.ID())
	})

	return p, nil
}

func (p *Peer) attachChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dc = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		p.log.WithFields(log.Fields{"label": dc.Label(), "id": dc.ID()}).Infoln("Data channel open")
		p.EmitChannelOpen()
	})
	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		p.EmitChannelMessage(msg.Data)
	})
	dc.OnError(func(err error) {
		p.log.WithError(err).Errorln("Data channel error")
	})
	dc.OnClose(func() {
		p.log.WithField("label", dc.Label()).Debugln("Data channel closed")
		p.EmitChannelClose()
	})
}

func (p *Peer) channel() *webrtc.DataChannel {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.dc
}

// CreateOffer opens the data channel on first use so it is part of the
// initial offer.
func (p *Peer) CreateOffer() (signal.SessionDescription, error) {
	if p.channel() == nil {
		dc, err := p.pc.CreateDataChannel(p.label, nil)
		if err != nil {
			return signal.SessionDescription{}, fmt.Errorf("create data channel: %w", err)
		}
		p.attachChannel(dc)
	}
	offer, err := p.pc.CreateOffer(nil)
	if err != nil {
		return signal.SessionDescription{}, err
	}
	return signal.FromWebRTC(offer)
}

func (p *Peer) CreateAnswer() (signal.SessionDescription, error) {
	answer, err := p.pc.CreateAnswer(nil)
	if err != nil {
		return signal.SessionDescription{}, err
	}
	return signal.FromWebRTC(answer)
}

func (p *Peer) SetLocalDescription(d signal.SessionDescription) error {
	return p.pc.SetLocalDescription(d.WebRTC())
}

func (p *Peer) SetRemoteDescription(d signal.SessionDescription) error {
	return p.pc.SetRemoteDescription(d.WebRTC())
}

// Rollback discards the pending local offer. pion refuses a rollback
// description with an empty body, so the pending one is passed back.
func (p *Peer) Rollback() error {
	d := p.pc.PendingLocalDescription()
	if d == nil {
		return ErrNothingToRollback
	}
	return p.pc.SetLocalDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback, SDP: d.SDP})
}

func (p *Peer) LocalDescription() (signal.SessionDescription, bool) {
	d := p.pc.LocalDescription()
	if d == nil {
		return signal.SessionDescription{}, false
	}
	sd, err := signal.FromWebRTC(*d)
	if err != nil {
		return signal.SessionDescription{}, false
	}
	return sd, true
}

func (p *Peer) AddRemoteCandidate(c signal.Candidate) error {
	init, err := c.Init()
	if err != nil {
		return err
	}
	return p.pc.AddICECandidate(init)
}

func (p *Peer) GatheringState() GatheringState {
	switch p.pc.ICEGatheringState() {
	case webrtc.ICEGatheringStateGathering:
		return GatheringInProgress
	case webrtc.ICEGatheringStateComplete:
		return GatheringComplete
	default:
		return GatheringNew
	}
}

func (p *Peer) ChannelOpen() bool {
	dc := p.channel()
	return dc != nil && dc.ReadyState() == webrtc.DataChannelStateOpen
}

// Send writes one text message; the channel is reliable and ordered.
func (p *Peer) Send(data []byte) error {
	dc := p.channel()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	return dc.SendText(string(data))
}

// AddTrack attaches a local track; once connected this raises
// negotiation-needed.
func (p *Peer) AddTrack(t webrtc.TrackLocal) (*webrtc.RTPSender, error) {
	return p.pc.AddTrack(t)
}

// VideoSenders lists senders currently carrying a video track.
func (p *Peer) VideoSenders() []*webrtc.RTPSender {
	var out []*webrtc.RTPSender
	for _, s := range p.pc.GetSenders() {
		if t := s.Track(); t != nil && t.Kind() == webrtc.RTPCodecTypeVideo {
			out = append(out, s)
		}
	}
	return out
}

// Close waits up to DrainTimeout for queued data channel messages to be
// acknowledged, so a final bye reaches the peer, then closes the
// connection.
func (p *Peer) Close() error {
	p.drain(DrainTimeout)
	return p.pc.Close()
}

func (p *Peer) drain(timeout time.Duration) {
	dc := p.channel()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}
	drained := make(chan struct{})
	var once sync.Once
	dc.SetBufferedAmountLowThreshold(0)
	dc.OnBufferedAmountLow(func() {
		once.Do(func() { close(drained) })
	})
	if dc.BufferedAmount() == 0 {
		return
	}
	select {
	case <-drained:
	case <-time.After(timeout):
		p.log.WithField("buffered", dc.BufferedAmount()).Warnln("Closing with unsent data channel messages")
	}
}

func gatheringStateFromPion(s webrtc.ICEGathererState) GatheringState {
	switch s {
	case webrtc.ICEGathererStateGathering:
		return GatheringInProgress
	case webrtc.ICEGathererStateComplete:
		return GatheringComplete
	default:
		return GatheringNew
	}
}

func connectionStateFromPion(s webrtc.PeerConnectionState) ConnectionState {
	switch s {
	case webrtc.PeerConnectionStateConnecting:
		return ConnectionConnecting
	case webrtc.PeerConnectionStateConnected:
		return ConnectionConnected
	case webrtc.PeerConnectionStateDisconnected:
		return ConnectionDisconnected
	case webrtc.PeerConnectionStateFailed:
		return ConnectionFailed
	case webrtc.PeerConnectionStateClosed:
		return ConnectionClosed
	default:
		return ConnectionNew
	}
}
