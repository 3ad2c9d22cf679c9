/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package signal holds the values two edunet peers exchange while
// negotiating a session: session descriptions, candidates, the manual
// copy/paste ticket and the in-band control messages.
package signal

import (
	"fmt"

	"github.com/pion/sdp/v3"
	"github.com/pion/webrtc/v3"
)

// Kind tells an offer from an answer.
type Kind string

const (
	KindOffer  Kind = "offer"
	KindAnswer Kind = "answer"
)

func (k Kind) valid() bool {
	return k == KindOffer || k == KindAnswer
}

// SessionDescription is an offer or answer body. It is a value type and is
// never mutated after creation.
type SessionDescription struct {
	Kind Kind   `json:"type"`
	SDP  string `json:"sdp"`
}

// NewOffer wraps an SDP body as an offer.
func NewOffer(body string) SessionDescription {
	return SessionDescription{Kind: KindOffer, SDP: body}
}

// NewAnswer wraps an SDP body as an answer.
func NewAnswer(body string) SessionDescription {
	return SessionDescription{Kind: KindAnswer, SDP: body}
}

// FromWebRTC converts a pion description. Pranswer and rollback have no
// place on the wire and are rejected.
func FromWebRTC(d webrtc.SessionDescription) (SessionDescription, error) {
	switch d.Type {
	case webrtc.SDPTypeOffer:
		return NewOffer(d.SDP), nil
	case webrtc.SDPTypeAnswer:
		return NewAnswer(d.SDP), nil
	default:
		return SessionDescription{}, fmt.Errorf("unsupported description type %q", d.Type.String())
	}
}

// WebRTC converts the description back to its pion form.
func (d SessionDescription) WebRTC() webrtc.SessionDescription {
	typ := webrtc.SDPTypeOffer
	if d.Kind == KindAnswer {
		typ = webrtc.SDPTypeAnswer
	}
	return webrtc.SessionDescription{Type: typ, SDP: d.SDP}
}

// Validate checks the kind, that the body parses as SDP and that it
// carries what a WebRTC peer needs to apply it: an origin, at least one
// media section, ICE credentials and a DTLS fingerprint.
func (d SessionDescription) Validate() error {
	if !d.Kind.valid() {
		return fmt.Errorf("unknown description type %q", d.Kind)
	}
	if d.SDP == "" {
		return fmt.Errorf("empty %s body", d.Kind)
	}
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(d.SDP)); err != nil {
		return fmt.Errorf("malformed %s body: %w", d.Kind, err)
	}
	if parsed.Origin.UnicastAddress == "" {
		return fmt.Errorf("malformed %s body: no origin", d.Kind)
	}
	if len(parsed.MediaDescriptions) == 0 {
		return fmt.Errorf("malformed %s body: no media sections", d.Kind)
	}
	for _, key := range []string{"ice-ufrag", "ice-pwd", "fingerprint"} {
		if !hasAttribute(&parsed, key) {
			return fmt.Errorf("malformed %s body: no %s", d.Kind, key)
		}
	}
	return nil
}

// hasAttribute looks for key at session level or in any media section,
// the way pion resolves ICE and DTLS parameters.
func hasAttribute(s *sdp.SessionDescription, key string) bool {
	if v, ok := s.Attribute(key); ok && v != "" {
		return true
	}
	for _, m := range s.MediaDescriptions {
		if v, ok := m.Attribute(key); ok && v != "" {
			return true
		}
	}
	return false
}

// MediaKinds lists the media section kinds ("audio", "video",
// "application") in the order they appear in the body.
func (d SessionDescription) MediaKinds() ([]string, error) {
	var parsed sdp.SessionDescription
	if err := parsed.Unmarshal([]byte(d.SDP)); err != nil {
		return nil, err
	}
	kinds := make([]string, 0, len(parsed.MediaDescriptions))
	for _, m := range parsed.MediaDescriptions {
		kinds = append(kinds, m.MediaName.Media)
	}
	return kinds, nil
}
