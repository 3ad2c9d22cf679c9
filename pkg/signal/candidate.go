/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"fmt"
	"strings"

	"github.com/pion/ice/v2"
	"github.com/pion/webrtc/v3"
)

// Candidate is one gathered network path. Peers treat it as opaque and only
// hand it back to their transport.
type Candidate struct {
	Foundation     string `json:"foundation"`
	Priority       uint32 `json:"priority"`
	Address        string `json:"address"`
	Protocol       string `json:"protocol"`
	Port           uint16 `json:"port"`
	Type           string `json:"type"`
	Component      uint16 `json:"component"`
	RelatedAddress string `json:"relatedAddress,omitempty"`
	RelatedPort    uint16 `json:"relatedPort,omitempty"`
	TCPType        string `json:"tcpType,omitempty"`
}

// CandidateFromICE copies a pion candidate.
func CandidateFromICE(c webrtc.ICECandidate) Candidate {
	return Candidate{
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		Address:        c.Address,
		Protocol:       c.Protocol.String(),
		Port:           c.Port,
		Type:           c.Typ.String(),
		Component:      c.Component,
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    c.RelatedPort,
		TCPType:        c.TCPType,
	}
}

// ICE converts the candidate back to its pion form.
func (c Candidate) ICE() (webrtc.ICECandidate, error) {
	typ, err := webrtc.NewICECandidateType(c.Type)
	if err != nil {
		return webrtc.ICECandidate{}, err
	}
	proto, err := webrtc.NewICEProtocol(c.Protocol)
	if err != nil {
		return webrtc.ICECandidate{}, err
	}
	return webrtc.ICECandidate{
		Foundation:     c.Foundation,
		Priority:       c.Priority,
		Address:        c.Address,
		Protocol:       proto,
		Port:           c.Port,
		Typ:            typ,
		Component:      c.Component,
		RelatedAddress: c.RelatedAddress,
		RelatedPort:    c.RelatedPort,
		TCPType:        c.TCPType,
	}, nil
}

// Init renders the candidate as the init dictionary AddICECandidate takes.
func (c Candidate) Init() (webrtc.ICECandidateInit, error) {
	ic, err := c.ICE()
	if err != nil {
		return webrtc.ICECandidateInit{}, err
	}
	return ic.ToJSON(), nil
}

// Validate renders the candidate line and parses it again with the ICE
// agent's own parser.
func (c Candidate) Validate() error {
	init, err := c.Init()
	if err != nil {
		return fmt.Errorf("candidate %s:%d: %w", c.Address, c.Port, err)
	}
	line := strings.TrimPrefix(init.Candidate, "candidate:")
	if _, err := ice.UnmarshalCandidate(line); err != nil {
		return fmt.Errorf("candidate %s:%d: %w", c.Address, c.Port, err)
	}
	return nil
}
