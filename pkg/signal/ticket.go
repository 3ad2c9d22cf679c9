/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Ticket bundles a description with its complete candidate set. It is only
// built after gathering finished, so the receiver never waits for trickled
// candidates.
type Ticket struct {
	Description SessionDescription
	Candidates  []Candidate
}

// NewTicket copies cands so the ticket owns its candidate list.
func NewTicket(d SessionDescription, cands []Candidate) Ticket {
	owned := make([]Candidate, len(cands))
	copy(owned, cands)
	return Ticket{Description: d, Candidates: owned}
}

// Kind is the kind of the bundled description.
func (t Ticket) Kind() Kind { return t.Description.Kind }

// Validate checks the description and every candidate.
func (t Ticket) Validate() error {
	if err := t.Description.Validate(); err != nil {
		return err
	}
	for i, c := range t.Candidates {
		if err := c.Validate(); err != nil {
			return fmt.Errorf("candidate %d: %w", i, err)
		}
	}
	return nil
}

// Expect validates the ticket and checks it carries the wanted kind.
// Failures are DecodeErrors.
func (t Ticket) Expect(kind Kind) error {
	if err := t.Validate(); err != nil {
		return decodeErr(string(kind)+" ticket", err)
	}
	if t.Kind() != kind {
		return decodeErr(string(kind)+" ticket", fmt.Errorf("%w: got %s", ErrWrongKind, t.Kind()))
	}
	return nil
}

// ticketWire is the JSON shape: {"offer": {...}, "candidates": [...]} or
// {"answer": {...}, "candidates": [...]}.
type ticketWire struct {
	Offer      *SessionDescription `json:"offer,omitempty"`
	Answer     *SessionDescription `json:"answer,omitempty"`
	Candidates []Candidate         `json:"candidates"`
}

// MarshalJSON implements json.Marshaler.
func (t Ticket) MarshalJSON() ([]byte, error) {
	w := ticketWire{Candidates: t.Candidates}
	if w.Candidates == nil {
		w.Candidates = []Candidate{}
	}
	d := t.Description
	switch d.Kind {
	case KindOffer:
		w.Offer = &d
	case KindAnswer:
		w.Answer = &d
	default:
		return nil, fmt.Errorf("ticket with unknown description type %q", d.Kind)
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Ticket) UnmarshalJSON(b []byte) error {
	var w ticketWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	var (
		d    *SessionDescription
		kind Kind
	)
	switch {
	case w.Offer != nil && w.Answer != nil:
		return errors.New("ticket carries both an offer and an answer")
	case w.Offer != nil:
		d, kind = w.Offer, KindOffer
	case w.Answer != nil:
		d, kind = w.Answer, KindAnswer
	default:
		return errors.New("ticket carries neither an offer nor an answer")
	}
	if d.Kind == "" {
		d.Kind = kind
	}
	if d.Kind != kind {
		return fmt.Errorf("%w: %s stored under %q", ErrWrongKind, d.Kind, kind)
	}
	t.Description = *d
	t.Candidates = w.Candidates
	if t.Candidates == nil {
		t.Candidates = []Candidate{}
	}
	return nil
}

// EncodeTicket returns the ticket as base64 JSON.
func EncodeTicket(t Ticket) (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	log.Debugf("ticket json: %s", b)
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeTicket parses a pasted ticket. Raw JSON, base64 JSON and the compact
// form are accepted. The result is validated; every failure is a DecodeError.
func DecodeTicket(in string) (Ticket, error) {
	in = strings.TrimSpace(in)
	if in == "" {
		return Ticket{}, decodeErr("ticket", errors.New("empty input"))
	}

	var (
		t   Ticket
		err error
	)
	switch {
	case strings.HasPrefix(in, "{"):
		err = json.Unmarshal([]byte(in), &t)
	case IsCompactFormat(in):
		t, err = DecodeTicketCompact(in)
	default:
		var b []byte
		b, err = base64.StdEncoding.DecodeString(in)
		if err == nil {
			log.Debugf("ticket json: %s", b)
			err = json.Unmarshal(b, &t)
		}
	}
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return Ticket{}, err
		}
		return Ticket{}, decodeErr("ticket", err)
	}
	if err := t.Validate(); err != nil {
		return Ticket{}, decodeErr("ticket", err)
	}
	return t, nil
}
