/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"encoding/json"
	"errors"
	"fmt"
)

// MessageType tags a ControlMessage.
type MessageType string

const (
	TypeChat      MessageType = "chat"
	TypeFile      MessageType = "file"
	TypeOffer     MessageType = "offer"
	TypeAnswer    MessageType = "answer"
	TypeCandidate MessageType = "ice-candidate"
	TypeBye       MessageType = "bye"
)

// ControlMessage is one data channel send once the session is up. Which
// fields are set depends on Type.
type ControlMessage struct {
	Type MessageType `json:"type"`

	// chat
	Message string `json:"message,omitempty"`

	// file; the engine never looks inside
	Name string `json:"name,omitempty"`
	Size int64  `json:"size,omitempty"`
	Data string `json:"data,omitempty"`

	// offer, answer
	SDP *SessionDescription `json:"sdp,omitempty"`

	// ice-candidate
	Candidate *Candidate `json:"candidate,omitempty"`
}

func ChatMessage(text string) ControlMessage {
	return ControlMessage{Type: TypeChat, Message: text}
}

func FileMessage(name string, size int64, data string) ControlMessage {
	return ControlMessage{Type: TypeFile, Name: name, Size: size, Data: data}
}

func OfferMessage(d SessionDescription) ControlMessage {
	return ControlMessage{Type: TypeOffer, SDP: &d}
}

func AnswerMessage(d SessionDescription) ControlMessage {
	return ControlMessage{Type: TypeAnswer, SDP: &d}
}

func CandidateMessage(c Candidate) ControlMessage {
	return ControlMessage{Type: TypeCandidate, Candidate: &c}
}

func ByeMessage() ControlMessage {
	return ControlMessage{Type: TypeBye}
}

// Negotiation reports whether the message belongs to the engine rather than
// to the application.
func (m ControlMessage) Negotiation() bool {
	switch m.Type {
	case TypeOffer, TypeAnswer, TypeCandidate, TypeBye:
		return true
	}
	return false
}

// Validate checks the payload matches the tag.
func (m ControlMessage) Validate() error {
	switch m.Type {
	case TypeChat, TypeBye:
		return nil
	case TypeFile:
		if m.Name == "" {
			return errors.New("file message without a name")
		}
		if m.Size < 0 {
			return errors.New("file message with negative size")
		}
		return nil
	case TypeOffer, TypeAnswer:
		if m.SDP == nil {
			return fmt.Errorf("%s message without a description", m.Type)
		}
		if string(m.SDP.Kind) != string(m.Type) {
			return fmt.Errorf("%w: %s message carries %s", ErrWrongKind, m.Type, m.SDP.Kind)
		}
		return m.SDP.Validate()
	case TypeCandidate:
		if m.Candidate == nil {
			return errors.New("ice-candidate message without a candidate")
		}
		return m.Candidate.Validate()
	case "":
		return errors.New("message without a type")
	default:
		return fmt.Errorf("unknown message type %q", m.Type)
	}
}

// MarshalControl serializes a message for one data channel send.
func MarshalControl(m ControlMessage) ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

// UnmarshalControl parses and validates one data channel payload. Failures
// are DecodeErrors.
func UnmarshalControl(data []byte) (ControlMessage, error) {
	var m ControlMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return ControlMessage{}, decodeErr("control message", err)
	}
	if err := m.Validate(); err != nil {
		return ControlMessage{}, decodeErr("control message", err)
	}
	return m, nil
}

// IsControlPayload reports whether data is a JSON object carrying a message
// type. Anything else on the channel is plain chat text.
func IsControlPayload(data []byte) bool {
	var probe struct {
		Type MessageType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return false
	}
	return probe.Type != ""
}
