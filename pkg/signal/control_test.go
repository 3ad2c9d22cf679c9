/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlMessages(t *testing.T) {
	cand := testCandidates()[1]
	testCases := []struct {
		name        string
		msg         ControlMessage
		negotiation bool
	}{
		{"chat", ChatMessage("hello"), false},
		{"empty chat", ChatMessage(""), false},
		{"file", FileMessage("notes.txt", 5, "data:text/plain;base64,aGVsbG8="), false},
		{"offer", OfferMessage(NewOffer(testOfferSDP)), true},
		{"answer", AnswerMessage(NewAnswer(testOfferSDP)), true},
		{"candidate", CandidateMessage(cand), true},
		{"bye", ByeMessage(), true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.negotiation, tc.msg.Negotiation())

			data, err := MarshalControl(tc.msg)
			require.NoError(t, err)
			assert.True(t, IsControlPayload(data))

			decoded, err := UnmarshalControl(data)
			require.NoError(t, err)
			assert.Equal(t, tc.msg, decoded)
		})
	}
}

func TestControlWireFormat(t *testing.T) {
	data, err := MarshalControl(ChatMessage("hi"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat","message":"hi"}`, string(data))

	data, err = MarshalControl(ByeMessage())
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"bye"}`, string(data))
}

func TestInvalidControlMessages(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"not json", `hello`},
		{"no type", `{"message":"hi"}`},
		{"unknown type", `{"type":"dance"}`},
		{"offer without sdp", `{"type":"offer"}`},
		{"offer carrying answer", `{"type":"offer","sdp":{"type":"answer","sdp":"x"}}`},
		{"broken sdp", `{"type":"answer","sdp":{"type":"answer","sdp":"x"}}`},
		{"candidate without body", `{"type":"ice-candidate"}`},
		{"file without name", `{"type":"file","size":3}`},
		{"negative file size", `{"type":"file","name":"a","size":-1}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := UnmarshalControl([]byte(tc.raw))
			assert.ErrorIs(t, err, ErrDecode)
		})
	}

	_, err := MarshalControl(ControlMessage{Type: TypeOffer})
	assert.Error(t, err)
}

func TestIsControlPayload(t *testing.T) {
	assert.True(t, IsControlPayload([]byte(`{"type":"chat","message":"x"}`)))
	assert.True(t, IsControlPayload([]byte(`{"type":"dance"}`)))
	assert.False(t, IsControlPayload([]byte(`plain text`)))
	assert.False(t, IsControlPayload([]byte(`{"message":"x"}`)))
	assert.False(t, IsControlPayload([]byte(`["type"]`)))
	assert.False(t, IsControlPayload([]byte(`42`)))
}
