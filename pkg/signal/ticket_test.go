/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/pion/webrtc/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketJSON(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		original := testOfferTicket()
		raw, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Ticket
		require.NoError(t, json.Unmarshal(raw, &decoded))
		assert.Equal(t, original, decoded)
	})

	t.Run("wire shape", func(t *testing.T) {
		raw, err := json.Marshal(NewTicket(NewAnswer(testOfferSDP), nil))
		require.NoError(t, err)

		var shape map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(raw, &shape))
		assert.Contains(t, shape, "answer")
		assert.NotContains(t, shape, "offer")
		assert.JSONEq(t, `[]`, string(shape["candidates"]))
	})

	t.Run("missing type is filled from the key", func(t *testing.T) {
		var decoded Ticket
		raw := `{"offer":{"sdp":"x"},"candidates":null}`
		require.NoError(t, json.Unmarshal([]byte(raw), &decoded))
		assert.Equal(t, KindOffer, decoded.Kind())
		assert.NotNil(t, decoded.Candidates)
	})

	testCases := []struct {
		name string
		raw  string
	}{
		{"both descriptions", `{"offer":{"type":"offer","sdp":"x"},"answer":{"type":"answer","sdp":"y"},"candidates":[]}`},
		{"no description", `{"candidates":[]}`},
		{"kind under wrong key", `{"offer":{"type":"answer","sdp":"x"},"candidates":[]}`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var decoded Ticket
			assert.Error(t, json.Unmarshal([]byte(tc.raw), &decoded))
		})
	}
}

func TestNewTicketOwnsCandidates(t *testing.T) {
	cands := testCandidates()
	ticket := NewTicket(NewOffer(testOfferSDP), cands)
	cands[0].Address = "10.0.0.1"
	assert.Equal(t, "192.168.1.100", ticket.Candidates[0].Address)

	empty := NewTicket(NewOffer(testOfferSDP), nil)
	assert.NotNil(t, empty.Candidates)
	assert.Empty(t, empty.Candidates)
}

func TestEncodeDecodeTicket(t *testing.T) {
	original := testOfferTicket()

	encoded, err := EncodeTicket(original)
	require.NoError(t, err)

	decoded, err := DecodeTicket("  " + encoded + "\n")
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	raw, err := json.Marshal(original)
	require.NoError(t, err)
	decoded, err = DecodeTicket(string(raw))
	require.NoError(t, err)
	assert.Equal(t, original, decoded)

	compact, err := EncodeTicketCompact(original)
	require.NoError(t, err)
	decoded, err = DecodeTicket(compact)
	require.NoError(t, err)
	assert.Equal(t, original, decoded)
}

func TestDecodeTicketErrors(t *testing.T) {
	b64 := func(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

	testCases := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"whitespace", " \t\n"},
		{"not base64", "hello there"},
		{"base64 of garbage", b64("not json")},
		{"broken json", `{"offer":`},
		{"empty sdp", `{"offer":{"type":"offer","sdp":""},"candidates":[]}`},
		{"unparseable sdp", b64(`{"offer":{"type":"offer","sdp":"hello"},"candidates":[]}`)},
		{"bad candidate", `{"offer":{"type":"offer","sdp":"` + jsonEscape(testOfferSDP) +
			`"},"candidates":[{"foundation":"1","priority":1,"address":"1.2.3.4","protocol":"sctp","port":1,"type":"host","component":1}]}`},
		{"truncated compact", "RQEA"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := DecodeTicket(tc.input)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrDecode)
			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.NotEmpty(t, de.What)
		})
	}
}

func TestTicketExpect(t *testing.T) {
	offer := testOfferTicket()
	require.NoError(t, offer.Expect(KindOffer))

	err := offer.Expect(KindAnswer)
	assert.ErrorIs(t, err, ErrDecode)
	assert.ErrorIs(t, err, ErrWrongKind)

	broken := NewTicket(NewAnswer(""), nil)
	assert.ErrorIs(t, broken.Expect(KindAnswer), ErrDecode)
}

func TestSessionDescription(t *testing.T) {
	t.Run("pion round trip", func(t *testing.T) {
		d, err := FromWebRTC(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: testOfferSDP})
		require.NoError(t, err)
		assert.Equal(t, NewAnswer(testOfferSDP), d)
		assert.Equal(t, webrtc.SDPTypeAnswer, d.WebRTC().Type)
	})

	t.Run("rollback is not a ticket kind", func(t *testing.T) {
		_, err := FromWebRTC(webrtc.SessionDescription{Type: webrtc.SDPTypeRollback})
		assert.Error(t, err)
		_, err = FromWebRTC(webrtc.SessionDescription{Type: webrtc.SDPTypePranswer, SDP: testOfferSDP})
		assert.Error(t, err)
	})

	t.Run("media kinds", func(t *testing.T) {
		kinds, err := NewOffer(testVideoSDP).MediaKinds()
		require.NoError(t, err)
		assert.Equal(t, []string{"application", "video"}, kinds)
	})

	t.Run("validate", func(t *testing.T) {
		assert.NoError(t, NewOffer(testOfferSDP).Validate())
		assert.Error(t, SessionDescription{Kind: "rollback", SDP: testOfferSDP}.Validate())
		assert.Error(t, NewOffer("").Validate())
		assert.Error(t, NewOffer("v=0\r\nbanana").Validate())
	})

	t.Run("validate requires what a peer needs", func(t *testing.T) {
		noMedia := testOfferSDP[:strings.Index(testOfferSDP, "m=")]
		testCases := map[string]string{
			"bare text":      "x",
			"no media":       noMedia,
			"no ice-ufrag":   strings.Replace(testOfferSDP, "a=ice-ufrag:GOXteffFpNfkHMrj\r\n", "", 1),
			"no ice-pwd":     strings.Replace(testOfferSDP, "a=ice-pwd:lceNxPWPURZrbEPXWczKSrsRwIppKSZQ\r\n", "", 1),
			"no fingerprint": testOfferSDP[:strings.Index(testOfferSDP, "a=fingerprint")] + "a=setup:actpass\r\na=mid:0\r\n",
		}
		for name, body := range testCases {
			assert.Error(t, NewOffer(body).Validate(), name)
		}
	})
}

func TestCandidate(t *testing.T) {
	for _, c := range testCandidates() {
		t.Run(c.Type, func(t *testing.T) {
			require.NoError(t, c.Validate())

			ic, err := c.ICE()
			require.NoError(t, err)
			assert.Equal(t, c, CandidateFromICE(ic))

			init, err := c.Init()
			require.NoError(t, err)
			assert.Contains(t, init.Candidate, c.Address)
		})
	}

	bad := testCandidates()[0]
	bad.Type = "nope"
	assert.Error(t, bad.Validate())
}

func jsonEscape(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
