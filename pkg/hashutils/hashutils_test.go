/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */
package hashutils

import (
	"encoding/hex"
	"testing"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDigest(t *testing.T) {
	t.Run("returns 32 bytes", func(t *testing.T) {
		assert.Len(t, Digest("ticket"), 32)
	})

	t.Run("known test vectors", func(t *testing.T) {
		testCases := []struct {
			input    string
			expected string
		}{
			{
				input:    "test",
				expected: "9f86d081884c7d659a2feaa0c55ad015a3bf4f1b2b0b822cd15d6c15b0f00a08",
			},
			{
				input:    "",
				expected: "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855",
			},
		}

		for _, tc := range testCases {
			t.Run(tc.input, func(t *testing.T) {
				assert.Equal(t, tc.expected, hex.EncodeToString(Digest(tc.input)))
			})
		}
	})
}

func TestShortCode(t *testing.T) {
	assert.Equal(t, "9f86-d081", ShortCode("test"))
	assert.Equal(t, "e3b0-c442", ShortCode(""))
	assert.NotEqual(t, ShortCode("a"), ShortCode("b"))
}

func TestTicketCode(t *testing.T) {
	offer := signal.NewTicket(signal.NewOffer("v=0\r\n"), nil)
	withCands := signal.NewTicket(signal.NewOffer("v=0\r\n"), []signal.Candidate{{Foundation: "1"}})
	answer := signal.NewTicket(signal.NewAnswer("v=0\r\n"), nil)

	code := TicketCode(offer)
	require.Len(t, code, 9)
	assert.Equal(t, code, TicketCode(withCands), "candidates do not change the code")
	assert.NotEqual(t, code, TicketCode(answer))
}

func TestSameCode(t *testing.T) {
	assert.True(t, SameCode("9F86-D081 ", "9f86-d081"))
	assert.False(t, SameCode("9f86-d081", "9f86-d082"))
}

func BenchmarkShortCode(b *testing.B) {
	sdp := string(make([]byte, 4096))
	for i := 0; i < b.N; i++ {
		ShortCode(sdp)
	}
}
