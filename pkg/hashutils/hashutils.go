/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

// Package hashutils derives short human-readable codes from ticket contents.
package hashutils

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/abrekhov/edunet/pkg/signal"
	"github.com/sirupsen/logrus"
)

// Digest returns the SHA-256 of s.
func Digest(s string) []byte {
	h := sha256.New()
	wrtn, err := h.Write([]byte(s))
	logrus.Tracef("digested: %d bytes", wrtn)
	if err != nil {
		// hash.Hash never returns an error
		logrus.Fatalln(err)
	}
	return h.Sum(nil)
}

// ShortCode formats the first four bytes of the digest as "abcd-ef01".
// Both peers can read it aloud to confirm they hold the same ticket.
func ShortCode(s string) string {
	sum := hex.EncodeToString(Digest(s)[:4])
	return sum[:4] + "-" + sum[4:]
}

// TicketCode is the ShortCode of a ticket's description. The candidates are
// left out so the code matches regardless of the text format used.
func TicketCode(t signal.Ticket) string {
	return ShortCode(string(t.Description.Kind) + "\n" + t.Description.SDP)
}

// SameCode compares two codes ignoring case and surrounding space.
func SameCode(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
