/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

import (
	"bytes"
	"compress/flate"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
)

// Compact ticket constants
const (
	compactMagic   byte = 'E'
	compactVersion byte = 1

	kindOfferByte  byte = 0
	kindAnswerByte byte = 1

	// Candidate type encoding (high nibble of type+proto byte)
	candTypeHost  byte = 0
	candTypeSrflx byte = 1
	candTypePrflx byte = 2
	candTypeRelay byte = 3

	protoUDP byte = 1
	protoTCP byte = 2

	maxCandidates = 0xFFFF
)

var candidateTypes = map[string]byte{
	"host":  candTypeHost,
	"srflx": candTypeSrflx,
	"prflx": candTypePrflx,
	"relay": candTypeRelay,
}

var candidateTypeNames = map[byte]string{
	candTypeHost:  "host",
	candTypeSrflx: "srflx",
	candTypePrflx: "prflx",
	candTypeRelay: "relay",
}

// EncodeTicketCompact produces the short binary form of a ticket.
// Format: E<ver><kind:1><sdp_len:4><deflated sdp><num_cand:2><candidates...>
func EncodeTicketCompact(t Ticket) (string, error) {
	var buf bytes.Buffer

	buf.WriteByte(compactMagic)
	buf.WriteByte(compactVersion)

	switch t.Kind() {
	case KindOffer:
		buf.WriteByte(kindOfferByte)
	case KindAnswer:
		buf.WriteByte(kindAnswerByte)
	default:
		return "", fmt.Errorf("ticket with unknown description type %q", t.Kind())
	}

	var body bytes.Buffer
	fw, err := flate.NewWriter(&body, flate.BestCompression)
	if err != nil {
		return "", err
	}
	if _, err := io.WriteString(fw, t.Description.SDP); err != nil {
		return "", err
	}
	if err := fw.Close(); err != nil {
		return "", err
	}
	_ = binary.Write(&buf, binary.BigEndian, uint32(body.Len()))
	buf.Write(body.Bytes())

	if len(t.Candidates) > maxCandidates {
		return "", fmt.Errorf("%w: %d candidates", ErrFieldTooLong, len(t.Candidates))
	}
	_ = binary.Write(&buf, binary.BigEndian, uint16(len(t.Candidates)))
	for _, c := range t.Candidates {
		if err := encodeCandidate(&buf, c); err != nil {
			return "", err
		}
	}

	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

func writeShortString(buf *bytes.Buffer, s string) error {
	if len(s) > 255 {
		return fmt.Errorf("%w: %q", ErrFieldTooLong, s[:16])
	}
	buf.WriteByte(byte(len(s)))
	buf.WriteString(s)
	return nil
}

// encodeCandidate writes a single candidate to the buffer
func encodeCandidate(buf *bytes.Buffer, c Candidate) error {
	if err := writeShortString(buf, c.Foundation); err != nil {
		return err
	}
	_ = binary.Write(buf, binary.BigEndian, c.Priority)
	if err := writeShortString(buf, c.Address); err != nil {
		return err
	}
	_ = binary.Write(buf, binary.BigEndian, c.Port)
	_ = binary.Write(buf, binary.BigEndian, c.Component)

	candType, ok := candidateTypes[c.Type]
	if !ok {
		return fmt.Errorf("unknown candidate type %q", c.Type)
	}
	var proto byte
	switch strings.ToLower(c.Protocol) {
	case "udp":
		proto = protoUDP
	case "tcp":
		proto = protoTCP
	default:
		return fmt.Errorf("unknown candidate protocol %q", c.Protocol)
	}
	// type in high nibble, proto in low
	buf.WriteByte((candType << 4) | (proto & 0x0F))

	if proto == protoTCP {
		if err := writeShortString(buf, c.TCPType); err != nil {
			return err
		}
	}
	if candType != candTypeHost {
		if err := writeShortString(buf, c.RelatedAddress); err != nil {
			return err
		}
		_ = binary.Write(buf, binary.BigEndian, c.RelatedPort)
	}
	return nil
}

// compactReader walks the decoded bytes, remembering the first short read.
type compactReader struct {
	data []byte
	off  int
	err  error
}

func (r *compactReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.off+n > len(r.data) {
		r.err = ErrTruncated
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *compactReader) readByte() byte {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *compactReader) readUint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *compactReader) readUint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *compactReader) readString() string {
	n := int(r.readByte())
	return string(r.take(n))
}

// DecodeTicketCompact parses the compact form. It does not validate the
// ticket contents; DecodeTicket does.
func DecodeTicketCompact(encoded string) (Ticket, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return Ticket{}, decodeErr("compact ticket", err)
	}
	if len(data) < 2 {
		return Ticket{}, decodeErr("compact ticket", ErrTruncated)
	}
	if data[0] != compactMagic {
		return Ticket{}, decodeErr("compact ticket", ErrInvalidMagic)
	}
	if data[1] != compactVersion {
		return Ticket{}, decodeErr("compact ticket", ErrUnsupportedVersion)
	}

	r := &compactReader{data: data, off: 2}

	var kind Kind
	switch r.readByte() {
	case kindOfferByte:
		kind = KindOffer
	case kindAnswerByte:
		kind = KindAnswer
	default:
		if r.err == nil {
			return Ticket{}, decodeErr("compact ticket", ErrWrongKind)
		}
	}

	deflated := r.take(int(r.readUint32()))
	if r.err != nil {
		return Ticket{}, decodeErr("compact ticket", r.err)
	}
	body, err := io.ReadAll(flate.NewReader(bytes.NewReader(deflated)))
	if err != nil {
		return Ticket{}, decodeErr("compact ticket", err)
	}

	n := int(r.readUint16())
	cands := make([]Candidate, 0, n)
	for i := 0; i < n && r.err == nil; i++ {
		c, err := decodeCandidate(r)
		if err != nil {
			return Ticket{}, decodeErr("compact ticket", err)
		}
		cands = append(cands, c)
	}
	if r.err != nil {
		return Ticket{}, decodeErr("compact ticket", r.err)
	}
	if r.off != len(data) {
		return Ticket{}, decodeErr("compact ticket", fmt.Errorf("%d trailing bytes", len(data)-r.off))
	}

	return Ticket{
		Description: SessionDescription{Kind: kind, SDP: string(body)},
		Candidates:  cands,
	}, nil
}

// decodeCandidate reads a single candidate
func decodeCandidate(r *compactReader) (Candidate, error) {
	var c Candidate
	c.Foundation = r.readString()
	c.Priority = r.readUint32()
	c.Address = r.readString()
	c.Port = r.readUint16()
	c.Component = r.readUint16()

	packed := r.readByte()
	if r.err != nil {
		return c, r.err
	}
	candType := (packed >> 4) & 0x0F
	proto := packed & 0x0F

	name, ok := candidateTypeNames[candType]
	if !ok {
		return c, fmt.Errorf("unknown candidate type %d", candType)
	}
	c.Type = name
	switch proto {
	case protoUDP:
		c.Protocol = "udp"
	case protoTCP:
		c.Protocol = "tcp"
		c.TCPType = r.readString()
	default:
		return c, fmt.Errorf("unknown candidate protocol %d", proto)
	}

	if candType != candTypeHost {
		c.RelatedAddress = r.readString()
		c.RelatedPort = r.readUint16()
	}
	return c, r.err
}

// IsCompactFormat checks if the encoded string is a compact ticket.
// 'E' followed by version 1 is "RQ" in base64;
// JSON starts with '{' which is "ey" in base64.
func IsCompactFormat(encoded string) bool {
	return strings.HasPrefix(encoded, "RQ")
}
