/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package signal

const testOfferSDP = "v=0\r\n" +
	"o=- 4215775240449105457 2 IN IP4 127.0.0.1\r\n" +
	"s=-\r\n" +
	"t=0 0\r\n" +
	"a=group:BUNDLE 0\r\n" +
	"m=application 9 UDP/DTLS/SCTP webrtc-datachannel\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=ice-ufrag:GOXteffFpNfkHMrj\r\n" +
	"a=ice-pwd:lceNxPWPURZrbEPXWczKSrsRwIppKSZQ\r\n" +
	"a=fingerprint:sha-256 2F:A0:55:DE:C2:70:55:AA:EF:6C:AF:64:8E:68:90:03:0A:E2:CF:39:8D:A6:5D:AB:C9:FE:0D:B8:D6:AA:82:DB\r\n" +
	"a=setup:actpass\r\n" +
	"a=mid:0\r\n" +
	"a=sctp-port:5000\r\n"

const testVideoSDP = testOfferSDP +
	"m=video 9 UDP/TLS/RTP/SAVPF 96\r\n" +
	"c=IN IP4 0.0.0.0\r\n" +
	"a=mid:1\r\n" +
	"a=rtpmap:96 VP8/90000\r\n"

func testCandidates() []Candidate {
	return []Candidate{
		{
			Foundation: "3537766002",
			Priority:   2130706431,
			Address:    "192.168.1.100",
			Protocol:   "udp",
			Port:       31545,
			Type:       "host",
			Component:  1,
		},
		{
			Foundation:     "842163049",
			Priority:       1694498815,
			Address:        "203.0.113.42",
			Protocol:       "udp",
			Port:           54321,
			Type:           "srflx",
			Component:      1,
			RelatedAddress: "192.168.1.100",
			RelatedPort:    31545,
		},
		{
			Foundation:     "1677722412",
			Priority:       33562367,
			Address:        "198.51.100.5",
			Protocol:       "udp",
			Port:           3478,
			Type:           "relay",
			Component:      1,
			RelatedAddress: "192.168.1.100",
			RelatedPort:    31545,
		},
	}
}

func testOfferTicket() Ticket {
	return NewTicket(NewOffer(testOfferSDP), testCandidates())
}
