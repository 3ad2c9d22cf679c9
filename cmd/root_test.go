/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/abrekhov/edunet/pkg/config"
	"github.com/abrekhov/edunet/pkg/signal"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSDP = "v=0\r\n" +
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

func TestParseCommand(t *testing.T) {
	testCases := []struct {
		line string
		want command
	}{
		{"hello class", command{arg: "hello class"}},
		{"  padded  ", command{arg: "padded"}},
		{"", command{}},
		{"/files", command{name: "files"}},
		{"/SAVE 2", command{name: "save", arg: "2"}},
		{"/file  ~/notes/week 1.pdf ", command{name: "file", arg: "~/notes/week 1.pdf"}},
		{"/", command{}},
	}
	for _, tc := range testCases {
		t.Run(tc.line, func(t *testing.T) {
			assert.Equal(t, tc.want, parseCommand(tc.line))
		})
	}
}

func TestCodeMatches(t *testing.T) {
	testCases := []struct {
		name    string
		typed   string
		ok      bool
		checked bool
	}{
		{"skipped", "  ", false, false},
		{"same", "9f86-d081", true, true},
		{"case and space", " 9F86-D081\n", true, true},
		{"different", "9f86-d082", false, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ok, checked := codeMatches("9f86-d081", tc.typed)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.checked, checked)
		})
	}
}

func TestEncodeTicket(t *testing.T) {
	ticket := signal.NewTicket(signal.NewOffer(testSDP), nil)

	for _, format := range []string{config.FormatJSON, config.FormatCompact} {
		t.Run(format, func(t *testing.T) {
			text, err := encodeTicket(ticket, format)
			require.NoError(t, err)
			assert.Equal(t, format == config.FormatCompact, signal.IsCompactFormat(text))

			got, err := signal.DecodeTicket(text)
			require.NoError(t, err)
			assert.Equal(t, signal.KindOffer, got.Kind())
		})
	}
}

func TestSetupLogging(t *testing.T) {
	logger := log.New()
	logger.SetOutput(new(strings.Builder))
	path := filepath.Join(t.TempDir(), "edunet.log")

	require.NoError(t, setupLogging(logger, true, path))
	assert.Equal(t, log.DebugLevel, logger.GetLevel())

	logger.WithField("prefix", "host").Debugln("gathering done")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "gathering done")
}

func TestSetupLoggingWithoutFile(t *testing.T) {
	logger := log.New()
	require.NoError(t, setupLogging(logger, false, ""))
	assert.Equal(t, log.InfoLevel, logger.GetLevel())
	assert.Empty(t, logger.Hooks)
}
