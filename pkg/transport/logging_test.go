/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package transport

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerFactory(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.TraceLevel)

	l := NewLoggerFactory(log.NewEntry(logger)).NewLogger("ice")
	l.Info("gathering")
	l.Warnf("retry %d", 2)
	l.Debug("noise")

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, log.DebugLevel, entries[0].Level, "pion info is demoted")
	assert.Equal(t, "ice", entries[0].Data["pion"])
	assert.Equal(t, log.WarnLevel, entries[1].Level)
	assert.Equal(t, "retry 2", entries[1].Message)
	assert.Equal(t, log.TraceLevel, entries[2].Level)
}
