/*
 *   Copyright (c) 2026 Anton Brekhov
 *   All rights reserved.
 */

package transport

import (
	"github.com/pion/logging"
	log "github.com/sirupsen/logrus"
)

// loggerFactory routes pion's scoped loggers into logrus. pion is chatty at
// info level, so its levels are shifted one step down below warn.
type loggerFactory struct {
	entry *log.Entry
}

// NewLoggerFactory returns a pion LoggerFactory writing to entry.
func NewLoggerFactory(entry *log.Entry) logging.LoggerFactory {
	return loggerFactory{entry: entry}
}

func (f loggerFactory) NewLogger(scope string) logging.LeveledLogger {
	return leveledLogger{entry: f.entry.WithField("pion", scope)}
}

type leveledLogger struct {
	entry *log.Entry
}

func (l leveledLogger) Trace(msg string)                          { l.entry.Trace(msg) }
func (l leveledLogger) Tracef(format string, args ...interface{}) { l.entry.Tracef(format, args...) }
func (l leveledLogger) Debug(msg string)                          { l.entry.Trace(msg) }
func (l leveledLogger) Debugf(format string, args ...interface{}) { l.entry.Tracef(format, args...) }
func (l leveledLogger) Info(msg string)                           { l.entry.Debug(msg) }
func (l leveledLogger) Infof(format string, args ...interface{})  { l.entry.Debugf(format, args...) }
func (l leveledLogger) Warn(msg string)                           { l.entry.Warn(msg) }
func (l leveledLogger) Warnf(format string, args ...interface{})  { l.entry.Warnf(format, args...) }
func (l leveledLogger) Error(msg string)                          { l.entry.Error(msg) }
func (l leveledLogger) Errorf(format string, args ...interface{}) { l.entry.Errorf(format, args...) }
