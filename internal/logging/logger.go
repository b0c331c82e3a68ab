// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import "time"

// Level is the severity of a log message. Debug messages carry per-test
// detail such as invocation errors; Info messages are what the CLI prints by
// default.
type Level int

const (
	// LevelDebug is for per-test detail, shown with -verbose.
	LevelDebug Level = iota
	// LevelInfo is for session and progress messages.
	LevelInfo
)

// Logger receives every message emitted through a context it is attached to.
// Log may be called from several dispatch goroutines at once.
type Logger interface {
	Log(level Level, ts time.Time, msg string)
}

// MultiLogger fans a message out to a fixed set of loggers. AttachLogger
// uses it to forward messages to the parent context's logger.
type MultiLogger struct {
	loggers []Logger
}

// NewMultiLogger returns a MultiLogger writing to loggers in order.
func NewMultiLogger(loggers ...Logger) *MultiLogger {
	return &MultiLogger{loggers: loggers}
}

// Log forwards the message to each logger.
func (ml *MultiLogger) Log(level Level, ts time.Time, msg string) {
	for _, logger := range ml.loggers {
		logger.Log(level, ts, msg)
	}
}
