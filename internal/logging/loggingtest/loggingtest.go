// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package loggingtest captures logs emitted through a context in tests.
package loggingtest

import (
	"strings"
	"sync"
	"testing"
	"time"

	"go.chromium.org/e2cloud/internal/logging"
)

// Logger records messages at or above its level and echoes every message to
// t.Log. Attach it with logging.AttachLogger before calling the code under
// test.
type Logger struct {
	t     *testing.T
	level logging.Level

	mu   sync.Mutex
	logs []string
}

func NewLogger(t *testing.T, level logging.Level) *Logger {
	return &Logger{t: t, level: level}
}

func (l *Logger) Log(level logging.Level, ts time.Time, msg string) {
	l.t.Helper()
	l.mu.Lock()
	defer l.mu.Unlock()

	l.t.Log(msg)
	if level >= l.level {
		l.logs = append(l.logs, msg)
	}
}

// Logs returns a copy of the recorded messages.
func (l *Logger) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

// String joins the recorded messages with newlines.
func (l *Logger) String() string {
	return strings.Join(l.Logs(), "\n")
}

// Contains reports whether a recorded message contains substr.
func (l *Logger) Contains(substr string) bool {
	for _, msg := range l.Logs() {
		if strings.Contains(msg, substr) {
			return true
		}
	}
	return false
}
