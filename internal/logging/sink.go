// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package logging

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// timestampFormat prefixes each line written by a SinkLogger with
// timestamps enabled.
const timestampFormat = "2006-01-02T15:04:05.000000Z "

// SinkLogger filters messages by level and formats them into lines for a
// Sink. The CLI builds one over stdout, or over the progress terminal when
// stdout is a TTY.
type SinkLogger struct {
	level     Level
	timestamp bool
	sink      Sink
}

// NewSinkLogger returns a SinkLogger dropping messages below level. With
// timestamp set, each line starts with the UTC time the message was emitted.
func NewSinkLogger(level Level, timestamp bool, sink Sink) *SinkLogger {
	return &SinkLogger{
		level:     level,
		timestamp: timestamp,
		sink:      sink,
	}
}

func (l *SinkLogger) Log(level Level, ts time.Time, msg string) {
	if level < l.level {
		return
	}
	if l.timestamp {
		msg = ts.UTC().Format(timestampFormat) + msg
	}
	l.sink.Log(msg)
}

// Sink consumes formatted log lines.
type Sink interface {
	Log(msg string)
}

// WriterSink writes each line to w followed by a newline. Concurrent
// dispatch goroutines may share one WriterSink.
type WriterSink struct {
	w  io.Writer
	mu sync.Mutex
}

func NewWriterSink(w io.Writer) *WriterSink {
	return &WriterSink{w: w}
}

func (s *WriterSink) Log(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintln(s.w, msg)
}
