// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package progress renders the progress of a dispatch.
package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"golang.org/x/crypto/ssh/terminal"

	"go.chromium.org/e2cloud/internal/dispatch"
)

// IsTerminal reports whether f is connected to a terminal.
func IsTerminal(f *os.File) bool {
	return terminal.IsTerminal(int(f.Fd()))
}

// Terminal shows a status line at the bottom of a VT100 terminal.
//
// Terminal is also a logging.Sink: log lines are written above the status
// line, which is redrawn after each of them. All output to the terminal must
// go through it while it is in use.
type Terminal struct {
	mu     sync.Mutex
	w      io.Writer
	status string
	shown  bool  // status line currently on screen
	err    error // first write error
}

var _ dispatch.Reporter = (*Terminal)(nil)

// NewTerminal returns a Terminal writing to w.
func NewTerminal(w io.Writer) *Terminal {
	return &Terminal{w: w}
}

// Log writes msg above the status line.
func (t *Terminal) Log(msg string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	t.writeString(strings.TrimRight(msg, "\n") + "\n")
	t.drawStatus()
}

// Scheduled prints the test that would have been invoked; it is only called
// in dry-run mode.
func (t *Terminal) Scheduled(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	t.writeString("Scheduled " + name + "\n")
	t.drawStatus()
}

// Completed updates the status line with the completion count. Failed
// invocations are also printed above it.
func (t *Terminal) Completed(o dispatch.Outcome, completed, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	if o.Status == dispatch.Failed {
		t.writeString(fmt.Sprintf("FAILED %s: %v\n", o.Name, o.Err))
	}
	t.status = StatusLine(completed, total)
	t.drawStatus()
}

// Close removes the status line and leaves its last content as a regular
// line. It returns the first error encountered while writing.
func (t *Terminal) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.clearStatus()
	if t.status != "" {
		t.writeString(t.status + "\n")
		t.status = ""
	}
	t.writeEscSeq("?25h")
	return t.err
}

// StatusLine returns the progress text shown after completed of total tests
// finished.
func StatusLine(completed, total int) string {
	return fmt.Sprintf("[%d/%d] Tests executed", completed, total)
}

func (t *Terminal) clearStatus() {
	if !t.shown {
		return
	}
	t.writeString("\r")
	t.writeEscSeq("2K")
	t.shown = false
}

func (t *Terminal) drawStatus() {
	if t.status == "" {
		return
	}
	t.writeEscSeq("?25l")
	t.writeEscSeq("7m")
	t.writeString(t.status)
	t.writeEscSeq("0m")
	t.shown = true
}

func (t *Terminal) writeString(s string) {
	if t.err == nil {
		_, t.err = io.WriteString(t.w, s)
	}
}

func (t *Terminal) writeEscSeq(s string) {
	t.writeString("\033[" + s)
}
