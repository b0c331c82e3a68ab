// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dispatch

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.chromium.org/e2cloud/internal/reporting"
)

// maxDigestLen caps the digest sent as the launch description.
const maxDigestLen = 2048

// Status is the outcome of a single dispatched test.
type Status int

const (
	// Done means the remote invocation returned successfully. It says
	// nothing about whether the test itself passed.
	Done Status = iota
	// Failed means the remote invocation failed.
	Failed
	// NotRun means the test was never invoked, or its invocation was
	// canceled before it completed.
	NotRun
)

func (s Status) String() string {
	switch s {
	case Done:
		return "DONE"
	case Failed:
		return "FAILED"
	case NotRun:
		return "NOT RUN"
	default:
		return fmt.Sprintf("Status(%d)", int(s))
	}
}

// Outcome is the result of dispatching one test.
type Outcome struct {
	// Index is the position of the test in the dispatched sequence.
	Index int
	// Name is the qualified test name.
	Name string
	Status Status
	// Err is set for Failed and NotRun outcomes.
	Err error
	// Duration is the wall time of the invocation.
	Duration time.Duration
}

// Summary aggregates the outcomes of a dispatch.
type Summary struct {
	Total     int
	Completed int
	Failed    int
	NotRun    int
	// Outcomes holds one entry per test, in input order.
	Outcomes []Outcome
	// DryRun is true if no test was invoked because of dry-run mode.
	DryRun bool
	// Aborted is true if the dispatch was stopped before every test
	// completed.
	Aborted bool
	// Cause is the reason of the abort.
	Cause error
}

func newSummary(outcomes []Outcome) *Summary {
	s := &Summary{Total: len(outcomes), Outcomes: outcomes}
	for _, o := range outcomes {
		switch o.Status {
		case Done:
			s.Completed++
		case Failed:
			s.Completed++
			s.Failed++
		case NotRun:
			s.NotRun++
		}
	}
	return s
}

// Digest returns a human-readable report of the dispatch: a count line
// followed by one line per test.
func (s *Summary) Digest() string {
	var b strings.Builder
	switch {
	case s.DryRun:
		fmt.Fprintf(&b, "Dry run: %d tests scheduled", s.Total)
		return b.String()
	case s.Aborted:
		fmt.Fprintf(&b, "Aborted (%v): ", s.Cause)
	}
	fmt.Fprintf(&b, "%d/%d tests executed, %d failed, %d not run",
		s.Completed, s.Total, s.Failed, s.NotRun)
	for _, o := range s.Outcomes {
		fmt.Fprintf(&b, "\n%-7s %s", o.Status, o.Name)
		if o.Status == Failed && o.Err != nil {
			fmt.Fprintf(&b, ": %v", o.Err)
		}
	}
	return b.String()
}

// Finish returns how the reporting session of the dispatch is finished.
func (s *Summary) Finish() reporting.Finish {
	f := reporting.Finish{Description: truncate(s.Digest(), maxDigestLen)}
	if s.Aborted {
		f.Status = reporting.StatusStopped
	}
	return f
}

// truncate shortens s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	const ellipsis = "..."
	cut := n - len(ellipsis)
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + ellipsis
}
