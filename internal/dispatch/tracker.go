// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package dispatch

import (
	"sync"
)

// tracker counts completions of a dispatch and finalizes it exactly once.
//
// It is created fresh for every dispatch; nothing outlives it.
type tracker struct {
	reporter Reporter
	finalize func(s *Summary) error

	// stopped is closed when finished flips to true.
	stopped chan struct{}
	// done is closed after finalize returns.
	done chan struct{}

	mu        sync.Mutex
	total     int
	completed int
	finished  bool
	seen      []bool
	outcomes  []Outcome

	// Set before done is closed.
	summary *Summary
	err     error
}

func newTracker(names []string, reporter Reporter, finalize func(s *Summary) error) *tracker {
	outcomes := make([]Outcome, len(names))
	for i, name := range names {
		outcomes[i] = Outcome{Index: i, Name: name, Status: NotRun}
	}
	return &tracker{
		reporter: reporter,
		finalize: finalize,
		stopped:  make(chan struct{}),
		done:     make(chan struct{}),
		total:    len(names),
		seen:     make([]bool, len(names)),
		outcomes: outcomes,
	}
}

// complete records the completion of test o.Index. Duplicate completions and
// completions arriving after the tracker finished are ignored. The call that
// records the last completion finalizes the dispatch before returning.
func (t *tracker) complete(o Outcome) {
	t.mu.Lock()
	if t.finished || t.seen[o.Index] {
		t.mu.Unlock()
		return
	}
	t.seen[o.Index] = true
	t.completed++
	t.outcomes[o.Index] = o
	t.reporter.Completed(o, t.completed, t.total)

	var s *Summary
	if t.completed == t.total {
		s = t.flipLocked()
	}
	t.mu.Unlock()

	if s != nil {
		t.finish(s)
	}
}

// stop finishes the tracker early, recording every incomplete test as NotRun
// with cause. It returns nil if the tracker had already finished; otherwise
// the caller must pass the returned summary to finish.
func (t *tracker) stop(cause error) *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.finished {
		return nil
	}
	for i := range t.outcomes {
		if !t.seen[i] {
			t.outcomes[i].Err = cause
		}
	}
	s := t.flipLocked()
	s.Aborted = true
	s.Cause = cause
	return s
}

// skip finishes the tracker without invoking anything. The caller must pass
// the returned summary to finish.
func (t *tracker) skip(dryRun bool) *Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.flipLocked()
	s.DryRun = dryRun
	return s
}

// flipLocked marks the tracker finished and snapshots the outcomes.
// t.mu must be held and t.finished must be false.
func (t *tracker) flipLocked() *Summary {
	t.finished = true
	close(t.stopped)
	return newSummary(append([]Outcome(nil), t.outcomes...))
}

// finish runs the finalizer and publishes its result. It must be called
// exactly once, by the goroutine that flipped the finished flag.
func (t *tracker) finish(s *Summary) {
	t.summary = s
	t.err = t.finalize(s)
	close(t.done)
}
