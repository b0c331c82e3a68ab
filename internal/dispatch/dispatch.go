// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package dispatch fans out one remote invocation per test, tracks their
// completions, and finishes the reporting session exactly once when all of
// them are done.
package dispatch

import (
	"context"
	"time"

	"code.cloudfoundry.org/clock"
	"golang.org/x/sync/errgroup"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/invoke"
	"go.chromium.org/e2cloud/internal/logging"
	"go.chromium.org/e2cloud/internal/reporting"
)

// defaultFinishTimeout bounds the session finish call.
const defaultFinishTimeout = time.Minute

// ErrDeadline is the abort cause when the dispatch timeout expires.
var ErrDeadline = errors.New("dispatch deadline reached")

// Invoker runs one test remotely. Invoke blocks until the remote run
// completes; a non-nil error marks the test Failed.
type Invoker interface {
	Invoke(ctx context.Context, req invoke.Request) error
}

// Finisher finishes a reporting session.
type Finisher interface {
	FinishSession(ctx context.Context, id reporting.SessionID, f reporting.Finish) error
}

// Reporter receives progress events. Calls are serialized; implementations
// must not block for long.
type Reporter interface {
	// Scheduled is called for every test in input order in dry-run mode.
	Scheduled(name string)
	// Completed is called after each recorded completion with the updated
	// count.
	Completed(o Outcome, completed, total int)
}

type nopReporter struct{}

func (nopReporter) Scheduled(string)             {}
func (nopReporter) Completed(Outcome, int, int) {}

// Options configures a Dispatcher.
type Options struct {
	// Concurrency is the maximum number of invocations in flight.
	// Zero means unlimited.
	Concurrency int
	// Timeout bounds the whole dispatch. Zero means no timeout.
	Timeout time.Duration
	// DryRun skips invocations and finishes the session right away.
	DryRun bool
	// Reporter receives progress events. Nil discards them.
	Reporter Reporter
	// Clock drives the timeout and outcome durations. Nil means the real
	// clock.
	Clock clock.Clock
	// FinishTimeout bounds the session finish call. Zero means one minute.
	FinishTimeout time.Duration
}

// Dispatcher dispatches tests. It keeps no state between dispatches and may
// be reused.
type Dispatcher struct {
	inv  Invoker
	fin  Finisher
	opts Options
}

// New returns a Dispatcher invoking tests with inv and finishing sessions
// with fin.
func New(inv Invoker, fin Finisher, opts Options) *Dispatcher {
	if opts.Reporter == nil {
		opts.Reporter = nopReporter{}
	}
	if opts.Clock == nil {
		opts.Clock = clock.NewClock()
	}
	if opts.FinishTimeout == 0 {
		opts.FinishTimeout = defaultFinishTimeout
	}
	return &Dispatcher{inv: inv, fin: fin, opts: opts}
}

// Handle is a dispatch in progress.
type Handle struct {
	t *tracker
}

// Done returns a channel closed once the session has been finished.
func (h *Handle) Done() <-chan struct{} {
	return h.t.done
}

// Wait blocks until the session has been finished and returns the summary of
// the dispatch. The error wraps the abort cause if the dispatch was aborted
// and the error returned by finishing the session, if any.
func (h *Handle) Wait() (*Summary, error) {
	<-h.t.done
	s := h.t.summary
	if !s.Aborted {
		return s, h.t.err
	}
	err := errors.Wrapf(s.Cause, "dispatch aborted with %d of %d tests not run", s.NotRun, s.Total)
	if h.t.err != nil {
		err = errors.Join(err, errors.Wrap(h.t.err, "failed to finish session"))
	}
	return s, err
}

// Dispatch invokes every test in names tagged with session id and returns
// immediately. The session is finished once all invocations complete, the
// timeout expires, or ctx is canceled, whichever comes first.
//
// In dry-run mode, or when names is empty, nothing is invoked and the
// session is finished before Dispatch returns.
func (d *Dispatcher) Dispatch(ctx context.Context, names []string, id reporting.SessionID) *Handle {
	t := newTracker(names, d.opts.Reporter, func(s *Summary) error {
		return d.finalize(ctx, id, s)
	})
	h := &Handle{t: t}

	if d.opts.DryRun || len(names) == 0 {
		for _, name := range names {
			d.opts.Reporter.Scheduled(name)
		}
		s := t.skip(d.opts.DryRun)
		t.finish(s)
		return h
	}

	var timeout <-chan time.Time
	var timer clock.Timer
	if d.opts.Timeout > 0 {
		timer = d.opts.Clock.NewTimer(d.opts.Timeout)
		timeout = timer.C()
	}

	invCtx, cancel := context.WithCancelCause(ctx)
	go d.submit(invCtx, t, names, id)

	go func() {
		if timer != nil {
			defer timer.Stop()
		}
		var cause error
		select {
		case <-t.stopped:
			cancel(nil)
			return
		case <-timeout:
			cause = ErrDeadline
		case <-ctx.Done():
			cause = context.Cause(ctx)
		}
		s := t.stop(cause)
		cancel(cause)
		if s != nil {
			logging.Info(ctx, "Aborting dispatch: ", cause)
			t.finish(s)
		}
	}()
	return h
}

// submit starts invocations in input order, keeping at most
// Options.Concurrency of them in flight. It stops submitting once ctx is
// canceled and returns after every started invocation returned.
func (d *Dispatcher) submit(ctx context.Context, t *tracker, names []string, id reporting.SessionID) {
	var g errgroup.Group
	if d.opts.Concurrency > 0 {
		g.SetLimit(d.opts.Concurrency)
	}
	for i, name := range names {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			start := d.opts.Clock.Now()
			err := d.inv.Invoke(ctx, invoke.Request{TestName: name, LaunchID: string(id)})
			if err != nil && ctx.Err() != nil {
				// Canceled by an abort, which records the test as not run.
				return nil
			}
			o := Outcome{Index: i, Name: name, Status: Done, Duration: d.opts.Clock.Since(start)}
			if err != nil {
				o.Status = Failed
				o.Err = err
				logging.Debugf(ctx, "%s: %v", name, err)
			}
			t.complete(o)
			return nil
		})
	}
	g.Wait()
}

// finalize finishes session id. It runs on a context detached from ctx's
// cancellation so that an aborted dispatch still finishes its session.
func (d *Dispatcher) finalize(ctx context.Context, id reporting.SessionID, s *Summary) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.opts.FinishTimeout)
	defer cancel()
	if err := d.fin.FinishSession(ctx, id, s.Finish()); err != nil {
		logging.Info(ctx, "Failed to finish session: ", err)
		return err
	}
	return nil
}
