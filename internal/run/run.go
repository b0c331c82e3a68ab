// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package run drives one run: it starts a reporting session, dispatches
// every discovered test into it and waits until the session is finished.
package run

import (
	"context"

	"code.cloudfoundry.org/clock"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/discovery"
	"go.chromium.org/e2cloud/internal/dispatch"
	"go.chromium.org/e2cloud/internal/invoke"
	"go.chromium.org/e2cloud/internal/logging"
	"go.chromium.org/e2cloud/internal/progress"
	"go.chromium.org/e2cloud/internal/reporting"
)

// SessionManager starts and finishes reporting sessions.
type SessionManager interface {
	StartSession(ctx context.Context, title string) (*reporting.Session, error)
	dispatch.Finisher
}

// Deps holds the collaborators of a run. Nil fields are filled in from the
// configuration.
type Deps struct {
	Sessions SessionManager
	Invoker  dispatch.Invoker
	Source   discovery.Source
	Reporter dispatch.Reporter
	Clock    clock.Clock
}

// Result is the outcome of a run.
type Result struct {
	// Session is the started session. It is nil if none could be started.
	Session *reporting.Session
	// Summary is nil if the dispatch never started.
	Summary *dispatch.Summary
}

// Run performs a run as configured by cfg.
//
// A *config.ConfigurationError is returned before any session is started if
// the reporting configuration is missing. A non-nil Result is always
// returned so that callers can write whatever results are available.
func Run(ctx context.Context, cfg *config.Config, deps Deps) (*Result, error) {
	res := &Result{}

	if deps.Clock == nil {
		deps.Clock = clock.NewClock()
	}
	if deps.Sessions == nil {
		m, err := reporting.NewManager(cfg.ReportPortal(), reporting.WithClock(deps.Clock))
		if err != nil {
			return res, err
		}
		defer m.Close()
		logging.Debug(ctx, "Run ID ", m.RunID())
		deps.Sessions = m
	}
	if deps.Invoker == nil {
		deps.Invoker = invoke.NewCloudInvoker(cfg.Command(), cfg.BaseDir())
	}
	if deps.Source == nil {
		deps.Source = newSource(cfg)
	}
	if deps.Reporter == nil {
		deps.Reporter = progress.NewLogger(ctx)
	}

	names, err := deps.Source.TestNames(ctx)
	if err != nil {
		return res, errors.Wrap(err, "failed to discover tests")
	}
	logging.Infof(ctx, "Found %d tests", len(names))

	sess, err := deps.Sessions.StartSession(ctx, cfg.Title())
	if err != nil {
		return res, err
	}
	res.Session = sess
	logging.Info(ctx, "Realtime report ", sess.URL)

	d := dispatch.New(deps.Invoker, deps.Sessions, dispatch.Options{
		Concurrency: cfg.Concurrency(),
		Timeout:     cfg.Timeout(),
		DryRun:      cfg.DryRun(),
		Reporter:    deps.Reporter,
		Clock:       deps.Clock,
	})
	summary, err := d.Dispatch(ctx, names, sess.ID).Wait()
	res.Summary = summary
	if err != nil {
		return res, err
	}

	if summary.DryRun {
		logging.Info(ctx, "Dry-run completed.")
		return res, nil
	}
	logging.Info(ctx, "Completed.")
	logging.Info(ctx, "Report stored at ", sess.URL)
	return res, nil
}

// ListTests returns the names of the tests a run with cfg would dispatch.
func ListTests(ctx context.Context, cfg *config.Config) ([]string, error) {
	names, err := newSource(cfg).TestNames(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to discover tests")
	}
	return names, nil
}

func newSource(cfg *config.Config) discovery.Source {
	if names := cfg.TestNames(); len(names) > 0 {
		return discovery.StaticSource(names)
	}
	return &discovery.FileSource{Dir: cfg.BaseDir(), Pattern: cfg.TestsGlob()}
}
