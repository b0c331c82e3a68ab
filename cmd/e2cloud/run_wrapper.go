// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/run"
)

// runWrapper is a wrapper that allows functions from the run package to be stubbed out for testing.
type runWrapper interface {
	// run calls run.Run.
	run(ctx context.Context, cfg *config.Config, deps run.Deps) (*run.Result, error)
	// listTests calls run.ListTests.
	listTests(ctx context.Context, cfg *config.Config) ([]string, error)
	// writeResults calls run.WriteResults.
	writeResults(ctx context.Context, dir string, res *run.Result) error
}

// realRunWrapper is a runWrapper implementation that calls the real functions in the run package.
type realRunWrapper struct{}

func (realRunWrapper) run(ctx context.Context, cfg *config.Config, deps run.Deps) (*run.Result, error) {
	return run.Run(ctx, cfg, deps)
}

func (realRunWrapper) listTests(ctx context.Context, cfg *config.Config) ([]string, error) {
	return run.ListTests(ctx, cfg)
}

func (realRunWrapper) writeResults(ctx context.Context, dir string, res *run.Result) error {
	return run.WriteResults(ctx, dir, res)
}
