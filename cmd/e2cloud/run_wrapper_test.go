// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"

	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/run"
)

// stubRunWrapper is a stub implementation of runWrapper used for testing.
type stubRunWrapper struct {
	runCfg  *config.Config // config passed to run
	runDeps run.Deps       // deps passed to run

	runRes *run.Result // result to return from run
	runErr error       // error to return from run

	listCfg   *config.Config // config passed to listTests
	listNames []string       // names to return from listTests
	listErr   error          // error to return from listTests

	writeDir string      // dir passed to writeResults
	writeRes *run.Result // result passed to writeResults
}

func (w *stubRunWrapper) run(ctx context.Context, cfg *config.Config, deps run.Deps) (*run.Result, error) {
	w.runCfg, w.runDeps = cfg, deps
	return w.runRes, w.runErr
}

func (w *stubRunWrapper) listTests(ctx context.Context, cfg *config.Config) ([]string, error) {
	w.listCfg = cfg
	return w.listNames, w.listErr
}

func (w *stubRunWrapper) writeResults(ctx context.Context, dir string, res *run.Result) error {
	w.writeDir, w.writeRes = dir, res
	return nil
}
