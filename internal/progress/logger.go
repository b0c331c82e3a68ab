// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package progress

import (
	"context"

	"go.chromium.org/e2cloud/internal/dispatch"
	"go.chromium.org/e2cloud/internal/logging"
)

// Logger reports progress as log lines, for output that is not a terminal.
type Logger struct {
	ctx context.Context
}

var _ dispatch.Reporter = (*Logger)(nil)

// NewLogger returns a Logger writing to the logger attached to ctx.
func NewLogger(ctx context.Context) *Logger {
	return &Logger{ctx: ctx}
}

// Scheduled logs the test that would have been invoked.
func (l *Logger) Scheduled(name string) {
	logging.Info(l.ctx, "Scheduled ", name)
}

// Completed logs the completion count, and the error of failed invocations.
func (l *Logger) Completed(o dispatch.Outcome, completed, total int) {
	if o.Status == dispatch.Failed {
		logging.Infof(l.ctx, "FAILED %s: %v", o.Name, o.Err)
	}
	logging.Info(l.ctx, StatusLine(completed, total))
}
