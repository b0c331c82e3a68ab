// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/subcommands"

	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/logging"
	"go.chromium.org/e2cloud/internal/progress"
	"go.chromium.org/e2cloud/internal/run"
)

const (
	fullLogName = "full.txt" // file in the results dir containing full output
)

// runCmd implements subcommands.Command to support running tests.
type runCmd struct {
	cfg          *config.MutableConfig // shared config for running tests
	wrapper      runWrapper            // can be set by tests to stub out calls to run package
	term         *progress.Terminal    // status line display; nil if stdout isn't a terminal
	failForTests bool                  // exit with 1 if any invocation fails
}

var _ = subcommands.Command(&runCmd{})

func newRunCmd(term *progress.Terminal) *runCmd {
	return &runCmd{
		cfg:     config.NewMutableConfig(),
		wrapper: &realRunWrapper{},
		term:    term,
	}
}

func (*runCmd) Name() string     { return "run" }
func (*runCmd) Synopsis() string { return "run tests remotely" }
func (*runCmd) Usage() string {
	return `Usage: run [flag]... [basepath]

Description:
    Starts a ReportPortal launch, invokes every test found under basepath
    (default ".") remotely and finishes the launch once all invocations
    returned.
    Exits with 0 if every test was invoked, even if some invocations failed.
    -failfortests can be supplied to override this behavior.

Flag:
`
}

func (r *runCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&r.failForTests, "failfortests", false, "exit with 1 if any invocation fails")
	r.cfg.SetFlags(f)
}

func (r *runCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(f.Args()) > 1 {
		logging.Info(ctx, "Too many arguments.\n\n"+r.Usage())
		return subcommands.ExitUsageError
	}
	if len(f.Args()) == 1 {
		r.cfg.BaseDir = f.Args()[0]
	}

	cfg, err := r.cfg.Load()
	if err != nil {
		logging.Info(ctx, "Failed to load configuration: ", err)
		return subcommands.ExitFailure
	}

	resDir := cfg.ResultsDir()
	if resDir != "" {
		if err := os.MkdirAll(resDir, 0755); err != nil {
			logging.Info(ctx, err)
			return subcommands.ExitFailure
		}
		// Log the full output of the command to disk.
		fullLog, err := os.Create(filepath.Join(resDir, fullLogName))
		if err != nil {
			logging.Info(ctx, err)
			return subcommands.ExitFailure
		}
		defer fullLog.Close()
		ctx = logging.AttachLogger(ctx, logging.NewSinkLogger(logging.LevelDebug, true, logging.NewWriterSink(fullLog)))
		logging.Info(ctx, "Writing results to ", resDir)
	}
	logging.Debug(ctx, "Command line: ", strings.Join(os.Args, " "))
	if p := cfg.Path(); p != "" {
		logging.Debug(ctx, "Using project file ", p)
	}

	var deps run.Deps
	if r.term != nil {
		deps.Reporter = r.term
	}
	res, runErr := r.wrapper.run(ctx, cfg, deps)
	if r.term != nil {
		if err := r.term.Close(); err != nil {
			logging.Debug(ctx, "Failed to close status line: ", err)
		}
	}

	if resDir != "" && res != nil {
		if err := r.wrapper.writeResults(ctx, resDir, res); err != nil {
			logging.Info(ctx, "Failed to write results: ", err)
		}
	}

	if runErr != nil {
		logging.Infof(ctx, "Failed to run tests: %v", runErr)
		return subcommands.ExitFailure
	}

	if r.failForTests && res.Summary != nil && res.Summary.Failed > 0 {
		logging.Infof(ctx, "%d of %d invocations failed", res.Summary.Failed, res.Summary.Total)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}
