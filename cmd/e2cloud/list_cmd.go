// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"

	"github.com/google/subcommands"

	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/logging"
)

// listCmd implements subcommands.Command to support listing tests.
type listCmd struct {
	json    bool                  // marshal test names to JSON instead of just printing them
	cfg     *config.MutableConfig // shared config for listing tests
	wrapper runWrapper            // wraps calls to run package
	stdout  io.Writer             // where to write tests
}

var _ = subcommands.Command(&listCmd{})

// newListCmd returns a new listCmd that will write tests to stdout.
func newListCmd(stdout io.Writer) *listCmd {
	return &listCmd{
		cfg:     config.NewMutableConfig(),
		wrapper: &realRunWrapper{},
		stdout:  stdout,
	}
}

func (*listCmd) Name() string     { return "list" }
func (*listCmd) Synopsis() string { return "list tests" }
func (*listCmd) Usage() string {
	return `Usage: list [flag]... [basepath]

Description:
    Lists the qualified names of the tests a run would invoke, in dispatch
    order.

Flag:
`
}

func (lc *listCmd) SetFlags(f *flag.FlagSet) {
	f.BoolVar(&lc.json, "json", false, "print test names as a JSON array")
	lc.cfg.SetListFlags(f)
}

func (lc *listCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	if len(f.Args()) > 1 {
		logging.Info(ctx, "Too many arguments.\n\n"+lc.Usage())
		return subcommands.ExitUsageError
	}
	if len(f.Args()) == 1 {
		lc.cfg.BaseDir = f.Args()[0]
	}

	cfg, err := lc.cfg.Load()
	if err != nil {
		logging.Info(ctx, "Failed to load configuration: ", err)
		return subcommands.ExitFailure
	}
	// Keep discovery logs out of the listing.
	lctx := logging.AttachLoggerNoPropagation(ctx, logging.NewSinkLogger(logging.LevelDebug, false, logging.NewWriterSink(io.Discard)))
	names, err := lc.wrapper.listTests(lctx, cfg)
	if err != nil {
		logging.Info(ctx, "Failed to list tests: ", err)
		return subcommands.ExitFailure
	}
	if err := lc.printTests(names); err != nil {
		logging.Info(ctx, "Failed to write tests: ", err)
		return subcommands.ExitFailure
	}
	return subcommands.ExitSuccess
}

// printTests writes the supplied test names to lc.stdout.
func (lc *listCmd) printTests(names []string) error {
	if lc.json {
		if names == nil {
			names = []string{}
		}
		enc := json.NewEncoder(lc.stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(names)
	}

	// If -json wasn't passed, just print test names, one per line.
	for _, name := range names {
		if _, err := fmt.Fprintln(lc.stdout, name); err != nil {
			return err
		}
	}
	return nil
}
