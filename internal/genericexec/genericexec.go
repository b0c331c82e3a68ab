// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package genericexec provides a common interface to execute external
// commands, so that callers can be tested with fake commands.
package genericexec

import (
	"context"
	"io"
	"os/exec"

	"go.chromium.org/e2cloud/shutil"
)

// Cmd is a common interface abstracting an external command to execute.
type Cmd interface {
	// Run runs an external command synchronously.
	//
	// extraArgs is appended to the base arguments passed to the constructor
	// of Cmd. stdin specifies the data sent to the standard input of the
	// process. The standard output/error of the process are written to
	// stdout/stderr.
	//
	// When ctx is canceled, the process is killed.
	Run(ctx context.Context, extraArgs []string, stdin io.Reader, stdout, stderr io.Writer) error

	// CommandLine returns the shell-escaped command line Run would execute
	// with extraArgs. It is meant for logs.
	CommandLine(extraArgs []string) string
}

// ExecCmd represents a local command to execute.
type ExecCmd struct {
	name     string
	baseArgs []string
	dir      string
}

var _ Cmd = &ExecCmd{}

// CommandExec constructs a new ExecCmd representing a local command to execute.
func CommandExec(name string, baseArgs ...string) *ExecCmd {
	return &ExecCmd{
		name:     name,
		baseArgs: baseArgs,
	}
}

// WithDir returns a copy of c that runs in the working directory dir.
func (c *ExecCmd) WithDir(dir string) *ExecCmd {
	cc := *c
	cc.dir = dir
	return &cc
}

// Run runs a local command synchronously. See Cmd.Run for details.
func (c *ExecCmd) Run(ctx context.Context, extraArgs []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := exec.CommandContext(ctx, c.name, c.args(extraArgs)...)
	cmd.Dir = c.dir
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	return cmd.Run()
}

// CommandLine returns the command line Run executes. See Cmd.CommandLine.
func (c *ExecCmd) CommandLine(extraArgs []string) string {
	return shutil.EscapeSlice(append([]string{c.name}, c.args(extraArgs)...))
}

func (c *ExecCmd) args(extraArgs []string) []string {
	return append(append([]string(nil), c.baseArgs...), extraArgs...)
}

// ExitCode extracts the exit status of a process from an error returned by
// Run. ok is false if err does not carry an exit status, e.g. when the
// command could not be started.
func ExitCode(err error) (code int, ok bool) {
	if exitErr, isExit := err.(*exec.ExitError); isExit {
		return exitErr.ExitCode(), true
	}
	return 0, false
}
