// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package invoke runs a single test remotely by calling a cloud function
// through an external command.
package invoke

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/genericexec"
	"go.chromium.org/e2cloud/internal/logging"
)

// stderrTail is the number of trailing stderr bytes kept in InvocationError.
const stderrTail = 2048

// Request is the payload sent to the remote runner for one test.
type Request struct {
	// TestName is the qualified name the remote runner greps for.
	TestName string `json:"testName"`
	// LaunchID is the reporting session the remote runner reports into.
	LaunchID string `json:"launchId"`
}

// InvocationError is returned when a remote invocation fails, either because
// the command exited with a non-zero status or because it could not be run.
type InvocationError struct {
	// TestName is the test whose invocation failed.
	TestName string
	// ExitCode is the exit status of the command, or -1 if it did not exit
	// normally.
	ExitCode int
	// Stderr holds the tail of the command's standard error.
	Stderr string
	// Err is the underlying error.
	Err error
}

func (e *InvocationError) Error() string {
	msg := fmt.Sprintf("invocation of %q failed", e.TestName)
	if e.ExitCode >= 0 {
		msg += fmt.Sprintf(" with exit status %d", e.ExitCode)
	}
	if e.Err != nil && e.ExitCode < 0 {
		msg += ": " + e.Err.Error()
	}
	if s := strings.TrimSpace(e.Stderr); s != "" {
		if i := strings.LastIndexByte(s, '\n'); i >= 0 {
			s = s[i+1:]
		}
		msg += ": " + s
	}
	return msg
}

func (e *InvocationError) Unwrap() error { return e.Err }

// CloudInvoker invokes tests by running a command, by default
// "gcloud functions call runTest", with "--data <json Request>" appended.
type CloudInvoker struct {
	cmd genericexec.Cmd
}

// NewCloudInvoker returns a CloudInvoker running command in dir.
// command must not be empty.
func NewCloudInvoker(command []string, dir string) *CloudInvoker {
	return NewInvoker(genericexec.CommandExec(command[0], command[1:]...).WithDir(dir))
}

// NewInvoker returns a CloudInvoker running cmd. It is mainly useful for
// injecting fake commands.
func NewInvoker(cmd genericexec.Cmd) *CloudInvoker {
	return &CloudInvoker{cmd: cmd}
}

// Invoke runs the test named by req and blocks until the command exits.
// A non-nil error is always an *InvocationError.
func (inv *CloudInvoker) Invoke(ctx context.Context, req Request) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return &InvocationError{TestName: req.TestName, ExitCode: -1, Err: errors.Wrap(err, "failed to encode request")}
	}
	args := []string{"--data", string(payload)}
	logging.Debug(ctx, "Running ", inv.cmd.CommandLine(args))

	var stdout, stderr bytes.Buffer
	if err := inv.cmd.Run(ctx, args, nil, &stdout, &stderr); err != nil {
		code, ok := genericexec.ExitCode(err)
		if !ok {
			code = -1
		}
		return &InvocationError{
			TestName: req.TestName,
			ExitCode: code,
			Stderr:   tail(stderr.Bytes(), stderrTail),
			Err:      err,
		}
	}
	if out := strings.TrimSpace(stdout.String()); out != "" {
		logging.Debugf(ctx, "%s: %s", req.TestName, out)
	}
	return nil
}

// tail returns the last n bytes of b as a string.
func tail(b []byte, n int) string {
	if len(b) > n {
		b = b[len(b)-n:]
	}
	return string(b)
}
