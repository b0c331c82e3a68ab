// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package stack records the call site of errors created by package errors.
package stack

import (
	"fmt"
	"path/filepath"
	"runtime"
	"strings"
)

const (
	// maxDepth covers the CLI, run, dispatch and invoke layers.
	maxDepth = 8

	ellipsis = "\t..."
)

// Stack is a captured list of program counters, innermost first.
type Stack []uintptr

// New captures the caller's stack, dropping skip frames above the caller of
// New.
func New(skip int) Stack {
	pc := make([]uintptr, maxDepth+1)
	pc = pc[:runtime.Callers(skip+2, pc)]
	return Stack(pc)
}

// String renders one "\tat func (file:line)" line per frame. Stacks deeper
// than maxDepth end with an ellipsis line.
func (s Stack) String() string {
	var lines []string
	// CallersFrames expands inlined calls.
	cf := runtime.CallersFrames(s)
	for {
		f, more := cf.Next()
		lines = append(lines, fmt.Sprintf("\tat %s (%s:%d)", f.Function, filepath.Base(f.File), f.Line))
		if !more {
			break
		}
		if len(lines) >= maxDepth {
			lines = append(lines, ellipsis)
			break
		}
	}
	return strings.Join(lines, "\n")
}
