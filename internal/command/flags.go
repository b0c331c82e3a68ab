// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package command contains helpers for command-line flag handling.
package command

import (
	"strconv"
	"strings"
	"time"
)

// DurationFlag implements flag.Value to save a user-supplied integer time
// duration with fixed units to a time.Duration.
type DurationFlag struct {
	units time.Duration
	dst   *time.Duration
}

// NewDurationFlag returns a DurationFlag that will save a duration with the
// supplied units to dst. dst is set to def immediately.
func NewDurationFlag(units time.Duration, dst *time.Duration, def time.Duration) *DurationFlag {
	*dst = def
	return &DurationFlag{units, dst}
}

// Set implements flag.Value.Set.
func (f *DurationFlag) Set(v string) error {
	num, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*f.dst = time.Duration(num) * f.units
	return nil
}

// String implements flag.Value.String.
func (f *DurationFlag) String() string {
	if f.dst == nil || f.units == 0 {
		return ""
	}
	return strconv.FormatInt(int64(*f.dst/f.units), 10)
}

// ListFlag implements flag.Value to split a user-supplied string with a custom
// delimiter into a slice of strings.
type ListFlag struct {
	sep    string
	assign ListFlagAssignFunc
	def    []string
}

// ListFlagAssignFunc is called by ListFlag to assign a slice to a target
// variable.
type ListFlagAssignFunc func(vals []string)

// NewListFlag returns a ListFlag using the supplied separator and assignment
// function. def contains a default value to assign when the flag is
// unspecified.
func NewListFlag(sep string, assign ListFlagAssignFunc, def []string) *ListFlag {
	f := ListFlag{sep, assign, def}
	f.assign(def)
	return &f
}

// Set implements flag.Value.Set.
func (f *ListFlag) Set(v string) error {
	f.assign(strings.Split(v, f.sep))
	return nil
}

// String implements flag.Value.String.
func (f *ListFlag) String() string {
	return strings.Join(f.def, f.sep)
}
