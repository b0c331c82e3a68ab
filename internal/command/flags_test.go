// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package command_test

import (
	"flag"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"go.chromium.org/e2cloud/internal/command"
)

func TestDurationFlag(t *testing.T) {
	for _, tc := range []struct {
		units time.Duration // units for flag
		args  []string      // args to parse
		def   time.Duration // default value for flag
		exp   time.Duration // expected value
	}{
		{time.Second, []string{}, 0, 0},
		{time.Second, []string{}, 10 * time.Second, 10 * time.Second},
		{time.Second, []string{"-flag=5"}, 0, 5 * time.Second},
		{time.Minute, []string{"-flag=2"}, 0, 2 * time.Minute},
		{time.Millisecond, []string{"-flag=200"}, 0, 200 * time.Millisecond},
	} {
		var d time.Duration
		fs := flag.NewFlagSet("", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		fs.Var(command.NewDurationFlag(tc.units, &d, tc.def), "flag", "usage")

		if err := fs.Parse(tc.args); err != nil {
			t.Errorf("%v produced error: %v", tc.args, err)
		} else if d != tc.exp {
			t.Errorf("%v resulted in %v; want %v", tc.args, d, tc.exp)
		}
	}
}

func TestDurationFlagInvalid(t *testing.T) {
	var d time.Duration
	fs := flag.NewFlagSet("", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.Var(command.NewDurationFlag(time.Second, &d, 0), "flag", "usage")
	if err := fs.Parse([]string{"-flag=5m"}); err == nil {
		t.Error("Parse succeeded for non-integer duration")
	}
}

func TestListFlag(t *testing.T) {
	for _, tc := range []struct {
		sep  string   // separator to use
		args []string // args to parse
		def  []string // default value for flag
		exp  []string // expected values
	}{
		{",", []string{}, nil, nil},
		{",", []string{}, []string{"foo", "bar"}, []string{"foo", "bar"}},
		{",", []string{"-flag=foo"}, nil, []string{"foo"}},
		{",", []string{"-flag=foo,bar"}, []string{"default"}, []string{"foo", "bar"}},
		{":", []string{"-flag=foo:bar"}, []string{"default"}, []string{"foo", "bar"}},
	} {
		var vals []string
		fs := flag.NewFlagSet("", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		fs.Var(command.NewListFlag(tc.sep, func(v []string) { vals = v }, tc.def), "flag", "usage")

		if err := fs.Parse(tc.args); err != nil {
			t.Errorf("%v produced error: %v", tc.args, err)
		} else if diff := cmp.Diff(vals, tc.exp); diff != "" {
			t.Errorf("%v mismatch (-got +want):\n%s", tc.args, diff)
		}
	}
}

func ExampleDurationFlag() {
	var dest time.Duration
	flags := flag.NewFlagSet("", flag.ContinueOnError)
	flags.Var(command.NewDurationFlag(time.Second, &dest, 5*time.Second), "flag", "usage")

	// When the flag isn't supplied, the default is used.
	flags.Parse([]string{})
	fmt.Println("no flag:", dest)

	// When the flag is supplied, it's interpreted as an integer duration using the supplied units.
	flags.Parse([]string{"-flag=10"})
	fmt.Println("flag:", dest)

	// Output:
	// no flag: 5s
	// flag: 10s
}
