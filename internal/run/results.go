// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package run

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/logging"
)

// ResultsFileName is the name of the file in the results directory holding
// per-test outcomes.
const ResultsFileName = "results.json"

// TestResult is the JSON representation of a dispatched test.
type TestResult struct {
	Name       string  `json:"name"`
	Status     string  `json:"status"`
	Error      string  `json:"error,omitempty"`
	DurationMS float64 `json:"durationMs"`
}

// Results is the JSON layout of results.json.
type Results struct {
	LaunchID string       `json:"launchId,omitempty"`
	URL      string       `json:"url,omitempty"`
	DryRun   bool         `json:"dryRun,omitempty"`
	Aborted  bool         `json:"aborted,omitempty"`
	Cause    string       `json:"cause,omitempty"`
	Tests    []TestResult `json:"tests"`
}

// NewResults converts res to its JSON representation.
func NewResults(res *Result) *Results {
	out := &Results{Tests: []TestResult{}}
	if s := res.Session; s != nil {
		out.LaunchID = string(s.ID)
		out.URL = s.URL
	}
	s := res.Summary
	if s == nil {
		return out
	}
	out.DryRun = s.DryRun
	out.Aborted = s.Aborted
	if s.Cause != nil {
		out.Cause = s.Cause.Error()
	}
	for _, o := range s.Outcomes {
		tr := TestResult{
			Name:       o.Name,
			Status:     o.Status.String(),
			DurationMS: float64(o.Duration.Microseconds()) / 1000,
		}
		if o.Err != nil {
			tr.Error = o.Err.Error()
		}
		out.Tests = append(out.Tests, tr)
	}
	return out
}

// WriteResults writes results.json for res into dir, creating dir if needed.
func WriteResults(ctx context.Context, dir string, res *Result) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "failed to create results dir")
	}
	b, err := json.MarshalIndent(NewResults(res), "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode results")
	}
	path := filepath.Join(dir, ResultsFileName)
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", path)
	}
	logging.Debug(ctx, "Wrote results to ", path)
	return nil
}
