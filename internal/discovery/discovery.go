// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package discovery enumerates the tests of a CodeceptJS project as qualified
// names of the form "<suite>: <test>".
package discovery

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/logging"
)

// Source produces an ordered sequence of qualified test names. The sequence
// may be empty and may contain duplicates.
type Source interface {
	TestNames(ctx context.Context) ([]string, error)
}

// QualifiedName joins a suite title and a test title, matching the names the
// remote runner greps for.
func QualifiedName(suite, test string) string {
	return suite + ": " + test
}

// StaticSource is a Source serving a fixed list of names.
type StaticSource []string

// TestNames returns a copy of s.
func (s StaticSource) TestNames(ctx context.Context) ([]string, error) {
	return append([]string(nil), s...), nil
}

// FileSource discovers tests by scanning files matched by a glob.
//
// Feature('...') declares a suite and Scenario('...') declares a test in the
// most recently declared suite. xScenario, Scenario.skip and Scenario.todo are
// ignored. Files are visited in lexical order.
type FileSource struct {
	// Dir is the directory Pattern is relative to.
	Dir string
	// Pattern is a filepath.Match glob, e.g. "./tests/*_test.js".
	Pattern string
}

// declRE matches suite and test declarations. Submatches: 1 = "x" prefix,
// 2 = keyword, 3 = modifier, 4 = quote, then the title runs up to the
// matching quote (found by scanTitle since RE2 lacks backreferences).
var declRE = regexp.MustCompile("(?m)\\b(x?)(Feature|Scenario)(?:\\.(only|skip|todo))?\\s*\\(\\s*(['\"`])")

// TestNames implements Source.
func (s *FileSource) TestNames(ctx context.Context) ([]string, error) {
	pattern := s.Pattern
	if !filepath.IsAbs(pattern) {
		pattern = filepath.Join(s.Dir, pattern)
	}
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "bad tests pattern %q", s.Pattern)
	}
	sort.Strings(paths)
	logging.Debugf(ctx, "Found %d test file(s) matching %s", len(paths), s.Pattern)

	var names []string
	for _, p := range paths {
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read test file")
		}
		fileNames, err := parseFile(string(b))
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse %s", p)
		}
		names = append(names, fileNames...)
	}
	return names, nil
}

// parseFile extracts qualified test names from the source of a test file.
func parseFile(src string) ([]string, error) {
	var (
		names []string
		suite string
		has   bool
	)
	for _, m := range declRE.FindAllStringSubmatchIndex(src, -1) {
		skip := m[3] > m[2] // "x" prefix
		keyword := src[m[4]:m[5]]
		if m[6] >= 0 {
			skip = skip || src[m[6]:m[7]] != "only"
		}
		quote := src[m[8]:m[9]]
		title, err := scanTitle(src[m[9]:], quote[0])
		if err != nil {
			return nil, errors.Wrapf(err, "line %d", strings.Count(src[:m[0]], "\n")+1)
		}

		switch keyword {
		case "Feature":
			if skip {
				// A skipped suite disables its scenarios up to the next suite.
				suite, has = "", false
				continue
			}
			suite, has = title, true
		case "Scenario":
			if skip || !has {
				continue
			}
			names = append(names, QualifiedName(suite, title))
		}
	}
	return names, nil
}

// scanTitle reads a string literal body terminated by quote from s and
// returns it unescaped.
func scanTitle(s string, quote byte) (string, error) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			default:
				sb.WriteByte(s[i])
			}
		case c == quote:
			return sb.String(), nil
		case c == '\n' && quote != '`':
			return "", errors.New("unterminated title")
		default:
			sb.WriteByte(c)
		}
	}
	return "", errors.New("unterminated title")
}
