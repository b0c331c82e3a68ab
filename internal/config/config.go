// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package config defines the configuration of a run: command-line flags merged
// with the YAML project file found in the base directory.
package config

import (
	"flag"
	"os"
	"path/filepath"
	"time"

	"github.com/google/shlex"
	"gopkg.in/yaml.v2"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/command"
)

const (
	// DefaultFileName is the name of the project file looked up in the base
	// directory when -config is not given.
	DefaultFileName = "e2cloud.yaml"

	// TokenEnv names the environment variable overriding the ReportPortal
	// API token from the project file.
	TokenEnv = "E2CLOUD_RP_TOKEN"

	defaultTitle       = "Cloud Launch"
	defaultTests       = "./*_test.js"
	defaultCommand     = "gcloud functions call runTest"
	defaultConcurrency = 16
)

// ConfigurationError is returned when the configuration is missing or invalid.
// It is fatal: a run aborts before any session is started.
type ConfigurationError struct {
	// Path is the project file the error relates to, if any.
	Path string
	// Reason describes what is wrong.
	Reason string
	// Err is the underlying error, if any.
	Err error
}

func (e *ConfigurationError) Error() string {
	msg := e.Reason
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return "configuration error: " + msg
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// ReportPortal holds the reporting backend section of the project file.
type ReportPortal struct {
	// Endpoint is the API base URL, e.g. "https://rp.example.com/api/v1".
	Endpoint string `yaml:"endpoint"`
	// Project is the ReportPortal project receiving launches.
	Project string `yaml:"project"`
	// Token is the API bearer token.
	Token string `yaml:"token"`
	// Launch customizes started launches.
	Launch LaunchConfig `yaml:"launch"`
}

// LaunchConfig customizes launches started by a run.
type LaunchConfig struct {
	// Mode is the launch mode, "DEFAULT" or "DEBUG".
	Mode string `yaml:"mode"`
	// Attributes are attached to every launch.
	Attributes map[string]string `yaml:"attributes"`
}

// Validate checks that rp carries the fields needed to start a session.
func (rp *ReportPortal) Validate() error {
	if rp == nil {
		return &ConfigurationError{Reason: "ReportPortal config can't be found"}
	}
	if rp.Endpoint == "" {
		return &ConfigurationError{Reason: "reportPortal.endpoint is empty"}
	}
	if rp.Project == "" {
		return &ConfigurationError{Reason: "reportPortal.project is empty"}
	}
	switch rp.Launch.Mode {
	case "", "DEFAULT", "DEBUG":
	default:
		return &ConfigurationError{Reason: "reportPortal.launch.mode must be DEFAULT or DEBUG, got " + rp.Launch.Mode}
	}
	return nil
}

// invokeFile is the invoke section of the project file.
type invokeFile struct {
	Command     string `yaml:"command"`
	Concurrency *int   `yaml:"concurrency"`
	Timeout     string `yaml:"timeout"`
}

// projectFile is the layout of the YAML project file.
type projectFile struct {
	Tests        string        `yaml:"tests"`
	ReportPortal *ReportPortal `yaml:"reportPortal"`
	Invoke       invokeFile    `yaml:"invoke"`
}

// MutableConfig is similar to Config, but its fields are mutable.
// Call Load to obtain a Config from MutableConfig.
type MutableConfig struct {
	// See Config for descriptions of these fields.

	BaseDir     string
	ConfigPath  string
	Title       string
	DryRun      bool
	Concurrency int // negative if unset on the command line
	Timeout     time.Duration
	ResultsDir  string
	TestNames   []string
}

// NewMutableConfig returns a new configuration rooted at the current
// directory.
func NewMutableConfig() *MutableConfig {
	return &MutableConfig{BaseDir: ".", Concurrency: -1}
}

// SetFlags adds run-related flags to f that store values in c.
func (c *MutableConfig) SetFlags(f *flag.FlagSet) {
	f.StringVar(&c.ConfigPath, "config", "", "path to the project file (default <basepath>/"+DefaultFileName+")")
	f.StringVar(&c.Title, "title", defaultTitle, "name of the ReportPortal launch")
	f.BoolVar(&c.DryRun, "dryrun", false, "schedule tests and manage the launch without invoking anything")
	f.IntVar(&c.Concurrency, "concurrency", -1, "maximum number of concurrent invocations; 0 means unbounded (default from project file, else 16)")
	f.Var(command.NewDurationFlag(time.Second, &c.Timeout, 0), "timeout", "dispatch timeout in seconds; 0 uses the project file value")
	f.StringVar(&c.ResultsDir, "resultsdir", "", "directory where full.txt and results.json are written")
	f.Var(command.NewListFlag(",", func(v []string) { c.TestNames = v }, nil), "tests",
		"comma-separated qualified test names to run instead of discovering them")
}

// SetListFlags adds the subset of flags relevant to listing tests.
func (c *MutableConfig) SetListFlags(f *flag.FlagSet) {
	f.StringVar(&c.ConfigPath, "config", "", "path to the project file (default <basepath>/"+DefaultFileName+")")
}

// Load reads the project file and returns a frozen configuration.
//
// A missing project file is only an error when its path was given
// explicitly; otherwise the defaults apply and the absence of a reportPortal
// section is reported when a session is started.
func (c *MutableConfig) Load() (*Config, error) {
	base, err := filepath.Abs(c.BaseDir)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to resolve %s", c.BaseDir)
	}

	path := c.ConfigPath
	explicit := path != ""
	if !explicit {
		path = filepath.Join(base, DefaultFileName)
	}

	var pf projectFile
	b, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.UnmarshalStrict(b, &pf); err != nil {
			return nil, &ConfigurationError{Path: path, Reason: "failed to parse", Err: err}
		}
	case os.IsNotExist(err) && !explicit:
		path = ""
	default:
		return nil, &ConfigurationError{Path: path, Reason: "failed to read", Err: err}
	}

	cfg := &Config{
		baseDir:      base,
		path:         path,
		title:        c.Title,
		dryRun:       c.DryRun,
		resultsDir:   c.ResultsDir,
		testNames:    append([]string(nil), c.TestNames...),
		tests:        pf.Tests,
		reportPortal: pf.ReportPortal,
		concurrency:  defaultConcurrency,
		timeout:      c.Timeout,
	}
	if cfg.title == "" {
		cfg.title = defaultTitle
	}
	if cfg.tests == "" {
		cfg.tests = defaultTests
	}

	cmdline := pf.Invoke.Command
	if cmdline == "" {
		cmdline = defaultCommand
	}
	if cfg.command, err = shlex.Split(cmdline); err != nil {
		return nil, &ConfigurationError{Path: path, Reason: "invalid invoke.command", Err: err}
	}
	if len(cfg.command) == 0 {
		return nil, &ConfigurationError{Path: path, Reason: "invoke.command is blank"}
	}

	if pf.Invoke.Concurrency != nil {
		cfg.concurrency = *pf.Invoke.Concurrency
	}
	if c.Concurrency >= 0 {
		cfg.concurrency = c.Concurrency
	}
	if cfg.concurrency < 0 {
		return nil, &ConfigurationError{Path: path, Reason: "invoke.concurrency must not be negative"}
	}

	if cfg.timeout == 0 && pf.Invoke.Timeout != "" {
		if cfg.timeout, err = time.ParseDuration(pf.Invoke.Timeout); err != nil {
			return nil, &ConfigurationError{Path: path, Reason: "invalid invoke.timeout", Err: err}
		}
	}
	if cfg.timeout < 0 {
		return nil, &ConfigurationError{Path: path, Reason: "timeout must not be negative"}
	}

	if rp := cfg.reportPortal; rp != nil {
		if tok := os.Getenv(TokenEnv); tok != "" {
			rp.Token = tok
		}
	}
	return cfg, nil
}

// Config contains the configuration of a run. It is immutable once loaded.
type Config struct {
	baseDir      string
	path         string
	title        string
	dryRun       bool
	concurrency  int
	timeout      time.Duration
	resultsDir   string
	testNames    []string
	tests        string
	command      []string
	reportPortal *ReportPortal
}

// BaseDir returns the absolute directory the run starts from. Test globs are
// relative to it and invocations run in it.
func (c *Config) BaseDir() string { return c.baseDir }

// Path returns the project file that was loaded, or an empty string if none was.
func (c *Config) Path() string { return c.path }

// Title returns the display name of the launch.
func (c *Config) Title() string { return c.title }

// DryRun returns whether invocations are skipped.
func (c *Config) DryRun() bool { return c.dryRun }

// Concurrency returns the maximum number of concurrent invocations. 0 means
// unbounded.
func (c *Config) Concurrency() int { return c.concurrency }

// Timeout returns the deadline of the dispatch phase. 0 means no deadline.
func (c *Config) Timeout() time.Duration { return c.timeout }

// ResultsDir returns the directory receiving result files, if any.
func (c *Config) ResultsDir() string { return c.resultsDir }

// TestNames returns the test names given on the command line. If empty,
// tests are discovered with TestsGlob.
func (c *Config) TestNames() []string { return append([]string(nil), c.testNames...) }

// TestsGlob returns the glob matching test files, relative to BaseDir.
func (c *Config) TestsGlob() string { return c.tests }

// Command returns the invocation command line without the payload argument.
func (c *Config) Command() []string { return append([]string(nil), c.command...) }

// ReportPortal returns a copy of the reporting section, or nil if the project
// file has none.
func (c *Config) ReportPortal() *ReportPortal {
	if c.reportPortal == nil {
		return nil
	}
	rp := *c.reportPortal
	if rp.Launch.Attributes != nil {
		rp.Launch.Attributes = make(map[string]string, len(c.reportPortal.Launch.Attributes))
		for k, v := range c.reportPortal.Launch.Attributes {
			rp.Launch.Attributes[k] = v
		}
	}
	return &rp
}
