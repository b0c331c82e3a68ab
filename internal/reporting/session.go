// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package reporting manages the ReportPortal launch ("session") aggregating
// the results of a run.
package reporting

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"

	"code.cloudfoundry.org/clock"
	"github.com/google/uuid"
	"github.com/shirou/gopsutil/v3/host"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/logging"
)

// SessionDescription is the description of every launch started by a run.
const SessionDescription = "Started by e2cloud"

// ErrAlreadyFinished is returned by FinishSession when the session was
// already finished.
var ErrAlreadyFinished = errors.New("session already finished")

// ConnectionError is returned when the ReportPortal server can't be reached
// or rejects the credentials.
type ConnectionError struct {
	Endpoint string
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("cannot connect to ReportPortal at %s: %v", e.Endpoint, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// FinalizeError is returned when finishing a started session fails. The
// session stays open on the server; test invocations already ran.
type FinalizeError struct {
	ID  SessionID
	Err error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("failed to finish session %s: %v", e.ID, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }

// Session is a started launch.
type Session struct {
	// ID identifies the launch; every test invocation reports into it.
	ID SessionID
	// Number is the launch's sequence number within the project.
	Number int64
	// URL is the launch's page in the ReportPortal UI.
	URL string
}

// Finish describes how a session is finished.
type Finish struct {
	// Status is one of the Status* constants, or empty to let the server
	// derive it.
	Status string
	// Description replaces the launch description.
	Description string
}

// ResultURL returns the UI page of launch id in project. Only the origin of
// endpoint is kept:
//
//	ResultURL("https://rp.example.com/api/v1", "demo", "42") ==
//		"https://rp.example.com/ui/#demo/launches/all/42"
func ResultURL(endpoint, project string, id SessionID) string {
	origin := strings.TrimSuffix(endpoint, "/")
	if u, err := url.Parse(endpoint); err == nil && u.Scheme != "" && u.Host != "" {
		origin = u.Scheme + "://" + u.Host
	}
	return fmt.Sprintf("%s/ui/#%s/launches/all/%s", origin, project, id)
}

// Option customizes a Manager.
type Option func(m *Manager)

// WithClock sets the clock used for launch timestamps.
func WithClock(clk clock.Clock) Option {
	return func(m *Manager) { m.clock = clk }
}

// WithRunID sets the run ID attached to launches instead of a random UUID.
func WithRunID(id string) Option {
	return func(m *Manager) { m.runID = id }
}

// WithHostInfo replaces the source of host attributes.
func WithHostInfo(f func(ctx context.Context) (*host.InfoStat, error)) Option {
	return func(m *Manager) { m.hostInfo = f }
}

// Manager starts and finishes sessions.
type Manager struct {
	rp       config.ReportPortal
	clock    clock.Clock
	runID    string
	hostInfo func(ctx context.Context) (*host.InfoStat, error)
	client   *Client

	mu       sync.Mutex
	finished map[SessionID]struct{}
}

// NewManager returns a Manager for the ReportPortal configuration rp.
// A nil or incomplete rp yields a *config.ConfigurationError.
func NewManager(rp *config.ReportPortal, opts ...Option) (*Manager, error) {
	if err := rp.Validate(); err != nil {
		return nil, err
	}
	m := &Manager{
		rp:       *rp,
		clock:    clock.NewClock(),
		runID:    uuid.NewString(),
		hostInfo: host.InfoWithContext,
		finished: make(map[SessionID]struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.client = NewClient(rp.Endpoint, rp.Project, rp.Token, m.clock)
	return m, nil
}

// RunID returns the ID attached to launches started by m.
func (m *Manager) RunID() string { return m.runID }

// Close releases resources held by m.
func (m *Manager) Close() error {
	return m.client.Close()
}

// StartSession checks the connection and starts a launch named title.
func (m *Manager) StartSession(ctx context.Context, title string) (*Session, error) {
	logging.Infof(ctx, "Starting ReportPortal session for %s", m.client.Project())
	if err := m.client.CheckConnection(ctx); err != nil {
		return nil, err
	}
	id, num, err := m.client.StartLaunch(ctx, StartLaunch{
		Name:        title,
		Description: SessionDescription,
		Mode:        m.rp.Launch.Mode,
		Attributes:  m.attributes(ctx),
	})
	if err != nil {
		return nil, err
	}
	logging.Debugf(ctx, "Started launch %s (#%d)", id, num)
	return &Session{
		ID:     id,
		Number: num,
		URL:    ResultURL(m.client.Endpoint(), m.client.Project(), id),
	}, nil
}

// FinishSession finishes the session id. Only the first call for an id
// reaches the server; later calls return ErrAlreadyFinished. Server failures
// are returned as *FinalizeError.
func (m *Manager) FinishSession(ctx context.Context, id SessionID, f Finish) error {
	m.mu.Lock()
	_, done := m.finished[id]
	m.finished[id] = struct{}{}
	m.mu.Unlock()
	if done {
		return ErrAlreadyFinished
	}

	if err := m.client.FinishLaunch(ctx, id, f.Status, f.Description); err != nil {
		return &FinalizeError{ID: id, Err: err}
	}
	logging.Debugf(ctx, "Finished launch %s", id)
	return nil
}

// attributes returns the launch attributes: the configured ones sorted by
// key, followed by the run ID and facts about the host.
func (m *Manager) attributes(ctx context.Context) []Attribute {
	keys := make([]string, 0, len(m.rp.Launch.Attributes))
	for k := range m.rp.Launch.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var attrs []Attribute
	for _, k := range keys {
		attrs = append(attrs, Attribute{Key: k, Value: m.rp.Launch.Attributes[k]})
	}
	attrs = append(attrs, Attribute{Key: "runId", Value: m.runID})

	info, err := m.hostInfo(ctx)
	if err != nil {
		logging.Debug(ctx, "Failed to get host info: ", err)
		return attrs
	}
	if info.Hostname != "" {
		attrs = append(attrs, Attribute{Key: "host", Value: info.Hostname})
	}
	if info.Platform != "" {
		attrs = append(attrs, Attribute{Key: "os", Value: strings.TrimSpace(info.Platform + " " + info.PlatformVersion)})
	}
	return attrs
}
