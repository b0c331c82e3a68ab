// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"context"
	"strings"
	"time"

	"code.cloudfoundry.org/clock"
	"resty.dev/v3"

	"go.chromium.org/e2cloud/errors"
)

// requestTimeout bounds every single request to the ReportPortal API.
const requestTimeout = 30 * time.Second

// SessionID identifies a ReportPortal launch.
type SessionID string

// Attribute is a key/value pair attached to a launch.
type Attribute struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// StatusStopped marks a launch that was aborted before all of its tests ran.
// FinishLaunch with an empty status lets the server derive the status from
// the launch's items.
const StatusStopped = "STOPPED"

type startLaunchRQ struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	StartTime   int64       `json:"startTime"`
	Mode        string      `json:"mode,omitempty"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

type startLaunchRS struct {
	ID     string `json:"id"`
	Number int64  `json:"number"`
}

type finishLaunchRQ struct {
	EndTime     int64  `json:"endTime"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
}

// StartLaunch describes a launch to be started.
type StartLaunch struct {
	Name        string
	Description string
	Mode        string
	Attributes  []Attribute
}

// Client is a thin client of the ReportPortal REST API (v1).
type Client struct {
	rc       *resty.Client
	endpoint string
	project  string
	clock    clock.Clock
}

// NewClient returns a client talking to endpoint, e.g.
// "https://rp.example.com/api/v1", on behalf of project.
func NewClient(endpoint, project, token string, clk clock.Clock) *Client {
	endpoint = strings.TrimSuffix(endpoint, "/")
	rc := resty.New().
		SetBaseURL(endpoint).
		SetTimeout(requestTimeout).
		SetHeader("Accept", "application/json")
	if token != "" {
		rc.SetAuthToken(token)
	}
	return &Client{rc: rc, endpoint: endpoint, project: project, clock: clk}
}

// Endpoint returns the API base URL.
func (c *Client) Endpoint() string { return c.endpoint }

// Project returns the project launches are started in.
func (c *Client) Project() string { return c.project }

// Close releases idle connections held by the client.
func (c *Client) Close() error {
	return c.rc.Close()
}

// CheckConnection verifies that the server is reachable and accepts the
// token. Failures are reported as *ConnectionError.
func (c *Client) CheckConnection(ctx context.Context) error {
	res, err := c.rc.R().SetContext(ctx).Get("/user")
	if err != nil {
		return &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	if res.IsError() {
		return &ConnectionError{Endpoint: c.endpoint, Err: statusError(res)}
	}
	return nil
}

// StartLaunch starts a new launch and returns its ID and sequence number.
func (c *Client) StartLaunch(ctx context.Context, l StartLaunch) (SessionID, int64, error) {
	var out startLaunchRS
	res, err := c.rc.R().
		SetContext(ctx).
		SetPathParam("project", c.project).
		SetBody(&startLaunchRQ{
			Name:        l.Name,
			Description: l.Description,
			StartTime:   c.clock.Now().UnixMilli(),
			Mode:        l.Mode,
			Attributes:  l.Attributes,
		}).
		SetResult(&out).
		Post("/{project}/launch")
	if err != nil {
		return "", 0, &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	if res.IsError() {
		return "", 0, errors.Wrap(statusError(res), "failed to start launch")
	}
	if out.ID == "" {
		return "", 0, errors.Errorf("failed to start launch: no id in response %q", res.String())
	}
	return SessionID(out.ID), out.Number, nil
}

// FinishLaunch finishes the launch id.
func (c *Client) FinishLaunch(ctx context.Context, id SessionID, status, description string) error {
	res, err := c.rc.R().
		SetContext(ctx).
		SetPathParams(map[string]string{"project": c.project, "id": string(id)}).
		SetBody(&finishLaunchRQ{
			EndTime:     c.clock.Now().UnixMilli(),
			Status:      status,
			Description: description,
		}).
		Put("/{project}/launch/{id}/finish")
	if err != nil {
		return &ConnectionError{Endpoint: c.endpoint, Err: err}
	}
	if res.IsError() {
		return errors.Wrapf(statusError(res), "failed to finish launch %s", id)
	}
	return nil
}

func statusError(res *resty.Response) error {
	body := strings.TrimSpace(res.String())
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return errors.Errorf("HTTP %d", res.StatusCode())
	}
	return errors.Errorf("HTTP %d: %s", res.StatusCode(), body)
}
