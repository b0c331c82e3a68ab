// Copyright 2026 The ChromiumOS Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package reporting

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"code.cloudfoundry.org/clock/fakeclock"
	"github.com/google/go-cmp/cmp"
	"github.com/shirou/gopsutil/v3/host"

	"go.chromium.org/e2cloud/errors"
	"go.chromium.org/e2cloud/internal/config"
	"go.chromium.org/e2cloud/internal/logging"
	"go.chromium.org/e2cloud/internal/logging/loggingtest"
)

// fakeServer is a minimal ReportPortal API server.
type fakeServer struct {
	t          *testing.T
	srv        *httptest.Server
	token      string
	failFinish bool

	mu       sync.Mutex
	started  []map[string]interface{}
	finished map[string]map[string]interface{}
	nextID   int
}

func newFakeServer(t *testing.T, token string) *fakeServer {
	fs := &fakeServer{t: t, token: token, finished: make(map[string]map[string]interface{})}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/user", fs.handleUser)
	mux.HandleFunc("/api/v1/demo/launch", fs.handleStart)
	mux.HandleFunc("/api/v1/demo/launch/", fs.handleFinish)
	fs.srv = httptest.NewServer(fs.auth(mux))
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) endpoint() string { return fs.srv.URL + "/api/v1" }

func (fs *fakeServer) Started() []map[string]interface{} {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]map[string]interface{}(nil), fs.started...)
}

func (fs *fakeServer) Finished(id string) map[string]interface{} {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return fs.finished[id]
}

func (fs *fakeServer) auth(h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer "+fs.token {
			http.Error(w, `{"message":"unauthorized"}`, http.StatusUnauthorized)
			return
		}
		h.ServeHTTP(w, r)
	})
}

func (fs *fakeServer) handleUser(w http.ResponseWriter, r *http.Request) {
	io.WriteString(w, `{"userId":"tester"}`)
}

func decodeBody(t *testing.T, r *http.Request) map[string]interface{} {
	var m map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&m); err != nil {
		t.Errorf("Failed to decode %s body: %v", r.URL.Path, err)
	}
	return m
}

func (fs *fakeServer) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "bad method", http.StatusMethodNotAllowed)
		return
	}
	body := decodeBody(fs.t, r)
	fs.mu.Lock()
	fs.started = append(fs.started, body)
	fs.nextID++
	id := fs.nextID
	fs.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]interface{}{"id": strings.Repeat("0", 7) + string(rune('0'+id)), "number": id})
}

func (fs *fakeServer) handleFinish(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/demo/launch/"), "/finish")
	if r.Method != http.MethodPut || !strings.HasSuffix(r.URL.Path, "/finish") {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if fs.failFinish {
		http.Error(w, `{"message":"launch is locked"}`, http.StatusConflict)
		return
	}
	body := decodeBody(fs.t, r)
	fs.mu.Lock()
	fs.finished[id] = body
	fs.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	io.WriteString(w, `{"id":"`+id+`"}`)
}

func fixedHostInfo(ctx context.Context) (*host.InfoStat, error) {
	return &host.InfoStat{Hostname: "builder1", Platform: "debian", PlatformVersion: "12"}, nil
}

func newTestManager(t *testing.T, rp *config.ReportPortal) (*Manager, *fakeclock.FakeClock) {
	clk := fakeclock.NewFakeClock(time.Unix(1700000000, 0))
	m, err := NewManager(rp, WithClock(clk), WithRunID("run-1"), WithHostInfo(fixedHostInfo))
	if err != nil {
		t.Fatal("NewManager failed: ", err)
	}
	t.Cleanup(func() { m.Close() })
	return m, clk
}

func TestResultURL(t *testing.T) {
	for _, tc := range []struct {
		endpoint string
		want     string
	}{
		{"https://rp.example.com", "https://rp.example.com/ui/#demo/launches/all/42"},
		{"https://rp.example.com/api/v1", "https://rp.example.com/ui/#demo/launches/all/42"},
		{"http://localhost:8080/api/v1/", "http://localhost:8080/ui/#demo/launches/all/42"},
	} {
		if got := ResultURL(tc.endpoint, "demo", "42"); got != tc.want {
			t.Errorf("ResultURL(%q, demo, 42) = %q; want %q", tc.endpoint, got, tc.want)
		}
	}
}

func TestNewManagerMissingConfig(t *testing.T) {
	_, err := NewManager(nil)
	var ce *config.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("NewManager(nil) returned %v; want ConfigurationError", err)
	}
	if !strings.Contains(err.Error(), "ReportPortal config can't be found") {
		t.Errorf("NewManager(nil) error = %q", err.Error())
	}
}

func TestStartAndFinishSession(t *testing.T) {
	fs := newFakeServer(t, "secret")
	m, clk := newTestManager(t, &config.ReportPortal{
		Endpoint: fs.endpoint(),
		Project:  "demo",
		Token:    "secret",
		Launch: config.LaunchConfig{
			Mode:       "DEBUG",
			Attributes: map[string]string{"team": "web", "branch": "main"},
		},
	})
	logger := loggingtest.NewLogger(t, logging.LevelInfo)
	ctx := logging.AttachLogger(context.Background(), logger)

	s, err := m.StartSession(ctx, "Nightly")
	if err != nil {
		t.Fatal("StartSession failed: ", err)
	}
	if diff := cmp.Diff(logger.Logs(), []string{"Starting ReportPortal session for demo"}); diff != "" {
		t.Errorf("Logs mismatch (-got +want):\n%s", diff)
	}
	if s.ID != "00000001" || s.Number != 1 {
		t.Errorf("StartSession returned ID %q number %d; want 00000001, 1", s.ID, s.Number)
	}
	if want := fs.srv.URL + "/ui/#demo/launches/all/00000001"; s.URL != want {
		t.Errorf("Session URL = %q; want %q", s.URL, want)
	}

	started := fs.Started()
	if len(started) != 1 {
		t.Fatalf("Server saw %d launch starts; want 1", len(started))
	}
	wantStart := map[string]interface{}{
		"name":        "Nightly",
		"description": "Started by e2cloud",
		"startTime":   float64(1700000000000),
		"mode":        "DEBUG",
		"attributes": []interface{}{
			map[string]interface{}{"key": "branch", "value": "main"},
			map[string]interface{}{"key": "team", "value": "web"},
			map[string]interface{}{"key": "runId", "value": "run-1"},
			map[string]interface{}{"key": "host", "value": "builder1"},
			map[string]interface{}{"key": "os", "value": "debian 12"},
		},
	}
	if diff := cmp.Diff(started[0], wantStart); diff != "" {
		t.Errorf("Start request mismatch (-got +want):\n%s", diff)
	}

	clk.Increment(5 * time.Second)
	if err := m.FinishSession(ctx, s.ID, Finish{Description: "2 done"}); err != nil {
		t.Fatal("FinishSession failed: ", err)
	}
	wantFinish := map[string]interface{}{
		"endTime":     float64(1700000005000),
		"description": "2 done",
	}
	if diff := cmp.Diff(fs.Finished("00000001"), wantFinish); diff != "" {
		t.Errorf("Finish request mismatch (-got +want):\n%s", diff)
	}
}

func TestFinishSessionOnce(t *testing.T) {
	fs := newFakeServer(t, "secret")
	m, _ := newTestManager(t, &config.ReportPortal{Endpoint: fs.endpoint(), Project: "demo", Token: "secret"})
	ctx := context.Background()

	if err := m.FinishSession(ctx, "00000001", Finish{Status: StatusStopped}); err != nil {
		t.Fatal("First FinishSession failed: ", err)
	}
	if err := m.FinishSession(ctx, "00000001", Finish{}); !errors.Is(err, ErrAlreadyFinished) {
		t.Errorf("Second FinishSession returned %v; want ErrAlreadyFinished", err)
	}
	if got := fs.Finished("00000001")["status"]; got != "STOPPED" {
		t.Errorf("Finished status = %v; want STOPPED", got)
	}
}

func TestFinishSessionFailure(t *testing.T) {
	fs := newFakeServer(t, "secret")
	fs.failFinish = true
	m, _ := newTestManager(t, &config.ReportPortal{Endpoint: fs.endpoint(), Project: "demo", Token: "secret"})

	err := m.FinishSession(context.Background(), "00000003", Finish{})
	var fe *FinalizeError
	if !errors.As(err, &fe) {
		t.Fatalf("FinishSession returned %v; want FinalizeError", err)
	}
	if fe.ID != "00000003" {
		t.Errorf("FinalizeError.ID = %q; want 00000003", fe.ID)
	}
	if !strings.Contains(err.Error(), "409") {
		t.Errorf("FinishSession error %q does not mention the HTTP status", err.Error())
	}
}

func TestStartSessionBadToken(t *testing.T) {
	fs := newFakeServer(t, "secret")
	m, _ := newTestManager(t, &config.ReportPortal{Endpoint: fs.endpoint(), Project: "demo", Token: "wrong"})

	_, err := m.StartSession(context.Background(), "Nightly")
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("StartSession returned %v; want ConnectionError", err)
	}
	if n := len(fs.Started()); n != 0 {
		t.Errorf("Server saw %d launch starts; want 0", n)
	}
}

func TestStartSessionUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	endpoint := srv.URL + "/api/v1"
	srv.Close()

	m, _ := newTestManager(t, &config.ReportPortal{Endpoint: endpoint, Project: "demo"})
	_, err := m.StartSession(context.Background(), "Nightly")
	var ce *ConnectionError
	if !errors.As(err, &ce) {
		t.Fatalf("StartSession returned %v; want ConnectionError", err)
	}
}

func TestHostInfoFailure(t *testing.T) {
	fs := newFakeServer(t, "secret")
	clk := fakeclock.NewFakeClock(time.Unix(0, 0))
	m, err := NewManager(&config.ReportPortal{Endpoint: fs.endpoint(), Project: "demo", Token: "secret"},
		WithClock(clk), WithRunID("run-2"),
		WithHostInfo(func(ctx context.Context) (*host.InfoStat, error) { return nil, errors.New("no host") }))
	if err != nil {
		t.Fatal("NewManager failed: ", err)
	}
	defer m.Close()

	if _, err := m.StartSession(context.Background(), "Nightly"); err != nil {
		t.Fatal("StartSession failed: ", err)
	}
	want := []interface{}{map[string]interface{}{"key": "runId", "value": "run-2"}}
	if diff := cmp.Diff(fs.Started()[0]["attributes"], want); diff != "" {
		t.Errorf("Attributes mismatch (-got +want):\n%s", diff)
	}
}
