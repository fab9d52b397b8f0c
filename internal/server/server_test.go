package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/me/clustersim/internal/config"
	"github.com/me/clustersim/internal/engine"
	"github.com/me/clustersim/internal/logging"
	"github.com/me/clustersim/internal/scheduler"
	"github.com/me/clustersim/internal/store"
	"github.com/me/clustersim/pkg/model"
)

func testServerWith(t *testing.T, engCfg engine.Config) *Server {
	t.Helper()
	logger := logging.Discard()
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	cfg := config.DefaultServerConfig()
	cfg.Engine = engCfg
	loop := scheduler.NewLoop(st, scheduler.Config{Engine: engCfg}, logger)
	return New(cfg, loop, logger, WithStore(st))
}

func testServer(t *testing.T) *Server {
	return testServerWith(t, engine.DefaultConfig())
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string, wantCode int) envelope {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantCode {
		t.Fatalf("%s %s: status=%d, want %d, body=%s", method, path, w.Code, wantCode, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

func doGet(t *testing.T, srv *Server, path string) envelope {
	t.Helper()
	return do(t, srv, "GET", path, "", http.StatusOK)
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
	return v
}

func TestDiscovery(t *testing.T) {
	srv := testServer(t)
	env := doGet(t, srv, "/api/v1/")
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}

	data := decode[discoveryResponse](t, env.Data)
	if data.Name != "clustersim API" {
		t.Errorf("name = %q", data.Name)
	}
	if len(data.Endpoints) < 9 {
		t.Errorf("endpoints count = %d, want >= 9", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	data := decode[healthResponse](t, doGet(t, srv, "/api/v1/health").Data)
	if data.Status != "healthy" || data.Store != "sqlite" {
		t.Errorf("health = %+v", data)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req_client01")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req_client01" {
		t.Errorf("X-Request-ID = %q, want req_client01", got)
	}
}

func TestNodesAndJobs(t *testing.T) {
	srv := testServer(t)

	env := do(t, srv, "POST", "/api/v1/nodes", `{"cpu":4,"ram":8}`, http.StatusCreated)
	node := decode[model.ResourceNode](t, env.Data)
	if node.ID != 1 || node.AvailableCPU != 4 {
		t.Errorf("node = %+v", node)
	}

	env = do(t, srv, "POST", "/api/v1/jobs", `{"priority":2,"cpu":4,"ram":8,"duration":1}`, http.StatusCreated)
	job := decode[model.Job](t, env.Data)
	if job.ID != 1 || job.Status != model.JobStatusPending {
		t.Errorf("job = %+v", job)
	}
	do(t, srv, "POST", "/api/v1/jobs", `{"priority":5,"cpu":1,"ram":1,"duration":3}`, http.StatusCreated)

	nodes := decode[[]model.ResourceNode](t, doGet(t, srv, "/api/v1/nodes").Data)
	if len(nodes) != 1 {
		t.Errorf("nodes = %+v", nodes)
	}

	env = doGet(t, srv, "/api/v1/jobs?state=pending")
	if env.Pagination == nil || env.Pagination.Total != 2 {
		t.Errorf("pagination = %+v", env.Pagination)
	}

	env = do(t, srv, "POST", "/api/v1/tick", "", http.StatusOK)
	tick := decode[tickResponse](t, env.Data)
	if tick.Time != 1 || len(tick.Admitted) != 1 || tick.Admitted[0] != 1 {
		t.Errorf("tick = %+v", tick)
	}

	running := decode[[]model.RunningJob](t, doGet(t, srv, "/api/v1/jobs?state=running").Data)
	if len(running) != 1 || running[0].NodeID != 1 {
		t.Errorf("running = %+v", running)
	}

	got := decode[model.RunningJob](t, doGet(t, srv, "/api/v1/jobs/1").Data)
	if got.Status != model.JobStatusRunning || got.NodeID != 1 {
		t.Errorf("job 1 = %+v", got)
	}

	env = do(t, srv, "POST", "/api/v1/tick", `{"count":3}`, http.StatusOK)
	tick = decode[tickResponse](t, env.Data)
	if tick.Time != 4 || tick.Ticks != 3 {
		t.Errorf("tick = %+v", tick)
	}

	status := decode[model.Status](t, doGet(t, srv, "/api/v1/status").Data)
	if status.Time != 4 || len(status.Completed) != 1 {
		t.Errorf("status = %+v", status)
	}

	m := decode[map[string]int64](t, doGet(t, srv, "/api/v1/metrics").Data)
	if m["ticks"] != 4 || m["jobs.submitted"] != 2 {
		t.Errorf("metrics = %v", m)
	}
}

func TestJobListPaging(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/v1/nodes", `{"cpu":1,"ram":1}`, http.StatusCreated)
	for range 5 {
		do(t, srv, "POST", "/api/v1/jobs", `{"priority":0,"cpu":1,"ram":1,"duration":1}`, http.StatusCreated)
	}
	env := doGet(t, srv, "/api/v1/jobs?limit=2&offset=4")
	jobs := decode[[]model.RunningJob](t, env.Data)
	if len(jobs) != 1 || env.Pagination.Total != 5 || env.Pagination.HasMore {
		t.Errorf("jobs = %+v, pagination = %+v", jobs, env.Pagination)
	}
}

func TestErrors(t *testing.T) {
	srv := testServerWith(t, engine.Config{QueueCapacity: 1, NodeCapacity: 1, Buckets: 4, MaxPending: 1})

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
		wantErr  model.ErrorCode
	}{
		{"job before nodes", "POST", "/api/v1/jobs", `{"priority":0,"cpu":1,"ram":1,"duration":1}`, http.StatusConflict, model.ErrConflict},
		{"invalid node", "POST", "/api/v1/nodes", `{"cpu":0,"ram":1}`, http.StatusBadRequest, model.ErrValidation},
		{"bad json", "POST", "/api/v1/nodes", `{"cpu":`, http.StatusBadRequest, model.ErrValidation},
		{"add node", "POST", "/api/v1/nodes", `{"cpu":2,"ram":2}`, http.StatusCreated, ""},
		{"job too large", "POST", "/api/v1/jobs", `{"priority":0,"cpu":3,"ram":1,"duration":1}`, http.StatusBadRequest, model.ErrValidation},
		{"negative priority", "POST", "/api/v1/jobs", `{"priority":-1,"cpu":1,"ram":1,"duration":1}`, http.StatusBadRequest, model.ErrValidation},
		{"fill queue", "POST", "/api/v1/jobs", `{"priority":0,"cpu":1,"ram":1,"duration":1}`, http.StatusCreated, ""},
		{"queue full", "POST", "/api/v1/jobs", `{"priority":0,"cpu":1,"ram":1,"duration":1}`, http.StatusInsufficientStorage, model.ErrAllocation},
		{"unknown job", "GET", "/api/v1/jobs/42", "", http.StatusNotFound, model.ErrNotFound},
		{"non-numeric job", "GET", "/api/v1/jobs/abc", "", http.StatusBadRequest, model.ErrValidation},
		{"bad state", "GET", "/api/v1/jobs?state=lost", "", http.StatusBadRequest, model.ErrValidation},
		{"bad limit", "GET", "/api/v1/jobs?limit=x", "", http.StatusBadRequest, model.ErrValidation},
		{"tick count zero", "POST", "/api/v1/tick", `{"count":0}`, http.StatusBadRequest, model.ErrValidation},
		{"restore missing", "POST", "/api/v1/snapshots/snap_nope/restore", "", http.StatusNotFound, model.ErrNotFound},
		{"delete missing", "DELETE", "/api/v1/snapshots/snap_nope", "", http.StatusNotFound, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, srv, tt.method, tt.path, tt.body, tt.wantCode)
			if tt.wantErr == "" {
				return
			}
			if env.Status != "error" || env.Error == nil || env.Error.Code != tt.wantErr {
				t.Errorf("envelope = %+v, error = %+v, want code %s", env, env.Error, tt.wantErr)
			}
		})
	}
}

func TestSnapshots(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/v1/nodes", `{"cpu":2,"ram":2}`, http.StatusCreated)
	do(t, srv, "POST", "/api/v1/jobs", `{"priority":0,"cpu":2,"ram":2,"duration":5}`, http.StatusCreated)
	do(t, srv, "POST", "/api/v1/tick", "", http.StatusOK)

	env := do(t, srv, "POST", "/api/v1/snapshots", `{"label":"t1"}`, http.StatusCreated)
	info := decode[model.SnapshotInfo](t, env.Data)
	if info.Label != "t1" || info.Running != 1 || info.Time != 1 {
		t.Errorf("info = %+v", info)
	}

	do(t, srv, "POST", "/api/v1/tick", `{"count":10}`, http.StatusOK)

	env = doGet(t, srv, "/api/v1/snapshots")
	infos := decode[[]model.SnapshotInfo](t, env.Data)
	if len(infos) != 1 || infos[0].ID != info.ID {
		t.Errorf("infos = %+v", infos)
	}

	do(t, srv, "POST", "/api/v1/snapshots/"+info.ID+"/restore", "", http.StatusOK)
	status := decode[model.Status](t, doGet(t, srv, "/api/v1/status").Data)
	if status.Time != 1 || len(status.Running) != 1 || status.Running[0].Duration != 5 {
		t.Errorf("status after restore = %+v", status)
	}

	do(t, srv, "DELETE", "/api/v1/snapshots/"+info.ID, "", http.StatusOK)
	env = doGet(t, srv, "/api/v1/snapshots")
	if env.Pagination.Total != 0 {
		t.Errorf("total after delete = %d", env.Pagination.Total)
	}
}

func TestSnapshots_NoStore(t *testing.T) {
	logger := logging.Discard()
	loop := scheduler.NewLoop(nil, scheduler.DefaultConfig(), logger)
	srv := New(config.DefaultServerConfig(), loop, logger)

	do(t, srv, "GET", "/api/v1/snapshots", "", http.StatusServiceUnavailable)
	do(t, srv, "POST", "/api/v1/snapshots", "", http.StatusServiceUnavailable)

	data := decode[healthResponse](t, doGet(t, srv, "/api/v1/health").Data)
	if data.Store != "disabled" {
		t.Errorf("store = %q, want disabled", data.Store)
	}
}

func TestLoggingMiddleware(t *testing.T) {
	var buf bytes.Buffer
	logger := logging.New(logging.Options{Level: "info", Writer: &buf})
	loop := scheduler.NewLoop(nil, scheduler.DefaultConfig(), logging.Discard())
	srv := New(config.DefaultServerConfig(), loop, logger)

	do(t, srv, "GET", "/api/v1/status", "", http.StatusOK)
	do(t, srv, "POST", "/api/v1/tick", "", http.StatusOK)

	out := buf.String()
	if strings.Contains(out, "path=/api/v1/status") {
		t.Errorf("status poll logged at INFO: %s", out)
	}
	if !strings.Contains(out, "path=/api/v1/tick") || !strings.Contains(out, "component=server") {
		t.Errorf("tick request not logged: %s", out)
	}
}
