//go:build !windows

package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/nantrunner/internal/console"
	"git.home.luguber.info/inful/nantrunner/internal/controller"
	"git.home.luguber.info/inful/nantrunner/internal/history"
	"git.home.luguber.info/inful/nantrunner/internal/metrics"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
	"git.home.luguber.info/inful/nantrunner/internal/server/responses"
)

type fixture struct {
	ctrl   *controller.Controller
	buffer *console.Buffer
	file   string
	server *Server
	reg    *prometheus.Registry
}

type stubHistory []history.RunSummary

func (s stubHistory) Recent(limit int) []history.RunSummary {
	if limit < len(s) {
		return s[:limit]
	}
	return s
}

// The build tool is /bin/sh running <target>.sh next to the script.
func newFixture(t *testing.T, load bool) *fixture {
	t.Helper()
	dir := t.TempDir()
	file := filepath.Join(dir, "default.build")
	require.NoError(t, os.WriteFile(file, []byte(`<project name="demo" default="build">
  <property name="configuration" value="Release"/>
  <target name="build" description="Builds everything" depends="init"/>
  <target name="init"/>
  <target name="slow"/>
</project>`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build.sh"), []byte("echo building\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "slow.sh"), []byte("sleep 5\n"), 0o600))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	rec := metrics.NewPrometheusRecorder(reg)
	buf := console.NewBuffer(0)
	exec := runner.NewExecutor(runner.Config{
		Command:   "/bin/sh",
		Arguments: []string{"{{.Dir}}/{{.Target}}.sh"},
		Verbose:   true,
	}, buf, runner.WithLogger(logger), runner.WithRecorder(rec))
	ctrl := controller.New(exec, controller.Options{Logger: logger, Recorder: rec, Console: buf})
	if load {
		_, err := ctrl.LoadFile(file)
		require.NoError(t, err)
	}

	srv := New(ctrl, Options{
		Listen:   "127.0.0.1:0",
		Console:  buf,
		Registry: reg,
		Logger:   logger,
		History: stubHistory{
			{RunID: "r2", Target: "build", Status: "completed"},
			{RunID: "r1", Target: "init", Status: "cancelled"},
		},
	})
	return &fixture{ctrl: ctrl, buffer: buf, file: file, server: srv, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func waitIdle(t *testing.T, ctrl *controller.Controller) {
	t.Helper()
	require.Eventually(t, func() bool { return !ctrl.IsWorking() }, 10*time.Second, 10*time.Millisecond)
}

func TestHealthz(t *testing.T) {
	f := newFixture(t, false)
	rec := f.do(t, http.MethodGet, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	health := decode[responses.HealthResponse](t, rec)
	assert.Equal(t, "healthy", health.Status)
	assert.False(t, health.ScriptLoaded)
	assert.False(t, health.Working)
}

func TestScript_NothingLoaded(t *testing.T) {
	f := newFixture(t, false)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/script").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/script/tree").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/script/reload").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/targets/build/run").Code)
}

func TestScript_Views(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/script")
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[responses.ScriptResponse](t, rec)
	assert.Equal(t, f.file, resp.File)
	assert.Equal(t, "demo", resp.Project)
	assert.Equal(t, "build", resp.DefaultTarget)
	require.Len(t, resp.PublicTargets, 1)
	assert.Equal(t, responses.TargetInfo{Name: "build", Description: "Builds everything", Depends: "init", Line: 3}, resp.PublicTargets[0])
	require.Len(t, resp.PrivateTargets, 2)
	assert.Equal(t, "init", resp.PrivateTargets[0].Name)
	assert.Equal(t, "slow", resp.PrivateTargets[1].Name)
	require.Len(t, resp.Properties, 1)
	assert.Equal(t, responses.PropertyInfo{Element: "property", Name: "configuration", Value: "Release", Line: 2}, resp.Properties[0])
	assert.Empty(t, resp.Includes)
	assert.Equal(t, []string{f.file}, resp.Files)
	assert.Nil(t, resp.Revision, "temp dir is not a git worktree")
}

func TestScript_TreeAndReload(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/api/script/tree?pretty=1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "\n  \"name\": \"project\"")

	require.NoError(t, os.WriteFile(f.file, []byte(`<project><target name="only"/></project>`), 0o600))
	rec = f.do(t, http.MethodPost, "/api/script/reload")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[responses.ReloadResponse](t, rec).Targets)

	require.NoError(t, os.WriteFile(f.file, []byte(`<project>`), 0o600))
	assert.Equal(t, http.StatusUnprocessableEntity, f.do(t, http.MethodPost, "/api/script/reload").Code)
}

func TestCatalog(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "<table>")
	assert.Contains(t, rec.Body.String(), "Builds everything")

	rec = f.do(t, http.MethodGet, "/api/script/catalog.md")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "## Public targets")
}

func TestRunLifecycle(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodPost, "/api/targets/deploy/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/targets/build/run")
	require.Equal(t, http.StatusAccepted, rec.Code)
	trigger := decode[responses.TriggerResponse](t, rec)
	require.NotNil(t, trigger.Run)
	assert.Equal(t, "build", trigger.Run.Target)
	assert.Equal(t, "/bin/sh "+filepath.Join(filepath.Dir(trigger.Run.File), "build.sh"), trigger.Run.Command)
	waitIdle(t, f.ctrl)

	rec = f.do(t, http.MethodGet, "/api/console")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, decode[responses.ConsoleResponse](t, rec).Lines, "building")

	assert.Equal(t, http.StatusNoContent, f.do(t, http.MethodPost, "/api/console/clear").Code)
	assert.Zero(t, f.buffer.Len())
}

func TestRunBusyAndStop(t *testing.T) {
	f := newFixture(t, true)

	require.Equal(t, http.StatusAccepted, f.do(t, http.MethodPost, "/api/targets/slow/run").Code)
	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/api/targets/build/run").Code)

	rec := f.do(t, http.MethodGet, "/api/run?selected=slow")
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[responses.RunStatusResponse](t, rec)
	assert.True(t, status.Working)
	require.NotNil(t, status.Run)
	assert.Equal(t, "slow", status.Run.Target)
	assert.True(t, strings.HasSuffix(status.Run.Command, "/slow.sh"), status.Run.Command)
	assert.Equal(t, responses.ButtonsInfo{Stop: true}, status.Buttons)

	rec = f.do(t, http.MethodPost, "/api/run/stop")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, decode[responses.StopResponse](t, rec).Requested)
	waitIdle(t, f.ctrl)

	rec = f.do(t, http.MethodPost, "/api/run/stop")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[responses.StopResponse](t, rec).Requested)

	status = decode[responses.RunStatusResponse](t, f.do(t, http.MethodGet, "/api/run?selected=build"))
	assert.False(t, status.Working)
	assert.Nil(t, status.Run)
	assert.Equal(t, responses.ButtonsInfo{Start: true, Edit: true, Settings: true, Refresh: true}, status.Buttons)
}

func TestHistory(t *testing.T) {
	f := newFixture(t, true)
	rec := f.do(t, http.MethodGet, "/api/history?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decode[responses.HistoryResponse](t, rec).Runs
	require.Len(t, runs, 1)
	assert.Equal(t, "r2", runs[0].RunID)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/history?limit=zero").Code)
}

func TestHistory_Disabled(t *testing.T) {
	f := newFixture(t, true)
	srv := New(f.ctrl, Options{})
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"runs":[]}`, rec.Body.String())
}

func TestMetricsAndRouting(t *testing.T) {
	f := newFixture(t, true)

	rec := f.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "nantrunner_script_loads_total")

	rec = f.do(t, http.MethodGet, "/api/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/json")

	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodGet, "/api/run/stop").Code)
}

func TestConsoleStream(t *testing.T) {
	f := newFixture(t, true)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/console/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	require.Eventually(t, func() bool { return f.buffer.SubscriberCount() == 1 }, 5*time.Second, 10*time.Millisecond)
	f.buffer.WriteLine("hello stream")

	scanner := bufio.NewScanner(resp.Body)
	var event, data string
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.HasPrefix(line, "event: "):
			event = strings.TrimPrefix(line, "event: ")
		case strings.HasPrefix(line, "data: "):
			data = strings.TrimPrefix(line, "data: ")
		}
		if data != "" {
			break
		}
	}
	assert.Equal(t, "line", event)
	var got console.Event
	require.NoError(t, json.Unmarshal([]byte(data), &got))
	assert.Equal(t, "hello stream", got.Line)

	cancel()
	require.Eventually(t, func() bool { return f.buffer.SubscriberCount() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestStartStop(t *testing.T) {
	f := newFixture(t, true)
	assert.False(t, f.server.IsRunning())
	require.NoError(t, f.server.Start(t.Context()))
	require.Error(t, f.server.Start(t.Context()))
	assert.True(t, f.server.IsRunning())

	addr := f.server.Addr()
	require.NotNil(t, addr)
	resp, err := http.Get("http://" + addr.String() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, f.server.Stop(ctx))
	assert.False(t, f.server.IsRunning())
}
