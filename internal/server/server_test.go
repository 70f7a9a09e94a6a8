package server

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/marketplace/internal/errors"
	"github.com/vango-dev/marketplace/internal/installer"
	"github.com/vango-dev/marketplace/internal/registry"
	"github.com/vango-dev/marketplace/internal/telemetry"
)

func testCatalog(t *testing.T) *registry.Registry {
	t.Helper()
	reg := registry.New(nil)
	entries := []*registry.Entry{
		{
			Metadata: registry.Metadata{
				Namespace: "acme", Name: "widget", Description: "A widget",
				Category: registry.CategoryUtility, Featured: true,
			},
			Versions: []string{"1.0", "2.0"},
		},
		{
			Metadata: registry.Metadata{
				Namespace: "acme", Name: "linter", Description: "Finds lint",
				Category: registry.CategoryLinting,
			},
			Versions: []string{"0.1.0"},
			Settings: map[string]registry.SettingSpec{
				"strict": {Type: registry.SettingBoolean},
			},
		},
		{
			Metadata: registry.Metadata{
				Namespace: "other", Name: "gadget", Description: "Not a widget",
				Category: registry.CategoryUtility,
			},
			Versions: []string{"3.0"},
		},
	}
	for _, e := range entries {
		require.NoError(t, reg.Register(e))
	}
	return reg
}

type fixture struct {
	server    *Server
	installer *installer.Installer
	registry  *prometheus.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	promReg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics(telemetry.WithRegistry(promReg))
	hub := NewEventHub(nil, metrics)

	cat := testCatalog(t)
	inst, err := installer.New(t.TempDir(), cat,
		installer.WithMetrics(metrics),
		installer.OnChange(hub.Publish),
	)
	require.NoError(t, err)

	srv := New(Options{Registry: cat, Installer: inst, Events: hub, Metrics: metrics})
	return &fixture{server: srv, installer: inst, registry: promReg}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func keys(entries []*registry.Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Identity().String()
	}
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.EqualValues(t, 3, body["plugins"])
	assert.EqualValues(t, 0, body["installed"])
}

func TestListPlugins(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name  string
		query string
		want  []string
		total int
	}{
		{"all", "", []string{"acme/widget", "acme/linter", "other/gadget"}, 3},
		{"search", "?q=widget", []string{"acme/widget", "other/gadget"}, 2},
		{"category", "?category=utility", []string{"acme/widget", "other/gadget"}, 2},
		{"featured", "?featured=true", []string{"acme/widget"}, 1},
		{"search and category", "?q=acme&category=linting", []string{"acme/linter"}, 1},
		{"paged", "?per_page=2&page=2", []string{"other/gadget"}, 3},
		{"past the end", "?page=9", []string{}, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodGet, "/api/v1/plugins"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			result := decode[registry.SearchResult](t, rec)
			assert.Equal(t, tt.want, keys(result.Entries))
			assert.Equal(t, tt.total, result.Total)
		})
	}
}

func TestListPlugins_BadFilters(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/plugins?category=games", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, errors.CodeInvalidConfigValue, decode[errorResponse](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/plugins?featured=maybe", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetPlugin(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/plugins/acme/widget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "2.0", body["latestVersion"])
	assert.NotContains(t, body, "installed")

	_, err := f.installer.Install(context.Background(), "acme", "widget", "1.0")
	require.NoError(t, err)

	rec = f.do(t, http.MethodGet, "/api/v1/plugins/acme/widget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode[map[string]any](t, rec)
	require.Contains(t, body, "installed")

	rec = f.do(t, http.MethodGet, "/api/v1/plugins/acme/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeNotFound, decode[errorResponse](t, rec).Code)
}

func TestInstallLifecycle(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/installed/acme/widget?version=1.0", "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	res := decode[installer.Result](t, rec)
	assert.True(t, res.OK)
	assert.Equal(t, "1.0", res.Version)

	rec = f.do(t, http.MethodPost, "/api/v1/installed/acme/widget", "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, errors.CodeAlreadyInstalled, decode[installer.Result](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/installed/acme/widget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1.0", decode[*installer.Plugin](t, rec).Version())

	rec = f.do(t, http.MethodGet, "/api/v1/outdated", "")
	require.Equal(t, http.StatusOK, rec.Code)
	outdated := decode[map[string][]installer.Outdated](t, rec)["plugins"]
	require.Len(t, outdated, 1)
	assert.Equal(t, "2.0", outdated[0].Latest)

	rec = f.do(t, http.MethodPost, "/api/v1/installed/acme/widget/update", "")
	require.Equal(t, http.StatusOK, rec.Code)
	res = decode[installer.Result](t, rec)
	assert.True(t, res.Changed)
	assert.Equal(t, "2.0", res.Version)

	rec = f.do(t, http.MethodGet, "/api/v1/installed", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[map[string][]installer.Plugin](t, rec)["plugins"], 1)

	rec = f.do(t, http.MethodDelete, "/api/v1/installed/acme/widget", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, f.installer.IsInstalled("acme", "widget"))

	rec = f.do(t, http.MethodDelete, "/api/v1/installed/acme/widget", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, errors.CodeNotInstalled, decode[installer.Result](t, rec).Code)
}

func TestInstall_StatusMapping(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/installed/acme/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/v1/installed/acme/widget?version=9.9", "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, errors.CodeInvalidVersion, decode[installer.Result](t, rec).Code)

	rec = f.do(t, http.MethodGet, "/api/v1/installed/acme/widget", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConfig(t *testing.T) {
	f := newFixture(t)
	_, err := f.installer.Install(context.Background(), "acme", "linter", "")
	require.NoError(t, err)

	rec := f.do(t, http.MethodPatch, "/api/v1/installed/acme/linter/config",
		`{"enabled": false, "settings": {"strict": true}}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[configResponse](t, rec)
	assert.Len(t, resp.Results, 2)
	require.NotNil(t, resp.Plugin)
	assert.False(t, resp.Plugin.Config.Enabled)
	assert.Equal(t, true, resp.Plugin.Config.Settings["strict"])

	rec = f.do(t, http.MethodPatch, "/api/v1/installed/acme/linter/config", `{"unset": ["strict"]}`)
	require.Equal(t, http.StatusOK, rec.Code)
	p, _ := f.installer.Get("acme", "linter")
	assert.NotContains(t, p.Config.Settings, "strict")

	rec = f.do(t, http.MethodPatch, "/api/v1/installed/acme/linter/config", `{"settings": {"colour": "red"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	resp = decode[configResponse](t, rec)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, errors.CodeUnknownSetting, resp.Results[0].Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/installed/acme/linter/config", `{"settings": {"strict": "yes"}}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/installed/acme/linter/config", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodPatch, "/api/v1/installed/acme/widget/config", `{"enabled": true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t)

	f.do(t, http.MethodGet, "/healthz", "")
	f.do(t, http.MethodPost, "/api/v1/installed/acme/widget", "")

	rec := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "marketplace_http_requests_total")
	assert.Contains(t, body, `route="/healthz"`)
	assert.Contains(t, body, "marketplace_operations_total")
	assert.Contains(t, body, "marketplace_installed_plugins 1")
}

func TestEventStream(t *testing.T) {
	f := newFixture(t)
	ts := httptest.NewServer(f.server.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	hub := f.server.Events()
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(ts.URL+"/api/v1/installed/acme/widget", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var ev installer.Event
	require.NoError(t, json.Unmarshal(data, &ev))
	assert.Equal(t, installer.EventInstalled, ev.Type)
	assert.Equal(t, "acme/widget", ev.Plugin)
	assert.Equal(t, "2.0", ev.Version)
	assert.NotEmpty(t, ev.ID)

	conn.Close()
	require.Eventually(t, func() bool { return hub.ClientCount() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestServe_GracefulShutdown(t *testing.T) {
	f := newFixture(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- f.server.Serve(ctx, ln) }()

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + ln.Addr().String() + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
