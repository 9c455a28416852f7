package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gridwatch/alertflow/internal/engine"
	"github.com/gridwatch/alertflow/internal/models"
	"github.com/gridwatch/alertflow/internal/snapshot"
)

type fakeSnapshots struct {
	snap      *snapshot.Snapshot
	refreshed int
}

func (f *fakeSnapshots) Current() *snapshot.Snapshot { return f.snap }
func (f *fakeSnapshots) ForceRefresh()               { f.refreshed++ }

type fakeStats struct {
	stats engine.StatsSnapshot
}

func (f *fakeStats) Stats() engine.StatsSnapshot { return f.stats }

func testSnapshots() *fakeSnapshots {
	return &fakeSnapshots{
		snap: snapshot.New(
			[]*models.AlertRule{
				{ID: 1, Name: "high-temperature", MetricName: "temperature", Operator: ">", Threshold: 80, Level: models.SeverityError, ConsecutiveCount: 1, Enabled: true},
			},
			[]*models.AlertTemplate{
				{ID: 1, Name: "default", TitleTemplate: "[${level}] ${metricName}", MessageTemplate: "value ${value}", Enabled: true},
			},
			[]*models.AlertReceiver{
				{ID: 1, Name: "oncall", Type: models.ReceiverEmail, Contact: "oncall@example.com", Enabled: true},
			},
		),
	}
}

func testServer(t *testing.T, cfg *Config) (*Server, *fakeSnapshots) {
	t.Helper()
	if cfg == nil {
		cfg = &Config{}
	}
	snaps := testSnapshots()
	srv, err := New(cfg, snaps, &fakeStats{stats: engine.StatsSnapshot{RecordsEvaluated: 10, AlertsEmitted: 2}})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return srv, snaps
}

func doRequest(srv *Server, method, path string, header http.Header) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q", resp.Status)
	}
}

type failingChecker struct{ err error }

func (c *failingChecker) Name() string                  { return "dep" }
func (c *failingChecker) Check(_ context.Context) error { return c.err }

func TestReadyEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)
	checker := &failingChecker{}
	srv.RegisterHealthChecker(checker)

	rec := doRequest(srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthy checker: status = %d, want 200", rec.Code)
	}

	checker.err = fmt.Errorf("connection refused")
	rec = doRequest(srv, http.MethodGet, "/readyz", nil)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("failing checker: status = %d, want 503", rec.Code)
	}

	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "not_ready" || resp.Checks["dep"] != "connection refused" {
		t.Errorf("response = %+v", resp)
	}
}

func TestListEndpoints(t *testing.T) {
	srv, _ := testServer(t, nil)

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/rules", "high-temperature"},
		{"/api/v1/templates", "${level}"},
		{"/api/v1/receivers", "oncall@example.com"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := doRequest(srv, http.MethodGet, tt.path, nil)
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			body := rec.Body.String()
			if !json.Valid([]byte(body)) {
				t.Fatalf("invalid JSON: %s", body)
			}
			if !strings.Contains(body, tt.want) {
				t.Errorf("body %s missing %q", body, tt.want)
			}
		})
	}
}

func TestStatsEndpoint(t *testing.T) {
	srv, _ := testServer(t, nil)

	rec := doRequest(srv, http.MethodGet, "/api/v1/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Data statsResponse `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Data.Engine.RecordsEvaluated != 10 || resp.Data.Engine.AlertsEmitted != 2 {
		t.Errorf("engine stats = %+v", resp.Data.Engine)
	}
	if resp.Data.Rules != 1 || resp.Data.Templates != 1 || resp.Data.Receivers != 1 {
		t.Errorf("snapshot counts = %+v", resp.Data)
	}
}

func TestRefreshEndpoint(t *testing.T) {
	srv, snaps := testServer(t, nil)

	rec := doRequest(srv, http.MethodPost, "/api/v1/refresh", nil)
	if rec.Code != http.StatusAccepted {
		t.Errorf("status = %d, want 202", rec.Code)
	}
	if snaps.refreshed != 1 {
		t.Errorf("refreshed = %d, want 1", snaps.refreshed)
	}
}

func TestJWTAuth(t *testing.T) {
	secret := []byte("test-secret")
	srv, _ := testServer(t, &Config{AuthSecret: secret})

	// No token.
	rec := doRequest(srv, http.MethodGet, "/api/v1/rules", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status = %d, want 401", rec.Code)
	}

	// Garbage token.
	rec = doRequest(srv, http.MethodGet, "/api/v1/rules", http.Header{
		"Authorization": []string{"Bearer not-a-token"},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status = %d, want 401", rec.Code)
	}

	// Valid token.
	token, err := NewJWTService(secret, time.Hour).GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	rec = doRequest(srv, http.MethodGet, "/api/v1/rules", http.Header{
		"Authorization": []string{"Bearer " + token},
	})
	if rec.Code != http.StatusOK {
		t.Errorf("valid token: status = %d, want 200", rec.Code)
	}

	// Token signed with a different secret.
	other, err := NewJWTService([]byte("other-secret"), time.Hour).GenerateToken("ops")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	rec = doRequest(srv, http.MethodGet, "/api/v1/rules", http.Header{
		"Authorization": []string{"Bearer " + other},
	})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("wrong secret: status = %d, want 401", rec.Code)
	}

	// Probes stay public.
	rec = doRequest(srv, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz with auth enabled: status = %d, want 200", rec.Code)
	}
}
