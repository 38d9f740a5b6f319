package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/proxima-sim/proxima/pkg/command"
	"github.com/proxima-sim/proxima/pkg/config"
	"github.com/proxima-sim/proxima/pkg/kernel"
	"github.com/proxima-sim/proxima/pkg/store"
)

func newTestServer(t *testing.T) (*Server, store.Store, *kernel.Kernel) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	rw := &config.ResolvedWorld{
		Experiment:  config.ExperimentConfig{ID: "exp-api", Seed: 1},
		Environment: config.EnvironmentConfig{DistanceKm: 384400, SolarInputKWh: 500},
		Sectors: []config.SectorComposition{
			{SectorID: "energy"}, {SectorID: "manufacturing"}, {SectorID: "construction"},
			{SectorID: "equipment"}, {SectorID: "transportation"}, {SectorID: "science"},
		},
	}
	k, err := kernel.New(rw, 1)
	require.NoError(t, err)
	s := store.NewMemory()
	return NewServer(k, s, nil), s, k
}

func router(s *Server) *gin.Engine {
	r := gin.New()
	s.Register(r)
	return r
}

func TestHealthReportsStepAndPauseState(t *testing.T) {
	s, _, k := newTestServer(t)
	k.Step()

	rec := httptest.NewRecorder()
	router(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["t"])
	assert.Equal(t, false, body["paused"])
}

func TestStatusListsRegisteredPolicies(t *testing.T) {
	gin.SetMode(gin.TestMode)
	rw := &config.ResolvedWorld{
		Experiment:  config.ExperimentConfig{ID: "exp-api", Seed: 1},
		Environment: config.EnvironmentConfig{DistanceKm: 384400, SolarInputKWh: 500},
		Sectors: []config.SectorComposition{
			{SectorID: "energy"}, {SectorID: "manufacturing"}, {SectorID: "construction"},
			{SectorID: "equipment"}, {SectorID: "transportation"}, {SectorID: "science"},
		},
		Policies: []config.PolicyConfig{{
			ID: "dust_throttle", Type: "dust_throttle", Enabled: true,
			Params: map[string]any{"dust_metric_id": "dust_coverage", "dust_target": 0.8, "sectors": []any{"science"}},
		}},
	}
	k, err := kernel.New(rw, 1)
	require.NoError(t, err)
	s := NewServer(k, store.NewMemory(), nil)

	rec := httptest.NewRecorder()
	router(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/status", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	policies := body["policies"].(map[string]any)
	assert.Equal(t, true, policies["PLCY-DUST-THROTTLE"])
}

func TestLogReturnsLastStepLog(t *testing.T) {
	s, _, k := newTestServer(t)
	k.Step()
	k.Step()

	rec := httptest.NewRecorder()
	router(s).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/log", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, float64(1), body["t"])
}

func TestPostCommandEnqueuesAndDrainApplies(t *testing.T) {
	s, st, k := newTestServer(t)

	body := strings.NewReader(`{"kind":"pause","payload":null}`)
	req := httptest.NewRequest(http.MethodPost, "/commands", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router(s).ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	n, err := command.Drain(context.Background(), st, k)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.True(t, k.Paused())
}
