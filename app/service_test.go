package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/eld/config"
	"github.com/kilianp07/eld/core/factory"
	"github.com/kilianp07/eld/core/dispatch/logging"
	"github.com/kilianp07/eld/core/model"
)

func testConfig(t *testing.T) *config.Config {
	cfg := &config.Config{
		Fleet: model.Fleet{
			{ID: "G1", MinMW: 500, MaxMW: 2500, Cost: model.CostCurve{A: 50, B: 20, C: 0.002}},
			{ID: "G2", MinMW: 1000, MaxMW: 3500, Cost: model.CostCurve{A: 40, B: 18, C: 0.0015}},
		},
	}
	cfg.Logging.Enabled = true
	cfg.Logging.Backend = "jsonl"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "dispatch.log")
	cfg.API.Token = "tok"
	cfg.SetDefaults()
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestService_BatchAndLogs(t *testing.T) {
	svc, err := New(testConfig(t))
	require.NoError(t, err)
	defer func() { assert.NoError(t, svc.Close()) }()

	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	batch, err := svc.RunBatch(context.Background(), []model.DemandPoint{
		{Timestamp: ts, DemandMW: 3000},
		{Timestamp: ts.Add(time.Hour), DemandMW: 9000},
	})
	require.NoError(t, err)
	require.Len(t, batch.Rows, 2)
	assert.True(t, batch.Rows[0].OK())
	assert.False(t, batch.Rows[1].OK())

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/api/dispatch/logs?run_id="+batch.RunID, nil)
	req.Header.Set("Authorization", "Bearer tok")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/api/dispatch", "application/json", strings.NewReader(`{"demand_mw": 3000}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	store, err := logging.NewJSONLStore(svc.cfg.Logging.Path)
	require.NoError(t, err)
	defer func() { _ = store.Close() }()
	recs, err := store.Query(context.Background(), logging.LogQuery{RunID: batch.RunID})
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}

func TestService_InvalidSink(t *testing.T) {
	cfg := testConfig(t)
	cfg.Metrics.Sinks = append(cfg.Metrics.Sinks, factory.ModuleConfig{Type: "missing"})
	_, err := New(cfg)
	assert.Error(t, err)
}
