package test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/kilianp07/eld/app"
	"github.com/kilianp07/eld/core/dispatch/logging"
	"github.com/kilianp07/eld/core/factory"
	"github.com/kilianp07/eld/test/util"
)

func TestBatchMetricsAndAuditLog(t *testing.T) {
	cfg := referenceConfig(t)
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	cfg.Logging.Enabled = true
	cfg.Logging.Backend = "sqlite"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "dispatch.db")
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("config: %v", err)
	}

	svc, err := app.New(cfg)
	if err != nil {
		t.Fatalf("service: %v", err)
	}
	defer func() { _ = svc.Close() }()

	batch, err := svc.RunBatch(context.Background(), hourly(5711.158, 12000, 4000))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if sum := batch.Summary(); sum.Succeeded != 2 || sum.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}

	srv := httptest.NewServer(svc.Handler())
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), util.MetricTimeout)
	defer cancel()
	err = util.WaitForSeries(ctx, srv.URL+"/metrics",
		util.Series("eld_dispatch_rows_total", "outcome", "infeasible"),
		util.Series("eld_generator_output_mw", "generator", "G4"),
		util.Series("eld_solve_total", "outcome", "ok"),
		util.Series("eld_batches_total"),
	)
	if err != nil {
		t.Fatalf("metric wait: %v", err)
	}

	resp, err := http.Get(srv.URL + "/api/dispatch/logs?run_id=" + batch.RunID + "&outcome=ok")
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	var recs []logging.LogRecord
	if err := json.NewDecoder(resp.Body).Decode(&recs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 ok records, got %d", len(recs))
	}
	if got := recs[0].OutputsMW["G4"]; got != 1500 {
		t.Errorf("G4 setpoint %v", got)
	}
}
