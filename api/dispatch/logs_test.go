package dispatch

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kilianp07/eld/core/dispatch/logging"
)

func seededStore(t *testing.T) logging.LogStore {
	t.Helper()
	store, err := logging.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	cost := 100.0
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	recs := []logging.LogRecord{
		{RunID: "r1", Timestamp: base, DemandMW: 3000, OutputsMW: map[string]float64{"G1": 3000}, TotalCost: &cost, Lambda: 20, Outcome: "ok"},
		{RunID: "r1", Timestamp: base.Add(time.Hour), DemandMW: 12000, Outcome: "infeasible", Error: "infeasible"},
		{RunID: "r2", Timestamp: base.Add(2 * time.Hour), DemandMW: 3100, TotalCost: &cost, Outcome: "ok"},
	}
	for _, r := range recs {
		if err := store.Append(context.Background(), r); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	return store
}

func getLogs(t *testing.T, h http.Handler, url, token string) (int, []logging.LogRecord) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, url, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	var out []logging.LogRecord
	if rr.Code == http.StatusOK {
		if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
	}
	return rr.Code, out
}

func TestLogHandler_AuthAndFilters(t *testing.T) {
	h := NewLogHandler(seededStore(t), "tok")

	code, out := getLogs(t, h, "/api/dispatch/logs?run_id=r1", "tok")
	if code != http.StatusOK || len(out) != 2 {
		t.Fatalf("run filter: status %d, %d records", code, len(out))
	}
	code, out = getLogs(t, h, "/api/dispatch/logs?outcome=infeasible", "tok")
	if code != http.StatusOK || len(out) != 1 || out[0].DemandMW != 12000 {
		t.Fatalf("outcome filter: status %d, %+v", code, out)
	}
	code, out = getLogs(t, h, "/api/dispatch/logs?start=2024-01-01T01:30:00Z", "tok")
	if code != http.StatusOK || len(out) != 1 || out[0].RunID != "r2" {
		t.Fatalf("start filter: status %d, %+v", code, out)
	}
	code, out = getLogs(t, h, "/api/dispatch/logs?run_id=none", "tok")
	if code != http.StatusOK || len(out) != 0 {
		t.Fatalf("empty result: status %d, %+v", code, out)
	}

	// unauthorized
	if code, _ := getLogs(t, h, "/api/dispatch/logs", ""); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", code)
	}
	if code, _ := getLogs(t, h, "/api/dispatch/logs?end=yesterday", "tok"); code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", code)
	}
}

func TestLogHandler_NoToken(t *testing.T) {
	h := NewLogHandler(seededStore(t), "")
	if code, out := getLogs(t, h, "/api/dispatch/logs", ""); code != http.StatusOK || len(out) != 3 {
		t.Fatalf("status %d, %d records", code, len(out))
	}
}
