package test

import (
	"testing"
	"time"

	"github.com/kilianp07/eld/config"
	"github.com/kilianp07/eld/core/model"
)

func referenceConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{Fleet: model.Fleet{
		{ID: "G1", MinMW: 500, MaxMW: 2500, Cost: model.CostCurve{A: 50, B: 20, C: 0.002}},
		{ID: "G2", MinMW: 1000, MaxMW: 3500, Cost: model.CostCurve{A: 40, B: 18, C: 0.0015}},
		{ID: "G3", MinMW: 500, MaxMW: 1500, Cost: model.CostCurve{A: 60, B: 22, C: 0.0025}},
		{ID: "G4", MinMW: 100, MaxMW: 1500, Cost: model.CostCurve{A: 30, B: 15, C: 0.001}},
	}}
	cfg.Log.Level = "warn"
	return cfg
}

func hourly(demands ...float64) []model.DemandPoint {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]model.DemandPoint, len(demands))
	for i, d := range demands {
		out[i] = model.DemandPoint{Timestamp: start.Add(time.Duration(i) * time.Hour), DemandMW: d}
	}
	return out
}
