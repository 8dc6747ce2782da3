package dispatch

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// GeneratorStats aggregates one generator's output over successful rows.
type GeneratorStats struct {
	ID     string  `json:"id"`
	MeanMW float64 `json:"mean_mw"`
	MaxMW  float64 `json:"max_mw"`
	MinMW  float64 `json:"min_mw"`
}

// Summary aggregates a batch. Statistics only cover successful rows and are
// zero when none succeeded.
type Summary struct {
	Rows        int              `json:"rows"`
	Succeeded   int              `json:"succeeded"`
	Failed      int              `json:"failed"`
	AverageCost float64          `json:"average_cost"`
	Generators  []GeneratorStats `json:"generators"`
}

// Summarize computes average cost and per-generator output statistics.
func Summarize(ids []string, rows []Row) Summary {
	s := Summary{Rows: len(rows), Generators: make([]GeneratorStats, len(ids))}
	costs := make([]float64, 0, len(rows))
	outputs := make([][]float64, len(ids))
	for _, r := range rows {
		if !r.OK() {
			s.Failed++
			continue
		}
		s.Succeeded++
		costs = append(costs, *r.TotalCost)
		for i := range ids {
			outputs[i] = append(outputs[i], r.OutputsMW[i])
		}
	}
	for i, id := range ids {
		s.Generators[i].ID = id
		if s.Succeeded == 0 {
			continue
		}
		s.Generators[i].MeanMW = stat.Mean(outputs[i], nil)
		s.Generators[i].MaxMW = floats.Max(outputs[i])
		s.Generators[i].MinMW = floats.Min(outputs[i])
	}
	if s.Succeeded > 0 {
		s.AverageCost = stat.Mean(costs, nil)
	}
	return s
}
