package logging

import (
	"context"
	"time"
)

// LogRecord captures the dispatch of one forecast step.
type LogRecord struct {
	RunID     string             `json:"run_id"`
	Timestamp time.Time          `json:"timestamp"`
	DemandMW  float64            `json:"demand_mw"`
	OutputsMW map[string]float64 `json:"outputs_mw,omitempty"`
	TotalCost *float64           `json:"total_cost"`
	Lambda    float64            `json:"lambda,omitempty"`
	Outcome   string             `json:"outcome"`
	Error     string             `json:"error,omitempty"`
}

// LogQuery defines filters for retrieving records. Zero values match
// everything.
type LogQuery struct {
	Start   time.Time
	End     time.Time
	RunID   string
	Outcome string
}

func (q LogQuery) match(r LogRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Outcome != "" && r.Outcome != q.Outcome {
		return false
	}
	return true
}

// LogStore persists LogRecords and supports querying.
type LogStore interface {
	Append(ctx context.Context, rec LogRecord) error
	Query(ctx context.Context, q LogQuery) ([]LogRecord, error)
	Close() error
}
