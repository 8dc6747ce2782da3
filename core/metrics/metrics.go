package metrics

import "time"

// DispatchEvent is one dispatched forecast step to be recorded. OutputsMW is
// nil and TotalCost zero when Outcome is not "ok".
type DispatchEvent struct {
	RunID      string
	Timestamp  time.Time
	DemandMW   float64
	Generators []string
	OutputsMW  []float64
	TotalCost  float64
	Lambda     float64
	Iterations int
	Outcome    string
}

// MetricsSink records dispatch events for observability purposes.
type MetricsSink interface {
	RecordDispatch(events []DispatchEvent) error
}

// BatchEvent summarises one batch run.
type BatchEvent struct {
	RunID       string
	Rows        int
	Failed      int
	AverageCost float64
	Duration    time.Duration
	Time        time.Time
}

// BatchRecorder is implemented by sinks able to record batch summaries.
type BatchRecorder interface {
	RecordBatch(ev BatchEvent) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordDispatch([]DispatchEvent) error { return nil }

func (NopSink) RecordBatch(BatchEvent) error { return nil }

// Ensure NopSink implements MetricsSink and BatchRecorder.
var (
	_ MetricsSink   = NopSink{}
	_ BatchRecorder = NopSink{}
)
