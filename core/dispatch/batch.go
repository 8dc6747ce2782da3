package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/eld/core/dispatch/logging"
	"github.com/kilianp07/eld/core/logger"
	"github.com/kilianp07/eld/core/metrics"
	"github.com/kilianp07/eld/core/model"
	"github.com/kilianp07/eld/core/mqtt"
)

// Row is the dispatch outcome for one forecast step. OutputsMW and TotalCost
// are nil when the step could not be dispatched; Err then holds the reason.
type Row struct {
	Timestamp  time.Time
	DemandMW   float64
	OutputsMW  []float64
	TotalCost  *float64
	Lambda     float64
	Iterations int
	Err        error
}

// OK reports whether the row was dispatched.
func (r Row) OK() bool { return r.Err == nil }

// Batch is the result of one BatchRunner.Run call. Rows follow input order.
type Batch struct {
	RunID      string
	Generators []string
	Rows       []Row
}

// Summary computes the aggregate statistics of the batch.
func (b Batch) Summary() Summary { return Summarize(b.Generators, b.Rows) }

// BatchRunner dispatches a sequence of demand points against a fixed fleet.
type BatchRunner struct {
	fleet     model.Fleet
	cfg       Config
	logger    logger.Logger
	metrics   metrics.MetricsSink
	store     logging.LogStore
	publisher mqtt.Publisher
}

// NewBatchRunner validates the fleet and settings and returns a runner.
// A nil sink disables metrics recording.
func NewBatchRunner(fleet model.Fleet, cfg Config, log logger.Logger, sink metrics.MetricsSink) (*BatchRunner, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, &InvalidInputError{Generator: -1, Reason: err.Error()}
	}
	if err := ValidateFleet(fleet); err != nil {
		return nil, err
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	cp := make(model.Fleet, len(fleet))
	copy(cp, fleet)
	return &BatchRunner{fleet: cp, cfg: cfg, logger: log, metrics: sink}, nil
}

// SetLogStore configures the store receiving one record per dispatched row.
func (b *BatchRunner) SetLogStore(store logging.LogStore) { b.store = store }

// SetPublisher configures where generator setpoints are sent after a run.
func (b *BatchRunner) SetPublisher(p mqtt.Publisher) { b.publisher = p }

// Run dispatches every point. Rows are independent: a point that cannot be
// dispatched yields a failed row and the batch continues. Only context
// cancellation aborts the run.
func (b *BatchRunner) Run(ctx context.Context, points []model.DemandPoint) (Batch, error) {
	batch := Batch{
		RunID:      uuid.NewString(),
		Generators: b.fleet.Labels(),
		Rows:       make([]Row, len(points)),
	}
	start := time.Now()
	b.logger.Infof("batch %s: dispatching %d points over %d generators", batch.RunID, len(points), len(b.fleet))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.cfg.Workers)
	for i, p := range points {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			batch.Rows[i] = b.dispatchRow(p)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Batch{}, fmt.Errorf("batch %s: %w", batch.RunID, err)
	}
	if err := ctx.Err(); err != nil {
		return Batch{}, fmt.Errorf("batch %s: %w", batch.RunID, err)
	}

	sum := batch.Summary()
	b.logger.Infof("batch %s: %d/%d points dispatched in %s, average cost %.2f",
		batch.RunID, sum.Succeeded, sum.Rows, time.Since(start), sum.AverageCost)
	b.report(ctx, batch, sum, time.Since(start))
	return batch, nil
}

func (b *BatchRunner) dispatchRow(p model.DemandPoint) Row {
	row := Row{Timestamp: p.Timestamp, DemandMW: p.DemandMW}
	if p.Err != nil {
		row.Err = &InvalidInputError{Generator: -1, Reason: p.Err.Error()}
		b.logger.Warnf("error at %s: %v", p.Timestamp.Format(time.RFC3339), row.Err)
		return row
	}
	res, err := Dispatch(Request{
		DemandMW:      p.DemandMW,
		Fleet:         b.fleet,
		Tolerance:     b.cfg.Tolerance,
		MaxIterations: b.cfg.MaxIterations,
	})
	if err != nil {
		b.logger.Warnf("error at %s: %v", p.Timestamp.Format(time.RFC3339), err)
		row.Err = err
		return row
	}
	cost := res.TotalCost
	row.OutputsMW = res.OutputsMW
	row.TotalCost = &cost
	row.Lambda = res.Lambda
	row.Iterations = res.Iterations
	b.logger.Debugw("dispatched", map[string]any{
		"timestamp":  p.Timestamp,
		"demand_mw":  p.DemandMW,
		"lambda":     res.Lambda,
		"iterations": res.Iterations,
	})
	return row
}

// report forwards the batch to the optional sinks. Failures are logged and
// never invalidate the computed rows.
func (b *BatchRunner) report(ctx context.Context, batch Batch, sum Summary, elapsed time.Duration) {
	events := make([]metrics.DispatchEvent, len(batch.Rows))
	for i, r := range batch.Rows {
		events[i] = b.event(batch, r)
	}
	if err := b.metrics.RecordDispatch(events); err != nil {
		b.logger.Errorf("record dispatch metrics: %v", err)
	}
	if rec, ok := b.metrics.(metrics.BatchRecorder); ok {
		ev := metrics.BatchEvent{
			RunID:       batch.RunID,
			Rows:        sum.Rows,
			Failed:      sum.Failed,
			AverageCost: sum.AverageCost,
			Duration:    elapsed,
			Time:        time.Now(),
		}
		if err := rec.RecordBatch(ev); err != nil {
			b.logger.Errorf("record batch metrics: %v", err)
		}
	}
	if b.store != nil {
		for _, r := range batch.Rows {
			if err := b.store.Append(ctx, logRecord(batch, r)); err != nil {
				b.logger.Errorf("append dispatch log: %v", err)
				break
			}
		}
	}
	if b.publisher != nil {
		for _, r := range batch.Rows {
			if !r.OK() {
				continue
			}
			if err := b.publisher.PublishSetpoints(batch.RunID, r.Timestamp, setpoints(batch.Generators, r.OutputsMW)); err != nil {
				b.logger.Errorf("publish setpoints at %s: %v", r.Timestamp.Format(time.RFC3339), err)
			}
		}
	}
}

func (b *BatchRunner) event(batch Batch, r Row) metrics.DispatchEvent {
	ev := metrics.DispatchEvent{
		RunID:      batch.RunID,
		Timestamp:  r.Timestamp,
		DemandMW:   r.DemandMW,
		Generators: batch.Generators,
		OutputsMW:  r.OutputsMW,
		Lambda:     r.Lambda,
		Iterations: r.Iterations,
		Outcome:    Outcome(r.Err),
	}
	if r.TotalCost != nil {
		ev.TotalCost = *r.TotalCost
	}
	return ev
}

func logRecord(batch Batch, r Row) logging.LogRecord {
	rec := logging.LogRecord{
		RunID:     batch.RunID,
		Timestamp: r.Timestamp,
		DemandMW:  r.DemandMW,
		TotalCost: r.TotalCost,
		Outcome:   Outcome(r.Err),
	}
	if r.OK() {
		rec.OutputsMW = setpoints(batch.Generators, r.OutputsMW)
		rec.Lambda = r.Lambda
	} else {
		rec.Error = r.Err.Error()
	}
	return rec
}

func setpoints(ids []string, outputs []float64) map[string]float64 {
	m := make(map[string]float64, len(ids))
	for i, id := range ids {
		m[id] = outputs[i]
	}
	return m
}
