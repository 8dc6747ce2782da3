package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/eld/core/metrics"
	"github.com/kilianp07/eld/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDispatch writes one eld_dispatch point per row. Successful rows carry
// one field per generator output.
func (s *InfluxSink) RecordDispatch(events []coremetrics.DispatchEvent) error {
	if len(events) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(events))
	for _, ev := range events {
		points = append(points, dispatchPoint(ev))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

func dispatchPoint(ev coremetrics.DispatchEvent) *write.Point {
	p := write.NewPointWithMeasurement("eld_dispatch").
		AddTag("run_id", ev.RunID).
		AddTag("outcome", ev.Outcome).
		AddField("demand_mw", round3(ev.DemandMW))
	if ev.OutputsMW != nil {
		for i, id := range ev.Generators {
			p.AddField(id+"_mw", round3(ev.OutputsMW[i]))
		}
		p.AddField("total_cost", round3(ev.TotalCost)).
			AddField("lambda", ev.Lambda).
			AddField("iterations", ev.Iterations)
	}
	return p.SetTime(ev.Timestamp)
}

// RecordBatch persists the summary of a batch run.
func (s *InfluxSink) RecordBatch(ev coremetrics.BatchEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("eld_batch").
		AddTag("run_id", ev.RunID).
		AddField("rows", ev.Rows).
		AddField("failed", ev.Failed).
		AddField("average_cost", round3(ev.AverageCost)).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
