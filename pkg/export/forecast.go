package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/eld/core/model"
)

// Default forecast column names.
const (
	DefaultTimestampColumn = "ds"
	DefaultDemandColumn    = "yhat"
)

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ForecastColumns names the forecast CSV columns to read.
type ForecastColumns struct {
	Timestamp string `json:"timestamp"`
	Demand    string `json:"demand"`
}

// SetDefaults fills empty column names.
func (c *ForecastColumns) SetDefaults() {
	if c.Timestamp == "" {
		c.Timestamp = DefaultTimestampColumn
	}
	if c.Demand == "" {
		c.Demand = DefaultDemandColumn
	}
}

// ReadForecast parses a demand forecast with a header row. Extra columns are
// ignored. A demand cell that is blank or not a number does not stop the read:
// the point carries the parse error in Err and later shows up as a failed row.
// Range checks are left to the solver.
func ReadForecast(r io.Reader, cols ForecastColumns) ([]model.DemandPoint, error) {
	cols.SetDefaults()
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("forecast: empty input")
		}
		return nil, fmt.Errorf("forecast header: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff"))
	}
	tsIdx, err := columnIndex(header, cols.Timestamp)
	if err != nil {
		return nil, err
	}
	dIdx, err := columnIndex(header, cols.Demand)
	if err != nil {
		return nil, err
	}

	var points []model.DemandPoint
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("forecast: %w", err)
		}
		line, _ := cr.FieldPos(0)
		ts, err := parseTimestamp(rec[tsIdx])
		if err != nil {
			return nil, fmt.Errorf("forecast line %d: %w", line, err)
		}
		pt := model.DemandPoint{Timestamp: ts}
		d, err := strconv.ParseFloat(strings.TrimSpace(rec[dIdx]), 64)
		if err != nil {
			pt.Err = fmt.Errorf("forecast line %d: invalid %s %q", line, cols.Demand, rec[dIdx])
		} else {
			pt.DemandMW = d
		}
		points = append(points, pt)
	}
	return points, nil
}

func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if h == name {
			return i, nil
		}
	}
	return -1, fmt.Errorf("forecast: column %q not found (available: %s)", name, strings.Join(header, ", "))
}

func parseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
