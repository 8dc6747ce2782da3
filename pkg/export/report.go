package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/eld/core/dispatch"
)

// ReportRow is the JSON form of one dispatched row. Nullable fields are nil
// for failed rows.
type ReportRow struct {
	Timestamp  time.Time          `json:"timestamp"`
	DemandMW   float64            `json:"load_demand_mw"`
	OutputsMW  map[string]float64 `json:"outputs_mw"`
	TotalCost  *float64           `json:"total_cost"`
	Lambda     *float64           `json:"lambda"`
	Iterations int                `json:"iterations,omitempty"`
	Outcome    string             `json:"outcome"`
	Error      string             `json:"error,omitempty"`
}

// Report is the JSON document written by WriteJSON.
type Report struct {
	RunID   string           `json:"run_id"`
	Rows    []ReportRow      `json:"rows"`
	Summary dispatch.Summary `json:"summary"`
}

// NewReport converts a batch into its JSON form.
func NewReport(b dispatch.Batch) Report {
	rep := Report{RunID: b.RunID, Rows: make([]ReportRow, len(b.Rows)), Summary: b.Summary()}
	for i, r := range b.Rows {
		row := ReportRow{
			Timestamp: r.Timestamp,
			DemandMW:  r.DemandMW,
			TotalCost: r.TotalCost,
			Outcome:   dispatch.Outcome(r.Err),
		}
		if r.OK() {
			row.OutputsMW = make(map[string]float64, len(b.Generators))
			for j, id := range b.Generators {
				row.OutputsMW[id] = r.OutputsMW[j]
			}
			lambda := r.Lambda
			row.Lambda = &lambda
			row.Iterations = r.Iterations
		} else {
			row.Error = r.Err.Error()
		}
		rep.Rows[i] = row
	}
	return rep
}

// WriteJSON writes the batch report to w in JSON format.
func WriteJSON(w io.Writer, b dispatch.Batch) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(b))
}

// WriteCSV writes one line per row with the columns timestamp,
// load_demand_mw, one <generator>_mw column per generator and total_cost.
// Cells of failed rows are left empty.
func WriteCSV(w io.Writer, b dispatch.Batch) error {
	cw := csv.NewWriter(w)
	header := make([]string, 0, len(b.Generators)+3)
	header = append(header, "timestamp", "load_demand_mw")
	for _, id := range b.Generators {
		header = append(header, id+"_mw")
	}
	header = append(header, "total_cost")
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range b.Rows {
		rec := make([]string, len(header))
		rec[0] = r.Timestamp.Format(time.RFC3339)
		rec[1] = formatFloat(r.DemandMW)
		if r.OK() {
			for j, p := range r.OutputsMW {
				rec[2+j] = formatFloat(p)
			}
			rec[len(rec)-1] = formatFloat(*r.TotalCost)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
