package export

import (
	"fmt"
	"io"

	"github.com/kilianp07/eld/core/dispatch"
)

// WriteSummary prints the human readable batch statistics.
func WriteSummary(w io.Writer, s dispatch.Summary) error {
	if _, err := fmt.Fprintf(w, "\nSummary Statistics:\nRows: %d dispatched, %d failed\nAverage Total Cost: $%.2f\n\nGeneration Statistics (MW):\n",
		s.Succeeded, s.Failed, s.AverageCost); err != nil {
		return err
	}
	for _, g := range s.Generators {
		if _, err := fmt.Fprintf(w, "Generator %s:\n  Average: %.2f\n  Maximum: %.2f\n  Minimum: %.2f\n",
			g.ID, g.MeanMW, g.MaxMW, g.MinMW); err != nil {
			return err
		}
	}
	return nil
}
