package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeries(t *testing.T) {
	assert.Equal(t, "eld_batches_total", Series("eld_batches_total"))
	assert.Equal(t, `eld_dispatch_rows_total{outcome="ok"}`, Series("eld_dispatch_rows_total", "outcome", "ok"))
	assert.Equal(t, `m{a="1",b="2"}`, Series("m", "b", "2", "a", "1"))
}

func TestWaitForSeries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) > 2 {
			fmt.Fprintln(w, `eld_generator_output_mw{generator="G4"} 1500`)
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), MetricTimeout)
	defer cancel()
	require.NoError(t, WaitForSeries(ctx, srv.URL, Series("eld_generator_output_mw", "generator", "G4")))

	short, cancelShort := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancelShort()
	err := WaitForSeries(short, srv.URL, Series("eld_batches_total"))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.ErrorContains(t, err, "eld_batches_total")
}
