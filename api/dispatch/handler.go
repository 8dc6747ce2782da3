package dispatch

import (
	"encoding/json"
	"errors"
	"net/http"

	coredispatch "github.com/kilianp07/eld/core/dispatch"
	"github.com/kilianp07/eld/core/logger"
	"github.com/kilianp07/eld/core/model"
)

// Request is the body accepted by POST /api/dispatch. Fleet is optional and
// replaces the configured fleet for this call only.
type Request struct {
	DemandMW      float64     `json:"demand_mw"`
	Fleet         model.Fleet `json:"fleet,omitempty"`
	Tolerance     float64     `json:"tolerance,omitempty"`
	MaxIterations int         `json:"max_iterations,omitempty"`
}

// Response is the successful dispatch of one demand value.
type Response struct {
	OutputsMW  map[string]float64 `json:"outputs_mw"`
	TotalCost  float64            `json:"total_cost"`
	Lambda     float64            `json:"lambda"`
	Iterations int                `json:"iterations"`
}

// ErrorResponse describes a failed dispatch.
type ErrorResponse struct {
	Outcome string `json:"outcome"`
	Error   string `json:"error"`
}

// NewDispatchHandler returns an HTTP handler solving POST /api/dispatch
// requests against fleet. Invalid input maps to 400, infeasible or
// non-converged demand to 422.
func NewDispatchHandler(fleet model.Fleet, log logger.Logger) http.Handler {
	if log == nil {
		log = logger.NopLogger{}
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req Request
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, ErrorResponse{Outcome: "invalid_input", Error: err.Error()})
			return
		}
		if req.Fleet == nil {
			req.Fleet = fleet
		}
		res, err := coredispatch.Dispatch(coredispatch.Request{
			DemandMW:      req.DemandMW,
			Fleet:         req.Fleet,
			Tolerance:     req.Tolerance,
			MaxIterations: req.MaxIterations,
		})
		if err != nil {
			log.Warnf("dispatch %.3f MW: %v", req.DemandMW, err)
			writeJSON(w, statusFor(err), ErrorResponse{Outcome: coredispatch.Outcome(err), Error: err.Error()})
			return
		}
		out := Response{
			OutputsMW:  make(map[string]float64, len(req.Fleet)),
			TotalCost:  res.TotalCost,
			Lambda:     res.Lambda,
			Iterations: res.Iterations,
		}
		for i, id := range req.Fleet.Labels() {
			out.OutputsMW[id] = res.OutputsMW[i]
		}
		writeJSON(w, http.StatusOK, out)
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, coredispatch.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, coredispatch.ErrInfeasible), errors.Is(err, coredispatch.ErrNotConverged):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
