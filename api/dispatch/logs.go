package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kilianp07/eld/core/dispatch/logging"
)

// NewLogHandler returns an HTTP handler exposing dispatch logs via GET /api/dispatch/logs.
// Requests must include an Authorization header with "Bearer <token>" when token is non-empty.
// Supported filters: start, end (RFC3339), run_id and outcome.
func NewLogHandler(store logging.LogStore, token string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if token != "" {
			auth := r.Header.Get("Authorization")
			if auth != "Bearer "+token {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
		}
		q := logging.LogQuery{
			RunID:   r.URL.Query().Get("run_id"),
			Outcome: r.URL.Query().Get("outcome"),
		}
		var err error
		if q.Start, err = parseTime(r, "start"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if q.End, err = parseTime(r, "end"); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []logging.LogRecord{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseTime(r *http.Request, key string) (time.Time, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid %s: %q", key, s)
	}
	return t, nil
}
