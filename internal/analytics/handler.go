package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
)

// History lists persisted snapshots, newest first.
type History interface {
	ListSnapshots(ctx context.Context, limit int) ([]AggregatedStats, error)
}

type Handler struct {
	aggregator *Aggregator
	history    History
	logger     *slog.Logger
}

// NewHandler serves live stats from agg. history may be nil.
func NewHandler(agg *Aggregator, history History) *Handler {
	return &Handler{
		aggregator: agg,
		history:    history,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

// Stats writes the live statistics. With ?history=N and a snapshot store,
// the last N persisted snapshots are included.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"current": h.aggregator.Stats()}

	if v := r.URL.Query().Get("history"); v != "" && h.history != nil {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 100 {
			h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "history must be between 1 and 100"})
			return
		}
		snapshots, err := h.history.ListSnapshots(r.Context(), n)
		if err != nil {
			h.logger.Error("listing analytics snapshots failed", "error", err)
			h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "analytics history unavailable"})
			return
		}
		resp["history"] = snapshots
	}
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
