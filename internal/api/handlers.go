package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/calendar"
)

// Handlers serves engine results as JSON.
type Handlers struct {
	Engine *analytics.Engine
	Log    *slog.Logger
}

type errorBody struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.Log.Warn("encoding response", "err", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var dsErr *analytics.DataStoreError
	switch {
	case errors.As(err, &dsErr), errors.Is(err, analytics.ErrAllGroupsFailed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	h.Log.Error("request failed", "err", err, "status", status)
	h.writeJSON(w, status, errorBody{Error: err.Error()})
}

// serve adapts a single engine call to a handler.
func serve[T any](h *Handlers, fn func(context.Context) (T, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := fn(r.Context())
		if err != nil {
			h.writeError(w, err)
			return
		}
		h.writeJSON(w, http.StatusOK, v)
	}
}

func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Dashboard returns every metric group. Groups that failed are listed
// under "errors" and the response is still 200 unless all of them failed.
func (h *Handlers) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.Engine.Dashboard(r.Context())
	if errors.Is(err, analytics.ErrAllGroupsFailed) {
		h.Log.Error("dashboard unavailable", "errors", d.Errors)
		h.writeJSON(w, http.StatusServiceUnavailable, d)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, d)
}

type curveResponse struct {
	Date   string         `json:"date"`
	Points []analytics.XY `json:"points"`
}

// OccupancyCurve serves ?date=YYYY-MM-DD, defaulting to today.
func (h *Handlers) OccupancyCurve(w http.ResponseWriter, r *http.Request) {
	date := h.Engine.Today()
	if q := r.URL.Query().Get("date"); q != "" {
		d, err := calendar.ParseDate(q)
		if err != nil {
			h.writeJSON(w, http.StatusBadRequest, errorBody{Error: "date must be YYYY-MM-DD"})
			return
		}
		date = d
	}

	points, err := h.Engine.OccupancyCurve(r.Context(), date)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, curveResponse{Date: calendar.FormatDate(date), Points: points})
}
