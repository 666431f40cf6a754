package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

const apiPrefix = "/api/v1"

// NewRouter registers the read-only analytics routes. Routes live on the
// root router so a wrong method answers 405 rather than 404.
func NewRouter(h *Handlers) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/health", h.Health).Methods(http.MethodGet)

	routes := map[string]http.HandlerFunc{
		"/dashboard":           h.Dashboard,
		"/summary":             serve(h, h.Engine.Summary),
		"/trends/weekly":       serve(h, h.Engine.WeeklyTrend),
		"/trends/monthly":      serve(h, h.Engine.MonthlyTrend),
		"/insights/peak-hours": serve(h, h.Engine.PeakHours),
		"/insights/bookings":   serve(h, h.Engine.BookingInsights),
		"/insights/engagement": serve(h, h.Engine.Engagement),
		"/occupancy/current":   serve(h, h.Engine.CurrentOccupancy),
		"/occupancy/curve":     h.OccupancyCurve,
	}
	for path, handler := range routes {
		r.HandleFunc(apiPrefix+path, handler).Methods(http.MethodGet)
	}
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		h.writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
	})

	return r
}
