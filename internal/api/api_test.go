package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/runnerr0/occupancy/internal/analytics"
	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/logging"
	"github.com/runnerr0/occupancy/internal/storage"
)

var apiNow = time.Date(2024, time.March, 6, 10, 30, 0, 0, time.UTC)

func tod(s string) calendar.TimeOfDay { return calendar.MustTimeOfDay(s) }

func newTestServer(t *testing.T) (*httptest.Server, *storage.MemoryStore) {
	t.Helper()
	ctx := context.Background()
	store := storage.NewMemoryStore()
	today := calendar.DateOf(apiNow)

	require.NoError(t, store.InsertBookings(ctx, []storage.Booking{
		{UserID: "alice", SessionDate: today, BookingTime: apiNow.Add(-24 * time.Hour)},
	}))
	require.NoError(t, store.InsertSessions(ctx, []storage.SessionOccurrence{
		{Date: today, Start: tod("10:00"), End: tod("11:00"), BookedSlots: 6, AttendedCount: 5},
	}))
	require.NoError(t, store.InsertSamples(ctx, []storage.OccupancySample{
		{Date: today, Start: tod("06:00"), End: tod("07:00"), HourlyOccupancy: 7},
	}))

	engine, err := analytics.NewEngine(store, analytics.Settings{
		MaxCapacity: 50,
		Buckets:     analytics.DefaultBuckets(),
		Location:    time.UTC,
		MemberRole:  "member",
	}, analytics.WithClock(func() time.Time { return apiNow }))
	require.NoError(t, err)

	srv := NewServer("127.0.0.1:0", logging.Discard(), io.Discard, &Handlers{Engine: engine, Log: logging.Discard()})
	ts := httptest.NewServer(srv.HTTP.Handler)
	t.Cleanup(ts.Close)
	return ts, store
}

func getJSON(t *testing.T, url string, v interface{}) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if v != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
	}
	return resp
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)
	var body map[string]string
	resp := getJSON(t, ts.URL+"/health", &body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
}

func TestSummaryRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	var s analytics.Summary
	resp := getJSON(t, ts.URL+"/api/v1/summary", &s)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, 1.0, s.TotalBookings.Value)
	assert.Equal(t, 14.0, s.PeakUtilization.Value)
}

func TestMonthlyTrendRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	var points []analytics.Point
	getJSON(t, ts.URL+"/api/v1/trends/monthly", &points)
	require.Len(t, points, analytics.TrendMonths)
	assert.Equal(t, analytics.Point{Label: "Mar 2024", Value: 1}, points[5])
}

func TestCurrentOccupancyRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	var cur analytics.CurrentOccupancy
	getJSON(t, ts.URL+"/api/v1/occupancy/current", &cur)
	assert.Equal(t, 5, cur.Occupancy)
	assert.Equal(t, 50, cur.Capacity)
	assert.Equal(t, 10.0, cur.UtilizationPct)
}

func TestOccupancyCurveRoute(t *testing.T) {
	ts, _ := newTestServer(t)

	var today curveResponse
	getJSON(t, ts.URL+"/api/v1/occupancy/curve", &today)
	assert.Equal(t, "2024-03-06", today.Date)
	require.Len(t, today.Points, 13)
	assert.Equal(t, analytics.XY{X: "6-7 AM", Y: 7}, today.Points[0])

	var other curveResponse
	getJSON(t, ts.URL+"/api/v1/occupancy/curve?date=2024-03-01", &other)
	assert.Equal(t, "2024-03-01", other.Date)
	assert.Equal(t, 0.0, other.Points[0].Y)

	resp := getJSON(t, ts.URL+"/api/v1/occupancy/curve?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestDashboardRoute(t *testing.T) {
	ts, _ := newTestServer(t)
	var d analytics.Dashboard
	resp := getJSON(t, ts.URL+"/api/v1/dashboard", &d)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, d.Errors)
	require.NotNil(t, d.PeakHours)
	assert.Equal(t, 7, d.PeakHours.MorningPeak.Occupancy)
}

func TestDashboardRoute_PartialFailureIsOK(t *testing.T) {
	ts, store := newTestServer(t)
	store.FailOn("ListSamples", errors.New("locked"))

	var d analytics.Dashboard
	resp := getJSON(t, ts.URL+"/api/v1/dashboard", &d)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, d.Errors, analytics.GroupToday)
	assert.Nil(t, d.PeakHours)
	assert.NotNil(t, d.Engagement)
	assert.NotNil(t, d.BookingInsights)
}

func TestDashboardRoute_AllFailedIsUnavailable(t *testing.T) {
	ts, store := newTestServer(t)
	for _, m := range []string{"ListBookings", "ListSamples", "ListSessions"} {
		store.FailOn(m, errors.New("gone"))
	}

	var d analytics.Dashboard
	resp := getJSON(t, ts.URL+"/api/v1/dashboard", &d)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Len(t, d.Errors, 6)
}

func TestStoreErrorIsUnavailable(t *testing.T) {
	ts, store := newTestServer(t)
	store.FailOn("ListBookings", errors.New("gone"))

	var body errorBody
	resp := getJSON(t, ts.URL+"/api/v1/insights/bookings", &body)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Contains(t, body.Error, "list bookings")
}

func TestMethodNotAllowed(t *testing.T) {
	ts, _ := newTestServer(t)
	for _, path := range []string{"/api/v1/summary", "/api/v1/dashboard", "/api/v1/occupancy/curve"} {
		t.Run(path, func(t *testing.T) {
			resp, err := http.Post(ts.URL+path, "application/json", nil)
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

			var body errorBody
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.Equal(t, "method not allowed", body.Error)
		})
	}
}

func TestUnknownRouteIsNotFound(t *testing.T) {
	ts, _ := newTestServer(t)
	resp, err := http.Get(ts.URL + "/api/v1/nope")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
