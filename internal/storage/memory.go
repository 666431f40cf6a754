package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/runnerr0/occupancy/internal/calendar"
)

// MemoryStore is an in-memory Repository and Importer. It filters and
// orders exactly like SQLiteStore and can be told to fail individual
// operations, which makes it the fake of choice for engine tests.
type MemoryStore struct {
	mu       sync.RWMutex
	users    []User
	bookings []Booking
	sessions []SessionOccurrence
	samples  []OccupancySample
	failures map[string]error
}

var (
	_ Repository = (*MemoryStore)(nil)
	_ Importer   = (*MemoryStore)(nil)
)

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{failures: make(map[string]error)}
}

// FailOn makes every later call to the named method (e.g. "ListBookings")
// return err. A nil err clears the failure.
func (m *MemoryStore) FailOn(method string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

func (m *MemoryStore) failure(method string) error {
	return m.failures[method]
}

// rangeContains treats a zero bound as open, matching the SQL filters.
func rangeContains(r calendar.DateRange, d time.Time) bool {
	if !r.From.IsZero() && d.Before(r.From) {
		return false
	}
	if !r.To.IsZero() && d.After(r.To) {
		return false
	}
	return true
}

// ListBookings implements Repository.
func (m *MemoryStore) ListBookings(_ context.Context, f BookingFilter) ([]Booking, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("ListBookings"); err != nil {
		return nil, err
	}

	out := []Booking{}
	for _, b := range m.bookings {
		if !rangeContains(f.Range, b.SessionDate) {
			continue
		}
		if f.UserID != "" && b.UserID != f.UserID {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].SessionDate.Equal(out[j].SessionDate) {
			return out[i].SessionDate.Before(out[j].SessionDate)
		}
		return out[i].BookingTime.Before(out[j].BookingTime)
	})
	return out, nil
}

// ListSessions implements Repository.
func (m *MemoryStore) ListSessions(_ context.Context, r calendar.DateRange) ([]SessionOccurrence, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("ListSessions"); err != nil {
		return nil, err
	}

	out := []SessionOccurrence{}
	for _, s := range m.sessions {
		if rangeContains(r, s.Date) {
			out = append(out, s)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

func (f SampleFilter) matches(a OccupancySample) bool {
	if !rangeContains(f.Range, a.Date) {
		return false
	}
	switch f.Kind {
	case HourlySamples:
		if a.IsDailySummary() {
			return false
		}
	case DailySummaries:
		if !a.IsDailySummary() {
			return false
		}
	}
	if f.Start != nil && a.Start != *f.Start {
		return false
	}
	if f.End != nil && a.End != *f.End {
		return false
	}
	return true
}

// ListSamples implements Repository.
func (m *MemoryStore) ListSamples(_ context.Context, f SampleFilter) ([]OccupancySample, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("ListSamples"); err != nil {
		return nil, err
	}

	out := []OccupancySample{}
	for _, a := range m.samples {
		if f.matches(a) {
			out = append(out, a)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Start < out[j].Start
	})
	return out, nil
}

// CountSamples implements Repository.
func (m *MemoryStore) CountSamples(_ context.Context, f SampleFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("CountSamples"); err != nil {
		return 0, err
	}

	var n int64
	for _, a := range m.samples {
		if f.matches(a) {
			n++
		}
	}
	return n, nil
}

// CountUsers implements Repository.
func (m *MemoryStore) CountUsers(_ context.Context, role string) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if err := m.failure("CountUsers"); err != nil {
		return 0, err
	}

	var n int64
	for _, u := range m.users {
		if role == "" || u.Role == role {
			n++
		}
	}
	return n, nil
}

// InsertSamples implements Repository.
func (m *MemoryStore) InsertSamples(_ context.Context, samples []OccupancySample) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.failure("InsertSamples"); err != nil {
		return err
	}

	for i := range samples {
		if samples[i].ID == "" {
			samples[i].ID = uuid.NewString()
		}
	}
	m.samples = append(m.samples, samples...)
	return nil
}

// InsertUsers implements Importer. Existing ids have their role replaced.
func (m *MemoryStore) InsertUsers(_ context.Context, users []User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
next:
	for _, u := range users {
		for i := range m.users {
			if m.users[i].ID == u.ID {
				m.users[i].Role = u.Role
				continue next
			}
		}
		m.users = append(m.users, u)
	}
	return nil
}

// InsertBookings implements Importer.
func (m *MemoryStore) InsertBookings(_ context.Context, bookings []Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range bookings {
		if bookings[i].Status == "" {
			bookings[i].Status = StatusConfirmed
		}
		bookings[i].ID = int64(len(m.bookings) + 1)
		m.bookings = append(m.bookings, bookings[i])
	}
	return nil
}

// InsertSessions implements Importer.
func (m *MemoryStore) InsertSessions(_ context.Context, sessions []SessionOccurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range sessions {
		sessions[i].ID = int64(len(m.sessions) + 1)
		m.sessions = append(m.sessions, sessions[i])
	}
	return nil
}
