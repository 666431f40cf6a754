package cli

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/runnerr0/occupancy/internal/calendar"
	"github.com/runnerr0/occupancy/internal/storage"
)

// fixtureFile is the YAML layout accepted by the import command. Dates
// are YYYY-MM-DD, times HH:MM, and booking times RFC 3339 or
// "YYYY-MM-DD HH:MM:SS" in the configured timezone.
type fixtureFile struct {
	Users []struct {
		ID   string `yaml:"id"`
		Role string `yaml:"role"`
	} `yaml:"users"`
	Bookings []struct {
		UserID      string `yaml:"user_id"`
		SessionDate string `yaml:"session_date"`
		BookingTime string `yaml:"booking_time"`
		Status      string `yaml:"status"`
	} `yaml:"bookings"`
	Sessions []struct {
		Date             string `yaml:"date"`
		Start            string `yaml:"start"`
		End              string `yaml:"end"`
		BookedSlots      int    `yaml:"booked_slots"`
		AttendedCount    int    `yaml:"attended_count"`
		OverrideCapacity *int   `yaml:"override_capacity"`
		Status           string `yaml:"status"`
	} `yaml:"sessions"`
}

type importJSON struct {
	Users    int `json:"users"`
	Bookings int `json:"bookings"`
	Sessions int `json:"sessions"`
}

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	loc, err := a.cfg.Location()
	if err != nil {
		return err
	}
	return c.executeWithStore(context.Background(), a.store, loc)
}

func (c *ImportCommand) executeWithStore(ctx context.Context, store storage.Importer, loc *time.Location) error {
	data, err := os.ReadFile(c.File)
	if err != nil {
		return fmt.Errorf("read fixture file: %w", err)
	}
	var f fixtureFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse fixture file: %w", err)
	}

	users, bookings, sessions, err := f.records(loc)
	if err != nil {
		return err
	}

	if err := store.InsertUsers(ctx, users); err != nil {
		return fmt.Errorf("import users: %w", err)
	}
	if err := store.InsertBookings(ctx, bookings); err != nil {
		return fmt.Errorf("import bookings: %w", err)
	}
	if err := store.InsertSessions(ctx, sessions); err != nil {
		return fmt.Errorf("import sessions: %w", err)
	}

	out := importJSON{Users: len(users), Bookings: len(bookings), Sessions: len(sessions)}
	if c.globals != nil && c.globals.JSON {
		return printJSON(out)
	}
	fmt.Printf("Imported %d users, %d bookings, %d sessions from %s\n", out.Users, out.Bookings, out.Sessions, c.File)
	return nil
}

// records validates the fixture and converts it. Unlike reads from the
// database, a malformed fixture row is an error.
func (f *fixtureFile) records(loc *time.Location) ([]storage.User, []storage.Booking, []storage.SessionOccurrence, error) {
	users := make([]storage.User, 0, len(f.Users))
	for i, u := range f.Users {
		if u.ID == "" {
			return nil, nil, nil, fmt.Errorf("users[%d]: id is required", i)
		}
		role := u.Role
		if role == "" {
			role = "member"
		}
		users = append(users, storage.User{ID: u.ID, Role: role})
	}

	bookings := make([]storage.Booking, 0, len(f.Bookings))
	for i, b := range f.Bookings {
		date, err := calendar.ParseDate(b.SessionDate)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("bookings[%d].session_date: %w", i, err)
		}
		var booked time.Time
		if b.BookingTime != "" {
			if booked, err = parseBookingTime(b.BookingTime, loc); err != nil {
				return nil, nil, nil, fmt.Errorf("bookings[%d].booking_time: %w", i, err)
			}
		}
		bookings = append(bookings, storage.Booking{
			UserID:      b.UserID,
			SessionDate: date,
			BookingTime: booked,
			Status:      storage.BookingStatus(strings.ToLower(b.Status)),
		})
	}

	sessions := make([]storage.SessionOccurrence, 0, len(f.Sessions))
	for i, s := range f.Sessions {
		date, err := calendar.ParseDate(s.Date)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sessions[%d].date: %w", i, err)
		}
		start, err := calendar.ParseTimeOfDay(s.Start)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sessions[%d].start: %w", i, err)
		}
		end, err := calendar.ParseTimeOfDay(s.End)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sessions[%d].end: %w", i, err)
		}
		if end <= start {
			return nil, nil, nil, fmt.Errorf("sessions[%d]: end %s is not after start %s", i, end, start)
		}
		if s.BookedSlots < 0 || s.AttendedCount < 0 {
			return nil, nil, nil, fmt.Errorf("sessions[%d]: counts must not be negative", i)
		}
		sessions = append(sessions, storage.SessionOccurrence{
			Date:             date,
			Start:            start,
			End:              end,
			BookedSlots:      s.BookedSlots,
			AttendedCount:    s.AttendedCount,
			OverrideCapacity: s.OverrideCapacity,
			Status:           s.Status,
		})
	}

	return users, bookings, sessions, nil
}

func parseBookingTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, loc)
}
