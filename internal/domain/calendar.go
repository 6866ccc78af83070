package domain

import (
	"fmt"
	"strings"
	"time"
)

// Date is a calendar date without time of day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// DateOf returns the calendar date of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate accepts YYYY-MM-DD or an RFC 3339 timestamp, whose date part is kept as written.
func ParseDate(s string) (Date, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return DateOf(t), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return DateOf(t), nil
	}
	return Date{}, fmt.Errorf("domain: invalid date %q", s)
}

func (d Date) IsZero() bool {
	return d == Date{}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// In returns midnight of d in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

func (d Date) Before(o Date) bool {
	if d.Year != o.Year {
		return d.Year < o.Year
	}
	if d.Month != o.Month {
		return d.Month < o.Month
	}
	return d.Day < o.Day
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

type TimeSlot struct {
	Time      string `json:"time"`
	Available bool   `json:"available"`
}

// AvailableDay is the booking inventory of one date, slots in server order.
type AvailableDay struct {
	Date  Date       `json:"date"`
	Slots []TimeSlot `json:"slots"`
}

// HasAvailableSlot reports whether at least one slot can be booked.
func (d AvailableDay) HasAvailableSlot() bool {
	for _, s := range d.Slots {
		if s.Available {
			return true
		}
	}
	return false
}

type AppointmentRequest struct {
	LeadToken LeadToken
	Date      Date
	Time      string
}

type Appointment struct {
	Success       bool
	EventID       string
	ConfirmedDate string
	ConfirmedTime string
	// ExpiresAt is the session expiry provided by the service, zero if absent.
	ExpiresAt time.Time
}
