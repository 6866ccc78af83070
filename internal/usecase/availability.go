package usecase

import "github.com/b2bflow/front-forms/internal/domain"

// Availability is a read-only view over the inventory fetched for one picker.
// Days without any available slot are dropped on construction.
type Availability struct {
	days  []domain.AvailableDay
	index map[domain.Date]int
}

// CalendarDay is one fetched date as the date grid shows it.
type CalendarDay struct {
	Date       domain.Date `json:"date"`
	Selectable bool        `json:"selectable"`
}

func NewAvailability(days []domain.AvailableDay) Availability {
	a := Availability{index: make(map[domain.Date]int, len(days))}
	for _, d := range days {
		if !d.HasAvailableSlot() {
			continue
		}
		if _, dup := a.index[d.Date]; dup {
			continue
		}
		a.index[d.Date] = len(a.days)
		a.days = append(a.days, d)
	}
	return a
}

// Days returns the days that have at least one available slot, in server order.
func (a Availability) Days() []domain.AvailableDay {
	return a.days
}

func (a Availability) Empty() bool {
	return len(a.days) == 0
}

// IsSelectable reports whether date can be picked: today or later and offered
// with at least one available slot.
func (a Availability) IsSelectable(date, today domain.Date) bool {
	if date.IsZero() || date.Before(today) {
		return false
	}
	_, ok := a.index[date]
	return ok
}

// Slots returns the available slots of date in server order.
func (a Availability) Slots(date domain.Date) []domain.TimeSlot {
	i, ok := a.index[date]
	if !ok {
		return nil
	}
	var out []domain.TimeSlot
	for _, s := range a.days[i].Slots {
		if s.Available {
			out = append(out, s)
		}
	}
	return out
}

// HasSlot reports whether time is an available slot of date.
func (a Availability) HasSlot(date domain.Date, time string) bool {
	for _, s := range a.Slots(date) {
		if s.Time == time {
			return true
		}
	}
	return false
}

// Calendar lists the offered dates with their selectable flag relative to today.
func (a Availability) Calendar(today domain.Date) []CalendarDay {
	out := make([]CalendarDay, 0, len(a.days))
	for _, d := range a.days {
		out = append(out, CalendarDay{Date: d.Date, Selectable: a.IsSelectable(d.Date, today)})
	}
	return out
}
