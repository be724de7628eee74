// Package calendar maps week selectors to concrete calendar dates and slot keys.
package calendar

import (
	"fmt"
	"time"

	"manibot/internal/models"
)

// Day is one bookable day of a resolved week.
type Day struct {
	Code    models.DayCode
	Label   string // human-readable, e.g. "Пн, 02.01"; frozen into bookings
	SlotKey models.SlotKey
	Date    time.Time
}

// Resolver computes bookable weeks from the current clock.
// Whether the first bookable week is the current or the following calendar week
// is a business rule, not an invariant, so it is injected via anchorNextWeek.
type Resolver struct {
	anchorNextWeek bool
	now            func() time.Time
}

// New creates a resolver using the real clock.
func New(anchorNextWeek bool) *Resolver {
	return &Resolver{anchorNextWeek: anchorNextWeek, now: time.Now}
}

// NewWithClock allows injecting a fixed clock for tests.
func NewWithClock(anchorNextWeek bool, now func() time.Time) *Resolver {
	return &Resolver{anchorNextWeek: anchorNextWeek, now: now}
}

// Resolve returns the six bookable days Mon-Sat for the selected week,
// in fixed order. Pure function of the clock; calling it on a later real
// day yields later dates for the same slot keys.
func (r *Resolver) Resolve(week models.WeekSelector) []Day {
	start := r.weekStart(week)

	days := make([]Day, 0, len(models.BookableDays))
	for _, code := range models.BookableDays {
		date := start.AddDate(0, 0, code.Offset())
		days = append(days, Day{
			Code:    code,
			Label:   fmt.Sprintf("%s, %02d.%02d", models.DayShortNames[code], date.Day(), int(date.Month())),
			SlotKey: models.NewSlotKey(week, code),
			Date:    date,
		})
	}
	return days
}

// ResolveDay returns the resolved entry for a single day of the selected week.
func (r *Resolver) ResolveDay(week models.WeekSelector, day models.DayCode) (Day, error) {
	if _, err := models.ParseDayCode(string(day)); err != nil {
		return Day{}, err
	}
	for _, d := range r.Resolve(week) {
		if d.Code == day {
			return d, nil
		}
	}
	return Day{}, fmt.Errorf("day %s not bookable", day)
}

// weekStart returns the Monday the selected week begins on.
func (r *Resolver) weekStart(week models.WeekSelector) time.Time {
	now := r.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	// Monday-first offset: Sunday counts as day 7 of the previous week.
	weekday := int(today.Weekday())
	if weekday == 0 {
		weekday = 7
	}
	monday := today.AddDate(0, 0, -(weekday - 1))

	if r.anchorNextWeek {
		monday = monday.AddDate(0, 0, 7)
	}
	if week == models.WeekNext {
		monday = monday.AddDate(0, 0, 7)
	}
	return monday
}
