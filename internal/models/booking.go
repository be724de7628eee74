package models

import (
	"fmt"
	"strings"
	"time"
)

// WeekSelector picks the bookable week shown to the client.
type WeekSelector string

const (
	WeekCurrent WeekSelector = "curr"
	WeekNext    WeekSelector = "next"
)

// ParseWeekSelector validates a raw week selector from callback data.
func ParseWeekSelector(s string) (WeekSelector, error) {
	switch WeekSelector(s) {
	case WeekCurrent, WeekNext:
		return WeekSelector(s), nil
	}
	return "", fmt.Errorf("unknown week selector: %q", s)
}

// DayCode identifies a weekday offered for booking. Sunday is not offered.
type DayCode string

const (
	DayMon DayCode = "mon"
	DayTue DayCode = "tue"
	DayWed DayCode = "wed"
	DayThu DayCode = "thu"
	DayFri DayCode = "fri"
	DaySat DayCode = "sat"
)

// BookableDays lists offered weekdays in fixed render order.
var BookableDays = []DayCode{DayMon, DayTue, DayWed, DayThu, DayFri, DaySat}

// DayShortNames maps day codes to the Russian short names shown in menus.
var DayShortNames = map[DayCode]string{
	DayMon: "Пн",
	DayTue: "Вт",
	DayWed: "Ср",
	DayThu: "Чт",
	DayFri: "Пт",
	DaySat: "Сб",
}

// ParseDayCode validates a raw day code from callback data.
func ParseDayCode(s string) (DayCode, error) {
	for _, d := range BookableDays {
		if DayCode(s) == d {
			return d, nil
		}
	}
	return "", fmt.Errorf("unknown day code: %q", s)
}

// Offset returns the day's offset from Monday.
func (d DayCode) Offset() int {
	for i, day := range BookableDays {
		if day == d {
			return i
		}
	}
	return 0
}

// SlotKey identifies an offered appointment slot: week selector plus day code,
// e.g. "curr_wed". It is derived, not stored with an absolute date; the calendar
// date it denotes shifts forward every real week.
type SlotKey string

// NewSlotKey builds a slot key from its parts.
func NewSlotKey(week WeekSelector, day DayCode) SlotKey {
	return SlotKey(string(week) + "_" + string(day))
}

// Parts splits a slot key back into week selector and day code.
func (k SlotKey) Parts() (WeekSelector, DayCode, error) {
	raw := strings.SplitN(string(k), "_", 2)
	if len(raw) != 2 {
		return "", "", fmt.Errorf("malformed slot key: %q", k)
	}
	week, err := ParseWeekSelector(raw[0])
	if err != nil {
		return "", "", err
	}
	day, err := ParseDayCode(raw[1])
	if err != nil {
		return "", "", err
	}
	return week, day, nil
}

// TimeSlots is the fixed set of daily appointment times, in render order.
var TimeSlots = []string{"11:00", "13:00", "15:00", "17:00"}

// IsTimeSlot reports whether t is one of the offered appointment times.
func IsTimeSlot(t string) bool {
	for _, s := range TimeSlots {
		if s == t {
			return true
		}
	}
	return false
}

// Booking is the committed reservation linking a user to a slot.
// DayLabel is frozen at booking time and never recomputed.
type Booking struct {
	UserID    int64     `json:"user_id"`
	Name      string    `json:"name"`
	DayLabel  string    `json:"day_label"`
	SlotKey   SlotKey   `json:"slot_key"`
	TimeSlot  string    `json:"time_slot"`
	CreatedAt time.Time `json:"created_at"`
}
