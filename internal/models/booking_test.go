package models

import "testing"

func TestSlotKeyRoundTrip(t *testing.T) {
	key := NewSlotKey(WeekNext, DayWed)
	if key != "next_wed" {
		t.Fatalf("unexpected slot key: %s", key)
	}

	week, day, err := key.Parts()
	if err != nil {
		t.Fatalf("parts: %v", err)
	}
	if week != WeekNext {
		t.Errorf("expected next week, got %s", week)
	}
	if day != DayWed {
		t.Errorf("expected wed, got %s", day)
	}
}

func TestSlotKeyMalformed(t *testing.T) {
	for _, raw := range []string{"", "curr", "curr_sun", "tomorrow_mon", "curr_mon_11"} {
		if _, _, err := SlotKey(raw).Parts(); err == nil {
			t.Errorf("expected error for %q", raw)
		}
	}
}

func TestBookableDaysOrder(t *testing.T) {
	want := []DayCode{DayMon, DayTue, DayWed, DayThu, DayFri, DaySat}
	if len(BookableDays) != len(want) {
		t.Fatalf("expected %d days, got %d", len(want), len(BookableDays))
	}
	for i, d := range want {
		if BookableDays[i] != d {
			t.Errorf("day %d: expected %s, got %s", i, d, BookableDays[i])
		}
		if d.Offset() != i {
			t.Errorf("offset of %s: expected %d, got %d", d, i, d.Offset())
		}
		if DayShortNames[d] == "" {
			t.Errorf("missing short name for %s", d)
		}
	}
}

func TestIsTimeSlot(t *testing.T) {
	for _, ts := range TimeSlots {
		if !IsTimeSlot(ts) {
			t.Errorf("%s should be a valid time slot", ts)
		}
	}
	for _, ts := range []string{"", "12:00", "11:30", "23:59"} {
		if IsTimeSlot(ts) {
			t.Errorf("%s should not be a valid time slot", ts)
		}
	}
}
