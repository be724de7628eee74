package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"manibot/internal/models"
)

// TakenTimes returns the set of occupied times for a slot key.
// An unknown slot key yields an empty set.
func (l *Ledger) TakenTimes(ctx context.Context, key models.SlotKey) (map[string]bool, error) {
	rows, err := l.QueryContext(ctx,
		"SELECT time_slot FROM booked_slots WHERE slot_key = ?", string(key))
	if err != nil {
		return nil, fmt.Errorf("query taken times: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]bool)
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("scan taken time: %w", err)
		}
		taken[t] = true
	}
	return taken, rows.Err()
}

// UserBooking returns the user's active booking, or nil when none exists.
func (l *Ledger) UserBooking(ctx context.Context, userID int64) (*models.Booking, error) {
	b, err := scanBooking(l.QueryRowContext(ctx, `
		SELECT user_id, name, day_label, slot_key, time_slot, created_at
		FROM user_records WHERE user_id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query user booking: %w", err)
	}
	return b, nil
}

// CreateBooking commits a booking atomically: the user check, the slot check and
// both inserts happen in one transaction, so the pre-checks done while rendering
// the menu cannot race a concurrent commit into a double booking.
func (l *Ledger) CreateBooking(ctx context.Context, userID int64, name, dayLabel string, key models.SlotKey, timeSlot string) (*models.Booking, error) {
	if !models.IsTimeSlot(timeSlot) {
		return nil, ErrBadTimeSlot
	}
	if _, _, err := key.Parts(); err != nil {
		return nil, err
	}

	tx, err := l.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var existing int64
	err = tx.QueryRowContext(ctx,
		"SELECT user_id FROM user_records WHERE user_id = ?", userID).Scan(&existing)
	if err == nil {
		return nil, ErrAlreadyBooked
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("check user record: %w", err)
	}

	var occupied int
	err = tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM booked_slots WHERE slot_key = ? AND time_slot = ?",
		string(key), timeSlot).Scan(&occupied)
	if err != nil {
		return nil, fmt.Errorf("check occupancy: %w", err)
	}
	if occupied > 0 {
		return nil, ErrSlotTaken
	}

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO booked_slots (slot_key, time_slot) VALUES (?, ?)",
		string(key), timeSlot); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("insert occupancy: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_records (user_id, name, day_label, slot_key, time_slot, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		userID, name, dayLabel, string(key), timeSlot, now); err != nil {
		return nil, fmt.Errorf("insert user record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	b := &models.Booking{
		UserID:    userID,
		Name:      name,
		DayLabel:  dayLabel,
		SlotKey:   key,
		TimeSlot:  timeSlot,
		CreatedAt: now,
	}
	l.logger.Info().
		Int64("user_id", userID).
		Str("slot_key", string(key)).
		Str("time_slot", timeSlot).
		Msg("Booking created")
	return b, nil
}

// DeleteBooking removes the user's booking from both tables atomically and
// returns the removed booking. ErrNoBooking when the user has none.
func (l *Ledger) DeleteBooking(ctx context.Context, userID int64) (*models.Booking, error) {
	tx, err := l.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	b, err := scanBooking(tx.QueryRowContext(ctx, `
		SELECT user_id, name, day_label, slot_key, time_slot, created_at
		FROM user_records WHERE user_id = ?`, userID))
	if err == sql.ErrNoRows {
		return nil, ErrNoBooking
	}
	if err != nil {
		return nil, fmt.Errorf("query user record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM booked_slots WHERE slot_key = ? AND time_slot = ?",
		string(b.SlotKey), b.TimeSlot); err != nil {
		return nil, fmt.Errorf("delete occupancy: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"DELETE FROM user_records WHERE user_id = ?", userID); err != nil {
		return nil, fmt.Errorf("delete user record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	l.logger.Info().
		Int64("user_id", userID).
		Str("slot_key", string(b.SlotKey)).
		Str("time_slot", b.TimeSlot).
		Msg("Booking cancelled")
	return b, nil
}

// ListBookings returns all active bookings, oldest first. Used by the admin
// export and the Sheets sync.
func (l *Ledger) ListBookings(ctx context.Context) ([]models.Booking, error) {
	rows, err := l.QueryContext(ctx, `
		SELECT user_id, name, day_label, slot_key, time_slot, created_at
		FROM user_records ORDER BY created_at, user_id`)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	var bookings []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var b models.Booking
	var key string
	if err := row.Scan(&b.UserID, &b.Name, &b.DayLabel, &key, &b.TimeSlot, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.SlotKey = models.SlotKey(key)
	return &b, nil
}
