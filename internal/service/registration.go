// Package service drives the registration flow between the conversation
// layer and the slot ledger.
package service

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"manibot/internal/calendar"
	"manibot/internal/events"
	"manibot/internal/ledger"
	"manibot/internal/metrics"
	"manibot/internal/models"
	"manibot/internal/session"
)

var (
	// ErrNoSession is returned when an input arrives without a matching
	// registration step in progress.
	ErrNoSession = errors.New("no registration in progress")
	// ErrEmptyName is returned for blank name input.
	ErrEmptyName = errors.New("name must not be empty")
)

// Ledger is the authoritative booking store the service commits into.
type Ledger interface {
	TakenTimes(ctx context.Context, key models.SlotKey) (map[string]bool, error)
	UserBooking(ctx context.Context, userID int64) (*models.Booking, error)
	CreateBooking(ctx context.Context, userID int64, name, dayLabel string, key models.SlotKey, timeSlot string) (*models.Booking, error)
	DeleteBooking(ctx context.Context, userID int64) (*models.Booking, error)
}

// Bus publishes lifecycle events after successful ledger operations.
type Bus interface {
	PublishJSON(eventType string, payload interface{}) error
}

// BookingCreatedEvent is the payload of events.TypeBookingCreated.
type BookingCreatedEvent struct {
	Booking models.Booking `json:"booking"`
	Handle  string         `json:"handle"` // requester's @username, may be empty
}

// BookingCancelledEvent is the payload of events.TypeBookingCancelled.
type BookingCancelledEvent struct {
	Booking models.Booking `json:"booking"`
}

// TimeOption is one row of the time menu.
type TimeOption struct {
	Time  string
	Taken bool
}

// Registration exposes the boundary operations of the booking core.
type Registration struct {
	ledger   Ledger
	sessions session.Store
	resolver *calendar.Resolver
	fsm      *session.FSM
	bus      Bus
	logger   *zerolog.Logger
}

// NewRegistration wires the service.
func NewRegistration(l Ledger, sessions session.Store, resolver *calendar.Resolver, bus Bus, logger *zerolog.Logger) *Registration {
	return &Registration{
		ledger:   l,
		sessions: sessions,
		resolver: resolver,
		fsm:      session.NewFSM(),
		bus:      bus,
		logger:   logger,
	}
}

// StartRegistration opens a new registration dialog. The existing-booking
// check here is for user feedback; the ledger re-checks at commit.
func (r *Registration) StartRegistration(ctx context.Context, userID int64) (*session.Session, error) {
	booking, err := r.ledger.UserBooking(ctx, userID)
	if err != nil {
		return nil, err
	}
	if booking != nil {
		return nil, ledger.ErrAlreadyBooked
	}

	s := session.NewSession(userID)
	if err := r.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SubmitName stores the free-text name. Any non-empty text is accepted.
func (r *Registration) SubmitName(ctx context.Context, userID int64, text string) (*session.Session, error) {
	s, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.State != session.StateAskName {
		return nil, ErrNoSession
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyName
	}

	s.Name = text
	r.fsm.Transition(s, session.StateAskDay)
	if err := r.sessions.Put(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// SubmitDay resolves the chosen day and freezes its label into the session.
// Re-picking a day from the time menu's back navigation is allowed.
func (r *Registration) SubmitDay(ctx context.Context, userID int64, week models.WeekSelector, day models.DayCode) (calendar.Day, error) {
	s, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return calendar.Day{}, err
	}
	if s == nil || (s.State != session.StateAskDay && s.State != session.StateAskTime) {
		return calendar.Day{}, ErrNoSession
	}

	resolved, err := r.resolver.ResolveDay(week, day)
	if err != nil {
		return calendar.Day{}, err
	}

	if s.State == session.StateAskTime {
		r.fsm.Transition(s, session.StateAskDay)
	}
	s.Week = week
	s.DayLabel = resolved.Label
	s.SlotKey = resolved.SlotKey
	r.fsm.Transition(s, session.StateAskTime)
	if err := r.sessions.Put(ctx, s); err != nil {
		return calendar.Day{}, err
	}
	return resolved, nil
}

// ListAvailableTimes returns the four offered times in order, marking the
// ones present in the occupancy index as taken.
func (r *Registration) ListAvailableTimes(ctx context.Context, key models.SlotKey) ([]TimeOption, error) {
	taken, err := r.ledger.TakenTimes(ctx, key)
	if err != nil {
		return nil, err
	}

	options := make([]TimeOption, 0, len(models.TimeSlots))
	for _, t := range models.TimeSlots {
		options = append(options, TimeOption{Time: t, Taken: taken[t]})
	}
	return options, nil
}

// SubmitTime commits the booking. On ErrSlotTaken the session stays at the
// time step so the caller re-renders the now-stale availability; on success
// the session is discarded (one-shot) and booking.created is published.
func (r *Registration) SubmitTime(ctx context.Context, userID int64, handle string, key models.SlotKey, timeSlot string) (*models.Booking, error) {
	s, err := r.sessions.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s == nil || s.State != session.StateAskTime {
		return nil, ErrNoSession
	}

	booking, err := r.ledger.CreateBooking(ctx, userID, s.Name, s.DayLabel, key, timeSlot)
	if errors.Is(err, ledger.ErrSlotTaken) {
		metrics.IncSlotConflict()
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	if err := r.sessions.Delete(ctx, userID); err != nil {
		r.logger.Warn().Err(err).Int64("user_id", userID).Msg("Failed to discard committed session")
	}

	metrics.IncBookingCreated()
	r.publish(events.TypeBookingCreated, BookingCreatedEvent{Booking: *booking, Handle: handle})
	return booking, nil
}

// CancelBooking removes the user's booking and publishes booking.cancelled.
// ErrNoBooking when there is nothing to cancel.
func (r *Registration) CancelBooking(ctx context.Context, userID int64) (*models.Booking, error) {
	booking, err := r.ledger.DeleteBooking(ctx, userID)
	if err != nil {
		return nil, err
	}

	metrics.IncBookingCancelled()
	r.publish(events.TypeBookingCancelled, BookingCancelledEvent{Booking: *booking})
	return booking, nil
}

// GetBooking returns the user's active booking, or nil.
func (r *Registration) GetBooking(ctx context.Context, userID int64) (*models.Booking, error) {
	return r.ledger.UserBooking(ctx, userID)
}

// AbandonSession drops the in-progress dialog without touching the ledger.
func (r *Registration) AbandonSession(ctx context.Context, userID int64) error {
	return r.sessions.Delete(ctx, userID)
}

// publish is fire-and-forget: a dispatch failure never unwinds a committed
// ledger operation.
func (r *Registration) publish(eventType string, payload interface{}) {
	if r.bus == nil {
		return
	}
	if err := r.bus.PublishJSON(eventType, payload); err != nil {
		r.logger.Error().Err(err).Str("event", eventType).Msg("Failed to publish event")
	}
}
