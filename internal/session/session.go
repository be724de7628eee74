// Package session holds the per-user registration dialog state prior to commit.
package session

import (
	"time"

	"manibot/internal/models"
)

// State represents the current step of the registration dialog.
type State string

const (
	StateIdle    State = "idle"
	StateAskName State = "ask_name"
	StateAskDay  State = "ask_day"
	StateAskTime State = "ask_time"
	StateDone    State = "done"
)

// Session is the ephemeral per-user registration state. It is serialized to
// JSON when persisted in Redis, so all fields are exported.
type Session struct {
	UserID    int64               `json:"user_id"`
	State     State               `json:"state"`
	Name      string              `json:"name,omitempty"`
	Week      models.WeekSelector `json:"week,omitempty"`
	DayLabel  string              `json:"day_label,omitempty"`
	SlotKey   models.SlotKey      `json:"slot_key,omitempty"`
	StartedAt time.Time           `json:"started_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// NewSession creates a session at the start of registration.
func NewSession(userID int64) *Session {
	now := time.Now()
	return &Session{
		UserID:    userID,
		State:     StateAskName,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// IsExpired checks if the session outlived the timeout.
func (s *Session) IsExpired(timeout time.Duration) bool {
	return time.Since(s.UpdatedAt) > timeout
}

// FSM manages state transitions for the registration dialog.
type FSM struct {
	transitions map[State][]State
}

// NewFSM creates the FSM with predefined transitions. Every state may fall
// back to idle: navigating to the main menu abandons the dialog.
func NewFSM() *FSM {
	return &FSM{
		transitions: map[State][]State{
			StateIdle:    {StateAskName},
			StateAskName: {StateAskDay, StateIdle},
			StateAskDay:  {StateAskTime, StateIdle},
			StateAskTime: {StateDone, StateAskDay, StateIdle},
			StateDone:    {StateIdle},
		},
	}
}

// CanTransition checks if a transition is allowed.
func (f *FSM) CanTransition(from, to State) bool {
	for _, s := range f.transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Transition updates the session state if the transition is allowed.
func (f *FSM) Transition(s *Session, to State) bool {
	if !f.CanTransition(s.State, to) {
		return false
	}
	s.State = to
	s.UpdatedAt = time.Now()
	return true
}
