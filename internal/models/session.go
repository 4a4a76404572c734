package models

import "time"

// PendingShift holds staged, uncommitted values for one shift window.
// Empty fields are not staged.
type PendingShift struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// Session is the per-chat conversation state.
type Session struct {
	ChatID       int64
	Waiting      Awaiting // nil when idle
	Pending      map[ShiftID]PendingShift
	TimezonePage int
	UpdatedAt    time.Time
}

// NewSession returns an idle session for chatID.
func NewSession(chatID int64) *Session {
	return &Session{ChatID: chatID, Pending: map[ShiftID]PendingShift{}}
}

// Await arms the waiting-for slot, replacing any previous value.
func (s *Session) Await(a Awaiting) { s.Waiting = a }

// TakeWaiting clears the waiting-for slot and returns what it held.
func (s *Session) TakeWaiting() Awaiting {
	a := s.Waiting
	s.Waiting = nil
	return a
}

// Stage records a pending start or end value for a shift.
func (s *Session) Stage(id ShiftID, start, end string) PendingShift {
	if s.Pending == nil {
		s.Pending = map[ShiftID]PendingShift{}
	}
	p := s.Pending[id]
	if start != "" {
		p.Start = start
	}
	if end != "" {
		p.End = end
	}
	s.Pending[id] = p
	return p
}

// Discard drops pending edits for a shift.
func (s *Session) Discard(id ShiftID) { delete(s.Pending, id) }

// Idle drops the waiting-for slot and every pending edit.
func (s *Session) Idle() {
	s.Waiting = nil
	s.Pending = map[ShiftID]PendingShift{}
}
