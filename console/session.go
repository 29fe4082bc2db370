package console

import "sync"

// PendingMode records which free-text reply the controller expects next.
type PendingMode int

const (
	ModeNone PendingMode = iota
	ModeAwaitingPin
	ModeAwaitingNewPin
	ModeAwaitingCustomDate
)

func (m PendingMode) String() string {
	switch m {
	case ModeAwaitingPin:
		return "awaiting_pin"
	case ModeAwaitingNewPin:
		return "awaiting_new_pin"
	case ModeAwaitingCustomDate:
		return "awaiting_custom_date"
	default:
		return "none"
	}
}

// Sessions holds the pending input mode per Telegram user.
type Sessions struct {
	mu    sync.Mutex
	modes map[int64]PendingMode
}

func NewSessions() *Sessions {
	return &Sessions{modes: make(map[int64]PendingMode)}
}

func (s *Sessions) Mode(userID int64) PendingMode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.modes[userID]
}

func (s *Sessions) SetMode(userID int64, m PendingMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m == ModeNone {
		delete(s.modes, userID)
		return
	}
	s.modes[userID] = m
}

func (s *Sessions) Clear(userID int64) {
	s.SetMode(userID, ModeNone)
}
