// Package session tracks per-user conversation state: the rolling history
// window, the violation counter and the silence deadline.
package session

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Turn struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type Session struct {
	UserID       string    `json:"user_id"`
	History      []Turn    `json:"history"`
	WarningCount int       `json:"warning_count"`
	SilentUntil  time.Time `json:"silent_until"`
}

func New(userID string) *Session {
	return &Session{UserID: userID}
}

// Silenced reports whether messages from this user are currently dropped.
func (s *Session) Silenced(now time.Time) bool {
	return now.Before(s.SilentUntil)
}

// Clone returns a deep copy so callers can mutate it without racing a store.
func (s *Session) Clone() *Session {
	out := *s
	out.History = append([]Turn(nil), s.History...)
	return &out
}

// ResetHistory forgets the conversation but keeps moderation state.
func (s *Session) ResetHistory() {
	s.History = nil
}
