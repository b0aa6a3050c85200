package session

import "time"

type State int

const (
	StateActive State = iota
	StateSilenced
	StateBanned
)

func (s State) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateSilenced:
		return "silenced"
	case StateBanned:
		return "banned"
	}
	return "unknown"
}

type Verdict int

const (
	VerdictWarned Verdict = iota + 1
	VerdictBanned
)

func (v Verdict) String() string {
	switch v {
	case VerdictWarned:
		return "warned"
	case VerdictBanned:
		return "banned"
	}
	return "none"
}

const (
	DefaultWarnLimit     = 3
	DefaultSilentTimeout = 300 * time.Second
	DefaultMaxHistory    = 4
)

// Machine holds the moderation thresholds. The ban itself lives in the ban
// store; the machine only says when one is due.
type Machine struct {
	WarnLimit     int
	SilentTimeout time.Duration
	// MaxHistory is counted in exchanges, so the window holds twice as many turns.
	MaxHistory int
	Now        func() time.Time
}

func NewMachine(warnLimit int, silentTimeout time.Duration, maxHistory int) *Machine {
	if warnLimit <= 0 {
		warnLimit = DefaultWarnLimit
	}
	if silentTimeout <= 0 {
		silentTimeout = DefaultSilentTimeout
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Machine{
		WarnLimit:     warnLimit,
		SilentTimeout: silentTimeout,
		MaxHistory:    maxHistory,
		Now:           time.Now,
	}
}

func (m *Machine) now() time.Time {
	if m.Now == nil {
		return time.Now()
	}
	return m.Now()
}

func (m *Machine) State(s *Session, banned bool) State {
	if banned {
		return StateBanned
	}
	if s != nil && s.Silenced(m.now()) {
		return StateSilenced
	}
	return StateActive
}

// RecordViolation counts one unsafe message. Reaching WarnLimit yields
// VerdictBanned without touching the silence deadline.
func (m *Machine) RecordViolation(s *Session) Verdict {
	s.WarningCount++
	if s.WarningCount >= m.WarnLimit {
		return VerdictBanned
	}
	s.SilentUntil = m.now().Add(m.SilentTimeout)
	return VerdictWarned
}

// RecordExchange appends a completed user/assistant pair and drops the
// oldest turns beyond the window.
func (m *Machine) RecordExchange(s *Session, userText, reply string) {
	s.History = append(s.History,
		Turn{Role: RoleUser, Text: userText},
		Turn{Role: RoleAssistant, Text: reply},
	)
	s.History = Window(s.History, m.MaxHistory)
}

// Window returns the trailing maxExchanges exchanges of history.
func Window(history []Turn, maxExchanges int) []Turn {
	limit := 2 * maxExchanges
	if limit <= 0 || len(history) <= limit {
		return history
	}
	return append([]Turn(nil), history[len(history)-limit:]...)
}
