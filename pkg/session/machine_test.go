package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestMachine() (*Machine, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMachine(3, 300*time.Second, 4)
	m.Now = clock.Now
	return m, clock
}

func TestMachine_WarnSilenceBan(t *testing.T) {
	m, clock := newTestMachine()
	s := New("u1")

	assert.Equal(t, StateActive, m.State(s, false))

	assert.Equal(t, VerdictWarned, m.RecordViolation(s))
	assert.Equal(t, 1, s.WarningCount)
	assert.Equal(t, StateSilenced, m.State(s, false))

	clock.Advance(299 * time.Second)
	assert.Equal(t, StateSilenced, m.State(s, false))
	clock.Advance(time.Second)
	assert.Equal(t, StateActive, m.State(s, false), "silence expires at the deadline")

	assert.Equal(t, VerdictWarned, m.RecordViolation(s))
	clock.Advance(301 * time.Second)

	deadline := s.SilentUntil
	assert.Equal(t, VerdictBanned, m.RecordViolation(s))
	assert.Equal(t, 3, s.WarningCount)
	assert.Equal(t, deadline, s.SilentUntil, "the banning violation must not re-silence")
	assert.Equal(t, StateBanned, m.State(s, true))
}

func TestMachine_BanWinsOverSilence(t *testing.T) {
	m, _ := newTestMachine()
	s := New("u1")
	m.RecordViolation(s)

	assert.Equal(t, StateBanned, m.State(s, true))
}

func TestMachine_WarningsNeverDecay(t *testing.T) {
	m, clock := newTestMachine()
	s := New("u1")

	m.RecordViolation(s)
	clock.Advance(30 * 24 * time.Hour)
	m.RecordViolation(s)
	clock.Advance(30 * 24 * time.Hour)

	assert.Equal(t, VerdictBanned, m.RecordViolation(s))
}

func TestMachine_RecordExchangeTrimsWindow(t *testing.T) {
	m, _ := newTestMachine()
	s := New("u1")

	for i := 0; i < 6; i++ {
		m.RecordExchange(s, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	require.Len(t, s.History, 8)
	assert.Equal(t, Turn{Role: RoleUser, Text: "q2"}, s.History[0])
	assert.Equal(t, Turn{Role: RoleAssistant, Text: "a5"}, s.History[7])
}

func TestNewMachine_Defaults(t *testing.T) {
	m := NewMachine(0, 0, 0)
	assert.Equal(t, DefaultWarnLimit, m.WarnLimit)
	assert.Equal(t, DefaultSilentTimeout, m.SilentTimeout)
	assert.Equal(t, DefaultMaxHistory, m.MaxHistory)
}

func TestWindow(t *testing.T) {
	history := []Turn{{RoleUser, "a"}, {RoleAssistant, "b"}, {RoleUser, "c"}, {RoleAssistant, "d"}}

	assert.Equal(t, history[2:], Window(history, 1))
	assert.Equal(t, history, Window(history, 4))
	assert.Equal(t, history, Window(history, 0))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "active", StateActive.String())
	assert.Equal(t, "silenced", StateSilenced.String())
	assert.Equal(t, "banned", StateBanned.String())
	assert.Equal(t, "warned", VerdictWarned.String())
}
