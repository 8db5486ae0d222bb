package countdown

import (
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time { return f.t }

func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func immediateTick(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg { return fn(time.Time{}) }
}

func newTestCountdown(start time.Time) (*Countdown, *fakeClock) {
	clk := &fakeClock{t: start}
	return New(WithClock(clk.now), WithTicker(immediateTick)), clk
}

func TestFormat(t *testing.T) {
	tests := []struct {
		secs int64
		want string
	}{
		{secs: 3600, want: "01:00:00"},
		{secs: 3599, want: "00:59:59"},
		{secs: 61, want: "00:01:01"},
		{secs: 1, want: "00:00:01"},
		{secs: 86400, want: "24:00:00"},
		{secs: 0, want: ExpiredLabel},
		{secs: -5, want: ExpiredLabel},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Format(tt.secs), "secs=%d", tt.secs)
	}
}

func TestCountdown_IdleLabel(t *testing.T) {
	c := New()
	assert.Equal(t, IdleLabel, c.Label())
	assert.False(t, c.Running())
}

func TestCountdown_TicksDownAndExpiresOnce(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c, clk := newTestCountdown(start)

	cmd := c.Start("inbox-1", start.Unix()+3)
	assert.Equal(t, "00:00:03", c.Label())

	var expiries int
	for i := 0; i < 5 && cmd != nil; i++ {
		clk.advance(time.Second)
		var expired bool
		expired, cmd = c.Update(cmd())
		if expired {
			expiries++
		}
	}

	assert.Equal(t, 1, expiries)
	assert.Equal(t, ExpiredLabel, c.Label())
	assert.False(t, c.Running())
	assert.Zero(t, c.Remaining())
}

func TestCountdown_NeverCountsUp(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c, clk := newTestCountdown(start)

	cmd := c.Start("inbox-1", start.Unix()+600)
	clk.advance(10 * time.Second)
	_, cmd = c.Update(cmd())
	require.Equal(t, "00:09:50", c.Label())

	clk.advance(-time.Minute)
	_, _ = c.Update(cmd())
	assert.Equal(t, "00:09:50", c.Label())
	assert.Equal(t, int64(590), c.Remaining())
}

func TestCountdown_RestartCancelsPrevious(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c, _ := newTestCountdown(start)

	old := c.Start("inbox-1", start.Unix()+60)
	oldTick := old()
	cur := c.Start("inbox-2", start.Unix()+120)

	expired, cmd := c.Update(oldTick)
	assert.False(t, expired)
	assert.Nil(t, cmd)

	_, cmd = c.Update(cur())
	assert.NotNil(t, cmd)
	assert.Equal(t, "00:02:00", c.Label())
}

func TestCountdown_StartAlreadyExpired(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c, _ := newTestCountdown(start)

	cmd := c.Start("inbox-1", start.Unix()-1)
	assert.Equal(t, ExpiredLabel, c.Label())
	require.NotNil(t, cmd)

	expired, next := c.Update(cmd())
	assert.True(t, expired)
	assert.Nil(t, next)
}

func TestCountdown_StopAndReset(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	c, _ := newTestCountdown(start)

	cmd := c.Start("inbox-1", start.Unix()+60)
	c.Stop()
	expired, next := c.Update(cmd())
	assert.False(t, expired)
	assert.Nil(t, next)
	assert.Equal(t, "00:01:00", c.Label())

	c.Reset()
	assert.Equal(t, IdleLabel, c.Label())
}
