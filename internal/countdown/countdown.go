// Package countdown renders the remaining lifetime of a mailbox and reports
// when it reaches zero.
package countdown

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const (
	// ExpiredLabel is shown once remaining time reaches zero.
	ExpiredLabel = "EXPIRED"

	// IdleLabel is shown when no mailbox is active.
	IdleLabel = "--:--:--"

	period = time.Second
)

// TickMsg is one countdown tick.
type TickMsg struct {
	SessionID string
	tag       int
}

// Format renders secs as zero-padded HH:MM:SS, or ExpiredLabel at or
// below zero.
func Format(secs int64) string {
	if secs <= 0 {
		return ExpiredLabel
	}
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// Countdown ticks once a second against an absolute expiry. Only the most
// recently started countdown is ever live.
type Countdown struct {
	now  func() time.Time
	tick func(time.Duration, func(time.Time) tea.Msg) tea.Cmd

	sessionID string
	expiresAt int64
	remaining int64
	running   bool
	tag       int
	label     string
}

// Option configures a Countdown.
type Option func(*Countdown)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Countdown) { c.now = now }
}

// WithTicker replaces tea.Tick.
func WithTicker(fn func(time.Duration, func(time.Time) tea.Msg) tea.Cmd) Option {
	return func(c *Countdown) { c.tick = fn }
}

// New returns an idle countdown.
func New(opts ...Option) *Countdown {
	c := &Countdown{
		now:   time.Now,
		tick:  tea.Tick,
		label: IdleLabel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start cancels any running countdown and begins a new one. A mailbox that
// is already past its expiry produces an immediate tick so the owner sees
// expiry through the same path as a live countdown.
func (c *Countdown) Start(sessionID string, expiresAt int64) tea.Cmd {
	c.tag++
	c.sessionID = sessionID
	c.expiresAt = expiresAt
	c.running = true
	c.remaining = expiresAt - c.now().Unix()
	c.label = Format(c.remaining)

	if c.remaining <= 0 {
		sid, tag := c.sessionID, c.tag
		return func() tea.Msg { return TickMsg{SessionID: sid, tag: tag} }
	}
	return c.schedule()
}

// Update handles a tick. expired is true exactly once per started
// countdown, on the tick that observes zero.
func (c *Countdown) Update(msg tea.Msg) (expired bool, cmd tea.Cmd) {
	tm, ok := msg.(TickMsg)
	if !ok || !c.running || tm.tag != c.tag || tm.SessionID != c.sessionID {
		return false, nil
	}

	remaining := c.expiresAt - c.now().Unix()
	// The display never counts back up within one session.
	if remaining > c.remaining {
		remaining = c.remaining
	}
	c.remaining = remaining

	if remaining <= 0 {
		c.remaining = 0
		c.Expire()
		return true, nil
	}

	c.label = Format(remaining)
	return false, c.schedule()
}

// Stop cancels the pending tick and keeps the current label.
func (c *Countdown) Stop() {
	c.running = false
	c.tag++
}

// Expire stops the countdown and shows ExpiredLabel.
func (c *Countdown) Expire() {
	c.Stop()
	c.label = ExpiredLabel
}

// Reset stops the countdown and shows IdleLabel.
func (c *Countdown) Reset() {
	c.Stop()
	c.sessionID = ""
	c.expiresAt = 0
	c.remaining = 0
	c.label = IdleLabel
}

// Label is the text to display.
func (c *Countdown) Label() string {
	return c.label
}

// Remaining is the last rendered remaining time in whole seconds.
func (c *Countdown) Remaining() int64 {
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}

// Running reports whether ticks are being honoured.
func (c *Countdown) Running() bool {
	return c.running
}

func (c *Countdown) schedule() tea.Cmd {
	sid, tag := c.sessionID, c.tag
	return c.tick(period, func(time.Time) tea.Msg {
		return TickMsg{SessionID: sid, tag: tag}
	})
}
