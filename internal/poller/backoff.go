package poller

import "time"

const (
	DefaultStart      = 5 * time.Second
	DefaultMax        = 30 * time.Second
	DefaultMultiplier = 1.5
)

// Backoff is a multiplicative delay schedule clamped to [Start, Max].
type Backoff struct {
	Start      time.Duration
	Max        time.Duration
	Multiplier float64

	current time.Duration
}

// NewBackoff returns a schedule positioned at start. A non-positive start or
// a multiplier below 1 falls back to the default; max is raised to start.
func NewBackoff(start, max time.Duration, multiplier float64) *Backoff {
	if start <= 0 {
		start = DefaultStart
	}
	if max < start {
		max = start
	}
	if multiplier < 1 {
		multiplier = DefaultMultiplier
	}
	return &Backoff{
		Start:      start,
		Max:        max,
		Multiplier: multiplier,
		current:    start,
	}
}

// DefaultBackoff returns the 5s / 30s / 1.5x schedule.
func DefaultBackoff() *Backoff {
	return NewBackoff(DefaultStart, DefaultMax, DefaultMultiplier)
}

// Current returns the delay that the next schedule should use.
func (b *Backoff) Current() time.Duration {
	return b.current
}

// Advance grows the delay by Multiplier, capped at Max, and returns it.
func (b *Backoff) Advance() time.Duration {
	next := time.Duration(float64(b.current) * b.Multiplier)
	if next > b.Max || next < b.current {
		next = b.Max
	}
	b.current = next
	return next
}

// Reset returns the schedule to Start.
func (b *Backoff) Reset() {
	b.current = b.Start
}
