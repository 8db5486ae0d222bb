// Package poller runs the adaptive status-check schedule for one mailbox.
//
// All state is owned by the Bubble Tea update loop: the poller never starts
// goroutines of its own. Each scheduled fire is a tea.Tick whose message
// carries the session id and a tag; bumping the tag cancels the previous
// handle, so at most one fire is ever pending.
package poller

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/api"
	"github.com/nhle/tempinbox/internal/model"
)

// fetchTimeout bounds one status check plus its follow-up listing.
const fetchTimeout = 30 * time.Second

// Checker is the slice of the backend the poller needs.
type Checker interface {
	Status(ctx context.Context, inboxID string) (*model.InboxStatus, error)
	ListEmails(ctx context.Context, inboxID string) (*model.MessageList, error)
}

// TickFunc schedules fn after d. tea.Tick satisfies it.
type TickFunc func(d time.Duration, fn func(time.Time) tea.Msg) tea.Cmd

// TickMsg is a scheduled fire.
type TickMsg struct {
	SessionID string
	tag       int
}

// ResultMsg is the outcome of one status check and its optional follow-up
// listing.
type ResultMsg struct {
	SessionID string
	tag       int

	// PrevCount is the last-known count captured when the cycle started.
	PrevCount int

	Status  *model.InboxStatus
	List    *model.MessageList
	Expired bool
	Err     error
}

// FetchMsg is the outcome of an unconditional listing (refresh or initial
// load).
type FetchMsg struct {
	SessionID string
	List      *model.MessageList
	Err       error
}

// Report is what a processed result means for the owner.
type Report struct {
	// Expired is set when the backend says the mailbox no longer exists.
	Expired bool

	// Count is the freshest known message count.
	Count int

	// List is set when a full listing was fetched.
	List *model.MessageList

	// NewMessages is the positive growth detected by a poll cycle.
	NewMessages int
}

// Poller owns the backoff schedule and last-known count of one session.
type Poller struct {
	api     Checker
	backoff *Backoff
	tick    TickFunc
	log     *zap.Logger

	sessionID string
	lastCount int
	running   bool
	inFlight  bool
	tag       int
}

// Option configures a Poller.
type Option func(*Poller)

// WithTicker replaces tea.Tick, letting tests run fires without sleeping.
func WithTicker(fn TickFunc) Option {
	return func(p *Poller) { p.tick = fn }
}

// WithLogger sets the logger used for per-cycle failures.
func WithLogger(l *zap.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.log = l
		}
	}
}

// WithBackoff replaces the default 5s/30s/1.5x schedule.
func WithBackoff(b *Backoff) Option {
	return func(p *Poller) {
		if b != nil {
			p.backoff = b
		}
	}
}

// New creates a stopped poller.
func New(c Checker, opts ...Option) *Poller {
	p := &Poller{
		api:     c,
		backoff: DefaultBackoff(),
		tick:    tea.Tick,
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins polling sessionID from a fresh schedule. Any previous
// session's pending fire is cancelled.
func (p *Poller) Start(sessionID string, knownCount int) tea.Cmd {
	p.sessionID = sessionID
	p.lastCount = knownCount
	p.running = true
	p.inFlight = false
	p.backoff.Reset()

	p.log.Debug("poller started",
		zap.String("inbox_id", sessionID),
		zap.Duration("interval", p.backoff.Current()),
	)
	return p.scheduleNext(p.backoff.Current())
}

// Stop prevents every future fire. It is safe to call repeatedly.
func (p *Poller) Stop() {
	if p.running {
		p.log.Debug("poller stopped", zap.String("inbox_id", p.sessionID))
	}
	p.running = false
	p.inFlight = false
	p.tag++
}

// Refresh fetches the listing now and restarts the schedule at Start.
func (p *Poller) Refresh() tea.Cmd {
	if !p.running {
		return nil
	}
	p.backoff.Reset()
	return tea.Batch(p.FetchNow(), p.scheduleNext(p.backoff.Current()))
}

// FetchNow lists the current session's messages without touching the
// schedule.
func (p *Poller) FetchNow() tea.Cmd {
	if !p.running {
		return nil
	}
	sid := p.sessionID
	c := p.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		list, err := c.ListEmails(ctx, sid)
		return FetchMsg{SessionID: sid, List: list, Err: err}
	}
}

// Update consumes poller messages. It returns a non-nil Report when the
// message changed what the owner should display.
func (p *Poller) Update(msg tea.Msg) (*Report, tea.Cmd) {
	switch msg := msg.(type) {
	case TickMsg:
		return nil, p.handleTick(msg)
	case ResultMsg:
		return p.handleResult(msg)
	case FetchMsg:
		return p.handleFetch(msg), nil
	}
	return nil, nil
}

func (p *Poller) handleTick(msg TickMsg) tea.Cmd {
	if !p.running || msg.SessionID != p.sessionID || msg.tag != p.tag {
		return nil
	}

	if p.inFlight {
		p.log.Debug("poll skipped, check in flight", zap.String("inbox_id", p.sessionID))
		return p.scheduleNext(p.backoff.Current())
	}

	p.inFlight = true
	p.backoff.Advance()
	return p.check(p.sessionID, p.tag, p.lastCount)
}

func (p *Poller) handleResult(msg ResultMsg) (*Report, tea.Cmd) {
	if !p.running || msg.SessionID != p.sessionID {
		return nil, nil
	}
	p.inFlight = false

	if msg.Expired {
		p.log.Info("inbox expired on server", zap.String("inbox_id", p.sessionID))
		p.Stop()
		return &Report{Expired: true, Count: p.lastCount}, nil
	}

	// A result from before a refresh still carries fresh data, but the
	// refresh already owns the schedule.
	var next tea.Cmd
	if msg.tag == p.tag {
		next = p.scheduleNext(p.backoff.Current())
	}

	if msg.Status == nil {
		p.log.Warn("status check failed",
			zap.String("inbox_id", p.sessionID),
			zap.Error(msg.Err),
		)
		return nil, next
	}

	if msg.List == nil {
		if msg.Err != nil {
			p.log.Warn("listing after count change failed",
				zap.String("inbox_id", p.sessionID),
				zap.Int("count", msg.Status.EmailCount),
				zap.Error(msg.Err),
			)
		}
		return &Report{Count: msg.Status.EmailCount}, next
	}

	p.lastCount = msg.List.Count
	report := &Report{Count: msg.List.Count, List: msg.List}
	if delta := msg.List.Count - msg.PrevCount; delta > 0 {
		report.NewMessages = delta
	}

	p.log.Debug("poll cycle complete",
		zap.String("inbox_id", p.sessionID),
		zap.Int("count", report.Count),
		zap.Int("new", report.NewMessages),
		zap.Duration("next", p.backoff.Current()),
	)
	return report, next
}

func (p *Poller) handleFetch(msg FetchMsg) *Report {
	if !p.running || msg.SessionID != p.sessionID {
		return nil
	}
	if msg.Err != nil {
		p.log.Warn("listing failed",
			zap.String("inbox_id", p.sessionID),
			zap.Error(msg.Err),
		)
		return nil
	}
	p.lastCount = msg.List.Count
	return &Report{Count: msg.List.Count, List: msg.List}
}

// scheduleNext replaces any pending fire with one after delay.
func (p *Poller) scheduleNext(delay time.Duration) tea.Cmd {
	p.tag++
	sid, tag := p.sessionID, p.tag
	return p.tick(delay, func(time.Time) tea.Msg {
		return TickMsg{SessionID: sid, tag: tag}
	})
}

// check runs the status request and, when the count moved, the listing.
// Both calls happen inside one command so the follow-up always completes
// before the next fire is scheduled.
func (p *Poller) check(sid string, tag, prevCount int) tea.Cmd {
	c := p.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()

		res := ResultMsg{SessionID: sid, tag: tag, PrevCount: prevCount}

		status, err := c.Status(ctx, sid)
		if err != nil {
			if api.IsExpired(err) {
				res.Expired = true
				return res
			}
			res.Err = err
			return res
		}
		res.Status = status

		if status.EmailCount == prevCount {
			return res
		}

		list, err := c.ListEmails(ctx, sid)
		if err != nil {
			res.Err = err
			return res
		}
		res.List = list
		return res
	}
}

// Interval returns the delay the next scheduled fire will use.
func (p *Poller) Interval() time.Duration {
	return p.backoff.Current()
}

// Running reports whether fires are being honoured.
func (p *Poller) Running() bool {
	return p.running
}

// InFlight reports whether a status check is outstanding.
func (p *Poller) InFlight() bool {
	return p.inFlight
}

// LastCount returns the count confirmed by the most recent listing.
func (p *Poller) LastCount() int {
	return p.lastCount
}
