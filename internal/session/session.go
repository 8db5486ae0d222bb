// Package session coordinates the lifecycle of the single live mailbox:
// creation, countdown, polling, expiry and reset.
package session

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/countdown"
	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/poller"
)

// requestTimeout bounds creation, detail and attachment-link requests.
const requestTimeout = 30 * time.Second

// State is the controller's lifecycle position.
type State int

const (
	Idle State = iota
	Creating
	Active
	Expired
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Creating:
		return "creating"
	case Active:
		return "active"
	case Expired:
		return "expired"
	default:
		return "unknown"
	}
}

// API is the backend surface the controller drives.
type API interface {
	poller.Checker
	CreateInbox(ctx context.Context, ttl time.Duration) (*model.Session, error)
	GetEmail(ctx context.Context, inboxID, emailID string) (*model.MessageDetail, error)
	AttachmentLink(ctx context.Context, inboxID, emailID, attachmentID string) (*model.AttachmentLink, error)
}

// createdMsg carries a creation response back to the loop.
type createdMsg struct {
	attempt int
	session *model.Session
	err     error
}

// CreatedMsg announces a newly active mailbox.
type CreatedMsg struct {
	Session model.Session
}

// CreateFailedMsg reports a failed creation attempt.
type CreateFailedMsg struct {
	Err error
}

// ListUpdatedMsg carries a freshly fetched listing.
type ListUpdatedMsg struct {
	SessionID string
	List      model.MessageList
}

// NewMessagesMsg reports growth detected by a poll cycle.
type NewMessagesMsg struct {
	SessionID string
	Count     int
}

// ExpiredMsg is emitted exactly once when a mailbox expires, whether the
// countdown or the poller noticed first.
type ExpiredMsg struct {
	Session model.Session
}

// DetailMsg carries a fetched message.
type DetailMsg struct {
	SessionID string
	EmailID   string
	Detail    *model.MessageDetail
	Err       error
}

// AttachmentLinkMsg carries a pre-signed attachment URL.
type AttachmentLinkMsg struct {
	SessionID    string
	EmailID      string
	AttachmentID string
	Link         *model.AttachmentLink
	Err          error
}

// Controller owns the current session and the poller and countdown that
// serve it. It is driven entirely from the Bubble Tea update loop.
type Controller struct {
	api       API
	poller    *poller.Poller
	countdown *countdown.Countdown
	log       *zap.Logger
	now       func() time.Time

	state       State
	session     *model.Session
	attempt     int
	count       int
	messages    []model.MessageSummary
	viewing     string
	lastErr     error
	lastExpired *model.Session
}

// Option configures a Controller.
type Option func(*Controller)

// WithPoller replaces the default poller.
func WithPoller(p *poller.Poller) Option {
	return func(c *Controller) { c.poller = p }
}

// WithCountdown replaces the default countdown.
func WithCountdown(cd *countdown.Countdown) Option {
	return func(c *Controller) { c.countdown = cd }
}

// WithLogger sets the controller's logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock replaces time.Now for resume validity checks.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// New creates an idle controller.
func New(a API, opts ...Option) *Controller {
	c := &Controller{
		api:   a,
		log:   zap.NewNop(),
		now:   time.Now,
		state: Idle,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.poller == nil {
		c.poller = poller.New(a, poller.WithLogger(c.log))
	}
	if c.countdown == nil {
		c.countdown = countdown.New(countdown.WithClock(c.now))
	}
	return c
}

// Create discards the current mailbox and requests a new one.
func (c *Controller) Create(ttl time.Duration) tea.Cmd {
	c.teardown()
	c.state = Creating
	c.lastErr = nil
	c.lastExpired = nil
	c.attempt++

	attempt := c.attempt
	a := c.api
	c.log.Info("creating inbox", zap.Duration("ttl", ttl))
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		s, err := a.CreateInbox(ctx, ttl)
		return createdMsg{attempt: attempt, session: s, err: err}
	}
}

// Resume makes a previously created, still valid session current without
// contacting the backend. cached seeds the listing until the first fetch.
func (c *Controller) Resume(s model.Session, cached []model.MessageSummary) tea.Cmd {
	if s.Expired(c.now()) {
		return nil
	}
	c.teardown()
	c.attempt++
	c.log.Info("resuming inbox", zap.String("inbox_id", s.ID))
	return c.activate(s, cached)
}

// Reset abandons the current mailbox, including a creation in flight.
func (c *Controller) Reset() {
	c.teardown()
	c.attempt++
	c.state = Idle
	c.lastErr = nil
	c.lastExpired = nil
}

// Refresh fetches the listing now and restarts the poll schedule.
func (c *Controller) Refresh() tea.Cmd {
	if c.state != Active {
		return nil
	}
	return c.poller.Refresh()
}

// Teardown stops every timer. Used on quit.
func (c *Controller) Teardown() {
	c.poller.Stop()
	c.countdown.Stop()
}

// Update routes creation, poller and countdown messages. Messages it does
// not own are ignored.
func (c *Controller) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case createdMsg:
		return c.handleCreated(msg)

	case poller.TickMsg, poller.ResultMsg, poller.FetchMsg:
		report, cmd := c.poller.Update(msg)
		return tea.Batch(cmd, c.applyReport(report))

	case countdown.TickMsg:
		expired, cmd := c.countdown.Update(msg)
		if expired {
			c.log.Info("inbox expired locally", zap.String("inbox_id", c.sessionID()))
			return c.expire()
		}
		return cmd

	case ExpiredMsg:
		if c.state == Expired && c.session != nil && c.session.ID == msg.Session.ID {
			c.poller.Stop()
			c.session = nil
			c.messages = nil
			c.count = 0
			c.viewing = ""
			c.state = Idle
		}
	}
	return nil
}

func (c *Controller) handleCreated(msg createdMsg) tea.Cmd {
	if msg.attempt != c.attempt || c.state != Creating {
		c.log.Debug("dropping superseded creation response", zap.Int("attempt", msg.attempt))
		return nil
	}

	if msg.err != nil {
		c.state = Idle
		c.lastErr = msg.err
		c.log.Warn("inbox creation failed", zap.Error(msg.err))
		return emit(CreateFailedMsg{Err: msg.err})
	}

	c.log.Info("inbox created",
		zap.String("inbox_id", msg.session.ID),
		zap.Int64("expires_at", msg.session.ExpiresAt),
	)
	return tea.Batch(
		c.activate(*msg.session, nil),
		emit(CreatedMsg{Session: *msg.session}),
	)
}

func (c *Controller) activate(s model.Session, cached []model.MessageSummary) tea.Cmd {
	c.state = Active
	c.session = &s
	c.messages = cached
	c.count = len(cached)
	c.viewing = ""

	return tea.Batch(
		c.countdown.Start(s.ID, s.ExpiresAt),
		c.poller.Start(s.ID, c.count),
		c.poller.FetchNow(),
	)
}

func (c *Controller) applyReport(r *poller.Report) tea.Cmd {
	if r == nil || c.state != Active {
		return nil
	}
	if r.Expired {
		return c.expire()
	}

	c.count = r.Count
	var cmds []tea.Cmd
	if r.List != nil {
		c.messages = r.List.Messages
		cmds = append(cmds, emit(ListUpdatedMsg{SessionID: c.session.ID, List: *r.List}))
	}
	if r.NewMessages > 0 {
		cmds = append(cmds, emit(NewMessagesMsg{SessionID: c.session.ID, Count: r.NewMessages}))
	}
	return tea.Batch(cmds...)
}

// expire is the single teardown path for expiry. It only acts while
// Active, so a second detection is a no-op.
func (c *Controller) expire() tea.Cmd {
	if c.state != Active || c.session == nil {
		return nil
	}
	c.poller.Stop()
	c.countdown.Expire()
	c.state = Expired

	s := *c.session
	c.lastExpired = &s
	return emit(ExpiredMsg{Session: s})
}

// teardown stops both subsystems and forgets the session.
func (c *Controller) teardown() {
	c.poller.Stop()
	c.countdown.Reset()
	c.session = nil
	c.messages = nil
	c.count = 0
	c.viewing = ""
}

// FetchDetail loads one message of the current session.
func (c *Controller) FetchDetail(emailID string) tea.Cmd {
	if c.state != Active {
		return nil
	}
	sid := c.session.ID
	a := c.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		d, err := a.GetEmail(ctx, sid, emailID)
		return DetailMsg{SessionID: sid, EmailID: emailID, Detail: d, Err: err}
	}
}

// FetchAttachmentLink resolves a download URL for one attachment.
func (c *Controller) FetchAttachmentLink(emailID, attachmentID string) tea.Cmd {
	if c.state != Active {
		return nil
	}
	sid := c.session.ID
	a := c.api
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()

		link, err := a.AttachmentLink(ctx, sid, emailID, attachmentID)
		return AttachmentLinkMsg{
			SessionID:    sid,
			EmailID:      emailID,
			AttachmentID: attachmentID,
			Link:         link,
			Err:          err,
		}
	}
}

// IsCurrent reports whether sessionID is the live session.
func (c *Controller) IsCurrent(sessionID string) bool {
	return c.session != nil && c.session.ID == sessionID && c.state == Active
}

// SetViewing records which message is open; empty means the list.
func (c *Controller) SetViewing(emailID string) {
	c.viewing = emailID
}

// Viewing returns the open message id, or empty for the list.
func (c *Controller) Viewing() string {
	return c.viewing
}

func (c *Controller) State() State { return c.state }

// Session returns a copy of the live session, or nil.
func (c *Controller) Session() *model.Session {
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Controller) Count() int { return c.count }

func (c *Controller) Messages() []model.MessageSummary { return c.messages }

func (c *Controller) CountdownLabel() string { return c.countdown.Label() }

func (c *Controller) PollInterval() time.Duration { return c.poller.Interval() }

// LastError is the most recent creation failure.
func (c *Controller) LastError() error { return c.lastErr }

// LastExpired is the session that most recently expired, kept for display
// until the next creation or reset.
func (c *Controller) LastExpired() *model.Session { return c.lastExpired }

func (c *Controller) sessionID() string {
	if c.session == nil {
		return ""
	}
	return c.session.ID
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}
