package app

import (
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/archive"
	"github.com/nhle/tempinbox/internal/countdown"
	"github.com/nhle/tempinbox/internal/credential"
	"github.com/nhle/tempinbox/internal/export"
	"github.com/nhle/tempinbox/internal/keys"
	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/session"
	"github.com/nhle/tempinbox/internal/store"
	"github.com/nhle/tempinbox/internal/theme"
	"github.com/nhle/tempinbox/internal/ui"
	"github.com/nhle/tempinbox/internal/ui/command"
	"github.com/nhle/tempinbox/internal/ui/create"
	helpview "github.com/nhle/tempinbox/internal/ui/help"
	"github.com/nhle/tempinbox/internal/ui/inbox"
	"github.com/nhle/tempinbox/internal/ui/message"
	"github.com/nhle/tempinbox/internal/view"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewInbox ViewState = iota
	ViewMessage
	ViewCreate
	ViewHelp
	ViewCommand
)

// Backend is everything the application asks of the mail service.
type Backend interface {
	session.API
	export.Fetcher
}

// Deps are the collaborators the root model is built from.
type Deps struct {
	Config   model.AppConfig
	Store    store.Store
	Backend  Backend
	Session  *session.Controller
	Archiver *archive.Archiver
	Log      *zap.Logger

	// InitialTTL creates a mailbox at start-up when nothing can be resumed.
	InitialTTL time.Duration

	// Now, CopyText, SetSecret and DeleteSecret default to the real clock,
	// the system clipboard and the keyring.
	Now          func() time.Time
	CopyText     func(string) error
	SetSecret    func(key, value string) error
	DeleteSecret func(key string) error
}

// Model is the root Bubble Tea model. It routes input to the active view,
// forwards lifecycle messages to the session controller and mirrors
// session events into the local store.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	keys         *keys.KeyMap

	cfg      model.AppConfig
	store    store.Store
	backend  Backend
	ctrl     *session.Controller
	archiver *archive.Archiver
	log      *zap.Logger

	now        func() time.Time
	copyText   func(string) error
	setSecret  func(key, value string) error
	delSecret  func(key string) error
	initialTTL time.Duration

	inboxView   inbox.Model
	messageView message.Model
	createView  create.Model
	helpView    helpview.Model
	commandView command.Model

	// detail is the raw message behind messageView, kept for export.
	detail *model.MessageDetail

	ready       bool
	unreadCount int
	notice      string
	noticeKind  model.NotificationKind
}

// New creates a new root application model.
func New(d Deps) Model {
	k := keys.DefaultKeyMap()

	m := Model{
		currentView: ViewInbox,
		keys:        k,
		cfg:         d.Config,
		store:       d.Store,
		backend:     d.Backend,
		ctrl:        d.Session,
		archiver:    d.Archiver,
		log:         d.Log,
		now:         d.Now,
		copyText:    d.CopyText,
		setSecret:   d.SetSecret,
		delSecret:   d.DeleteSecret,
		initialTTL:  d.InitialTTL,
		inboxView:   inbox.New(k, 80, 24),
		messageView: message.New(k, 80, 24),
		createView:  create.New(d.Config.Inbox, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
	}

	if m.log == nil {
		m.log = zap.NewNop()
	}
	if m.now == nil {
		m.now = time.Now
	}
	if m.copyText == nil {
		m.copyText = clipboard.WriteAll
	}
	if m.setSecret == nil {
		m.setSecret = credential.Set
	}
	if m.delSecret == nil {
		m.delSecret = credential.Delete
	}
	if m.ctrl == nil {
		m.ctrl = session.New(d.Backend, session.WithLogger(m.log))
	}
	if m.archiver == nil {
		m.archiver = archive.New(d.Config.Archive, "", m.log)
	}

	m.syncView()
	return m
}

// Init returns the initial commands: resume a stored mailbox, start the
// spinner and load the notification count.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.inboxView.Init(),
		m.loadResume(),
		m.fetchUnreadCount(),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The controller sees every message first; it ignores what it does
	// not own.
	ctrlCmd := m.ctrl.Update(msg)

	next, cmd := m.handle(msg)
	nm := next.(Model)
	nm.syncView()
	return nm, tea.Batch(ctrlCmd, cmd)
}

func (m Model) handle(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		contentWidth := m.layout.ContentWidth()
		contentHeight := m.layout.ContentHeight()
		m.inboxView.SetSize(contentWidth, contentHeight)
		m.messageView.SetSize(contentWidth, contentHeight)
		m.createView.SetSize(contentWidth, contentHeight)
		m.helpView.SetSize(contentWidth, contentHeight)
		m.commandView.SetSize(contentWidth, contentHeight)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case resumeLoadedMsg:
		return m, m.handleResume(msg)

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case noticeMsg:
		m.setNotice(msg.text, msg.kind)
		return m, nil

	case session.CreatedMsg:
		m.setNotice("Mailbox ready: "+msg.Session.Address, "")
		return m, m.saveSession(msg.Session)

	case session.CreateFailedMsg:
		m.setNotice("Failed to create inbox: "+msg.Err.Error(), model.NotificationError)
		return m, nil

	case session.ListUpdatedMsg:
		return m, m.cacheMessages(msg.SessionID, msg.List.Messages)

	case session.NewMessagesMsg:
		text := newMessagesText(msg.Count)
		m.setNotice(text, model.NotificationNewMessages)
		return m, m.notify(msg.SessionID, model.NotificationNewMessages, text)

	case session.ExpiredMsg:
		text := "Your inbox " + msg.Session.Address + " has expired"
		m.setNotice(text, model.NotificationExpired)
		return m, tea.Batch(
			m.markExpired(msg.Session.ID),
			m.notify(msg.Session.ID, model.NotificationExpired, text),
		)

	case session.DetailMsg:
		m.handleDetail(msg)
		return m, nil

	case inbox.SelectedMsg:
		m.previousView = m.currentView
		m.currentView = ViewMessage
		m.detail = nil
		m.ctrl.SetViewing(msg.EmailID)
		m.messageView.SetLoading()
		return m, m.ctrl.FetchDetail(msg.EmailID)

	case message.BackMsg:
		m.closeMessage()
		return m, nil

	case message.ActionMsg:
		return m, m.runAction(msg)

	case create.SubmitMsg:
		m.currentView = ViewInbox
		return m, m.createMailbox(msg.TTL)

	case create.CancelMsg:
		m.currentView = ViewInbox
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m.executeCommand(msg)

	case command.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case archiverReadyMsg:
		m.archiver = msg.archiver
		m.setNotice("Archive password saved", "")
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	// Delegate to active sub-view
	return m.updateActiveView(msg)
}

// handleKey processes global keys before handing the rest to the active
// view. Forms and the palette own the keyboard while open.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.notice = ""

	if msg.String() == "ctrl+c" {
		return m.quit()
	}

	switch m.currentView {
	case ViewCreate, ViewCommand:
		return m.updateActiveView(msg)
	}

	switch msg.String() {
	case "?":
		if m.currentView == ViewHelp {
			m.currentView = m.previousView
			return m, nil
		}
		m.helpView.SetInfo(m.sessionInfo())
		m.previousView = m.currentView
		m.currentView = ViewHelp
		return m, nil

	case ":":
		m.previousView = m.currentView
		m.currentView = ViewCommand
		return m, m.commandView.Focus()
	}

	if m.currentView == ViewHelp {
		if msg.String() == "esc" || msg.String() == "q" {
			m.currentView = m.previousView
		}
		return m, nil
	}

	if m.currentView != ViewInbox {
		return m.updateActiveView(msg)
	}

	switch msg.String() {
	case "q":
		return m.quit()

	case "n":
		m.previousView = m.currentView
		m.currentView = ViewCreate
		return m, m.createView.Start()

	case "r":
		return m, m.ctrl.Refresh()

	case "x":
		if m.ctrl.State() == session.Idle {
			return m, nil
		}
		m.ctrl.Reset()
		m.setNotice("Mailbox discarded", "")
		return m, nil

	case "y":
		return m, m.copyAddress()
	}

	return m.updateActiveView(msg)
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewInbox:
		m.inboxView, cmd = m.inboxView.Update(msg)
	case ViewMessage:
		m.messageView, cmd = m.messageView.Update(msg)
	case ViewCreate:
		m.createView, cmd = m.createView.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	}

	return m, cmd
}

// createMailbox starts a creation and restarts the loading spinner.
func (m Model) createMailbox(ttl time.Duration) tea.Cmd {
	return tea.Batch(m.ctrl.Create(ttl), m.inboxView.Init())
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.ctrl.Teardown()
	return m, tea.Quit
}

// handleDetail shows a fetched message if it is still the one the user
// is waiting for.
func (m *Model) handleDetail(msg session.DetailMsg) {
	if !m.ctrl.IsCurrent(msg.SessionID) || msg.EmailID != m.ctrl.Viewing() {
		return
	}
	if msg.Err != nil {
		m.log.Warn("loading message failed",
			zap.String("email_id", msg.EmailID),
			zap.Error(msg.Err),
		)
		m.messageView.SetError(msg.Err)
		return
	}

	m.detail = msg.Detail
	st := m.viewState()
	st.Detail = msg.Detail
	m.messageView.SetDetail(view.Render(st).Detail)
}

func (m *Model) closeMessage() {
	m.ctrl.SetViewing("")
	m.detail = nil
	m.currentView = ViewInbox
}

// syncView pushes the current projection into the inbox view and leaves
// the message view once its mailbox is gone.
func (m *Model) syncView() {
	if m.currentView == ViewMessage && m.ctrl.State() != session.Active {
		m.closeMessage()
	}
	m.inboxView.SetViewModel(view.Render(m.viewState()))
}

func (m Model) viewState() view.State {
	return view.State{
		Phase:       phaseOf(m.ctrl.State()),
		Session:     m.ctrl.Session(),
		Countdown:   m.ctrl.CountdownLabel(),
		Count:       m.ctrl.Count(),
		Messages:    m.ctrl.Messages(),
		LastExpired: m.ctrl.LastExpired(),
		Err:         m.ctrl.LastError(),
		Now:         m.now(),
		Location:    time.Local,
	}
}

func phaseOf(s session.State) view.Phase {
	switch s {
	case session.Creating:
		return view.PhaseCreating
	case session.Active:
		return view.PhaseActive
	case session.Expired:
		return view.PhaseExpired
	default:
		return view.PhaseIdle
	}
}

func (m *Model) setNotice(text string, kind model.NotificationKind) {
	m.notice = text
	m.noticeKind = kind
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "tempinbox"
	if m.unreadCount > 0 {
		title = fmt.Sprintf("tempinbox [%d new]", m.unreadCount)
	}

	address := ""
	if s := m.ctrl.Session(); s != nil {
		address = s.Address
	}
	header := m.layout.RenderHeader(title, address, m.renderCountdown())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.keyHints(), m.notice, string(m.noticeKind))

	return m.layout.RenderWithFrame(header, content, statusBar)
}

func (m Model) renderCountdown() string {
	label := m.ctrl.CountdownLabel()
	remaining := int64(-1)
	switch {
	case label == countdown.ExpiredLabel:
		remaining = 0
	case m.ctrl.Session() != nil:
		remaining = m.ctrl.Session().RemainingSeconds(m.now())
	}
	return theme.CountdownStyle(remaining).
		Background(theme.HeaderStyle.GetBackground()).
		Render(label)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewInbox:
		return m.inboxView.View()
	case ViewMessage:
		return m.messageView.View()
	case ViewCreate:
		return m.createView.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	switch m.currentView {
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | tab complete | esc cancel"
	case ViewMessage:
		return "esc back | s save | d download | A archive | c copy code | j/k scroll"
	case ViewCreate:
		return "enter confirm | esc cancel"
	}

	switch m.ctrl.State() {
	case session.Active:
		return fmt.Sprintf("enter open | r refresh | y copy | x discard | n new | next check %s | ? help",
			m.ctrl.PollInterval().Round(100*time.Millisecond))
	case session.Creating:
		return "creating mailbox... | q quit"
	default:
		return "n new mailbox | : command | ? help | q quit"
	}
}

// sessionInfo lists runtime details for the help screen.
func (m Model) sessionInfo() []string {
	info := []string{
		"backend       " + m.cfg.API.BaseURL,
		"state         " + m.ctrl.State().String(),
	}
	if s := m.ctrl.Session(); s != nil {
		info = append(info,
			"address       "+s.Address,
			"expires       "+view.DateTime(s.ExpiresAt, time.Local),
			"poll interval "+m.ctrl.PollInterval().String(),
		)
	}
	if m.archiver.Enabled() {
		info = append(info, "archive       "+m.cfg.Archive.Username+"@"+m.cfg.Archive.IMAPHost)
	}
	return info
}

func newMessagesText(n int) string {
	if n == 1 {
		return "1 new email"
	}
	return fmt.Sprintf("%d new emails", n)
}
