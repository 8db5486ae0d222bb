package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/keyring"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempinbox/internal/api"
	"github.com/nhle/tempinbox/internal/countdown"
	"github.com/nhle/tempinbox/internal/credential"
	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/poller"
	"github.com/nhle/tempinbox/internal/session"
	"github.com/nhle/tempinbox/internal/ui/command"
	"github.com/nhle/tempinbox/internal/ui/create"
	"github.com/nhle/tempinbox/internal/ui/inbox"
	"github.com/nhle/tempinbox/internal/ui/message"
	"github.com/nhle/tempinbox/tests/testutil"
)

var t0 = time.Unix(1_700_000_000, 0)

type fakeBackend struct {
	mu      sync.Mutex
	expired bool
	list    model.MessageList
	detail  *model.MessageDetail
}

func (f *fakeBackend) CreateInbox(_ context.Context, ttl time.Duration) (*model.Session, error) {
	return &model.Session{
		ID:        "abc",
		Address:   "abc@mail.test",
		ExpiresAt: t0.Add(ttl).Unix(),
		CreatedAt: t0,
	}, nil
}

func (f *fakeBackend) Status(_ context.Context, id string) (*model.InboxStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.expired {
		return nil, &api.ExpiredMailboxError{InboxID: id}
	}
	return &model.InboxStatus{Exists: true, EmailCount: f.list.Count}, nil
}

func (f *fakeBackend) ListEmails(_ context.Context, _ string) (*model.MessageList, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l := f.list
	return &l, nil
}

func (f *fakeBackend) GetEmail(_ context.Context, _, emailID string) (*model.MessageDetail, error) {
	if f.detail == nil || f.detail.ID != emailID {
		return nil, &api.APIError{StatusCode: 404, Message: "email not found"}
	}
	return f.detail, nil
}

func (f *fakeBackend) AttachmentLink(_ context.Context, _, _, attachmentID string) (*model.AttachmentLink, error) {
	return &model.AttachmentLink{URL: "blob://" + attachmentID}, nil
}

func (f *fakeBackend) Download(_ context.Context, url string, w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "contents of "+url)
	return int64(n), err
}

// manualTicker holds scheduled fires until the test releases them.
type manualTicker struct {
	mu      sync.Mutex
	pending []func(time.Time) tea.Msg
}

func (m *manualTicker) tick(_ time.Duration, fn func(time.Time) tea.Msg) tea.Cmd {
	return func() tea.Msg {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.pending = append(m.pending, fn)
		return nil
	}
}

func (m *manualTicker) last() tea.Msg {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pending[len(m.pending)-1](t0)
}

type harness struct {
	backend *fakeBackend
	polls   *manualTicker
	copied  []string
	secrets map[string]string
}

func newApp(t *testing.T, opts ...func(*Deps)) (Model, *harness) {
	t.Helper()

	h := &harness{
		backend: &fakeBackend{},
		polls:   &manualTicker{},
		secrets: map[string]string{},
	}
	now := func() time.Time { return t0 }
	seconds := &manualTicker{}

	ctrl := session.New(h.backend,
		session.WithClock(now),
		session.WithPoller(poller.New(h.backend, poller.WithTicker(h.polls.tick))),
		session.WithCountdown(countdown.New(countdown.WithClock(now), countdown.WithTicker(seconds.tick))),
	)

	cfg := model.AppConfig{
		API:         model.APIConfig{BaseURL: "http://backend.test"},
		Inbox:       model.InboxConfig{DefaultTTLSec: 3600, MinTTLSec: 600, MaxTTLSec: 86400, TTLOptions: []int{600, 3600}},
		DownloadDir: t.TempDir(),
	}

	d := Deps{
		Config:   cfg,
		Store:    testutil.NewTestStore(t),
		Backend:  h.backend,
		Session:  ctrl,
		Now:      now,
		CopyText: func(s string) error { h.copied = append(h.copied, s); return nil },
		SetSecret: func(k, v string) error {
			h.secrets[k] = v
			return nil
		},
		DeleteSecret: func(k string) error {
			if _, ok := h.secrets[k]; !ok {
				return fmt.Errorf("deleting credential %q: %w", k, keyring.ErrKeyNotFound)
			}
			delete(h.secrets, k)
			return nil
		},
	}
	for _, opt := range opts {
		opt(&d)
	}

	m := New(d)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return next.(Model), h
}

// drain runs cmds and feeds their messages back through Update until
// nothing is left. Commands that block (animation ticks) are dropped.
func drain(t *testing.T, m Model, cmds ...tea.Cmd) Model {
	t.Helper()

	queue := append([]tea.Cmd(nil), cmds...)
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 500, "message loop did not settle")

		cmd := queue[0]
		queue = queue[1:]
		if cmd == nil {
			continue
		}

		msg, ok := run(cmd)
		if !ok || msg == nil {
			continue
		}
		switch msg := msg.(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
			continue
		case spinner.TickMsg, tea.QuitMsg:
			continue
		}

		next, c := m.Update(msg)
		m = next.(Model)
		queue = append(queue, c)
	}
	return m
}

func run(cmd tea.Cmd) (tea.Msg, bool) {
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	select {
	case msg := <-ch:
		return msg, true
	case <-time.After(200 * time.Millisecond):
		return nil, false
	}
}

func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, cmd := m.Update(msg)
	return drain(t, next.(Model), cmd)
}

func press(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func twoMessages() model.MessageList {
	return model.MessageList{Count: 2, Messages: []model.MessageSummary{
		{ID: "e2", From: "b@service.test", Subject: "Second", ReceivedAt: t0.Unix() - 30},
		{ID: "e1", From: "a@service.test", Subject: "First", ReceivedAt: t0.Unix() - 600},
	}}
}

func active(t *testing.T, m Model) Model {
	t.Helper()
	m = send(t, m, create.SubmitMsg{TTL: time.Hour})
	require.Equal(t, session.Active, m.ctrl.State())
	return m
}

func TestCreate_PersistsSessionAndListing(t *testing.T) {
	m, h := newApp(t)
	h.backend.list = twoMessages()

	m = send(t, m, press("n"))
	assert.Equal(t, ViewCreate, m.currentView)

	m = active(t, m)
	assert.Equal(t, ViewInbox, m.currentView)
	assert.Equal(t, 2, m.ctrl.Count())

	out := m.View()
	assert.Contains(t, out, "abc@mail.test")
	assert.Contains(t, out, "01:00:00")
	assert.Contains(t, out, "Second")

	ctx := context.Background()
	stored, err := m.store.LatestActiveSession(ctx, t0)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "abc", stored.ID)

	cached, err := m.store.GetMessages(ctx, "abc")
	require.NoError(t, err)
	assert.Len(t, cached, 2)
}

func TestPollGrowth_RecordsNotification(t *testing.T) {
	m, h := newApp(t)
	m = active(t, m)

	h.backend.mu.Lock()
	h.backend.list = twoMessages()
	h.backend.mu.Unlock()

	m = send(t, m, h.polls.last())

	assert.Equal(t, 2, m.ctrl.Count())
	assert.Equal(t, "2 new emails", m.notice)
	assert.Equal(t, 1, m.unreadCount)
	assert.Contains(t, m.View(), "[1 new]")

	m = send(t, m, command.CommandMsg{Name: "notifications"})
	assert.Equal(t, "2 new emails", m.notice)

	m = send(t, m, command.CommandMsg{Name: "read"})
	assert.Equal(t, 0, m.unreadCount)

	m = send(t, m, command.CommandMsg{Name: "notifications"})
	assert.Equal(t, "No unread notifications", m.notice)
}

func TestNotificationsCommand_Truncates(t *testing.T) {
	m, _ := newApp(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		require.NoError(t, m.store.CreateNotification(ctx, model.Notification{
			Kind:      model.NotificationNewMessages,
			Message:   fmt.Sprintf("note %d", i),
			CreatedAt: t0.Add(time.Duration(i) * time.Minute),
		}))
	}

	m = send(t, m, command.CommandMsg{Name: "notifications"})
	assert.Equal(t, "note 5 | note 4 | note 3 (+2 more)", m.notice)
}

func TestServerExpiry_ResetsToWelcome(t *testing.T) {
	m, h := newApp(t)
	m = active(t, m)

	h.backend.mu.Lock()
	h.backend.expired = true
	h.backend.mu.Unlock()

	m = send(t, m, h.polls.last())

	assert.Equal(t, session.Idle, m.ctrl.State())
	assert.Equal(t, countdown.ExpiredLabel, m.ctrl.CountdownLabel())
	assert.Contains(t, m.notice, "has expired")
	assert.Equal(t, 1, m.unreadCount)
	assert.Contains(t, m.View(), "No active mailbox")

	stored, err := m.store.LatestActiveSession(context.Background(), t0)
	require.NoError(t, err)
	assert.Nil(t, stored, "expired sessions are never resumed")
}

func TestOpenMessage_ShowsDetailAndSaves(t *testing.T) {
	m, h := newApp(t)
	h.backend.list = twoMessages()
	h.backend.detail = &model.MessageDetail{
		ID:          "e1",
		InboxID:     "abc",
		From:        "a@service.test",
		Subject:     "First",
		ReceivedAt:  t0.Unix() - 600,
		TextBody:    "Your verification code is 482913",
		Attachments: []model.Attachment{{ID: "a1", Filename: "notes.txt", SizeBytes: 10}},
	}
	m = active(t, m)

	m = send(t, m, inbox.SelectedMsg{EmailID: "e1"})
	require.Equal(t, ViewMessage, m.currentView)
	require.NotNil(t, m.messageView.Detail())
	assert.Equal(t, []string{"482913"}, m.messageView.Detail().Codes)
	assert.Contains(t, m.View(), "notes.txt")

	m = send(t, m, message.ActionMsg{Action: message.ActionSave, EmailID: "e1"})
	require.True(t, strings.HasPrefix(m.notice, "Saved to "), m.notice)
	_, err := os.Stat(strings.TrimPrefix(m.notice, "Saved to "))
	assert.NoError(t, err)

	m = send(t, m, message.ActionMsg{Action: message.ActionCopyCode, EmailID: "e1"})
	assert.Equal(t, []string{"482913"}, h.copied)

	m = send(t, m, message.ActionMsg{Action: message.ActionArchive, EmailID: "e1"})
	assert.Contains(t, m.notice, "Archive unavailable")

	m = send(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewInbox, m.currentView)
	assert.Empty(t, m.ctrl.Viewing())
}

func TestDetail_DroppedAfterExpiry(t *testing.T) {
	m, h := newApp(t)
	h.backend.list = twoMessages()
	m = active(t, m)

	next, _ := m.Update(inbox.SelectedMsg{EmailID: "e1"})
	m = next.(Model)
	require.Equal(t, ViewMessage, m.currentView)

	h.backend.mu.Lock()
	h.backend.expired = true
	h.backend.mu.Unlock()
	m = send(t, m, h.polls.last())

	assert.Equal(t, session.Idle, m.ctrl.State())
	assert.Equal(t, ViewInbox, m.currentView, "message view closes with its mailbox")

	m = send(t, m, session.DetailMsg{SessionID: "abc", EmailID: "e1", Detail: &model.MessageDetail{ID: "e1"}})
	assert.Nil(t, m.detail)
}

func TestCopyAddress(t *testing.T) {
	m, h := newApp(t)
	m = active(t, m)

	m = send(t, m, press("y"))
	assert.Equal(t, []string{"abc@mail.test"}, h.copied)
	assert.Equal(t, "Copied abc@mail.test", m.notice)
}

func TestResume_FromStore(t *testing.T) {
	m, _ := newApp(t)
	ctx := context.Background()

	sess := model.Session{ID: "old", Address: "old@mail.test", ExpiresAt: t0.Unix() + 900, CreatedAt: t0.Add(-time.Hour)}
	require.NoError(t, m.store.SaveSession(ctx, sess))
	require.NoError(t, m.store.ReplaceMessages(ctx, "old", twoMessages().Messages))

	m = drain(t, m, m.Init())

	require.Equal(t, session.Active, m.ctrl.State())
	assert.Equal(t, "old@mail.test", m.ctrl.Session().Address)
	assert.Equal(t, "00:15:00", m.ctrl.CountdownLabel())
}

func TestInit_CreatesWithInitialTTL(t *testing.T) {
	m, _ := newApp(t, func(d *Deps) { d.InitialTTL = 5 * time.Minute })

	m = drain(t, m, m.Init())

	require.Equal(t, session.Active, m.ctrl.State())
	assert.Equal(t, t0.Unix()+600, m.ctrl.Session().ExpiresAt, "clamped to the minimum lifetime")
}

func TestCommands(t *testing.T) {
	m, h := newApp(t)

	m = send(t, m, command.CommandMsg{Name: "token", Args: []string{"s3cret"}})
	assert.Equal(t, "s3cret", h.secrets[credential.KeyAPIToken])

	m = send(t, m, command.CommandMsg{Name: "imap", Args: []string{"pw"}})
	assert.Equal(t, "pw", h.secrets[credential.KeyIMAPPassword])
	assert.Equal(t, "Archive password saved", m.notice)

	m = send(t, m, command.CommandMsg{Name: "new", Args: []string{"soon"}})
	assert.Contains(t, m.notice, "Invalid lifetime")

	m = send(t, m, command.CommandMsg{Name: "new", Args: []string{"2h"}})
	require.Equal(t, session.Active, m.ctrl.State())
	assert.Equal(t, t0.Unix()+7200, m.ctrl.Session().ExpiresAt)

	m = send(t, m, command.CommandMsg{Name: "history"})
	assert.Equal(t, "Recent: abc@mail.test", m.notice)

	m = send(t, m, command.CommandMsg{Name: "bogus"})
	assert.Equal(t, "Unknown command: bogus", m.notice)
}

func TestCommands_ClearSecrets(t *testing.T) {
	m, h := newApp(t)

	m = send(t, m, command.CommandMsg{Name: "token", Args: []string{"s3cret"}})
	m = send(t, m, command.CommandMsg{Name: "token", Args: []string{"clear"}})
	assert.NotContains(t, h.secrets, credential.KeyAPIToken)
	assert.Equal(t, "API token removed", m.notice)

	m = send(t, m, command.CommandMsg{Name: "imap", Args: []string{"clear"}})
	assert.Equal(t, "Archive password removed", m.notice, "a password that was never stored clears cleanly")
}

func TestCommands_SecretFailure(t *testing.T) {
	m, _ := newApp(t, func(d *Deps) {
		d.SetSecret = func(string, string) error { return errors.New("keyring locked") }
	})

	m = send(t, m, command.CommandMsg{Name: "token", Args: []string{"x"}})
	assert.Equal(t, "Saving credential failed: keyring locked", m.notice)
}
