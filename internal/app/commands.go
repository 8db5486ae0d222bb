package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/archive"
	"github.com/nhle/tempinbox/internal/credential"
	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/session"
	"github.com/nhle/tempinbox/internal/ui/command"
)

const (
	// historyLimit is how many past mailboxes the history command lists.
	historyLimit = 5

	// notificationLimit is how many unread notifications fit in the notice.
	notificationLimit = 3
)

// archiverReadyMsg swaps in an archiver built with a new password.
type archiverReadyMsg struct {
	archiver *archive.Archiver
}

// executeCommand handles a command from the command palette.
func (m Model) executeCommand(cmd command.CommandMsg) (tea.Model, tea.Cmd) {
	switch cmd.Name {
	case "new", "create":
		if len(cmd.Args) == 0 {
			m.currentView = ViewCreate
			return m, m.createView.Start()
		}
		ttl, err := time.ParseDuration(cmd.Args[0])
		if err != nil {
			m.setNotice("Invalid lifetime "+cmd.Args[0]+", use e.g. 30m or 6h", model.NotificationError)
			return m, nil
		}
		m.currentView = ViewInbox
		return m, m.createMailbox(m.cfg.Inbox.ClampTTL(ttl))

	case "refresh", "sync":
		return m, m.ctrl.Refresh()

	case "reset", "discard":
		if m.ctrl.State() != session.Idle {
			m.ctrl.Reset()
			m.setNotice("Mailbox discarded", "")
		}
		return m, nil

	case "history":
		return m, m.loadHistory()

	case "notifications":
		return m, m.listUnread()

	case "read":
		return m, m.markAllRead()

	case "token":
		if len(cmd.Args) != 1 {
			m.setNotice("usage: token <value>", model.NotificationError)
			return m, nil
		}
		if cmd.Args[0] == "clear" {
			return m, m.deleteSecret(credential.KeyAPIToken, "API token removed")
		}
		return m, m.storeSecret(credential.KeyAPIToken, cmd.Args[0],
			"API token saved; it is used from the next start")

	case "imap":
		if len(cmd.Args) != 1 {
			m.setNotice("usage: imap <password>", model.NotificationError)
			return m, nil
		}
		if cmd.Args[0] == "clear" {
			m.archiver = archive.New(m.cfg.Archive, "", m.log)
			return m, m.deleteSecret(credential.KeyIMAPPassword, "Archive password removed")
		}
		return m, m.storeIMAPPassword(cmd.Args[0])

	case "quit", "q":
		return m.quit()
	}

	m.setNotice("Unknown command: "+cmd.Name, model.NotificationError)
	return m, nil
}

func (m Model) loadHistory() tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		sessions, err := s.ListSessions(ctx, historyLimit)
		if err != nil {
			return errorNotice("History unavailable", err)
		}
		if len(sessions) == 0 {
			return noticeMsg{text: "No previous mailboxes"}
		}
		addrs := make([]string, len(sessions))
		for i, sess := range sessions {
			addrs[i] = sess.Address
		}
		return noticeMsg{text: "Recent: " + strings.Join(addrs, ", ")}
	}
}

// listUnread shows the newest unread notifications in the notice.
func (m Model) listUnread() tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		unread, err := s.GetUnreadNotifications(ctx)
		if err != nil {
			return errorNotice("Notifications unavailable", err)
		}
		if len(unread) == 0 {
			return noticeMsg{text: "No unread notifications"}
		}
		shown := unread
		if len(shown) > notificationLimit {
			shown = shown[:notificationLimit]
		}
		texts := make([]string, len(shown))
		for i, n := range shown {
			texts[i] = n.Message
		}
		text := strings.Join(texts, " | ")
		if more := len(unread) - len(shown); more > 0 {
			text += fmt.Sprintf(" (+%d more)", more)
		}
		return noticeMsg{text: text}
	}
}

func (m Model) markAllRead() tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := s.MarkAllNotificationsRead(ctx); err != nil {
			return errorNotice("Marking read failed", err)
		}
		return countUnread(ctx, s)
	}
}

func (m Model) storeSecret(key, value, done string) tea.Cmd {
	set := m.setSecret
	log := m.log
	return func() tea.Msg {
		if err := set(key, value); err != nil {
			log.Warn("storing credential failed", zap.String("key", key), zap.Error(err))
			return errorNotice("Saving credential failed", err)
		}
		return noticeMsg{text: done}
	}
}

func (m Model) deleteSecret(key, done string) tea.Cmd {
	del := m.delSecret
	log := m.log
	return func() tea.Msg {
		if err := del(key); err != nil && !credential.IsNotFound(err) {
			log.Warn("removing credential failed", zap.String("key", key), zap.Error(err))
			return errorNotice("Removing credential failed", err)
		}
		return noticeMsg{text: done}
	}
}

// storeIMAPPassword saves the archive password and, once stored, rebuilds
// the archiver with it.
func (m Model) storeIMAPPassword(password string) tea.Cmd {
	cfg := m.cfg.Archive
	set := m.setSecret
	log := m.log
	return func() tea.Msg {
		if err := set(credential.KeyIMAPPassword, password); err != nil {
			log.Warn("storing credential failed", zap.String("key", credential.KeyIMAPPassword), zap.Error(err))
			return errorNotice("Saving credential failed", err)
		}
		return archiverReadyMsg{archiver: archive.New(cfg, password, log)}
	}
}
