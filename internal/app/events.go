package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/internal/store"
)

// storeTimeout bounds each local database operation.
const storeTimeout = 5 * time.Second

// resumeLoadedMsg carries the session found in the store at start-up.
type resumeLoadedMsg struct {
	session *model.Session
	cached  []model.MessageSummary
	purged  int64
	err     error
}

// unreadCountMsg carries the number of unread notifications to the UI.
type unreadCountMsg struct {
	count int
}

// noticeMsg puts a one-line message in the status bar.
type noticeMsg struct {
	text string
	kind model.NotificationKind
}

func errorNotice(prefix string, err error) noticeMsg {
	return noticeMsg{text: prefix + ": " + err.Error(), kind: model.NotificationError}
}

// loadResume purges dead sessions and loads the newest live one with its
// cached listing.
func (m Model) loadResume() tea.Cmd {
	s := m.store
	if s == nil {
		return func() tea.Msg { return resumeLoadedMsg{} }
	}
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		purged, err := s.PurgeExpired(ctx, now)
		if err != nil {
			return resumeLoadedMsg{err: err}
		}
		sess, err := s.LatestActiveSession(ctx, now)
		if err != nil || sess == nil {
			return resumeLoadedMsg{purged: purged, err: err}
		}
		cached, err := s.GetMessages(ctx, sess.ID)
		if err != nil {
			return resumeLoadedMsg{session: sess, purged: purged, err: err}
		}
		return resumeLoadedMsg{session: sess, cached: cached, purged: purged}
	}
}

func (m *Model) handleResume(msg resumeLoadedMsg) tea.Cmd {
	if msg.err != nil {
		m.log.Warn("loading stored session failed", zap.Error(msg.err))
	}
	if msg.purged > 0 {
		m.log.Info("purged expired sessions", zap.Int64("count", msg.purged))
	}

	if msg.session != nil {
		if cmd := m.ctrl.Resume(*msg.session, msg.cached); cmd != nil {
			m.setNotice("Resumed "+msg.session.Address, "")
			return cmd
		}
	}
	if m.initialTTL > 0 {
		return m.createMailbox(m.cfg.Inbox.ClampTTL(m.initialTTL))
	}
	return nil
}

func (m Model) saveSession(sess model.Session) tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	log := m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := s.SaveSession(ctx, sess); err != nil {
			log.Error("saving session failed", zap.String("inbox_id", sess.ID), zap.Error(err))
		}
		return nil
	}
}

// cacheMessages stores the listing of the live session. The session row
// is upserted first since the first listing can race the creation save.
func (m Model) cacheMessages(inboxID string, msgs []model.MessageSummary) tea.Cmd {
	s := m.store
	if s == nil || !m.ctrl.IsCurrent(inboxID) {
		return nil
	}
	sess := *m.ctrl.Session()
	log := m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := s.SaveSession(ctx, sess); err != nil {
			log.Warn("saving session failed", zap.String("inbox_id", inboxID), zap.Error(err))
			return nil
		}
		if err := s.ReplaceMessages(ctx, inboxID, msgs); err != nil {
			log.Warn("caching messages failed", zap.String("inbox_id", inboxID), zap.Error(err))
		}
		return nil
	}
}

func (m Model) markExpired(inboxID string) tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	log := m.log
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		if err := s.MarkSessionExpired(ctx, inboxID); err != nil {
			log.Warn("marking session expired failed", zap.String("inbox_id", inboxID), zap.Error(err))
		}
		return nil
	}
}

// notify records a notification and reports the new unread count.
func (m Model) notify(inboxID string, kind model.NotificationKind, text string) tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	log := m.log
	now := m.now()
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		err := s.CreateNotification(ctx, model.Notification{
			InboxID:   inboxID,
			Kind:      kind,
			Message:   text,
			CreatedAt: now,
		})
		if err != nil {
			log.Warn("recording notification failed", zap.Error(err))
		}
		return countUnread(ctx, s)
	}
}

// fetchUnreadCount returns a tea.Cmd that queries the store for the
// number of unread notifications.
func (m Model) fetchUnreadCount() tea.Cmd {
	s := m.store
	if s == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		return countUnread(ctx, s)
	}
}

func countUnread(ctx context.Context, s store.Store) unreadCountMsg {
	n, err := s.CountUnreadNotifications(ctx)
	if err != nil {
		return unreadCountMsg{count: 0}
	}
	return unreadCountMsg{count: n}
}
