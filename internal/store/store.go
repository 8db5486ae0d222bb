package store

import (
	"context"
	"time"

	"github.com/nhle/tempinbox/internal/model"
)

// Store defines the local persistence interface: mailbox history, cached
// listings and notifications.
type Store interface {
	// === Sessions ===

	SaveSession(ctx context.Context, s model.Session) error
	LatestActiveSession(ctx context.Context, now time.Time) (*model.Session, error)
	MarkSessionExpired(ctx context.Context, id string) error
	ListSessions(ctx context.Context, limit int) ([]model.Session, error)
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)

	// === Cached listings ===

	ReplaceMessages(ctx context.Context, inboxID string, msgs []model.MessageSummary) error
	GetMessages(ctx context.Context, inboxID string) ([]model.MessageSummary, error)

	// === Notifications ===

	CreateNotification(ctx context.Context, n model.Notification) error
	GetUnreadNotifications(ctx context.Context) ([]model.Notification, error)
	CountUnreadNotifications(ctx context.Context) (int, error)
	MarkAllNotificationsRead(ctx context.Context) error
}
