package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/tempinbox/internal/model"
)

const sessionColumns = "id, address, expires_at, created_at"

// SaveSession inserts or replaces a mailbox session.
func (s *SQLiteStore) SaveSession(ctx context.Context, sess model.Session) error {
	if strings.TrimSpace(sess.ID) == "" {
		return fmt.Errorf("session id must not be empty")
	}
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, address, expires_at, created_at, expired)
		VALUES (?, ?, ?, ?, 0)
		ON CONFLICT(id) DO UPDATE SET
			address = excluded.address,
			expires_at = excluded.expires_at`,
		sess.ID, sess.Address, sess.ExpiresAt, sess.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving session %s: %w", sess.ID, err)
	}
	return nil
}

// LatestActiveSession returns the most recently created session that has
// not expired at now, or nil when there is none.
func (s *SQLiteStore) LatestActiveSession(ctx context.Context, now time.Time) (*model.Session, error) {
	var sess model.Session
	err := s.db.GetContext(ctx, &sess, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE expired = 0 AND expires_at > ?
		ORDER BY created_at DESC LIMIT 1`,
		now.Unix(),
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading latest session: %w", err)
	}
	return &sess, nil
}

// MarkSessionExpired flags a session so it is never resumed.
func (s *SQLiteStore) MarkSessionExpired(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE sessions SET expired = 1 WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("expiring session %s: %w", id, err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// ListSessions returns recent sessions, newest first.
func (s *SQLiteStore) ListSessions(ctx context.Context, limit int) ([]model.Session, error) {
	query := "SELECT " + sessionColumns + " FROM sessions ORDER BY created_at DESC"
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	var sessions []model.Session
	if err := s.db.SelectContext(ctx, &sessions, query); err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	return sessions, nil
}

// PurgeExpired deletes sessions whose expiry has passed, along with their
// cached messages.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at <= ? OR expired = 1", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging expired sessions: %w", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}
