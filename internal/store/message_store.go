package store

import (
	"context"
	"fmt"

	"github.com/nhle/tempinbox/internal/model"
)

// ReplaceMessages swaps the cached listing of an inbox for msgs.
func (s *SQLiteStore) ReplaceMessages(
	ctx context.Context,
	inboxID string,
	msgs []model.MessageSummary,
) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE inbox_id = ?", inboxID); err != nil {
		return fmt.Errorf("clearing messages for %s: %w", inboxID, err)
	}

	if len(msgs) > 0 {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT OR REPLACE INTO messages (
				inbox_id, id, from_address, subject,
				received_at, has_html, attachment_count
			) VALUES (?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return fmt.Errorf("preparing message insert: %w", err)
		}
		defer stmt.Close()

		for _, m := range msgs {
			_, err := stmt.ExecContext(ctx,
				inboxID, m.ID, m.From, m.Subject,
				m.ReceivedAt, boolToInt(m.HasHTML), m.AttachmentCount,
			)
			if err != nil {
				return fmt.Errorf("caching message %s: %w", m.ID, err)
			}
		}
	}

	return tx.Commit()
}

// GetMessages returns the cached listing of an inbox, newest first.
func (s *SQLiteStore) GetMessages(ctx context.Context, inboxID string) ([]model.MessageSummary, error) {
	var msgs []model.MessageSummary
	err := s.db.SelectContext(ctx, &msgs, `
		SELECT id, from_address, subject, received_at, has_html, attachment_count
		FROM messages WHERE inbox_id = ?
		ORDER BY received_at DESC`,
		inboxID,
	)
	if err != nil {
		return nil, fmt.Errorf("loading messages for %s: %w", inboxID, err)
	}
	return msgs, nil
}
