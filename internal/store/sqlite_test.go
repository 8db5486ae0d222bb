package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tempinbox/internal/model"
	"github.com/nhle/tempinbox/tests/testutil"
)

var now = time.Unix(1_700_000_000, 0)

func TestSaveSession_ListSessions(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSession(ctx, model.Session{ID: "a", Address: "a@x", ExpiresAt: now.Unix() + 60}))
	sessions, err := s.ListSessions(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, sessions, 1)
}

func TestLatestActiveSession(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	got, err := s.LatestActiveSession(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, s.SaveSession(ctx, model.Session{
		ID: "old", Address: "old@x", ExpiresAt: now.Unix() - 10, CreatedAt: now.Add(-2 * time.Hour),
	}))
	require.NoError(t, s.SaveSession(ctx, model.Session{
		ID: "live", Address: "live@x", ExpiresAt: now.Unix() + 600, CreatedAt: now.Add(-time.Minute),
	}))

	got, err = s.LatestActiveSession(ctx, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "live", got.ID)
	assert.Equal(t, "live@x", got.Address)
	assert.Equal(t, now.Unix()+600, got.ExpiresAt)

	require.NoError(t, s.MarkSessionExpired(ctx, "live"))
	got, err = s.LatestActiveSession(ctx, now)
	require.NoError(t, err)
	assert.Nil(t, got)

	assert.Error(t, s.MarkSessionExpired(ctx, "missing"))
}

func TestSaveSession_RejectsEmptyID(t *testing.T) {
	s := testutil.NewTestStore(t)
	assert.Error(t, s.SaveSession(context.Background(), model.Session{}))
}

func TestMessages_ReplaceAndGet(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSession(ctx, model.Session{ID: "a", Address: "a@x", ExpiresAt: now.Unix() + 60}))

	require.NoError(t, s.ReplaceMessages(ctx, "a", []model.MessageSummary{
		{ID: "e1", From: "x@y", Subject: "older", ReceivedAt: 10},
		{ID: "e2", From: "z@y", Subject: "newer", ReceivedAt: 20, HasHTML: true, AttachmentCount: 2},
	}))

	msgs, err := s.GetMessages(ctx, "a")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "e2", msgs[0].ID)
	assert.True(t, msgs[0].HasHTML)
	assert.Equal(t, 2, msgs[0].AttachmentCount)
	assert.Equal(t, "x@y", msgs[1].From)

	require.NoError(t, s.ReplaceMessages(ctx, "a", nil))
	msgs, err = s.GetMessages(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, msgs)
}

func TestPurgeExpired_CascadesMessages(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.SaveSession(ctx, model.Session{ID: "gone", Address: "g@x", ExpiresAt: now.Unix() - 1}))
	require.NoError(t, s.SaveSession(ctx, model.Session{ID: "kept", Address: "k@x", ExpiresAt: now.Unix() + 60}))
	require.NoError(t, s.ReplaceMessages(ctx, "gone", []model.MessageSummary{{ID: "e1", ReceivedAt: 1}}))

	n, err := s.PurgeExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	msgs, err := s.GetMessages(ctx, "gone")
	require.NoError(t, err)
	assert.Empty(t, msgs)

	sessions, err := s.ListSessions(ctx, 10)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "kept", sessions[0].ID)
}

func TestNotifications(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		InboxID: "a", Kind: model.NotificationNewMessages, Message: "3 new emails",
		CreatedAt: now,
	}))
	require.NoError(t, s.CreateNotification(ctx, model.Notification{
		InboxID: "a", Kind: model.NotificationExpired, Message: "Your inbox has expired",
		CreatedAt: now.Add(time.Minute),
	}))

	n, err := s.CountUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	unread, err := s.GetUnreadNotifications(ctx)
	require.NoError(t, err)
	require.Len(t, unread, 2)
	assert.Equal(t, model.NotificationExpired, unread[0].Kind)
	assert.NotEmpty(t, unread[0].ID)

	require.NoError(t, s.MarkAllNotificationsRead(ctx))
	n, err = s.CountUnreadNotifications(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
