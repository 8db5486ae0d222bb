package model

import "time"

// Session is the locally held identity of a disposable mailbox.
type Session struct {
	// ID is the backend inbox identifier.
	ID string `json:"id" db:"id"`

	// Address is the full email address assigned to the inbox.
	Address string `json:"address" db:"address"`

	// ExpiresAt is the absolute expiry as epoch seconds.
	ExpiresAt int64 `json:"expires_at" db:"expires_at"`

	// CreatedAt is when the client received the creation response.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ExpiresTime returns ExpiresAt as a time.Time.
func (s Session) ExpiresTime() time.Time {
	return time.Unix(s.ExpiresAt, 0)
}

// RemainingSeconds returns whole seconds left before expiry, never negative.
func (s Session) RemainingSeconds(now time.Time) int64 {
	remaining := s.ExpiresAt - now.Unix()
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Expired reports whether the session has reached its expiry at now.
func (s Session) Expired(now time.Time) bool {
	return s.ExpiresAt-now.Unix() <= 0
}

// InboxStatus is the lightweight existence/count answer used for polling.
type InboxStatus struct {
	Exists     bool
	EmailCount int
	ExpiresAt  int64
}
