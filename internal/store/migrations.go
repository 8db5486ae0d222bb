package store

// migration holds a single schema migration with its target version and SQL.
type migration struct {
	version int
	sql     string
}

// migrations is the ordered list of schema migrations.
// Each migration's version must be sequential starting from 1.
var migrations = []migration{
	{
		version: 1,
		sql: `
CREATE TABLE IF NOT EXISTS schema_version (
	version INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS sessions (
	id         TEXT PRIMARY KEY,
	address    TEXT NOT NULL,
	expires_at INTEGER NOT NULL,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
	expired    INTEGER NOT NULL DEFAULT 0 CHECK(expired IN (0, 1))
);

CREATE TABLE IF NOT EXISTS notifications (
	id         TEXT PRIMARY KEY,
	inbox_id   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	message    TEXT NOT NULL,
	read       INTEGER NOT NULL DEFAULT 0,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
CREATE INDEX IF NOT EXISTS idx_notifications_read ON notifications(read);
CREATE INDEX IF NOT EXISTS idx_notifications_created ON notifications(created_at);

INSERT INTO schema_version (version) VALUES (1);
`,
	},
	{
		version: 2,
		sql: `
CREATE TABLE IF NOT EXISTS messages (
	inbox_id         TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	id               TEXT NOT NULL,
	from_address     TEXT NOT NULL DEFAULT '',
	subject          TEXT NOT NULL DEFAULT '',
	received_at      INTEGER NOT NULL,
	has_html         INTEGER NOT NULL DEFAULT 0 CHECK(has_html IN (0, 1)),
	attachment_count INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (inbox_id, id)
);

CREATE INDEX IF NOT EXISTS idx_messages_received ON messages(inbox_id, received_at);
CREATE INDEX IF NOT EXISTS idx_notifications_inbox_id ON notifications(inbox_id);

INSERT INTO schema_version (version) VALUES (2);
`,
	},
}
