// Package blockqueue persists prompt-prefix messages left behind by block
// decisions. A blocked tool call can enqueue a note; the host drains the
// queue at the next prompt boundary and prefixes the messages to it.
package blockqueue

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS blocked_messages (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL DEFAULT '',
	message    TEXT NOT NULL,
	delivered  INTEGER NOT NULL DEFAULT 0,
	created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_blocked_messages_pending
	ON blocked_messages (session_id, delivered, id);
`

// Message is one queued prompt-prefix note.
type Message struct {
	ID        int64
	SessionID string
	Message   string
	CreatedAt time.Time
}

// Queue is a SQLite-backed message queue.
type Queue struct {
	db *sql.DB
}

// Open creates or opens the queue database at path.
func Open(path string) (*Queue, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("blockqueue: open database: %w", err)
	}

	// SQLite is single-writer by design. A single shared connection lets
	// database/sql serialize concurrent callers instead of them fighting
	// for write locks.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("blockqueue: set pragma: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("blockqueue: create schema: %w", err)
	}

	return &Queue{db: db}, nil
}

// Close closes the database connection.
func (q *Queue) Close() error {
	return q.db.Close()
}

// Enqueue stores a message for later delivery. The session ID may be empty
// when the host does not scope queues per session.
func (q *Queue) Enqueue(ctx context.Context, sessionID, message string) error {
	_, err := q.db.ExecContext(ctx, `
		INSERT INTO blocked_messages (session_id, message, created_at) VALUES (?, ?, ?)
	`, sessionID, message, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("blockqueue: enqueue: %w", err)
	}
	return nil
}

// Drain returns the undelivered messages for a session, oldest first, and
// marks them delivered in the same transaction.
func (q *Queue) Drain(ctx context.Context, sessionID string) ([]Message, error) {
	tx, err := q.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("blockqueue: begin: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id, session_id, message, created_at
		FROM blocked_messages
		WHERE session_id = ? AND delivered = 0
		ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("blockqueue: select: %w", err)
	}

	var messages []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.SessionID, &m.Message, &m.CreatedAt); err != nil {
			rows.Close()
			return nil, fmt.Errorf("blockqueue: scan: %w", err)
		}
		messages = append(messages, m)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("blockqueue: rows: %w", err)
	}

	if len(messages) > 0 {
		if _, err := tx.ExecContext(ctx, `
			UPDATE blocked_messages SET delivered = 1
			WHERE session_id = ? AND delivered = 0
		`, sessionID); err != nil {
			return nil, fmt.Errorf("blockqueue: mark delivered: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("blockqueue: commit: %w", err)
	}
	return messages, nil
}

// Pending reports the number of undelivered messages for a session.
func (q *Queue) Pending(ctx context.Context, sessionID string) (int, error) {
	var n int
	err := q.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM blocked_messages
		WHERE session_id = ? AND delivered = 0
	`, sessionID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("blockqueue: count: %w", err)
	}
	return n, nil
}
