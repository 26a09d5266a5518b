// Package sqldriver implements storage.Driver on top of database/sql. The
// sqlite and postgres packages wrap it with their connection setup.
package sqldriver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/papercomputeco/lincode/pkg/llm"
	"github.com/papercomputeco/lincode/pkg/storage"
)

// Dialect captures the differences between supported SQL engines.
type Dialect struct {
	// Name is used in error messages.
	Name string

	// Schema creates the messages table and its index if missing.
	Schema []string

	// Numbered reports whether placeholders are $1, $2, ... instead of ?.
	Numbered bool
}

// SQLite is the dialect of github.com/mattn/go-sqlite3.
var SQLite = Dialect{
	Name: "sqlite",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, id)`,
	},
}

// Postgres is the dialect of github.com/jackc/pgx/v5/stdlib.
var Postgres = Dialect{
	Name: "postgres",
	Schema: []string{
		`CREATE TABLE IF NOT EXISTS messages (
			id BIGSERIAL PRIMARY KEY,
			session_id TEXT NOT NULL,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_session ON messages (session_id, id)`,
	},
	Numbered: true,
}

// SQLDriver implements storage.Driver with a single messages table.
type SQLDriver struct {
	DB      *sql.DB
	dialect Dialect
}

// New creates the schema on db and returns a driver using it. The driver
// takes ownership of db.
func New(ctx context.Context, db *sql.DB, dialect Dialect) (*SQLDriver, error) {
	for _, stmt := range dialect.Schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return nil, fmt.Errorf("failed to create %s schema: %w", dialect.Name, err)
		}
	}

	return &SQLDriver{DB: db, dialect: dialect}, nil
}

func (d *SQLDriver) Append(ctx context.Context, sessionID string, msg llm.Message) error {
	if sessionID == "" {
		return storage.ErrEmptySessionID
	}

	_, err := d.DB.ExecContext(ctx,
		d.rebind(`INSERT INTO messages (session_id, role, content, created_at) VALUES (?, ?, ?, ?)`),
		sessionID, msg.Role, msg.Content, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("appending message: %w", err)
	}
	return nil
}

func (d *SQLDriver) History(ctx context.Context, sessionID string) ([]llm.Message, error) {
	if sessionID == "" {
		return nil, storage.ErrEmptySessionID
	}

	rows, err := d.DB.QueryContext(ctx,
		d.rebind(`SELECT role, content FROM messages WHERE session_id = ? ORDER BY id`),
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	history := []llm.Message{}
	for rows.Next() {
		var msg llm.Message
		if err := rows.Scan(&msg.Role, &msg.Content); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		history = append(history, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating history: %w", err)
	}

	return history, nil
}

func (d *SQLDriver) PopLast(ctx context.Context, sessionID, role string) (bool, error) {
	if sessionID == "" {
		return false, storage.ErrEmptySessionID
	}

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var (
		id       int64
		lastRole string
	)
	err = tx.QueryRowContext(ctx,
		d.rebind(`SELECT id, role FROM messages WHERE session_id = ? ORDER BY id DESC LIMIT 1`),
		sessionID,
	).Scan(&id, &lastRole)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying last message: %w", err)
	}
	if lastRole != role {
		return false, nil
	}

	if _, err := tx.ExecContext(ctx, d.rebind(`DELETE FROM messages WHERE id = ?`), id); err != nil {
		return false, fmt.Errorf("deleting last message: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("committing: %w", err)
	}

	return true, nil
}

func (d *SQLDriver) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return storage.ErrEmptySessionID
	}

	if _, err := d.DB.ExecContext(ctx, d.rebind(`DELETE FROM messages WHERE session_id = ?`), sessionID); err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (d *SQLDriver) Close() error {
	return d.DB.Close()
}

// rebind rewrites ? placeholders for dialects that number them.
func (d *SQLDriver) rebind(query string) string {
	if !d.dialect.Numbered {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}
