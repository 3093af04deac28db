// Package history stores chat messages per visitor in SQLite so a
// conversation survives restarts and gives the model context.
package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Roles stored in the role column.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// timeFormat is fixed-width so created_at sorts correctly as text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

// ErrInvalidVisitor is returned when a visitor id is empty.
var ErrInvalidVisitor = errors.New("visitor id is required")

// Message is one stored chat message.
type Message struct {
	ID        string    `json:"id"`
	VisitorID string    `json:"visitor_id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Store persists chat messages.
type Store interface {
	// Append stores m, filling in ID and CreatedAt when empty.
	Append(ctx context.Context, m Message) (Message, error)
	// Recent returns up to limit of the visitor's latest messages, oldest first.
	Recent(ctx context.Context, visitorID string, limit int) ([]Message, error)
	// Clear deletes the visitor's messages.
	Clear(ctx context.Context, visitorID string) error
	Close() error
}

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

// NewSQLiteStore opens the database at dbPath, creating the parent
// directory and the chat_messages table if needed. ":memory:" opens a
// private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chat_messages (
		id TEXT PRIMARY KEY,
		visitor_id TEXT NOT NULL,
		role TEXT NOT NULL CHECK (role IN ('user', 'assistant')),
		content TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_chat_messages_visitor ON chat_messages(visitor_id, created_at);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Append stores a message.
func (s *SQLiteStore) Append(ctx context.Context, m Message) (Message, error) {
	if strings.TrimSpace(m.VisitorID) == "" {
		return Message{}, ErrInvalidVisitor
	}
	if m.Role != RoleUser && m.Role != RoleAssistant {
		return Message{}, fmt.Errorf("invalid role %q", m.Role)
	}
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = s.now()
	}
	m.CreatedAt = m.CreatedAt.UTC()

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chat_messages (id, visitor_id, role, content, created_at) VALUES (?, ?, ?, ?, ?)`,
		m.ID, m.VisitorID, m.Role, m.Content, m.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return Message{}, fmt.Errorf("append message: %w", err)
	}
	return m, nil
}

// Recent returns the visitor's latest messages in chronological order.
func (s *SQLiteStore) Recent(ctx context.Context, visitorID string, limit int) ([]Message, error) {
	if strings.TrimSpace(visitorID) == "" {
		return nil, ErrInvalidVisitor
	}
	if limit <= 0 {
		return nil, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
	SELECT id, visitor_id, role, content, created_at
	FROM chat_messages
	WHERE visitor_id = ?
	ORDER BY created_at DESC, rowid DESC
	LIMIT ?`, visitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []Message
	for rows.Next() {
		var m Message
		var createdAt string
		if err := rows.Scan(&m.ID, &m.VisitorID, &m.Role, &m.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.CreatedAt, err = time.Parse(timeFormat, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at %q: %w", createdAt, err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	slices.Reverse(out)
	return out, nil
}

// Clear deletes all of a visitor's messages.
func (s *SQLiteStore) Clear(ctx context.Context, visitorID string) error {
	if strings.TrimSpace(visitorID) == "" {
		return ErrInvalidVisitor
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.ExecContext(ctx, `DELETE FROM chat_messages WHERE visitor_id = ?`, visitorID); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
