// Package store persists conversations in SQLite. The pipeline never touches
// this layer: the server reads history before a turn and appends the new
// messages after, treating the transcript as append-only.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/jadenj13/opsagent/internals/chat"
)

type Chat struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Single connection: SQLite serialises writers anyway.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS chats (
		id         TEXT PRIMARY KEY,
		title      TEXT NOT NULL DEFAULT 'New Chat',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		chat_id    TEXT NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
		role       TEXT NOT NULL,
		content    TEXT,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) CreateChat(ctx context.Context) (Chat, error) {
	now := time.Now()
	c := Chat{ID: uuid.NewString(), Title: "New Chat", CreatedAt: now, UpdatedAt: now}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO chats (id, title, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		c.ID, c.Title, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return Chat{}, fmt.Errorf("create chat: %w", err)
	}
	return c, nil
}

// GetChat returns nil without error when the chat does not exist.
func (s *Store) GetChat(ctx context.Context, id string) (*Chat, error) {
	var c Chat
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chats WHERE id = ?`, id,
	).Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get chat: %w", err)
	}
	return &c, nil
}

func (s *Store) ListChats(ctx context.Context) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, created_at, updated_at FROM chats ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list chats: %w", err)
	}
	defer rows.Close()

	var chats []Chat
	for rows.Next() {
		var c Chat
		if err := rows.Scan(&c.ID, &c.Title, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		chats = append(chats, c)
	}
	return chats, rows.Err()
}

func (s *Store) DeleteChat(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM messages WHERE chat_id = ?`, id); err != nil {
		return fmt.Errorf("delete chat messages: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM chats WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete chat: %w", err)
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, chatID string, m chat.Message) error {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (chat_id, role, content) VALUES (?, ?, ?)`,
		chatID, string(m.Role), m.Content,
	); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE chats SET updated_at = ? WHERE id = ?`, time.Now(), chatID)
	return err
}

func (s *Store) Messages(ctx context.Context, chatID string) ([]chat.Message, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT role, content FROM messages WHERE chat_id = ? ORDER BY id`, chatID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var msgs []chat.Message
	for rows.Next() {
		var role, content string
		if err := rows.Scan(&role, &content); err != nil {
			return nil, err
		}
		msgs = append(msgs, chat.Normalize(map[string]any{"role": role, "content": content}))
	}
	return msgs, rows.Err()
}
