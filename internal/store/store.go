// Package store provides the SQL message log and key/value documents,
// backed by SQLite by default or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"ffnexus/internal/core"
	"ffnexus/internal/logger"

	_ "github.com/lib/pq"           // Postgres driver
	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
)

var (
	// ErrNotFound is returned when a key has no value.
	ErrNotFound = errors.New("store: not found")
	// ErrMissingID is returned when saving a message without an id.
	ErrMissingID = errors.New("store: message id is required")
)

// Store represents the SQL-backed message log and key/value store
type Store struct {
	db     *sql.DB
	driver string
	log    *slog.Logger
}

// StoredMessage is a logged message with its verdict.
type StoredMessage struct {
	core.Message
	Score    int    `json:"score"`
	Incident string `json:"incident,omitempty"`
	Seq      int64  `json:"seq"` // Insertion order, starting at 1
}

// NewStore opens the default SQLite database inside dataDir.
func NewStore(dataDir string) (*Store, error) {
	// Ensure data directory exists
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return Open(context.Background(), DriverSQLite, filepath.Join(dataDir, "ffnexus.db"))
}

// Open connects to the database and applies pending migrations.
func Open(ctx context.Context, driver, dsn string) (*Store, error) {
	if driver != DriverSQLite && driver != DriverPostgres {
		return nil, fmt.Errorf("unsupported storage driver %q", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if driver == DriverSQLite {
		// A single writer avoids SQLITE_BUSY between the event loop and maintenance jobs.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := &Store{db: db, driver: driver, log: logger.Get()}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Driver returns the database driver name.
func (s *Store) Driver() string {
	return s.driver
}

// rebind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) rebind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SaveMessage appends a message to the log. Saving the same id twice keeps
// the first copy. Sequence numbers are assigned from the current maximum,
// so a log must have a single writer.
func (s *Store) SaveMessage(ctx context.Context, msg core.Message, score int, incident string) error {
	if msg.ID == "" {
		return ErrMissingID
	}
	attachments, err := json.Marshal(nonNil(msg.Attachments))
	if err != nil {
		return fmt.Errorf("failed to encode attachments: %w", err)
	}

	query := `
	INSERT INTO messages
	(id, author_id, author_tag, channel_id, guild_id, content, url, attachments, created_at, score, incident, seq)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM messages))
	ON CONFLICT (id) DO NOTHING`

	_, err = s.db.ExecContext(ctx, s.rebind(query),
		msg.ID,
		msg.AuthorID,
		msg.AuthorTag,
		msg.ChannelID,
		msg.GuildID,
		msg.Content,
		msg.URL,
		string(attachments),
		msg.CreatedAt,
		score,
		incident,
	)
	if err != nil {
		return fmt.Errorf("failed to save message: %w", err)
	}
	return nil
}

const messageColumns = `id, author_id, author_tag, channel_id, guild_id, content, url, attachments, created_at, score, incident, seq`

// MessagesSince returns messages with createdAt >= fromMs, oldest first.
func (s *Store) MessagesSince(ctx context.Context, fromMs int64) ([]StoredMessage, error) {
	query := `SELECT ` + messageColumns + `
	FROM messages
	WHERE created_at >= ?
	ORDER BY created_at ASC, id ASC`

	return s.queryMessages(ctx, query, fromMs)
}

// MessagesAfter returns messages logged after the given sequence number,
// in insertion order.
func (s *Store) MessagesAfter(ctx context.Context, afterSeq int64) ([]StoredMessage, error) {
	query := `SELECT ` + messageColumns + `
	FROM messages
	WHERE seq > ?
	ORDER BY seq ASC`

	return s.queryMessages(ctx, query, afterSeq)
}

// LastSeq returns the sequence number of the newest logged message, or 0
// for an empty log.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq int64
	if err := s.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(seq), 0) FROM messages").Scan(&seq); err != nil {
		return 0, fmt.Errorf("failed to read last sequence: %w", err)
	}
	return seq, nil
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]StoredMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var out []StoredMessage
	for rows.Next() {
		var m StoredMessage
		var attachments string
		if err := rows.Scan(
			&m.ID, &m.AuthorID, &m.AuthorTag, &m.ChannelID, &m.GuildID,
			&m.Content, &m.URL, &attachments, &m.CreatedAt, &m.Score, &m.Incident, &m.Seq,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		if err := json.Unmarshal([]byte(attachments), &m.Attachments); err != nil {
			s.log.Warn("Skipping unreadable attachments", "id", m.ID, "error", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// CountMessages returns the number of logged messages.
func (s *Store) CountMessages(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count messages: %w", err)
	}
	return n, nil
}

// GetValue returns the document stored under key, or ErrNotFound.
func (s *Store) GetValue(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.rebind("SELECT value FROM kv WHERE key = ?"), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

// PutValue stores a document under key, replacing any previous value.
func (s *Store) PutValue(ctx context.Context, key, value string) error {
	query := `
	INSERT INTO kv (key, value, updated_at) VALUES (?, ?, ?)
	ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

	if _, err := s.db.ExecContext(ctx, s.rebind(query), key, value, time.Now().UnixMilli()); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
