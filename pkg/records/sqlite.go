package records

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
)

type SQLiteStore struct {
	db *sql.DB
}

var _ Store = &SQLiteStore{}

// DSNForFile builds a sqlite DSN with WAL and a busy timeout.
func DSNForFile(path string) (string, error) {
	if path == "" {
		return "", errors.New("sqlite records store: empty path")
	}
	return fmt.Sprintf("file:%s?_journal_mode=WAL&_busy_timeout=5000", path), nil
}

func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	if dsn == "" {
		return nil, errors.New("sqlite records store: empty dsn")
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite records store: open")
	}
	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS conversation_records (
		  id INTEGER PRIMARY KEY AUTOINCREMENT,
		  session_id TEXT NOT NULL,
		  saved_at_ms INTEGER NOT NULL,
		  message_count INTEGER NOT NULL,
		  messages_json TEXT NOT NULL
		);`,
		`DROP INDEX IF EXISTS conversation_records_by_session;`,
		`DELETE FROM conversation_records
		  WHERE id NOT IN (SELECT MAX(id) FROM conversation_records GROUP BY session_id);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS conversation_records_session
		  ON conversation_records(session_id);`,
		`CREATE INDEX IF NOT EXISTS conversation_records_by_saved
		  ON conversation_records(saved_at_ms DESC);`,
	}
	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return errors.Wrap(err, "sqlite records store: migrate")
		}
	}
	return nil
}

// Save stores r, replacing any earlier record of the same session. The record
// keeps its id across saves.
func (s *SQLiteStore) Save(ctx context.Context, r Record) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errors.New("sqlite records store: db is nil")
	}
	if strings.TrimSpace(r.SessionID) == "" {
		return 0, errors.New("sqlite records store: session id is empty")
	}
	if r.SavedAt.IsZero() {
		r.SavedAt = time.Now()
	}
	payload, err := json.Marshal(r.Messages)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite records store: encode messages")
	}
	var id int64
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO conversation_records (session_id, saved_at_ms, message_count, messages_json)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
		  saved_at_ms = excluded.saved_at_ms,
		  message_count = excluded.message_count,
		  messages_json = excluded.messages_json
		RETURNING id
	`, r.SessionID, r.SavedAt.UnixMilli(), len(r.Messages), string(payload)).Scan(&id)
	if err != nil {
		return 0, errors.Wrap(err, "sqlite records store: upsert")
	}
	return id, nil
}

// List returns the most recent records first; limit <= 0 returns all of them.
func (s *SQLiteStore) List(ctx context.Context, limit int) ([]Summary, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("sqlite records store: db is nil")
	}
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, saved_at_ms, message_count
		FROM conversation_records
		ORDER BY saved_at_ms DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "sqlite records store: list")
	}
	defer func() { _ = rows.Close() }()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			savedAt int64
		)
		if err := rows.Scan(&sum.ID, &sum.SessionID, &savedAt, &sum.MessageCount); err != nil {
			return nil, errors.Wrap(err, "sqlite records store: scan")
		}
		sum.SavedAt = time.UnixMilli(savedAt)
		out = append(out, sum)
	}
	return out, errors.Wrap(rows.Err(), "sqlite records store: iterate")
}

func (s *SQLiteStore) Get(ctx context.Context, id int64) (Record, bool, error) {
	if s == nil || s.db == nil {
		return Record{}, false, errors.New("sqlite records store: db is nil")
	}
	var (
		r        Record
		savedAt  int64
		messages string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, session_id, saved_at_ms, messages_json
		FROM conversation_records
		WHERE id = ?
	`, id).Scan(&r.ID, &r.SessionID, &savedAt, &messages)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errors.Wrap(err, "sqlite records store: get")
	}
	r.SavedAt = time.UnixMilli(savedAt)
	if err := json.Unmarshal([]byte(messages), &r.Messages); err != nil {
		return Record{}, false, errors.Wrap(err, "sqlite records store: decode messages")
	}
	return r, true, nil
}
