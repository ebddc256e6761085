// Package history keeps a journal of probe and stream activity in a local
// SQLite database. The journal is advisory: callers log and continue when
// a write fails.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"mediarelay/internal/config"
	"mediarelay/internal/media"
)

// DefaultLimit is the number of entries List returns when limit <= 0.
const DefaultLimit = 50

const schema = `
CREATE TABLE IF NOT EXISTS activity (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	action      TEXT    NOT NULL,
	url         TEXT    NOT NULL,
	title       TEXT    NOT NULL DEFAULT '',
	kind        TEXT    NOT NULL DEFAULT '',
	status      TEXT    NOT NULL,
	bytes       INTEGER NOT NULL DEFAULT 0,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS activity_created_at ON activity (created_at);
`

// Store is an open activity journal.
type Store struct {
	db *sql.DB
}

// OpenDefault opens the journal at the configured data path.
func OpenDefault() (*Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	return Open(path)
}

// Open opens or creates the journal at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("creating history dir: %w", err)
	}

	dsn := "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// One writer at a time; readers share the same connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating history: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record appends an entry. A zero CreatedAt is stamped with the current time.
func (s *Store) Record(ctx context.Context, a media.Activity) error {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO activity (action, url, title, kind, status, bytes, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Action, a.URL, a.Title, a.Kind, string(a.Status), a.Bytes,
		a.Duration.Milliseconds(), a.CreatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("recording activity: %w", err)
	}
	return nil
}

// List returns up to limit entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]media.Activity, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, action, url, title, kind, status, bytes, duration_ms, created_at
		 FROM activity ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	defer rows.Close()

	var entries []media.Activity
	for rows.Next() {
		var (
			a          media.Activity
			status     string
			durationMS int64
			createdMS  int64
		)
		if err := rows.Scan(&a.ID, &a.Action, &a.URL, &a.Title, &a.Kind, &status, &a.Bytes, &durationMS, &createdMS); err != nil {
			return nil, fmt.Errorf("reading history: %w", err)
		}
		a.Status = media.Status(status)
		a.Duration = time.Duration(durationMS) * time.Millisecond
		a.CreatedAt = time.UnixMilli(createdMS)
		entries = append(entries, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history: %w", err)
	}
	return entries, nil
}

// Clear removes every entry.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM activity`); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

// FormatForDisplay renders entries as single display lines.
func FormatForDisplay(entries []media.Activity) []string {
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		label := e.Title
		if label == "" {
			label = e.URL
		}
		action := e.Action
		if e.Kind != "" {
			action += "/" + e.Kind
		}
		line := fmt.Sprintf("%s  %-12s %-9s %s",
			e.CreatedAt.Format("2006-01-02 15:04"), action, e.Status, label)
		if e.Bytes > 0 {
			line += fmt.Sprintf(" [%s]", HumanBytes(e.Bytes))
		}
		items = append(items, strings.TrimRight(line, " "))
	}
	return items
}

// HumanBytes formats n with binary units.
func HumanBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
