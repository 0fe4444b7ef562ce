// Package archive persists delivered captions and summaries to SQLite.
package archive

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id TEXT PRIMARY KEY,
	epoch INTEGER NOT NULL,
	startedAt REAL NOT NULL
);

CREATE TABLE IF NOT EXISTS segments (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	text TEXT NOT NULL,
	createdAt REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_segments_session ON segments(sessionId, id);

CREATE TABLE IF NOT EXISTS summaries (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sessionId TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
	content TEXT NOT NULL,
	source TEXT NOT NULL,
	sentences INTEGER NOT NULL,
	words INTEGER NOT NULL,
	createdAt REAL NOT NULL
);
`

// Segment is one archived caption.
type Segment struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Epoch     uint64    `json:"epoch"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is one archived summary.
type Summary struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Content   string    `json:"content"`
	Source    string    `json:"source"`
	Sentences int       `json:"sentences"`
	Words     int       `json:"words"`
	CreatedAt time.Time `json:"created_at"`
}

// Session is an archived capture session.
type Session struct {
	ID        string    `json:"id"`
	Epoch     uint64    `json:"epoch"`
	StartedAt time.Time `json:"started_at"`
	Segments  int       `json:"segments"`
}

// Store wraps a SQLite database holding the archive.
type Store struct {
	db *sql.DB
}

// Open opens or creates the archive database at path. ":memory:" keeps it in memory.
func Open(path string) (*Store, error) {
	dsn := path
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		dsn = "file:" + path + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One writer; in-memory databases are per-connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// InsertSegments writes segments in one transaction, creating their sessions as needed.
func (s *Store) InsertSegments(ctx context.Context, segs []Segment) (int, error) {
	if len(segs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, seg := range segs {
		created := seg.CreatedAt
		if created.IsZero() {
			created = time.Now()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO sessions (id, epoch, startedAt) VALUES (?, ?, ?)`,
			seg.SessionID, int64(seg.Epoch), unixFromTime(created)); err != nil {
			return 0, fmt.Errorf("insert session: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO segments (sessionId, text, createdAt) VALUES (?, ?, ?)`,
			seg.SessionID, seg.Text, unixFromTime(created)); err != nil {
			return 0, fmt.Errorf("insert segment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(segs), nil
}

// InsertSummary writes one summary, creating its session if it has no segments yet.
func (s *Store) InsertSummary(ctx context.Context, sum Summary) error {
	created := sum.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (id, epoch, startedAt) VALUES (?, 0, ?)`,
		sum.SessionID, unixFromTime(created)); err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO summaries (sessionId, content, source, sentences, words, createdAt) VALUES (?, ?, ?, ?, ?, ?)`,
		sum.SessionID, sum.Content, sum.Source, sum.Sentences, sum.Words, unixFromTime(created)); err != nil {
		return fmt.Errorf("insert summary: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Sessions returns archived sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.epoch, s.startedAt, COUNT(g.id)
		FROM sessions s LEFT JOIN segments g ON g.sessionId = s.id
		GROUP BY s.id
		ORDER BY s.startedAt DESC, s.rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()

	var out []Session
	for rows.Next() {
		var sess Session
		var epoch int64
		var started float64
		if err := rows.Scan(&sess.ID, &epoch, &started, &sess.Segments); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		sess.Epoch = uint64(epoch)
		sess.StartedAt = timeFromUnix(started)
		out = append(out, sess)
	}
	return out, rows.Err()
}

// Segments returns a session's captions in delivery order.
func (s *Store) Segments(ctx context.Context, sessionID string) ([]Segment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.sessionId, s.epoch, g.text, g.createdAt
		FROM segments g JOIN sessions s ON s.id = g.sessionId
		WHERE g.sessionId = ?
		ORDER BY g.id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var out []Segment
	for rows.Next() {
		var seg Segment
		var epoch int64
		var created float64
		if err := rows.Scan(&seg.ID, &seg.SessionID, &epoch, &seg.Text, &created); err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		seg.Epoch = uint64(epoch)
		seg.CreatedAt = timeFromUnix(created)
		out = append(out, seg)
	}
	return out, rows.Err()
}

// Summaries returns a session's summaries in the order they were produced.
func (s *Store) Summaries(ctx context.Context, sessionID string) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sessionId, content, source, sentences, words, createdAt
		FROM summaries WHERE sessionId = ? ORDER BY id`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("query summaries: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sum Summary
		var created float64
		if err := rows.Scan(&sum.ID, &sum.SessionID, &sum.Content, &sum.Source, &sum.Sentences, &sum.Words, &created); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		sum.CreatedAt = timeFromUnix(created)
		out = append(out, sum)
	}
	return out, rows.Err()
}

func unixFromTime(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}

func timeFromUnix(ts float64) time.Time {
	sec := int64(ts)
	nsec := int64((ts - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
