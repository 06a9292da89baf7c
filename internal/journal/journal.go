// Package journal persists announced verdicts and answered questions to a
// SQLite database so a session can be reviewed after the fact.
package journal

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/chriscow/eco-go/pkg/advice"
	"github.com/chriscow/eco-go/pkg/live"
)

// Entry kinds.
const (
	KindVerdict = "verdict"
	KindAnswer  = "answer"
)

const queueSize = 64

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("journal closed")

// Entry is one journal row.
type Entry struct {
	ID         int64     `json:"id"`
	SessionID  string    `json:"session_id,omitempty"`
	At         time.Time `json:"at"`
	Kind       string    `json:"kind"`
	Label      string    `json:"label,omitempty"`
	Confidence float64   `json:"confidence,omitempty"`
	Text       string    `json:"text"`   // spoken advice or answer text
	Detail     string    `json:"detail"` // question for answers, empty otherwise
	Source     string    `json:"source,omitempty"`
	Spoken     bool      `json:"spoken"`
}

// Journal is a SQLite-backed append-only log.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
	queue  chan Entry

	mu     sync.RWMutex
	closed bool
}

// Open opens (creating if needed) the journal at path.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create journal directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping journal: %w", err)
	}

	j := &Journal{
		db:     db,
		logger: logger.With(slog.String("component", "journal")),
		queue:  make(chan Entry, queueSize),
	}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate journal: %w", err)
	}
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL DEFAULT '',
		at DATETIME NOT NULL,
		kind TEXT NOT NULL,
		label TEXT NOT NULL DEFAULT '',
		confidence REAL NOT NULL DEFAULT 0,
		text TEXT NOT NULL DEFAULT '',
		detail TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		spoken INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_entries_at ON entries(at DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_session ON entries(session_id);
	`
	_, err := j.db.Exec(schema)
	return err
}

// Append writes an entry synchronously.
func (j *Journal) Append(ctx context.Context, e Entry) (int64, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return 0, ErrClosed
	}
	if e.Kind == "" {
		return 0, errors.New("entry kind is required")
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	res, err := j.db.ExecContext(ctx, `
	INSERT INTO entries (session_id, at, kind, label, confidence, text, detail, source, spoken)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SessionID,
		e.At.UTC().Format(time.RFC3339Nano),
		e.Kind,
		e.Label,
		e.Confidence,
		e.Text,
		e.Detail,
		e.Source,
		e.Spoken,
	)
	if err != nil {
		return 0, fmt.Errorf("append entry: %w", err)
	}
	return res.LastInsertId()
}

// RecordAnswer appends an answered question.
func (j *Journal) RecordAnswer(ctx context.Context, sessionID string, a advice.Answer) error {
	_, err := j.Append(ctx, Entry{
		SessionID: sessionID,
		Kind:      KindAnswer,
		Text:      a.Text,
		Detail:    a.Question,
		Source:    a.Source,
		Spoken:    a.Spoken,
	})
	return err
}

// VerdictEntry converts an announced verdict to an entry.
func VerdictEntry(v live.Verdict) Entry {
	return Entry{
		SessionID:  v.SessionID,
		At:         v.At,
		Kind:       KindVerdict,
		Label:      v.Label,
		Confidence: v.Confidence,
		Text:       v.Spoken,
		Spoken:     v.Dispatched,
	}
}

// Observe queues announced verdicts for Run to write. It never blocks, so it
// can be registered with live.Controller.OnVerdict; verdicts are dropped when
// the queue is full.
func (j *Journal) Observe(v live.Verdict) {
	if !v.ShouldAnnounce {
		return
	}
	select {
	case j.queue <- VerdictEntry(v):
	default:
		j.logger.Warn("Journal queue full, dropping verdict", slog.String("label", v.Label))
	}
}

// Run writes queued verdicts until ctx is done, then drains the queue.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case e := <-j.queue:
			j.write(e)
		case <-ctx.Done():
			for {
				select {
				case e := <-j.queue:
					j.write(e)
				default:
					return nil
				}
			}
		}
	}
}

func (j *Journal) write(e Entry) {
	if _, err := j.Append(context.Background(), e); err != nil {
		j.logger.Error("Failed to write journal entry", slog.String("error", err.Error()))
	}
}

// Recent returns up to limit entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	return j.query(ctx, `
	SELECT id, session_id, at, kind, label, confidence, text, detail, source, spoken
	FROM entries ORDER BY id DESC LIMIT ?`, limit)
}

// Session returns every entry of a session in insertion order.
func (j *Journal) Session(ctx context.Context, sessionID string) ([]Entry, error) {
	return j.query(ctx, `
	SELECT id, session_id, at, kind, label, confidence, text, detail, source, spoken
	FROM entries WHERE session_id = ? ORDER BY id ASC`, sessionID)
}

func (j *Journal) query(ctx context.Context, query string, args ...any) ([]Entry, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return nil, ErrClosed
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var at string
		if err := rows.Scan(&e.ID, &e.SessionID, &at, &e.Kind, &e.Label, &e.Confidence,
			&e.Text, &e.Detail, &e.Source, &e.Spoken); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.At, err = time.Parse(time.RFC3339Nano, at)
		if err != nil {
			return nil, fmt.Errorf("parse entry time: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the database. Queued verdicts not yet written by Run are lost.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.closed {
		return nil
	}
	j.closed = true
	return j.db.Close()
}
