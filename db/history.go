package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/waldirborbajr/autoupdate/events"
	"github.com/waldirborbajr/autoupdate/logger"
	"github.com/waldirborbajr/autoupdate/updater"
	_ "modernc.org/sqlite"
)

const historySchema = `
CREATE TABLE IF NOT EXISTS update_history (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id  TEXT NOT NULL,
    kind        TEXT NOT NULL,
    name        TEXT NOT NULL,
    version     TEXT,
    detail      TEXT,
    created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_update_history_created ON update_history(created_at);
`

const (
	KindCheck = "check"
	KindEvent = "event"
)

// Entry is one row of update history.
type Entry struct {
	ID        int64
	SessionID string
	Kind      string
	Name      string
	Version   string
	Detail    string
	CreatedAt time.Time
}

// History records update activity in a local SQLite file. It sits on the
// observer side; the updater itself never reads it.
type History struct {
	db        *sql.DB
	sessionID string
	now       func() time.Time
}

// OpenHistory opens (and creates when needed) the history database at path.
func OpenHistory(path, sessionID string) (*History, error) {
	log := logger.GetLogger()

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("error opening update history: %w", err)
	}
	if err = db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Error closing update history")
		}
		return nil, fmt.Errorf("update history is not accessible: %w", err)
	}
	// a single writer keeps SQLite away from "database is locked"
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(historySchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("error initializing update history schema: %w", err)
	}

	log.Debug().Str("path", path).Msg("Update history opened")
	return &History{db: db, sessionID: sessionID, now: time.Now}, nil
}

func (h *History) Close() error {
	return h.db.Close()
}

// RecordCheck stores the outcome of a Checker run.
func (h *History) RecordCheck(ctx context.Context, res updater.CheckResult) error {
	var ver, detail string
	switch res.Status {
	case updater.UpdateAvailable:
		ver = res.Descriptor.Candidate().Original()
		detail = res.Descriptor.DownloadLocation().String()
	case updater.CheckFailed:
		if res.Err != nil {
			detail = res.Err.Error()
		}
	}
	return h.insert(ctx, KindCheck, res.Status.String(), ver, detail)
}

// RecordEvent stores one observer event with its JSON payload.
func (h *History) RecordEvent(ctx context.Context, name string, payload any) error {
	var detail string
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("error encoding event payload: %w", err)
		}
		detail = string(b)
	}
	return h.insert(ctx, KindEvent, name, "", detail)
}

// Emit makes History usable as an events.Sink. Wrap it in events.Async so
// disk writes never hold up a download.
func (h *History) Emit(name string, payload any) {
	if err := h.RecordEvent(context.Background(), name, payload); err != nil {
		logger.Warn().Err(err).Str("event", name).Msg("Failed to record update event")
	}
}

var _ events.Sink = (*History)(nil)

func (h *History) insert(ctx context.Context, kind, name, ver, detail string) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO update_history (session_id, kind, name, version, detail, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		h.sessionID, kind, name, nullable(ver), nullable(detail), h.now().UTC())
	if err != nil {
		return fmt.Errorf("error writing update history: %w", err)
	}
	return nil
}

// Recent returns the latest entries, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := h.db.QueryContext(ctx,
		`SELECT id, session_id, kind, name, version, detail, created_at
         FROM update_history ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("error querying update history: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error().Err(err).Msg("Error closing update history rows")
		}
	}()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ver, detail sql.NullString
		if err := rows.Scan(&e.ID, &e.SessionID, &e.Kind, &e.Name, &ver, &detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning update history: %w", err)
		}
		e.Version = ver.String
		e.Detail = detail.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error iterating update history: %w", err)
	}
	return out, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
