package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const eventColumns = `id, session_id, timestamp, event_type, actor_id, phase, payload`

// SQLiteEventRepository implements EventRepository for SQLite.
type SQLiteEventRepository struct {
	db *sql.DB
}

func NewSQLiteEventRepository(db *sql.DB) *SQLiteEventRepository {
	return &SQLiteEventRepository{db: db}
}

func (r *SQLiteEventRepository) Append(ctx context.Context, event JournalEvent) error {
	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	if !json.Valid(payload) {
		return fmt.Errorf("failed to append event %s: invalid payload json", event.ID)
	}

	query := `INSERT INTO events (` + eventColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, query,
		event.ID, event.SessionID, event.Timestamp, event.EventType,
		event.ActorID, event.Phase, string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to append event: %w", err)
	}
	return nil
}

func (r *SQLiteEventRepository) getMany(ctx context.Context, query string, args ...interface{}) ([]JournalEvent, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []JournalEvent
	for rows.Next() {
		var e JournalEvent
		var payloadStr string
		err := rows.Scan(&e.ID, &e.SessionID, &e.Timestamp, &e.EventType, &e.ActorID, &e.Phase, &payloadStr)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Payload = json.RawMessage(payloadStr)
		events = append(events, e)
	}
	return events, rows.Err()
}

// Rows come back in insertion order; journal timestamps can tie on the virtual clock.

func (r *SQLiteEventRepository) GetBySessionID(ctx context.Context, sessionID string) ([]JournalEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID)
}

func (r *SQLiteEventRepository) GetByActorID(ctx context.Context, sessionID, actorID string) ([]JournalEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? AND actor_id = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, actorID)
}

func (r *SQLiteEventRepository) GetByEventType(ctx context.Context, sessionID, eventType string) ([]JournalEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE session_id = ? AND event_type = ? ORDER BY seq ASC`
	return r.getMany(ctx, query, sessionID, eventType)
}

func (r *SQLiteEventRepository) CountByType(ctx context.Context, sessionID string) (map[string]int, error) {
	query := `SELECT event_type, COUNT(*) FROM events WHERE session_id = ? GROUP BY event_type`
	rows, err := r.db.QueryContext(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to count events: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var t string
		var n int
		if err := rows.Scan(&t, &n); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[t] = n
	}
	return counts, rows.Err()
}

// ---------------------------------------------------------
// SQLiteSummaryRepository
// ---------------------------------------------------------

const summaryColumns = `session_id, started_at, last_phase, brews, ingredients, dreams, extensions, rejections, last_event_at`

type SQLiteSummaryRepository struct {
	db *sql.DB
}

func NewSQLiteSummaryRepository(db *sql.DB) *SQLiteSummaryRepository {
	return &SQLiteSummaryRepository{db: db}
}

func (r *SQLiteSummaryRepository) Upsert(ctx context.Context, s SessionSummary) error {
	query := `
		INSERT INTO sessions (` + summaryColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			started_at=excluded.started_at,
			last_phase=excluded.last_phase,
			brews=excluded.brews,
			ingredients=excluded.ingredients,
			dreams=excluded.dreams,
			extensions=excluded.extensions,
			rejections=excluded.rejections,
			last_event_at=excluded.last_event_at
	`
	_, err := r.db.ExecContext(ctx, query,
		s.SessionID, s.StartedAt, s.LastPhase, s.Brews, s.Ingredients,
		s.Dreams, s.Extensions, s.Rejections, s.LastEventAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert session summary: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanSummary(row scanner) (SessionSummary, error) {
	var s SessionSummary
	err := row.Scan(&s.SessionID, &s.StartedAt, &s.LastPhase, &s.Brews, &s.Ingredients,
		&s.Dreams, &s.Extensions, &s.Rejections, &s.LastEventAt)
	return s, err
}

// GetBySessionID returns nil, nil when the session has no summary yet.
func (r *SQLiteSummaryRepository) GetBySessionID(ctx context.Context, sessionID string) (*SessionSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM sessions WHERE session_id = ?`
	s, err := scanSummary(r.db.QueryRowContext(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get session summary: %w", err)
	}
	return &s, nil
}

func (r *SQLiteSummaryRepository) List(ctx context.Context) ([]SessionSummary, error) {
	query := `SELECT ` + summaryColumns + ` FROM sessions ORDER BY started_at ASC`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list session summaries: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		s, err := scanSummary(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session summary: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (r *SQLiteSummaryRepository) RebuildFromEvents(ctx context.Context, sessionID string, events []JournalEvent) error {
	if len(events) == 0 {
		return nil
	}
	return r.Upsert(ctx, Summarize(sessionID, events))
}
