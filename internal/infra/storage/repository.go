// Package storage persists the session journal for offline analytics.
// Nothing here is read back to restore a running session.
package storage

import (
	"context"
	"encoding/json"
	"time"
)

// JournalEvent is the stored form of one journal entry.
type JournalEvent struct {
	ID        string          `json:"id"`
	SessionID string          `json:"session_id"`
	Timestamp time.Time       `json:"timestamp"`
	EventType string          `json:"event_type"`
	ActorID   string          `json:"actor_id"`
	Phase     string          `json:"phase"`
	Payload   json.RawMessage `json:"payload"`
}

// EventRepository is the append-only journal store.
type EventRepository interface {
	Append(ctx context.Context, event JournalEvent) error
	GetBySessionID(ctx context.Context, sessionID string) ([]JournalEvent, error)
	GetByActorID(ctx context.Context, sessionID, actorID string) ([]JournalEvent, error)
	GetByEventType(ctx context.Context, sessionID, eventType string) ([]JournalEvent, error)
	CountByType(ctx context.Context, sessionID string) (map[string]int, error)
}

// SessionSummary is a per-session rollup derived from the journal.
type SessionSummary struct {
	SessionID   string    `json:"session_id"`
	StartedAt   time.Time `json:"started_at"`
	LastPhase   string    `json:"last_phase"`
	Brews       int       `json:"brews"`
	Ingredients int       `json:"ingredients"`
	Dreams      int       `json:"dreams"`
	Extensions  int       `json:"extensions"`
	Rejections  int       `json:"rejections"`
	LastEventAt time.Time `json:"last_event_at"`
}

// SummaryRepository stores session rollups.
type SummaryRepository interface {
	Upsert(ctx context.Context, summary SessionSummary) error
	GetBySessionID(ctx context.Context, sessionID string) (*SessionSummary, error)
	List(ctx context.Context) ([]SessionSummary, error)
	RebuildFromEvents(ctx context.Context, sessionID string, events []JournalEvent) error
}

// Summarize folds a session's events, in journal order, into a rollup.
func Summarize(sessionID string, events []JournalEvent) SessionSummary {
	s := SessionSummary{SessionID: sessionID}
	for _, e := range events {
		if s.StartedAt.IsZero() || e.EventType == "SESSION_STARTED" {
			s.StartedAt = e.Timestamp
		}
		s.LastEventAt = e.Timestamp
		if e.Phase != "" {
			s.LastPhase = e.Phase
		}

		switch e.EventType {
		case "PHASE_CHANGED":
			if e.Phase == "BREWING" {
				s.Brews++
			}
		case "INGREDIENT_ADDED":
			s.Ingredients++
		case "INGREDIENT_REMOVED":
			s.Ingredients--
		case "DREAM_OPENED":
			s.Dreams++
		case "SLEEP_EXTENDED":
			s.Extensions++
		case "ACTION_REJECTED":
			s.Rejections++
		}
	}
	return s
}
