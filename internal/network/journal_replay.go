// Package network - journal_replay.go
// Read-only views over the session journal for presentation clients and operators.
package network

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/DreamSprite/server/internal/events"
	"github.com/MRamiBalles/DreamSprite/server/internal/infra/storage"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
)

// JournalHandler provides the journal replay API.
type JournalHandler struct {
	eventLog  *events.EventLog
	sessionID string
	store     storage.EventRepository
	summaries storage.SummaryRepository
	logger    *logger.Logger
}

// NewJournalHandler creates a journal handler. store and summaries may be nil
// when the server runs without a database.
func NewJournalHandler(el *events.EventLog, sessionID string, store storage.EventRepository, summaries storage.SummaryRepository, log *logger.Logger) *JournalHandler {
	return &JournalHandler{
		eventLog:  el,
		sessionID: sessionID,
		store:     store,
		summaries: summaries,
		logger:    log,
	}
}

// JournalResponse is the API response for a replay. Next is the cursor to
// pass as since on the following poll.
type JournalResponse struct {
	SessionID   string         `json:"session_id"`
	Since       int            `json:"since"`
	Next        int            `json:"next"`
	Total       int            `json:"total"`
	GeneratedAt string         `json:"generated_at"`
	Events      []events.Event `json:"events"`
}

// HandleReplay returns journal events.
// GET /api/journal?type=PHASE_CHANGED&actor=ada&since=N
func (jh *JournalHandler) HandleReplay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	since := 0
	if s := q.Get("since"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			jsonError(w, "Invalid since", http.StatusBadRequest)
			return
		}
		since = n
	}
	eventType := q.Get("type")
	actorID := q.Get("actor")

	raw := jh.eventLog.Since(since)
	filtered := make([]events.Event, 0, len(raw))
	for _, e := range raw {
		if eventType != "" && string(e.Type) != eventType {
			continue
		}
		if actorID != "" && e.ActorID != actorID {
			continue
		}
		filtered = append(filtered, e)
	}

	next := since + len(raw)
	if n := jh.eventLog.Len(); next > n {
		next = n
	}

	jsonSuccess(w, JournalResponse{
		SessionID:   jh.sessionID,
		Since:       since,
		Next:        next,
		Total:       len(filtered),
		GeneratedAt: time.Now().Format(time.RFC3339),
		Events:      filtered,
	})
}

// HandleStats returns event counts by type.
// GET /api/journal/stats
func (jh *JournalHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	source := "memory"
	var counts map[string]int
	if jh.store != nil {
		c, err := jh.store.CountByType(r.Context(), jh.sessionID)
		if err != nil {
			jh.logger.Warn("Journal stats from store failed, using memory: " + err.Error())
		} else {
			counts, source = c, "store"
		}
	}
	if counts == nil {
		counts = make(map[string]int)
		for _, e := range jh.eventLog.Replay() {
			counts[string(e.Type)]++
		}
	}

	jsonSuccess(w, map[string]interface{}{
		"session_id":   jh.sessionID,
		"source":       source,
		"generated_at": time.Now().Format(time.RFC3339),
		"counts":       counts,
	})
}

// HandleSessions lists stored session summaries.
// GET /api/sessions
func (jh *JournalHandler) HandleSessions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if jh.summaries == nil {
		jsonError(w, "No session store configured", http.StatusNotFound)
		return
	}

	list, err := jh.summaries.List(r.Context())
	if err != nil {
		jh.logger.Error("Listing session summaries failed: " + err.Error())
		jsonError(w, "Session store unavailable", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []storage.SessionSummary{}
	}
	jsonSuccess(w, map[string]interface{}{"sessions": list})
}

// RefreshSummary folds the stored journal of the current session into its summary.
func (jh *JournalHandler) RefreshSummary(ctx context.Context) error {
	if jh.store == nil || jh.summaries == nil {
		return nil
	}
	evs, err := jh.store.GetBySessionID(ctx, jh.sessionID)
	if err != nil {
		return err
	}
	return jh.summaries.RebuildFromEvents(ctx, jh.sessionID, evs)
}

// RegisterRoutes sets up the journal API routes.
func (jh *JournalHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/journal", jh.HandleReplay)
	mux.HandleFunc("/api/journal/stats", jh.HandleStats)
	mux.HandleFunc("/api/sessions", jh.HandleSessions)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
