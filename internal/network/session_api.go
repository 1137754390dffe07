// Package network - session_api.go
// REST access to the running session for clients that don't hold a websocket.
package network

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/MRamiBalles/DreamSprite/server/internal/engine"
	"github.com/MRamiBalles/DreamSprite/server/internal/platform/logger"
)

// SessionAPI handles snapshot and action requests.
type SessionAPI struct {
	engine *engine.Engine
	logger *logger.Logger
}

// NewSessionAPI creates a new session handler.
func NewSessionAPI(eng *engine.Engine, log *logger.Logger) *SessionAPI {
	return &SessionAPI{engine: eng, logger: log}
}

// ActionResponse reports the outcome of one action.
type ActionResponse struct {
	Accepted bool            `json:"accepted"`
	Snapshot engine.Snapshot `json:"snapshot"`
}

// HandleSession returns the current snapshot.
// GET /api/session
func (sa *SessionAPI) HandleSession(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := sa.engine.Inspect(r.Context())
	if err != nil {
		sa.unavailable(w, err)
		return
	}
	jsonSuccess(w, snap)
}

// HandleAction runs one action.
// POST /api/action {"type": "TOGGLE_INGREDIENT", "label": "Tired"}
func (sa *SessionAPI) HandleAction(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var action engine.Action
	if err := json.NewDecoder(r.Body).Decode(&action); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if action.Type == "" {
		jsonError(w, "Missing action type", http.StatusBadRequest)
		return
	}

	accepted, err := sa.engine.Dispatch(r.Context(), action)
	if err != nil {
		sa.unavailable(w, err)
		return
	}
	snap, err := sa.engine.Inspect(r.Context())
	if err != nil {
		sa.unavailable(w, err)
		return
	}

	sa.logger.Event("HTTP_ACTION", "api", string(action.Type)+" accepted="+strconv.FormatBool(accepted))
	jsonSuccess(w, ActionResponse{Accepted: accepted, Snapshot: snap})
}

func (sa *SessionAPI) unavailable(w http.ResponseWriter, err error) {
	if errors.Is(err, engine.ErrTickerStopped) {
		jsonError(w, "Session closed", http.StatusServiceUnavailable)
		return
	}
	sa.logger.Error("Session request failed: " + err.Error())
	jsonError(w, "Session busy", http.StatusServiceUnavailable)
}

// RegisterRoutes sets up the session API routes.
func (sa *SessionAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/session", sa.HandleSession)
	mux.HandleFunc("/api/action", sa.HandleAction)
}
