package network

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MRamiBalles/CosmicClicker/server/internal/engine"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
)

// StateAPI is the REST fallback of the WebSocket protocol, for tooling and
// clients that only poll.
type StateAPI struct {
	game   GameEngine
	logger *logger.Logger
}

// NewStateAPI creates a new REST handler over game.
func NewStateAPI(game GameEngine, log *logger.Logger) *StateAPI {
	return &StateAPI{game: game, logger: log}
}

// HandleState returns the current view.
// GET /api/state
func (sa *StateAPI) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jsonSuccess(w, sa.game.View())
}

// HandleCommand applies one command envelope and returns its Result.
// POST /api/commands
func (sa *StateAPI) HandleCommand(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var env Envelope
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageSize)).Decode(&env); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if env.Type == "" {
		jsonError(w, "Missing command type", http.StatusBadRequest)
		return
	}
	cmd, err := env.Command()
	if err != nil {
		jsonError(w, "Invalid command payload", http.StatusBadRequest)
		return
	}

	res, err := sa.game.Submit(r.Context(), cmd)
	switch {
	case errors.Is(err, engine.ErrEngineStopped):
		jsonError(w, "Engine stopped", http.StatusServiceUnavailable)
		return
	case err != nil:
		sa.logger.Warnf("REST command %s not processed: %v", env.Type, err)
		jsonError(w, "Command not processed", http.StatusGatewayTimeout)
		return
	}
	jsonSuccess(w, newResult(env.RequestID, res))
}

// RegisterRoutes sets up the state API routes.
func (sa *StateAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/state", sa.HandleState)
	mux.HandleFunc("/api/commands", sa.HandleCommand)
}

// jsonError sends an error response.
func jsonError(w http.ResponseWriter, message string, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// jsonSuccess sends a success response.
func jsonSuccess(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(data)
}
