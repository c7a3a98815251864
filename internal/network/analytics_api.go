package network

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/MRamiBalles/CosmicClicker/server/internal/events"
	"github.com/MRamiBalles/CosmicClicker/server/internal/infra/storage"
	"github.com/MRamiBalles/CosmicClicker/server/internal/platform/logger"
)

// Recapper builds "while you were away" summaries from the persisted ledger.
type Recapper interface {
	GenerateRecap(ctx context.Context, slot string, since time.Time) (storage.Recap, error)
}

// AnalyticsHandler serves the analytics log: export, aggregate stats and recaps.
type AnalyticsHandler struct {
	game   GameEngine
	recap  Recapper
	slot   string
	logger *logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler. recap may be nil when
// no ledger is persisted.
func NewAnalyticsHandler(game GameEngine, recap Recapper, slot string, log *logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{game: game, recap: recap, slot: slot, logger: log}
}

// HandleExport downloads the full analytics log of the save.
// GET /api/analytics/export?type=PURCHASE_UPGRADE
func (ah *AnalyticsHandler) HandleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	filter := events.EventType(r.URL.Query().Get("type"))
	export := events.BuildExport(ah.game.Snapshot().Analytics, filter, time.Now())

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="`+events.ExportFileName+`"`)
	if _, err := export.WriteTo(w); err != nil {
		ah.logger.Warnf("Analytics export interrupted: %v", err)
		return
	}
	ah.logger.Event("ANALYTICS_EXPORT", ah.slot, "Events:"+strconv.Itoa(export.TotalEvents))
}

// HandleStats returns aggregate counts per event type.
// GET /api/analytics/stats
func (ah *AnalyticsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	log := ah.game.Snapshot().Analytics
	counts := make(map[events.EventType]int)
	for _, e := range log {
		counts[e.Type]++
	}
	jsonSuccess(w, map[string]any{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
		"total_events": len(log),
		"by_type":      counts,
	})
}

// HandleRecap summarizes the persisted ledger since a Unix millisecond
// timestamp, defaulting to the last save.
// GET /api/analytics/recap?since=1700000000000
func (ah *AnalyticsHandler) HandleRecap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ah.recap == nil {
		jsonError(w, "Recap unavailable without a database", http.StatusNotFound)
		return
	}

	since := time.UnixMilli(ah.game.Snapshot().LastSaveTimestamp)
	if raw := r.URL.Query().Get("since"); raw != "" {
		ms, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || ms < 0 {
			jsonError(w, "Invalid since", http.StatusBadRequest)
			return
		}
		since = time.UnixMilli(ms)
	}

	recap, err := ah.recap.GenerateRecap(r.Context(), ah.slot, since)
	if err != nil {
		ah.logger.Errorf("Recap failed: %v", err)
		jsonError(w, "Recap failed", http.StatusInternalServerError)
		return
	}
	jsonSuccess(w, recap)
}

// RegisterRoutes sets up the analytics API routes.
func (ah *AnalyticsHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/analytics/export", ah.HandleExport)
	mux.HandleFunc("/api/analytics/stats", ah.HandleStats)
	mux.HandleFunc("/api/analytics/recap", ah.HandleRecap)
}
