package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/wsilva/contrail/internal/storage/sqlite"
	"github.com/wsilva/contrail/internal/summary"
	"github.com/wsilva/contrail/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	store  *sqlite.Store
	logger *logger.Logger
}

// NewHandler creates a new API handler
func NewHandler(store *sqlite.Store, log *logger.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: log.Named("api-handler"),
	}
}

// GetHealth reports service liveness
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// GetSummaries returns all stored per-flight summaries ordered by
// total energy forcing
func (h *Handler) GetSummaries(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.Summaries()
	if err != nil {
		h.logger.Error("Failed to load summaries", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load summaries")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":   len(rows),
		"flights": rows,
	})
}

// GetSummary returns one flight summary by ID
func (h *Handler) GetSummary(w http.ResponseWriter, r *http.Request) {
	flightID := chi.URLParam(r, "flight_id")
	row, err := h.store.Summary(flightID)
	if err != nil {
		h.logger.Error("Failed to load summary",
			logger.String("flight_id", flightID),
			logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load summary")
		return
	}
	if row == nil {
		h.respondError(w, http.StatusNotFound, "flight not found")
		return
	}
	h.respondJSON(w, http.StatusOK, row)
}

// GetCallsigns returns per-callsign aggregates computed over the
// stored flight summaries
func (h *Handler) GetCallsigns(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.Summaries()
	if err != nil {
		h.logger.Error("Failed to load summaries", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load summaries")
		return
	}

	totals := make([]summary.FlightTotal, 0, len(rows))
	for _, row := range rows {
		if row.Failed {
			continue
		}
		totals = append(totals, summary.FlightTotal{
			FlightID:  row.FlightID,
			Callsign:  row.Callsign,
			TotalEF:   row.TotalEnergyForcing,
			DistanceM: row.TotalDistanceM,
			MeanRFNet: row.MeanRFNet,
			MeanRFSW:  row.MeanRFSW,
			MeanRFLW:  row.MeanRFLW,
		})
	}
	aggs := summary.ByCallsign(totals)

	type callsignRow struct {
		Callsign  string  `json:"callsign"`
		Flights   int     `json:"flights"`
		TotalEF   float64 `json:"total_ef"`
		EFPerKm   float64 `json:"ef_per_km"`
		MeanRFNet float64 `json:"mean_rf_net"`
		MeanRFSW  float64 `json:"mean_rf_sw"`
		MeanRFLW  float64 `json:"mean_rf_lw"`
	}
	out := make([]callsignRow, 0, len(aggs))
	for _, a := range aggs {
		out = append(out, callsignRow(a))
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":     len(out),
		"callsigns": out,
	})
}

// GetStats returns pipeline progress counters
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	processed, err := h.store.ProcessedCount()
	if err != nil {
		h.logger.Error("Failed to count processed flights", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}
	rows, err := h.store.Summaries()
	if err != nil {
		h.logger.Error("Failed to load summaries", logger.Error(err))
		h.respondError(w, http.StatusInternalServerError, "failed to load stats")
		return
	}

	var totalEF float64
	formed, failed := 0, 0
	for _, row := range rows {
		totalEF += row.TotalEnergyForcing
		if row.ContrailFormed {
			formed++
		}
		if row.Failed {
			failed++
		}
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"processed_flights": processed,
		"stored_summaries":  len(rows),
		"contrails_formed":  formed,
		"failed_flights":    failed,
		"total_ef":          totalEF,
	})
}

func (h *Handler) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("Failed to encode response", logger.Error(err))
	}
}

func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
