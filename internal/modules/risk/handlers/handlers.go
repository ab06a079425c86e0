// Package handlers provides HTTP handlers for fund risk operations.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/risk"
	"github.com/rs/zerolog"
)

// Service is the part of the fund supervisor the risk handlers drive.
type Service interface {
	CheckRisk() (risk.MetricsSnapshot, risk.LimitCheckResult, error)
	RunStressTests() ([]risk.StressTestResult, error)
	RunStressTest(id string) (risk.StressTestResult, bool, error)
	HedgingCheck() (*risk.HedgingRecommendation, error)
	ConfigureLimits(limits risk.Limits) error
	AcknowledgeAlert(id string) bool
	Risk() *risk.Engine
}

// Handler handles risk HTTP requests
type Handler struct {
	service Service
	log     zerolog.Logger
}

// NewHandler creates a new risk handler
func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "risk").Logger(),
	}
}

// HandleGetMetrics handles GET /api/risk/metrics
// Returns the latest stored snapshot without recomputing it.
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	latest, ok := h.service.Risk().Latest()
	if !ok {
		http.Error(w, "No risk metrics calculated yet", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(latest))
}

// HandleCheck handles POST /api/risk/check
func (h *Handler) HandleCheck(w http.ResponseWriter, r *http.Request) {
	metrics, check, err := h.service.CheckRisk()
	if err != nil {
		h.writeError(w, err, "Failed to check risk")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"metrics": metrics,
		"limits":  check,
	}))
}

// HandleGetAlerts handles GET /api/risk/alerts
// Acknowledged alerts are included with ?all=true.
func (h *Handler) HandleGetAlerts(w http.ResponseWriter, r *http.Request) {
	includeAcknowledged := r.URL.Query().Get("all") == "true"
	alerts := h.service.Risk().Alerts(includeAcknowledged)

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"alerts": alerts,
		"count":  len(alerts),
	}))
}

// HandleAcknowledgeAlert handles POST /api/risk/alerts/{id}/ack
func (h *Handler) HandleAcknowledgeAlert(w http.ResponseWriter, r *http.Request, id string) {
	if !h.service.AcknowledgeAlert(id) {
		http.Error(w, "Alert not found", http.StatusNotFound)
		return
	}

	h.log.Info().Str("alert_id", id).Msg("Alert acknowledged")
	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"id":           id,
		"acknowledged": true,
	}))
}

// HandleGetStress handles GET /api/risk/stress
func (h *Handler) HandleGetStress(w http.ResponseWriter, r *http.Request) {
	results, err := h.service.RunStressTests()
	if err != nil {
		h.writeError(w, err, "Failed to run stress tests")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"results": results,
		"count":   len(results),
	}))
}

// HandleRunStress handles POST /api/risk/stress/{id}
func (h *Handler) HandleRunStress(w http.ResponseWriter, r *http.Request, id string) {
	result, ok, err := h.service.RunStressTest(id)
	if err != nil {
		h.writeError(w, err, "Failed to run stress test")
		return
	}
	if !ok {
		http.Error(w, "Unknown stress scenario", http.StatusNotFound)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// HandlePutLimits handles PUT /api/risk/limits
// The body replaces the whole limit set.
func (h *Handler) HandlePutLimits(w http.ResponseWriter, r *http.Request) {
	var limits risk.Limits
	if err := json.NewDecoder(r.Body).Decode(&limits); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := h.service.ConfigureLimits(limits); err != nil {
		h.writeError(w, err, "Failed to configure limits")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(limits))
}

// HandleGetHedging handles GET /api/risk/hedging
func (h *Handler) HandleGetHedging(w http.ResponseWriter, r *http.Request) {
	rec, err := h.service.HedgingCheck()
	if err != nil {
		h.writeError(w, err, "Failed to check hedging")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"needed":         rec != nil,
		"recommendation": rec,
	}))
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, fund.ErrFundClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, risk.ErrInvalidLimits):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		h.log.Error().Err(err).Msg(msg)
		http.Error(w, msg, http.StatusInternalServerError)
	}
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
