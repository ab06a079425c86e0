// Package handlers provides HTTP handlers for the fund lifecycle.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/rs/zerolog"
)

// Service is the part of the fund supervisor the lifecycle handlers drive.
type Service interface {
	Status() fund.Status
	Tick(ctx context.Context) (fund.TickReport, error)
	Pause(reason string) error
	Resume() error
	Stop() error
	Rebalance(ctx context.Context) (portfolio.RebalanceResult, error)
}

// PauseRequest is the optional body of POST /api/fund/pause.
type PauseRequest struct {
	Reason string `json:"reason"`
}

// Handler handles fund lifecycle HTTP requests
type Handler struct {
	service Service
	log     zerolog.Logger
}

// NewHandler creates a new fund handler
func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "fund").Logger(),
	}
}

// HandleGetStatus handles GET /api/fund/status
func (h *Handler) HandleGetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.service.Status()))
}

// HandleTick handles POST /api/fund/tick
// Runs one supervisory cycle now, outside the schedule.
func (h *Handler) HandleTick(w http.ResponseWriter, r *http.Request) {
	report, err := h.service.Tick(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandlePause handles POST /api/fund/pause
func (h *Handler) HandlePause(w http.ResponseWriter, r *http.Request) {
	var req PauseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	h.log.Info().Str("reason", req.Reason).Msg("Pause requested")
	if err := h.service.Pause(req.Reason); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(h.service.Status()))
}

// HandleResume handles POST /api/fund/resume
func (h *Handler) HandleResume(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Resume(); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(h.service.Status()))
}

// HandleStop handles POST /api/fund/stop
// Stopping is final; the fund cannot be restarted.
func (h *Handler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.log.Warn().Msg("Stop requested")
	if err := h.service.Stop(); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(h.service.Status()))
}

// HandleRebalance handles POST /api/fund/rebalance
func (h *Handler) HandleRebalance(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Rebalance(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, fund.ErrFundClosed) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.log.Error().Err(err).Msg("Fund request failed")
	http.Error(w, "Fund request failed", http.StatusInternalServerError)
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
