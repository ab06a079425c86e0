// Package handlers provides HTTP handlers for portfolio operations.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/portfolio"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

var validate = validator.New()

// Service is the part of the fund supervisor the portfolio handlers drive.
type Service interface {
	PreviewRebalance() (portfolio.RebalanceCheck, []portfolio.RebalanceOrder)
	ApplyCashFlow(amount float64) (portfolio.State, error)
	UpdateState(update portfolio.StateUpdate) (portfolio.State, error)
	SetTargetAllocation(targets map[string]float64) error
	Optimize(constraints portfolio.AllocationConstraints) (portfolio.OptimalAllocation, error)
	Portfolio() *portfolio.Tracker
}

// CashFlowRequest is the body of POST /api/portfolio/cash-flow.
// Positive amounts are inflows.
type CashFlowRequest struct {
	Amount *float64 `json:"amount" validate:"required"`
}

// TargetRequest is the body of PUT /api/portfolio/target.
type TargetRequest struct {
	Target map[string]float64 `json:"target" validate:"required"`
}

// Handler handles portfolio HTTP requests
type Handler struct {
	service Service
	log     zerolog.Logger
}

// NewHandler creates a new portfolio handler
func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "portfolio").Logger(),
	}
}

// HandleGetState handles GET /api/portfolio/state
func (h *Handler) HandleGetState(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.service.Portfolio().State()))
}

// HandleUpdateState handles POST /api/portfolio/state
// Fields left out of the body are kept; positions replace the whole set.
func (h *Handler) HandleUpdateState(w http.ResponseWriter, r *http.Request) {
	var update portfolio.StateUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	state, err := h.service.UpdateState(update)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(state))
}

// HandleCashFlow handles POST /api/portfolio/cash-flow
func (h *Handler) HandleCashFlow(w http.ResponseWriter, r *http.Request) {
	var req CashFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "amount is required", http.StatusBadRequest)
		return
	}

	state, err := h.service.ApplyCashFlow(*req.Amount)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(state))
}

// HandleGetDrift handles GET /api/portfolio/drift
func (h *Handler) HandleGetDrift(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, envelope(h.service.Portfolio().CheckRebalanceNeeded()))
}

// HandleSetTarget handles PUT /api/portfolio/target
func (h *Handler) HandleSetTarget(w http.ResponseWriter, r *http.Request) {
	var req TargetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := validate.Struct(req); err != nil {
		http.Error(w, "target is required", http.StatusBadRequest)
		return
	}

	if err := h.service.SetTargetAllocation(req.Target); err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"target": h.service.Portfolio().Target(),
	}))
}

// HandlePreviewRebalance handles GET /api/portfolio/rebalance/preview
func (h *Handler) HandlePreviewRebalance(w http.ResponseWriter, r *http.Request) {
	check, orders := h.service.PreviewRebalance()

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"drift":  check,
		"orders": orders,
		"count":  len(orders),
	}))
}

// HandleOptimize handles POST /api/portfolio/optimize
// The result is a proposal; the target allocation is not changed.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var constraints portfolio.AllocationConstraints
	if err := json.NewDecoder(r.Body).Decode(&constraints); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.service.Optimize(constraints)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(result))
}

// writeError maps fund errors to statuses. Anything else the tracker
// rejects is a bad input.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, fund.ErrFundClosed) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	h.log.Debug().Err(err).Msg("Rejected portfolio request")
	http.Error(w, err.Error(), http.StatusBadRequest)
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
