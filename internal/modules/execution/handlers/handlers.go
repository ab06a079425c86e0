// Package handlers provides HTTP handlers for order execution.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aristath/fundcore/internal/modules/execution"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/rs/zerolog"
)

// Service is the part of the fund supervisor the execution handlers drive.
type Service interface {
	CreateOrder(req execution.Request) (execution.Order, error)
	ExecuteOrder(ctx context.Context, id string) (execution.Report, error)
	CancelOrder(id string) (execution.Order, error)
	Router() *execution.Router
}

// Handler handles execution HTTP requests
type Handler struct {
	service Service
	log     zerolog.Logger
}

// NewHandler creates a new execution handler
func NewHandler(service Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "execution").Logger(),
	}
}

// HandleCreateOrder handles POST /api/execution/orders
func (h *Handler) HandleCreateOrder(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	order, err := h.service.CreateOrder(req)
	if err != nil {
		h.writeError(w, err, "Failed to create order")
		return
	}

	h.writeJSON(w, http.StatusCreated, envelope(order))
}

// HandleGetOrders handles GET /api/execution/orders
func (h *Handler) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders := h.service.Router().Orders()

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	}))
}

// HandleGetOrder handles GET /api/execution/orders/{id}
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.service.Router().GetOrder(id)
	if err != nil {
		h.writeError(w, err, "Failed to get order")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(order))
}

// HandleExecuteOrder handles POST /api/execution/orders/{id}/execute
// A failed execution is still a 200; the report carries the outcome.
func (h *Handler) HandleExecuteOrder(w http.ResponseWriter, r *http.Request, id string) {
	h.log.Info().Str("order_id", id).Msg("Executing order")

	report, err := h.service.ExecuteOrder(r.Context(), id)
	if err != nil {
		h.writeError(w, err, "Failed to execute order")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleCancelOrder handles POST /api/execution/orders/{id}/cancel
func (h *Handler) HandleCancelOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.service.CancelOrder(id)
	if err != nil {
		h.writeError(w, err, "Failed to cancel order")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(order))
}

// HandleEstimate handles POST /api/execution/estimate
func (h *Handler) HandleEstimate(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	estimate, err := h.service.Router().EstimateExecution(req)
	if err != nil {
		h.writeError(w, err, "Failed to estimate execution")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(estimate))
}

// HandleRoute handles POST /api/execution/route
func (h *Handler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeRequest(w, r)
	if !ok {
		return
	}

	route, err := h.service.Router().GetOptimalRoute(req)
	if err != nil {
		h.writeError(w, err, "Failed to plan route")
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(route))
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (execution.Request, bool) {
	var req execution.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, execution.ErrOrderNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, execution.ErrOrderNotCancellable),
		errors.Is(err, execution.ErrOrderNotExecutable),
		errors.Is(err, fund.ErrFundClosed):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, execution.ErrNoPrice):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	default:
		h.log.Debug().Err(err).Msg(msg)
		http.Error(w, err.Error(), http.StatusBadRequest)
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
