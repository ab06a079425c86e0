// Package handlers provides HTTP handlers for the fund ledger.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/fundcore/internal/events"
	"github.com/aristath/fundcore/internal/modules/fund"
	"github.com/aristath/fundcore/internal/modules/ledger"
	"github.com/rs/zerolog"
)

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// Store is the read side of the ledger used by the handlers.
type Store interface {
	GetOrder(ctx context.Context, id string) (*ledger.OrderRecord, error)
	Orders(ctx context.Context, limit int) ([]ledger.OrderRecord, error)
	Fees(ctx context.Context) (ledger.FeeSummary, error)
	Ticks(ctx context.Context, limit int) ([]ledger.TickRecord, error)
	TickReport(ctx context.Context, id int64) (fund.TickReport, error)
	Events(ctx context.Context, category events.Category, limit int) ([]events.Event, error)
}

// Handler handles ledger HTTP requests
type Handler struct {
	store Store
	log   zerolog.Logger
}

// NewHandler creates a new ledger handler
func NewHandler(store Store, log zerolog.Logger) *Handler {
	return &Handler{
		store: store,
		log:   log.With().Str("handler", "ledger").Logger(),
	}
}

// HandleGetOrders handles GET /api/ledger/orders
func (h *Handler) HandleGetOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.Orders(r.Context(), parseLimit(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query orders")
		http.Error(w, "Failed to query orders", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"orders": orders,
		"count":  len(orders),
	}))
}

// HandleGetOrder handles GET /api/ledger/orders/{id}
func (h *Handler) HandleGetOrder(w http.ResponseWriter, r *http.Request, id string) {
	order, err := h.store.GetOrder(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		http.Error(w, "Order not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("order_id", id).Msg("Failed to query order")
		http.Error(w, "Failed to query order", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(order))
}

// HandleGetFees handles GET /api/ledger/fees
func (h *Handler) HandleGetFees(w http.ResponseWriter, r *http.Request) {
	summary, err := h.store.Fees(r.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query fees")
		http.Error(w, "Failed to query fees", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(summary))
}

// HandleGetTicks handles GET /api/ledger/ticks
func (h *Handler) HandleGetTicks(w http.ResponseWriter, r *http.Request) {
	ticks, err := h.store.Ticks(r.Context(), parseLimit(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query ticks")
		http.Error(w, "Failed to query ticks", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"ticks": ticks,
		"count": len(ticks),
	}))
}

// HandleGetTick handles GET /api/ledger/ticks/{id}
func (h *Handler) HandleGetTick(w http.ResponseWriter, r *http.Request, idStr string) {
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil {
		http.Error(w, "Invalid tick ID", http.StatusBadRequest)
		return
	}

	report, err := h.store.TickReport(r.Context(), id)
	if errors.Is(err, ledger.ErrNotFound) {
		http.Error(w, "Tick not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error().Err(err).Int64("tick_id", id).Msg("Failed to query tick")
		http.Error(w, "Failed to query tick", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(report))
}

// HandleGetEvents handles GET /api/ledger/events?category=risk
func (h *Handler) HandleGetEvents(w http.ResponseWriter, r *http.Request) {
	category := events.Category(r.URL.Query().Get("category"))
	if category != "" && category != events.CategoryAll && !knownCategory(category) {
		http.Error(w, "Unknown event category", http.StatusBadRequest)
		return
	}

	list, err := h.store.Events(r.Context(), category, parseLimit(r))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to query events")
		http.Error(w, "Failed to query events", http.StatusInternalServerError)
		return
	}

	h.writeJSON(w, http.StatusOK, envelope(map[string]interface{}{
		"events": list,
		"count":  len(list),
	}))
}

func knownCategory(c events.Category) bool {
	for _, known := range events.Categories() {
		if c == known {
			return true
		}
	}
	return false
}

func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit
}

func envelope(data interface{}) map[string]interface{} {
	return map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
