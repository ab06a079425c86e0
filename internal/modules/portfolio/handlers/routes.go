package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all portfolio routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/portfolio", func(r chi.Router) {
		r.Get("/state", h.HandleGetState)
		r.Post("/state", h.HandleUpdateState)
		r.Post("/cash-flow", h.HandleCashFlow)
		r.Get("/drift", h.HandleGetDrift)
		r.Put("/target", h.HandleSetTarget)
		r.Get("/rebalance/preview", h.HandlePreviewRebalance)
		r.Post("/optimize", h.HandleOptimize)
	})
}
