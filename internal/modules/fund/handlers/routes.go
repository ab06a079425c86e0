package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all fund lifecycle routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/fund", func(r chi.Router) {
		r.Get("/status", h.HandleGetStatus)
		r.Post("/tick", h.HandleTick)
		r.Post("/pause", h.HandlePause)
		r.Post("/resume", h.HandleResume)
		r.Post("/stop", h.HandleStop)
		r.Post("/rebalance", h.HandleRebalance)
	})
}
