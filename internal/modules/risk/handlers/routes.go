package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all risk routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk", func(r chi.Router) {
		r.Get("/metrics", h.HandleGetMetrics)
		r.Post("/check", h.HandleCheck)
		r.Put("/limits", h.HandlePutLimits)
		r.Get("/hedging", h.HandleGetHedging)

		r.Get("/alerts", h.HandleGetAlerts)
		r.Post("/alerts/{id}/ack", func(w http.ResponseWriter, r *http.Request) {
			h.HandleAcknowledgeAlert(w, r, chi.URLParam(r, "id"))
		})

		r.Get("/stress", h.HandleGetStress)
		r.Post("/stress/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleRunStress(w, r, chi.URLParam(r, "id"))
		})
	})
}
