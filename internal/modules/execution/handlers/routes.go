package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all execution routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/execution", func(r chi.Router) {
		r.Post("/estimate", h.HandleEstimate)
		r.Post("/route", h.HandleRoute)

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.HandleCreateOrder)
			r.Get("/", h.HandleGetOrders)
			r.Get("/{id}", func(w http.ResponseWriter, r *http.Request) {
				h.HandleGetOrder(w, r, chi.URLParam(r, "id"))
			})
			r.Post("/{id}/execute", func(w http.ResponseWriter, r *http.Request) {
				h.HandleExecuteOrder(w, r, chi.URLParam(r, "id"))
			})
			r.Post("/{id}/cancel", func(w http.ResponseWriter, r *http.Request) {
				h.HandleCancelOrder(w, r, chi.URLParam(r, "id"))
			})
		})
	})
}
