package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all ledger routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/ledger", func(r chi.Router) {
		r.Get("/orders", h.HandleGetOrders)
		r.Get("/orders/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetOrder(w, r, chi.URLParam(r, "id"))
		})
		r.Get("/fees", h.HandleGetFees)

		r.Get("/ticks", h.HandleGetTicks)
		r.Get("/ticks/{id}", func(w http.ResponseWriter, r *http.Request) {
			h.HandleGetTick(w, r, chi.URLParam(r, "id"))
		})

		r.Get("/events", h.HandleGetEvents)
	})
}
