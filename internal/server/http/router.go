package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter registers routes and the middleware stack.
func NewRouter(h *Handler, log *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Recover(log))
	r.Use(Logging(log))

	r.Get("/healthz", h.healthz)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/grants", h.grant)
		r.Post("/grants/paid", h.grantPaid)
		r.Post("/devices/trust", h.trustDevice)
		r.Get("/downloads/{handle}", h.redeem)
		r.Get("/packages", h.listPackages)
		r.Put("/packages/current", h.setCurrentPackage)
	})

	return r
}
