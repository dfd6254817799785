package api

import (
	"net/http"

	"github.com/bcnelson/dyndns/internal/api/handler"
	"github.com/bcnelson/dyndns/internal/api/middleware"
	"github.com/bcnelson/dyndns/internal/service"
	"github.com/bcnelson/dyndns/internal/storage"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// NewRouter creates a new HTTP router with all routes configured.
// When trustProxy is set the caller address is taken from
// X-Forwarded-For / X-Real-IP.
func NewRouter(store storage.Storage, reconciler *service.Reconciler, trustProxy bool, logger *logrus.Entry) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	if trustProxy {
		r.Use(chimw.RealIP)
	}
	r.Use(middleware.Logging(logger))
	r.Use(chimw.Recoverer)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.ContentType)

		updateHandler := handler.NewUpdateHandler(store, reconciler)
		r.Post("/update", updateHandler.Update)
		r.Get("/update", updateHandler.Lookup)

		hostHandler := handler.NewHostHandler(store)
		r.Get("/hosts", hostHandler.List)
		r.Get("/hosts/{name}", hostHandler.Get)
	})

	return r
}
