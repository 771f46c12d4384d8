package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"envelope-service/docs"
	"envelope-service/pkg/config"
	"envelope-service/pkg/envelope"
	"envelope-service/pkg/metrics"
)

// NewRouter wires middleware and routes. Every response, including the
// router's own 404 and 405 fallbacks, is an envelope.
func NewRouter(cfg *config.Config, h *Handler, notes *NotesHandler, rec *metrics.Recorder) *chi.Mux {
	env := envelope.Builder{FlattenPayload: cfg.Envelope.FlattenPayload}

	r := chi.NewRouter()

	r.Use(CorrelationMiddleware(rec))
	r.Use(Recoverer(env))
	r.Use(Timeout(time.Duration(cfg.Server.RequestTimeoutMs)*time.Millisecond, env))
	r.Use(APIKeyAuth(cfg.Auth, env))

	r.NotFound(h.NotFoundHandler)
	r.MethodNotAllowed(h.MethodNotAllowedHandler)

	// Swagger UI
	r.Get("/swagger/doc.json", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Write([]byte(docs.SwaggerInfo.ReadDoc()))
	})
	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("doc.json"),
	))

	r.Get("/health", h.HealthHandler)
	r.Get("/outcomes", h.OutcomesHandler)

	notes.RegisterRoutes(r)

	return r
}
