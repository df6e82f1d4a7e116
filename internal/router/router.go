package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	httpSwagger "github.com/swaggo/http-swagger/v2"

	"github.com/FACorreiaa/go-map-assistant/internal/api/mapchat"
)

// Config contains dependencies needed for the router setup
type Config struct {
	ChatHandler    mapchat.Handler
	MetricsHandler http.Handler
	AllowedOrigins []string
	// Per-IP limit on the chat endpoints. Zero disables limiting.
	RateLimitRequests int
	RateLimitWindow   time.Duration
	// Applied to /chat/resolve only; a deadline would cut the SSE stream.
	ResolveTimeout time.Duration
}

// SetupRouter builds the application routes. Server-wide middleware (request
// ID, logging, recoverer) is applied by the caller.
func SetupRouter(cfg *Config) chi.Router {
	r := chi.NewRouter()

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	r.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("pong"))
		})

		r.Group(func(r chi.Router) {
			if cfg.RateLimitRequests > 0 && cfg.RateLimitWindow > 0 {
				r.Use(httprate.LimitByIP(cfg.RateLimitRequests, cfg.RateLimitWindow))
			}
			r.Post("/chat", cfg.ChatHandler.Chat)
			resolve := r.With(middleware.Compress(5, "application/json"))
			if cfg.ResolveTimeout > 0 {
				resolve = resolve.With(middleware.Timeout(cfg.ResolveTimeout))
			}
			resolve.Post("/chat/resolve", cfg.ChatHandler.Resolve)
		})
	})

	return r
}
