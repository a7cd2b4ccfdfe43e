package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ishmeetPD247/PD247-code-share/internal/api/middleware"
	"github.com/ishmeetPD247/PD247-code-share/internal/handlers"
	"github.com/ishmeetPD247/PD247-code-share/internal/realtime"
	"github.com/ishmeetPD247/PD247-code-share/internal/store"
)

// NewRouter creates and configures the HTTP router. fanout and limiter may
// be nil when Redis is not configured.
func NewRouter(
	logger zerolog.Logger,
	st store.DataStore,
	hub *realtime.Hub,
	service *realtime.Service,
	fanout *realtime.RedisFanout,
	limiter *middleware.RateLimiter,
) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 << 20)) // 8 MiB: 5 MiB image + base64 + envelope
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting (needs Redis)
	if limiter != nil {
		r.Use(limiter.Middleware)
	}

	// CORS - rooms are joined from arbitrary origins
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(st, service, fanout)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)

	// Realtime surface
	r.Get("/ws", realtime.ServeWS(hub, service, logger))

	// Room surface
	r.Get("/rooms", h.ListRooms)
	r.Route("/rooms/{roomID}", func(r chi.Router) {
		r.Get("/", h.GetRoom)
		r.Put("/code", h.PutRoomCode)
		r.Get("/images", h.ListImages)
		r.Post("/images", h.UploadImage)
		r.Delete("/images/{imageID}", h.DeleteImage)
	})

	return r
}
