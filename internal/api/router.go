package api

import (
	"net"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/rpnow/rpnow2/internal/api/middleware"
	"github.com/rpnow/rpnow2/internal/handlers"
	"github.com/rpnow/rpnow2/internal/rp"
	"github.com/rpnow/rpnow2/internal/ws"
)

// NewRouter creates and configures the HTTP router. redisClient may be
// nil, disabling rate limiting.
func NewRouter(logger zerolog.Logger, svc *rp.Service, hub *ws.Hub, redisClient *redis.Client) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(64 * 1024))

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting
	if redisClient != nil {
		limiter := middleware.NewRateLimiter(redisClient, logger)
		r.Use(limiter.Middleware)
	}

	// CORS - rooms are reachable from any front end holding the code
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-RPNow-Connection"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	h := handlers.NewHandler(svc, hub, redisClient)

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/", h.Root)
	r.Get("/health", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Post("/rp", h.CreateRoom)
		r.Get("/challenge", h.GetChallenge)

		r.Route("/rp/{rpCode}", func(r chi.Router) {
			r.Get("/", h.GetRoom)
			r.Get("/page/{page}", h.GetPage)
			r.Get("/stream", h.Stream)
			r.Post("/message", h.PostMessage)
			r.Put("/message/{id}", h.EditMessage)
			r.Post("/image", h.PostImage)
			r.Post("/chara", h.PostChara)
		})

		// Admin endpoints answer only on loopback.
		r.Group(func(r chi.Router) {
			r.Use(loopbackOnly)

			r.Get("/admin/rps", h.AdminListRooms)
			r.Get("/admin/stats", h.AdminStats)
			r.Delete("/admin/rp/{rpCode}", h.AdminDestroyRoom)
		})
	})

	return r
}

// loopbackOnly rejects requests whose peer address is not local.
// Forwarded requests are rejected outright since RealIP rewrites
// RemoteAddr from spoofable headers.
func loopbackOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Forwarded-For") != "" || r.Header.Get("X-Real-IP") != "" {
			http.Error(w, `{"error":{"code":"FORBIDDEN"}}`, http.StatusForbidden)
			return
		}
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		ip := net.ParseIP(host)
		if ip == nil || !ip.IsLoopback() {
			http.Error(w, `{"error":{"code":"FORBIDDEN"}}`, http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
