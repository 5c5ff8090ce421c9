// Package httpserver wires the gateway's chi router: request-scoped
// middleware, the coordinate/address/health/stats routes, and the
// uniform APIEnvelope response layer every handler writes through.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joonake9644/koreagate/internal/apikey"
	"github.com/joonake9644/koreagate/internal/apperrors"
	"github.com/joonake9644/koreagate/internal/cache"
	"github.com/joonake9644/koreagate/internal/config"
	"github.com/joonake9644/koreagate/internal/ratelimit"
	"github.com/joonake9644/koreagate/internal/upstream"
)

// Server holds every collaborator the handler layer needs and exposes
// the wired chi router via ServeHTTP.
type Server struct {
	Config  *config.Config
	Logger  *slog.Logger
	Metrics *prometheus.Registry
	Keys    *apikey.Registry
	Limiter *ratelimit.Limiter
	Cache   *cache.Cache
	// Address is the upstream client bound to the address-search
	// provider; it may be nil only in tests that don't exercise
	// /api/address.
	Address *upstream.Client

	Router *chi.Mux

	startedAt time.Time
}

// NewServer constructs a Server and wires its router.
func NewServer(
	cfg *config.Config,
	logger *slog.Logger,
	metrics *prometheus.Registry,
	keys *apikey.Registry,
	limiter *ratelimit.Limiter,
	c *cache.Cache,
	addressClient *upstream.Client,
) *Server {
	s := &Server{
		Config:    cfg,
		Logger:    logger,
		Metrics:   metrics,
		Keys:      keys,
		Limiter:   limiter,
		Cache:     c,
		Address:   addressClient,
		startedAt: time.Now(),
	}
	s.Router = s.routes()
	return s
}

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(s.Logger))
	r.Use(Metrics)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.Config.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleLiveness)
	r.Handle(s.Config.MetricsPath, promhttp.HandlerFor(s.Metrics, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/coordinate/transform", s.handleCoordinateTransformGET)
		r.Post("/coordinate/transform", s.handleCoordinateTransformPOST)
		r.Get("/address", s.handleAddressSearch)
		r.Get("/cache/stats", s.handleCacheStats)
		r.Get("/ratelimit/stats", s.handleRateLimitStats)
		r.Get("/keys/stats", s.handleKeyStats)
	})

	return r
}

// ServeHTTP implements http.Handler by delegating to the wired router.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}

// handleLiveness is a container-level liveness probe: it reports 200 as
// long as the process is accepting connections, independent of
// downstream component health (that's /api/health's job).
func (s *Server) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	SetNoStoreHeader(w)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// respondValidation is a convenience wrapper for the common case of a
// VALIDATION_ERROR with no structured details.
func (s *Server) respondValidation(w http.ResponseWriter, message string) {
	RespondError(w, s.Logger, apperrors.NewValidationError(message), s.Config.IsProduction())
}

// checkRateLimit enforces tier-scoped admission for identifier. It always
// sets the X-RateLimit-* headers; on denial it also sets Retry-After and
// writes a RATE_LIMIT_EXCEEDED envelope, returning false so the caller
// stops handling the request.
func (s *Server) checkRateLimit(w http.ResponseWriter, identifier string, tier ratelimit.Tier) bool {
	d := s.Limiter.CheckLimit(identifier, tier)
	SetRateLimitHeaders(w, int(d.Limit), int(d.Remaining), time.Unix(d.Reset, 0))

	if !d.Allowed {
		SetRetryAfter(w, time.Duration(d.RetryAfter)*time.Second)
		RespondError(w, s.Logger, apperrors.NewRateLimitExceeded("rate limit exceeded for this tier"), s.Config.IsProduction())
		return false
	}
	return true
}
