// Package http serves the ledger JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"moneymanager/internal/cache"
	"moneymanager/internal/core"
	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/middleware/security"
	"moneymanager/internal/middleware/trace"
	"moneymanager/internal/services"
)

const (
	maxBodyBytes  = 1 << 20
	readyzTimeout = 2 * time.Second
)

// Ledger is the service the handlers drive.
type Ledger interface {
	Create(ctx context.Context, req services.CreateRequest) (core.Transaction, error)
	List(ctx context.Context, f core.Filter) ([]core.Transaction, error)
	Stats(ctx context.Context, f core.Filter) (core.Stats, error)
	Update(ctx context.Context, id string, req services.UpdateRequest) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
	Ready(ctx context.Context) error
}

// Options configures a Server. Zero values select defaults.
type Options struct {
	Logger             *log.Logger
	RateLimitPerMinute int
	// Caches is stopped with the server when set.
	Caches *cache.Manager
}

// Server wraps http.Server with the ledger routes and the goroutines that
// must stop with it.
type Server struct {
	http.Server

	ledger   Ledger
	logger   *log.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
func NewServer(addr string, ledger Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.New(log.DefaultConfig())
	}
	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	detector := security.NewDetector()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			ReadTimeout:       10 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			MaxHeaderBytes:    64 << 10,
		},
		ledger:   ledger,
		logger:   logger,
		detector: detector,
		tracer:   trace.NewMiddleware(opts.Logger, detector.ExtractClientIP),
		limiter: ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerMinute: opts.RateLimitPerMinute,
			Methods:           []string{http.MethodPost, http.MethodPut, http.MethodDelete},
		}),
		caches: opts.Caches,
	}
	s.Handler = s.routes()
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", trace.HeaderRequestID},
		ExposedHeaders: []string{trace.HeaderRequestID},
		MaxAge:         300,
	}))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware(s.logger))
	r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, s.rateLimited))
	r.Use(limitBody(maxBodyBytes))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.Get("/", handleIndex)
	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Get("/stats", s.handleStats)
		r.Route("/transactions", func(r chi.Router) {
			r.Get("/", s.handleList)
			r.Post("/", s.handleCreate)
			r.Put("/{id}", s.handleUpdate)
			r.Delete("/{id}", s.handleDelete)
		})
	})

	return r
}

func (s *Server) rateLimited(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

func limitBody(n int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body != nil {
				r.Body = http.MaxBytesReader(w, r.Body, n)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Shutdown stops background routines and then drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		if s.caches != nil {
			s.caches.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
