package api

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/firecrawl-demo/internal/config"
	"github.com/JakeFAU/firecrawl-demo/internal/ledger"
	"github.com/JakeFAU/firecrawl-demo/internal/logging"
	"github.com/JakeFAU/firecrawl-demo/internal/metrics"
	"github.com/JakeFAU/firecrawl-demo/internal/scraper"
)

// Deps bundles everything the HTTP layer calls into.
type Deps struct {
	// Client talks to the provider.
	Client scraper.Client
	// Defaults fill in options when a request carries none.
	Defaults scraper.Defaults
	// Ledger remembers job handles. Required.
	Ledger ledger.Repository
	// Publisher receives job events; nil disables events.
	Publisher scraper.Publisher
	// Topic is the event topic passed to Publisher.
	Topic  string
	IDGen  scraper.IDGenerator
	Clock  scraper.Clock
	Logger *zap.Logger
	Config config.Config
}

// Server wires HTTP handlers to the provider client and the job ledger.
type Server struct {
	router    chi.Router
	client    scraper.Client
	defaults  scraper.Defaults
	ledger    ledger.Repository
	publisher scraper.Publisher
	topic     string
	idGen     scraper.IDGenerator
	clock     scraper.Clock
	logger    *zap.Logger
	cfg       config.Config
	page      *demoPage
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Client == nil {
		return nil, errors.New("provider client is required")
	}
	if deps.Ledger == nil {
		return nil, errors.New("job ledger is required")
	}
	if deps.IDGen == nil || deps.Clock == nil {
		return nil, errors.New("id generator and clock are required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	page, err := newDemoPage()
	if err != nil {
		return nil, err
	}
	s := &Server{
		client:    deps.Client,
		defaults:  deps.Defaults,
		ledger:    deps.Ledger,
		publisher: deps.Publisher,
		topic:     deps.Topic,
		idGen:     deps.IDGen,
		clock:     deps.Clock,
		logger:    logger.Named("api"),
		cfg:       deps.Config,
		page:      page,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(metrics.Middleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	if timeout := deps.Config.RequestTimeout(); timeout > 0 {
		r.Use(timeoutMiddleware(timeout))
	}

	r.Get("/", s.demo)
	r.Get("/firecrawl-demo", s.demo)
	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		if deps.Config.Auth.Enabled {
			r.Use(apiKeyMiddleware(deps.Config.Auth.APIKey))
		}
		r.Post("/scrape", s.scrape)
		r.Post("/crawl", s.crawl)
		r.Post("/batch-scrape", s.batchScrape)
		r.Post("/crawl-status", s.crawlStatus)
		r.Get("/jobs", s.listJobs)
	})

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			id, err := s.idGen.NewID()
			if err != nil {
				s.logger.Warn("request id generation failed", zap.Error(err))
			}
			reqID = id
		}
		ctx := r.Context()
		if reqID != "" {
			w.Header().Set("X-Request-ID", reqID)
			ctx = logging.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context(), s.logger).Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logging.FromContext(r.Context(), s.logger).Error("panic recovered", zap.Any("panic", rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// timeoutMiddleware bounds the request context. Provider calls observe the
// deadline and fail through the handler's own JSON error path.
func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("X-API-Key")
			if key == "" {
				key = r.URL.Query().Get("api_key")
			}
			if key != expected {
				writeError(w, http.StatusForbidden, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}
