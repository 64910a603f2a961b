package http

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joshdurbin/linkvault/internal/service"
)

// Options configures the HTTP server
type Options struct {
	Port      string
	ServerURL string
	JWTSecret string
	Verbose   bool
	// TrustProxy takes click source addresses from X-Forwarded-For and X-Real-IP
	TrustProxy bool
	// Gatherer backs /metrics; prometheus.DefaultGatherer when nil
	Gatherer prometheus.Gatherer
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	port   string
}

// NewServer creates a new HTTP server
func NewServer(shortener service.Shortener, opts Options) *Server {
	handler := NewHandler(shortener, opts.ServerURL, opts.TrustProxy)
	auth := NewAuthenticator(opts.JWTSecret)

	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()

	// Owner API, token required
	mux.Handle("/api/links", auth.Middleware(http.HandlerFunc(handler.LinksHandler)))
	mux.Handle("/api/links/", auth.Middleware(http.HandlerFunc(handler.LinksDetailHandler)))

	// Public resolution API
	mux.HandleFunc("/api/resolve/", handler.ResolveHandler)
	mux.HandleFunc("/api/clicks", handler.RegisterClick)

	mux.HandleFunc("/healthz", handler.Health)
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// Redirect endpoint (catch-all)
	mux.HandleFunc("/", handler.Redirect)

	// Wrap with middlewares
	var finalHandler http.Handler = mux
	if opts.Verbose {
		finalHandler = NewLoggingMiddleware(opts.Verbose).Middleware(finalHandler)
	}
	// Request ids are assigned outermost so the logger sees them
	finalHandler = RequestIDMiddleware(finalHandler)

	server := &http.Server{
		Addr:         ":" + opts.Port,
		Handler:      finalHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		server: server,
		port:   opts.Port,
	}
}

// Start starts the HTTP server
func (s *Server) Start() error {
	log.Printf("Server starting on port %s", s.port)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Server shutting down...")
	return s.server.Shutdown(ctx)
}

// Port returns the server port
func (s *Server) Port() string {
	return s.port
}

// Routes returns the fully wrapped router
func (s *Server) Routes() http.Handler {
	return s.server.Handler
}
