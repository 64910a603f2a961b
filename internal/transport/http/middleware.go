package http

import (
	"bytes"
	"context"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFrom returns the request id assigned by RequestIDMiddleware
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// RequestIDMiddleware tags every request with an id, reusing a well-formed incoming X-Request-ID
func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey{}, id)))
	})
}

// LoggingMiddleware creates HTTP middleware for logging requests and responses
type LoggingMiddleware struct {
	verbose bool
}

// NewLoggingMiddleware creates a new logging middleware
func NewLoggingMiddleware(verbose bool) *LoggingMiddleware {
	return &LoggingMiddleware{
		verbose: verbose,
	}
}

// loggingResponseWriter wraps http.ResponseWriter to capture response details
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Write(b []byte) (int, error) {
	if lrw.body != nil {
		lrw.body.Write(b)
	}
	return lrw.ResponseWriter.Write(b)
}

// Middleware returns the HTTP logging middleware function
func (l *LoggingMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.verbose {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		id := RequestIDFrom(r.Context())

		log.Printf("[HTTP REQUEST] %s %s %s from %s", id, r.Method, r.URL.Path, r.RemoteAddr)

		// Log request body for POST/PATCH requests; passwords are never logged
		if (r.Method == http.MethodPost || r.Method == http.MethodPatch) && r.Body != nil {
			bodyBytes, err := io.ReadAll(r.Body)
			if err != nil {
				log.Printf("[HTTP REQUEST] %s Error reading request body: %v", id, err)
			} else {
				// Create a new reader for the handler
				r.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
				if len(bodyBytes) > 0 && !bytes.Contains(bodyBytes, []byte(`"password"`)) {
					log.Printf("[HTTP REQUEST] %s Body: %s", id, string(bodyBytes))
				}
			}
		}

		lrw := &loggingResponseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
			body:           &bytes.Buffer{},
		}

		next.ServeHTTP(lrw, r)

		duration := time.Since(start)
		log.Printf("[HTTP RESPONSE] %s %s %s -> %d in %v", id, r.Method, r.URL.Path, lrw.statusCode, duration)

		if lrw.body.Len() > 0 && lrw.statusCode >= 400 {
			log.Printf("[HTTP RESPONSE] %s Error body: %s", id, lrw.body.String())
		}
	})
}
