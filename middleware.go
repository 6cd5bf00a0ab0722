package main

import (
	"log/slog"
	"net/http"
	"runtime/debug"
	"strconv"
	"time"

	"github.com/olgasafonova/gleif-mcp-server/metrics"
)

// SecurityConfig configures the HTTP transport middleware
type SecurityConfig struct {
	// MaxBodySize limits request bodies in bytes; 0 disables the limit
	MaxBodySize int64
}

// SecurityMiddleware limits request bodies, recovers panics and records
// HTTP transport metrics.
type SecurityMiddleware struct {
	next   http.Handler
	logger *slog.Logger
	config SecurityConfig
}

// NewSecurityMiddleware wraps next
func NewSecurityMiddleware(next http.Handler, logger *slog.Logger, config SecurityConfig) *SecurityMiddleware {
	return &SecurityMiddleware{
		next:   next,
		logger: logger,
		config: config,
	}
}

func (m *SecurityMiddleware) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

	defer func() {
		if p := recover(); p != nil {
			metrics.PanicsRecovered.WithLabelValues("http").Inc()
			m.logger.Error("Panic recovered",
				"operation", "http "+r.Method+" "+r.URL.Path,
				"panic", p,
				"stack", string(debug.Stack()))
			if !rec.wroteHeader {
				http.Error(rec, "internal server error", http.StatusInternalServerError)
			}
		}

		path := r.Pattern
		if path == "" {
			path = "unmatched"
		}
		metrics.HTTPRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		metrics.HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	}()

	if m.config.MaxBodySize > 0 && r.Body != nil {
		r.Body = http.MaxBytesReader(rec, r.Body, m.config.MaxBodySize)
	}

	rec.Header().Set("X-Content-Type-Options", "nosniff")
	m.next.ServeHTTP(rec, r)
}

// statusRecorder captures the response status while keeping streaming support
type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusRecorder) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Flush forwards to the underlying writer; the MCP endpoint streams SSE
func (s *statusRecorder) Flush() {
	if f, ok := s.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the underlying writer to http.ResponseController
func (s *statusRecorder) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}
