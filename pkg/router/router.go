package router

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// RequestObserver receives one call per served request. route is the
// registered pattern that matched, or "unmatched".
type RequestObserver interface {
	ObserveRequest(method, route string, status int, d time.Duration)
}

type HandlerFunc func(http.ResponseWriter, *http.Request)

type Router struct {
	mux      *http.ServeMux
	routes   map[string]http.Handler // key = METHOD:PATH
	paths    map[string]bool         // track registered paths
	patterns []string                // wildcard paths in registration order
	logger   zerolog.Logger
	observer RequestObserver
}

// Option configures a Router.
type Option func(*Router)

// WithLogger logs every request at info level.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Router) { r.logger = l.With().Str("component", "http").Logger() }
}

// WithObserver reports every request to o.
func WithObserver(o RequestObserver) Option {
	return func(r *Router) { r.observer = o }
}

func New(opts ...Option) *Router {
	r := &Router{
		mux:    http.NewServeMux(),
		routes: make(map[string]http.Handler),
		paths:  make(map[string]bool),
		logger: zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Catch-all handler for unknown paths
	r.mux.HandleFunc("/", func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		route := r.dispatch(lrw, req)

		duration := time.Since(start)
		if r.observer != nil {
			r.observer.ObserveRequest(req.Method, route, lrw.statusCode, duration)
		}
		event := r.logger.Info()
		if lrw.statusCode >= http.StatusInternalServerError {
			event = r.logger.Error()
		} else if lrw.statusCode >= http.StatusBadRequest {
			event = r.logger.Warn()
		}
		event.Str("method", req.Method).
			Str("path", req.URL.Path).
			Int("status", lrw.statusCode).
			Dur("duration", duration).
			Msg("request")
	})

	return r
}

// dispatch serves req and returns the route pattern that handled it.
func (r *Router) dispatch(w http.ResponseWriter, req *http.Request) string {
	if h, ok := r.routes[req.Method+":"+req.URL.Path]; ok {
		h.ServeHTTP(w, req)
		return req.URL.Path
	}

	// Wildcard routes match in registration order, so register more
	// specific patterns first.
	methodMatched := false
	for _, pattern := range r.patterns {
		if !matchWildcardRoute(req.URL.Path, pattern) {
			continue
		}
		if h, ok := r.routes[req.Method+":"+pattern]; ok {
			h.ServeHTTP(w, req)
			return pattern
		}
		methodMatched = true
	}

	if methodMatched || r.paths[req.URL.Path] {
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
	} else {
		http.Error(w, "Not Found", http.StatusNotFound)
	}
	return "unmatched"
}

// matchWildcardRoute checks if a request path matches a wildcard route pattern
func matchWildcardRoute(requestPath, routePattern string) bool {
	// Split both paths into segments
	requestSegments := strings.Split(strings.Trim(requestPath, "/"), "/")
	routeSegments := strings.Split(strings.Trim(routePattern, "/"), "/")

	// Handle single wildcard at the end (matches any number of remaining segments)
	if len(routeSegments) > 0 && routeSegments[len(routeSegments)-1] == "*" {
		// Must have more segments than the route prefix
		if len(requestSegments) < len(routeSegments) {
			return false
		}

		// Check all segments except the last wildcard
		for i := 0; i < len(routeSegments)-1; i++ {
			if routeSegments[i] != "*" && requestSegments[i] != routeSegments[i] {
				return false
			}
		}
		return requestSegments[len(routeSegments)-1] != ""
	}

	if len(requestSegments) != len(routeSegments) {
		return false
	}

	for i, routeSegment := range routeSegments {
		if routeSegment == "*" {
			if requestSegments[i] == "" {
				return false
			}
			continue
		}
		if requestSegments[i] != routeSegment {
			return false
		}
	}

	return true
}

// --- Register paths ---
func (r *Router) register(method, path string, handler http.Handler) {
	key := method + ":" + path
	r.routes[key] = handler
	if !r.paths[path] && strings.Contains(path, "*") {
		r.patterns = append(r.patterns, path)
	}
	r.paths[path] = true
}

// Handle registers an http.Handler, e.g. promhttp or the swagger UI.
func (r *Router) Handle(method, path string, handler http.Handler) {
	r.register(method, path, handler)
}

func (r *Router) GET(path string, handler HandlerFunc) {
	r.register(http.MethodGet, path, http.HandlerFunc(handler))
}
func (r *Router) POST(path string, handler HandlerFunc) {
	r.register(http.MethodPost, path, http.HandlerFunc(handler))
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// --- Start server ---

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (r *Router) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		r.logger.Info().Str("addr", addr).Msg("server started")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	r.logger.Info().Msg("shutting down server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// --- Logging response writer to capture status codes ---
type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// Flush lets streaming handlers flush through the wrapper.
func (lrw *loggingResponseWriter) Flush() {
	if f, ok := lrw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
