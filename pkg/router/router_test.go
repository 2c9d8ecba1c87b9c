package router

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type observed struct {
	method, route string
	status        int
}

type recordingObserver struct {
	calls []observed
}

func (o *recordingObserver) ObserveRequest(method, route string, status int, _ time.Duration) {
	o.calls = append(o.calls, observed{method, route, status})
}

func text(body string) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}
}

func serve(r http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestRouting(t *testing.T) {
	r := New()
	r.GET("/api/v1/fetches", text("list"))
	r.POST("/api/v1/fetches", text("create"))
	r.GET("/api/v1/fetches/*", text("get"))
	r.GET("/swagger/*", text("docs"))

	tests := []struct {
		method, path string
		status       int
		body         string
	}{
		{http.MethodGet, "/api/v1/fetches", http.StatusOK, "list"},
		{http.MethodPost, "/api/v1/fetches", http.StatusOK, "create"},
		{http.MethodGet, "/api/v1/fetches/3f2a", http.StatusOK, "get"},
		{http.MethodGet, "/swagger/index.html", http.StatusOK, "docs"},
		{http.MethodDelete, "/api/v1/fetches", http.StatusMethodNotAllowed, ""},
		{http.MethodPost, "/api/v1/fetches/3f2a", http.StatusMethodNotAllowed, ""},
		{http.MethodGet, "/api/v1/unknown", http.StatusNotFound, ""},
		{http.MethodGet, "/swagger/", http.StatusNotFound, ""},
	}
	for _, tt := range tests {
		rec := serve(r, tt.method, tt.path)
		assert.Equal(t, tt.status, rec.Code, "%s %s", tt.method, tt.path)
		if tt.body != "" {
			assert.Equal(t, tt.body, rec.Body.String())
		}
	}
}

func TestWildcardOrder(t *testing.T) {
	r := New()
	r.GET("/api/v1/fetches/*/result", text("result"))
	r.GET("/api/v1/fetches/*", text("get"))

	assert.Equal(t, "result", serve(r, http.MethodGet, "/api/v1/fetches/abc/result").Body.String())
	assert.Equal(t, "get", serve(r, http.MethodGet, "/api/v1/fetches/abc").Body.String())
}

func TestMatchWildcardRoute(t *testing.T) {
	assert.True(t, matchWildcardRoute("/a/b/c", "/a/*"))
	assert.True(t, matchWildcardRoute("/a/b", "/a/*"))
	assert.False(t, matchWildcardRoute("/a", "/a/*"))
	assert.True(t, matchWildcardRoute("/a/x/errors", "/a/*/errors"))
	assert.False(t, matchWildcardRoute("/a/x/logs", "/a/*/errors"))
	assert.False(t, matchWildcardRoute("/b/x", "/a/*"))
}

func TestObserverAndLogging(t *testing.T) {
	var logs bytes.Buffer
	obs := &recordingObserver{}
	r := New(WithLogger(zerolog.New(&logs)), WithObserver(obs))
	r.GET("/api/v1/fetches/*", text("get"))
	r.Handle(http.MethodGet, "/health", http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))

	serve(r, http.MethodGet, "/api/v1/fetches/1")
	serve(r, http.MethodGet, "/health")
	serve(r, http.MethodGet, "/nope")

	require.Len(t, obs.calls, 3)
	assert.Equal(t, observed{"GET", "/api/v1/fetches/*", 200}, obs.calls[0])
	assert.Equal(t, observed{"GET", "/health", 503}, obs.calls[1])
	assert.Equal(t, observed{"GET", "unmatched", 404}, obs.calls[2])

	out := logs.String()
	assert.Contains(t, out, `"component":"http"`)
	assert.Contains(t, out, `"path":"/api/v1/fetches/1"`)
	assert.Contains(t, out, `"level":"error"`)
	assert.Contains(t, out, `"level":"warn"`)
}
