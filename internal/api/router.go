package api

import (
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "go-query-cache/docs" // swagger spec
	"go-query-cache/internal/api/handler"
	"go-query-cache/pkg/router"
)

// RegisterRoutes mounts the API, metrics and swagger UI on r.
func RegisterRoutes(r *router.Router, h *handler.Handler, metrics http.Handler) {
	r.POST("/api/v1/fetches", h.CreateFetch)
	r.GET("/api/v1/fetches", h.ListFetches)
	r.GET("/api/v1/fetches/*", h.GetFetch)
	r.GET("/api/v1/cache", h.ListCache)
	r.GET("/api/v1/cache/*", h.DownloadCache)
	r.GET("/health", h.Health)

	if metrics != nil {
		r.Handle(http.MethodGet, "/metrics", metrics)
	}
	r.Handle(http.MethodGet, "/swagger/*", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))
}

// NewRouter builds a router with every route registered.
func NewRouter(h *handler.Handler, metrics http.Handler, opts ...router.Option) *router.Router {
	r := router.New(opts...)
	RegisterRoutes(r, h, metrics)
	return r
}
