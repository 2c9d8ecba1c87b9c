package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"go-query-cache/internal/model"
	"go-query-cache/internal/pipeline"
	"go-query-cache/internal/runner"
	"go-query-cache/internal/store"
	"go-query-cache/internal/tabular"
	"go-query-cache/pkg/utils"
)

// Fetcher runs cached fetches.
type Fetcher interface {
	FetchReport(ctx context.Context, q model.Query, cachePath string, forceRefresh bool) (*runner.Report, error)
}

// History reads the fetch history.
type History interface {
	ListFetches(ctx context.Context, limit int) ([]model.FetchRecord, error)
	GetFetch(ctx context.Context, id string) (model.FetchRecord, error)
}

// Handler serves the query cache API.
type Handler struct {
	fetcher Fetcher
	history History
	layout  *utils.CacheLayout
	timeout time.Duration
	logger  zerolog.Logger

	// fetches share cache files, so they run one at a time
	mu sync.Mutex
}

// New creates a Handler. Cache names are resolved under layout.
func New(fetcher Fetcher, history History, layout *utils.CacheLayout, timeout time.Duration, logger zerolog.Logger) *Handler {
	return &Handler{
		fetcher: fetcher,
		history: history,
		layout:  layout,
		timeout: timeout,
		logger:  logger.With().Str("component", "api").Logger(),
	}
}

// FetchRequest is the body of POST /fetches.
type FetchRequest struct {
	Name         string         `json:"name" example:"pax_df"`
	Query        string         `json:"query" example:"SELECT month, items FROM normalised_prescribing"`
	Cache        string         `json:"cache,omitempty" example:"pax_df.csv"`
	ForceRefresh bool           `json:"force_refresh,omitempty"`
	Plan         *pipeline.Plan `json:"plan,omitempty"`
}

// FetchResponse describes a resolved fetch and its (optionally shaped) result.
type FetchResponse struct {
	ID         string         `json:"id"`
	Name       string         `json:"name,omitempty"`
	Outcome    model.Outcome  `json:"outcome"`
	CachePath  string         `json:"cache_path"`
	RowCount   int            `json:"row_count"`
	DurationMs int64          `json:"duration_ms"`
	Warning    string         `json:"warning,omitempty"`
	Columns    []model.Column `json:"columns"`
	Rows       [][]any        `json:"rows"`
}

// ErrorResponse is returned for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CreateFetch runs a query through the cache
// @Summary Run a cached fetch
// @Description Returns the cached result for the query, or fetches it from the source and caches it. A cache write failure still returns the result, with a warning.
// @Tags fetches
// @Accept json
// @Produce json
// @Param fetch body FetchRequest true "Query and cache options"
// @Success 200 {object} FetchResponse
// @Failure 400 {object} ErrorResponse "Invalid request"
// @Failure 502 {object} ErrorResponse "Remote source unavailable"
// @Failure 504 {object} ErrorResponse "Query timed out"
// @Router /fetches [post]
func (h *Handler) CreateFetch(w http.ResponseWriter, r *http.Request) {
	var req FetchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}

	q := model.NewQuery(req.Name, req.Query)
	if q.Empty() {
		writeError(w, http.StatusBadRequest, runner.ErrEmptyQuery.Error())
		return
	}
	if req.Plan != nil {
		if err := req.Plan.Validate(); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	cachePath := h.layout.PathFor(q)
	if req.Cache != "" {
		p, err := h.layout.Resolve(req.Cache)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cachePath = p
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rep, err := h.fetch(ctx, q, cachePath, req.ForceRefresh)

	var warning string
	switch {
	case err == nil:
	case errors.Is(err, runner.ErrCacheWriteFailed) && rep != nil:
		warning = err.Error()
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, err.Error())
		return
	case errors.Is(err, runner.ErrRemoteUnavailable):
		writeError(w, http.StatusBadGateway, err.Error())
		return
	case errors.Is(err, runner.ErrEmptyQuery), errors.Is(err, runner.ErrNoCachePath):
		writeError(w, http.StatusBadRequest, err.Error())
		return
	default:
		h.logger.Error().Err(err).Msg("fetch failed")
		writeError(w, http.StatusInternalServerError, "Fetch failed")
		return
	}

	result := rep.Result
	if req.Plan != nil {
		shaped, err := pipeline.Apply(result, *req.Plan)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		result = shaped
	}

	writeJSON(w, http.StatusOK, FetchResponse{
		ID:         rep.ID,
		Name:       q.Name,
		Outcome:    rep.Outcome,
		CachePath:  rep.CachePath,
		RowCount:   result.Len(),
		DurationMs: rep.Duration.Milliseconds(),
		Warning:    warning,
		Columns:    result.Columns,
		Rows:       jsonRows(result),
	})
}

// fetch runs one fetch at a time.
func (h *Handler) fetch(ctx context.Context, q model.Query, cachePath string, forceRefresh bool) (*runner.Report, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.fetcher.FetchReport(ctx, q, cachePath, forceRefresh)
}

// ListFetches returns the fetch history
// @Summary List fetches
// @Description Most recent fetches first
// @Tags fetches
// @Produce json
// @Param limit query int false "Maximum number of records" default(50)
// @Success 200 {array} model.FetchRecord
// @Failure 400 {object} ErrorResponse "Invalid limit"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /fetches [get]
func (h *Handler) ListFetches(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := h.history.ListFetches(r.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list fetches")
		writeError(w, http.StatusInternalServerError, "Failed to fetch history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetFetch returns one fetch record
// @Summary Get fetch
// @Description Retrieve a fetch history record by ID
// @Tags fetches
// @Produce json
// @Param id path string true "Fetch ID"
// @Success 200 {object} model.FetchRecord
// @Failure 400 {object} ErrorResponse "Invalid fetch ID"
// @Failure 404 {object} ErrorResponse "Fetch not found"
// @Router /fetches/{id} [get]
func (h *Handler) GetFetch(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/fetches/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, http.StatusBadRequest, "Fetch ID is required")
		return
	}

	rec, err := h.history.GetFetch(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Fetch not found")
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("fetch_id", id).Msg("failed to get fetch")
		writeError(w, http.StatusInternalServerError, "Failed to get fetch")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ListCache lists the cache files
// @Summary List cache entries
// @Tags cache
// @Produce json
// @Success 200 {array} utils.CacheEntry
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /cache [get]
func (h *Handler) ListCache(w http.ResponseWriter, _ *http.Request) {
	entries, err := h.layout.List()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list cache")
		writeError(w, http.StatusInternalServerError, "Failed to list cache")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// DownloadCache serves a cache entry for download
// @Summary Download cache entry
// @Description Download a cached result as CSV, JSON or XLSX
// @Tags cache
// @Produce text/csv
// @Produce application/json
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param name path string true "Cache name"
// @Param format query string false "Export format" Enums(csv, json, xlsx) default(csv)
// @Success 200 {file} file "Cache entry"
// @Failure 400 {object} ErrorResponse "Invalid name or format"
// @Failure 404 {object} ErrorResponse "Cache entry not found"
// @Failure 422 {object} ErrorResponse "Cache entry unreadable"
// @Router /cache/{name} [get]
func (h *Handler) DownloadCache(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(r.URL.Path, "/api/v1/cache/")
	path, err := h.layout.Resolve(name)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	format := pipeline.FormatCSV
	if raw := r.URL.Query().Get("format"); raw != "" {
		if format, err = pipeline.ParseFormat(raw); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	res, err := tabular.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "Cache entry not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	base := strings.TrimSuffix(name, utils.CacheFileExtension)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.%s\"", base, format))
	w.Header().Set("Content-Type", format.ContentType())
	info := pipeline.ExportInfo{QueryName: base, CachePath: path, ExportedAt: time.Now().UTC()}
	if err := pipeline.Export(w, res, format, info); err != nil {
		h.logger.Error().Err(err).Str("cache", name).Msg("failed to export cache entry")
	}
}

// Health reports liveness
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// jsonRows renders dates as plain calendar dates.
func jsonRows(res *model.Result) [][]any {
	rows := make([][]any, len(res.Rows))
	for i, row := range res.Rows {
		out := make([]any, len(row))
		for j, v := range row {
			if t, ok := v.(time.Time); ok {
				v = t.Format(model.DateLayout)
			}
			out[j] = v
		}
		rows[i] = out
	}
	return rows
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
