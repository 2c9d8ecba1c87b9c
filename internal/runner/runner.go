// Package runner resolves queries from a local cache file or a remote source.
//
// A fetch is a single decision per call:
//   - forceRefresh false and the cache file decodes: return it, no remote call
//   - otherwise: query the source, persist the result, return it
//
// A corrupt cache file never fails a fetch; it is logged and replaced.
// The runner keeps no per-path state and does not guard a path against
// concurrent writers.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"go-query-cache/internal/model"
	"go-query-cache/internal/tabular"
)

// Source is the remote side of a fetch.
type Source interface {
	Query(ctx context.Context, q model.Query) (*model.Result, error)
}

// Recorder stores fetch history.
type Recorder interface {
	SaveFetch(ctx context.Context, rec model.FetchRecord) error
}

// Observer receives fetch metrics.
type Observer interface {
	FetchCompleted(outcome model.Outcome, d time.Duration)
	CacheWriteFailed()
}

// Report describes one resolved fetch.
type Report struct {
	ID        string        `json:"id"`
	Query     model.Query   `json:"query"`
	CachePath string        `json:"cache_path"`
	Outcome   model.Outcome `json:"outcome"`
	Result    *model.Result `json:"result,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Runner is the cached query runner.
type Runner struct {
	source   Source
	logger   zerolog.Logger
	recorder Recorder
	observer Observer
	now      func() time.Time
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger. The default discards output.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) { r.logger = l.With().Str("component", "runner").Logger() }
}

// WithRecorder records every fetch.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// WithObserver reports fetch metrics.
func WithObserver(o Observer) Option {
	return func(r *Runner) { r.observer = o }
}

// New creates a Runner over src.
func New(src Source, opts ...Option) *Runner {
	r := &Runner{
		source: src,
		logger: zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fetch returns the result of q, from cachePath when possible.
//
// On ErrCacheWriteFailed the fetched result is returned together with the
// error; callers that can live without the cache file may use it.
func (r *Runner) Fetch(ctx context.Context, q model.Query, cachePath string, forceRefresh bool) (*model.Result, error) {
	rep, err := r.FetchReport(ctx, q, cachePath, forceRefresh)
	if rep == nil {
		return nil, err
	}
	return rep.Result, err
}

// FetchReport behaves like Fetch and also reports how the fetch resolved.
// The report is nil only when no result could be produced.
func (r *Runner) FetchReport(ctx context.Context, q model.Query, cachePath string, forceRefresh bool) (*Report, error) {
	if q.Empty() {
		return nil, ErrEmptyQuery
	}
	if cachePath == "" {
		return nil, ErrNoCachePath
	}

	rep := &Report{
		ID:        uuid.NewString(),
		Query:     q,
		CachePath: cachePath,
		StartedAt: r.now(),
	}
	log := r.logger.With().
		Str("fetch_id", rep.ID).
		Str("query", q.Label()).
		Str("cache_path", cachePath).
		Logger()

	rep.Outcome = model.OutcomeRefresh
	if !forceRefresh {
		cached, err := readCache(cachePath)
		switch {
		case err == nil:
			rep.Outcome = model.OutcomeHit
			rep.Result = cached
			r.finish(ctx, log, rep, nil)
			return rep, nil
		case errors.Is(err, fs.ErrNotExist):
			rep.Outcome = model.OutcomeMiss
		default:
			log.Warn().Err(err).Msg("ignoring unreadable cache file")
			rep.Outcome = model.OutcomeFallback
		}
	}

	log.Debug().Str("outcome", string(rep.Outcome)).Msg("querying source")
	res, err := r.source.Query(ctx, q)
	if err != nil {
		rep.Outcome = model.OutcomeFailed
		err = fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
		r.finish(ctx, log, rep, err)
		return nil, err
	}
	rep.Result = res

	if err := tabular.Save(cachePath, res); err != nil {
		err = fmt.Errorf("%w: %s: %w", ErrCacheWriteFailed, cachePath, err)
		if r.observer != nil {
			r.observer.CacheWriteFailed()
		}
		r.finish(ctx, log, rep, err)
		return rep, err
	}

	r.finish(ctx, log, rep, nil)
	return rep, nil
}

// readCache loads a cache file. A missing file is returned as-is so callers
// can tell it apart; anything else is ErrCacheReadFailed.
func readCache(path string) (*model.Result, error) {
	res, err := tabular.Load(path)
	if err == nil {
		return res, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}
	return nil, fmt.Errorf("%w: %w", ErrCacheReadFailed, err)
}

func (r *Runner) finish(ctx context.Context, log zerolog.Logger, rep *Report, fetchErr error) {
	rep.Duration = r.now().Sub(rep.StartedAt)

	rows := 0
	if rep.Result != nil {
		rows = rep.Result.Len()
	}

	if r.observer != nil {
		r.observer.FetchCompleted(rep.Outcome, rep.Duration)
	}

	event := log.Info()
	if fetchErr != nil {
		event = log.Error().Err(fetchErr)
	}
	event.Str("outcome", string(rep.Outcome)).
		Int("rows", rows).
		Dur("duration", rep.Duration).
		Msg("fetch finished")

	if r.recorder == nil {
		return
	}
	rec := model.FetchRecord{
		ID:         rep.ID,
		QueryName:  rep.Query.Name,
		QueryKey:   rep.Query.Key(),
		CachePath:  rep.CachePath,
		Outcome:    rep.Outcome,
		RowCount:   rows,
		StartedAt:  rep.StartedAt.UTC(),
		DurationMs: rep.Duration.Milliseconds(),
	}
	if fetchErr != nil {
		rec.Error = fetchErr.Error()
	}
	// a fetch that hit its deadline is still recorded
	if err := r.recorder.SaveFetch(context.WithoutCancel(ctx), rec); err != nil {
		log.Warn().Err(err).Msg("failed to record fetch")
	}
}
