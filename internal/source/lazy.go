package source

import (
	"context"
	"sync"

	"go-query-cache/internal/model"
)

// LazySource connects on the first Query, so cache hits never touch the
// remote. A failed connect is retried on the next Query.
type LazySource struct {
	cfg  Config
	open func(ctx context.Context, cfg Config) (Source, error)

	mu  sync.Mutex
	src Source
}

// Lazy returns a Source that defers New until it is first queried.
func Lazy(cfg Config) (*LazySource, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &LazySource{cfg: cfg, open: New}, nil
}

// Query connects if needed and runs q.
func (l *LazySource) Query(ctx context.Context, q model.Query) (*model.Result, error) {
	src, err := l.connect(ctx)
	if err != nil {
		return nil, err
	}
	return src.Query(ctx, q)
}

func (l *LazySource) connect(ctx context.Context) (Source, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src != nil {
		return l.src, nil
	}
	src, err := l.open(ctx, l.cfg)
	if err != nil {
		return nil, err
	}
	l.src = src
	return src, nil
}

// Connected reports whether the underlying source has been opened.
func (l *LazySource) Connected() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.src != nil
}

// Close closes the underlying source if it was opened.
func (l *LazySource) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.src == nil {
		return nil
	}
	err := l.src.Close()
	l.src = nil
	return err
}
