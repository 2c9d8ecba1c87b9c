package runner

import "errors"

// Fetch errors. Causes are wrapped, so use errors.Is to test for these.
var (
	// ErrEmptyQuery is returned when the query text is blank.
	ErrEmptyQuery = errors.New("query text is empty")

	// ErrNoCachePath is returned when no cache path was given.
	ErrNoCachePath = errors.New("cache path is required")

	// ErrRemoteUnavailable is returned when the source could not be reached
	// or rejected the query. Fetches are never retried.
	ErrRemoteUnavailable = errors.New("remote source unavailable")

	// ErrCacheWriteFailed is returned, alongside the fetched result, when
	// the result could not be persisted.
	ErrCacheWriteFailed = errors.New("cache write failed")

	// ErrCacheReadFailed marks an unreadable or corrupt cache file. Fetch
	// never returns it: the runner logs it and fetches from the source.
	ErrCacheReadFailed = errors.New("cache read failed")
)
