package utils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go-query-cache/internal/model"
)

// CacheFileExtension is the extension given to cache files named without one.
const CacheFileExtension = ".csv"

// ErrInvalidCacheName is returned for names that would escape the base directory.
var ErrInvalidCacheName = errors.New("invalid cache name")

// CacheLayout maps cache names and queries to files under a base directory.
type CacheLayout struct {
	BaseDir string
}

// NewCacheLayout creates a new cache layout rooted at baseDir.
func NewCacheLayout(baseDir string) *CacheLayout {
	return &CacheLayout{
		BaseDir: baseDir,
	}
}

// Resolve returns the file path for a cache name. The name is confined to
// the base directory; a missing extension defaults to .csv.
func (cl *CacheLayout) Resolve(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidCacheName, name)
	}
	if filepath.Ext(name) == "" {
		name += CacheFileExtension
	}
	return filepath.Join(cl.BaseDir, name), nil
}

// PathFor returns the default cache path for a query: its name when set,
// otherwise a prefix of its key.
func (cl *CacheLayout) PathFor(q model.Query) string {
	name := sanitizeName(q.Name)
	if name == "" {
		name = q.Key()[:16]
	}
	return filepath.Join(cl.BaseDir, name+CacheFileExtension)
}

// GetFileType determines the file type based on extension
func (cl *CacheLayout) GetFileType(fileName string) string {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return "csv"
	case ".json":
		return "json"
	case ".xlsx", ".xls":
		return "xlsx"
	default:
		return "unknown"
	}
}

// CacheEntry describes one file in the cache directory.
type CacheEntry struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	ModTime time.Time `json:"modified_at"`
}

// List returns the CSV cache files under the base directory, sorted by
// name. A missing directory is an empty cache.
func (cl *CacheLayout) List() ([]CacheEntry, error) {
	entries, err := os.ReadDir(cl.BaseDir)
	if errors.Is(err, fs.ErrNotExist) {
		return []CacheEntry{}, nil
	}
	if err != nil {
		return nil, err
	}

	out := []CacheEntry{}
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") || cl.GetFileType(e.Name()) != "csv" {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, CacheEntry{Name: e.Name(), Size: info.Size(), ModTime: info.ModTime().UTC()})
	}
	return out, nil
}

// EnsureBaseDirExists ensures the base directory exists
func (cl *CacheLayout) EnsureBaseDirExists() error {
	return os.MkdirAll(cl.BaseDir, 0755)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return strings.Trim(b.String(), ".")
}
