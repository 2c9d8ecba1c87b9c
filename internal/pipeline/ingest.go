package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go-query-cache/internal/model"
)

// LoadQueryFile reads a SQL file into a query named after the file.
func LoadQueryFile(path string) (model.Query, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Query{}, fmt.Errorf("failed to read query file: %w", err)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	q := model.NewQuery(name, strings.TrimSpace(string(data)))
	if q.Empty() {
		return model.Query{}, fmt.Errorf("query file %s is empty", path)
	}
	return q, nil
}
