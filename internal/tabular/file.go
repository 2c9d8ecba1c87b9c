package tabular

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"

	"go-query-cache/internal/model"
)

// Save writes r to path, replacing any existing file. Parent directories
// are created. The table is written to a temporary file in the same
// directory and renamed into place, so readers never see a partial file.
func Save(path string, r *model.Result) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()

	buf := bufio.NewWriter(tmp)
	if err := Write(buf, r); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := buf.Flush(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to close file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename file: %w", err)
	}
	return nil
}

// Load reads the table stored at path.
func Load(path string) (*model.Result, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return Read(bufio.NewReader(file))
}
