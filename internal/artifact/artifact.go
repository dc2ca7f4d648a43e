// Package artifact stores and inspects the workbook a completed job produces.
package artifact

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Summary describes the first sheet of a workbook.
type Summary struct {
	Path    string   `json:"path"`
	Sheet   string   `json:"sheet"`
	Columns []string `json:"columns"`
	// Rows counts data rows, the header row excluded.
	Rows int `json:"rows"`
}

// Save writes r to dir/name. An existing file is never overwritten: a
// " (n)" suffix is added to the name instead.
func Save(dir, name string, r io.Reader) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".starplan-download-*")
	if err != nil {
		return "", fmt.Errorf("creating temporary file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("writing artifact: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("writing artifact: %w", err)
	}

	path, err := freePath(dir, name)
	if err != nil {
		return "", err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("moving artifact into place: %w", err)
	}
	return path, nil
}

func freePath(dir, name string) (string, error) {
	ext := filepath.Ext(name)
	base := strings.TrimSuffix(name, ext)
	for i := 0; i < 1000; i++ {
		candidate := name
		if i > 0 {
			candidate = fmt.Sprintf("%s (%d)%s", base, i, ext)
		}
		path := filepath.Join(dir, candidate)
		_, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("checking %s: %w", path, err)
		}
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// Inspect opens the workbook at path and summarises its first sheet.
func Inspect(path string) (*Summary, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheet", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading sheet %s: %w", sheets[0], err)
	}

	s := &Summary{Path: path, Sheet: sheets[0]}
	if len(rows) > 0 {
		s.Columns = rows[0]
		s.Rows = len(rows) - 1
	}
	return s, nil
}
