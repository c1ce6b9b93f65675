// Package loader extracts plain text from uploaded documents. Each supported
// file extension maps to a Loader; unsupported extensions are rejected before
// any file content is read.
package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat is returned for file extensions with no loader.
var ErrUnsupportedFormat = errors.New("loader: unsupported file format")

// Loader extracts the text content of one file.
type Loader interface {
	// Load reads the file at path and returns its text content.
	Load(path string) (string, error)
}

// ForExtension returns the loader for the given filename's extension.
func ForExtension(filename string) (Loader, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt", ".md", ".markdown":
		return textLoader{}, nil
	case ".csv":
		return csvLoader{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// Extensions lists the supported file extensions.
func Extensions() []string {
	return []string{".txt", ".md", ".markdown", ".csv"}
}

// textLoader reads the file verbatim.
type textLoader struct{}

func (textLoader) Load(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("loader: read %s: %w", path, err)
	}
	return string(data), nil
}

// csvLoader flattens a CSV file into text, one row per line with fields
// joined by ", " so row context stays together in a chunk.
type csvLoader struct{}

func (csvLoader) Load(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("loader: open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1 // ragged rows are fine, we only flatten

	records, err := r.ReadAll()
	if err != nil {
		return "", fmt.Errorf("loader: parse csv %s: %w", path, err)
	}

	var b strings.Builder
	for _, rec := range records {
		b.WriteString(strings.Join(rec, ", "))
		b.WriteByte('\n')
	}
	return b.String(), nil
}
