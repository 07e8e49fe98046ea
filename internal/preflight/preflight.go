// Package preflight performs the cheap structural checks a document
// must pass before an annotation session opens on it. It uses a
// lightweight read-only parser so a corrupt file is rejected before the
// engine builds a full object graph.
package preflight

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Checker validates candidate documents.
type Checker struct {
	maxFileSize int64
}

// NewChecker creates a checker with the given file size ceiling.
func NewChecker(maxFileSize int64) *Checker {
	return &Checker{maxFileSize: maxFileSize}
}

// CheckFile validates a document on disk and returns its page count.
func (c *Checker) CheckFile(path string) (int, error) {
	if path == "" {
		return 0, fmt.Errorf("path cannot be empty")
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return 0, fmt.Errorf("file does not exist: %s", path)
	}
	if err != nil {
		return 0, fmt.Errorf("cannot access file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("path is a directory, not a file: %s", path)
	}
	if !strings.HasSuffix(strings.ToLower(path), ".pdf") {
		return 0, fmt.Errorf("file is not a PDF: %s", path)
	}
	if info.Size() == 0 {
		return 0, fmt.Errorf("file is empty: %s", path)
	}
	if info.Size() > c.maxFileSize {
		return 0, fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), c.maxFileSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read file: %w", err)
	}
	return c.CheckBytes(data)
}

// CheckBytes validates an in-memory document and returns its page
// count.
func (c *Checker) CheckBytes(data []byte) (int, error) {
	if int64(len(data)) > c.maxFileSize {
		return 0, fmt.Errorf("document too large: %d bytes (max: %d bytes)", len(data), c.maxFileSize)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PDF data: %w", err)
	}
	pages := r.NumPage()
	if pages <= 0 {
		return 0, fmt.Errorf("document has no pages")
	}
	return pages, nil
}
