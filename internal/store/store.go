// Package store persists the canonical annotation sets in the
// application's own format, independent of what is embedded in any PDF
// file: one JSON document per document id, holding the tagged-union
// records keyed by page index.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pagemark/pagemark/internal/annot"
)

const (
	dirPerm  = 0o750
	filePerm = 0o640
)

// Store is a directory of annotation sets.
type Store struct {
	dir string
}

// New creates the store directory if needed and returns the store.
func New(dir string) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve store directory: %w", err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &Store{dir: abs}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// Load reads the set for a document id. A missing set is not an error;
// it comes back empty.
func (s *Store) Load(docID string) (*annot.Set, error) {
	path, err := s.pathFor(docID)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &annot.Set{DocumentID: docID}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read annotation set %s: %w", docID, err)
	}
	set, err := annot.UnmarshalSet(data)
	if err != nil {
		return nil, err
	}
	set.DocumentID = docID
	return set, nil
}

// Save writes the set atomically: temp file then rename.
func (s *Store) Save(set *annot.Set) error {
	path, err := s.pathFor(set.DocumentID)
	if err != nil {
		return err
	}
	data, err := set.Marshal()
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, filePerm); err != nil {
		return fmt.Errorf("write annotation set %s: %w", set.DocumentID, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace annotation set %s: %w", set.DocumentID, err)
	}
	return nil
}

// Delete removes a document's set. Deleting a set that does not exist
// is a no-op.
func (s *Store) Delete(docID string) error {
	path, err := s.pathFor(docID)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete annotation set %s: %w", docID, err)
	}
	return nil
}

// pathFor maps a document id onto a file inside the store directory,
// rejecting ids that would escape it.
func (s *Store) pathFor(docID string) (string, error) {
	if docID == "" {
		return "", fmt.Errorf("empty document id")
	}
	if strings.ContainsAny(docID, `/\`) || strings.Contains(docID, "..") {
		return "", fmt.Errorf("document id %q contains path separators", docID)
	}
	path := filepath.Join(s.dir, docID+".annotations.json")
	if !strings.HasPrefix(path, s.dir+string(filepath.Separator)) {
		return "", fmt.Errorf("document id %q escapes the store directory", docID)
	}
	return path, nil
}
