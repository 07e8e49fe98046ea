package annot

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Set is the canonical persisted form of a document's annotations: the
// application's own store format, independent of what is embedded in the
// PDF file. The sync engine consumes exactly this shape.
type Set struct {
	DocumentID  string        `json:"documentId"`
	Annotations []*Annotation `json:"annotations"`
}

// Marshal serializes the set, annotations ordered by page then id so the
// output is stable across runs.
func (s *Set) Marshal() ([]byte, error) {
	sorted := append([]*Annotation(nil), s.Annotations...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].PageIndex != sorted[j].PageIndex {
			return sorted[i].PageIndex < sorted[j].PageIndex
		}
		return sorted[i].ID < sorted[j].ID
	})
	out := Set{DocumentID: s.DocumentID, Annotations: sorted}
	b, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal annotation set: %w", err)
	}
	return b, nil
}

// UnmarshalSet parses a persisted annotation set and validates every
// record. Invalid records are rejected as a whole: the store is our own
// format, so a malformed entry means corruption, not foreign input.
func UnmarshalSet(data []byte) (*Set, error) {
	var s Set
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse annotation set: %w", err)
	}
	for _, a := range s.Annotations {
		if err := a.Validate(); err != nil {
			return nil, fmt.Errorf("annotation set %s: %w", s.DocumentID, err)
		}
	}
	return &s, nil
}

// ByPage groups the set's annotations by page index.
func (s *Set) ByPage() map[int][]*Annotation {
	pages := make(map[int][]*Annotation)
	for _, a := range s.Annotations {
		pages[a.PageIndex] = append(pages[a.PageIndex], a)
	}
	return pages
}

// Find returns the annotation with the given id, or nil.
func (s *Set) Find(id string) *Annotation {
	for _, a := range s.Annotations {
		if a.ID == id {
			return a
		}
	}
	return nil
}
