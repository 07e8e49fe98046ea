// Package syncer orchestrates create/update/skip decisions across a
// full annotation set and drives redaction application and document
// save. A single annotation's failure is logged and skipped so a batch
// always reaches save; a failed redaction pass is not, because a
// silently failed redaction is a data leak, not a cosmetic defect.
package syncer

import (
	"errors"
	"fmt"
	"log"
	"sort"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/writer"
)

// matchTolerance is the geometry slack used when adopting an existing
// native annotation in place of a stale handle.
const matchTolerance = 2.0

// Syncer pushes a canonical annotation set into one document session.
type Syncer struct {
	doc engine.Document
	w   *writer.Writer
}

// New creates a syncer for the document.
func New(doc engine.Document) *Syncer {
	return &Syncer{doc: doc, w: writer.New(doc)}
}

// SyncAll processes every annotation, grouped by page, then batch-applies
// redaction passes once per affected page. Calling it twice on an
// unchanged set creates no additional native annotations.
func (s *Syncer) SyncAll(annotations []*annot.Annotation) error {
	pages := map[int][]*annot.Annotation{}
	for _, a := range annotations {
		pages[a.PageIndex] = append(pages[a.PageIndex], a)
	}
	indices := make([]int, 0, len(pages))
	for i := range pages {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, pageIdx := range indices {
		if err := s.syncPage(pageIdx, pages[pageIdx]); err != nil {
			return err
		}
	}
	return nil
}

// Save serializes the document to a byte buffer.
func (s *Syncer) Save() ([]byte, error) {
	data, err := s.doc.Save()
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	return data, nil
}

func (s *Syncer) syncPage(pageIdx int, annotations []*annot.Annotation) error {
	page, err := s.doc.LoadPage(pageIdx)
	if err != nil {
		return fmt.Errorf("load page %d: %w", pageIdx, err)
	}
	bounds, err := page.Bounds()
	if err != nil {
		return fmt.Errorf("page %d bounds: %w", pageIdx, err)
	}
	pageHeight := bounds[3] - bounds[1]

	// Lazily built: most batches with fresh handles never need it.
	var idx *nativeIndex

	hasRedactions := false
	for _, a := range annotations {
		if a.Kind == annot.KindRedact {
			hasRedactions = true
		}
		if err := s.syncOne(page, pageHeight, a, &idx); err != nil {
			log.Printf("syncer: page %d annotation %s (%s) skipped: %v", pageIdx, a.ID, a.Kind, err)
		}
	}

	if hasRedactions {
		// Once per page, not once per mark.
		if _, err := s.w.ApplyPageRedactions(pageIdx); err != nil {
			return fmt.Errorf("apply redactions: %w", err)
		}
	}
	return nil
}

func (s *Syncer) syncOne(page engine.Page, pageHeight float64, a *annot.Annotation, idx **nativeIndex) error {
	if a.Kind == annot.KindFormField {
		return s.syncFormField(page, pageHeight, a, idx)
	}

	if na, ok := a.NativeRef.(engine.Annotation); ok {
		err := s.updateInPlace(na, pageHeight, a)
		if err == nil {
			return nil
		}
		if !errors.Is(err, engine.ErrDetached) {
			return err
		}
		// The handle merely went stale across a reload. Recreating
		// immediately would duplicate the mark; search the page's
		// current natives for a geometry match first.
		a.NativeRef = nil
	}

	if na := s.lookup(page, pageHeight, a, idx); na != nil {
		a.NativeRef = na
		if err := s.updateInPlace(na, pageHeight, a); err != nil {
			return err
		}
		return nil
	}

	return s.w.AddToPage(page, a)
}

func (s *Syncer) syncFormField(page engine.Page, pageHeight float64, a *annot.Annotation, idx **nativeIndex) error {
	if na, ok := a.NativeRef.(engine.Annotation); ok {
		err := s.w.UpdateFormField(na, pageHeight, a)
		if err == nil {
			return nil
		}
		if !errors.Is(err, engine.ErrDetached) {
			return err
		}
		a.NativeRef = nil
	}
	if na := s.lookup(page, pageHeight, a, idx); na != nil {
		a.NativeRef = na
		return s.w.UpdateFormField(na, pageHeight, a)
	}
	return s.w.AddToPage(page, a)
}

// lookup resolves an annotation against the page's current natives,
// building the per-page index on first use. Matching prefers the stable
// id stamped on the object, then falls back to a kind+geometry
// fingerprint within tolerance. This also catches annotations that
// exist natively from a previous session but were never linked back to
// the model.
func (s *Syncer) lookup(page engine.Page, pageHeight float64, a *annot.Annotation, idx **nativeIndex) engine.Annotation {
	if *idx == nil {
		*idx = buildIndex(page)
	}
	return (*idx).find(a, pageHeight)
}

// updateInPlace rewrites an existing native annotation's mutable
// properties from the canonical model.
func (s *Syncer) updateInPlace(na engine.Annotation, pageHeight float64, a *annot.Annotation) error {
	want := geom.ToNativeRect(a.Rect(), pageHeight)
	if err := na.SetRect(want); err != nil {
		return err
	}
	if a.Color != nil {
		if err := na.SetColor([]float64{a.Color.R, a.Color.G, a.Color.B}); err != nil {
			return err
		}
	}
	if err := na.Object().Put(annot.DictAnnotationID, engine.String(a.ID)); err != nil {
		return err
	}

	switch a.Kind {
	case annot.KindHighlight:
		if a.Highlight.Mode == annot.HighlightText {
			flipped := make([]geom.Quad, len(a.Highlight.Quads))
			for i, q := range a.Highlight.Quads {
				flipped[i] = geom.FlipQuadY(q, pageHeight)
			}
			if err := na.SetQuadPoints(geom.FloatsFromQuads(flipped)); err != nil {
				return err
			}
		} else {
			if err := na.SetInkList([][]float64{flatten(a.Highlight.Path, pageHeight)}); err != nil {
				return err
			}
		}
	case annot.KindDraw:
		if err := na.SetInkList([][]float64{flatten(a.Draw.Path, pageHeight)}); err != nil {
			return err
		}
	case annot.KindShape:
		if a.Shape.Type == annot.ShapeArrow {
			if err := na.SetLine(*a.Shape.Start, *a.Shape.End); err != nil {
				return err
			}
		}
	case annot.KindStamp, annot.KindImage, annot.KindCallout, annot.KindText:
		payload, err := annot.EncodeEnvelope(a)
		if err != nil {
			return err
		}
		if err := na.SetContents(payload); err != nil {
			return err
		}
	}
	return na.Update()
}

func flatten(path []geom.Point, pageHeight float64) []float64 {
	out := make([]float64, 0, len(path)*2)
	for _, p := range path {
		out = append(out, p.X, geom.ToNativeY(p.Y, pageHeight))
	}
	return out
}
