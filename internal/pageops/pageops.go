// Package pageops implements page-level document edits: rotation,
// resize, reorder, insert, delete. Geometry changes delegate to the
// coordinate transforms; the annotation store is rewritten in bulk for
// every annotation on an affected page.
package pageops

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// RotatePage adds deltaDegrees to the page's current rotation, writes
// the normalized value back, and remaps every annotation on the page by
// the relative rotation actually applied (new minus old, not the
// absolute value). The format only supports right angles; arbitrary
// deltas round to the nearest 90.
func RotatePage(doc engine.Document, annotations []*annot.Annotation, pageIndex, deltaDegrees int) error {
	page, err := doc.LoadPage(pageIndex)
	if err != nil {
		return fmt.Errorf("load page %d: %w", pageIndex, err)
	}
	bounds, err := page.Bounds()
	if err != nil {
		return fmt.Errorf("page %d bounds: %w", pageIndex, err)
	}
	pageWidth := bounds[2] - bounds[0]
	pageHeight := bounds[3] - bounds[1]

	// Absent or unreadable rotation entries default to 0.
	oldRotation := geom.NormalizeDegrees(page.Rotation())
	newRotation := geom.NormalizeDegrees(oldRotation + deltaDegrees)
	if err := page.SetRotation(newRotation); err != nil {
		return fmt.Errorf("write page %d rotation: %w", pageIndex, err)
	}

	relative := geom.NormalizeDegrees(newRotation - oldRotation)
	if relative == 0 {
		return nil
	}
	for _, a := range annotations {
		if a.PageIndex != pageIndex {
			continue
		}
		rotateAnnotation(a, pageWidth, pageHeight, relative)
		// The native object is now misplaced; the next sync rewrites it
		// through the fingerprint index.
		a.NativeRef = nil
	}
	return nil
}

// rotateAnnotation remaps one annotation's canonical geometry: the rect
// (width/height swap on 90 and 270), quads, freehand paths, arrow
// endpoints and callout anchors.
func rotateAnnotation(a *annot.Annotation, pageWidth, pageHeight float64, relative int) {
	a.SetRect(geom.RotateRect(a.Rect(), pageWidth, pageHeight, relative))

	if a.Highlight != nil {
		for i, q := range a.Highlight.Quads {
			a.Highlight.Quads[i] = geom.RotateQuad(q, pageWidth, pageHeight, relative)
		}
		for i, p := range a.Highlight.Path {
			a.Highlight.Path[i] = geom.RotatePoint(p, pageWidth, pageHeight, relative)
		}
	}
	if a.Draw != nil {
		for i, p := range a.Draw.Path {
			a.Draw.Path[i] = geom.RotatePoint(p, pageWidth, pageHeight, relative)
		}
	}
	if a.Shape != nil {
		if a.Shape.Start != nil {
			p := geom.RotatePoint(*a.Shape.Start, pageWidth, pageHeight, relative)
			a.Shape.Start = &p
		}
		if a.Shape.End != nil {
			p := geom.RotatePoint(*a.Shape.End, pageWidth, pageHeight, relative)
			a.Shape.End = &p
		}
	}
	if a.Callout != nil && a.Callout.Anchor != nil {
		p := geom.RotatePoint(*a.Callout.Anchor, pageWidth, pageHeight, relative)
		a.Callout.Anchor = &p
	}
}

// ResizePage rewrites the page media box. Annotation coordinates are
// left untouched: a resized page does not rescale existing marks. That
// is a documented limitation, not a bug.
func ResizePage(doc engine.Document, pageIndex int, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("page size must be positive, got %gx%g", width, height)
	}
	page, err := doc.LoadPage(pageIndex)
	if err != nil {
		return fmt.Errorf("load page %d: %w", pageIndex, err)
	}
	if err := page.SetBounds([4]float64{0, 0, width, height}); err != nil {
		return fmt.Errorf("resize page %d: %w", pageIndex, err)
	}
	return nil
}

// ReorderPages moves a page and rewrites every annotation's page index
// to follow its page. Handles on moved pages are dropped; the next sync
// re-resolves them.
func ReorderPages(doc engine.Document, annotations []*annot.Annotation, from, to int) error {
	if from == to {
		return nil
	}
	if err := doc.MovePage(from, to); err != nil {
		return fmt.Errorf("move page %d to %d: %w", from, to, err)
	}
	for _, a := range annotations {
		switch {
		case a.PageIndex == from:
			a.PageIndex = to
			a.NativeRef = nil
		case from < to && a.PageIndex > from && a.PageIndex <= to:
			a.PageIndex--
			a.NativeRef = nil
		case from > to && a.PageIndex >= to && a.PageIndex < from:
			a.PageIndex++
			a.NativeRef = nil
		}
	}
	return nil
}

// InsertPage inserts a blank page and shifts annotation page indices at
// or after the insertion point.
func InsertPage(doc engine.Document, annotations []*annot.Annotation, index int, width, height float64) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("page size must be positive, got %gx%g", width, height)
	}
	if err := doc.InsertPage(index, width, height); err != nil {
		return fmt.Errorf("insert page at %d: %w", index, err)
	}
	for _, a := range annotations {
		if a.PageIndex >= index {
			a.PageIndex++
		}
	}
	return nil
}

// DeletePage removes a page. Annotations on the deleted page are
// dropped from the returned slice; later pages shift down.
func DeletePage(doc engine.Document, annotations []*annot.Annotation, index int) ([]*annot.Annotation, error) {
	if err := doc.DeletePage(index); err != nil {
		return annotations, fmt.Errorf("delete page %d: %w", index, err)
	}
	kept := annotations[:0]
	for _, a := range annotations {
		if a.PageIndex == index {
			continue
		}
		if a.PageIndex > index {
			a.PageIndex--
			a.NativeRef = nil
		}
		kept = append(kept, a)
	}
	return kept, nil
}
