// Package writer encodes canonical annotations into the engine's native
// object graph, one encoder per logical kind.
//
// Each encoder performs exactly one coordinate conversion at the
// boundary. The native rect convention differs per kind and is
// documented on each encoder:
//
//	highlight   rect from flipped quad bounds, top-left anchor
//	redact      standard flipped rect, top-left anchor
//	shape       standard flipped rect; arrow endpoints are the
//	            exception: PDF space, no flip, start before end
//	draw        standard flipped rect, ink points flipped per point
//	formField   standard flipped rect
//	disguised   standard flipped rect (FreeText carrier)
//
// Encoders are idempotent only if the caller first resolves an existing
// NativeRef; the writer itself never deduplicates. That is the sync
// engine's job.
package writer

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// Writer encodes annotations into one open document session.
type Writer struct {
	doc  engine.Document
	caps engine.CapSet
}

// New creates a writer bound to the document. The capability set is
// read once here; encoders never re-probe.
func New(doc engine.Document) *Writer {
	return &Writer{doc: doc, caps: doc.Caps()}
}

// Add dispatches to the kind's encoder, creates the native object, and
// stores the resulting handle into the annotation's NativeRef.
func (w *Writer) Add(a *annot.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	page, pageSize, err := w.loadPage(a.PageIndex)
	if err != nil {
		return err
	}
	return w.addToPage(page, pageSize, a)
}

func (w *Writer) addToPage(page engine.Page, pageSize [2]float64, a *annot.Annotation) error {
	var (
		na  engine.Annotation
		err error
	)
	switch a.Kind {
	case annot.KindHighlight:
		na, err = w.addHighlight(page, pageSize, a)
	case annot.KindRedact:
		na, err = w.addRedaction(page, pageSize, a)
	case annot.KindFormField:
		na, err = w.addFormField(page, pageSize, a)
	case annot.KindDraw:
		na, err = w.addDraw(page, pageSize, a)
	case annot.KindShape:
		na, err = w.addShape(page, pageSize, a)
	case annot.KindStamp, annot.KindImage, annot.KindCallout, annot.KindText:
		na, err = w.addDisguised(page, pageSize, a)
	default:
		return fmt.Errorf("no encoder for kind %q", a.Kind)
	}
	if err != nil {
		return fmt.Errorf("write %s annotation %s: %w", a.Kind, a.ID, err)
	}
	a.NativeRef = na
	return nil
}

// AddToPage writes the annotation through an already-loaded page,
// avoiding a reload that would detach sibling handles mid-batch.
func (w *Writer) AddToPage(page engine.Page, a *annot.Annotation) error {
	if err := a.Validate(); err != nil {
		return err
	}
	pageSize, err := sizeOf(page)
	if err != nil {
		return err
	}
	return w.addToPage(page, pageSize, a)
}

func (w *Writer) loadPage(index int) (engine.Page, [2]float64, error) {
	page, err := w.doc.LoadPage(index)
	if err != nil {
		return nil, [2]float64{}, fmt.Errorf("load page %d: %w", index, err)
	}
	size, err := sizeOf(page)
	if err != nil {
		return nil, [2]float64{}, err
	}
	return page, size, nil
}

func sizeOf(page engine.Page) ([2]float64, error) {
	b, err := page.Bounds()
	if err != nil {
		return [2]float64{}, fmt.Errorf("page %d bounds: %w", page.Index(), err)
	}
	return [2]float64{b[2] - b[0], b[3] - b[1]}, nil
}

// setCommon writes the properties every kind shares: the stable id, the
// annotation's own rotation, color, border width, and opacity. Opacity
// goes through the dedicated setter when the capability exists and is
// always mirrored into the raw CA entry, because either path may be a
// no-op on a given engine build.
func (w *Writer) setCommon(na engine.Annotation, a *annot.Annotation) error {
	obj := na.Object()
	if err := obj.Put(annot.DictAnnotationID, engine.String(a.ID)); err != nil {
		return fmt.Errorf("stamp annotation id: %w", err)
	}
	if a.Rotation != 0 {
		if err := obj.Put(annot.DictAnnotationRotate, engine.Int(int64(a.Rotation))); err != nil {
			return fmt.Errorf("stamp rotation: %w", err)
		}
	}
	if a.Color != nil {
		if err := na.SetColor([]float64{a.Color.R, a.Color.G, a.Color.B}); err != nil {
			return fmt.Errorf("set color: %w", err)
		}
	}
	if a.BorderWidth > 0 {
		if err := na.SetBorderWidth(a.BorderWidth); err != nil {
			return fmt.Errorf("set border width: %w", err)
		}
	}
	if a.Opacity > 0 {
		w.setOpacity(na, a.Opacity)
	}
	return nil
}

// setOpacity applies opacity through every available path. A missing
// setter is a partial capability, silently skipped.
func (w *Writer) setOpacity(na engine.Annotation, v float64) {
	if w.caps.Has(engine.CapSetOpacity) {
		_ = na.SetOpacity(v)
	}
	_ = na.Object().Put("CA", engine.Real(v))
}

// writeMarker sets a round-trip detection marker, attempting the name
// representation first and falling back to a string when the name write
// did not stick. Some object-write paths accept only one of the two.
func (w *Writer) writeMarker(obj engine.Dict, key string) {
	if w.caps.Has(engine.CapDictNameBool) {
		if err := obj.Put(key, engine.Name("true")); err == nil {
			if v, ok := obj.Get(key); ok {
				if b, ok := v.Flag(); ok && b {
					return
				}
			}
		}
	}
	_ = obj.Put(key, engine.String("true"))
}

// nativeRect converts the annotation's canonical PDF-space rect to the
// engine's display-space convention.
func nativeRect(a *annot.Annotation, pageHeight float64) geom.Rect {
	return geom.ToNativeRect(a.Rect(), pageHeight)
}
