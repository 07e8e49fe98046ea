package writer

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// addShape encodes rectangle, circle and arrow shapes. Rectangles and
// circles use the standard flipped rect (top-left anchor). Arrow
// endpoints are the documented exception to the flip rule: the native
// line API takes PDF-space points, start before end, and reads them
// back in the same order.
func (w *Writer) addShape(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	s := a.Shape
	if s.Type == annot.ShapeArrow {
		return w.addArrow(page, a)
	}

	subtype := engine.SubtypeSquare
	if s.Type == annot.ShapeCircle {
		subtype = engine.SubtypeCircle
	}
	na, err := page.CreateAnnotation(subtype)
	if err != nil {
		return nil, err
	}
	if err := na.SetRect(nativeRect(a, pageSize[1])); err != nil {
		return nil, fmt.Errorf("set rect: %w", err)
	}
	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	if s.StrokeWidth > 0 {
		if err := na.SetBorderWidth(s.StrokeWidth); err != nil {
			return nil, fmt.Errorf("set stroke width: %w", err)
		}
	}
	obj := na.Object()
	if s.FillColor != nil {
		fill := engine.NumberArray([]float64{s.FillColor.R, s.FillColor.G, s.FillColor.B})
		if err := obj.Put("IC", fill); err != nil {
			return nil, fmt.Errorf("set fill color: %w", err)
		}
		if s.FillOpacity > 0 {
			if err := obj.Put("ca", engine.Real(s.FillOpacity)); err != nil {
				return nil, fmt.Errorf("set fill opacity: %w", err)
			}
		}
	}
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return na, nil
}

func (w *Writer) addArrow(page engine.Page, a *annot.Annotation) (engine.Annotation, error) {
	s := a.Shape
	if s.Start == nil || s.End == nil {
		return nil, fmt.Errorf("arrow requires both endpoints")
	}
	na, err := page.CreateAnnotation(engine.SubtypeLine)
	if err != nil {
		return nil, err
	}
	if err := na.SetLine(*s.Start, *s.End); err != nil {
		return nil, fmt.Errorf("set line endpoints: %w", err)
	}
	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	if s.StrokeWidth > 0 {
		if err := na.SetBorderWidth(s.StrokeWidth); err != nil {
			return nil, fmt.Errorf("set stroke width: %w", err)
		}
	}
	obj := na.Object()
	// Open arrow head on the end point.
	if err := obj.Put("LE", engine.Array(engine.Name("None"), engine.Name("OpenArrow"))); err != nil {
		return nil, fmt.Errorf("set line endings: %w", err)
	}
	if s.HeadSize > 0 {
		if err := obj.Put(annot.DictArrowHeadSize, engine.Real(s.HeadSize)); err != nil {
			return nil, fmt.Errorf("set arrow head size: %w", err)
		}
	}
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return na, nil
}

// addDraw encodes a freehand drawing as an Ink annotation. Points flip
// per coordinate; no blend mode entry is written, which is what keeps a
// drawing distinct from an overlay highlight at load time.
func (w *Writer) addDraw(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	d := a.Draw
	na, err := page.CreateAnnotation(engine.SubtypeInk)
	if err != nil {
		return nil, err
	}
	pageHeight := pageSize[1]
	stroke := make([]float64, 0, len(d.Path)*2)
	for _, p := range d.Path {
		stroke = append(stroke, p.X, geom.ToNativeY(p.Y, pageHeight))
	}
	if err := na.SetInkList([][]float64{stroke}); err != nil {
		return nil, fmt.Errorf("set ink list: %w", err)
	}
	if err := na.SetRect(nativeRect(a, pageHeight)); err != nil {
		return nil, fmt.Errorf("set rect: %w", err)
	}
	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	if d.StrokeWidth > 0 {
		if err := na.SetBorderWidth(d.StrokeWidth); err != nil {
			return nil, fmt.Errorf("set stroke width: %w", err)
		}
	}
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return na, nil
}
