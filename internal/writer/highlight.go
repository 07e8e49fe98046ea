package writer

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

const defaultHighlightOpacity = 0.4

// addHighlight encodes a highlight. Text-mode highlights become native
// Highlight annotations carrying flipped quads; the native rect is the
// display-space bounding box of those quads (top-left anchor). Overlay
// highlights are freehand strokes and become Ink annotations with a
// multiply blend mode, the only representation external viewers blend
// correctly.
func (w *Writer) addHighlight(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	h := a.Highlight
	if h.Mode == annot.HighlightOverlay {
		return w.addOverlayHighlight(page, pageSize, a)
	}
	if len(h.Quads) == 0 {
		return nil, fmt.Errorf("text highlight requires quads")
	}

	na, err := page.CreateAnnotation(engine.SubtypeHighlight)
	if err != nil {
		return nil, err
	}

	pageHeight := pageSize[1]
	flipped := make([]geom.Quad, len(h.Quads))
	for i, q := range h.Quads {
		flipped[i] = geom.FlipQuadY(q, pageHeight)
	}
	if err := na.SetQuadPoints(geom.FloatsFromQuads(flipped)); err != nil {
		return nil, fmt.Errorf("set quad points: %w", err)
	}
	bounds, ok := geom.BoundsOfQuads(flipped)
	if !ok {
		return nil, fmt.Errorf("degenerate quad bounds")
	}
	if err := na.SetRect(bounds); err != nil {
		return nil, fmt.Errorf("set rect: %w", err)
	}

	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	_ = na.Object().Put("BM", engine.Name("Multiply"))
	w.setOpacity(na, highlightOpacity(h, a))
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return na, nil
}

// addOverlayHighlight writes a freehand highlight as an ink stroke.
// Points flip per coordinate; the blend mode entry is what lets the
// loader tell this apart from a plain drawing later.
func (w *Writer) addOverlayHighlight(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	h := a.Highlight
	if len(h.Path) < 2 {
		return nil, fmt.Errorf("overlay highlight requires a path of at least 2 points")
	}

	na, err := page.CreateAnnotation(engine.SubtypeInk)
	if err != nil {
		return nil, err
	}

	pageHeight := pageSize[1]
	stroke := make([]float64, 0, len(h.Path)*2)
	for _, p := range h.Path {
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
	if err := na.Object().Put("BM", engine.Name("Multiply")); err != nil {
		return nil, fmt.Errorf("set blend mode: %w", err)
	}
	// Both the setter and the raw entry, explicitly: one or the other
	// may be a no-op on a given engine build.
	w.setOpacity(na, highlightOpacity(h, a))
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return na, nil
}

func highlightOpacity(h *annot.HighlightData, a *annot.Annotation) float64 {
	switch {
	case h.Opacity > 0:
		return h.Opacity
	case a.Opacity > 0:
		return a.Opacity
	default:
		return defaultHighlightOpacity
	}
}
