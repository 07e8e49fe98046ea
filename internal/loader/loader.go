// Package loader decodes a document's native annotation object graph
// into the canonical model. Loading is a total function: a malformed or
// unrecognized native annotation is logged and skipped, never fatal to
// the page.
package loader

import (
	"fmt"
	"log"
	"math"

	"github.com/google/uuid"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// Artifact lines left behind by previously failed writes cluster near
// the origin with a small extent. Anything inside that footprint is
// skipped on load.
const (
	artifactMaxCoord  = 150.0
	artifactMaxExtent = 150.0
)

// pageBoundsSlack tolerates annotations slightly outside the media box
// before the loader treats their coordinates as garbage.
const pageBoundsSlack = 72.0

// LoadAll decodes every page of the document.
func LoadAll(doc engine.Document) []*annot.Annotation {
	var out []*annot.Annotation
	for i := 0; i < doc.PageCount(); i++ {
		out = append(out, LoadPageAnnotations(doc, i)...)
	}
	return out
}

// LoadPageAnnotations decodes one page's native annotations. Never
// returns an error: per-annotation failures are logged and the
// annotation skipped.
func LoadPageAnnotations(doc engine.Document, pageIndex int) []*annot.Annotation {
	page, err := doc.LoadPage(pageIndex)
	if err != nil {
		log.Printf("loader: page %d: %v", pageIndex, err)
		return nil
	}
	bounds, err := page.Bounds()
	if err != nil {
		log.Printf("loader: page %d bounds: %v", pageIndex, err)
		return nil
	}
	pageWidth := bounds[2] - bounds[0]
	pageHeight := bounds[3] - bounds[1]

	var out []*annot.Annotation

	// Handles are freshly allocated per enumeration, so interface
	// identity cannot link the two walks; the stamped id can.
	seen := map[string]bool{}

	natives, err := page.Annotations()
	if err != nil {
		log.Printf("loader: page %d annotations: %v", pageIndex, err)
		natives = nil
	}
	for _, na := range natives {
		if id := stampedID(na); id != "" {
			seen[id] = true
		}
		a, err := decode(na, pageIndex, pageWidth, pageHeight)
		if err != nil {
			log.Printf("loader: page %d %s annotation skipped: %v", pageIndex, na.Subtype(), err)
			continue
		}
		if a != nil {
			out = append(out, a)
		}
	}

	// The standard enumeration is known to omit some widgets; walk the
	// raw annotation-reference array for the rest.
	refs, err := page.AnnotationRefs()
	if err != nil {
		log.Printf("loader: page %d annotation refs: %v", pageIndex, err)
		return out
	}
	for _, na := range refs {
		if na.Subtype() != engine.SubtypeWidget {
			continue
		}
		if id := stampedID(na); id != "" && seen[id] {
			continue
		}
		a, err := decodeWidget(na, pageIndex, pageHeight)
		if err != nil {
			log.Printf("loader: page %d widget skipped: %v", pageIndex, err)
			continue
		}
		out = append(out, a)
	}
	return out
}

// decode dispatches on the native subtype. A nil, nil return means the
// subtype carries no user mark (popup helpers and the like) and is
// intentionally ignored.
func decode(na engine.Annotation, pageIndex int, pageWidth, pageHeight float64) (*annot.Annotation, error) {
	switch na.Subtype() {
	case engine.SubtypeHighlight:
		return decodeHighlight(na, pageIndex, pageHeight)
	case engine.SubtypeRedact:
		return decodeRedact(na, pageIndex, pageHeight)
	case engine.SubtypeWidget:
		return decodeWidget(na, pageIndex, pageHeight)
	case engine.SubtypeLine:
		return decodeLine(na, pageIndex, pageWidth, pageHeight)
	case engine.SubtypeSquare, engine.SubtypeCircle:
		return decodeSquareCircle(na, pageIndex, pageHeight)
	case engine.SubtypeInk:
		return decodeInk(na, pageIndex, pageHeight)
	case engine.SubtypeFreeText, engine.SubtypeStamp, engine.SubtypeText:
		return decodeDisguised(na, pageIndex, pageHeight)
	default:
		return nil, fmt.Errorf("unsupported native subtype %q", na.Subtype())
	}
}

// common fills the fields every kind shares: id, geometry, color,
// opacity, native back-reference.
func common(na engine.Annotation, kind annot.Kind, pageIndex int, rect geom.Rect) *annot.Annotation {
	a := &annot.Annotation{
		ID:        stableID(na),
		Kind:      kind,
		PageIndex: pageIndex,
		NativeRef: na,
	}
	a.SetRect(rect)
	if rgb, ok := na.Color(); ok && len(rgb) >= 3 {
		a.Color = &annot.Color{R: rgb[0], G: rgb[1], B: rgb[2]}
	}
	if op, ok := na.Opacity(); ok {
		a.Opacity = op
	}
	if v, ok := na.Object().Get(annot.DictAnnotationRotate); ok {
		if deg, ok := v.Integer(); ok {
			a.Rotation = geom.NormalizeDegrees(int(deg))
		}
	}
	return a
}

// stampedID recovers the id the writer stamped onto the object, or ""
// when the annotation never passed through a sync.
func stampedID(na engine.Annotation) string {
	if v, ok := na.Object().Get(annot.DictAnnotationID); ok {
		if s, ok := v.Text(); ok {
			return s
		}
	}
	return ""
}

// stableID is stampedID with a fresh-id fallback, so the same logical
// mark keeps its id across a load-edit-save-reload cycle and a foreign
// annotation gets one assigned once.
func stableID(na engine.Annotation) string {
	if id := stampedID(na); id != "" {
		return id
	}
	return uuid.NewString()
}

func pdfRect(na engine.Annotation, pageHeight float64) (geom.Rect, error) {
	r, err := na.Rect()
	if err != nil {
		return geom.Rect{}, fmt.Errorf("read native rect: %w", err)
	}
	return geom.ToPDFRect(r.Normalized(), pageHeight), nil
}

func decodeHighlight(na engine.Annotation, pageIndex int, pageHeight float64) (*annot.Annotation, error) {
	coords, err := na.QuadPoints()
	if err != nil {
		return nil, fmt.Errorf("read quad points: %w", err)
	}
	quads, ok := geom.QuadsFromFloats(coords)
	if ok {
		for i := range quads {
			quads[i] = geom.FlipQuadY(quads[i], pageHeight)
		}
	}
	var rect geom.Rect
	if ok {
		bounds, valid := geom.BoundsOfQuads(quads)
		if !valid {
			return nil, fmt.Errorf("degenerate quad bounds")
		}
		rect = bounds
	} else {
		// Quads absent or malformed: fall back to the native rect.
		r, err := pdfRect(na, pageHeight)
		if err != nil {
			return nil, err
		}
		if r.IsDegenerate() {
			return nil, fmt.Errorf("degenerate highlight bounds")
		}
		rect = r
	}
	a := common(na, annot.KindHighlight, pageIndex, rect)
	a.Highlight = &annot.HighlightData{Mode: annot.HighlightText, Quads: quads}
	if a.Opacity > 0 {
		a.Highlight.Opacity = a.Opacity
	}
	return a, nil
}

func decodeRedact(na engine.Annotation, pageIndex int, pageHeight float64) (*annot.Annotation, error) {
	rect, err := pdfRect(na, pageHeight)
	if err != nil {
		return nil, err
	}
	return common(na, annot.KindRedact, pageIndex, rect), nil
}

func decodeLine(na engine.Annotation, pageIndex int, pageWidth, pageHeight float64) (*annot.Annotation, error) {
	start, end, err := na.Line()
	if err != nil {
		return nil, fmt.Errorf("read line endpoints: %w", err)
	}
	// Endpoints are PDF space per the engine contract; no flip, no
	// reorder.
	if !start.Finite() || !end.Finite() {
		return nil, fmt.Errorf("non-finite line endpoints")
	}
	if outOfPage(start, pageWidth, pageHeight) || outOfPage(end, pageWidth, pageHeight) {
		return nil, fmt.Errorf("line endpoints far outside page bounds")
	}
	if isArtifactLine(start, end) {
		return nil, fmt.Errorf("line matches failed-write artifact footprint")
	}
	rect := geom.Rect{
		X:      math.Min(start.X, end.X),
		Y:      math.Min(start.Y, end.Y),
		Width:  math.Abs(end.X - start.X),
		Height: math.Abs(end.Y - start.Y),
	}
	a := common(na, annot.KindShape, pageIndex, rect)
	s, e := start, end
	a.Shape = &annot.ShapeData{Type: annot.ShapeArrow, Start: &s, End: &e}
	if v, ok := na.Object().Get(annot.DictArrowHeadSize); ok {
		if f, ok := v.Number(); ok {
			a.Shape.HeadSize = f
		}
	}
	return a, nil
}

func outOfPage(p geom.Point, pageWidth, pageHeight float64) bool {
	return p.X < -pageBoundsSlack || p.X > pageWidth+pageBoundsSlack ||
		p.Y < -pageBoundsSlack || p.Y > pageHeight+pageBoundsSlack
}

// isArtifactLine matches the footprint of lines left behind by
// previously failed writes: both endpoints near the origin, extent
// under 150 units.
func isArtifactLine(start, end geom.Point) bool {
	nearOrigin := func(p geom.Point) bool {
		return p.X >= 0 && p.X < artifactMaxCoord && p.Y >= 0 && p.Y < artifactMaxCoord
	}
	extent := math.Max(math.Abs(end.X-start.X), math.Abs(end.Y-start.Y))
	return nearOrigin(start) && nearOrigin(end) && extent < artifactMaxExtent
}

func decodeSquareCircle(na engine.Annotation, pageIndex int, pageHeight float64) (*annot.Annotation, error) {
	rect, err := pdfRect(na, pageHeight)
	if err != nil {
		return nil, err
	}
	shapeType := annot.ShapeRectangle
	if na.Subtype() == engine.SubtypeCircle {
		shapeType = annot.ShapeCircle
	}
	a := common(na, annot.KindShape, pageIndex, rect)
	a.Shape = &annot.ShapeData{Type: shapeType}
	obj := na.Object()
	if v, ok := obj.Get("IC"); ok {
		if fill, ok := v.Floats(); ok && len(fill) >= 3 {
			a.Shape.FillColor = &annot.Color{R: fill[0], G: fill[1], B: fill[2]}
		}
	}
	if v, ok := obj.Get("ca"); ok {
		if f, ok := v.Number(); ok {
			a.Shape.FillOpacity = f
		}
	}
	return a, nil
}

func decodeInk(na engine.Annotation, pageIndex int, pageHeight float64) (*annot.Annotation, error) {
	strokes, err := na.InkList()
	if err != nil {
		return nil, fmt.Errorf("read ink list: %w", err)
	}
	var path []geom.Point
	for _, s := range strokes {
		if len(s)%2 != 0 {
			return nil, fmt.Errorf("odd-length ink stroke")
		}
		for i := 0; i < len(s); i += 2 {
			path = append(path, geom.Point{X: s[i], Y: geom.ToPDFY(s[i+1], pageHeight)})
		}
	}
	if len(path) < 2 {
		return nil, fmt.Errorf("ink path needs at least 2 points")
	}
	rect := boundsOfPath(path)

	// A multiply blend mode is the only signal distinguishing a
	// freehand highlight from a freehand drawing; both use the same
	// native primitive.
	if v, ok := na.Object().Get("BM"); ok {
		if bm, ok := v.Text(); ok && bm == "Multiply" {
			a := common(na, annot.KindHighlight, pageIndex, rect)
			a.Highlight = &annot.HighlightData{Mode: annot.HighlightOverlay, Path: path, Opacity: a.Opacity}
			return a, nil
		}
	}
	a := common(na, annot.KindDraw, pageIndex, rect)
	a.Draw = &annot.DrawData{Path: path}
	return a, nil
}

func boundsOfPath(path []geom.Point) geom.Rect {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range path {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
		minY = math.Min(minY, p.Y)
		maxY = math.Max(maxY, p.Y)
	}
	return geom.Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}

// decodeDisguised handles FreeText, Stamp and Text natives, which may
// carry an application-defined annotation smuggled in their contents
// field. Detection is dual: the marker entry first, then a JSON sniff of
// the contents, because the marker write can fail silently on some
// object-write paths.
func decodeDisguised(na engine.Annotation, pageIndex int, pageHeight float64) (*annot.Annotation, error) {
	rect, err := pdfRect(na, pageHeight)
	if err != nil {
		return nil, err
	}
	contents, err := na.Contents()
	if err != nil {
		return nil, fmt.Errorf("read contents: %w", err)
	}

	if hasMarker(na.Object()) {
		if env, ok := annot.SniffEnvelope(contents); ok {
			return applyDisguised(na, pageIndex, rect, env), nil
		}
		// Marker present but no parseable payload: fall through and
		// treat as a plain native annotation.
	} else if env, ok := annot.SniffEnvelope(contents); ok {
		return applyDisguised(na, pageIndex, rect, env), nil
	}

	a := common(na, annot.KindText, pageIndex, rect)
	a.Contents = contents
	return a, nil
}

// hasMarker checks the round-trip marker entries, accepting the three
// boolean representations observed in the wild.
func hasMarker(obj engine.Dict) bool {
	for _, key := range []string{annot.DictMarkerCustom, annot.DictMarkerStamp} {
		if v, ok := obj.Get(key); ok {
			if b, ok := v.Flag(); ok && b {
				return true
			}
		}
	}
	return false
}

func applyDisguised(na engine.Annotation, pageIndex int, rect geom.Rect, env *annot.Envelope) *annot.Annotation {
	a := common(na, env.Type, pageIndex, rect)
	annot.ApplyEnvelope(a, env)
	return a
}
