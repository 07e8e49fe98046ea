// Package geom implements the coordinate transforms shared by the
// annotation loader, writer and page operations.
//
// Two coordinate systems are in play. The canonical model stores PDF
// space: origin at the page's bottom-left corner, Y increasing upward.
// The engine's native rect APIs use display space: origin at the
// top-left corner, Y increasing downward. Conversion between the two is
// a single self-inverse flip against the page height; every encoder and
// decoder performs exactly one such flip at its boundary.
package geom

import "math"

// Point is a coordinate pair in whichever space the caller is working in.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Rect is an axis-aligned rectangle anchored at its lower-left corner in
// PDF space, or at its upper-left corner in display space. Width and
// Height are always non-negative for a normalized rect.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Quad is one quadrilateral of a text-markup region: four corner pairs,
// eight floats, in the order x1 y1 x2 y2 x3 y3 x4 y4.
type Quad [8]float64

// ToNativeY converts a PDF-space Y coordinate to display space. The
// function is self-inverse: ToNativeY(ToNativeY(y, h), h) == y.
func ToNativeY(pdfY, pageHeight float64) float64 {
	return pageHeight - pdfY
}

// ToPDFY converts a display-space Y coordinate to PDF space. Identical
// to ToNativeY; both names exist so call sites read in the direction the
// data flows.
func ToPDFY(nativeY, pageHeight float64) float64 {
	return pageHeight - nativeY
}

// ToNativeRect converts a PDF-space rect (bottom-left anchor) to a
// display-space rect (top-left anchor) on a page of the given height.
func ToNativeRect(r Rect, pageHeight float64) Rect {
	return Rect{
		X:      r.X,
		Y:      pageHeight - r.Y - r.Height,
		Width:  r.Width,
		Height: r.Height,
	}
}

// ToPDFRect converts a display-space rect back to PDF space. Self-inverse
// with ToNativeRect.
func ToPDFRect(r Rect, pageHeight float64) Rect {
	return ToNativeRect(r, pageHeight)
}

// Normalized returns r with negative extents folded back so that
// Width >= 0 and Height >= 0, moving the anchor as needed. A rect whose
// bottom edge sits above its top edge is corrected by swapping, never
// dropped.
func (r Rect) Normalized() Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// MaxX returns the rect's right edge.
func (r Rect) MaxX() float64 { return r.X + r.Width }

// MaxY returns the rect's far edge: top in PDF space, bottom in display
// space.
func (r Rect) MaxY() float64 { return r.Y + r.Height }

// IsDegenerate reports whether the rect has no usable area.
func (r Rect) IsDegenerate() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Clamp restricts r to the page rectangle (0, 0, pageWidth, pageHeight).
// Content outside page bounds is ignored by redaction passes, so a
// redact rect must be clamped before it reaches the engine.
func (r Rect) Clamp(pageWidth, pageHeight float64) Rect {
	r = r.Normalized()
	x0 := math.Max(r.X, 0)
	y0 := math.Max(r.Y, 0)
	x1 := math.Min(r.MaxX(), pageWidth)
	y1 := math.Min(r.MaxY(), pageHeight)
	if x1 < x0 {
		x1 = x0
	}
	if y1 < y0 {
		y1 = y0
	}
	return Rect{X: x0, Y: y0, Width: x1 - x0, Height: y1 - y0}
}

// ApproxEqual reports whether two rects match within tol on every
// component. Used by the sync engine's geometry fingerprint matching.
func (r Rect) ApproxEqual(o Rect, tol float64) bool {
	return math.Abs(r.X-o.X) <= tol &&
		math.Abs(r.Y-o.Y) <= tol &&
		math.Abs(r.Width-o.Width) <= tol &&
		math.Abs(r.Height-o.Height) <= tol
}

// BoundsOfQuads returns the bounding box over every corner of the given
// quads, in the same space the quads are expressed in. ok is false when
// the input is empty or the resulting box is degenerate.
func BoundsOfQuads(quads []Quad) (Rect, bool) {
	if len(quads) == 0 {
		return Rect{}, false
	}
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, q := range quads {
		for i := 0; i < 8; i += 2 {
			minX = math.Min(minX, q[i])
			maxX = math.Max(maxX, q[i])
			minY = math.Min(minY, q[i+1])
			maxY = math.Max(maxY, q[i+1])
		}
	}
	if minX >= maxX || minY >= maxY {
		return Rect{}, false
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// QuadsFromFloats reslices a flat coordinate array into quads. Arrays
// that are not a multiple of eight are rejected as malformed; the caller
// discards the annotation, not the page.
func QuadsFromFloats(coords []float64) ([]Quad, bool) {
	if len(coords) == 0 || len(coords)%8 != 0 {
		return nil, false
	}
	quads := make([]Quad, 0, len(coords)/8)
	for i := 0; i < len(coords); i += 8 {
		var q Quad
		copy(q[:], coords[i:i+8])
		quads = append(quads, q)
	}
	return quads, true
}

// FloatsFromQuads flattens quads back into the engine's 8×n array form.
func FloatsFromQuads(quads []Quad) []float64 {
	out := make([]float64, 0, len(quads)*8)
	for _, q := range quads {
		out = append(out, q[:]...)
	}
	return out
}

// FlipQuadY converts a quad between PDF and display space on a page of
// the given height. Self-inverse, corner by corner.
func FlipQuadY(q Quad, pageHeight float64) Quad {
	for i := 1; i < 8; i += 2 {
		q[i] = pageHeight - q[i]
	}
	return q
}

// Finite reports whether every component of p is a finite number.
func (p Point) Finite() bool {
	return !math.IsNaN(p.X) && !math.IsInf(p.X, 0) &&
		!math.IsNaN(p.Y) && !math.IsInf(p.Y, 0)
}
