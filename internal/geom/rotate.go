package geom

// NormalizeDegrees folds an arbitrary rotation delta into [0, 360) and
// rounds to the nearest right angle. PDF page rotation only supports
// multiples of 90.
func NormalizeDegrees(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	// Round to the nearest multiple of 90.
	deg = ((deg + 45) / 90 * 90) % 360
	return deg
}

// RotatePoint rotates a PDF-space point by the given right angle within a
// page of the given pre-rotation dimensions.
func RotatePoint(p Point, pageWidth, pageHeight float64, degrees int) Point {
	switch NormalizeDegrees(degrees) {
	case 90:
		return Point{X: p.Y, Y: pageWidth - p.X}
	case 180:
		return Point{X: pageWidth - p.X, Y: pageHeight - p.Y}
	case 270:
		return Point{X: pageHeight - p.Y, Y: p.X}
	default:
		return p
	}
}

// RotateRect rotates a PDF-space rect by the given right angle within a
// page of the given pre-rotation dimensions. Width and height swap on 90
// and 270. The formulas assume the bottom-left anchor convention of the
// canonical model; composing four 90° rotations (or two 180°) returns
// the original rect within floating-point tolerance.
func RotateRect(r Rect, pageWidth, pageHeight float64, degrees int) Rect {
	switch NormalizeDegrees(degrees) {
	case 90:
		return Rect{X: r.Y, Y: pageWidth - r.X - r.Width, Width: r.Height, Height: r.Width}
	case 180:
		return Rect{X: pageWidth - r.X - r.Width, Y: pageHeight - r.Y - r.Height, Width: r.Width, Height: r.Height}
	case 270:
		return Rect{X: pageHeight - r.Y - r.Height, Y: r.X, Width: r.Height, Height: r.Width}
	default:
		return r
	}
}

// RotateQuad applies RotatePoint to each corner of the quad.
func RotateQuad(q Quad, pageWidth, pageHeight float64, degrees int) Quad {
	var out Quad
	for i := 0; i < 8; i += 2 {
		p := RotatePoint(Point{X: q[i], Y: q[i+1]}, pageWidth, pageHeight, degrees)
		out[i] = p.X
		out[i+1] = p.Y
	}
	return out
}

// RotatedPageSize returns the page dimensions after rotating by the
// given right angle: width and height swap on 90 and 270.
func RotatedPageSize(pageWidth, pageHeight float64, degrees int) (float64, float64) {
	switch NormalizeDegrees(degrees) {
	case 90, 270:
		return pageHeight, pageWidth
	default:
		return pageWidth, pageHeight
	}
}
