package pdfcpudoc

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// Annotation implements engine.Annotation over a pdfcpu annotation
// dictionary. Dictionary mutations are live against the context; Update
// only verifies attachment.
type Annotation struct {
	page *Page
	dict types.Dict
	ref  *types.IndirectRef
	gen  int
}

func (a *Annotation) attached() bool { return a.gen == a.page.doc.gens[a.page.index] }

func subtypeOf(d types.Dict) engine.Subtype {
	if obj, found := d.Find("Subtype"); found {
		if name, ok := obj.(types.Name); ok {
			return engine.Subtype(name.Value())
		}
	}
	return ""
}

// Subtype implements engine.Annotation.
func (a *Annotation) Subtype() engine.Subtype { return subtypeOf(a.dict) }

func rectOf(xref *model.XRefTable, d types.Dict) (types.Rectangle, bool) {
	obj, found := d.Find("Rect")
	if !found {
		return types.Rectangle{}, false
	}
	fs, ok := floatsOf(xref, obj)
	if !ok || len(fs) != 4 {
		return types.Rectangle{}, false
	}
	r := types.NewRectangle(fs[0], fs[1], fs[2], fs[3])
	return *r, true
}

// Rect implements engine.Annotation: the stored PDF-space rect
// converted to the contract's display space.
func (a *Annotation) Rect() (geom.Rect, error) {
	r, ok := rectOf(a.page.doc.ctx.XRefTable, a.dict)
	if !ok {
		return geom.Rect{}, fmt.Errorf("annotation has no readable rect")
	}
	pdfRect := geom.Rect{X: r.LL.X, Y: r.LL.Y, Width: r.Width(), Height: r.Height()}
	return geom.ToNativeRect(pdfRect, a.page.height), nil
}

// SetRect implements engine.Annotation.
func (a *Annotation) SetRect(r geom.Rect) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	p := geom.ToPDFRect(r.Normalized(), a.page.height)
	a.dict.Update("Rect", types.NewNumberArray(p.X, p.Y, p.MaxX(), p.MaxY()))
	return nil
}

// Color implements engine.Annotation.
func (a *Annotation) Color() ([]float64, bool) {
	obj, found := a.dict.Find("C")
	if !found {
		return nil, false
	}
	return floatsOf(a.page.doc.ctx.XRefTable, obj)
}

// SetColor implements engine.Annotation.
func (a *Annotation) SetColor(rgb []float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.dict.Update("C", types.NewNumberArray(rgb...))
	return nil
}

// SetBorderWidth implements engine.Annotation.
func (a *Annotation) SetBorderWidth(w float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.dict.Update("BS", types.Dict{"W": types.Float(w)})
	return nil
}

// Opacity implements engine.Annotation.
func (a *Annotation) Opacity() (float64, bool) {
	obj, found := a.dict.Find("CA")
	if !found {
		return 0, false
	}
	resolved, err := a.page.doc.ctx.XRefTable.Dereference(obj)
	if err != nil {
		return 0, false
	}
	switch v := resolved.(type) {
	case types.Integer:
		return float64(v.Value()), true
	case types.Float:
		return v.Value(), true
	default:
		return 0, false
	}
}

// SetOpacity implements engine.Annotation.
func (a *Annotation) SetOpacity(v float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.dict.Update("CA", types.Float(v))
	return nil
}

// QuadPoints implements engine.Annotation: stored PDF-space corners
// flipped to display space.
func (a *Annotation) QuadPoints() ([]float64, error) {
	obj, found := a.dict.Find("QuadPoints")
	if !found {
		return nil, nil
	}
	fs, ok := floatsOf(a.page.doc.ctx.XRefTable, obj)
	if !ok {
		return nil, fmt.Errorf("quad points are not numeric")
	}
	return flipAlternate(fs, a.page.height), nil
}

// SetQuadPoints implements engine.Annotation.
func (a *Annotation) SetQuadPoints(coords []float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.dict.Update("QuadPoints", types.NewNumberArray(flipAlternate(coords, a.page.height)...))
	return nil
}

// flipAlternate flips every second value (the Y coordinates of an
// alternating x,y list) against the page height. Self-inverse.
func flipAlternate(fs []float64, pageHeight float64) []float64 {
	out := append([]float64(nil), fs...)
	for i := 1; i < len(out); i += 2 {
		out[i] = pageHeight - out[i]
	}
	return out
}

// InkList implements engine.Annotation.
func (a *Annotation) InkList() ([][]float64, error) {
	obj, found := a.dict.Find("InkList")
	if !found {
		return nil, nil
	}
	xref := a.page.doc.ctx.XRefTable
	resolved, err := xref.Dereference(obj)
	if err != nil {
		return nil, fmt.Errorf("ink list: %w", err)
	}
	arr, ok := resolved.(types.Array)
	if !ok {
		return nil, fmt.Errorf("ink list is not an array")
	}
	out := make([][]float64, 0, len(arr))
	for _, strokeObj := range arr {
		fs, ok := floatsOf(xref, strokeObj)
		if !ok {
			return nil, fmt.Errorf("ink stroke is not numeric")
		}
		out = append(out, flipAlternate(fs, a.page.height))
	}
	return out, nil
}

// SetInkList implements engine.Annotation.
func (a *Annotation) SetInkList(strokes [][]float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	arr := make(types.Array, 0, len(strokes))
	for _, s := range strokes {
		arr = append(arr, types.NewNumberArray(flipAlternate(s, a.page.height)...))
	}
	a.dict.Update("InkList", arr)
	return nil
}

// Line implements engine.Annotation. The L entry is PDF space already;
// per the contract no flip and no endpoint reorder happens here.
func (a *Annotation) Line() (geom.Point, geom.Point, error) {
	obj, found := a.dict.Find("L")
	if !found {
		return geom.Point{}, geom.Point{}, fmt.Errorf("annotation has no line endpoints")
	}
	fs, ok := floatsOf(a.page.doc.ctx.XRefTable, obj)
	if !ok || len(fs) != 4 {
		return geom.Point{}, geom.Point{}, fmt.Errorf("line endpoints are malformed")
	}
	return geom.Point{X: fs[0], Y: fs[1]}, geom.Point{X: fs[2], Y: fs[3]}, nil
}

// SetLine implements engine.Annotation.
func (a *Annotation) SetLine(start, end geom.Point) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.dict.Update("L", types.NewNumberArray(start.X, start.Y, end.X, end.Y))
	return nil
}

// Contents implements engine.Annotation.
func (a *Annotation) Contents() (string, error) {
	obj, found := a.dict.Find("Contents")
	if !found {
		return "", nil
	}
	v, err := toValue(a.page.doc.ctx.XRefTable, obj)
	if err != nil {
		return "", err
	}
	s, _ := v.Text()
	return s, nil
}

// SetContents implements engine.Annotation. Hex literals sidestep the
// escaping rules for payloads full of JSON punctuation.
func (a *Annotation) SetContents(text string) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.dict.Update("Contents", types.NewHexLiteral([]byte(text)))
	return nil
}

// SetAppearanceImage implements engine.Annotation. Not supported on
// this backend; image stamps round-trip through the envelope.
func (a *Annotation) SetAppearanceImage([]byte) error {
	return engine.ErrUnsupported
}

// Update implements engine.Annotation. Dictionary writes are live; the
// commit just verifies attachment.
func (a *Annotation) Update() error {
	if !a.attached() {
		return engine.ErrDetached
	}
	return nil
}

// Object implements engine.Annotation.
func (a *Annotation) Object() engine.Dict {
	return &dictAdapter{annot: a}
}

func floatsOf(xref *model.XRefTable, obj types.Object) ([]float64, bool) {
	resolved, err := xref.Dereference(obj)
	if err != nil {
		return nil, false
	}
	arr, ok := resolved.(types.Array)
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(arr))
	for _, entry := range arr {
		r, err := xref.Dereference(entry)
		if err != nil {
			return nil, false
		}
		switch v := r.(type) {
		case types.Integer:
			out = append(out, float64(v.Value()))
		case types.Float:
			out = append(out, v.Value())
		default:
			return nil, false
		}
	}
	return out, true
}
