package pdfcpudoc

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pagemark/pagemark/internal/engine"
)

// Page implements engine.Page over a pdfcpu page dictionary.
type Page struct {
	doc    *Document
	dict   types.Dict
	index  int
	gen    int
	width  float64
	height float64
}

// Index implements engine.Page.
func (p *Page) Index() int { return p.index }

// Bounds implements engine.Page.
func (p *Page) Bounds() ([4]float64, error) {
	return [4]float64{0, 0, p.width, p.height}, nil
}

// Rotation implements engine.Page. Absent or unreadable entries default
// to 0.
func (p *Page) Rotation() int {
	obj, found := p.dict.Find("Rotate")
	if !found {
		return 0
	}
	resolved, err := p.doc.ctx.XRefTable.Dereference(obj)
	if err != nil {
		return 0
	}
	switch v := resolved.(type) {
	case types.Integer:
		return v.Value()
	case types.Float:
		return int(v.Value())
	default:
		return 0
	}
}

// SetRotation implements engine.Page.
func (p *Page) SetRotation(degrees int) error {
	p.dict.Update("Rotate", types.Integer(degrees))
	return nil
}

// SetBounds implements engine.Page.
func (p *Page) SetBounds(bounds [4]float64) error {
	p.dict.Update("MediaBox", types.NewNumberArray(bounds[0], bounds[1], bounds[2], bounds[3]))
	p.width = bounds[2] - bounds[0]
	p.height = bounds[3] - bounds[1]
	return nil
}

func (p *Page) attached() bool { return p.gen == p.doc.gens[p.index] }

// annots resolves the page's annotation array, dereferencing an
// indirect array entry when present.
func (p *Page) annots() (types.Array, error) {
	obj, found := p.dict.Find("Annots")
	if !found {
		return nil, nil
	}
	resolved, err := p.doc.ctx.XRefTable.Dereference(obj)
	if err != nil {
		return nil, fmt.Errorf("page %d annots: %w", p.index, err)
	}
	arr, ok := resolved.(types.Array)
	if !ok {
		return nil, fmt.Errorf("page %d annots is not an array", p.index)
	}
	return arr, nil
}

func (p *Page) handleFor(entry types.Object) (*Annotation, error) {
	xref := p.doc.ctx.XRefTable
	var ref *types.IndirectRef
	if r, ok := entry.(types.IndirectRef); ok {
		ref = &r
	}
	d, err := xref.DereferenceDict(entry)
	if err != nil {
		return nil, fmt.Errorf("annotation dict: %w", err)
	}
	if d == nil {
		return nil, fmt.Errorf("annotation entry is not a dictionary")
	}
	return &Annotation{page: p, dict: d, ref: ref, gen: p.gen}, nil
}

// Annotations implements engine.Page. Widgets are omitted, per the
// contract's documented enumeration gap; AnnotationRefs yields them.
func (p *Page) Annotations() ([]engine.Annotation, error) {
	return p.enumerate(false)
}

// AnnotationRefs implements engine.Page: the raw annotation array walk.
func (p *Page) AnnotationRefs() ([]engine.Annotation, error) {
	return p.enumerate(true)
}

func (p *Page) enumerate(includeWidgets bool) ([]engine.Annotation, error) {
	arr, err := p.annots()
	if err != nil {
		return nil, err
	}
	var out []engine.Annotation
	for _, entry := range arr {
		h, err := p.handleFor(entry)
		if err != nil {
			continue
		}
		if !includeWidgets && h.Subtype() == engine.SubtypeWidget {
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

// CreateAnnotation implements engine.Page: allocates the object, links
// it into the annotation array.
func (p *Page) CreateAnnotation(subtype engine.Subtype) (engine.Annotation, error) {
	if !p.attached() {
		return nil, engine.ErrDetached
	}
	d := types.Dict{
		"Type":    types.Name("Annot"),
		"Subtype": types.Name(string(subtype)),
		"Rect":    types.NewNumberArray(0, 0, 0, 0),
	}
	ref, err := p.doc.ctx.XRefTable.IndRefForNewObject(d)
	if err != nil {
		return nil, fmt.Errorf("allocate annotation object: %w", err)
	}
	arr, err := p.annots()
	if err != nil {
		return nil, err
	}
	arr = append(arr, *ref)
	p.dict.Update("Annots", arr)
	return &Annotation{page: p, dict: d, ref: ref, gen: p.gen}, nil
}

// RemoveAnnotation implements engine.Page.
func (p *Page) RemoveAnnotation(a engine.Annotation) error {
	h, ok := a.(*Annotation)
	if !ok {
		return fmt.Errorf("foreign annotation handle %T", a)
	}
	arr, err := p.annots()
	if err != nil {
		return err
	}
	for i, entry := range arr {
		d, err := p.doc.ctx.XRefTable.DereferenceDict(entry)
		if err != nil {
			continue
		}
		if sameDict(d, h.dict) {
			arr = append(arr[:i], arr[i+1:]...)
			p.dict.Update("Annots", arr)
			h.gen = -1
			return nil
		}
	}
	return engine.ErrDetached
}

// sameDict reports map identity: pdfcpu dictionaries are maps, so two
// handles to the same object share the backing map.
func sameDict(a, b types.Dict) bool {
	if len(a) != len(b) {
		return false
	}
	if len(a) == 0 {
		return true
	}
	// Mutating one and observing the other would be definitive but
	// destructive; comparing a sentinel insert is cheaper than a deep
	// equal and safe because keys are restored.
	const probe = "__identity_probe"
	a[probe] = types.Boolean(true)
	_, shared := b[probe]
	delete(a, probe)
	return shared
}

// ApplyRedactions implements engine.Page: consumes every redaction mark
// and paints an opaque fill over the marked areas by appending a
// content stream. Accepts the bare and one-flag arities.
func (p *Page) ApplyRedactions(args ...any) error {
	if len(args) > 1 {
		return engine.ErrUnsupported
	}
	arr, err := p.annots()
	if err != nil {
		return err
	}
	xref := p.doc.ctx.XRefTable

	var kept types.Array
	var areas []types.Rectangle
	for _, entry := range arr {
		d, err := xref.DereferenceDict(entry)
		if err != nil {
			kept = append(kept, entry)
			continue
		}
		if subtypeOf(d) != engine.SubtypeRedact {
			kept = append(kept, entry)
			continue
		}
		if r, ok := rectOf(xref, d); ok {
			areas = append(areas, r)
		}
	}
	if len(areas) == 0 {
		return nil
	}
	p.dict.Update("Annots", kept)
	return p.appendFill(areas)
}

// appendFill draws filled black rectangles over the given PDF-space
// areas by appending a content stream to the page.
func (p *Page) appendFill(areas []types.Rectangle) error {
	var buf []byte
	buf = append(buf, "q 0 0 0 rg\n"...)
	for _, r := range areas {
		buf = append(buf, fmt.Sprintf("%.2f %.2f %.2f %.2f re f\n", r.LL.X, r.LL.Y, r.Width(), r.Height())...)
	}
	buf = append(buf, 'Q')

	xref := p.doc.ctx.XRefTable
	sd, err := xref.NewStreamDictForBuf(buf)
	if err != nil {
		return fmt.Errorf("build fill stream: %w", err)
	}
	ref, err := xref.IndRefForNewObject(*sd)
	if err != nil {
		return fmt.Errorf("allocate fill stream: %w", err)
	}

	var contents types.Array
	if obj, found := p.dict.Find("Contents"); found {
		if arr, ok := obj.(types.Array); ok {
			contents = arr
		} else {
			contents = types.Array{obj}
		}
	}
	contents = append(contents, *ref)
	p.dict.Update("Contents", contents)
	return nil
}
