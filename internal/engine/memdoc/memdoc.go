// Package memdoc is an in-memory implementation of the engine contract,
// used by tests. It reproduces the behavioral quirks the contract warns
// about so the loader, writer and sync engine exercise their recovery
// paths against a deterministic backend: widget annotations omitted from
// the standard enumeration, handles detached by page reloads, marker
// writes that silently drop name-typed values, and a redaction pass
// whose effect is only visible after a page reload.
package memdoc

import (
	"encoding/json"
	"fmt"

	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// Quirks switches on the optional misbehaviors a given engine build may
// exhibit. The zero value is a well-behaved engine.
type Quirks struct {
	// DropNameMarkers makes Dict.Put silently discard name-typed
	// boolean values, simulating the object-write path that loses
	// marker entries.
	DropNameMarkers bool

	// NoSetOpacity removes the dedicated opacity setter from the
	// capability set; SetOpacity returns ErrUnsupported.
	NoSetOpacity bool

	// DriftStampRect makes Update on a FreeText annotation reset its
	// rect to a default footprint, as observed on some engine builds.
	// Writers must verify and re-force the rect after commit.
	DriftStampRect bool

	// BareRedactOnly restricts ApplyRedactions to the zero-argument
	// form.
	BareRedactOnly bool

	// EnumerateWidgets includes widgets in the standard enumeration
	// instead of leaving them to the raw array walk, as newer engine
	// builds do. Readers that walk both must not see them twice.
	EnumerateWidgets bool
}

// Engine opens memdoc documents from their JSON serialization.
type Engine struct {
	Quirks Quirks
}

// annotState is the backing record for one native annotation.
type annotState struct {
	Subtype     engine.Subtype
	Rect        geom.Rect // display space
	HasColor    bool
	Color       []float64
	BorderWidth float64
	HasOpacity  bool
	Opacity     float64
	Quads       []float64
	Ink         [][]float64
	HasLine     bool
	LineStart   geom.Point
	LineEnd     geom.Point
	Contents    string
	Entries     map[string]engine.Value
	drifted     bool
}

// pageState is the backing record for one page. gen increments on every
// LoadPage call; handles carry the generation they were created under
// and detach when it moves on.
type pageState struct {
	Width    float64
	Height   float64
	Rotation int
	Annots   []*annotState
	Redacted []geom.Rect
	gen      int
}

// Document implements engine.Document.
type Document struct {
	quirks Quirks
	pages  []*pageState
	caps   engine.CapSet
}

// New creates an empty document with one page per size pair.
func New(quirks Quirks, pageSizes ...[2]float64) *Document {
	d := &Document{quirks: quirks}
	for _, sz := range pageSizes {
		d.pages = append(d.pages, &pageState{Width: sz[0], Height: sz[1]})
	}
	d.caps = probeCaps(quirks)
	return d
}

func probeCaps(q Quirks) engine.CapSet {
	caps := engine.CapSet{
		engine.CapSetOpacity:        !q.NoSetOpacity,
		engine.CapRedactWithOptions: !q.BareRedactOnly,
		engine.CapRedactWithFlag:    !q.BareRedactOnly,
		engine.CapDictNameBool:      !q.DropNameMarkers,
		engine.CapAppearanceImage:   true,
	}
	return caps
}

// Open reconstructs a document from its Save serialization.
func (e *Engine) Open(data []byte) (engine.Document, error) {
	var doc docJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrNotPDF, err)
	}
	if doc.Format != docFormat {
		return nil, engine.ErrNotPDF
	}
	d := &Document{quirks: e.Quirks, caps: probeCaps(e.Quirks)}
	for _, pj := range doc.Pages {
		d.pages = append(d.pages, pj.toState())
	}
	return d, nil
}

// PageCount implements engine.Document.
func (d *Document) PageCount() int { return len(d.pages) }

// Caps implements engine.Document.
func (d *Document) Caps() engine.CapSet { return d.caps }

// LoadPage implements engine.Document. Every call bumps the page
// generation, detaching all previously issued handles for that page.
func (d *Document) LoadPage(index int) (engine.Page, error) {
	if index < 0 || index >= len(d.pages) {
		return nil, fmt.Errorf("page %d out of range [0,%d)", index, len(d.pages))
	}
	ps := d.pages[index]
	ps.gen++
	return &Page{doc: d, state: ps, index: index, gen: ps.gen}, nil
}

// AcroFormAppend implements engine.Document.
func (d *Document) AcroFormAppend(a engine.Annotation) error {
	h, ok := a.(*Annotation)
	if !ok {
		return fmt.Errorf("foreign annotation handle %T", a)
	}
	if h.state.Subtype != engine.SubtypeWidget {
		return fmt.Errorf("only widgets join the form fields array, got %s", h.state.Subtype)
	}
	h.state.Entries["__acroform"] = engine.Bool(true)
	return nil
}

// InAcroForm reports whether a widget was linked into the form fields
// array. Test helper, not part of the engine contract.
func (d *Document) InAcroForm(a engine.Annotation) bool {
	h, ok := a.(*Annotation)
	if !ok {
		return false
	}
	v, ok := h.state.Entries["__acroform"]
	if !ok {
		return false
	}
	b, _ := v.Flag()
	return b
}

// MovePage implements engine.Document.
func (d *Document) MovePage(from, to int) error {
	n := len(d.pages)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move page %d -> %d out of range [0,%d)", from, to, n)
	}
	ps := d.pages[from]
	d.pages = append(d.pages[:from], d.pages[from+1:]...)
	d.pages = append(d.pages[:to], append([]*pageState{ps}, d.pages[to:]...)...)
	return nil
}

// InsertPage implements engine.Document.
func (d *Document) InsertPage(index int, width, height float64) error {
	if index < 0 || index > len(d.pages) {
		return fmt.Errorf("insert at %d out of range [0,%d]", index, len(d.pages))
	}
	ps := &pageState{Width: width, Height: height}
	d.pages = append(d.pages[:index], append([]*pageState{ps}, d.pages[index:]...)...)
	return nil
}

// DeletePage implements engine.Document.
func (d *Document) DeletePage(index int) error {
	if index < 0 || index >= len(d.pages) {
		return fmt.Errorf("delete page %d out of range [0,%d)", index, len(d.pages))
	}
	d.pages = append(d.pages[:index], d.pages[index+1:]...)
	return nil
}

// Save implements engine.Document.
func (d *Document) Save() ([]byte, error) {
	doc := docJSON{Format: docFormat}
	for _, ps := range d.pages {
		doc.Pages = append(doc.Pages, pageToJSON(ps))
	}
	return json.Marshal(&doc)
}

// RedactedAreas returns the display-space rects consumed by redaction
// passes on the given page. Test helper.
func (d *Document) RedactedAreas(pageIndex int) []geom.Rect {
	if pageIndex < 0 || pageIndex >= len(d.pages) {
		return nil
	}
	return d.pages[pageIndex].Redacted
}

// Page implements engine.Page. It is a generation-stamped view; an older
// view's handles keep reading but fail to mutate once the page is
// reloaded.
type Page struct {
	doc   *Document
	state *pageState
	index int
	gen   int
	// snapshot of handles issued by this view, so a redaction pass
	// applied through a different view stays invisible here until the
	// caller reloads (the engine caches parsed content).
	issued []*Annotation
}

// Index implements engine.Page.
func (p *Page) Index() int { return p.index }

// Bounds implements engine.Page.
func (p *Page) Bounds() ([4]float64, error) {
	return [4]float64{0, 0, p.state.Width, p.state.Height}, nil
}

// Rotation implements engine.Page.
func (p *Page) Rotation() int { return p.state.Rotation }

// SetRotation implements engine.Page.
func (p *Page) SetRotation(degrees int) error {
	p.state.Rotation = geom.NormalizeDegrees(degrees)
	return nil
}

// SetBounds implements engine.Page.
func (p *Page) SetBounds(bounds [4]float64) error {
	p.state.Width = bounds[2] - bounds[0]
	p.state.Height = bounds[3] - bounds[1]
	return nil
}

func (p *Page) handle(st *annotState) *Annotation {
	h := &Annotation{page: p, state: st, gen: p.gen}
	p.issued = append(p.issued, h)
	return h
}

// Annotations implements engine.Page. Widgets are omitted, matching the
// standard enumeration's known gap, unless the EnumerateWidgets quirk
// closes it.
func (p *Page) Annotations() ([]engine.Annotation, error) {
	var out []engine.Annotation
	for _, st := range p.state.Annots {
		if st.Subtype == engine.SubtypeWidget && !p.doc.quirks.EnumerateWidgets {
			continue
		}
		out = append(out, p.handle(st))
	}
	return out, nil
}

// AnnotationRefs implements engine.Page: the raw annotation array walk,
// widgets included.
func (p *Page) AnnotationRefs() ([]engine.Annotation, error) {
	out := make([]engine.Annotation, 0, len(p.state.Annots))
	for _, st := range p.state.Annots {
		out = append(out, p.handle(st))
	}
	return out, nil
}

// CreateAnnotation implements engine.Page.
func (p *Page) CreateAnnotation(subtype engine.Subtype) (engine.Annotation, error) {
	if p.gen != p.state.gen {
		return nil, engine.ErrDetached
	}
	st := &annotState{Subtype: subtype, Entries: map[string]engine.Value{}}
	p.state.Annots = append(p.state.Annots, st)
	return p.handle(st), nil
}

// RemoveAnnotation implements engine.Page.
func (p *Page) RemoveAnnotation(a engine.Annotation) error {
	h, ok := a.(*Annotation)
	if !ok {
		return fmt.Errorf("foreign annotation handle %T", a)
	}
	for i, st := range p.state.Annots {
		if st == h.state {
			p.state.Annots = append(p.state.Annots[:i], p.state.Annots[i+1:]...)
			h.gen = -1
			return nil
		}
	}
	return engine.ErrDetached
}

// ApplyRedactions implements engine.Page. The pass mutates the backing
// state only; this view's previously issued handles still see the
// removed marks until the caller reloads the page.
func (p *Page) ApplyRedactions(args ...any) error {
	if p.doc.quirks.BareRedactOnly && len(args) > 0 {
		return engine.ErrUnsupported
	}
	if len(args) > 2 {
		return engine.ErrUnsupported
	}
	kept := p.state.Annots[:0]
	for _, st := range p.state.Annots {
		if st.Subtype == engine.SubtypeRedact {
			p.state.Redacted = append(p.state.Redacted, st.Rect)
			continue
		}
		kept = append(kept, st)
	}
	p.state.Annots = kept
	return nil
}

// Annotation implements engine.Annotation.
type Annotation struct {
	page  *Page
	state *annotState
	gen   int
}

func (a *Annotation) attached() bool { return a.gen == a.page.state.gen }

// Subtype implements engine.Annotation.
func (a *Annotation) Subtype() engine.Subtype { return a.state.Subtype }

// Rect implements engine.Annotation.
func (a *Annotation) Rect() (geom.Rect, error) { return a.state.Rect, nil }

// SetRect implements engine.Annotation.
func (a *Annotation) SetRect(r geom.Rect) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.Rect = r
	return nil
}

// Color implements engine.Annotation.
func (a *Annotation) Color() ([]float64, bool) {
	if !a.state.HasColor {
		return nil, false
	}
	return a.state.Color, true
}

// SetColor implements engine.Annotation.
func (a *Annotation) SetColor(rgb []float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.HasColor = true
	a.state.Color = append([]float64(nil), rgb...)
	return nil
}

// SetBorderWidth implements engine.Annotation.
func (a *Annotation) SetBorderWidth(w float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.BorderWidth = w
	return nil
}

// Opacity implements engine.Annotation.
func (a *Annotation) Opacity() (float64, bool) {
	if a.state.HasOpacity {
		return a.state.Opacity, true
	}
	// The raw CA entry counts: writers set it when the dedicated
	// setter is unavailable.
	if v, ok := a.state.Entries["CA"]; ok {
		if f, ok := v.Number(); ok {
			return f, true
		}
	}
	return 0, false
}

// SetOpacity implements engine.Annotation.
func (a *Annotation) SetOpacity(v float64) error {
	if a.page.doc.quirks.NoSetOpacity {
		return engine.ErrUnsupported
	}
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.HasOpacity = true
	a.state.Opacity = v
	return nil
}

// QuadPoints implements engine.Annotation.
func (a *Annotation) QuadPoints() ([]float64, error) {
	return append([]float64(nil), a.state.Quads...), nil
}

// SetQuadPoints implements engine.Annotation.
func (a *Annotation) SetQuadPoints(coords []float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.Quads = append([]float64(nil), coords...)
	return nil
}

// InkList implements engine.Annotation.
func (a *Annotation) InkList() ([][]float64, error) {
	out := make([][]float64, len(a.state.Ink))
	for i, s := range a.state.Ink {
		out[i] = append([]float64(nil), s...)
	}
	return out, nil
}

// SetInkList implements engine.Annotation.
func (a *Annotation) SetInkList(strokes [][]float64) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.Ink = make([][]float64, len(strokes))
	for i, s := range strokes {
		a.state.Ink[i] = append([]float64(nil), s...)
	}
	return nil
}

// Line implements engine.Annotation. Endpoints are PDF space, order
// preserved.
func (a *Annotation) Line() (geom.Point, geom.Point, error) {
	if !a.state.HasLine {
		return geom.Point{}, geom.Point{}, fmt.Errorf("annotation %s has no line endpoints", a.state.Subtype)
	}
	return a.state.LineStart, a.state.LineEnd, nil
}

// SetLine implements engine.Annotation.
func (a *Annotation) SetLine(start, end geom.Point) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.HasLine = true
	a.state.LineStart, a.state.LineEnd = start, end
	return nil
}

// SetAppearanceImage implements engine.Annotation. The bytes are kept on
// the entry map so tests can observe them.
func (a *Annotation) SetAppearanceImage(data []byte) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.Entries["__appearance"] = engine.String(string(data))
	return nil
}

// Contents implements engine.Annotation.
func (a *Annotation) Contents() (string, error) { return a.state.Contents, nil }

// SetContents implements engine.Annotation.
func (a *Annotation) SetContents(text string) error {
	if !a.attached() {
		return engine.ErrDetached
	}
	a.state.Contents = text
	return nil
}

// Object implements engine.Annotation.
func (a *Annotation) Object() engine.Dict {
	return &dict{annot: a}
}

// Update implements engine.Annotation. With the DriftStampRect quirk
// enabled the first commit resets a FreeText rect to a default
// footprint, the behavior that forces writers to verify and re-force
// after commit. Subsequent commits leave the rect alone.
func (a *Annotation) Update() error {
	if !a.attached() {
		return engine.ErrDetached
	}
	if a.page.doc.quirks.DriftStampRect && a.state.Subtype == engine.SubtypeFreeText && !a.state.drifted {
		a.state.Rect = geom.Rect{X: a.state.Rect.X, Y: a.state.Rect.Y, Width: 50, Height: 50}
		a.state.drifted = true
	}
	return nil
}

// dict implements engine.Dict over an annotation's entry map.
type dict struct {
	annot *Annotation
}

// Get implements engine.Dict.
func (d *dict) Get(key string) (engine.Value, bool) {
	v, ok := d.annot.state.Entries[key]
	return v, ok
}

// Put implements engine.Dict. With the DropNameMarkers quirk enabled,
// name-typed values are accepted and discarded, simulating the silent
// marker-write failure.
func (d *dict) Put(key string, v engine.Value) error {
	if !d.annot.attached() {
		return engine.ErrDetached
	}
	if d.annot.page.doc.quirks.DropNameMarkers && v.Kind() == engine.KindName {
		return nil
	}
	d.annot.state.Entries[key] = v
	return nil
}

// Delete implements engine.Dict.
func (d *dict) Delete(key string) {
	delete(d.annot.state.Entries, key)
}

// Keys implements engine.Dict.
func (d *dict) Keys() []string {
	keys := make([]string, 0, len(d.annot.state.Entries))
	for k := range d.annot.state.Entries {
		keys = append(keys, k)
	}
	return keys
}
