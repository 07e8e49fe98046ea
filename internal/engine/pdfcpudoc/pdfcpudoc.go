// Package pdfcpudoc implements the engine contract on top of pdfcpu.
// It reads the document into a pdfcpu context, exposes pages and
// annotation dictionaries through the contract's display-space
// conventions, and serializes through pdfcpu's writer.
//
// Capability notes for this backend: the redaction pass consumes the
// marks and paints an opaque fill over the marked areas by appending to
// the page content stream; raster appearance streams are not attached
// (CapAppearanceImage is off), so image stamps round-trip through the
// envelope only. Structural page edits operate on a flat page tree;
// documents with intermediate page tree nodes are rejected for those
// operations.
package pdfcpudoc

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/pagemark/pagemark/internal/engine"
)

// Engine implements engine.Opener.
type Engine struct{}

// Open implements engine.Opener.
func (Engine) Open(data []byte) (engine.Document, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrNotPDF, err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, fmt.Errorf("%w: %v", engine.ErrNotPDF, err)
	}
	return &Document{
		ctx:  ctx,
		gens: map[int]int{},
		caps: engine.CapSet{
			engine.CapSetOpacity:     true,
			engine.CapRedactWithFlag: true,
			engine.CapDictNameBool:   true,
		},
	}, nil
}

// Document implements engine.Document over a pdfcpu context.
type Document struct {
	ctx  *model.Context
	caps engine.CapSet
	// gens tracks a generation per page index; every LoadPage bumps it,
	// detaching handles issued by earlier loads.
	gens map[int]int
}

// PageCount implements engine.Document.
func (d *Document) PageCount() int { return d.ctx.PageCount }

// Caps implements engine.Document.
func (d *Document) Caps() engine.CapSet { return d.caps }

// LoadPage implements engine.Document.
func (d *Document) LoadPage(index int) (engine.Page, error) {
	if index < 0 || index >= d.ctx.PageCount {
		return nil, fmt.Errorf("page %d out of range [0,%d)", index, d.ctx.PageCount)
	}
	pageDict, _, attrs, err := d.ctx.PageDict(index+1, false)
	if err != nil {
		return nil, fmt.Errorf("page %d dict: %w", index, err)
	}
	if pageDict == nil {
		return nil, fmt.Errorf("page %d has no dictionary", index)
	}
	var width, height float64
	if attrs != nil && attrs.MediaBox != nil {
		width = attrs.MediaBox.Width()
		height = attrs.MediaBox.Height()
	}
	d.gens[index]++
	return &Page{
		doc:    d,
		dict:   pageDict,
		index:  index,
		gen:    d.gens[index],
		width:  width,
		height: height,
	}, nil
}

// Save implements engine.Document.
func (d *Document) Save() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write context: %w", err)
	}
	return buf.Bytes(), nil
}

// AcroFormAppend implements engine.Document: the widget joins the
// catalog's AcroForm Fields array, created on first use.
func (d *Document) AcroFormAppend(a engine.Annotation) error {
	h, ok := a.(*Annotation)
	if !ok {
		return fmt.Errorf("foreign annotation handle %T", a)
	}
	if h.ref == nil {
		return fmt.Errorf("widget has no indirect reference")
	}
	xref := d.ctx.XRefTable
	catalog, err := xref.Catalog()
	if err != nil {
		return fmt.Errorf("catalog: %w", err)
	}

	var form types.Dict
	if obj, found := catalog.Find("AcroForm"); found {
		form, err = xref.DereferenceDict(obj)
		if err != nil {
			return fmt.Errorf("acroform dict: %w", err)
		}
	}
	if form == nil {
		form = types.NewDict()
		catalog.Update("AcroForm", form)
	}

	var fields types.Array
	if obj, found := form.Find("Fields"); found {
		resolved, err := xref.Dereference(obj)
		if err != nil {
			return fmt.Errorf("acroform fields: %w", err)
		}
		if arr, ok := resolved.(types.Array); ok {
			fields = arr
		}
	}
	for _, entry := range fields {
		if ref, ok := entry.(types.IndirectRef); ok && ref == *h.ref {
			return nil
		}
	}
	fields = append(fields, *h.ref)
	form.Update("Fields", fields)
	return nil
}

// flatKids returns the top-level Kids array of the page tree, rejecting
// documents with intermediate tree nodes.
func (d *Document) flatKids() (types.Dict, types.Array, error) {
	xref := d.ctx.XRefTable
	catalog, err := xref.Catalog()
	if err != nil {
		return nil, nil, fmt.Errorf("catalog: %w", err)
	}
	obj, found := catalog.Find("Pages")
	if !found {
		return nil, nil, fmt.Errorf("catalog has no page tree")
	}
	pages, err := xref.DereferenceDict(obj)
	if err != nil {
		return nil, nil, fmt.Errorf("page tree root: %w", err)
	}
	kidsObj, found := pages.Find("Kids")
	if !found {
		return nil, nil, fmt.Errorf("page tree has no kids")
	}
	resolved, err := xref.Dereference(kidsObj)
	if err != nil {
		return nil, nil, fmt.Errorf("page tree kids: %w", err)
	}
	kids, ok := resolved.(types.Array)
	if !ok {
		return nil, nil, fmt.Errorf("page tree kids is not an array")
	}
	for _, kid := range kids {
		kd, err := xref.DereferenceDict(kid)
		if err != nil {
			return nil, nil, fmt.Errorf("page tree kid: %w", err)
		}
		if t, found := kd.Find("Type"); found {
			if name, ok := t.(types.Name); ok && name.Value() != "Page" {
				return nil, nil, fmt.Errorf("nested page trees are not supported for structural edits")
			}
		}
	}
	return pages, kids, nil
}

func (d *Document) setKids(pages types.Dict, kids types.Array) {
	pages.Update("Kids", kids)
	pages.Update("Count", types.Integer(len(kids)))
	d.ctx.PageCount = len(kids)
}

// MovePage implements engine.Document.
func (d *Document) MovePage(from, to int) error {
	pages, kids, err := d.flatKids()
	if err != nil {
		return err
	}
	n := len(kids)
	if from < 0 || from >= n || to < 0 || to >= n {
		return fmt.Errorf("move page %d -> %d out of range [0,%d)", from, to, n)
	}
	kid := kids[from]
	kids = append(kids[:from], kids[from+1:]...)
	kids = append(kids[:to], append(types.Array{kid}, kids[to:]...)...)
	d.setKids(pages, kids)
	return nil
}

// InsertPage implements engine.Document: a blank page of the given size.
func (d *Document) InsertPage(index int, width, height float64) error {
	pages, kids, err := d.flatKids()
	if err != nil {
		return err
	}
	if index < 0 || index > len(kids) {
		return fmt.Errorf("insert at %d out of range [0,%d]", index, len(kids))
	}
	xref := d.ctx.XRefTable
	pageDict := types.Dict{
		"Type":     types.Name("Page"),
		"MediaBox": types.NewNumberArray(0, 0, width, height),
	}
	if catalog, err := xref.Catalog(); err == nil {
		if obj, found := catalog.Find("Pages"); found {
			if parentRef, ok := obj.(types.IndirectRef); ok {
				pageDict["Parent"] = parentRef
			}
		}
	}
	ref, err := xref.IndRefForNewObject(pageDict)
	if err != nil {
		return fmt.Errorf("allocate page object: %w", err)
	}
	kids = append(kids[:index], append(types.Array{*ref}, kids[index:]...)...)
	d.setKids(pages, kids)
	return nil
}

// DeletePage implements engine.Document.
func (d *Document) DeletePage(index int) error {
	pages, kids, err := d.flatKids()
	if err != nil {
		return err
	}
	if index < 0 || index >= len(kids) {
		return fmt.Errorf("delete page %d out of range [0,%d)", index, len(kids))
	}
	kids = append(kids[:index], kids[index+1:]...)
	d.setKids(pages, kids)
	return nil
}
