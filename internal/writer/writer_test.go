package writer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/engine/memdoc"
	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/loader"
)

func letterDoc(quirks memdoc.Quirks) *memdoc.Document {
	return memdoc.New(quirks, [2]float64{612, 792})
}

func TestAddHighlight_RoundTripsThroughLoader(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindHighlight, 0, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	a.Highlight = &annot.HighlightData{
		Mode:  annot.HighlightText,
		Quads: []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
	}
	require.NoError(t, w.Add(a))
	require.NotNil(t, a.NativeRef)

	got := loader.LoadPageAnnotations(doc, 0)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20}, got[0].Rect())
	require.Len(t, got[0].Highlight.Quads, 1)
	assert.Equal(t, a.Highlight.Quads[0], got[0].Highlight.Quads[0])
}

func TestAddHighlight_DefaultOpacity(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindHighlight, 0, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	a.Highlight = &annot.HighlightData{
		Mode:  annot.HighlightText,
		Quads: []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
	}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	op, ok := na.Opacity()
	require.True(t, ok)
	assert.Equal(t, 0.4, op)
}

func TestAddHighlight_OpacitySetterUnavailable(t *testing.T) {
	// The dedicated setter is missing on this build: the raw CA entry
	// must still carry the value.
	doc := letterDoc(memdoc.Quirks{NoSetOpacity: true})
	w := New(doc)

	a := annot.New(annot.KindHighlight, 0, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	a.Highlight = &annot.HighlightData{
		Mode:    annot.HighlightText,
		Quads:   []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
		Opacity: 0.6,
	}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	op, ok := na.Opacity()
	require.True(t, ok)
	assert.Equal(t, 0.6, op)
}

func TestAddOverlayHighlight_BlendModeWritten(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindHighlight, 0, geom.Rect{X: 50, Y: 690, Width: 100, Height: 20})
	a.Highlight = &annot.HighlightData{
		Mode: annot.HighlightOverlay,
		Path: []geom.Point{{X: 50, Y: 700}, {X: 150, Y: 700}},
	}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	assert.Equal(t, engine.SubtypeInk, na.Subtype())
	v, ok := na.Object().Get("BM")
	require.True(t, ok)
	bm, _ := v.Text()
	assert.Equal(t, "Multiply", bm)
}

func TestAddDisguised_MarkerStringFallback(t *testing.T) {
	// Name-typed marker writes are silently dropped on this build; the
	// writer must fall back to the string representation.
	doc := letterDoc(memdoc.Quirks{DropNameMarkers: true})
	w := New(doc)

	a := annot.New(annot.KindStamp, 0, geom.Rect{X: 100, Y: 100, Width: 120, Height: 60})
	a.Stamp = &annot.StampData{Kind: annot.StampText, Text: "DRAFT"}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	v, ok := na.Object().Get(annot.DictMarkerCustom)
	require.True(t, ok, "marker must survive through the fallback representation")
	b, ok := v.Flag()
	require.True(t, ok)
	assert.True(t, b)

	stamp, ok := na.Object().Get(annot.DictMarkerStamp)
	require.True(t, ok)
	b, _ = stamp.Flag()
	assert.True(t, b)
}

func TestAddDisguised_RectReforcedAfterCommitDrift(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{DriftStampRect: true})
	w := New(doc)

	a := annot.New(annot.KindStamp, 0, geom.Rect{X: 100, Y: 100, Width: 120, Height: 60})
	a.Stamp = &annot.StampData{Kind: annot.StampText, Text: "DRAFT"}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	got, err := na.Rect()
	require.NoError(t, err)
	want := geom.ToNativeRect(a.Rect(), 792)
	assert.True(t, got.ApproxEqual(want, 0.5), "rect %+v drifted away from %+v", got, want)
}

func TestAddDisguised_RoundTripsThroughLoader(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindCallout, 0, geom.Rect{X: 200, Y: 400, Width: 150, Height: 80})
	a.Callout = &annot.CalloutData{Text: "check this figure", Anchor: &geom.Point{X: 180, Y: 380}}
	require.NoError(t, w.Add(a))

	got := loader.LoadPageAnnotations(doc, 0)
	require.Len(t, got, 1)
	assert.Equal(t, annot.KindCallout, got[0].Kind)
	assert.Equal(t, a.ID, got[0].ID)
	require.NotNil(t, got[0].Callout)
	assert.Equal(t, "check this figure", got[0].Callout.Text)
}

func TestAddRedaction_ClampsToPageBounds(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindRedact, 0, geom.Rect{X: 500, Y: 700, Width: 300, Height: 200})
	require.NoError(t, w.Add(a))

	assert.Equal(t, geom.Rect{X: 500, Y: 700, Width: 112, Height: 92}, a.Rect())
}

func TestAddRedaction_FullyOutsideRejected(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindRedact, 0, geom.Rect{X: 700, Y: 900, Width: 50, Height: 50})
	err := w.Add(a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "outside page bounds")
}

func TestApplyPageRedactions_RemovesEveryMark(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindRedact, 0, geom.Rect{X: 100, Y: 100, Width: 200, Height: 150})
	require.NoError(t, w.Add(a))

	remaining, err := w.ApplyPageRedactions(0)
	require.NoError(t, err)
	assert.Zero(t, remaining)

	areas := doc.RedactedAreas(0)
	require.Len(t, areas, 1)

	page, err := doc.LoadPage(0)
	require.NoError(t, err)
	natives, err := page.Annotations()
	require.NoError(t, err)
	assert.Empty(t, natives)
}

func TestApplyPageRedactions_BareArityFallback(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{BareRedactOnly: true})
	w := New(doc)

	a := annot.New(annot.KindRedact, 0, geom.Rect{X: 100, Y: 100, Width: 200, Height: 150})
	require.NoError(t, w.Add(a))

	remaining, err := w.ApplyPageRedactions(0)
	require.NoError(t, err)
	assert.Zero(t, remaining)
}

func TestAddFormField_CheckboxValueAndLinkage(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindFormField, 0, geom.Rect{X: 100, Y: 676, Width: 16, Height: 16})
	a.FormField = &annot.FormFieldData{Type: annot.FieldCheckbox, Name: "agree", Value: true}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	assert.Equal(t, engine.SubtypeWidget, na.Subtype())
	assert.True(t, doc.InAcroForm(na), "widget must join the form fields array")

	v, ok := na.Object().Get("V")
	require.True(t, ok)
	s, _ := v.Text()
	assert.Equal(t, "Yes", s)

	got := loader.LoadPageAnnotations(doc, 0)
	require.Len(t, got, 1)
	assert.Equal(t, true, got[0].FormField.Value)
}

func TestAddFormField_RadioFlags(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindFormField, 0, geom.Rect{X: 100, Y: 676, Width: 16, Height: 16})
	a.FormField = &annot.FormFieldData{
		Type:       annot.FieldRadio,
		Name:       "color",
		RadioGroup: "color",
		Value:      false,
		Required:   true,
	}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	v, ok := na.Object().Get("Ff")
	require.True(t, ok)
	flags, _ := v.Integer()
	assert.NotZero(t, flags&(1<<15), "radio bit")
	assert.NotZero(t, flags&(1<<1), "required bit")

	state, ok := na.Object().Get("AS")
	require.True(t, ok)
	s, _ := state.Text()
	assert.Equal(t, "Off", s)
}

func TestAddArrow_EndpointsNotFlipped(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	start := geom.Point{X: 400, Y: 500}
	end := geom.Point{X: 200, Y: 300}
	a := annot.New(annot.KindShape, 0, geom.Rect{X: 200, Y: 300, Width: 200, Height: 200})
	a.Shape = &annot.ShapeData{Type: annot.ShapeArrow, Start: &start, End: &end, HeadSize: 12}
	require.NoError(t, w.Add(a))

	na := a.NativeRef.(engine.Annotation)
	s, e, err := na.Line()
	require.NoError(t, err)
	assert.Equal(t, start, s)
	assert.Equal(t, end, e)

	got := loader.LoadPageAnnotations(doc, 0)
	require.Len(t, got, 1)
	assert.Equal(t, start, *got[0].Shape.Start)
	assert.Equal(t, end, *got[0].Shape.End)
	assert.Equal(t, 12.0, got[0].Shape.HeadSize)
}

func TestAdd_InvalidAnnotationRejected(t *testing.T) {
	doc := letterDoc(memdoc.Quirks{})
	w := New(doc)

	a := annot.New(annot.KindHighlight, 0, geom.Rect{Width: 10, Height: 10})
	a.Highlight = &annot.HighlightData{Mode: annot.HighlightText}
	assert.Error(t, w.Add(a))
}
