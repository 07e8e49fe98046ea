package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/engine/memdoc"
	"github.com/pagemark/pagemark/internal/geom"
	"github.com/pagemark/pagemark/internal/loader"
	"github.com/pagemark/pagemark/internal/writer"
)

func nativeCount(t *testing.T, doc engine.Document, pageIndex int) int {
	t.Helper()
	page, err := doc.LoadPage(pageIndex)
	require.NoError(t, err)
	refs, err := page.AnnotationRefs()
	require.NoError(t, err)
	return len(refs)
}

func sampleSet() []*annot.Annotation {
	hl := annot.New(annot.KindHighlight, 0, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	hl.Highlight = &annot.HighlightData{
		Mode:  annot.HighlightText,
		Quads: []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
	}

	box := annot.New(annot.KindShape, 0, geom.Rect{X: 200, Y: 200, Width: 100, Height: 80})
	box.Shape = &annot.ShapeData{Type: annot.ShapeRectangle, StrokeWidth: 2}

	field := annot.New(annot.KindFormField, 1, geom.Rect{X: 100, Y: 676, Width: 16, Height: 16})
	field.FormField = &annot.FormFieldData{Type: annot.FieldCheckbox, Name: "agree", Value: true}

	return []*annot.Annotation{hl, box, field}
}

func TestSyncAll_CreatesAbsentAnnotations(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792}, [2]float64{612, 792})
	s := New(doc)

	set := sampleSet()
	require.NoError(t, s.SyncAll(set))

	assert.Equal(t, 2, nativeCount(t, doc, 0))
	assert.Equal(t, 1, nativeCount(t, doc, 1))
	for _, a := range set {
		assert.NotNil(t, a.NativeRef, "annotation %s must hold a fresh handle", a.ID)
	}
}

func TestSyncAll_Idempotent(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792}, [2]float64{612, 792})
	s := New(doc)

	set := sampleSet()
	require.NoError(t, s.SyncAll(set))
	page0 := nativeCount(t, doc, 0)
	page1 := nativeCount(t, doc, 1)

	// Every further pass over the unchanged set adopts the existing
	// natives instead of duplicating them, even though the counting
	// reload above detached every handle.
	for i := 0; i < 3; i++ {
		require.NoError(t, s.SyncAll(set))
		assert.Equal(t, page0, nativeCount(t, doc, 0), "pass %d", i)
		assert.Equal(t, page1, nativeCount(t, doc, 1), "pass %d", i)
	}
}

func TestSyncAll_EditsReachNativesOnResync(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792}, [2]float64{612, 792})
	s := New(doc)

	set := sampleSet()
	require.NoError(t, s.SyncAll(set))
	page0 := nativeCount(t, doc, 0)
	page1 := nativeCount(t, doc, 1)

	// Move the shape and untick the checkbox, then push the set again.
	// Both handles went stale during the count reloads above, so this
	// also exercises the adopt-then-update path.
	box, field := set[1], set[2]
	box.X, box.Y = 260, 240
	field.FormField.Value = false
	require.NoError(t, s.SyncAll(set))

	assert.Equal(t, page0, nativeCount(t, doc, 0), "resync must not duplicate")
	assert.Equal(t, page1, nativeCount(t, doc, 1), "resync must not duplicate")

	var gotBox, gotField *annot.Annotation
	for _, a := range loader.LoadPageAnnotations(doc, 0) {
		if a.ID == box.ID {
			gotBox = a
		}
	}
	for _, a := range loader.LoadPageAnnotations(doc, 1) {
		if a.ID == field.ID {
			gotField = a
		}
	}
	require.NotNil(t, gotBox, "moved shape must survive resync")
	require.NotNil(t, gotField, "edited field must survive resync")
	assert.True(t, gotBox.Rect().ApproxEqual(box.Rect(), 1e-6), "shape rect = %+v, want %+v", gotBox.Rect(), box.Rect())
	assert.Equal(t, false, gotField.FormField.Value)
}

func TestSyncAll_StaleHandleAdoptedNotDuplicated(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792})
	w := writer.New(doc)

	a := annot.New(annot.KindShape, 0, geom.Rect{X: 200, Y: 200, Width: 100, Height: 80})
	a.Shape = &annot.ShapeData{Type: annot.ShapeRectangle}
	require.NoError(t, w.Add(a))
	stale := a.NativeRef

	// Reload detaches the handle the annotation still carries.
	_, err := doc.LoadPage(0)
	require.NoError(t, err)

	a.SetRect(geom.Rect{X: 210, Y: 210, Width: 100, Height: 80})
	s := New(doc)
	require.NoError(t, s.SyncAll([]*annot.Annotation{a}))

	assert.Equal(t, 1, nativeCount(t, doc, 0))
	assert.NotSame(t, stale, a.NativeRef, "stale handle must be replaced")

	got := loader.LoadPageAnnotations(doc, 0)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID)
	assert.Equal(t, geom.Rect{X: 210, Y: 210, Width: 100, Height: 80}, got[0].Rect())
}

func TestSyncAll_AdoptsUnstampedNativeByGeometry(t *testing.T) {
	// A native from a previous session without a stable id entry: the
	// geometry fingerprint is the only way to claim it.
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792})
	page, err := doc.LoadPage(0)
	require.NoError(t, err)
	na, err := page.CreateAnnotation(engine.SubtypeSquare)
	require.NoError(t, err)
	require.NoError(t, na.SetRect(geom.Rect{X: 200, Y: 512, Width: 100, Height: 80}))

	a := annot.New(annot.KindShape, 0, geom.Rect{X: 200, Y: 200, Width: 100, Height: 80})
	a.Shape = &annot.ShapeData{Type: annot.ShapeRectangle}

	s := New(doc)
	require.NoError(t, s.SyncAll([]*annot.Annotation{a}))

	assert.Equal(t, 1, nativeCount(t, doc, 0), "existing native adopted, not duplicated")

	got := loader.LoadPageAnnotations(doc, 0)
	require.Len(t, got, 1)
	assert.Equal(t, a.ID, got[0].ID, "adoption stamps the canonical id onto the native")
}

func TestSyncAll_RedactionsAppliedOncePerPage(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792})
	s := New(doc)

	r1 := annot.New(annot.KindRedact, 0, geom.Rect{X: 100, Y: 100, Width: 200, Height: 150})
	r2 := annot.New(annot.KindRedact, 0, geom.Rect{X: 100, Y: 400, Width: 150, Height: 50})
	keep := annot.New(annot.KindShape, 0, geom.Rect{X: 400, Y: 600, Width: 50, Height: 50})
	keep.Shape = &annot.ShapeData{Type: annot.ShapeCircle}

	require.NoError(t, s.SyncAll([]*annot.Annotation{r1, r2, keep}))

	assert.Len(t, doc.RedactedAreas(0), 2)

	page, err := doc.LoadPage(0)
	require.NoError(t, err)
	refs, err := page.AnnotationRefs()
	require.NoError(t, err)
	for _, na := range refs {
		assert.NotEqual(t, engine.SubtypeRedact, na.Subtype(), "no redaction mark survives the pass")
	}
	assert.Len(t, refs, 1, "non-redaction annotations survive")
}

func TestSyncAll_BadAnnotationSkippedBatchContinues(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792})
	s := New(doc)

	bad := annot.New(annot.KindHighlight, 0, geom.Rect{X: 10, Y: 10, Width: 10, Height: 10})
	bad.Highlight = &annot.HighlightData{Mode: annot.HighlightText} // no quads
	good := annot.New(annot.KindShape, 0, geom.Rect{X: 200, Y: 200, Width: 100, Height: 80})
	good.Shape = &annot.ShapeData{Type: annot.ShapeRectangle}

	require.NoError(t, s.SyncAll([]*annot.Annotation{bad, good}))
	assert.Equal(t, 1, nativeCount(t, doc, 0))
	assert.NotNil(t, good.NativeRef)
	assert.Nil(t, bad.NativeRef)
}

func TestSyncSaveReload_Equality(t *testing.T) {
	doc := memdoc.New(memdoc.Quirks{}, [2]float64{612, 792})
	s := New(doc)

	set := []*annot.Annotation{}
	hl := annot.New(annot.KindHighlight, 0, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	hl.Highlight = &annot.HighlightData{
		Mode:  annot.HighlightText,
		Quads: []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
	}
	stamp := annot.New(annot.KindStamp, 0, geom.Rect{X: 100, Y: 100, Width: 120, Height: 60})
	stamp.Stamp = &annot.StampData{Kind: annot.StampText, Text: "APPROVED"}
	arrow := annot.New(annot.KindShape, 0, geom.Rect{X: 200, Y: 300, Width: 200, Height: 200})
	arrow.Shape = &annot.ShapeData{
		Type:  annot.ShapeArrow,
		Start: &geom.Point{X: 400, Y: 500},
		End:   &geom.Point{X: 200, Y: 300},
	}
	set = append(set, hl, stamp, arrow)

	require.NoError(t, s.SyncAll(set))
	data, err := s.Save()
	require.NoError(t, err)

	opener := &memdoc.Engine{}
	reopened, err := opener.Open(data)
	require.NoError(t, err)

	got := loader.LoadAll(reopened)
	require.Len(t, got, len(set))

	byID := map[string]*annot.Annotation{}
	for _, a := range got {
		byID[a.ID] = a
	}
	for _, want := range set {
		a := byID[want.ID]
		require.NotNil(t, a, "annotation %s lost across save/reload", want.ID)
		assert.Equal(t, want.Kind, a.Kind)
		assert.True(t, a.Rect().ApproxEqual(want.Rect(), 1e-6), "rect %+v != %+v", a.Rect(), want.Rect())
	}
	assert.Equal(t, "APPROVED", byID[stamp.ID].Stamp.Text)
	assert.Equal(t, geom.Point{X: 400, Y: 500}, *byID[arrow.ID].Shape.Start)
}
