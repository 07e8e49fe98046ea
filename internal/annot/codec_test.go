package annot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemark/pagemark/internal/geom"
)

func TestSetMarshal_StableOrder(t *testing.T) {
	s := &Set{DocumentID: "doc-1"}
	b := New(KindRedact, 1, geom.Rect{X: 1, Y: 1, Width: 5, Height: 5})
	b.ID = "bbb"
	a := New(KindRedact, 0, geom.Rect{X: 1, Y: 1, Width: 5, Height: 5})
	a.ID = "aaa"
	c := New(KindRedact, 1, geom.Rect{X: 1, Y: 1, Width: 5, Height: 5})
	c.ID = "aaa2"
	s.Annotations = []*Annotation{b, c, a}

	first, err := s.Marshal()
	require.NoError(t, err)
	second, err := s.Marshal()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	parsed, err := UnmarshalSet(first)
	require.NoError(t, err)
	require.Len(t, parsed.Annotations, 3)
	assert.Equal(t, "aaa", parsed.Annotations[0].ID)
	assert.Equal(t, "aaa2", parsed.Annotations[1].ID)
	assert.Equal(t, "bbb", parsed.Annotations[2].ID)
}

func TestSetRoundTrip_PreservesPayloads(t *testing.T) {
	h := New(KindHighlight, 0, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	h.Highlight = &HighlightData{
		Mode:  HighlightText,
		Quads: []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
	}
	f := New(KindFormField, 2, geom.Rect{X: 100, Y: 100, Width: 80, Height: 16})
	f.FormField = &FormFieldData{Type: FieldCheckbox, Name: "agree", Value: true}

	s := &Set{DocumentID: "doc-1", Annotations: []*Annotation{h, f}}

	data, err := s.Marshal()
	require.NoError(t, err)
	parsed, err := UnmarshalSet(data)
	require.NoError(t, err)

	got := parsed.Find(h.ID)
	require.NotNil(t, got)
	require.NotNil(t, got.Highlight)
	assert.Equal(t, h.Highlight.Quads, got.Highlight.Quads)

	gotF := parsed.Find(f.ID)
	require.NotNil(t, gotF)
	assert.True(t, gotF.BoolValue())
}

func TestUnmarshalSet_RejectsInvalidRecord(t *testing.T) {
	_, err := UnmarshalSet([]byte(`{"documentId":"d","annotations":[{"id":"","kind":"redact","pageIndex":0}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no id")
}

func TestSetByPage(t *testing.T) {
	s := &Set{
		Annotations: []*Annotation{
			New(KindRedact, 0, geom.Rect{Width: 1, Height: 1}),
			New(KindRedact, 2, geom.Rect{Width: 1, Height: 1}),
			New(KindRedact, 0, geom.Rect{Width: 1, Height: 1}),
		},
	}
	pages := s.ByPage()
	assert.Len(t, pages[0], 2)
	assert.Len(t, pages[2], 1)
	assert.Empty(t, pages[1])
}
