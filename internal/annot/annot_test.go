package annot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pagemark/pagemark/internal/geom"
)

func TestNew_AssignsStableID(t *testing.T) {
	a := New(KindRedact, 0, geom.Rect{X: 10, Y: 20, Width: 30, Height: 40})
	b := New(KindRedact, 0, geom.Rect{X: 10, Y: 20, Width: 30, Height: 40})

	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID, "ids must not derive from geometry")
}

func TestNew_NormalizesRect(t *testing.T) {
	a := New(KindRedact, 0, geom.Rect{X: 100, Y: 200, Width: -50, Height: -100})
	assert.Equal(t, geom.Rect{X: 50, Y: 100, Width: 50, Height: 100}, a.Rect())
}

func TestBoolValue(t *testing.T) {
	tests := []struct {
		name  string
		value any
		want  bool
	}{
		{"bool_true", true, true},
		{"bool_false", false, false},
		{"yes_name", "Yes", true},
		{"on_name", "On", true},
		{"true_string", "true", true},
		{"off_name", "Off", false},
		{"arbitrary_string", "hello", false},
		{"number", 1.0, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Annotation{
				Kind:      KindFormField,
				FormField: &FormFieldData{Type: FieldCheckbox, Name: "agree", Value: tt.value},
			}
			assert.Equal(t, tt.want, a.BoolValue())
		})
	}
}

func TestBoolValue_NoPayload(t *testing.T) {
	a := &Annotation{Kind: KindRedact}
	assert.False(t, a.BoolValue())
}

func TestValidate(t *testing.T) {
	valid := func() *Annotation {
		return New(KindRedact, 0, geom.Rect{X: 10, Y: 10, Width: 20, Height: 20})
	}

	tests := []struct {
		name    string
		mutate  func(*Annotation)
		wantErr string
	}{
		{
			name:   "valid_redact",
			mutate: func(*Annotation) {},
		},
		{
			name:    "empty_id",
			mutate:  func(a *Annotation) { a.ID = "" },
			wantErr: "no id",
		},
		{
			name:    "negative_page",
			mutate:  func(a *Annotation) { a.PageIndex = -1 },
			wantErr: "negative page index",
		},
		{
			name:    "odd_rotation",
			mutate:  func(a *Annotation) { a.Rotation = 45 },
			wantErr: "not a right angle",
		},
		{
			name: "highlight_without_quads",
			mutate: func(a *Annotation) {
				a.Kind = KindHighlight
				a.Highlight = &HighlightData{Mode: HighlightText}
			},
			wantErr: "without quads",
		},
		{
			name: "overlay_with_one_point",
			mutate: func(a *Annotation) {
				a.Kind = KindHighlight
				a.Highlight = &HighlightData{Mode: HighlightOverlay, Path: []geom.Point{{X: 1, Y: 1}}}
			},
			wantErr: "at least 2 points",
		},
		{
			name: "arrow_without_endpoints",
			mutate: func(a *Annotation) {
				a.Kind = KindShape
				a.Shape = &ShapeData{Type: ShapeArrow}
			},
			wantErr: "without endpoints",
		},
		{
			name: "form_field_without_name",
			mutate: func(a *Annotation) {
				a.Kind = KindFormField
				a.FormField = &FormFieldData{Type: FieldText}
			},
			wantErr: "without a name",
		},
		{
			name:    "unknown_kind",
			mutate:  func(a *Annotation) { a.Kind = "doodle" },
			wantErr: "unknown kind",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := valid()
			tt.mutate(a)
			err := a.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestClone_IndependentAndUnlinked(t *testing.T) {
	a := New(KindHighlight, 2, geom.Rect{X: 50, Y: 700, Width: 100, Height: 20})
	a.Highlight = &HighlightData{
		Mode:  HighlightText,
		Quads: []geom.Quad{{50, 700, 150, 700, 150, 720, 50, 720}},
	}
	a.Color = &Color{R: 1, G: 0.8, B: 0}
	a.NativeRef = struct{}{}

	c := a.Clone()

	assert.Nil(t, c.NativeRef)
	assert.Equal(t, a.ID, c.ID)

	c.Highlight.Quads[0][0] = 999
	c.Color.R = 0
	assert.Equal(t, 50.0, a.Highlight.Quads[0][0])
	assert.Equal(t, 1.0, a.Color.R)
}

func TestEnvelopeRoundTrip(t *testing.T) {
	a := New(KindStamp, 1, geom.Rect{X: 100, Y: 100, Width: 120, Height: 60})
	a.Rotation = 90
	a.Stamp = &StampData{Kind: StampText, Text: "APPROVED"}

	contents, err := EncodeEnvelope(a)
	require.NoError(t, err)

	env, ok := SniffEnvelope(contents)
	require.True(t, ok)
	assert.Equal(t, KindStamp, env.Type)
	assert.Equal(t, a.ID, env.ID)

	decoded := New(KindText, 1, a.Rect())
	ApplyEnvelope(decoded, env)
	assert.Equal(t, KindStamp, decoded.Kind)
	assert.Equal(t, a.ID, decoded.ID)
	assert.Equal(t, 90, decoded.Rotation)
	require.NotNil(t, decoded.Stamp)
	assert.Equal(t, "APPROVED", decoded.Stamp.Text)
}

func TestSniffEnvelope_RejectsPlainText(t *testing.T) {
	_, ok := SniffEnvelope("just a note about page three")
	assert.False(t, ok)

	_, ok = SniffEnvelope(`{"some":"json","without":"a type"}`)
	assert.False(t, ok)

	_, ok = SniffEnvelope(`{"type":"highlight"}`)
	assert.False(t, ok, "native kinds are never disguised")
}

func TestSniffEnvelope_ToleratesWhitespace(t *testing.T) {
	env, ok := SniffEnvelope("  \n" + `{"type":"callout","calloutData":{"text":"see here"}}`)
	require.True(t, ok)
	assert.Equal(t, KindCallout, env.Type)
	require.NotNil(t, env.Callout)
	assert.Equal(t, "see here", env.Callout.Text)
}

func TestEncodeEnvelope_NativeKindRejected(t *testing.T) {
	a := New(KindHighlight, 0, geom.Rect{Width: 10, Height: 10})
	_, err := EncodeEnvelope(a)
	assert.Error(t, err)
}
