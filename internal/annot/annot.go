// Package annot defines the canonical in-memory annotation model: a
// tagged union covering every mark the editor can place on a page. The
// model always stores PDF-space geometry; display-space values never
// leave the engine boundary.
package annot

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/pagemark/pagemark/internal/geom"
)

// Kind discriminates the tagged union.
type Kind string

const (
	KindText      Kind = "text"
	KindHighlight Kind = "highlight"
	KindRedact    Kind = "redact"
	KindImage     Kind = "image"
	KindFormField Kind = "formField"
	KindDraw      Kind = "draw"
	KindShape     Kind = "shape"
	KindStamp     Kind = "stamp"
	KindCallout   Kind = "callout"
)

// HighlightMode selects between quad-based text selection highlights and
// freehand overlay strokes.
type HighlightMode string

const (
	HighlightText    HighlightMode = "text"
	HighlightOverlay HighlightMode = "overlay"
)

// ShapeType enumerates the geometric shape annotations.
type ShapeType string

const (
	ShapeArrow     ShapeType = "arrow"
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
)

// FieldType enumerates interactive form field flavors.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldCheckbox FieldType = "checkbox"
	FieldRadio    FieldType = "radio"
	FieldDropdown FieldType = "dropdown"
	FieldDate     FieldType = "date"
)

// StampKind enumerates the payload carried by a stamp annotation.
type StampKind string

const (
	StampText      StampKind = "text"
	StampImage     StampKind = "image"
	StampSignature StampKind = "signature"
)

// Color is an RGB triple with components in [0, 1].
type Color struct {
	R float64 `json:"r"`
	G float64 `json:"g"`
	B float64 `json:"b"`
}

// HighlightData is the payload of a highlight annotation. Text-mode
// highlights carry quads; overlay highlights carry a freehand path and
// are written as multiply-blended ink strokes.
type HighlightData struct {
	Mode    HighlightMode `json:"mode"`
	Quads   []geom.Quad   `json:"quads,omitempty"`
	Path    []geom.Point  `json:"path,omitempty"`
	Opacity float64       `json:"opacity,omitempty"`
}

// ShapeData is the payload of a shape annotation. Arrows carry their two
// endpoints in PDF space; rectangles and circles use the common rect.
type ShapeData struct {
	Type        ShapeType   `json:"type"`
	Start       *geom.Point `json:"start,omitempty"`
	End         *geom.Point `json:"end,omitempty"`
	StrokeWidth float64     `json:"strokeWidth,omitempty"`
	FillColor   *Color      `json:"fillColor,omitempty"`
	FillOpacity float64     `json:"fillOpacity,omitempty"`
	HeadSize    float64     `json:"headSize,omitempty"`
}

// DrawData is the payload of a freehand drawing: an ordered stroke path.
type DrawData struct {
	Path        []geom.Point `json:"path"`
	StrokeWidth float64      `json:"strokeWidth,omitempty"`
}

// FormFieldData is the payload of an interactive form field widget.
// Value holds a string for text/dropdown/date fields and a bool for
// checkboxes and radios; see Annotation.BoolValue.
type FormFieldData struct {
	Type       FieldType `json:"type"`
	Name       string    `json:"name"`
	Value      any       `json:"value,omitempty"`
	Options    []string  `json:"options,omitempty"`
	RadioGroup string    `json:"radioGroup,omitempty"`
	ReadOnly   bool      `json:"readOnly,omitempty"`
	Required   bool      `json:"required,omitempty"`
	Multiline  bool      `json:"multiline,omitempty"`
}

// StampData is the payload of a stamp annotation.
type StampData struct {
	Kind StampKind `json:"kind"`
	// Text for text stamps; data URL or raw base64 for image and
	// signature stamps.
	Text      string `json:"text,omitempty"`
	ImageData string `json:"imageData,omitempty"`
}

// CalloutData is the payload of a callout: a text box plus an arrow from
// the box to the anchor point.
type CalloutData struct {
	Text     string      `json:"text"`
	Anchor   *geom.Point `json:"anchor,omitempty"`
	FontSize float64     `json:"fontSize,omitempty"`
}

// ImageData is the payload of an inline image annotation.
type ImageData struct {
	// MIME of the embedded raster; unsupported types are skipped at
	// load, never fatal.
	MIME string `json:"mime"`
	Data string `json:"data"`
}

// Annotation is the canonical tagged-union record. X/Y anchor the
// bottom-left corner in PDF space; Width and Height are non-negative.
// Rotation is the annotation's own visual rotation, independent of page
// rotation.
//
// NativeRef is a non-owning back-reference to the engine object for the
// current page session. It is never the source of truth and silently
// goes stale when the engine reloads a page; every consumer must
// tolerate and recover from a stale value (see the sync engine's
// fingerprint matching). It is excluded from serialization.
type Annotation struct {
	ID        string `json:"id"`
	Kind      Kind   `json:"kind"`
	PageIndex int    `json:"pageIndex"`

	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	Rotation int     `json:"rotation,omitempty"`

	Color       *Color  `json:"color,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
	BorderWidth float64 `json:"borderWidth,omitempty"`
	Contents    string  `json:"contents,omitempty"`

	Highlight *HighlightData `json:"highlightData,omitempty"`
	Shape     *ShapeData     `json:"shapeData,omitempty"`
	Draw      *DrawData      `json:"drawData,omitempty"`
	FormField *FormFieldData `json:"formFieldData,omitempty"`
	Stamp     *StampData     `json:"stampData,omitempty"`
	Callout   *CalloutData   `json:"calloutData,omitempty"`
	Image     *ImageData     `json:"imageData,omitempty"`

	NativeRef NativeRef `json:"-"`
}

// NativeRef abstracts the engine annotation handle so the model package
// does not import the engine. The concrete type is engine.Annotation.
type NativeRef any

// New creates an annotation of the given kind with a fresh stable id.
// The id is assigned exactly once, here or at load, and never recomputed
// from geometry afterwards.
func New(kind Kind, pageIndex int, rect geom.Rect) *Annotation {
	rect = rect.Normalized()
	return &Annotation{
		ID:        uuid.NewString(),
		Kind:      kind,
		PageIndex: pageIndex,
		X:         rect.X,
		Y:         rect.Y,
		Width:     rect.Width,
		Height:    rect.Height,
	}
}

// Rect returns the annotation's PDF-space bounding rect.
func (a *Annotation) Rect() geom.Rect {
	return geom.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// SetRect replaces the annotation's PDF-space bounding rect, normalizing
// negative extents.
func (a *Annotation) SetRect(r geom.Rect) {
	r = r.Normalized()
	a.X, a.Y, a.Width, a.Height = r.X, r.Y, r.Width, r.Height
}

// BoolValue interprets a form field's value as a checkbox/radio boolean.
// JSON round-trips may have turned a bool into the strings "Yes", "On"
// or "true"; all are accepted.
func (a *Annotation) BoolValue() bool {
	if a.FormField == nil {
		return false
	}
	switch v := a.FormField.Value.(type) {
	case bool:
		return v
	case string:
		return v == "Yes" || v == "On" || v == "true"
	default:
		return false
	}
}

// StringValue interprets a form field's value as text.
func (a *Annotation) StringValue() string {
	if a.FormField == nil {
		return ""
	}
	if s, ok := a.FormField.Value.(string); ok {
		return s
	}
	return ""
}

// Validate checks the structural invariants the rest of the pipeline
// relies on. It does not check geometry against any particular page.
func (a *Annotation) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("annotation has no id")
	}
	if a.PageIndex < 0 {
		return fmt.Errorf("annotation %s: negative page index %d", a.ID, a.PageIndex)
	}
	if a.Width < 0 || a.Height < 0 {
		return fmt.Errorf("annotation %s: negative extent %gx%g", a.ID, a.Width, a.Height)
	}
	switch a.Rotation {
	case 0, 90, 180, 270:
	default:
		return fmt.Errorf("annotation %s: rotation %d is not a right angle", a.ID, a.Rotation)
	}
	switch a.Kind {
	case KindHighlight:
		if a.Highlight == nil {
			return fmt.Errorf("annotation %s: highlight without payload", a.ID)
		}
		if a.Highlight.Mode == HighlightText && len(a.Highlight.Quads) == 0 {
			return fmt.Errorf("annotation %s: text highlight without quads", a.ID)
		}
		if a.Highlight.Mode == HighlightOverlay && len(a.Highlight.Path) < 2 {
			return fmt.Errorf("annotation %s: overlay highlight path needs at least 2 points", a.ID)
		}
	case KindShape:
		if a.Shape == nil {
			return fmt.Errorf("annotation %s: shape without payload", a.ID)
		}
		if a.Shape.Type == ShapeArrow && (a.Shape.Start == nil || a.Shape.End == nil) {
			return fmt.Errorf("annotation %s: arrow without endpoints", a.ID)
		}
	case KindDraw:
		if a.Draw == nil || len(a.Draw.Path) < 2 {
			return fmt.Errorf("annotation %s: drawing path needs at least 2 points", a.ID)
		}
	case KindFormField:
		if a.FormField == nil || a.FormField.Name == "" {
			return fmt.Errorf("annotation %s: form field without a name", a.ID)
		}
	case KindStamp:
		if a.Stamp == nil {
			return fmt.Errorf("annotation %s: stamp without payload", a.ID)
		}
	case KindText, KindRedact, KindImage, KindCallout:
	default:
		return fmt.Errorf("annotation %s: unknown kind %q", a.ID, a.Kind)
	}
	return nil
}

// Clone returns a deep-ish copy safe for independent mutation of the
// common fields and payload pointers. NativeRef is not carried over; the
// copy has no engine linkage.
func (a *Annotation) Clone() *Annotation {
	c := *a
	c.NativeRef = nil
	if a.Highlight != nil {
		h := *a.Highlight
		h.Quads = append([]geom.Quad(nil), a.Highlight.Quads...)
		h.Path = append([]geom.Point(nil), a.Highlight.Path...)
		c.Highlight = &h
	}
	if a.Shape != nil {
		s := *a.Shape
		if a.Shape.Start != nil {
			p := *a.Shape.Start
			s.Start = &p
		}
		if a.Shape.End != nil {
			p := *a.Shape.End
			s.End = &p
		}
		c.Shape = &s
	}
	if a.Draw != nil {
		d := *a.Draw
		d.Path = append([]geom.Point(nil), a.Draw.Path...)
		c.Draw = &d
	}
	if a.FormField != nil {
		f := *a.FormField
		f.Options = append([]string(nil), a.FormField.Options...)
		c.FormField = &f
	}
	if a.Stamp != nil {
		s := *a.Stamp
		c.Stamp = &s
	}
	if a.Callout != nil {
		co := *a.Callout
		if a.Callout.Anchor != nil {
			p := *a.Callout.Anchor
			co.Anchor = &p
		}
		c.Callout = &co
	}
	if a.Image != nil {
		img := *a.Image
		c.Image = &img
	}
	if a.Color != nil {
		col := *a.Color
		c.Color = &col
	}
	return &c
}
