package annot

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Application-defined annotation kinds (stamps, images, callouts, rich
// text boxes) have no native PDF annotation schema. They are persisted
// by smuggling a JSON envelope inside a generic FreeText annotation's
// contents field, plus marker entries on the object dictionary. The
// envelope's "type" field doubles as the detection discriminator when
// the marker entry is missing (some object-write paths drop it).

// Dictionary entry names used for round-trip detection and for metadata
// that has no place in the native annotation schema.
const (
	DictMarkerCustom     = "CustomAnnotation"
	DictMarkerStamp      = "StampAnnotation"
	DictHTMLContent      = "HTMLContent"
	DictHasBackground    = "HasBackground"
	DictBackgroundColor  = "BackgroundColor"
	DictArrowHeadSize    = "ArrowHeadSize"
	DictAnnotationID     = "AnnotID"
	DictAnnotationRotate = "AnnotRotate"
)

// Envelope is the JSON payload hidden in a disguised annotation's
// contents field.
type Envelope struct {
	Type     Kind         `json:"type"`
	ID       string       `json:"id,omitempty"`
	Rotation int          `json:"rotation,omitempty"`
	Stamp    *StampData   `json:"stampData,omitempty"`
	Image    *ImageData   `json:"imageData,omitempty"`
	Callout  *CalloutData `json:"calloutData,omitempty"`
	Text     *TextData    `json:"textData,omitempty"`
}

// TextData is the payload of a rich text box annotation.
type TextData struct {
	Text       string  `json:"text"`
	HTML       string  `json:"html,omitempty"`
	FontSize   float64 `json:"fontSize,omitempty"`
	FontFamily string  `json:"fontFamily,omitempty"`
	Background *Color  `json:"background,omitempty"`
}

// DisguisedKinds lists the kinds persisted through the envelope rather
// than a native annotation subtype.
var DisguisedKinds = map[Kind]bool{
	KindStamp:   true,
	KindImage:   true,
	KindCallout: true,
	KindText:    true,
}

// EncodeEnvelope serializes the annotation's application-defined payload
// for the contents field. Only disguised kinds have an envelope.
func EncodeEnvelope(a *Annotation) (string, error) {
	if !DisguisedKinds[a.Kind] {
		return "", fmt.Errorf("kind %q is not envelope-persisted", a.Kind)
	}
	env := Envelope{Type: a.Kind, ID: a.ID, Rotation: a.Rotation}
	switch a.Kind {
	case KindStamp:
		env.Stamp = a.Stamp
	case KindImage:
		env.Image = a.Image
	case KindCallout:
		env.Callout = a.Callout
	case KindText:
		env.Text = &TextData{Text: a.Contents}
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", fmt.Errorf("encode %s envelope: %w", a.Kind, err)
	}
	return string(b), nil
}

// SniffEnvelope attempts to parse an annotation contents string as an
// application envelope. ok is false when the contents are not JSON or
// the discriminator is absent or unknown. This is the fallback half of
// the dual detection: the marker entry is checked first, the sniff
// catches annotations whose marker write failed silently.
func SniffEnvelope(contents string) (*Envelope, bool) {
	s := strings.TrimSpace(contents)
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var env Envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, false
	}
	switch env.Type {
	case KindStamp, KindImage, KindCallout, KindText:
		return &env, true
	default:
		return nil, false
	}
}

// ApplyEnvelope copies an envelope's payload onto the annotation.
func ApplyEnvelope(a *Annotation, env *Envelope) {
	a.Kind = env.Type
	if env.ID != "" {
		a.ID = env.ID
	}
	if env.Rotation != 0 {
		a.Rotation = env.Rotation
	}
	switch env.Type {
	case KindStamp:
		a.Stamp = env.Stamp
	case KindImage:
		a.Image = env.Image
	case KindCallout:
		a.Callout = env.Callout
	case KindText:
		if env.Text != nil {
			a.Contents = env.Text.Text
		}
	}
}
