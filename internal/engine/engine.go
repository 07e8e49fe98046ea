// Package engine defines the contract between the annotation core and
// the underlying PDF engine. The core never touches a concrete PDF
// library; it speaks to these interfaces, with pdfcpudoc providing the
// production backend and memdoc the in-memory test backend.
//
// Coordinate convention at this boundary: rects handed to SetRect and
// returned by Rect are in display space (origin top-left, Y increasing
// downward), which is the native rect convention of the target engine.
// Line endpoints are the exception: they are PDF space, bottom-left
// origin, start before end. Backends must conform to both rules so the
// core performs exactly one flip per encoder or decoder.
package engine

import (
	"errors"

	"github.com/pagemark/pagemark/internal/geom"
)

// Subtype is the native annotation subtype name as it appears in the
// object dictionary.
type Subtype string

const (
	SubtypeText      Subtype = "Text"
	SubtypeFreeText  Subtype = "FreeText"
	SubtypeHighlight Subtype = "Highlight"
	SubtypeSquare    Subtype = "Square"
	SubtypeCircle    Subtype = "Circle"
	SubtypeLine      Subtype = "Line"
	SubtypeInk       Subtype = "Ink"
	SubtypeStamp     Subtype = "Stamp"
	SubtypeWidget    Subtype = "Widget"
	SubtypeRedact    Subtype = "Redact"
)

var (
	// ErrDetached reports a native handle no longer attached to its
	// page, typically after the engine reloaded the page. Recoverable:
	// the sync engine re-resolves by geometry fingerprint.
	ErrDetached = errors.New("native annotation handle detached from page")

	// ErrUnsupported reports an optional engine capability missing on
	// this backend. Callers consult the capability set and treat this
	// as a silent skip, never fatal.
	ErrUnsupported = errors.New("operation not supported by engine backend")

	// ErrNotPDF reports that a byte buffer could not be opened as a PDF
	// document. Structural, surfaced to the caller.
	ErrNotPDF = errors.New("data is not a readable PDF document")
)

// Opener opens a document from a byte buffer.
type Opener interface {
	Open(data []byte) (Document, error)
}

// Document is one open PDF document session. Not safe for concurrent
// mutation; one logical session owns it at a time.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int

	// LoadPage loads the page at the given 0-based index. Each call may
	// recreate the underlying native page object, at which point every
	// annotation handle previously obtained from that page is detached.
	LoadPage(index int) (Page, error)

	// AcroFormAppend links a widget annotation into the document-level
	// form fields array. Creation alone does not establish this
	// linkage, and a field missing from the array is not recognized as
	// interactive by other PDF consumers.
	AcroFormAppend(a Annotation) error

	// MovePage, InsertPage and DeletePage edit the document page array.
	MovePage(from, to int) error
	InsertPage(index int, width, height float64) error
	DeletePage(index int) error

	// Caps returns the capability set probed once when the document was
	// opened. Callers must consult it instead of re-probing per call.
	Caps() CapSet

	// Save serializes the document to a byte buffer.
	Save() ([]byte, error)
}

// Page is one loaded page.
type Page interface {
	// Index returns the page's 0-based position in the document.
	Index() int

	// Bounds returns the page media box as [x0, y0, x1, y1] in PDF
	// space.
	Bounds() ([4]float64, error)

	// Annotations enumerates the page's native annotations. The
	// enumeration is known to omit some widget annotations; callers
	// needing widgets must also walk AnnotationRefs.
	Annotations() ([]Annotation, error)

	// AnnotationRefs walks the page's raw annotation-reference array
	// and returns a handle for every entry, including widgets the
	// standard enumeration misses.
	AnnotationRefs() ([]Annotation, error)

	// CreateAnnotation creates a native annotation of the given subtype
	// attached to this page and linked into the annotation array.
	CreateAnnotation(subtype Subtype) (Annotation, error)

	// RemoveAnnotation deletes a native annotation from the page.
	RemoveAnnotation(a Annotation) error

	// SetBounds resizes the page media box.
	SetBounds(bounds [4]float64) error

	// Rotation reads the page dictionary's rotation entry, 0 when
	// absent or unreadable.
	Rotation() int

	// SetRotation writes the page rotation. Backends try their
	// available dictionary-write paths internally.
	SetRotation(degrees int) error

	// ApplyRedactions applies every redaction mark on the page,
	// permanently removing marked content. Argument arity varies by
	// backend build; callers try the most specific form first. A nil
	// error means the pass ran; callers must still verify that no
	// redaction marks remain.
	ApplyRedactions(args ...any) error
}

// Annotation is a native annotation handle. Handles are only valid for
// the page object they were obtained from; after a page reload every
// prior handle returns ErrDetached from mutation calls.
type Annotation interface {
	Subtype() Subtype

	// Rect and SetRect use display space (top-left origin).
	Rect() (geom.Rect, error)
	SetRect(r geom.Rect) error

	Color() ([]float64, bool)
	SetColor(rgb []float64) error

	SetBorderWidth(w float64) error

	Opacity() (float64, bool)
	SetOpacity(v float64) error

	// QuadPoints and SetQuadPoints use the flat 8×n display-space form.
	QuadPoints() ([]float64, error)
	SetQuadPoints(coords []float64) error

	// InkList stores one slice of alternating x,y values per stroke,
	// display space.
	InkList() ([][]float64, error)
	SetInkList(strokes [][]float64) error

	// Line endpoints are PDF space, start then end, order preserved on
	// read-back.
	Line() (start, end geom.Point, err error)
	SetLine(start, end geom.Point) error

	Contents() (string, error)
	SetContents(text string) error

	// SetAppearanceImage attaches a raster image as the annotation's
	// appearance stream so external viewers render it without the
	// application's own renderer. Optional; gated by
	// CapAppearanceImage.
	SetAppearanceImage(data []byte) error

	// Object exposes the underlying object dictionary for entries with
	// no dedicated accessor.
	Object() Dict

	// Update commits pending property changes to the native object.
	// Returns ErrDetached when the handle's page has been reloaded.
	Update() error
}

// Dict is the annotation object dictionary: string keys mapping to
// normalized values. Put accepts any Value; backends translate to their
// own primitive encodings.
type Dict interface {
	Get(key string) (Value, bool)
	Put(key string, v Value) error
	Delete(key string)
	Keys() []string
}
