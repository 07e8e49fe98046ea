package writer

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
)

// AcroForm field flag bits (Ff entry), 1-based per the PDF convention.
const (
	ffReadOnly  = 1 << 0  // bit 1
	ffRequired  = 1 << 1  // bit 2
	ffMultiline = 1 << 12 // bit 13
	ffRadio     = 1 << 15 // bit 16
	ffCombo     = 1 << 17 // bit 18
)

// addFormField encodes an interactive form field as a Widget. Creation
// alone guarantees neither linkage the field needs: the engine contract
// makes CreateAnnotation join the page's annotation array, and
// AcroFormAppend joins the document's form fields array. A field
// missing from the latter is not recognized as interactive by other PDF
// consumers.
func (w *Writer) addFormField(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	f := a.FormField

	na, err := page.CreateAnnotation(engine.SubtypeWidget)
	if err != nil {
		return nil, err
	}
	if err := na.SetRect(nativeRect(a, pageSize[1])); err != nil {
		return nil, fmt.Errorf("set rect: %w", err)
	}

	obj := na.Object()
	if err := obj.Put("FT", engine.Name(fieldTypeName(f.Type))); err != nil {
		return nil, fmt.Errorf("set field type: %w", err)
	}
	if err := obj.Put("T", engine.String(f.Name)); err != nil {
		return nil, fmt.Errorf("set field name: %w", err)
	}
	if err := obj.Put("Ff", engine.Int(fieldFlags(f))); err != nil {
		return nil, fmt.Errorf("set field flags: %w", err)
	}

	if err := writeFieldValue(obj, a); err != nil {
		return nil, err
	}

	if len(f.Options) > 0 {
		opts := make([]engine.Value, len(f.Options))
		for i, o := range f.Options {
			opts[i] = engine.String(o)
		}
		if err := obj.Put("Opt", engine.Array(opts...)); err != nil {
			return nil, fmt.Errorf("set options: %w", err)
		}
	}
	if f.RadioGroup != "" {
		if err := obj.Put("RadioGroup", engine.String(f.RadioGroup)); err != nil {
			return nil, fmt.Errorf("set radio group: %w", err)
		}
	}
	if f.Type == annot.FieldDate {
		if err := obj.Put("DateFormat", engine.String("yyyy-mm-dd")); err != nil {
			return nil, fmt.Errorf("set date format: %w", err)
		}
	}

	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	if err := w.doc.AcroFormAppend(na); err != nil {
		return nil, fmt.Errorf("link into form fields array: %w", err)
	}
	return na, nil
}

// UpdateFormField rewrites the mutable properties of an existing widget
// through its native handle: value, appearance state, flags, rect. The
// caller supplies the page height; reloading the page here would detach
// the very handle being updated.
func (w *Writer) UpdateFormField(na engine.Annotation, pageHeight float64, a *annot.Annotation) error {
	if err := na.SetRect(nativeRect(a, pageHeight)); err != nil {
		return fmt.Errorf("set rect: %w", err)
	}
	obj := na.Object()
	if err := obj.Put("Ff", engine.Int(fieldFlags(a.FormField))); err != nil {
		return fmt.Errorf("set field flags: %w", err)
	}
	if err := writeFieldValue(obj, a); err != nil {
		return err
	}
	if err := na.Update(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func fieldTypeName(t annot.FieldType) string {
	switch t {
	case annot.FieldCheckbox, annot.FieldRadio:
		return "Btn"
	case annot.FieldDropdown:
		return "Ch"
	default:
		// Text and date fields are both Tx; date carries its own
		// format entry.
		return "Tx"
	}
}

func fieldFlags(f *annot.FormFieldData) int64 {
	var flags int64
	if f.ReadOnly {
		flags |= ffReadOnly
	}
	if f.Required {
		flags |= ffRequired
	}
	if f.Multiline {
		flags |= ffMultiline
	}
	if f.Type == annot.FieldRadio {
		flags |= ffRadio
	}
	if f.Type == annot.FieldDropdown {
		flags |= ffCombo
	}
	return flags
}

// writeFieldValue writes the value/appearance-state pair. Checkbox and
// radio booleans map to the literal names Yes/Off; text-like values go
// in as strings.
func writeFieldValue(obj engine.Dict, a *annot.Annotation) error {
	f := a.FormField
	switch f.Type {
	case annot.FieldCheckbox, annot.FieldRadio:
		state := "Off"
		if a.BoolValue() {
			state = "Yes"
		}
		if err := obj.Put("V", engine.Name(state)); err != nil {
			return fmt.Errorf("set value: %w", err)
		}
		if err := obj.Put("AS", engine.Name(state)); err != nil {
			return fmt.Errorf("set appearance state: %w", err)
		}
	default:
		if err := obj.Put("V", engine.String(a.StringValue())); err != nil {
			return fmt.Errorf("set value: %w", err)
		}
	}
	return nil
}
