package loader

import (
	"fmt"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
)

// AcroForm field flag bits (Ff entry). Bit numbers are 1-based per the
// PDF convention.
const (
	ffReadOnly  = 1 << 0  // bit 1
	ffRequired  = 1 << 1  // bit 2
	ffMultiline = 1 << 12 // bit 13
	ffRadio     = 1 << 15 // bit 16
	ffCombo     = 1 << 17 // bit 18
)

// decodeWidget decodes a Widget native into a formField annotation.
// Field type comes from the FT name entry, behavior from the Ff flags,
// value from V with AS as the appearance-state fallback.
func decodeWidget(na engine.Annotation, pageIndex int, pageHeight float64) (*annot.Annotation, error) {
	rect, err := pdfRect(na, pageHeight)
	if err != nil {
		return nil, err
	}
	obj := na.Object()

	ft := ""
	if v, ok := obj.Get("FT"); ok {
		// Name-object values may arrive with the leading marker
		// character; Text strips it before comparison.
		ft, _ = v.Text()
	}

	var flags int64
	if v, ok := obj.Get("Ff"); ok {
		flags, _ = v.Integer()
	}

	field := &annot.FormFieldData{
		ReadOnly:  flags&ffReadOnly != 0,
		Required:  flags&ffRequired != 0,
		Multiline: flags&ffMultiline != 0,
	}

	switch ft {
	case "Tx":
		field.Type = annot.FieldText
	case "Btn":
		if flags&ffRadio != 0 {
			field.Type = annot.FieldRadio
		} else {
			field.Type = annot.FieldCheckbox
		}
	case "Ch":
		// Combo and list boxes both decode as dropdowns; the editor
		// renders them the same way.
		field.Type = annot.FieldDropdown
	default:
		return nil, fmt.Errorf("widget with unsupported field type %q", ft)
	}

	if v, ok := obj.Get("T"); ok {
		field.Name, _ = v.Text()
	}
	if field.Name == "" {
		return nil, fmt.Errorf("widget without a field name")
	}

	if v, ok := obj.Get("Opt"); ok {
		if items, ok := v.Items(); ok {
			for _, item := range items {
				if s, ok := item.Text(); ok {
					field.Options = append(field.Options, s)
				}
			}
		}
	}
	if v, ok := obj.Get("RadioGroup"); ok {
		field.RadioGroup, _ = v.Text()
	}

	field.Value = decodeFieldValue(obj, field.Type)

	if field.Type == annot.FieldText {
		if v, ok := obj.Get("DateFormat"); ok {
			if s, ok := v.Text(); ok && s != "" {
				field.Type = annot.FieldDate
			}
		}
	}

	a := common(na, annot.KindFormField, pageIndex, rect)
	a.FormField = field
	return a, nil
}

// decodeFieldValue reads V, falling back to AS for button fields. The
// stored value may be a name, a string, or a boolean; checkbox and
// radio values normalize to real booleans derived from the Yes/On
// literals, never the literal strings.
func decodeFieldValue(obj engine.Dict, ft annot.FieldType) any {
	read := func(key string) (engine.Value, bool) { return obj.Get(key) }
	v, ok := read("V")
	if !ok {
		v, ok = read("AS")
	}
	if !ok {
		if ft == annot.FieldCheckbox || ft == annot.FieldRadio {
			return false
		}
		return ""
	}
	switch ft {
	case annot.FieldCheckbox, annot.FieldRadio:
		if b, ok := v.Flag(); ok {
			return b
		}
		if s, ok := v.Text(); ok {
			return s == "Yes" || s == "On"
		}
		return false
	default:
		if s, ok := v.Text(); ok {
			return s
		}
		if f, ok := v.Number(); ok {
			return fmt.Sprintf("%g", f)
		}
		return ""
	}
}
