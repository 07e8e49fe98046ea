package writer

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
)

const stampRectTolerance = 0.5

// addDisguised encodes the application-defined kinds (stamp, image,
// callout, rich text box) that have no native schema. The carrier is a
// FreeText annotation: the JSON envelope goes into the contents field
// and the round-trip markers onto the object dictionary, each attempted
// in two representations because some object-write paths silently drop
// one of them.
//
// The commit step is observed to sometimes resize the carrier rect to a
// default footprint, so the rect is verified after Update and re-forced
// if it drifted.
func (w *Writer) addDisguised(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	na, err := page.CreateAnnotation(engine.SubtypeFreeText)
	if err != nil {
		return nil, err
	}
	pageHeight := pageSize[1]
	want := nativeRect(a, pageHeight)
	if err := na.SetRect(want); err != nil {
		return nil, fmt.Errorf("set rect: %w", err)
	}

	payload, err := annot.EncodeEnvelope(a)
	if err != nil {
		return nil, err
	}
	if err := na.SetContents(payload); err != nil {
		return nil, fmt.Errorf("set contents: %w", err)
	}

	obj := na.Object()
	w.writeMarker(obj, annot.DictMarkerCustom)
	if a.Kind == annot.KindStamp {
		w.writeMarker(obj, annot.DictMarkerStamp)
	}
	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	if err := w.setDisguisedExtras(obj, a); err != nil {
		return nil, err
	}
	if a.Kind == annot.KindStamp || a.Kind == annot.KindImage {
		w.setRasterAppearance(na, a)
	}

	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	// Post-commit rect verification.
	got, err := na.Rect()
	if err == nil && !got.ApproxEqual(want, stampRectTolerance) {
		if err := na.SetRect(want); err != nil {
			return nil, fmt.Errorf("re-force rect after commit drift: %w", err)
		}
		if err := na.Update(); err != nil {
			return nil, fmt.Errorf("recommit after rect drift: %w", err)
		}
	}
	return na, nil
}

// setDisguisedExtras writes the metadata entries that have no place in
// either the native schema or the JSON envelope consumers of older
// builds expect.
func (w *Writer) setDisguisedExtras(obj engine.Dict, a *annot.Annotation) error {
	switch a.Kind {
	case annot.KindCallout:
		if a.Callout != nil && a.Callout.Anchor != nil {
			anchor := engine.NumberArray([]float64{a.Callout.Anchor.X, a.Callout.Anchor.Y})
			if err := obj.Put("CalloutAnchor", anchor); err != nil {
				return fmt.Errorf("set callout anchor: %w", err)
			}
		}
	case annot.KindText:
		if a.Contents != "" && strings.Contains(a.Contents, "<") {
			if err := obj.Put(annot.DictHTMLContent, engine.String(a.Contents)); err != nil {
				return fmt.Errorf("set html content: %w", err)
			}
		}
		if a.Color != nil {
			if err := obj.Put(annot.DictHasBackground, engine.Bool(true)); err != nil {
				return fmt.Errorf("set background flag: %w", err)
			}
			bg := engine.NumberArray([]float64{a.Color.R, a.Color.G, a.Color.B})
			if err := obj.Put(annot.DictBackgroundColor, bg); err != nil {
				return fmt.Errorf("set background color: %w", err)
			}
		}
	}
	return nil
}

// setRasterAppearance attaches the stamp's raster as the carrier's
// appearance stream so external viewers render it. Optional capability;
// a build without it still round-trips through the envelope.
func (w *Writer) setRasterAppearance(na engine.Annotation, a *annot.Annotation) {
	if !w.caps.Has(engine.CapAppearanceImage) {
		return
	}
	data := rasterData(a)
	if len(data) == 0 {
		return
	}
	_ = na.SetAppearanceImage(data)
}

func rasterData(a *annot.Annotation) []byte {
	var encoded string
	switch {
	case a.Stamp != nil && a.Stamp.ImageData != "":
		encoded = a.Stamp.ImageData
	case a.Image != nil && a.Image.Data != "":
		encoded = a.Image.Data
	default:
		return nil
	}
	// Data URLs carry a media-type prefix; raw base64 does not.
	if i := strings.IndexByte(encoded, ','); i >= 0 && strings.HasPrefix(encoded, "data:") {
		encoded = encoded[i+1:]
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil
	}
	return raw
}
