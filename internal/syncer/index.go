package syncer

import (
	"log"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/geom"
)

// nativeIndex is the per-page replacement for trusting a raw handle: an
// index of the page's current native annotations keyed by stable id and
// by a kind+geometry fingerprint, resolved lazily when a handle turns
// out to be stale or absent.
type nativeIndex struct {
	byID    map[string]engine.Annotation
	entries []indexEntry
}

type indexEntry struct {
	na      engine.Annotation
	subtype engine.Subtype
	rect    geom.Rect // display space
}

func buildIndex(page engine.Page) *nativeIndex {
	idx := &nativeIndex{byID: map[string]engine.Annotation{}}
	natives, err := page.AnnotationRefs()
	if err != nil {
		log.Printf("syncer: page %d index: %v", page.Index(), err)
		return idx
	}
	for _, na := range natives {
		if v, ok := na.Object().Get(annot.DictAnnotationID); ok {
			if id, ok := v.Text(); ok && id != "" {
				idx.byID[id] = na
			}
		}
		rect, err := na.Rect()
		if err != nil {
			continue
		}
		idx.entries = append(idx.entries, indexEntry{na: na, subtype: na.Subtype(), rect: rect.Normalized()})
	}
	return idx
}

// find resolves the canonical annotation to an existing native: exact
// stable-id match first, then subtype-compatible geometry within
// tolerance.
func (idx *nativeIndex) find(a *annot.Annotation, pageHeight float64) engine.Annotation {
	if na, ok := idx.byID[a.ID]; ok {
		return na
	}
	want := geom.ToNativeRect(a.Rect(), pageHeight)
	for _, e := range idx.entries {
		if !subtypeMatches(e.subtype, a) {
			continue
		}
		if e.rect.ApproxEqual(want, matchTolerance) {
			return e.na
		}
	}
	return nil
}

// subtypeMatches reports whether a native subtype can carry the
// canonical kind.
func subtypeMatches(st engine.Subtype, a *annot.Annotation) bool {
	switch a.Kind {
	case annot.KindHighlight:
		if a.Highlight != nil && a.Highlight.Mode == annot.HighlightOverlay {
			return st == engine.SubtypeInk
		}
		return st == engine.SubtypeHighlight
	case annot.KindRedact:
		return st == engine.SubtypeRedact
	case annot.KindFormField:
		return st == engine.SubtypeWidget
	case annot.KindDraw:
		return st == engine.SubtypeInk
	case annot.KindShape:
		if a.Shape == nil {
			return false
		}
		switch a.Shape.Type {
		case annot.ShapeArrow:
			return st == engine.SubtypeLine
		case annot.ShapeCircle:
			return st == engine.SubtypeCircle
		default:
			return st == engine.SubtypeSquare
		}
	case annot.KindStamp, annot.KindImage, annot.KindCallout, annot.KindText:
		return st == engine.SubtypeFreeText || st == engine.SubtypeStamp || st == engine.SubtypeText
	default:
		return false
	}
}
