package writer

import (
	"fmt"
	"log"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
)

// addRedaction encodes a redaction mark. The rect is clamped to page
// bounds before writing: the engine silently ignores content outside
// the page, which would otherwise produce a redaction that does
// nothing. Bottom above top is corrected by swapping, never dropped.
// The mark alone removes nothing; ApplyPageRedactions runs the pass.
func (w *Writer) addRedaction(page engine.Page, pageSize [2]float64, a *annot.Annotation) (engine.Annotation, error) {
	clamped := a.Rect().Clamp(pageSize[0], pageSize[1])
	if clamped.IsDegenerate() {
		return nil, fmt.Errorf("redaction rect entirely outside page bounds")
	}
	a.SetRect(clamped)

	na, err := page.CreateAnnotation(engine.SubtypeRedact)
	if err != nil {
		return nil, err
	}
	// ToNativeRect keeps bottom < top in display space; Normalized
	// guards the invariant if the canonical rect arrived inverted.
	if err := na.SetRect(nativeRect(a, pageSize[1]).Normalized()); err != nil {
		return nil, fmt.Errorf("set rect: %w", err)
	}
	if err := w.setCommon(na, a); err != nil {
		return nil, err
	}
	if err := na.Update(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return na, nil
}

// ApplyPageRedactions runs the engine's redaction pass for every mark on
// the page, trying argument arities in descending specificity, then
// reloads the page (the engine caches parsed content) and verifies no
// redaction marks remain. Leftover marks are a recoverable warning,
// surfaced through the returned count and the log; a pass that fails
// under every arity is returned as an error, since a silently failed
// redaction is a data-leak risk.
func (w *Writer) ApplyPageRedactions(pageIndex int) (remaining int, err error) {
	page, err := w.doc.LoadPage(pageIndex)
	if err != nil {
		return 0, fmt.Errorf("load page %d: %w", pageIndex, err)
	}

	applied := false
	for _, args := range w.caps.RedactionArities() {
		if err := page.ApplyRedactions(args...); err == nil {
			applied = true
			break
		}
	}
	if !applied {
		return 0, fmt.Errorf("page %d: redaction apply failed under every attempted signature", pageIndex)
	}

	reloaded, err := w.doc.LoadPage(pageIndex)
	if err != nil {
		return 0, fmt.Errorf("reload page %d after redaction: %w", pageIndex, err)
	}
	natives, err := reloaded.Annotations()
	if err != nil {
		return 0, fmt.Errorf("enumerate page %d after redaction: %w", pageIndex, err)
	}
	for _, na := range natives {
		if na.Subtype() == engine.SubtypeRedact {
			remaining++
		}
	}
	if remaining > 0 {
		log.Printf("writer: page %d: %d redaction mark(s) survived the apply pass", pageIndex, remaining)
	}
	return remaining, nil
}
