package descriptions

// Comprehensive tool descriptions with practical examples and use cases

const (
	PDFOpenDescription = `Open a PDF document and start an annotation session.

**When to use:** Before any annotation operation. Every other tool needs the document id this returns.

**Why it's useful:** Decodes the annotations already embedded in the file and merges them with the persisted annotation set, so edits from earlier sessions are never lost.

**Examples:**
• Start reviewing a contract: "Open contract.pdf and list its annotations"
• Resume earlier work: "Open report.pdf with document_id report-2026 to pick up the stored set"

**Common workflows:**
1. Review: pdf_open → pdf_annotations_load → edit → pdf_annotations_put → pdf_annotations_sync
2. Resume: pdf_open with a stable document_id → stored annotations reattach to the file

**Best practices:** Pass a stable document_id when the same file will be opened across sessions; the annotation store is keyed by it.`

	PDFAnnotationsLoadDescription = `Decode the native annotations of an open document into canonical records.

**When to use:** After opening a document, or after a sync, to see the current annotation state as structured JSON.

**Why it's useful:** Translates raw PDF annotation objects (quads, widgets, disguised stamps) into one uniform record format with stable ids, regardless of which tool created them.

**Examples:**
• Inspect one page: "Load the annotations on page 3 of doc-1"
• Full audit: "Load every annotation in doc-1 and summarize them"

**Common workflows:**
1. Edit loop: load → modify records → pdf_annotations_put → pdf_annotations_sync
2. Verification: sync → load → confirm geometry round-tripped

**Best practices:** Treat the returned ids as permanent; reuse them when putting records back so existing native objects are updated instead of duplicated.`

	PDFAnnotationsPutDescription = `Replace the canonical annotation set of an open document.

**When to use:** After editing, adding, or removing annotation records client side.

**Why it's useful:** Validates every record before accepting it and persists the set immediately, so a crash never loses an edit.

**Examples:**
• Add a highlight: "Put the existing records plus one new highlight on page 0"
• Clear a page: "Put the set with page 2's annotations removed"

**Common workflows:**
1. Edit loop: pdf_annotations_load → modify → pdf_annotations_put → pdf_annotations_sync
2. Import: build records externally → put → sync

**Best practices:** Always send the complete set; records omitted from the payload are dropped from the document on the next sync.`

	PDFAnnotationsSyncDescription = `Embed the canonical annotation set into the document, apply redactions, and save.

**When to use:** After putting annotations, whenever the PDF file itself must reflect the current set.

**Why it's useful:** The sync is idempotent: existing native objects are updated in place, stale handles are re-adopted by id or geometry, and redactions remove the content under their areas exactly once.

**Examples:**
• Save to disk: "Sync doc-1 to /out/reviewed.pdf"
• In-memory check: "Sync doc-1 and report the document size"

**Common workflows:**
1. Publish: pdf_annotations_put → pdf_annotations_sync with output_path → distribute file
2. Redact: put records with redact annotations → sync → content under the areas is gone

**Best practices:** Redactions are destructive in the output file; keep the original if the content may be needed again.`

	PDFPageRotateDescription = `Rotate a page by a right-angle delta and remap its annotations.

**When to use:** A page is displayed sideways or upside down and its annotations must stay glued to the content.

**Why it's useful:** Rewrites every annotation's geometry (rects, quads, ink paths, line endpoints) through the same rotation, so marks stay on the words they cover.

**Examples:**
• Fix a scan: "Rotate page 0 of doc-1 by 90 degrees"
• Undo: "Rotate page 0 by 270 to get back where it was"

**Common workflows:**
1. Cleanup: open scanned file → rotate offending pages → sync

**Best practices:** The delta is relative to the page's current rotation and rounds to the nearest multiple of 90; four 90 degree rotations restore the original state.`

	PDFPagesEditDescription = `Resize, reorder, insert or delete a page.

**When to use:** The document's page structure needs to change, not just its annotations.

**Why it's useful:** Annotation page indices are remapped automatically: reordering moves them with their page, deleting a page drops its annotations, inserting shifts later pages up.

**Examples:**
• Remove a blank: "Delete page 3 of doc-1"
• Cover sheet: "Insert a 612x792 page at index 0"
• Shuffle: "Reorder page 5 to index 1"

**Common workflows:**
1. Assembly: open → insert/reorder/delete pages → pdf_annotations_sync → save

**Best practices:** Run pdf_annotations_load afterwards to see the remapped indices before further edits.`

	PDFValidateFileDescription = `Verify PDF file integrity and readability before processing.

**When to use:** Before opening any PDF file, especially in automated workflows or when handling user uploads.

**Why it's useful:** Prevents processing errors, identifies corrupted or oversized files early, and reports the page count of readable ones.

**Examples:**
• Upload verification: "Check user-uploaded contract.pdf is valid before opening it"
• Batch safety: "Validate all PDFs in /inbox/ before annotating them"

**Common workflows:**
1. Automated pipeline: validate → open if valid → handle rejects gracefully

**Best practices:** Always run this first in automated workflows; a failed check comes back as a report, not an error, so batch runs keep going.`

	PDFCloseDescription = `Persist the annotation set and close a document session.

**When to use:** When work on a document is finished, or before reopening it with different options.

**Why it's useful:** Writes the canonical set to the store and releases the in-memory document; the next pdf_open with the same document_id picks the set right back up.

**Examples:**
• Finish a review: "Close doc-1"

**Common workflows:**
1. Session end: pdf_annotations_sync → pdf_close

**Best practices:** Close does not write the PDF file; run pdf_annotations_sync with an output_path first if the file itself must be saved.`
)
