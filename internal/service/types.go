package service

import "github.com/pagemark/pagemark/internal/annot"

// PageOp selects an EditPages operation.
type PageOp string

const (
	PageOpResize  PageOp = "resize"
	PageOpReorder PageOp = "reorder"
	PageOpInsert  PageOp = "insert"
	PageOpDelete  PageOp = "delete"
)

// OpenDocumentRequest opens a document from a path or a byte buffer.
type OpenDocumentRequest struct {
	Path       string `json:"path,omitempty"`
	Data       []byte `json:"data,omitempty"`
	DocumentID string `json:"document_id,omitempty"`
}

// OpenDocumentResult reports the opened session.
type OpenDocumentResult struct {
	DocumentID  string `json:"document_id"`
	Pages       int    `json:"pages"`
	Annotations int    `json:"annotations"`
}

// LoadAnnotationsRequest decodes native annotations for one page, or
// the whole document when PageIndex is nil.
type LoadAnnotationsRequest struct {
	DocumentID string `json:"document_id"`
	PageIndex  *int   `json:"page_index,omitempty"`
}

// LoadAnnotationsResult carries the decoded canonical records.
type LoadAnnotationsResult struct {
	Annotations []*annot.Annotation `json:"annotations"`
}

// PutAnnotationsRequest replaces the session's canonical set.
type PutAnnotationsRequest struct {
	DocumentID  string              `json:"document_id"`
	Annotations []*annot.Annotation `json:"annotations"`
}

// PutAnnotationsResult reports the accepted count.
type PutAnnotationsResult struct {
	Count int `json:"count"`
}

// SyncDocumentRequest syncs the canonical set into the document and
// serializes it.
type SyncDocumentRequest struct {
	DocumentID string `json:"document_id"`
	OutputPath string `json:"output_path,omitempty"`
}

// SyncDocumentResult carries the serialized document.
type SyncDocumentResult struct {
	Data  []byte `json:"-"`
	Bytes int    `json:"bytes"`
}

// RotatePageRequest rotates a page by a delta in degrees.
type RotatePageRequest struct {
	DocumentID   string `json:"document_id"`
	PageIndex    int    `json:"page_index"`
	DeltaDegrees int    `json:"delta_degrees"`
}

// RotatePageResult reports the page's absolute rotation after the edit.
type RotatePageResult struct {
	Rotation int `json:"rotation"`
}

// EditPagesRequest applies one structural page operation.
type EditPagesRequest struct {
	DocumentID  string  `json:"document_id"`
	Op          PageOp  `json:"op"`
	PageIndex   int     `json:"page_index"`
	TargetIndex int     `json:"target_index,omitempty"`
	Width       float64 `json:"width,omitempty"`
	Height      float64 `json:"height,omitempty"`
}

// EditPagesResult reports the page count after the edit.
type EditPagesResult struct {
	Pages int `json:"pages"`
}

// CloseDocumentRequest drops an open session.
type CloseDocumentRequest struct {
	DocumentID string `json:"document_id"`
}

// ValidateFileRequest checks a document on disk without opening a
// session.
type ValidateFileRequest struct {
	Path string `json:"path"`
}

// ValidateFileResult reports the outcome of a validation check.
type ValidateFileResult struct {
	Path  string `json:"path"`
	Valid bool   `json:"valid"`
	Pages int    `json:"pages,omitempty"`
	Error string `json:"error,omitempty"`
}
