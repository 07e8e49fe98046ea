package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine/memdoc"
	"github.com/pagemark/pagemark/internal/geom"
)

// The full annotation round trip over the tool surface: open a
// document, replace its annotation set, sync to disk, reload the saved
// file and confirm the marks survived.
func TestServerIntegration_AnnotationRoundTrip(t *testing.T) {
	server, err := NewServer(testConfig(t.TempDir()), testService(t, nil))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()
	path := testDocumentFile(t)

	result, err := server.handleOpen(ctx, callRequest(map[string]interface{}{
		"path":        path,
		"document_id": "doc-1",
	}))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "Annotations: 1") {
		t.Fatalf("expected the embedded highlight to be decoded, got: %s", text)
	}

	stamp := annot.New(annot.KindStamp, 1, geom.Rect{X: 100, Y: 100, Width: 120, Height: 60})
	stamp.Stamp = &annot.StampData{Kind: annot.StampText, Text: "APPROVED"}
	payload, err := json.Marshal([]*annot.Annotation{stamp})
	if err != nil {
		t.Fatalf("failed to marshal annotations: %v", err)
	}

	result, err = server.handlePutAnnotations(ctx, callRequest(map[string]interface{}{
		"document_id": "doc-1",
		"annotations": string(payload),
	}))
	if err != nil {
		t.Fatalf("put failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "Stored 1 annotation(s)") {
		t.Fatalf("expected put confirmation, got: %s", text)
	}

	outPath := filepath.Join(t.TempDir(), "synced.pdf")
	result, err = server.handleSync(ctx, callRequest(map[string]interface{}{
		"document_id": "doc-1",
		"output_path": outPath,
	}))
	if err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "Written to:") {
		t.Fatalf("expected output path in response, got: %s", text)
	}

	result, err = server.handleClose(ctx, callRequest(map[string]interface{}{
		"document_id": "doc-1",
	}))
	if err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "Closed document") {
		t.Fatalf("expected close confirmation, got: %s", text)
	}

	// Reload the synced file directly through the engine and check the
	// stamp landed on page 1.
	data, err := os.ReadFile(outPath)
	if err != nil {
		t.Fatalf("failed to read synced file: %v", err)
	}
	doc, err := (&memdoc.Engine{}).Open(data)
	if err != nil {
		t.Fatalf("failed to reopen synced file: %v", err)
	}
	page, err := doc.LoadPage(1)
	if err != nil {
		t.Fatalf("failed to load page: %v", err)
	}
	refs, err := page.AnnotationRefs()
	if err != nil {
		t.Fatalf("failed to list annotations: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("expected 1 native annotation on page 1, got %d", len(refs))
	}
}

func TestServerIntegration_EditPagesFlow(t *testing.T) {
	server, err := NewServer(testConfig(t.TempDir()), testService(t, nil))
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	ctx := context.Background()
	path := testDocumentFile(t)

	if _, err := server.handleOpen(ctx, callRequest(map[string]interface{}{
		"path":        path,
		"document_id": "doc-1",
	})); err != nil {
		t.Fatalf("open failed: %v", err)
	}

	result, err := server.handleEditPages(ctx, callRequest(map[string]interface{}{
		"document_id": "doc-1",
		"op":          "insert",
		"page_index":  float64(1),
		"width":       float64(595),
		"height":      float64(842),
	}))
	if err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "3 page(s)") {
		t.Errorf("expected 3 pages after insert, got: %s", text)
	}

	result, err = server.handleEditPages(ctx, callRequest(map[string]interface{}{
		"document_id": "doc-1",
		"op":          "delete",
		"page_index":  float64(2),
	}))
	if err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "2 page(s)") {
		t.Errorf("expected 2 pages after delete, got: %s", text)
	}

	result, err = server.handleEditPages(ctx, callRequest(map[string]interface{}{
		"document_id": "doc-1",
		"op":          "shuffle",
		"page_index":  float64(0),
	}))
	if err != nil {
		t.Fatalf("handler failed: %v", err)
	}
	if text := extractTextFromResult(result); !strings.Contains(text, "unknown page operation") {
		t.Errorf("expected unknown op error, got: %s", text)
	}
}
