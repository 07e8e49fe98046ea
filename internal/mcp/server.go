// Package mcp exposes the annotation engine to host applications over
// the Model Context Protocol.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/config"
	"github.com/pagemark/pagemark/internal/descriptions"
	"github.com/pagemark/pagemark/internal/service"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	svc       *service.Service
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, svc *service.Service) (*Server, error) {
	if svc == nil {
		return nil, fmt.Errorf("service cannot be nil")
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		config:    cfg,
		svc:       svc,
		mcpServer: mcpServer,
	}

	s.registerTools()

	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	openTool := mcp.NewTool(
		"pdf_open",
		mcp.WithDescription(descriptions.PDFOpenDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
		mcp.WithString("document_id",
			mcp.Description("Stable document id; generated when omitted"),
		),
	)
	s.mcpServer.AddTool(openTool, s.handleOpen)

	loadTool := mcp.NewTool(
		"pdf_annotations_load",
		mcp.WithDescription(descriptions.PDFAnnotationsLoadDescription),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Id of an open document session"),
		),
		mcp.WithNumber("page_index",
			mcp.Description("0-based page index; all pages when omitted"),
		),
	)
	s.mcpServer.AddTool(loadTool, s.handleLoadAnnotations)

	putTool := mcp.NewTool(
		"pdf_annotations_put",
		mcp.WithDescription(descriptions.PDFAnnotationsPutDescription),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Id of an open document session"),
		),
		mcp.WithString("annotations",
			mcp.Required(),
			mcp.Description("JSON array of canonical annotation records"),
		),
	)
	s.mcpServer.AddTool(putTool, s.handlePutAnnotations)

	syncTool := mcp.NewTool(
		"pdf_annotations_sync",
		mcp.WithDescription(descriptions.PDFAnnotationsSyncDescription),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Id of an open document session"),
		),
		mcp.WithString("output_path",
			mcp.Description("Where to write the saved document; in-memory only when omitted"),
		),
	)
	s.mcpServer.AddTool(syncTool, s.handleSync)

	rotateTool := mcp.NewTool(
		"pdf_page_rotate",
		mcp.WithDescription(descriptions.PDFPageRotateDescription),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Id of an open document session"),
		),
		mcp.WithNumber("page_index",
			mcp.Required(),
			mcp.Description("0-based page index"),
		),
		mcp.WithNumber("delta_degrees",
			mcp.Required(),
			mcp.Description("Rotation delta in degrees; rounded to the nearest 90"),
		),
	)
	s.mcpServer.AddTool(rotateTool, s.handleRotatePage)

	editTool := mcp.NewTool(
		"pdf_pages_edit",
		mcp.WithDescription(descriptions.PDFPagesEditDescription),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Id of an open document session"),
		),
		mcp.WithString("op",
			mcp.Required(),
			mcp.Description("One of: resize, reorder, insert, delete"),
		),
		mcp.WithNumber("page_index",
			mcp.Required(),
			mcp.Description("0-based page index the operation applies to"),
		),
		mcp.WithNumber("target_index",
			mcp.Description("Destination index for reorder"),
		),
		mcp.WithNumber("width",
			mcp.Description("Page width for resize/insert"),
		),
		mcp.WithNumber("height",
			mcp.Description("Page height for resize/insert"),
		),
	)
	s.mcpServer.AddTool(editTool, s.handleEditPages)

	validateTool := mcp.NewTool(
		"pdf_validate_file",
		mcp.WithDescription(descriptions.PDFValidateFileDescription),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Full path to the PDF file"),
		),
	)
	s.mcpServer.AddTool(validateTool, s.handleValidateFile)

	closeTool := mcp.NewTool(
		"pdf_close",
		mcp.WithDescription(descriptions.PDFCloseDescription),
		mcp.WithString("document_id",
			mcp.Required(),
			mcp.Description("Id of an open document session"),
		),
	)
	s.mcpServer.AddTool(closeTool, s.handleClose)
}

func (s *Server) handleOpen(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	args := request.GetArguments()
	docID := ""
	if id, ok := args["document_id"].(string); ok {
		docID = id
	}

	result, err := s.svc.OpenDocument(service.OpenDocumentRequest{Path: path, DocumentID: docID})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Opened document: %s\n", path)
	responseText += fmt.Sprintf("Document ID: %s\n", result.DocumentID)
	responseText += fmt.Sprintf("Pages: %d\n", result.Pages)
	responseText += fmt.Sprintf("Annotations: %d\n", result.Annotations)
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleLoadAnnotations(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	req := service.LoadAnnotationsRequest{DocumentID: docID}
	if p, ok := request.GetArguments()["page_index"].(float64); ok {
		page := int(p)
		req.PageIndex = &page
	}

	result, err := s.svc.LoadAnnotations(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := json.MarshalIndent(result.Annotations, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handlePutAnnotations(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	raw, err := request.RequireString("annotations")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var annotations []*annot.Annotation
	if err := json.Unmarshal([]byte(raw), &annotations); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("parse annotations: %v", err)), nil
	}

	result, err := s.svc.PutAnnotations(service.PutAnnotationsRequest{DocumentID: docID, Annotations: annotations})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Stored %d annotation(s)\n", result.Count)), nil
}

func (s *Server) handleSync(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	outputPath := ""
	if p, ok := request.GetArguments()["output_path"].(string); ok {
		outputPath = p
	}

	result, err := s.svc.SyncDocument(service.SyncDocumentRequest{DocumentID: docID, OutputPath: outputPath})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	responseText := fmt.Sprintf("Synced document %s\n", docID)
	responseText += fmt.Sprintf("Size: %d bytes\n", result.Bytes)
	if outputPath != "" {
		responseText += fmt.Sprintf("Written to: %s\n", outputPath)
	}
	return mcp.NewToolResultText(responseText), nil
}

func (s *Server) handleRotatePage(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	pageIndex, ok := args["page_index"].(float64)
	if !ok {
		return mcp.NewToolResultError("page_index is required"), nil
	}
	delta, ok := args["delta_degrees"].(float64)
	if !ok {
		return mcp.NewToolResultError("delta_degrees is required"), nil
	}

	result, err := s.svc.RotatePage(service.RotatePageRequest{
		DocumentID:   docID,
		PageIndex:    int(pageIndex),
		DeltaDegrees: int(delta),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Page %d rotation is now %d°\n", int(pageIndex), result.Rotation)), nil
}

func (s *Server) handleEditPages(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	op, err := request.RequireString("op")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	args := request.GetArguments()
	pageIndex, ok := args["page_index"].(float64)
	if !ok {
		return mcp.NewToolResultError("page_index is required"), nil
	}

	req := service.EditPagesRequest{
		DocumentID: docID,
		Op:         service.PageOp(op),
		PageIndex:  int(pageIndex),
	}
	if t, ok := args["target_index"].(float64); ok {
		req.TargetIndex = int(t)
	}
	if w, ok := args["width"].(float64); ok {
		req.Width = w
	}
	if h, ok := args["height"].(float64); ok {
		req.Height = h
	}

	result, err := s.svc.EditPages(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Document now has %d page(s)\n", result.Pages)), nil
}

func (s *Server) handleValidateFile(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.svc.ValidateFile(service.ValidateFileRequest{Path: path})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if !result.Valid {
		return mcp.NewToolResultText(fmt.Sprintf("File is not a valid PDF: %s\nReason: %s\n", result.Path, result.Error)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("File is a valid PDF: %s\nPages: %d\n", result.Path, result.Pages)), nil
}

func (s *Server) handleClose(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docID, err := request.RequireString("document_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.CloseDocument(service.CloseDocumentRequest{DocumentID: docID}); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Closed document %s\n", docID)), nil
}

// Run starts the server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

func (s *Server) runStdioMode(_ context.Context) error {
	if s.config.IsDebug() {
		log.Printf("Starting pagemark MCP server in stdio mode")
		log.Printf("Document directory: %s", s.config.DocumentDirectory)
	}
	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

func (s *Server) runServerMode(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
	log.Printf("Starting pagemark MCP server on %s", addr)
	sse := server.NewSSEServer(s.mcpServer)
	errCh := make(chan error, 1)
	go func() {
		errCh <- sse.Start(addr)
	}()
	select {
	case <-ctx.Done():
		return sse.Shutdown(context.Background())
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("sse server: %w", err)
		}
		return nil
	}
}
