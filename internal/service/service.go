// Package service is the orchestration facade the host surface talks
// to: it owns document sessions and exposes the annotation engine's
// operations as request/result pairs.
package service

import (
	"fmt"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/pagemark/pagemark/internal/annot"
	"github.com/pagemark/pagemark/internal/engine"
	"github.com/pagemark/pagemark/internal/loader"
	"github.com/pagemark/pagemark/internal/pageops"
	"github.com/pagemark/pagemark/internal/preflight"
	"github.com/pagemark/pagemark/internal/store"
	"github.com/pagemark/pagemark/internal/syncer"
)

// session is one open document. The engine document inside is mutated
// by one logical operation at a time; the engine performs no internal
// locking and none is added here beyond the registry guard.
type session struct {
	doc        engine.Document
	set        *annot.Set
	sourcePath string
}

// Service owns the open sessions and the canonical store.
type Service struct {
	opener  engine.Opener
	store   *store.Store
	checker *preflight.Checker

	mu       sync.Mutex
	sessions map[string]*session
}

// New creates a service. The checker may be nil to skip preflight
// validation (test backends produce buffers the lightweight parser does
// not read).
func New(opener engine.Opener, st *store.Store, checker *preflight.Checker) *Service {
	return &Service{
		opener:   opener,
		store:    st,
		checker:  checker,
		sessions: map[string]*session{},
	}
}

func (s *Service) session(docID string) (*session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[docID]
	if !ok {
		return nil, fmt.Errorf("no open document with id %q", docID)
	}
	return sess, nil
}

// OpenDocument opens a document from disk or from a byte buffer,
// registers a session, and merges the store's annotation set with the
// marks embedded in the file.
func (s *Service) OpenDocument(req OpenDocumentRequest) (*OpenDocumentResult, error) {
	data := req.Data
	if req.Path != "" {
		if s.checker != nil {
			if _, err := s.checker.CheckFile(req.Path); err != nil {
				return nil, fmt.Errorf("preflight failed: %w", err)
			}
		}
		b, err := os.ReadFile(req.Path)
		if err != nil {
			return nil, fmt.Errorf("read document: %w", err)
		}
		data = b
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("open requires a path or a data buffer")
	}

	doc, err := s.opener.Open(data)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}

	docID := req.DocumentID
	if docID == "" {
		docID = uuid.NewString()
	}

	set, err := s.store.Load(docID)
	if err != nil {
		return nil, err
	}
	mergeLoaded(set, loader.LoadAll(doc))

	s.mu.Lock()
	s.sessions[docID] = &session{doc: doc, set: set, sourcePath: req.Path}
	s.mu.Unlock()

	return &OpenDocumentResult{
		DocumentID:  docID,
		Pages:       doc.PageCount(),
		Annotations: len(set.Annotations),
	}, nil
}

// mergeLoaded folds annotations decoded from the document into the
// stored set. The store wins on conflicts: a stored record is the
// user's latest edit, while the decoded one is whatever survived the
// previous save. Decoded annotations still contribute their fresh
// native handles.
func mergeLoaded(set *annot.Set, decoded []*annot.Annotation) {
	for _, d := range decoded {
		if existing := set.Find(d.ID); existing != nil {
			existing.NativeRef = d.NativeRef
			continue
		}
		set.Annotations = append(set.Annotations, d)
	}
}

// LoadAnnotations re-decodes the native annotation graph for one page
// or the whole document.
func (s *Service) LoadAnnotations(req LoadAnnotationsRequest) (*LoadAnnotationsResult, error) {
	sess, err := s.session(req.DocumentID)
	if err != nil {
		return nil, err
	}
	var decoded []*annot.Annotation
	if req.PageIndex != nil {
		decoded = loader.LoadPageAnnotations(sess.doc, *req.PageIndex)
	} else {
		decoded = loader.LoadAll(sess.doc)
	}
	return &LoadAnnotationsResult{Annotations: decoded}, nil
}

// PutAnnotations replaces the session's canonical set and persists it to
// the store.
func (s *Service) PutAnnotations(req PutAnnotationsRequest) (*PutAnnotationsResult, error) {
	sess, err := s.session(req.DocumentID)
	if err != nil {
		return nil, err
	}
	for _, a := range req.Annotations {
		if err := a.Validate(); err != nil {
			return nil, err
		}
	}
	// Carry native handles over from the current set so the sync engine
	// can update in place.
	for _, a := range req.Annotations {
		if existing := sess.set.Find(a.ID); existing != nil {
			a.NativeRef = existing.NativeRef
		}
	}
	sess.set.Annotations = req.Annotations
	if err := s.store.Save(sess.set); err != nil {
		return nil, err
	}
	return &PutAnnotationsResult{Count: len(req.Annotations)}, nil
}

// SyncDocument pushes the canonical set into the native object graph,
// applies redactions, and serializes the document. When OutputPath is
// set the bytes are also written to disk.
func (s *Service) SyncDocument(req SyncDocumentRequest) (*SyncDocumentResult, error) {
	sess, err := s.session(req.DocumentID)
	if err != nil {
		return nil, err
	}
	sy := syncer.New(sess.doc)
	if err := sy.SyncAll(sess.set.Annotations); err != nil {
		return nil, fmt.Errorf("sync annotations: %w", err)
	}
	data, err := sy.Save()
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(sess.set); err != nil {
		return nil, err
	}
	if req.OutputPath != "" {
		if err := os.WriteFile(req.OutputPath, data, 0o640); err != nil {
			return nil, fmt.Errorf("write document: %w", err)
		}
	}
	return &SyncDocumentResult{Data: data, Bytes: len(data)}, nil
}

// RotatePage rotates one page and remaps its annotations.
func (s *Service) RotatePage(req RotatePageRequest) (*RotatePageResult, error) {
	sess, err := s.session(req.DocumentID)
	if err != nil {
		return nil, err
	}
	if err := pageops.RotatePage(sess.doc, sess.set.Annotations, req.PageIndex, req.DeltaDegrees); err != nil {
		return nil, err
	}
	if err := s.store.Save(sess.set); err != nil {
		return nil, err
	}
	page, err := sess.doc.LoadPage(req.PageIndex)
	if err != nil {
		return nil, fmt.Errorf("load page %d: %w", req.PageIndex, err)
	}
	return &RotatePageResult{Rotation: page.Rotation()}, nil
}

// EditPages applies a resize, reorder, insert or delete operation.
func (s *Service) EditPages(req EditPagesRequest) (*EditPagesResult, error) {
	sess, err := s.session(req.DocumentID)
	if err != nil {
		return nil, err
	}
	switch req.Op {
	case PageOpResize:
		err = pageops.ResizePage(sess.doc, req.PageIndex, req.Width, req.Height)
	case PageOpReorder:
		err = pageops.ReorderPages(sess.doc, sess.set.Annotations, req.PageIndex, req.TargetIndex)
	case PageOpInsert:
		err = pageops.InsertPage(sess.doc, sess.set.Annotations, req.PageIndex, req.Width, req.Height)
	case PageOpDelete:
		sess.set.Annotations, err = pageops.DeletePage(sess.doc, sess.set.Annotations, req.PageIndex)
	default:
		return nil, fmt.Errorf("unknown page operation %q", req.Op)
	}
	if err != nil {
		return nil, err
	}
	if err := s.store.Save(sess.set); err != nil {
		return nil, err
	}
	return &EditPagesResult{Pages: sess.doc.PageCount()}, nil
}

// CloseDocument persists the canonical set and drops the session. The
// native handles inside die with the session; they are never persisted.
func (s *Service) CloseDocument(req CloseDocumentRequest) error {
	sess, err := s.session(req.DocumentID)
	if err != nil {
		return err
	}
	for _, a := range sess.set.Annotations {
		a.NativeRef = nil
	}
	if err := s.store.Save(sess.set); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.sessions, req.DocumentID)
	s.mu.Unlock()
	return nil
}

// ValidateFile runs the preflight checks against a file on disk. A
// failed check is reported in the result, not as an error.
func (s *Service) ValidateFile(req ValidateFileRequest) (*ValidateFileResult, error) {
	if s.checker == nil {
		return nil, fmt.Errorf("validation is not configured")
	}
	result := &ValidateFileResult{Path: req.Path}
	pages, err := s.checker.CheckFile(req.Path)
	if err != nil {
		result.Error = err.Error()
		return result, nil
	}
	result.Valid = true
	result.Pages = pages
	return result, nil
}
