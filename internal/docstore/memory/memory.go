// Package memory keeps the document in process memory. It backs the
// DATA_BACKEND=memory development mode and the sync engine tests.
package memory

import (
	"context"
	"fmt"
	"os"
	"sync"

	"housetrend/internal/core"
	"housetrend/internal/docstore"
)

var (
	_ docstore.Versioned  = (*Store)(nil)
	_ docstore.Reader     = (*Store)(nil)
	_ docstore.Downloader = (*Store)(nil)
)

type Store struct {
	mu        sync.Mutex
	doc       *core.Document
	rev       int
	downloads []core.Document
	err       error
}

func New() *Store { return &Store{} }

// NewWithDocument returns a store already holding doc.
func NewWithDocument(doc core.Document) *Store {
	s := &Store{}
	s.set(doc)
	return s
}

// NewFromFile seeds the store from a document file. A missing or broken file
// leaves it empty.
func NewFromFile(path string) *Store {
	b, err := os.ReadFile(path)
	if err != nil {
		return New()
	}
	doc, err := core.DecodeDocument(b)
	if err != nil {
		return New()
	}
	return NewWithDocument(doc)
}

// Fail makes every following call return err. Nil clears it.
func (s *Store) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *Store) set(doc core.Document) {
	raw, _ := doc.Encode()
	cp, _ := core.DecodeDocument(raw)
	s.doc = &cp
	s.rev++
}

func (s *Store) version() string { return fmt.Sprintf("mem:%d", s.rev) }

// Fetch returns a copy of the held document and its revision.
func (s *Store) Fetch(ctx context.Context) (core.Document, string, error) {
	doc, err := s.Read(ctx)
	if err != nil {
		return core.Document{}, "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return doc, s.version(), nil
}

func (s *Store) Read(_ context.Context) (core.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return core.Document{}, s.err
	}
	if s.doc == nil {
		return core.Document{}, docstore.ErrNotFound
	}
	raw, _ := s.doc.Encode()
	return core.DecodeDocument(raw)
}

// Put replaces the document when version matches the current revision.
func (s *Store) Put(_ context.Context, doc core.Document, version string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	switch {
	case s.doc == nil && version != "":
		return "", fmt.Errorf("%w: no document for version %s", docstore.ErrVersionConflict, version)
	case s.doc != nil && version != s.version():
		return "", fmt.Errorf("%w: have %s, got %q", docstore.ErrVersionConflict, s.version(), version)
	}
	s.set(doc)
	return s.version(), nil
}

// Download records doc and returns a synthetic location.
func (s *Store) Download(_ context.Context, doc core.Document) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.downloads = append(s.downloads, doc)
	return fmt.Sprintf("mem:download:%d", len(s.downloads)), nil
}

// Downloads returns every document handed to Download.
func (s *Store) Downloads() []core.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Document(nil), s.downloads...)
}
