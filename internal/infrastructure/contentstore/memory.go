package contentstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/storefront/backend/internal/domain/catalog"
)

// MemoryStore is a process-local content store for development and tests
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]catalog.ContentDocument
}

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]catalog.ContentDocument)}
}

// Create stores a copy of doc, keeping a preset doc.ID and generating one otherwise
func (s *MemoryStore) Create(ctx context.Context, doc *catalog.ContentDocument) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %w", catalog.ErrContentWrite, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if _, exists := s.docs[doc.ID]; exists {
		return "", fmt.Errorf("%w: %w: %s", catalog.ErrContentWrite, catalog.ErrDocumentExists, doc.ID)
	}
	s.docs[doc.ID] = *doc
	return doc.ID, nil
}

// Get returns a copy of the stored document
func (s *MemoryStore) Get(ctx context.Context, id string) (*catalog.ContentDocument, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[id]
	if !ok {
		return nil, catalog.ErrDocumentNotFound
	}
	return &doc, nil
}

// SetStatus changes a document's visibility
func (s *MemoryStore) SetStatus(ctx context.Context, id string, status catalog.DocumentStatus) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrContentWrite, err)
	}
	if !status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", catalog.ErrContentWrite, status)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[id]
	if !ok {
		return catalog.ErrDocumentNotFound
	}
	doc.Status = status
	doc.UpdatedAt = time.Now().UTC()
	s.docs[id] = doc
	return nil
}

// Delete removes a document
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", catalog.ErrContentWrite, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.docs[id]; !ok {
		return catalog.ErrDocumentNotFound
	}
	delete(s.docs, id)
	return nil
}

// Len returns the number of stored documents
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Ensure MemoryStore implements ContentStore
var _ catalog.ContentStore = (*MemoryStore)(nil)
