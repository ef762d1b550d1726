// Package memory provides in-memory implementations of the repository
// ports, used for local operation and tests.
package memory

import (
	"context"
	"sync"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/relationship"
	appErrors "resurface-backend/pkg/errors"
)

// ContentRepository is a mutable in-memory content catalog.
type ContentRepository struct {
	mu    sync.RWMutex
	items map[string]*content.Item
	order []string
}

// NewContentRepository creates an empty in-memory content repository.
func NewContentRepository() *ContentRepository {
	return &ContentRepository{items: make(map[string]*content.Item)}
}

// Put adds or replaces a content item. Not part of the ContentRepository
// port; the host feeds the catalog through this.
func (r *ContentRepository) Put(item *content.Item) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[item.ID]; !exists {
		r.order = append(r.order, item.ID)
	}
	r.items[item.ID] = item
}

// Delete removes a content item.
func (r *ContentRepository) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.items[id]; !exists {
		return
	}
	delete(r.items, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// List returns every item in insertion order.
func (r *ContentRepository) List(ctx context.Context) ([]*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	items := make([]*content.Item, 0, len(r.order))
	for _, id := range r.order {
		items = append(items, r.items[id])
	}
	return items, nil
}

// Find returns the item with the given id.
func (r *ContentRepository) Find(ctx context.Context, id string) (*content.Item, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.items[id]
	if !ok {
		return nil, appErrors.NewNotFound("content not found: " + id)
	}
	return item, nil
}

// RelationshipStore is an in-memory RelationshipPersistence.
type RelationshipStore struct {
	mu   sync.RWMutex
	rels map[string]*relationship.Relationship
}

// NewRelationshipStore creates an empty in-memory relationship store.
func NewRelationshipStore() *RelationshipStore {
	return &RelationshipStore{rels: make(map[string]*relationship.Relationship)}
}

// BulkUpsert writes a batch of relationships, keeping at most one edge per
// ordered (source, target) pair.
func (s *RelationshipStore) BulkUpsert(ctx context.Context, rels []*relationship.Relationship) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rel := range rels {
		for id, existing := range s.rels {
			if id != rel.ID && existing.SourceID == rel.SourceID && existing.TargetID == rel.TargetID {
				delete(s.rels, id)
			}
		}
		copied := *rel
		s.rels[rel.ID] = &copied
	}
	return nil
}

// List returns all persisted relationships.
func (s *RelationshipStore) List(ctx context.Context) ([]*relationship.Relationship, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*relationship.Relationship, 0, len(s.rels))
	for _, rel := range s.rels {
		copied := *rel
		out = append(out, &copied)
	}
	return out, nil
}

// DeleteByContentID removes every relationship touching the content id.
func (s *RelationshipStore) DeleteByContentID(ctx context.Context, contentID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, rel := range s.rels {
		if rel.Touches(contentID) {
			delete(s.rels, id)
			removed++
		}
	}
	return removed, nil
}

// SnapshotStore is an in-memory SnapshotStore.
type SnapshotStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

// NewSnapshotStore creates an empty in-memory snapshot store.
func NewSnapshotStore() *SnapshotStore {
	return &SnapshotStore{blobs: make(map[string][]byte)}
}

// SaveSnapshot stores a named blob.
func (s *SnapshotStore) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([]byte, len(data))
	copy(copied, data)
	s.blobs[key] = copied
	return nil
}

// LoadSnapshot returns a named blob, or NOT_FOUND.
func (s *SnapshotStore) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, appErrors.NewNotFound("snapshot not found: " + key)
	}
	copied := make([]byte, len(data))
	copy(copied, data)
	return copied, nil
}
