// Package mocks provides hand-written repository mocks for unit tests.
package mocks

import (
	"context"
	"sync"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/relationship"
	appErrors "resurface-backend/pkg/errors"
)

// ContentRepository is a scriptable in-memory ContentRepository.
type ContentRepository struct {
	mu    sync.Mutex
	Items []*content.Item
	errs  map[string]error
}

// NewContentRepository creates an empty mock content repository.
func NewContentRepository() *ContentRepository {
	return &ContentRepository{errs: make(map[string]error)}
}

// SetError makes the named operation return err on its next calls.
func (m *ContentRepository) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
}

// List returns the scripted items.
func (m *ContentRepository) List(ctx context.Context) ([]*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["List"]; err != nil {
		return nil, err
	}
	return append([]*content.Item(nil), m.Items...), nil
}

// Find returns the scripted item with the given id.
func (m *ContentRepository) Find(ctx context.Context, id string) (*content.Item, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["Find"]; err != nil {
		return nil, err
	}
	for _, item := range m.Items {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, appErrors.NewNotFound("content not found: " + id)
}

// RelationshipPersistence is a scriptable in-memory persistence mock that
// records calls for assertions.
type RelationshipPersistence struct {
	mu       sync.Mutex
	Upserted [][]*relationship.Relationship
	Deleted  []string
	stored   map[string]*relationship.Relationship
	errs     map[string]error
}

// NewRelationshipPersistence creates an empty persistence mock.
func NewRelationshipPersistence() *RelationshipPersistence {
	return &RelationshipPersistence{
		stored: make(map[string]*relationship.Relationship),
		errs:   make(map[string]error),
	}
}

// SetError makes the named operation return err on its next calls.
func (m *RelationshipPersistence) SetError(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errs[op] = err
}

// BulkUpsert records the batch.
func (m *RelationshipPersistence) BulkUpsert(ctx context.Context, rels []*relationship.Relationship) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["BulkUpsert"]; err != nil {
		return err
	}
	m.Upserted = append(m.Upserted, rels)
	for _, rel := range rels {
		for id, existing := range m.stored {
			if id != rel.ID && existing.SourceID == rel.SourceID && existing.TargetID == rel.TargetID {
				delete(m.stored, id)
			}
		}
		m.stored[rel.ID] = rel
	}
	return nil
}

// List returns everything upserted so far.
func (m *RelationshipPersistence) List(ctx context.Context) ([]*relationship.Relationship, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["List"]; err != nil {
		return nil, err
	}
	out := make([]*relationship.Relationship, 0, len(m.stored))
	for _, rel := range m.stored {
		out = append(out, rel)
	}
	return out, nil
}

// DeleteByContentID records the deletion and removes matching entries.
func (m *RelationshipPersistence) DeleteByContentID(ctx context.Context, contentID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.errs["DeleteByContentID"]; err != nil {
		return 0, err
	}
	m.Deleted = append(m.Deleted, contentID)
	removed := 0
	for id, rel := range m.stored {
		if rel.Touches(contentID) {
			delete(m.stored, id)
			removed++
		}
	}
	return removed, nil
}

// Stored returns the current persisted set.
func (m *RelationshipPersistence) Stored() []*relationship.Relationship {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*relationship.Relationship, 0, len(m.stored))
	for _, rel := range m.stored {
		out = append(out, rel)
	}
	return out
}
