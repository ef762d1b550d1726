// Package repository defines the persistence ports consumed by the core and
// the decorators applied at the persistence boundary. The backing key-value
// engine itself lives outside this repository; implementations here exist
// for local operation and tests.
package repository

import (
	"context"

	"resurface-backend/internal/domain/content"
	"resurface-backend/internal/domain/relationship"
)

// ContentRepository is the read-only view of captured content.
type ContentRepository interface {
	// List returns every captured content item.
	List(ctx context.Context) ([]*content.Item, error)
	// Find returns the item with the given id, or a NOT_FOUND error.
	Find(ctx context.Context, id string) (*content.Item, error)
}

// RelationshipPersistence is the durable mirror of the relationship graph.
type RelationshipPersistence interface {
	// BulkUpsert writes a batch of relationships.
	BulkUpsert(ctx context.Context, rels []*relationship.Relationship) error
	// List returns all persisted relationships.
	List(ctx context.Context) ([]*relationship.Relationship, error)
	// DeleteByContentID removes every relationship touching the content id
	// and returns the number removed.
	DeleteByContentID(ctx context.Context, contentID string) (int, error)
}

// SnapshotStore persists opaque named blobs: preference models, interaction
// history and behavior patterns for export/import.
type SnapshotStore interface {
	SaveSnapshot(ctx context.Context, key string, data []byte) error
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)
}
