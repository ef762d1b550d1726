// Package sqlite provides a SQLite-backed implementation of the
// RelationshipPersistence and SnapshotStore ports for local durable
// operation. The production deployment swaps this for the host's key-value
// engine behind the same ports.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"resurface-backend/internal/domain/relationship"
	appErrors "resurface-backend/pkg/errors"
)

// Store wraps a sql.DB connection to the resurface SQLite database.
type Store struct {
	db   *sql.DB
	path string
}

const schema = `
CREATE TABLE IF NOT EXISTS relationships (
    id           TEXT PRIMARY KEY,
    source_id    TEXT NOT NULL,
    target_id    TEXT NOT NULL,
    rel_type     TEXT NOT NULL,
    strength     REAL NOT NULL,
    confidence   REAL NOT NULL,
    created_at   INTEGER NOT NULL,
    last_updated INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_relationships_source ON relationships(source_id);
CREATE INDEX IF NOT EXISTS idx_relationships_target ON relationships(target_id);

CREATE TABLE IF NOT EXISTS snapshots (
    key        TEXT PRIMARY KEY,
    data       BLOB NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// Open opens (or creates) the SQLite database at the given path, configures
// pragmas, and creates the schema.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// OpenMemory opens an in-memory SQLite database for testing.
func OpenMemory() (*Store, error) {
	return Open(":memory:")
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// BulkUpsert writes a batch of relationships in one transaction.
func (s *Store) BulkUpsert(ctx context.Context, rels []*relationship.Relationship) error {
	if len(rels) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return appErrors.NewPersistence("begin relationship upsert", err)
	}
	defer tx.Rollback()

	// One edge per ordered pair: drop rows the incoming batch supersedes
	// under a different id (reciprocals minted by an earlier run).
	sweep, err := tx.PrepareContext(ctx,
		`DELETE FROM relationships WHERE source_id = ? AND target_id = ? AND id != ?`)
	if err != nil {
		return appErrors.NewPersistence("prepare relationship sweep", err)
	}
	defer sweep.Close()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO relationships (id, source_id, target_id, rel_type, strength, confidence, created_at, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			source_id = excluded.source_id,
			target_id = excluded.target_id,
			rel_type = excluded.rel_type,
			strength = excluded.strength,
			confidence = excluded.confidence,
			last_updated = excluded.last_updated`)
	if err != nil {
		return appErrors.NewPersistence("prepare relationship upsert", err)
	}
	defer stmt.Close()

	for _, rel := range rels {
		if _, err := sweep.ExecContext(ctx, rel.SourceID, rel.TargetID, rel.ID); err != nil {
			return appErrors.NewPersistence("sweep stale relationship rows", err)
		}
		if _, err := stmt.ExecContext(ctx,
			rel.ID, rel.SourceID, rel.TargetID, string(rel.Type),
			rel.Strength, rel.Confidence,
			rel.CreatedAt.UnixMilli(), rel.LastUpdated.UnixMilli(),
		); err != nil {
			return appErrors.NewPersistence("upsert relationship "+rel.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return appErrors.NewPersistence("commit relationship upsert", err)
	}
	return nil
}

// List returns all persisted relationships.
func (s *Store) List(ctx context.Context) ([]*relationship.Relationship, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source_id, target_id, rel_type, strength, confidence, created_at, last_updated
		FROM relationships`)
	if err != nil {
		return nil, appErrors.NewPersistence("list relationships", err)
	}
	defer rows.Close()

	var rels []*relationship.Relationship
	for rows.Next() {
		var rel relationship.Relationship
		var relType string
		var createdAt, lastUpdated int64
		if err := rows.Scan(&rel.ID, &rel.SourceID, &rel.TargetID, &relType,
			&rel.Strength, &rel.Confidence, &createdAt, &lastUpdated); err != nil {
			return nil, appErrors.NewPersistence("scan relationship row", err)
		}
		rel.Type = relationship.Type(relType)
		rel.CreatedAt = time.UnixMilli(createdAt)
		rel.LastUpdated = time.UnixMilli(lastUpdated)
		rels = append(rels, &rel)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewPersistence("iterate relationship rows", err)
	}
	return rels, nil
}

// DeleteByContentID removes every relationship touching the content id.
func (s *Store) DeleteByContentID(ctx context.Context, contentID string) (int, error) {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM relationships WHERE source_id = ? OR target_id = ?`,
		contentID, contentID)
	if err != nil {
		return 0, appErrors.NewPersistence("delete relationships for "+contentID, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, appErrors.NewPersistence("count deleted relationships", err)
	}
	return int(affected), nil
}

// SaveSnapshot stores a named blob.
func (s *Store) SaveSnapshot(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (key, data, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		key, data, time.Now().UnixMilli())
	if err != nil {
		return appErrors.NewPersistence("save snapshot "+key, err)
	}
	return nil
}

// LoadSnapshot returns a named blob, or NOT_FOUND.
func (s *Store) LoadSnapshot(ctx context.Context, key string) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM snapshots WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewNotFound("snapshot not found: " + key)
	}
	if err != nil {
		return nil, appErrors.NewPersistence("load snapshot "+key, err)
	}
	return data, nil
}
