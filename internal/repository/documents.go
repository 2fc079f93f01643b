package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"gatepass/internal/database"
)

// Key addresses a document inside a named collection.
type Key struct {
	Collection string
	ID         string
}

type WriteMode int

const (
	// ModeSet replaces the document wholesale.
	ModeSet WriteMode = iota
	// ModeMerge overwrites only the top-level fields present in Doc; an
	// existing document is never fully replaced.
	ModeMerge
	// ModeCreate inserts the document only if the key does not exist yet.
	ModeCreate
)

type Write struct {
	Key  Key
	Doc  json.RawMessage
	Mode WriteMode
}

// Store is the generic document-store surface the durable writer commits
// through. Apply is all-or-nothing: either every write in the batch is
// visible or none is.
type Store interface {
	Get(ctx context.Context, key Key) (json.RawMessage, error)
	Apply(ctx context.Context, writes []Write) error
}

// DocumentStore implements Store on Postgres. All collections share one
// jsonb-backed table; merge writes use the jsonb || operator, so concurrent
// commits for the same key serialize on the row lock.
type DocumentStore struct {
	db *database.DB
}

func NewDocumentStore(db *database.DB) *DocumentStore {
	return &DocumentStore{db: db}
}

func (s *DocumentStore) Get(ctx context.Context, key Key) (json.RawMessage, error) {
	query := `SELECT doc FROM documents WHERE collection = $1 AND id = $2`

	var doc []byte
	err := s.db.QueryRowContext(ctx, query, key.Collection, key.ID).Scan(&doc)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get %s/%s: %w", key.Collection, key.ID, err)
	}

	return doc, nil
}

func (s *DocumentStore) Apply(ctx context.Context, writes []Write) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, w := range writes {
		var query string
		switch w.Mode {
		case ModeMerge:
			query = `
				INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
				ON CONFLICT (collection, id)
				DO UPDATE SET doc = documents.doc || EXCLUDED.doc, updated_at = NOW()`
		case ModeCreate:
			query = `
				INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
				ON CONFLICT (collection, id) DO NOTHING`
		default:
			query = `
				INSERT INTO documents (collection, id, doc) VALUES ($1, $2, $3)
				ON CONFLICT (collection, id)
				DO UPDATE SET doc = EXCLUDED.doc, updated_at = NOW()`
		}

		if _, err := tx.ExecContext(ctx, query, w.Key.Collection, w.Key.ID, []byte(w.Doc)); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", w.Key.Collection, w.Key.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit write batch: %w", err)
	}

	return nil
}
