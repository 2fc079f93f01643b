package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createDocumentsTable,
		createDocumentsUpdatedIndex,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

// One table backs every document collection. The doc column holds the full
// record; merges are applied with the jsonb || operator so concurrent writers
// for the same id serialize on the row lock.
const createDocumentsTable = `
CREATE TABLE IF NOT EXISTS documents (
    collection VARCHAR(100) NOT NULL,
    id VARCHAR(255) NOT NULL,
    doc JSONB NOT NULL,
    created_at TIMESTAMP NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMP NOT NULL DEFAULT NOW(),

    PRIMARY KEY (collection, id)
);`

const createDocumentsUpdatedIndex = `
CREATE INDEX IF NOT EXISTS idx_documents_updated_at ON documents (collection, updated_at);`
