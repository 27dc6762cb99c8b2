package backend

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLitePartStore implements PartStore on a SQLite database, so mockup
// part databases survive restarts. One row per part; the database name is
// a plain column, matching how a real system keys its reference databases.
type SQLitePartStore struct {
	db *sql.DB
}

// NewSQLitePartStore creates a SQLite-backed part store and ensures its
// schema exists.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - db: Open SQLite connection (see infrastructure/database)
//
// Returns:
//   - *SQLitePartStore: Store ready for use
//   - error: If the schema cannot be created
func NewSQLitePartStore(ctx context.Context, db *sql.DB) (*SQLitePartStore, error) {
	const schema = `
		CREATE TABLE IF NOT EXISTS parts (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			db_name     TEXT NOT NULL,
			fingerprint TEXT NOT NULL,
			part_id     TEXT NOT NULL,
			batch_id    TEXT NOT NULL,
			part_type   TEXT NOT NULL,
			created_at  TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_parts_db_name ON parts(db_name);
		CREATE INDEX IF NOT EXISTS idx_parts_part_id ON parts(part_id);`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("creating parts schema: %w", err)
	}
	return &SQLitePartStore{db: db}, nil
}

// Databases implements PartStore. Names are returned in first-insert order.
func (s *SQLitePartStore) Databases(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT db_name FROM parts GROUP BY db_name ORDER BY MIN(id)`)
	if err != nil {
		return nil, fmt.Errorf("querying part databases: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scanning database name: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating database names: %w", err)
	}
	return names, nil
}

// List implements PartStore.
func (s *SQLitePartStore) List(ctx context.Context, database string) ([]Part, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM parts WHERE db_name = ?)`, database).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("checking part database: %w", err)
	}
	if !exists {
		return nil, ErrDatabaseNotFound
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT fingerprint, part_id, batch_id, part_type
		 FROM parts WHERE db_name = ? ORDER BY id`, database)
	if err != nil {
		return nil, fmt.Errorf("querying parts: %w", err)
	}
	defer rows.Close()

	var parts []Part
	for rows.Next() {
		var p Part
		if err := rows.Scan(&p.Fingerprint, &p.PartID, &p.BatchID, &p.PartType); err != nil {
			return nil, fmt.Errorf("scanning part: %w", err)
		}
		parts = append(parts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating parts: %w", err)
	}
	return parts, nil
}

// Add implements PartStore.
func (s *SQLitePartStore) Add(ctx context.Context, database string, part Part) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parts (db_name, fingerprint, part_id, batch_id, part_type)
		 VALUES (?, ?, ?, ?, ?)`,
		database, part.Fingerprint, part.PartID, part.BatchID, part.PartType)
	if err != nil {
		return fmt.Errorf("inserting part: %w", err)
	}
	return nil
}

// Remove implements PartStore. Only one matching row is deleted.
func (s *SQLitePartStore) Remove(ctx context.Context, database string, part Part) error {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM parts WHERE db_name = ?)`, database).Scan(&exists)
	if err != nil {
		return fmt.Errorf("checking part database: %w", err)
	}
	if !exists {
		return ErrDatabaseNotFound
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM parts WHERE id IN (
			SELECT id FROM parts
			WHERE db_name = ? AND fingerprint = ? AND part_id = ? AND batch_id = ? AND part_type = ?
			LIMIT 1
		)`,
		database, part.Fingerprint, part.PartID, part.BatchID, part.PartType)
	if err != nil {
		return fmt.Errorf("deleting part: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking delete result: %w", err)
	}
	if affected == 0 {
		return ErrPartNotFound
	}
	return nil
}
