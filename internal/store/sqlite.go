package store

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strings"
	"time"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	dimension int
}

var _ Store = (*SQLiteStore)(nil)

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// openAndMigrate opens the database, applies migrations, and verifies
// integrity. Any failure leaves the connection closed.
func openAndMigrate(dbPath string) (*sql.DB, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	var check string
	if err := db.QueryRow("PRAGMA quick_check").Scan(&check); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check failed: %w", err)
	}
	if check != "ok" {
		_ = db.Close()
		return nil, fmt.Errorf("integrity check reported: %s", check)
	}

	return db, nil
}

// Open opens (or creates) the vector index at dbPath. The index is a
// derived artifact, so a database that fails to open or migrate is
// deleted along with its WAL sidecars and recreated empty rather than
// surfaced as a fatal error.
func Open(dbPath string, dimension int) (*SQLiteStore, error) {
	if dimension <= 0 {
		return nil, fmt.Errorf("invalid embedding dimension %d", dimension)
	}

	db, err := openAndMigrate(dbPath)
	if err != nil {
		if dbPath == ":memory:" || strings.HasPrefix(dbPath, "file::memory:") {
			return nil, err
		}

		log.Printf("vector index at %s is unusable: %v", dbPath, err)
		log.Printf("removing corrupted index files for %s", dbPath)
		for _, suffix := range []string{"", "-wal", "-shm"} {
			if rmErr := os.Remove(dbPath + suffix); rmErr != nil && !os.IsNotExist(rmErr) {
				return nil, fmt.Errorf("failed to remove corrupted index file %s%s: %w", dbPath, suffix, rmErr)
			}
		}
		log.Printf("recreating vector index at %s", dbPath)

		db, err = openAndMigrate(dbPath)
		if err != nil {
			return nil, fmt.Errorf("failed to recreate vector index: %w", err)
		}
	}

	return &SQLiteStore{db: db, path: dbPath, dimension: dimension}, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Dimension returns the embedding dimension rows are validated against.
func (s *SQLiteStore) Dimension() int {
	return s.dimension
}

// validateItems checks every embedding against the store dimension
// before anything touches the database.
func (s *SQLiteStore) validateItems(items []Item) error {
	for _, item := range items {
		if len(item.Embedding) != s.dimension {
			return fmt.Errorf("%w: item %s has %d dimensions, store expects %d",
				ErrDimensionMismatch, item.ID, len(item.Embedding), s.dimension)
		}
	}
	return nil
}

const upsertSQL = `
	INSERT INTO document_vectors (id, content, doc_type, path, title, content_hash, embedding, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		content = excluded.content,
		doc_type = excluded.doc_type,
		path = excluded.path,
		title = excluded.title,
		content_hash = excluded.content_hash,
		embedding = excluded.embedding,
		updated_at = excluded.updated_at
`

// StoreBatch upserts all items in one transaction. The batch is
// all-or-nothing: any dimension mismatch or write failure rolls back
// every row.
func (s *SQLiteStore) StoreBatch(ctx context.Context, items []Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := s.validateItems(items); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now()
	for _, item := range items {
		_, err := tx.ExecContext(ctx, upsertSQL,
			item.ID, item.Content, item.DocType, item.Path, item.Title,
			item.ContentHash, serializeVector(item.Embedding), now, now)
		if err != nil {
			return fmt.Errorf("failed to upsert %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit batch: %w", err)
	}
	return nil
}

// Store upserts a single item.
func (s *SQLiteStore) Store(ctx context.Context, item Item) error {
	return s.StoreBatch(ctx, []Item{item})
}

// Delete removes the rows with the given IDs.
func (s *SQLiteStore) Delete(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `DELETE FROM document_vectors WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete rows: %w", err)
	}
	return nil
}

// DeleteByPrefix removes every row whose ID starts with prefix.
func (s *SQLiteStore) DeleteByPrefix(ctx context.Context, prefix string) (int64, error) {
	query := `DELETE FROM document_vectors WHERE id LIKE ? ESCAPE '\'`
	result, err := s.db.ExecContext(ctx, query, escapeLike(prefix)+"%")
	if err != nil {
		return 0, fmt.Errorf("failed to delete by prefix %s: %w", prefix, err)
	}
	return result.RowsAffected()
}

// DeleteRaw removes rows matching a caller-built WHERE predicate.
func (s *SQLiteStore) DeleteRaw(ctx context.Context, predicate string) (int64, error) {
	if strings.TrimSpace(predicate) == "" {
		return 0, fmt.Errorf("empty delete predicate")
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM document_vectors WHERE `+predicate)
	if err != nil {
		return 0, fmt.Errorf("failed to delete by predicate: %w", err)
	}
	return result.RowsAffected()
}

// FetchByIDs returns the stored rows for the given IDs, keyed by ID.
func (s *SQLiteStore) FetchByIDs(ctx context.Context, ids []string) (map[string]Row, error) {
	out := make(map[string]Row, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, content, doc_type, path, title, content_hash
		FROM document_vectors
		WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rows: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var row Row
		if err := rows.Scan(&row.ID, &row.Content, &row.DocType, &row.Path, &row.Title, &row.ContentHash); err != nil {
			return nil, err
		}
		out[row.ID] = row
	}
	return out, rows.Err()
}

// FetchContentHashes returns the content hash for each of the given IDs
// that exists.
func (s *SQLiteStore) FetchContentHashes(ctx context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}

	query := `
		SELECT id, content_hash
		FROM document_vectors
		WHERE id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch content hashes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var id, hash string
		if err := rows.Scan(&id, &hash); err != nil {
			return nil, err
		}
		out[id] = hash
	}
	return out, rows.Err()
}

// ListIDs returns every chunk ID in the store.
func (s *SQLiteStore) ListIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM document_vectors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ids: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Count returns the number of chunk rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_vectors`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}

// CreateIndexes rebuilds the FTS index from the backing table and
// re-asserts the secondary indexes. Safe to run on every startup;
// "already exists" outcomes are no-ops by construction.
func (s *SQLiteStore) CreateIndexes(ctx context.Context) error {
	stmts := []string{
		`CREATE INDEX IF NOT EXISTS idx_document_vectors_doc_type ON document_vectors(doc_type)`,
		`CREATE INDEX IF NOT EXISTS idx_document_vectors_path ON document_vectors(path)`,
		`INSERT INTO document_vectors_fts(document_vectors_fts) VALUES('rebuild')`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create indexes: %w", err)
		}
	}
	return nil
}

// Optimize compacts the index. Each step is best-effort; the first
// failure is returned but callers treat it as advisory.
func (s *SQLiteStore) Optimize(ctx context.Context) error {
	stmts := []string{
		`INSERT INTO document_vectors_fts(document_vectors_fts) VALUES('optimize')`,
		`PRAGMA wal_checkpoint(TRUNCATE)`,
		`PRAGMA optimize`,
		`VACUUM`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("optimize step %q: %w", stmt, err)
		}
	}
	return nil
}
