// Package catalog provides the SQLite-backed relational catalog that maps
// collection identifiers to their internal vector store names and links each
// collection to the blob URL of the document it was built from. One catalog
// row exists per ingested document.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // register "sqlite" driver
)

// ErrNotFound is returned when a lookup references a collection or knowledge
// entry that does not exist (or no longer exists).
var ErrNotFound = errors.New("catalog: not found")

// Collection maps a stable identifier to an internal vector store name.
type Collection struct {
	// ID is the opaque unique identifier (UUID).
	ID string
	// Name is the vector store collection name.
	Name string
	// CreatedAt is when the collection row was inserted.
	CreatedAt time.Time
}

// Knowledge links an uploaded document's blob URL to its collection.
type Knowledge struct {
	// URL is the blob locator of the source document.
	URL string
	// CollectionID is the owning collection's identifier.
	CollectionID string
}

// Catalog is the SQLite-backed collection catalog.
type Catalog struct {
	// db is the underlying database connection pool.
	db *sql.DB
}

// DefaultDBPath returns the default path for the catalog database.
// It resolves to ~/.lore/catalog.db, creating the directory if needed.
func DefaultDBPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("catalog: could not determine home directory: %w", err)
	}
	dir := filepath.Join(home, ".lore")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("catalog: could not create %s: %w", dir, err)
	}
	return filepath.Join(dir, "catalog.db"), nil
}

// Open opens (or creates) a Catalog at the given path and runs the schema
// migration. Use ":memory:" for an in-memory database in tests.
func Open(path string) (*Catalog, error) {
	// WAL mode improves concurrent read performance and is safe for single-host use.
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("catalog: open %s: %w", path, err)
	}
	// Limit to a single writer connection to avoid SQLITE_BUSY under concurrent writes.
	db.SetMaxOpenConns(1)

	c := &Catalog{db: db}
	if err := c.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return c, nil
}

// migrate creates the schema if it does not already exist.
func (c *Catalog) migrate() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS collections (
    id          TEXT    PRIMARY KEY,
    name        TEXT    NOT NULL UNIQUE,
    created_at  INTEGER NOT NULL  -- Unix timestamp (seconds)
);
CREATE TABLE IF NOT EXISTS knowledges (
    url            TEXT NOT NULL UNIQUE,
    collection_id  TEXT NOT NULL REFERENCES collections(id)
);
CREATE INDEX IF NOT EXISTS idx_knowledges_collection
    ON knowledges (collection_id);
`
	if _, err := c.db.Exec(ddl); err != nil {
		return fmt.Errorf("catalog: migrate: %w", err)
	}
	return nil
}

// CreateCollection inserts a new collection row with a freshly minted UUID
// and returns it.
func (c *Catalog) CreateCollection(ctx context.Context, name string) (Collection, error) {
	col := Collection{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now(),
	}
	const q = `INSERT INTO collections (id, name, created_at) VALUES (?, ?, ?)`
	if _, err := c.db.ExecContext(ctx, q, col.ID, col.Name, col.CreatedAt.Unix()); err != nil {
		return Collection{}, fmt.Errorf("catalog: create collection: %w", err)
	}
	return col, nil
}

// AddKnowledge links a document's blob URL to its collection.
func (c *Catalog) AddKnowledge(ctx context.Context, url, collectionID string) error {
	const q = `INSERT INTO knowledges (url, collection_id) VALUES (?, ?)`
	if _, err := c.db.ExecContext(ctx, q, url, collectionID); err != nil {
		return fmt.Errorf("catalog: add knowledge: %w", err)
	}
	return nil
}

// Collections returns every collection in insertion order. The order is part
// of the contract — the selector uses it to break similarity ties.
func (c *Catalog) Collections(ctx context.Context) ([]Collection, error) {
	const q = `SELECT id, name, created_at FROM collections ORDER BY rowid ASC`

	rows, err := c.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("catalog: list collections: %w", err)
	}
	defer rows.Close()

	var cols []Collection
	for rows.Next() {
		var col Collection
		var ts int64
		if err := rows.Scan(&col.ID, &col.Name, &ts); err != nil {
			return nil, fmt.Errorf("catalog: list scan: %w", err)
		}
		col.CreatedAt = time.Unix(ts, 0)
		cols = append(cols, col)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: list rows: %w", err)
	}
	return cols, nil
}

// Count returns the number of collections in the catalog.
func (c *Catalog) Count(ctx context.Context) (int, error) {
	var n int
	if err := c.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM collections`).Scan(&n); err != nil {
		return 0, fmt.Errorf("catalog: count: %w", err)
	}
	return n, nil
}

// CollectionByID returns the collection with the given identifier.
func (c *Catalog) CollectionByID(ctx context.Context, id string) (Collection, error) {
	const q = `SELECT id, name, created_at FROM collections WHERE id = ?`

	var col Collection
	var ts int64
	err := c.db.QueryRowContext(ctx, q, id).Scan(&col.ID, &col.Name, &ts)
	if errors.Is(err, sql.ErrNoRows) {
		return Collection{}, fmt.Errorf("catalog: collection %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Collection{}, fmt.Errorf("catalog: collection by id: %w", err)
	}
	col.CreatedAt = time.Unix(ts, 0)
	return col, nil
}

// KnowledgeByURL returns the knowledge entry for the given blob URL.
func (c *Catalog) KnowledgeByURL(ctx context.Context, url string) (Knowledge, error) {
	const q = `SELECT url, collection_id FROM knowledges WHERE url = ?`

	var k Knowledge
	err := c.db.QueryRowContext(ctx, q, url).Scan(&k.URL, &k.CollectionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Knowledge{}, fmt.Errorf("catalog: knowledge for %s: %w", url, ErrNotFound)
	}
	if err != nil {
		return Knowledge{}, fmt.Errorf("catalog: knowledge by url: %w", err)
	}
	return k, nil
}

// DeleteCollection removes the collection row and its knowledge entries.
// The collection's vector store contents are the caller's responsibility.
func (c *Catalog) DeleteCollection(ctx context.Context, id string) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("catalog: delete begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM knowledges WHERE collection_id = ?`, id); err != nil {
		return fmt.Errorf("catalog: delete knowledge rows: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("catalog: delete collection row: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("catalog: delete rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("catalog: collection %s: %w", id, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("catalog: delete commit: %w", err)
	}
	return nil
}

// Close releases the database connection pool.
func (c *Catalog) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("catalog: close: %w", err)
	}
	return nil
}
