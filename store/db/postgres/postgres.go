// Package postgres implements the storage driver for PostgreSQL with the
// pgvector extension. This is the production driver: similarity search runs
// inside the database using the cosine distance operator.
package postgres

import (
	"context"
	"database/sql"
	"strconv"
	"strings"

	// Import the PostgreSQL driver.
	_ "github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/internal/profile"
	"github.com/hrygo/shopsense/store"
)

// embeddingDim is the fixed vector column dimension. BAAI/bge-m3, the default
// embedding model, produces 1024-dimensional vectors.
const embeddingDim = 1024

type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens a PostgreSQL database using the DSN from the profile.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	pgDB, err := sql.Open("postgres", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open db with dsn: %s", profile.DSN)
	}

	pgDB.SetMaxOpenConns(10)
	pgDB.SetMaxIdleConns(5)

	driver := DB{db: pgDB, profile: profile}

	return &driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) IsInitialized(ctx context.Context) (bool, error) {
	var exists bool
	err := d.db.QueryRowContext(ctx,
		"SELECT EXISTS(SELECT 1 FROM information_schema.tables WHERE table_name = 'product')",
	).Scan(&exists)
	if err != nil {
		return false, errors.Wrap(err, "failed to check if database is initialized")
	}
	return exists, nil
}

// Migrate creates the schema. Statements are idempotent so startup can always
// run them.
func (d *DB) Migrate(ctx context.Context) error {
	stmts := []string{
		`CREATE EXTENSION IF NOT EXISTS vector`,
		`CREATE TABLE IF NOT EXISTS product (
			id BIGSERIAL PRIMARY KEY,
			uid TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			normalized_name TEXT NOT NULL DEFAULT '',
			description TEXT NOT NULL DEFAULT '',
			brand TEXT NOT NULL DEFAULT '',
			category TEXT NOT NULL DEFAULT '',
			market TEXT NOT NULL,
			price DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_product_market ON product (market)`,
		`CREATE TABLE IF NOT EXISTS product_embedding (
			id BIGSERIAL PRIMARY KEY,
			product_id BIGINT NOT NULL REFERENCES product (id) ON DELETE CASCADE,
			embedding vector(` + strconv.Itoa(embeddingDim) + `) NOT NULL,
			model TEXT NOT NULL,
			created_ts BIGINT NOT NULL,
			updated_ts BIGINT NOT NULL,
			UNIQUE (product_id, model)
		)`,
		`CREATE TABLE IF NOT EXISTS prototype_blob (
			model TEXT PRIMARY KEY,
			payload BYTEA NOT NULL,
			updated_ts BIGINT NOT NULL
		)`,
	}

	for _, stmt := range stmts {
		if _, err := d.db.ExecContext(ctx, stmt); err != nil {
			return errors.Wrap(err, "failed to migrate schema")
		}
	}
	return nil
}

// placeholder returns the n-th PostgreSQL positional placeholder.
func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}

// placeholders returns "$1, $2, ..., $n".
func placeholders(n int) string {
	list := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		list = append(list, placeholder(i))
	}
	return strings.Join(list, ", ")
}
