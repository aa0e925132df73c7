// Package store provides database access to the product catalog and the
// persisted engine state behind a driver interface, so the same code runs
// against PostgreSQL in production and SQLite in development.
package store

import (
	"context"
	"database/sql"

	"github.com/hrygo/shopsense/internal/profile"
)

// Driver is an interface for storage drivers.
type Driver interface {
	GetDB() *sql.DB
	Close() error
	IsInitialized(ctx context.Context) (bool, error)
	Migrate(ctx context.Context) error

	// Product catalog.
	UpsertProduct(ctx context.Context, upsert *UpsertProduct) (*Product, error)
	ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error)
	DeleteProduct(ctx context.Context, uid string) error
	SearchProducts(ctx context.Context, opts *SearchProductsOptions) ([]*ProductWithScore, error)
	ListProductEmbeddings(ctx context.Context, find *FindProductEmbedding) ([]*ProductEmbedding, error)

	// Prototype persistence.
	UpsertPrototypeBlob(ctx context.Context, blob *PrototypeBlob) error
	GetPrototypeBlob(ctx context.Context, find *FindPrototypeBlob) (*PrototypeBlob, error)
}

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) UpsertProduct(ctx context.Context, upsert *UpsertProduct) (*Product, error) {
	return s.driver.UpsertProduct(ctx, upsert)
}

func (s *Store) ListProducts(ctx context.Context, find *FindProduct) ([]*Product, error) {
	return s.driver.ListProducts(ctx, find)
}

func (s *Store) DeleteProduct(ctx context.Context, uid string) error {
	return s.driver.DeleteProduct(ctx, uid)
}

func (s *Store) SearchProducts(ctx context.Context, opts *SearchProductsOptions) ([]*ProductWithScore, error) {
	return s.driver.SearchProducts(ctx, opts)
}

func (s *Store) ListProductEmbeddings(ctx context.Context, find *FindProductEmbedding) ([]*ProductEmbedding, error) {
	return s.driver.ListProductEmbeddings(ctx, find)
}

func (s *Store) UpsertPrototypeBlob(ctx context.Context, blob *PrototypeBlob) error {
	return s.driver.UpsertPrototypeBlob(ctx, blob)
}

func (s *Store) GetPrototypeBlob(ctx context.Context, find *FindPrototypeBlob) (*PrototypeBlob, error) {
	return s.driver.GetPrototypeBlob(ctx, find)
}
