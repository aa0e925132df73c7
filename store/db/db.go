// Package db provides the storage driver factory.
package db

import (
	"github.com/pkg/errors"

	"github.com/hrygo/shopsense/internal/profile"
	"github.com/hrygo/shopsense/store"
	"github.com/hrygo/shopsense/store/db/postgres"
	"github.com/hrygo/shopsense/store/db/sqlite"
)

// NewDBDriver creates the storage driver named by the profile.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	switch profile.Driver {
	case "postgres":
		return postgres.NewDB(profile)
	case "sqlite":
		return sqlite.NewDB(profile)
	default:
		return nil, errors.Errorf("unsupported driver: %s", profile.Driver)
	}
}
