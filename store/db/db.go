// Package db creates the concrete store driver from the profile.
package db

import (
	"github.com/pkg/errors"

	"github.com/kiezfinder/kiezfinder/internal/profile"
	"github.com/kiezfinder/kiezfinder/store"
	"github.com/kiezfinder/kiezfinder/store/db/postgres"
	"github.com/kiezfinder/kiezfinder/store/db/sqlite"
)

// NewDBDriver creates a new db driver based on the profile. SQLite covers
// single-instance deployments; postgres covers shared ones.
func NewDBDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Driver {
	case "sqlite":
		driver, err = sqlite.NewDB(profile)
	case "postgres":
		driver, err = postgres.NewDB(profile)
	default:
		return nil, errors.Errorf("unknown db driver %q: only 'sqlite' and 'postgres' are supported", profile.Driver)
	}
	if err != nil {
		return nil, errors.Wrap(err, "create db driver")
	}
	return driver, nil
}
