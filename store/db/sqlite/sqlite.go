// Package sqlite implements the store driver on modernc.org/sqlite.
package sqlite

import (
	"database/sql"

	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/kiezfinder/kiezfinder/internal/profile"
	"github.com/kiezfinder/kiezfinder/store"
)

// DB is the SQLite store driver.
type DB struct {
	db      *sql.DB
	profile *profile.Profile
}

// NewDB opens the SQLite database named by the profile DSN.
func NewDB(profile *profile.Profile) (store.Driver, error) {
	if profile.DSN == "" {
		return nil, errors.New("dsn required")
	}

	db, err := sql.Open("sqlite", profile.DSN)
	if err != nil {
		return nil, errors.Wrapf(err, "open sqlite db %s", profile.DSN)
	}
	// SQLite serializes writers; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	driver := &DB{db: db, profile: profile}
	if err := driver.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return driver, nil
}

func (d *DB) GetDB() *sql.DB {
	return d.db
}

func (d *DB) Close() error {
	return d.db.Close()
}

func (d *DB) migrate() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS borough (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			minimum_rent REAL NOT NULL DEFAULT 0,
			tags TEXT NOT NULL DEFAULT '',
			population INTEGER NOT NULL DEFAULT 0,
			area_km2 REAL NOT NULL DEFAULT 0,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS neighborhood (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			borough_slug TEXT NOT NULL,
			name TEXT NOT NULL,
			slug TEXT NOT NULL UNIQUE,
			rent_price REAL NOT NULL DEFAULT 0,
			crime_rate REAL NOT NULL DEFAULT 0,
			foreign_population_pct REAL NOT NULL DEFAULT 0,
			infrastructure_score REAL NOT NULL DEFAULT 0,
			latitude REAL NOT NULL DEFAULT 0,
			longitude REAL NOT NULL DEFAULT 0
		);
	`)
	return errors.Wrap(err, "migrate neighborhood schema")
}
