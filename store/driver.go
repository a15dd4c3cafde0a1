package store

import (
	"context"
	"database/sql"
)

// Driver is the interface a database driver implements. The neighborhood
// data is imported out of band; the application only reads it.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	ListBoroughs(ctx context.Context, find *FindBorough) ([]*Borough, error)
	ListNeighborhoods(ctx context.Context, find *FindNeighborhood) ([]*Neighborhood, error)
}
