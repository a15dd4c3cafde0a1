// Package store provides read access to the borough and neighborhood data
// the web application browses. It is a collaborator of the chat feature, not
// part of it; the resolver has no dependency on this store.
package store

import (
	"context"

	"github.com/kiezfinder/kiezfinder/internal/profile"
)

// Store provides database access to the neighborhood data.
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

// ListBoroughs lists boroughs matching the filter.
func (s *Store) ListBoroughs(ctx context.Context, find *FindBorough) ([]*Borough, error) {
	return s.driver.ListBoroughs(ctx, find)
}

// GetBoroughBySlug returns the borough with the given slug, or nil.
func (s *Store) GetBoroughBySlug(ctx context.Context, slug string) (*Borough, error) {
	boroughs, err := s.driver.ListBoroughs(ctx, &FindBorough{Slug: &slug})
	if err != nil {
		return nil, err
	}
	if len(boroughs) == 0 {
		return nil, nil
	}
	return boroughs[0], nil
}

// ListNeighborhoods lists neighborhoods matching the filter.
func (s *Store) ListNeighborhoods(ctx context.Context, find *FindNeighborhood) ([]*Neighborhood, error) {
	return s.driver.ListNeighborhoods(ctx, find)
}

// GetNeighborhoodBySlug returns the neighborhood with the given slug, or nil.
func (s *Store) GetNeighborhoodBySlug(ctx context.Context, slug string) (*Neighborhood, error) {
	neighborhoods, err := s.driver.ListNeighborhoods(ctx, &FindNeighborhood{Slug: &slug})
	if err != nil {
		return nil, err
	}
	if len(neighborhoods) == 0 {
		return nil, nil
	}
	return neighborhoods[0], nil
}
