package sqlite

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/kiezfinder/kiezfinder/store"
)

func (d *DB) ListBoroughs(ctx context.Context, find *store.FindBorough) ([]*store.Borough, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.Slug; v != nil {
		where, args = append(where, "slug = ?"), append(args, *v)
	}
	if v := find.MaxRent; v != nil {
		where, args = append(where, "minimum_rent <= ?"), append(args, *v)
	}
	if v := find.Tag; v != nil {
		// Tags are stored comma-joined; pad both sides so the match is
		// whole-tag only.
		where, args = append(where, "(',' || tags || ',') LIKE ?"), append(args, "%,"+*v+",%")
	}

	query := `
		SELECT id, name, slug, minimum_rent, tags, population, area_km2, latitude, longitude
		FROM borough
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list boroughs")
	}
	defer rows.Close()

	var boroughs []*store.Borough
	for rows.Next() {
		var (
			borough store.Borough
			tags    string
		)
		if err := rows.Scan(
			&borough.ID, &borough.Name, &borough.Slug, &borough.MinimumRent,
			&tags, &borough.Population, &borough.AreaKm2, &borough.Latitude, &borough.Longitude,
		); err != nil {
			return nil, errors.Wrap(err, "scan borough")
		}
		borough.Tags = splitTags(tags)
		boroughs = append(boroughs, &borough)
	}
	return boroughs, rows.Err()
}

func (d *DB) ListNeighborhoods(ctx context.Context, find *store.FindNeighborhood) ([]*store.Neighborhood, error) {
	where, args := []string{"1 = 1"}, []any{}
	if v := find.Slug; v != nil {
		where, args = append(where, "slug = ?"), append(args, *v)
	}
	if v := find.BoroughSlug; v != nil {
		where, args = append(where, "borough_slug = ?"), append(args, *v)
	}
	if v := find.MaxRent; v != nil {
		where, args = append(where, "rent_price <= ?"), append(args, *v)
	}

	query := `
		SELECT id, borough_slug, name, slug, rent_price, crime_rate,
			foreign_population_pct, infrastructure_score, latitude, longitude
		FROM neighborhood
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY name
	`

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list neighborhoods")
	}
	defer rows.Close()

	var neighborhoods []*store.Neighborhood
	for rows.Next() {
		var n store.Neighborhood
		if err := rows.Scan(
			&n.ID, &n.BoroughSlug, &n.Name, &n.Slug, &n.RentPrice, &n.CrimeRate,
			&n.ForeignPopulationPct, &n.InfrastructureScore, &n.Latitude, &n.Longitude,
		); err != nil {
			return nil, errors.Wrap(err, "scan neighborhood")
		}
		neighborhoods = append(neighborhoods, &n)
	}
	return neighborhoods, rows.Err()
}

func splitTags(tags string) []string {
	if tags == "" {
		return nil
	}
	parts := strings.Split(tags, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
