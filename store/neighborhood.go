package store

// Borough is an administrative district with aggregate statistics and the
// lifestyle tags visitors filter by.
type Borough struct {
	ID          int32    `json:"id"`
	Name        string   `json:"name"`
	Slug        string   `json:"slug"`
	MinimumRent float64  `json:"minimum_rent"`
	Tags        []string `json:"tags"`
	Population  int64    `json:"population"`
	AreaKm2     float64  `json:"area_km2"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
}

// Neighborhood is a single neighborhood with its per-area statistics.
type Neighborhood struct {
	ID                   int32   `json:"id"`
	BoroughSlug          string  `json:"borough_slug"`
	Name                 string  `json:"name"`
	Slug                 string  `json:"slug"`
	RentPrice            float64 `json:"rent_price"`
	CrimeRate            float64 `json:"crime_rate"`
	ForeignPopulationPct float64 `json:"foreign_population_percentage"`
	InfrastructureScore  float64 `json:"infrastructure_score"`
	Latitude             float64 `json:"latitude"`
	Longitude            float64 `json:"longitude"`
}

// FindBorough filters borough queries.
type FindBorough struct {
	Slug    *string
	Tag     *string
	MaxRent *float64
}

// FindNeighborhood filters neighborhood queries.
type FindNeighborhood struct {
	Slug        *string
	BoroughSlug *string
	MaxRent     *float64
}
