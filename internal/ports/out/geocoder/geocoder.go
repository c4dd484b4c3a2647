package geocoder

import "context"

// Candidate is one geocoding match for a free-text city query.
type Candidate struct {
	Name        string
	CountryCode *string
	Latitude    *float64
	Longitude   *float64
}

// Geocoder resolves free-text place queries. Implementations return at most limit
// candidates, best match first.
type Geocoder interface {
	Search(ctx context.Context, query string, limit int) ([]Candidate, error)
}
