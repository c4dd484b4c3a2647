package geocoder

import (
	"context"
	"strings"

	"github.com/travelplan/itinerary-api/internal/ports/out/geocoder"
)

type city struct {
	name     string
	country  string
	lat, lng float64
}

var defaultCatalog = []city{
	{"Paris, France", "FR", 48.8566, 2.3522},
	{"London, UK", "GB", 51.5074, -0.1278},
	{"Tokyo, Japan", "JP", 35.6762, 139.6503},
	{"New York, USA", "US", 40.7128, -74.0060},
	{"Rome, Italy", "IT", 41.9028, 12.4964},
	{"Barcelona, Spain", "ES", 41.3874, 2.1686},
	{"Amsterdam, Netherlands", "NL", 52.3676, 4.9041},
	{"Berlin, Germany", "DE", 52.5200, 13.4050},
	{"Prague, Czech Republic", "CZ", 50.0755, 14.4378},
	{"Lisbon, Portugal", "PT", 38.7223, -9.1393},
	{"Vienna, Austria", "AT", 48.2082, 16.3738},
	{"Dublin, Ireland", "IE", 53.3498, -6.2603},
	{"Budapest, Hungary", "HU", 47.4979, 19.0402},
	{"Madrid, Spain", "ES", 40.4168, -3.7038},
	{"Venice, Italy", "IT", 45.4408, 12.3155},
	{"Kyoto, Japan", "JP", 35.0116, 135.7681},
	{"Osaka, Japan", "JP", 34.6937, 135.5023},
	{"Seoul, South Korea", "KR", 37.5665, 126.9780},
	{"Bangkok, Thailand", "TH", 13.7563, 100.5018},
	{"Singapore", "SG", 1.3521, 103.8198},
	{"Montevideo, Uruguay", "UY", -34.9011, -56.1645},
	{"Buenos Aires, Argentina", "AR", -34.6037, -58.3816},
	{"Sydney, Australia", "AU", -33.8688, 151.2093},
	{"Cape Town, South Africa", "ZA", -33.9249, 18.4241},
	{"Rio de Janeiro, Brazil", "BR", -22.9068, -43.1729},
}

// Catalog is a fixed, offline geocoder: a case-insensitive substring match over
// a small list of well-known cities, in list order.
type Catalog struct {
	cities []city
}

func NewCatalog() *Catalog {
	return &Catalog{cities: defaultCatalog}
}

func (c *Catalog) Search(ctx context.Context, query string, limit int) ([]geocoder.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]geocoder.Candidate, 0)
	if q == "" || limit <= 0 {
		return out, nil
	}
	for _, ct := range c.cities {
		if !strings.Contains(strings.ToLower(ct.name), q) {
			continue
		}
		cc, lat, lng := ct.country, ct.lat, ct.lng
		out = append(out, geocoder.Candidate{
			Name:        ct.name,
			CountryCode: &cc,
			Latitude:    &lat,
			Longitude:   &lng,
		})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}
