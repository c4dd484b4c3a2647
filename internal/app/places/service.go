// Package places resolves free-text city queries into candidates a traveler can
// add to an itinerary.
package places

import (
	"context"

	"go.uber.org/zap"

	"github.com/travelplan/itinerary-api/internal/domain"
	"github.com/travelplan/itinerary-api/internal/ports/out/geocoder"
)

const (
	DefaultLimit = 8
	MaxLimit     = 20
)

// Service never fails: a geocoder error is logged and reported as no candidates.
type Service struct {
	geo geocoder.Geocoder
	log *zap.Logger
}

func NewService(geo geocoder.Geocoder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{geo: geo, log: log}
}

// Search returns at most limit places matching query. A limit outside
// [1, MaxLimit] falls back to DefaultLimit or MaxLimit respectively.
func (s *Service) Search(ctx context.Context, query string, limit int) []domain.Place {
	q := domain.NormalizeName(query)
	if q == "" {
		return []domain.Place{}
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	cands, err := s.geo.Search(ctx, q, limit)
	if err != nil {
		s.log.Warn("geocoder search failed", zap.String("query", q), zap.Error(err))
		return []domain.Place{}
	}

	out := make([]domain.Place, 0, len(cands))
	for _, c := range cands {
		name := domain.NormalizeName(c.Name)
		if name == "" {
			continue
		}
		p := domain.Place{Name: name, CountryCode: c.CountryCode}
		if c.Latitude != nil && c.Longitude != nil {
			p.Coordinates = &domain.Coordinates{Latitude: *c.Latitude, Longitude: *c.Longitude}
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
