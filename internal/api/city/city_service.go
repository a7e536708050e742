package city

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/geocoder"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service resolves a destination name to a coordinate, an importance score
// and a derived search radius.
type Service interface {
	Classify(ctx context.Context, destinationName string) (*types.Destination, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	geo      geocoder.Searcher
	cfg      config.PlannerConfig
	resolved *cache.Cache
}

func NewService(geo geocoder.Searcher, cfg config.PlannerConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger:   logger,
		geo:      geo,
		cfg:      cfg,
		resolved: cache.New(cache.NoExpiration, 0),
	}
}

// RadiusForImportance derives the search radius from the importance score.
// Scores above the threshold mark a megacity, where day plans should stay
// within city limits; everything else is a regional hub where day trips are
// in scope.
func RadiusForImportance(cfg config.PlannerConfig, importance float64) float64 {
	if importance > cfg.ImportanceThreshold {
		return cfg.MegacityRadiusKm
	}
	return cfg.RegionalRadiusKm
}

// NormalizeName trims and collapses whitespace so cache keys and geocoder
// queries stay stable across equivalent inputs.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(name), " ")
}

func (s *ServiceImpl) Classify(ctx context.Context, destinationName string) (*types.Destination, error) {
	ctx, span := otel.Tracer("CityService").Start(ctx, "Classify")
	defer span.End()

	name := NormalizeName(destinationName)
	if name == "" {
		span.SetStatus(codes.Error, "Empty destination name")
		return nil, fmt.Errorf("empty destination name: %w", types.ErrUnresolvableDestination)
	}

	cacheKey := strings.ToLower(name)
	if cached, found := s.resolved.Get(cacheKey); found {
		dest := cached.(types.Destination)
		return &dest, nil
	}

	l := s.logger.With(slog.String("method", "Classify"), slog.String("destination", name))

	place, err := s.geo.Geocode(ctx, name)
	if err != nil {
		l.ErrorContext(ctx, "Geocoder lookup failed", slog.Any("error", err))
		span.RecordError(err)
		span.SetStatus(codes.Error, "Geocoder lookup failed")
		return nil, fmt.Errorf("failed to geocode destination %q: %w", name, err)
	}
	if place == nil {
		l.WarnContext(ctx, "Destination not found")
		span.SetStatus(codes.Error, "Destination not found")
		return nil, fmt.Errorf("destination %q: %w", name, types.ErrUnresolvableDestination)
	}

	dest := types.Destination{
		Name:       name,
		Center:     place.Coordinate,
		Importance: place.Importance,
		RadiusKm:   RadiusForImportance(s.cfg, place.Importance),
	}
	s.resolved.Set(cacheKey, dest, cache.DefaultExpiration)

	l.InfoContext(ctx, "Destination classified",
		slog.Float64("importance", dest.Importance),
		slog.Float64("radius_km", dest.RadiusKm),
	)
	span.SetStatus(codes.Ok, "Destination classified")
	return &dest, nil
}
