package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/geocoder"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service expands keywords into verified candidates. Partial success is the
// normal outcome: keywords that fail every pass are dropped, never fatal.
type Service interface {
	Verify(ctx context.Context, dest types.Destination, keywords []types.SearchKeyword) ([]types.Candidate, []string, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	geo    geocoder.Searcher
	cfg    config.PlannerConfig
}

func NewService(geo geocoder.Searcher, cfg config.PlannerConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		geo:    geo,
		cfg:    cfg,
	}
}

// Verify runs the tiered verification strategy for every keyword. Keywords
// are independent, so lookups run concurrently with bounded parallelism;
// results are reassembled in priority order so output stays deterministic.
func (s *ServiceImpl) Verify(ctx context.Context, dest types.Destination, keywords []types.SearchKeyword) ([]types.Candidate, []string, error) {
	ctx, span := otel.Tracer("SearchService").Start(ctx, "Verify")
	defer span.End()
	span.SetAttributes(
		attribute.String("destination", dest.Name),
		attribute.Int("keyword_count", len(keywords)),
	)

	results := make([]types.Candidate, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	limit := s.cfg.MaxConcurrentLookups
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)

	for i, kw := range keywords {
		g.Go(func() error {
			results[i] = s.verifyKeyword(gctx, dest, kw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Verification aborted")
		return nil, nil, fmt.Errorf("keyword verification aborted: %w", err)
	}

	var verified []types.Candidate
	var dropped []string
	seenPlaces := make(map[string]bool)
	for _, c := range results {
		if c.Status != types.VerificationVerified {
			dropped = append(dropped, c.Keyword)
			continue
		}
		placeKey := strings.ToLower(c.Name)
		if seenPlaces[placeKey] {
			continue
		}
		seenPlaces[placeKey] = true
		verified = append(verified, c)
	}

	s.logger.InfoContext(ctx, "Keyword verification finished",
		slog.String("destination", dest.Name),
		slog.Int("verified", len(verified)),
		slog.Int("dropped", len(dropped)),
	)
	span.SetStatus(codes.Ok, "Verification finished")
	return verified, dropped, nil
}

// verifyKeyword walks the ordered strategy passes with early exit on the
// first success. A geocoder failure on one pass counts as an empty result
// and falls through to the next pass.
func (s *ServiceImpl) verifyKeyword(ctx context.Context, dest types.Destination, kw types.SearchKeyword) types.Candidate {
	l := s.logger.With(slog.String("keyword", kw.Term), slog.String("destination", dest.Name))

	for _, pass := range buildPasses(kw, dest, s.cfg.RadiusExpansionFactor) {
		places, err := s.geo.Search(ctx, pass.query, geocoder.SearchOptions{
			Center:   dest.Center,
			RadiusKm: pass.radiusKm,
		})
		if err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			l.WarnContext(ctx, "Geocoder pass failed, falling through",
				slog.String("pass", string(pass.name)),
				slog.Any("error", err),
			)
			continue
		}
		if len(places) == 0 {
			l.DebugContext(ctx, "No matches for pass", slog.String("pass", string(pass.name)))
			continue
		}

		best := bestMatch(dest.Center, places)
		recordOutcome(ctx, pass.name, true)
		name := kw.Term
		if pass.generalized {
			// Use the real matched place, not the unverifiable entity the
			// traveller named.
			name = best.Name
			if name == "" {
				name = NounFor(kw)
			}
		}
		return types.Candidate{
			Keyword:     kw.Term,
			Name:        name,
			Address:     best.DisplayName,
			Coordinate:  best.Coordinate,
			Category:    categoryOf(kw, best),
			Status:      types.VerificationVerified,
			Generalized: pass.generalized,
			Pass:        pass.name,
			Source:      best.DisplayName,
		}
	}

	l.InfoContext(ctx, "Keyword rejected after all passes",
		slog.Bool("essential", kw.Essential),
		slog.Any("error", types.ErrVerificationExhausted),
	)
	recordOutcome(ctx, types.StrategyPass("rejected"), false)
	return types.Candidate{
		Keyword: kw.Term,
		Status:  types.VerificationRejected,
	}
}

func recordOutcome(ctx context.Context, pass types.StrategyPass, verified bool) {
	m := metrics.Get()
	if m == nil {
		return
	}
	outcome := "rejected"
	if verified {
		outcome = string(pass)
	}
	m.VerificationOutcomesTotal.Add(ctx, 1,
		metric.WithAttributes(attribute.String("outcome", outcome)),
	)
}
