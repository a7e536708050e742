package itinerary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Generator is the narrow reasoning capability used for narration.
type Generator interface {
	GenerateContent(ctx context.Context, prompt string) (string, error)
}

// Distancer abstracts the distance measure used for clustering so a routing
// backend can replace straight-line distance without touching the algorithm.
type Distancer interface {
	DistanceKm(a, b types.Coordinate) float64
}

// HaversineDistancer is the default straight-line distance measure.
type HaversineDistancer struct{}

func (HaversineDistancer) DistanceKm(a, b types.Coordinate) float64 {
	return types.DistanceKm(a, b)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service composes verified candidates into a day-by-day draft. It must
// never reference a candidate outside the verified input set.
type Service interface {
	Synthesize(ctx context.Context, dest types.Destination, candidates []types.Candidate, history []types.HistoryEntry, days int, droppedThemes []string) (*types.ItineraryDraft, error)
}

type ServiceImpl struct {
	logger   *slog.Logger
	ai       Generator
	distance Distancer
	cfg      config.PlannerConfig
	aiCfg    config.AIConfig
}

func NewService(ai Generator, distance Distancer, cfg config.PlannerConfig, aiCfg config.AIConfig, logger *slog.Logger) *ServiceImpl {
	if distance == nil {
		distance = HaversineDistancer{}
	}
	return &ServiceImpl{
		logger:   logger,
		ai:       ai,
		distance: distance,
		cfg:      cfg,
		aiCfg:    aiCfg,
	}
}

func (s *ServiceImpl) Synthesize(ctx context.Context, dest types.Destination, candidates []types.Candidate, history []types.HistoryEntry, days int, droppedThemes []string) (*types.ItineraryDraft, error) {
	ctx, span := otel.Tracer("ItineraryService").Start(ctx, "Synthesize")
	defer span.End()

	l := s.logger.With(slog.String("method", "Synthesize"), slog.String("destination", dest.Name))

	for _, c := range candidates {
		if c.Status != types.VerificationVerified {
			err := fmt.Errorf("candidate %q is %s, refusing to synthesize", c.Keyword, c.Status)
			span.RecordError(err)
			span.SetStatus(codes.Error, "Unverified candidate in input")
			return nil, err
		}
	}

	if days <= 0 {
		days = s.cfg.DefaultDurationDays
	}

	groups := ClusterByProximity(candidates, days, s.distance)

	draft := &types.ItineraryDraft{
		ID:            uuid.New(),
		Days:          make([]types.DayPlan, 0, len(groups)),
		DroppedThemes: droppedThemes,
		CreatedAt:     time.Now(),
	}

	vibe := initialVibe(history)
	for i, group := range groups {
		narrative, err := s.narrate(ctx, dest, group, history, vibe, i+1)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Narration failed")
			return nil, fmt.Errorf("failed to narrate day %d: %w", i+1, err)
		}
		draft.Days = append(draft.Days, types.DayPlan{
			Day:        i + 1,
			Candidates: group,
			Narrative:  narrative,
		})
	}

	l.InfoContext(ctx, "Draft synthesized",
		slog.String("draft_id", draft.ID.String()),
		slog.Int("days", len(draft.Days)),
		slog.Int("dropped_themes", len(droppedThemes)),
	)
	span.SetStatus(codes.Ok, "Draft synthesized")
	return draft, nil
}

func (s *ServiceImpl) narrate(ctx context.Context, dest types.Destination, group []types.Candidate, history []types.HistoryEntry, vibe string, day int) (string, error) {
	if len(group) == 0 {
		return "A free day. Wander, linger over a long meal, revisit a favourite spot.", nil
	}

	prompt := buildNarrationPrompt(dest, group, history, vibe, day)

	var narrative string
	var err error
	for attempt := 0; attempt <= s.aiCfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.aiCfg.Timeout)
		narrative, err = s.ai.GenerateContent(callCtx, prompt)
		cancel()
		if err == nil {
			return narrative, nil
		}
		s.logger.WarnContext(ctx, "Narration attempt failed",
			slog.Int("day", day),
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}
	return "", err
}

func initialVibe(history []types.HistoryEntry) string {
	for _, entry := range history {
		if entry.Type == types.HistoryInitialRequest {
			return entry.Content
		}
	}
	return ""
}
