package planner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"

	"github.com/FACorreiaa/go-itinerary-planner/app/observability/metrics"
	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/city"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/interpreter"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/itinerary"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/search"
	"github.com/FACorreiaa/go-itinerary-planner/internal/api/session"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service is the planning state machine. Start and Resume are the entire
// public surface of the core; everything else hangs off the stage sequence
// INTERPRETING -> SEARCHING -> SYNTHESIZING -> AWAITING_FEEDBACK.
type Service interface {
	Start(ctx context.Context, req types.PlanRequest) (*types.PlanResult, error)
	Resume(ctx context.Context, sessionID uuid.UUID, feedback string, accept bool) (*types.PlanResult, error)
	GetSession(ctx context.Context, sessionID uuid.UUID) (*types.SessionState, error)
	CloseSession(ctx context.Context, sessionID uuid.UUID) error
}

type ServiceImpl struct {
	logger      *slog.Logger
	cityService city.Service
	interpreter interpreter.Service
	search      search.Service
	itinerary   itinerary.Service
	store       session.Repository
	cfg         config.PlannerConfig
}

func NewService(
	cityService city.Service,
	interpreterService interpreter.Service,
	searchService search.Service,
	itineraryService itinerary.Service,
	store session.Repository,
	cfg config.PlannerConfig,
	logger *slog.Logger,
) *ServiceImpl {
	return &ServiceImpl{
		logger:      logger,
		cityService: cityService,
		interpreter: interpreterService,
		search:      searchService,
		itinerary:   itineraryService,
		store:       store,
		cfg:         cfg,
	}
}

// Start creates a session and runs the pipeline through to the first draft,
// committing state after every stage. On a stage failure the session stays
// at the last committed stage so the caller can retry.
func (s *ServiceImpl) Start(ctx context.Context, req types.PlanRequest) (*types.PlanResult, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Start")
	defer span.End()

	l := s.logger.With(slog.String("method", "Start"), slog.String("destination", req.Destination))

	dest, err := s.cityService.Classify(ctx, req.Destination)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Destination classification failed")
		return nil, err
	}

	now := time.Now()
	state := &types.SessionState{
		ID:          uuid.New(),
		Request:     req,
		Destination: dest,
		History: []types.HistoryEntry{{
			Role:      types.HistoryRoleUser,
			Type:      types.HistoryInitialRequest,
			Content:   req.Vibe,
			Timestamp: now,
		}},
		Stage:     types.StageInterpreting,
		CreatedAt: now,
		UpdatedAt: now,
		ExpiresAt: now.Add(s.cfg.SessionTTL),
	}
	if err := s.store.Create(ctx, state); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Session creation failed")
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	span.SetAttributes(attribute.String("session_id", state.ID.String()))

	if m := metrics.Get(); m != nil {
		m.PlansStartedTotal.Add(ctx, 1)
		m.ActiveSessions.Add(ctx, 1)
	}

	if err := s.runPipeline(ctx, state); err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Plan started",
		slog.String("session_id", state.ID.String()),
		slog.String("draft_id", state.Draft.ID.String()),
	)
	span.SetStatus(codes.Ok, "Plan started")
	return result(state), nil
}

// Resume loads a paused session, appends the feedback turn and re-enters the
// pipeline. Feedback that introduces a place category absent from the
// current draft re-enters at SEARCHING; otherwise the existing verified
// candidates are only re-synthesized.
func (s *ServiceImpl) Resume(ctx context.Context, sessionID uuid.UUID, feedback string, accept bool) (*types.PlanResult, error) {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, "Resume")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", sessionID.String()))

	l := s.logger.With(slog.String("method", "Resume"), slog.String("session_id", sessionID.String()))

	state, err := s.store.Get(ctx, sessionID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Session load failed")
		return nil, err
	}
	if state.Stage == types.StageDone {
		span.SetStatus(codes.Error, "Session already closed")
		return nil, fmt.Errorf("session %s is closed: %w", sessionID, types.ErrSessionNotFound)
	}

	if m := metrics.Get(); m != nil {
		m.PlansResumedTotal.Add(ctx, 1)
	}

	if accept {
		state.Stage = types.StageDone
		if err := s.store.Update(ctx, state); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Session close failed")
			return nil, fmt.Errorf("failed to close session: %w", err)
		}
		if m := metrics.Get(); m != nil {
			m.ActiveSessions.Add(ctx, -1)
		}
		l.InfoContext(ctx, "Plan accepted")
		span.SetStatus(codes.Ok, "Plan accepted")
		return result(state), nil
	}

	// History is append-only: the feedback turn is added, never rewritten.
	state.History = append(state.History, types.HistoryEntry{
		Role:      types.HistoryRoleUser,
		Type:      types.HistoryFeedback,
		Content:   feedback,
		Timestamp: time.Now(),
	})

	if s.needsNewSearch(feedback, state) {
		state.Stage = types.StageInterpreting
		l.InfoContext(ctx, "Feedback implies new location constraints, re-entering search")
	} else {
		state.Stage = types.StageSynthesizing
		l.InfoContext(ctx, "Re-ranking existing candidates, re-entering synthesis")
	}

	if err := s.runPipeline(ctx, state); err != nil {
		return nil, err
	}

	l.InfoContext(ctx, "Plan refined", slog.String("draft_id", state.Draft.ID.String()))
	span.SetStatus(codes.Ok, "Plan refined")
	return result(state), nil
}

func (s *ServiceImpl) GetSession(ctx context.Context, sessionID uuid.UUID) (*types.SessionState, error) {
	return s.store.Get(ctx, sessionID)
}

func (s *ServiceImpl) CloseSession(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.store.Expire(ctx, sessionID); err != nil {
		return err
	}
	if m := metrics.Get(); m != nil {
		m.ActiveSessions.Add(ctx, -1)
	}
	return nil
}

// runPipeline executes stages from the session's current stage marker until
// the pause point. Each stage commits atomically: either it completes and
// the advanced state is persisted, or the prior committed state is retained
// and a StageFailureError is returned.
func (s *ServiceImpl) runPipeline(ctx context.Context, state *types.SessionState) error {
	for state.Stage != types.StageAwaitingFeedback {
		switch state.Stage {
		case types.StageInterpreting:
			if err := s.stage(ctx, state, types.StageInterpreting, types.StageSearching, s.interpretStage); err != nil {
				return err
			}
		case types.StageSearching:
			if err := s.stage(ctx, state, types.StageSearching, types.StageSynthesizing, s.searchStage); err != nil {
				return err
			}
		case types.StageSynthesizing:
			if err := s.stage(ctx, state, types.StageSynthesizing, types.StageAwaitingFeedback, s.synthesizeStage); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unexpected stage %q for session %s", state.Stage, state.ID)
		}
	}
	return nil
}

// stage runs one stage function and commits the advanced state. The stage
// marker moves only on success.
func (s *ServiceImpl) stage(ctx context.Context, state *types.SessionState, current, next types.Stage, fn func(context.Context, *types.SessionState) error) error {
	ctx, span := otel.Tracer("PlannerService").Start(ctx, string(current))
	defer span.End()
	start := time.Now()

	fail := func(err error) error {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Stage failed")
		if m := metrics.Get(); m != nil {
			m.StageFailuresTotal.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", string(current))))
		}
		return &types.StageFailureError{Stage: current, Err: err}
	}

	if err := fn(ctx, state); err != nil {
		return fail(err)
	}
	state.Stage = next
	if err := s.store.Update(ctx, state); err != nil {
		state.Stage = current
		return fail(err)
	}

	if m := metrics.Get(); m != nil {
		m.StageDurationSeconds.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("stage", string(current))))
	}
	span.SetStatus(codes.Ok, "Stage completed")
	return nil
}

func (s *ServiceImpl) interpretStage(ctx context.Context, state *types.SessionState) error {
	keywords, err := s.interpreter.Interpret(ctx, state.Request, state.History)
	if err != nil {
		return err
	}
	state.Keywords = keywords
	return nil
}

func (s *ServiceImpl) searchStage(ctx context.Context, state *types.SessionState) error {
	candidates, dropped, err := s.search.Verify(ctx, *state.Destination, s.unverifiedKeywords(state))
	if err != nil {
		return err
	}

	// Previously verified candidates that survived the latest negative
	// constraints are retained as-is, never re-verified.
	constraints := interpreter.NegativeConstraints(state.History, state.Request.PlacesToAvoid)
	merged := make([]types.Candidate, 0, len(state.Candidates)+len(candidates))
	seen := make(map[string]bool)
	for _, c := range state.VerifiedCandidates() {
		if interpreter.MatchesConstraints(c.Name, c.Category, constraints) {
			continue
		}
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}
	for _, c := range candidates {
		key := strings.ToLower(c.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		merged = append(merged, c)
	}

	state.Candidates = merged
	state.DroppedThemes = mergeDropped(state.DroppedThemes, dropped)
	return nil
}

func (s *ServiceImpl) synthesizeStage(ctx context.Context, state *types.SessionState) error {
	days := state.Request.DurationDays

	draft, err := s.itinerary.Synthesize(ctx, *state.Destination, state.VerifiedCandidates(), state.History, days, state.DroppedThemes)
	if err != nil {
		return err
	}

	state.Draft = draft
	draftID := draft.ID
	state.History = append(state.History, types.HistoryEntry{
		Role:      types.HistoryRoleAssistant,
		Type:      types.HistoryDraft,
		Content:   fmt.Sprintf("draft with %d day(s)", len(draft.Days)),
		DraftID:   &draftID,
		Timestamp: time.Now(),
	})
	return nil
}

// unverifiedKeywords returns the keywords that still need a verification
// pass: everything without a verified candidate already attached.
func (s *ServiceImpl) unverifiedKeywords(state *types.SessionState) []types.SearchKeyword {
	verified := make(map[string]bool)
	for _, c := range state.VerifiedCandidates() {
		verified[strings.ToLower(c.Keyword)] = true
	}
	out := make([]types.SearchKeyword, 0, len(state.Keywords))
	for _, kw := range state.Keywords {
		if verified[strings.ToLower(kw.Term)] {
			continue
		}
		out = append(out, kw)
	}
	return out
}

// needsNewSearch is the re-entry heuristic: true when the feedback mentions
// a known place category that no current candidate covers.
func (s *ServiceImpl) needsNewSearch(feedback string, state *types.SessionState) bool {
	if state.Draft == nil {
		return true
	}

	var vocab strings.Builder
	for _, c := range state.VerifiedCandidates() {
		vocab.WriteString(strings.ToLower(c.Name))
		vocab.WriteString(" ")
		vocab.WriteString(strings.ToLower(c.Category))
		vocab.WriteString(" ")
		vocab.WriteString(strings.ToLower(c.Keyword))
		vocab.WriteString(" ")
	}
	known := vocab.String()

	for _, word := range strings.Fields(strings.ToLower(feedback)) {
		word = strings.Trim(word, ".,!?;:\"'")
		noun, ok := search.CategoryNoun(word)
		if !ok {
			continue
		}
		if !strings.Contains(known, noun) && !strings.Contains(known, strings.TrimSuffix(word, "s")) {
			return true
		}
	}
	return false
}

func result(state *types.SessionState) *types.PlanResult {
	return &types.PlanResult{
		SessionID: state.ID,
		Stage:     state.Stage,
		Draft:     state.Draft,
	}
}

func mergeDropped(existing, added []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range append(append([]string{}, existing...), added...) {
		key := strings.ToLower(d)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, d)
	}
	return out
}
