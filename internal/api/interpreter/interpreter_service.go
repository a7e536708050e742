package interpreter

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-itinerary-planner/config"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

// Generator is the narrow reasoning capability the interpreter needs, so the
// stage stays testable with deterministic stand-ins.
type Generator interface {
	GenerateStructured(ctx context.Context, prompt string) (string, error)
}

// Ensure implementation satisfies the interface
var _ Service = (*ServiceImpl)(nil)

// Service turns a free-text travel request plus feedback history into an
// ordered set of search keywords.
type Service interface {
	Interpret(ctx context.Context, req types.PlanRequest, history []types.HistoryEntry) ([]types.SearchKeyword, error)
}

type ServiceImpl struct {
	logger *slog.Logger
	ai     Generator
	cfg    config.PlannerConfig
	aiCfg  config.AIConfig
}

func NewService(ai Generator, cfg config.PlannerConfig, aiCfg config.AIConfig, logger *slog.Logger) *ServiceImpl {
	return &ServiceImpl{
		logger: logger,
		ai:     ai,
		cfg:    cfg,
		aiCfg:  aiCfg,
	}
}

func (s *ServiceImpl) Interpret(ctx context.Context, req types.PlanRequest, history []types.HistoryEntry) ([]types.SearchKeyword, error) {
	ctx, span := otel.Tracer("InterpreterService").Start(ctx, "Interpret")
	defer span.End()

	l := s.logger.With(slog.String("method", "Interpret"), slog.String("destination", req.Destination))

	days := req.DurationDays
	if days <= 0 {
		days = s.cfg.DefaultDurationDays
	}
	target := days * s.cfg.KeywordsPerDay
	if target < s.cfg.MinKeywords {
		target = s.cfg.MinKeywords
	}

	constraints := NegativeConstraints(history, req.PlacesToAvoid)
	prompt := buildKeywordPrompt(req, history, constraints, days, target)

	var raw string
	var err error
	for attempt := 0; attempt <= s.aiCfg.MaxRetries; attempt++ {
		callCtx, cancel := context.WithTimeout(ctx, s.aiCfg.Timeout)
		raw, err = s.ai.GenerateStructured(callCtx, prompt)
		cancel()
		if err == nil {
			break
		}
		l.WarnContext(ctx, "Keyword generation attempt failed",
			slog.Int("attempt", attempt+1),
			slog.Any("error", err),
		)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Keyword generation failed")
		return nil, fmt.Errorf("failed to generate keywords: %w", err)
	}

	keywords, err := parseKeywords(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Keyword parsing failed")
		return nil, err
	}

	// The avoid-list is a hard constraint. The prompt already carries it,
	// but the model is not trusted to honour it.
	keywords = FilterKeywords(keywords, constraints)
	if len(keywords) > target {
		keywords = keywords[:target]
	}

	l.InfoContext(ctx, "Keywords interpreted",
		slog.Int("count", len(keywords)),
		slog.Int("negative_constraints", len(constraints)),
	)
	span.SetStatus(codes.Ok, "Keywords interpreted")
	return keywords, nil
}

var negativeMarkers = []string{
	"no ", "not ", "hate ", "avoid ", "skip ", "without ", "don't want ", "do not want ", "less ", "fewer ",
}

// NegativeConstraints derives the rejected themes from feedback text and the
// caller's explicit avoid-list. Each constraint is a lowercased noun chunk.
func NegativeConstraints(history []types.HistoryEntry, placesToAvoid []string) []string {
	seen := make(map[string]bool)
	var out []string

	add := func(term string) {
		term = strings.ToLower(strings.TrimSpace(term))
		term = strings.Trim(term, ".,!?;:\"'")
		if term == "" || seen[term] {
			return
		}
		seen[term] = true
		out = append(out, term)
	}

	for _, p := range placesToAvoid {
		add(p)
	}

	for _, entry := range history {
		if entry.Type != types.HistoryFeedback {
			continue
		}
		text := strings.ToLower(entry.Content)
		for _, marker := range negativeMarkers {
			rest := text
			for {
				idx := strings.Index(rest, marker)
				if idx < 0 {
					break
				}
				tail := rest[idx+len(marker):]
				add(firstNounChunk(tail))
				rest = tail
			}
		}
	}
	return out
}

// firstNounChunk takes the words following a negative marker up to the next
// clause boundary, capped at two words.
func firstNounChunk(text string) string {
	for _, stop := range []string{",", ".", ";", "!", "?", " and ", " but ", " give ", " show "} {
		if idx := strings.Index(text, stop); idx >= 0 {
			text = text[:idx]
		}
	}
	words := strings.Fields(text)
	if len(words) > 2 {
		words = words[:2]
	}
	return strings.Join(words, " ")
}

// FilterKeywords drops every keyword that matches a negative constraint in
// either its term or its category, ignoring case and a trailing plural s.
func FilterKeywords(keywords []types.SearchKeyword, constraints []string) []types.SearchKeyword {
	if len(constraints) == 0 {
		return keywords
	}
	out := make([]types.SearchKeyword, 0, len(keywords))
	for _, kw := range keywords {
		if matchesAnyConstraint(kw, constraints) {
			continue
		}
		out = append(out, kw)
	}
	return out
}

func matchesAnyConstraint(kw types.SearchKeyword, constraints []string) bool {
	return MatchesConstraints(kw.Term, kw.Category, constraints)
}

// MatchesConstraints reports whether a term or its category collides with
// any negative constraint, ignoring case and a trailing plural s.
func MatchesConstraints(term, category string, constraints []string) bool {
	term = strings.ToLower(term)
	category = strings.ToLower(category)
	for _, c := range constraints {
		singular := strings.TrimSuffix(c, "s")
		if singular == "" {
			continue
		}
		if strings.Contains(term, singular) || strings.Contains(category, singular) {
			return true
		}
	}
	return false
}
