package types

import (
	"time"

	"github.com/google/uuid"
)

// PlanRequest is the caller's initial submission. Immutable once accepted.
type PlanRequest struct {
	Destination   string   `json:"destination"`
	Vibe          string   `json:"vibe"`
	DurationDays  int      `json:"duration_days,omitempty"`
	PlacesToAvoid []string `json:"places_to_avoid,omitempty"`
}

// Destination is the resolved trip anchor, cached for the session's lifetime.
type Destination struct {
	Name       string     `json:"name"`
	Center     Coordinate `json:"center"`
	Importance float64    `json:"importance"`
	RadiusKm   float64    `json:"radius_km"`
}

// SearchKeyword is one strategic theme produced by the vibe interpreter.
// Slice order reflects priority, not execution order.
type SearchKeyword struct {
	Term      string `json:"term"`
	Category  string `json:"category,omitempty"` // generic noun hint, e.g. "bookshop"
	Essential bool   `json:"essential,omitempty"`
}

type VerificationStatus string

const (
	VerificationUnverified VerificationStatus = "unverified"
	VerificationVerified   VerificationStatus = "verified"
	VerificationRejected   VerificationStatus = "rejected"
)

// StrategyPass identifies which verification pass produced a candidate.
type StrategyPass string

const (
	PassSpecificEntity StrategyPass = "specific_entity"
	PassNounFallback   StrategyPass = "noun_fallback"
	PassRelaxedRadius  StrategyPass = "relaxed_radius"
)

// Candidate is one (keyword, pass) verification outcome.
type Candidate struct {
	Keyword     string             `json:"keyword"`
	Name        string             `json:"name"`
	Address     string             `json:"address,omitempty"`
	Coordinate  Coordinate         `json:"coordinate"`
	Category    string             `json:"category,omitempty"`
	Status      VerificationStatus `json:"status"`
	Generalized bool               `json:"generalized,omitempty"` // noun fallback substituted a category for the entity
	Pass        StrategyPass       `json:"pass,omitempty"`
	Source      string             `json:"source,omitempty"` // geocoder display name / provenance
}

// DayPlan groups geographically close candidates into a single day.
type DayPlan struct {
	Day        int         `json:"day"`
	Candidates []Candidate `json:"candidates"`
	Narrative  string      `json:"narrative"`
}

// ItineraryDraft is an immutable synthesis snapshot. A new draft is produced
// on every synthesis pass; drafts are never mutated in place.
type ItineraryDraft struct {
	ID            uuid.UUID `json:"id"`
	Days          []DayPlan `json:"days"`
	DroppedThemes []string  `json:"dropped_themes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// Stage marks where a session's pipeline should re-enter on resume.
type Stage string

const (
	StageInterpreting     Stage = "interpreting"
	StageSearching        Stage = "searching"
	StageSynthesizing     Stage = "synthesizing"
	StageAwaitingFeedback Stage = "awaiting_feedback"
	StageDone             Stage = "done"
)

type HistoryRole string

const (
	HistoryRoleUser      HistoryRole = "user"
	HistoryRoleAssistant HistoryRole = "assistant"
)

type HistoryEntryType string

const (
	HistoryInitialRequest HistoryEntryType = "initial_request"
	HistoryFeedback       HistoryEntryType = "feedback"
	HistoryDraft          HistoryEntryType = "draft"
)

// HistoryEntry is one turn of the planning conversation. History is
// append-only: entries are added at stage transitions, never rewritten.
type HistoryEntry struct {
	Role      HistoryRole      `json:"role"`
	Type      HistoryEntryType `json:"type"`
	Content   string           `json:"content"`
	DraftID   *uuid.UUID       `json:"draft_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

// SessionState is the unit of persistence across the pause boundary.
type SessionState struct {
	ID            uuid.UUID       `json:"id"`
	Request       PlanRequest     `json:"request"`
	Destination   *Destination    `json:"destination,omitempty"`
	History       []HistoryEntry  `json:"history"`
	Keywords      []SearchKeyword `json:"keywords,omitempty"`
	Candidates    []Candidate     `json:"candidates,omitempty"`
	DroppedThemes []string        `json:"dropped_themes,omitempty"`
	Draft         *ItineraryDraft `json:"draft,omitempty"`
	Stage         Stage           `json:"stage"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
	ExpiresAt     time.Time       `json:"expires_at"`
}

// VerifiedCandidates returns only candidates that passed verification.
func (s *SessionState) VerifiedCandidates() []Candidate {
	out := make([]Candidate, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if c.Status == VerificationVerified {
			out = append(out, c)
		}
	}
	return out
}

// PlanResult is the public result of start/resume: the session identifier
// plus the current draft.
type PlanResult struct {
	SessionID uuid.UUID       `json:"session_id"`
	Stage     Stage           `json:"stage"`
	Draft     *ItineraryDraft `json:"itinerary_draft,omitempty"`
}
