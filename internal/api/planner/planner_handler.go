package planner

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/FACorreiaa/go-itinerary-planner/internal/api"
	"github.com/FACorreiaa/go-itinerary-planner/internal/types"
)

type Handler struct {
	logger  *slog.Logger
	service Service
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		logger:  logger,
		service: service,
	}
}

// ResumeRequest is the body of POST /plan/{id}/resume.
type ResumeRequest struct {
	Feedback string `json:"feedback,omitempty"`
	Accept   bool   `json:"accept,omitempty"`
}

// StartPlan handles POST /plan/start - runs the pipeline to the first draft.
func (h *Handler) StartPlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "StartPlan")
	defer span.End()

	l := h.logger.With(slog.String("method", "StartPlan"))

	var req types.PlanRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		l.WarnContext(ctx, "Invalid request body", slog.Any("error", err))
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Destination == "" || req.Vibe == "" {
		span.SetStatus(codes.Error, "Missing required fields")
		api.ErrorResponse(w, r, http.StatusBadRequest, "destination and vibe are required")
		return
	}

	res, err := h.service.Start(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, r, err, "Failed to start plan")
		return
	}

	l.InfoContext(ctx, "Plan started", slog.String("session_id", res.SessionID.String()))
	span.SetStatus(codes.Ok, "Plan started")
	api.WriteJSONResponse(w, r, http.StatusCreated, res)
}

// ResumePlan handles POST /plan/{id}/resume - incorporates feedback or
// accepts the current draft.
func (h *Handler) ResumePlan(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "ResumePlan")
	defer span.End()

	l := h.logger.With(slog.String("method", "ResumePlan"))

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Invalid session id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid session id")
		return
	}

	var req ResumeRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		span.SetStatus(codes.Error, "Invalid request body")
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if req.Feedback == "" && !req.Accept {
		span.SetStatus(codes.Error, "Missing feedback")
		api.ErrorResponse(w, r, http.StatusBadRequest, "feedback is required unless accepting the draft")
		return
	}

	res, err := h.service.Resume(ctx, sessionID, req.Feedback, req.Accept)
	if err != nil {
		h.writeServiceError(ctx, w, r, err, "Failed to resume plan")
		return
	}

	l.InfoContext(ctx, "Plan resumed", slog.String("session_id", sessionID.String()))
	span.SetStatus(codes.Ok, "Plan resumed")
	api.WriteJSONResponse(w, r, http.StatusOK, res)
}

// GetSession handles GET /plan/{id} - returns the full session state.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "GetSession")
	defer span.End()

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Invalid session id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid session id")
		return
	}

	state, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		h.writeServiceError(ctx, w, r, err, "Failed to load session")
		return
	}

	span.SetStatus(codes.Ok, "Session returned")
	api.WriteJSONResponse(w, r, http.StatusOK, state)
}

// CloseSession handles DELETE /plan/{id} - expires the session.
func (h *Handler) CloseSession(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer("PlannerHandler").Start(r.Context(), "CloseSession")
	defer span.End()

	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		span.SetStatus(codes.Error, "Invalid session id")
		api.ErrorResponse(w, r, http.StatusBadRequest, "invalid session id")
		return
	}

	if err := h.service.CloseSession(ctx, sessionID); err != nil {
		h.writeServiceError(ctx, w, r, err, "Failed to close session")
		return
	}

	span.SetStatus(codes.Ok, "Session closed")
	api.WriteJSONResponse(w, r, http.StatusNoContent, nil)
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, r *http.Request, err error, msg string) {
	var stageErr *types.StageFailureError
	switch {
	case errors.Is(err, types.ErrSessionNotFound):
		api.ErrorResponse(w, r, http.StatusNotFound, "session not found or expired")
	case errors.Is(err, types.ErrUnresolvableDestination):
		api.ErrorResponse(w, r, http.StatusUnprocessableEntity, "destination could not be resolved")
	case errors.As(err, &stageErr):
		h.logger.ErrorContext(ctx, msg,
			slog.String("stage", string(stageErr.Stage)),
			slog.Any("error", err),
		)
		api.ErrorResponse(w, r, http.StatusBadGateway, "a planning stage failed; the session kept its last progress, retry to continue")
	default:
		h.logger.ErrorContext(ctx, msg, slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, msg)
	}
}
