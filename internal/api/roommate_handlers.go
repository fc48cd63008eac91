package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/geo"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/ranking"
	"github.com/campuscart/backend/internal/roommate"
	"github.com/campuscart/backend/internal/validate"
)

// UpsertProfileRequest represents the request body for PUT /roommates/profile.
type UpsertProfileRequest struct {
	Headline       string     `json:"headline"`
	Bio            string     `json:"bio,omitempty"`
	BudgetMinCents int64      `json:"budget_min_cents"`
	BudgetMaxCents int64      `json:"budget_max_cents"`
	MoveInDate     *time.Time `json:"move_in_date,omitempty"`
	Point          *geo.Point `json:"point,omitempty"`
	Status         string     `json:"status,omitempty"`
}

// MatchesResponse wraps ranked roommate match results.
type MatchesResponse struct {
	Matches []roommate.Match `json:"matches"`
}

// RoommateHandlers holds dependencies for roommate HTTP handlers.
type RoommateHandlers struct {
	repo     roommate.Repository
	scoreCfg *ranking.ScoreConfig
}

// NewRoommateHandlers creates a new RoommateHandlers instance. A nil scoreCfg
// falls back to the default score configuration.
func NewRoommateHandlers(repo roommate.Repository, scoreCfg *ranking.ScoreConfig) *RoommateHandlers {
	if scoreCfg == nil {
		scoreCfg = ranking.DefaultScoreConfig()
	}
	return &RoommateHandlers{repo: repo, scoreCfg: scoreCfg}
}

// UpsertProfile handles PUT /roommates/profile - creates or replaces the
// caller's roommate profile.
func (h *RoommateHandlers) UpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	if userID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req UpsertProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	headline, err := validate.Headline(req.Headline)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	bio, err := validate.Description(req.Bio)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if req.BudgetMinCents < 0 || req.BudgetMaxCents < 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Budget bounds must not be negative")
		return
	}

	if req.BudgetMaxCents > 0 && req.BudgetMinCents > req.BudgetMaxCents {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "budget_min_cents exceeds budget_max_cents")
		return
	}

	if req.Point != nil {
		if err := validate.Coordinates(req.Point.Lat, req.Point.Lng); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, err.Error())
			return
		}
	}

	status := req.Status
	if status == "" {
		status = roommate.StatusActive
	}
	if !roommate.ValidStatus(status) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "status must be 'active' or 'paused'")
		return
	}

	now := time.Now()
	profile := &roommate.Profile{
		ID:             uuid.New().String(),
		UserID:         userID,
		Headline:       headline,
		Bio:            bio,
		BudgetMinCents: req.BudgetMinCents,
		BudgetMaxCents: req.BudgetMaxCents,
		MoveInDate:     req.MoveInDate,
		Point:          req.Point,
		Status:         status,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.repo.Upsert(profile); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to save profile")
		return
	}

	stored, err := h.repo.GetByUserID(userID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve saved profile")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(stored); err != nil {
		return
	}
}

// GetProfile handles GET /roommates/profile - retrieves the caller's profile.
func (h *RoommateHandlers) GetProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	profile, err := h.repo.GetByUserID(userID)
	if err != nil {
		if errors.Is(err, roommate.ErrProfileNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeProfileNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeProfileNotFound, "No roommate profile on file")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to retrieve profile")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(profile); err != nil {
		return
	}
}

// DeleteProfile handles DELETE /roommates/profile - removes the caller's
// profile.
func (h *RoommateHandlers) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	if err := h.repo.Delete(userID); err != nil {
		if errors.Is(err, roommate.ErrProfileNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeProfileNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeProfileNotFound, "No roommate profile on file")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete profile")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Matches handles GET /roommates/matches - returns ranked roommate
// suggestions for the caller. The limit query parameter is clamped into
// [1, 12] and defaults to 3. Optional lat/lng parameters rank from that
// point instead of the caller's profile location.
func (h *RoommateHandlers) Matches(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	q := r.URL.Query()

	limit := roommate.ClampMatchLimit(intQueryParam(q.Get("limit")))

	viewer, err := pointFromQuery(q.Get("lat"), q.Get("lng"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	matches, err := h.repo.Matches(userID, viewer, limit, h.scoreCfg)
	if err != nil {
		if errors.Is(err, roommate.ErrProfileNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeProfileNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeProfileNotFound, "Create a roommate profile to see matches")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to compute matches")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(MatchesResponse{Matches: matches}); err != nil {
		return
	}
}
