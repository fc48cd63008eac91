package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/geo"
	"github.com/campuscart/backend/internal/listing"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/ranking"
	"github.com/campuscart/backend/internal/validate"
)

// Nearby endpoint limit bounds. Out-of-range values are clamped.
const (
	DefaultNearbyLimit = 20
	MaxNearbyLimit     = 50
)

// CreateListingRequest represents the request body for creating a listing.
type CreateListingRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Category    string     `json:"category"`
	PriceCents  int64      `json:"price_cents"`
	Point       *geo.Point `json:"point,omitempty"`
	PhotoKeys   []string   `json:"photo_keys,omitempty"`
}

// UpdateListingRequest represents the request body for updating a listing.
// Only includes mutable fields (seller is immutable).
type UpdateListingRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Category    *string    `json:"category,omitempty"`
	Status      *string    `json:"status,omitempty"`
	PriceCents  *int64     `json:"price_cents,omitempty"`
	Point       *geo.Point `json:"point,omitempty"`
	PhotoKeys   []string   `json:"photo_keys,omitempty"`
}

// ListingHandlers holds dependencies for listing HTTP handlers.
type ListingHandlers struct {
	repo     listing.Repository
	scoreCfg *ranking.ScoreConfig
}

// NewListingHandlers creates a new ListingHandlers instance. A nil scoreCfg
// falls back to the default score configuration.
func NewListingHandlers(repo listing.Repository, scoreCfg *ranking.ScoreConfig) *ListingHandlers {
	if scoreCfg == nil {
		scoreCfg = ranking.DefaultScoreConfig()
	}
	return &ListingHandlers{repo: repo, scoreCfg: scoreCfg}
}

// listingIDFromPath extracts the listing ID from /listings/{id} paths.
func listingIDFromPath(path string) string {
	parts := strings.Split(strings.TrimPrefix(path, "/listings/"), "/")
	if len(parts) == 0 {
		return ""
	}
	return parts[0]
}

// validateListingPoint checks the optional pickup location.
func validateListingPoint(p *geo.Point) error {
	if p == nil {
		return nil
	}
	return validate.Coordinates(p.Lat, p.Lng)
}

// CreateListing handles POST /listings - creates a new listing owned by the
// authenticated user.
func (h *ListingHandlers) CreateListing(w http.ResponseWriter, r *http.Request) {
	sellerID := middleware.GetUserID(r.Context())
	if sellerID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeAuthFailed)
		WriteError(w, ctx, http.StatusUnauthorized, ErrCodeAuthFailed, "Authentication required")
		return
	}

	var req CreateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	title, err := validate.ListingTitle(req.Title)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidListingTitle)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidListingTitle, err.Error())
		return
	}

	description, err := validate.Description(req.Description)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if !listing.ValidCategory(req.Category) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown category")
		return
	}

	if req.PriceCents < 0 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPrice)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPrice, "price_cents must not be negative")
		return
	}

	if err := validateListingPoint(req.Point); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, err.Error())
		return
	}

	now := time.Now()
	newListing := &listing.Listing{
		ID:          uuid.New().String(),
		SellerID:    sellerID,
		Title:       title,
		Description: description,
		Category:    req.Category,
		Status:      listing.StatusActive,
		PriceCents:  req.PriceCents,
		Point:       req.Point,
		PhotoKeys:   req.PhotoKeys,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.repo.Create(newListing); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create listing")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newListing); err != nil {
		return
	}
}

// GetListing handles GET /listings/{id} - retrieves a single listing.
func (h *ListingHandlers) GetListing(w http.ResponseWriter, r *http.Request) {
	id := listingIDFromPath(r.URL.Path)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Listing ID is required")
		return
	}

	found, err := h.repo.GetByID(id)
	if err != nil {
		h.writeListingError(w, r, err, "Failed to retrieve listing")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(found); err != nil {
		return
	}
}

// UpdateListing handles PATCH /listings/{id} - updates an existing listing.
// Only the seller may update their listing.
func (h *ListingHandlers) UpdateListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := listingIDFromPath(r.URL.Path)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Listing ID is required")
		return
	}

	var req UpdateListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	existing, err := h.repo.GetByID(id)
	if err != nil {
		h.writeListingError(w, r, err, "Failed to retrieve listing")
		return
	}

	if existing.SellerID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the seller may modify this listing")
		return
	}

	if req.Title != nil {
		title, err := validate.ListingTitle(*req.Title)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidListingTitle)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidListingTitle, err.Error())
			return
		}
		existing.Title = title
	}

	if req.Description != nil {
		description, err := validate.Description(*req.Description)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
			return
		}
		existing.Description = description
	}

	if req.Category != nil {
		if !listing.ValidCategory(*req.Category) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown category")
			return
		}
		existing.Category = *req.Category
	}

	if req.Status != nil {
		if !listing.ValidStatus(*req.Status) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Unknown status")
			return
		}
		existing.Status = *req.Status
	}

	if req.PriceCents != nil {
		if *req.PriceCents < 0 {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidPrice)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidPrice, "price_cents must not be negative")
			return
		}
		existing.PriceCents = *req.PriceCents
	}

	if req.Point != nil {
		if err := validateListingPoint(req.Point); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, err.Error())
			return
		}
		existing.Point = req.Point
	}

	if req.PhotoKeys != nil {
		existing.PhotoKeys = req.PhotoKeys
	}

	existing.UpdatedAt = time.Now()

	if err := h.repo.Update(existing); err != nil {
		h.writeListingError(w, r, err, "Failed to update listing")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(existing); err != nil {
		return
	}
}

// DeleteListing handles DELETE /listings/{id} - soft-deletes a listing.
// Only the seller may delete their listing.
func (h *ListingHandlers) DeleteListing(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	id := listingIDFromPath(r.URL.Path)
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Listing ID is required")
		return
	}

	existing, err := h.repo.GetByID(id)
	if err != nil {
		h.writeListingError(w, r, err, "Failed to retrieve listing")
		return
	}

	if existing.SellerID != userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the seller may delete this listing")
		return
	}

	if err := h.repo.Delete(id); err != nil {
		h.writeListingError(w, r, err, "Failed to delete listing")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// SearchListings handles GET /listings/search - filtered, paginated search.
//
// Query parameters: q, category, status, min_price_cents, max_price_cents,
// lat, lng, radius_km, sort, page, page_size. All filters combine with AND;
// out-of-range pagination values are clamped rather than rejected.
func (h *ListingHandlers) SearchListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	opts := listing.SearchOptions{
		Query:    q.Get("q"),
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Sort:     q.Get("sort"),
	}

	if v := q.Get("min_price_cents"); v != "" {
		cents, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "min_price_cents must be an integer")
			return
		}
		opts.MinPriceCents = &cents
	}

	if v := q.Get("max_price_cents"); v != "" {
		cents, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "max_price_cents must be an integer")
			return
		}
		opts.MaxPriceCents = &cents
	}

	center, err := pointFromQuery(q.Get("lat"), q.Get("lng"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, err.Error())
		return
	}
	opts.Center = center

	if v := q.Get("radius_km"); v != "" {
		radius, err := strconv.ParseFloat(v, 64)
		if err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "radius_km must be a number")
			return
		}
		opts.RadiusKm = radius
	}

	opts.Page = intQueryParam(q.Get("page"))
	opts.PageSize = intQueryParam(q.Get("page_size"))

	result, err := h.repo.Search(opts)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Search failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(result); err != nil {
		return
	}
}

// NearbyListingsResponse wraps the ranked nearby results.
type NearbyListingsResponse struct {
	Items []listing.RankedListing `json:"items"`
}

// NearbyListings handles GET /listings/nearby - ranked location-aware
// discovery. Viewers without coordinates get recency-ordered results with no
// distances or location bonuses.
func (h *ListingHandlers) NearbyListings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	viewer, err := pointFromQuery(q.Get("lat"), q.Get("lng"))
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInvalidCoordinates)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeInvalidCoordinates, err.Error())
		return
	}

	limit := intQueryParam(q.Get("limit"))
	if limit <= 0 {
		limit = DefaultNearbyLimit
	}
	if limit > MaxNearbyLimit {
		limit = MaxNearbyLimit
	}

	items, err := h.repo.NearbyRanked(viewer, limit, h.scoreCfg)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Nearby lookup failed")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(NearbyListingsResponse{Items: items}); err != nil {
		return
	}
}

// writeListingError maps repository errors to API responses.
func (h *ListingHandlers) writeListingError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, listing.ErrListingNotFound):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeListingNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeListingNotFound, "Listing not found")
	case errors.Is(err, listing.ErrListingDeleted):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeListingDeleted)
		WriteError(w, ctx, http.StatusGone, ErrCodeListingDeleted, "Listing has been removed")
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, internalMsg)
	}
}

// pointFromQuery parses optional lat/lng query parameters. Both must be
// present to form a point; supplying only one is a validation error.
func pointFromQuery(latStr, lngStr string) (*geo.Point, error) {
	if latStr == "" && lngStr == "" {
		return nil, nil
	}
	if latStr == "" || lngStr == "" {
		return nil, errors.New("lat and lng must be supplied together")
	}
	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil, errors.New("lat must be a number")
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil, errors.New("lng must be a number")
	}
	if err := validate.Coordinates(lat, lng); err != nil {
		return nil, err
	}
	return &geo.Point{Lat: lat, Lng: lng}, nil
}

// intQueryParam parses an integer query parameter, returning 0 for missing
// or malformed values so the repository's clamping applies.
func intQueryParam(s string) int {
	if s == "" {
		return 0
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}
