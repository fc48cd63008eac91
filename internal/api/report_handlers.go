package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/campuscart/backend/internal/audit"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/notification"
	"github.com/campuscart/backend/internal/report"
	"github.com/campuscart/backend/internal/validate"
)

// CreateReportRequest represents the request body for POST /reports.
type CreateReportRequest struct {
	TargetType string `json:"target_type"`
	TargetID   string `json:"target_id"`
	Reason     string `json:"reason"`
}

// OpenReportsResponse wraps the moderation backlog with status counts.
type OpenReportsResponse struct {
	Reports []report.Report `json:"reports"`
	Counts  map[string]int  `json:"counts"`
}

// ReportHandlers holds dependencies for report HTTP handlers.
type ReportHandlers struct {
	repo     report.Repository
	notifier *notification.Notifier
	auditLog audit.Repository
}

// NewReportHandlers creates a new ReportHandlers instance.
func NewReportHandlers(repo report.Repository) *ReportHandlers {
	return &ReportHandlers{repo: repo}
}

// WithNotifier enables in-app notifications when a report is closed.
func (h *ReportHandlers) WithNotifier(n *notification.Notifier) *ReportHandlers {
	h.notifier = n
	return h
}

// WithAuditLog enables audit logging of moderation actions.
func (h *ReportHandlers) WithAuditLog(repo audit.Repository) *ReportHandlers {
	h.auditLog = repo
	return h
}

// CreateReport handles POST /reports - files a complaint against a listing
// or another user.
func (h *ReportHandlers) CreateReport(w http.ResponseWriter, r *http.Request) {
	reporterID := middleware.GetUserID(r.Context())

	var req CreateReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if !report.ValidTargetType(req.TargetType) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "target_type must be 'listing' or 'user'")
		return
	}

	if strings.TrimSpace(req.TargetID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "target_id is required")
		return
	}

	reason, err := validate.ReportReason(req.Reason)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	newReport := &report.Report{
		ID:         uuid.New().String(),
		ReporterID: reporterID,
		TargetType: req.TargetType,
		TargetID:   req.TargetID,
		Reason:     reason,
		Status:     report.StatusOpen,
		CreatedAt:  time.Now(),
	}

	if err := h.repo.Create(newReport); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to file report")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(newReport); err != nil {
		return
	}
}

// ListOpenReports handles GET /admin/reports - the moderation backlog,
// oldest first, with per-status counts. Admin only.
func (h *ReportHandlers) ListOpenReports(w http.ResponseWriter, r *http.Request) {
	if h.auditLog != nil {
		if err := audit.LogAccessFromRequest(r, h.auditLog, "admin_panel", "report_queue", "view_report_queue"); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record audit log")
			return
		}
	}

	reports, err := h.repo.ListOpen()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list reports")
		return
	}

	counts, err := h.repo.CountByStatus()
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count reports")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(OpenReportsResponse{
		Reports: reports,
		Counts:  counts,
	}); err != nil {
		return
	}
}

// ResolveReport handles POST /admin/reports/{id}/resolve. Admin only.
func (h *ReportHandlers) ResolveReport(w http.ResponseWriter, r *http.Request) {
	h.closeReport(w, r, report.StatusResolved)
}

// DismissReport handles POST /admin/reports/{id}/dismiss. Admin only.
func (h *ReportHandlers) DismissReport(w http.ResponseWriter, r *http.Request) {
	h.closeReport(w, r, report.StatusDismissed)
}

// closeReport moves an open report into a terminal status, recording the
// acting moderator.
func (h *ReportHandlers) closeReport(w http.ResponseWriter, r *http.Request, status string) {
	resolverID := middleware.GetUserID(r.Context())

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/admin/reports/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Report ID is required")
		return
	}
	reportID := parts[0]

	// The audit entry is written before the status change so a failed
	// write blocks the moderation action. The report is checked first to
	// keep 404s and repeat closes out of the trail.
	if h.auditLog != nil {
		current, err := h.repo.GetByID(reportID)
		if err != nil {
			if errors.Is(err, report.ErrReportNotFound) {
				ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
				WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Report not found")
				return
			}
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to close report")
			return
		}
		if current.Status != report.StatusOpen {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeReportResolved)
			WriteError(w, ctx, http.StatusConflict, ErrCodeReportResolved, "Report is already closed")
			return
		}
		action := "resolve_report"
		if status == report.StatusDismissed {
			action = "dismiss_report"
		}
		if err := audit.LogAccessFromRequest(r, h.auditLog, "report", reportID, action); err != nil {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record audit log")
			return
		}
	}

	closed, err := h.repo.Close(reportID, status, resolverID)
	if err != nil {
		switch {
		case errors.Is(err, report.ErrReportNotFound):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Report not found")
		case errors.Is(err, report.ErrReportClosed):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeReportResolved)
			WriteError(w, ctx, http.StatusConflict, ErrCodeReportResolved, "Report is already closed")
		case errors.Is(err, report.ErrInvalidTransition):
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid report status transition")
		default:
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
			WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to close report")
		}
		return
	}

	if h.notifier != nil {
		notif := &notification.Notification{
			UserID: closed.ReporterID,
			Type:   notification.TypeReportClosed,
			Title:  "Report " + status,
			Body:   "A moderator reviewed your report.",
		}
		if err := h.notifier.Notify(r.Context(), notif); err != nil {
			slog.WarnContext(r.Context(), "failed to store notification", "user_id", closed.ReporterID, "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(closed); err != nil {
		return
	}
}
