package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/notification"
)

// NotificationsResponse wraps a user's notification list.
type NotificationsResponse struct {
	Notifications []notification.Notification `json:"notifications"`
}

// UnreadCountResponse carries the unread notification count.
type UnreadCountResponse struct {
	Count int `json:"count"`
}

// NotificationHandlers holds dependencies for notification HTTP handlers.
type NotificationHandlers struct {
	repo notification.Repository
}

// NewNotificationHandlers creates a new NotificationHandlers instance.
func NewNotificationHandlers(repo notification.Repository) *NotificationHandlers {
	return &NotificationHandlers{repo: repo}
}

// ListNotifications handles GET /notifications - the caller's notifications,
// newest first. The unread_only query parameter limits results to unread.
func (h *NotificationHandlers) ListNotifications(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	unreadOnly := r.URL.Query().Get("unread_only") == "true"

	notifications, err := h.repo.ListByUser(userID, unreadOnly)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list notifications")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(NotificationsResponse{Notifications: notifications}); err != nil {
		return
	}
}

// UnreadCount handles GET /notifications/unread_count.
func (h *NotificationHandlers) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	count, err := h.repo.UnreadCount(userID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to count notifications")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(UnreadCountResponse{Count: count}); err != nil {
		return
	}
}

// MarkRead handles POST /notifications/{id}/read - marks one of the caller's
// notifications as read. Marking an already-read notification is a no-op.
func (h *NotificationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/notifications/"), "/")
	if len(parts) < 1 || parts[0] == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Notification ID is required")
		return
	}
	notificationID := parts[0]

	if err := h.repo.MarkRead(notificationID, userID); err != nil {
		if errors.Is(err, notification.ErrNotificationNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Notification not found")
			return
		}
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to mark notification read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
