package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/campuscart/backend/internal/notification"
)

func seedNotification(t *testing.T, repo notification.Repository, userID, title string) *notification.Notification {
	t.Helper()
	n := &notification.Notification{
		UserID: userID,
		Type:   notification.TypeMessageReceived,
		Title:  title,
	}
	if err := repo.Create(n); err != nil {
		t.Fatalf("failed to seed notification: %v", err)
	}
	return n
}

func TestListNotifications(t *testing.T) {
	repo := notification.NewInMemoryRepository()
	handlers := NewNotificationHandlers(repo)

	seedNotification(t, repo, "user-1", "New message from bob")
	seedNotification(t, repo, "user-1", "New review received")
	seedNotification(t, repo, "user-2", "Not yours")

	r := authedRequest(http.MethodGet, "/notifications", "user-1", nil)
	w := httptest.NewRecorder()
	handlers.ListNotifications(w, r)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp NotificationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Notifications) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(resp.Notifications))
	}
}

func TestUnreadCountAndMarkRead(t *testing.T) {
	repo := notification.NewInMemoryRepository()
	handlers := NewNotificationHandlers(repo)

	first := seedNotification(t, repo, "user-1", "New message from bob")
	seedNotification(t, repo, "user-1", "New review received")

	r := authedRequest(http.MethodGet, "/notifications/unread_count", "user-1", nil)
	w := httptest.NewRecorder()
	handlers.UnreadCount(w, r)
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var count UnreadCountResponse
	if err := json.Unmarshal(w.Body.Bytes(), &count); err != nil {
		t.Fatalf("failed to parse count: %v", err)
	}
	if count.Count != 2 {
		t.Errorf("expected unread count 2, got %d", count.Count)
	}

	r = authedRequest(http.MethodPost, "/notifications/"+first.ID+"/read", "user-1", nil)
	w = httptest.NewRecorder()
	handlers.MarkRead(w, r)
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d: %s", w.Code, w.Body.String())
	}

	r = authedRequest(http.MethodGet, "/notifications/unread_count", "user-1", nil)
	w = httptest.NewRecorder()
	handlers.UnreadCount(w, r)
	var after UnreadCountResponse
	if err := json.Unmarshal(w.Body.Bytes(), &after); err != nil {
		t.Fatalf("failed to parse count: %v", err)
	}
	if after.Count != 1 {
		t.Errorf("expected unread count 1 after mark read, got %d", after.Count)
	}
}

func TestMarkRead_WrongUser(t *testing.T) {
	repo := notification.NewInMemoryRepository()
	handlers := NewNotificationHandlers(repo)

	n := seedNotification(t, repo, "user-1", "New message")

	// Another user cannot read someone else's notification
	r := authedRequest(http.MethodPost, "/notifications/"+n.ID+"/read", "user-2", nil)
	w := httptest.NewRecorder()
	handlers.MarkRead(w, r)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected status 404 for foreign notification, got %d", w.Code)
	}
}

func TestListNotifications_UnreadOnly(t *testing.T) {
	repo := notification.NewInMemoryRepository()
	handlers := NewNotificationHandlers(repo)

	n := seedNotification(t, repo, "user-1", "Old news")
	seedNotification(t, repo, "user-1", "Fresh news")
	if err := repo.MarkRead(n.ID, "user-1"); err != nil {
		t.Fatalf("failed to mark read: %v", err)
	}

	r := authedRequest(http.MethodGet, "/notifications?unread_only=true", "user-1", nil)
	w := httptest.NewRecorder()
	handlers.ListNotifications(w, r)

	var resp NotificationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Notifications) != 1 || resp.Notifications[0].Title != "Fresh news" {
		t.Errorf("unexpected unread list: %+v", resp.Notifications)
	}
}
