package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/campuscart/backend/internal/message"
	"github.com/campuscart/backend/internal/middleware"
	"github.com/campuscart/backend/internal/notification"
	"github.com/campuscart/backend/internal/validate"
)

// CreateConversationRequest represents the request body for POST /conversations.
type CreateConversationRequest struct {
	OtherUserID string  `json:"other_user_id"`
	ListingID   *string `json:"listing_id,omitempty"`
}

// SendMessageRequest represents the request body for POST /conversations/{id}/messages.
type SendMessageRequest struct {
	Body string `json:"body"`
}

// ConversationsResponse wraps a user's conversation list.
type ConversationsResponse struct {
	Conversations []message.Conversation `json:"conversations"`
}

// ConversationHandlers holds dependencies for messaging HTTP handlers.
type ConversationHandlers struct {
	repo     message.Repository
	notifier *notification.Notifier
}

// NewConversationHandlers creates a new ConversationHandlers instance.
func NewConversationHandlers(repo message.Repository) *ConversationHandlers {
	return &ConversationHandlers{repo: repo}
}

// WithNotifier enables in-app notifications for received messages.
func (h *ConversationHandlers) WithNotifier(n *notification.Notifier) *ConversationHandlers {
	h.notifier = n
	return h
}

// conversationPath splits /conversations/{id}[/action] into its parts.
func conversationPath(path string) (id, action string) {
	parts := strings.Split(strings.TrimPrefix(path, "/conversations/"), "/")
	if len(parts) >= 1 {
		id = parts[0]
	}
	if len(parts) >= 2 {
		action = parts[1]
	}
	return id, action
}

// CreateConversation handles POST /conversations - finds or creates the
// conversation between the caller and another user, optionally anchored to a
// listing. The same pair of users always resolves to the same conversation.
func (h *ConversationHandlers) CreateConversation(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	if strings.TrimSpace(req.OtherUserID) == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "other_user_id is required")
		return
	}

	if req.OtherUserID == userID {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeSelfConversation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeSelfConversation, "Cannot open a conversation with yourself")
		return
	}

	conv, err := h.repo.EnsureConversation(userID, req.OtherUserID, req.ListingID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to open conversation")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(conv); err != nil {
		return
	}
}

// ListConversations handles GET /conversations - the caller's conversations,
// most recently active first.
func (h *ConversationHandlers) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	convs, err := h.repo.ListConversations(userID)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to list conversations")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(ConversationsResponse{Conversations: convs}); err != nil {
		return
	}
}

// SendMessage handles POST /conversations/{id}/messages - appends a message
// to a conversation the caller participates in.
func (h *ConversationHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, _ := conversationPath(r.URL.Path)
	if convID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Conversation ID is required")
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Invalid JSON in request body")
		return
	}

	body, err := validate.MessageBody(req.Body)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, err.Error())
		return
	}

	if err := h.authorizeParticipant(w, r, convID, userID); err != nil {
		return
	}

	msg, err := h.repo.SendMessage(convID, userID, body)
	if err != nil {
		h.writeConversationError(w, r, err, "Failed to send message")
		return
	}

	h.notifyRecipient(r, convID, userID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		return
	}
}

// notifyRecipient records an in-app notification for the other participant.
// Best-effort: a notification failure never fails the send.
func (h *ConversationHandlers) notifyRecipient(r *http.Request, convID, senderID string) {
	if h.notifier == nil {
		return
	}
	conv, err := h.repo.GetConversation(convID)
	if err != nil {
		return
	}
	recipient := conv.OtherParticipant(senderID)
	if recipient == "" {
		return
	}
	notif := &notification.Notification{
		UserID: recipient,
		Type:   notification.TypeMessageReceived,
		Title:  "New message",
		Body:   "You have a new message in a conversation.",
	}
	if err := h.notifier.Notify(r.Context(), notif); err != nil {
		slog.WarnContext(r.Context(), "failed to store notification", "user_id", recipient, "error", err)
	}
}

// ListMessages handles GET /conversations/{id}/messages - one page of a
// conversation's history, newest first, with an opaque resume cursor.
func (h *ConversationHandlers) ListMessages(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, _ := conversationPath(r.URL.Path)
	if convID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Conversation ID is required")
		return
	}

	if err := h.authorizeParticipant(w, r, convID, userID); err != nil {
		return
	}

	q := r.URL.Query()
	limit := intQueryParam(q.Get("limit"))
	cursor := q.Get("cursor")

	page, err := h.repo.ListMessages(convID, limit, cursor)
	if err != nil {
		if errors.Is(err, message.ErrInvalidCursor) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid pagination cursor")
			return
		}
		h.writeConversationError(w, r, err, "Failed to list messages")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(page); err != nil {
		return
	}
}

// MarkRead handles POST /conversations/{id}/read - stamps every unread
// message addressed to the caller in the conversation.
func (h *ConversationHandlers) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	convID, _ := conversationPath(r.URL.Path)
	if convID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeBadRequest)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeBadRequest, "Conversation ID is required")
		return
	}

	if err := h.authorizeParticipant(w, r, convID, userID); err != nil {
		return
	}

	if err := h.repo.MarkRead(convID, userID); err != nil {
		h.writeConversationError(w, r, err, "Failed to mark conversation read")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// authorizeParticipant loads the conversation and rejects callers who are not
// a participant. A non-nil return means the error response has been written.
func (h *ConversationHandlers) authorizeParticipant(w http.ResponseWriter, r *http.Request, convID, userID string) error {
	conv, err := h.repo.GetConversation(convID)
	if err != nil {
		h.writeConversationError(w, r, err, "Failed to retrieve conversation")
		return err
	}
	if !conv.HasParticipant(userID) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Not a conversation participant")
		return message.ErrNotParticipant
	}
	return nil
}

// writeConversationError maps repository errors to API responses.
func (h *ConversationHandlers) writeConversationError(w http.ResponseWriter, r *http.Request, err error, internalMsg string) {
	switch {
	case errors.Is(err, message.ErrConversationNotFound):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Conversation not found")
	case errors.Is(err, message.ErrNotParticipant):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Not a conversation participant")
	case errors.Is(err, message.ErrEmptyBody):
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Message body is empty")
	default:
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, internalMsg)
	}
}
