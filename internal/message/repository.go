package message

import (
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message page bounds. Requests outside the range are clamped.
const (
	DefaultPageSize = 20
	MaxPageSize     = 50
)

// Repository errors.
var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrNotParticipant       = errors.New("user is not a conversation participant")
	ErrEmptyBody            = errors.New("message body is empty")
)

// MessagePage is one page of a conversation's history, newest first.
// NextCursor is empty when the oldest message has been reached.
type MessagePage struct {
	Messages   []Message `json:"messages"`
	NextCursor string    `json:"next_cursor,omitempty"`
}

// Repository defines conversation and message data operations.
type Repository interface {
	// EnsureConversation finds the conversation between two users for a
	// listing, creating it when absent. The participant order does not
	// matter; both orderings resolve to the same conversation.
	EnsureConversation(userA, userB string, listingID *string) (*Conversation, error)

	// GetConversation retrieves a conversation by ID.
	GetConversation(id string) (*Conversation, error)

	// ListConversations returns the user's conversations, most recently
	// active first.
	ListConversations(userID string) ([]Conversation, error)

	// SendMessage appends a message to a conversation. The sender must be
	// a participant.
	SendMessage(conversationID, senderID, body string) (*Message, error)

	// ListMessages returns one page of a conversation's history, newest
	// first, resuming from the cursor token when given.
	ListMessages(conversationID string, limit int, cursorToken string) (*MessagePage, error)

	// MarkRead stamps every unread message addressed to userID in the
	// conversation.
	MarkRead(conversationID, userID string) error

	// CountParticipants returns the number of distinct users participating
	// in at least one conversation.
	CountParticipants() (int, error)
}

// clampPageSize normalizes a requested page size into [1, MaxPageSize].
func clampPageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// InMemoryRepository is an in-memory implementation of Repository, used for
// testing and development. Safe for concurrent use.
type InMemoryRepository struct {
	mu            sync.RWMutex
	conversations map[string]*Conversation
	messages      map[string][]*Message // conversation ID -> messages, append order
}

// NewInMemoryRepository creates a new in-memory message repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		conversations: make(map[string]*Conversation),
		messages:      make(map[string][]*Message),
	}
}

// EnsureConversation finds or creates the conversation for a participant
// pair and listing.
func (r *InMemoryRepository) EnsureConversation(userA, userB string, listingID *string) (*Conversation, error) {
	if userA == userB {
		return nil, ErrNotParticipant
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	a, b := orderParticipants(userA, userB)
	for _, c := range r.conversations {
		if c.ParticipantA == a && c.ParticipantB == b && sameListing(c.ListingID, listingID) {
			cp := *c
			return &cp, nil
		}
	}

	c := &Conversation{
		ID:           uuid.NewString(),
		ParticipantA: a,
		ParticipantB: b,
		CreatedAt:    time.Now().UTC(),
	}
	if listingID != nil {
		id := *listingID
		c.ListingID = &id
	}
	r.conversations[c.ID] = c

	cp := *c
	return &cp, nil
}

// GetConversation retrieves a conversation by ID.
func (r *InMemoryRepository) GetConversation(id string) (*Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.conversations[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *c
	return &cp, nil
}

// ListConversations returns the user's conversations, most recently active
// first. Conversations with no messages yet sort by creation time.
func (r *InMemoryRepository) ListConversations(userID string) ([]Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Conversation
	for _, c := range r.conversations {
		if c.HasParticipant(userID) {
			out = append(out, *c)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		ti, tj := activityTime(&out[i]), activityTime(&out[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// SendMessage appends a message and bumps the conversation's activity time.
func (r *InMemoryRepository) SendMessage(conversationID, senderID, body string) (*Message, error) {
	if strings.TrimSpace(body) == "" {
		return nil, ErrEmptyBody
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	if !c.HasParticipant(senderID) {
		return nil, ErrNotParticipant
	}

	now := time.Now().UTC()
	m := &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		SenderID:       senderID,
		Body:           body,
		CreatedAt:      now,
	}
	r.messages[conversationID] = append(r.messages[conversationID], m)
	c.LastMessageAt = &now

	cp := *m
	return &cp, nil
}

// ListMessages returns one page of history, newest first.
func (r *InMemoryRepository) ListMessages(conversationID string, limit int, cursorToken string) (*MessagePage, error) {
	limit = clampPageSize(limit)

	cur, err := DecodeCursor(cursorToken)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if _, ok := r.conversations[conversationID]; !ok {
		return nil, ErrConversationNotFound
	}

	all := r.messages[conversationID]
	ordered := make([]*Message, len(all))
	copy(ordered, all)
	sort.Slice(ordered, func(i, j int) bool {
		if !ordered[i].CreatedAt.Equal(ordered[j].CreatedAt) {
			return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
		}
		return ordered[i].ID > ordered[j].ID
	})

	var filtered []*Message
	for _, m := range ordered {
		if cur != nil && !olderThanCursor(m, cur) {
			continue
		}
		filtered = append(filtered, m)
	}

	page := &MessagePage{Messages: []Message{}}
	for i, m := range filtered {
		if i == limit {
			break
		}
		cp := *m
		page.Messages = append(page.Messages, cp)
	}

	// Only hand out a cursor when older messages remain.
	if len(filtered) > limit {
		last := page.Messages[len(page.Messages)-1]
		token, err := EncodeCursor(last.CreatedAt, last.ID)
		if err != nil {
			return nil, err
		}
		page.NextCursor = token
	}
	return page, nil
}

// MarkRead stamps every unread message addressed to userID.
func (r *InMemoryRepository) MarkRead(conversationID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	if !c.HasParticipant(userID) {
		return ErrNotParticipant
	}

	now := time.Now().UTC()
	for _, m := range r.messages[conversationID] {
		if m.SenderID != userID && m.ReadAt == nil {
			t := now
			m.ReadAt = &t
		}
	}
	return nil
}

// olderThanCursor reports whether m comes strictly after the cursor position
// when walking newest to oldest.
func olderThanCursor(m *Message, c *cursor) bool {
	if m.CreatedAt.Equal(c.CreatedAt) {
		return m.ID < c.ID
	}
	return m.CreatedAt.Before(c.CreatedAt)
}

func activityTime(c *Conversation) time.Time {
	if c.LastMessageAt != nil {
		return *c.LastMessageAt
	}
	return c.CreatedAt
}

func sameListing(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// CountParticipants returns the number of distinct users participating in at
// least one conversation.
func (r *InMemoryRepository) CountParticipants() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make(map[string]struct{})
	for _, conv := range r.conversations {
		users[conv.ParticipantA] = struct{}{}
		users[conv.ParticipantB] = struct{}{}
	}
	return len(users), nil
}
