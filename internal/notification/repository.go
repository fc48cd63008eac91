package notification

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines notification data operations.
type Repository interface {
	// Create stores a new unread notification.
	Create(n *Notification) error

	// ListByUser returns the user's notifications, newest first. When
	// unreadOnly is true, read notifications are skipped.
	ListByUser(userID string, unreadOnly bool) ([]Notification, error)

	// MarkRead stamps one of the user's notifications as read. Marking an
	// already-read notification is a no-op.
	MarkRead(id, userID string) error

	// UnreadCount returns the user's unread notification count.
	UnreadCount(userID string) (int, error)
}

// InMemoryRepository is an in-memory implementation of Repository, used for
// testing and development. Safe for concurrent use.
type InMemoryRepository struct {
	mu            sync.RWMutex
	notifications map[string]*Notification
}

// NewInMemoryRepository creates a new in-memory notification repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{notifications: make(map[string]*Notification)}
}

// Create stores a new unread notification.
func (r *InMemoryRepository) Create(n *Notification) error {
	if !ValidType(n.Type) {
		return ErrInvalidType
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n.ID = uuid.NewString()
	n.CreatedAt = time.Now().UTC()
	n.ReadAt = nil

	cp := *n
	r.notifications[cp.ID] = &cp
	return nil
}

// ListByUser returns the user's notifications, newest first.
func (r *InMemoryRepository) ListByUser(userID string, unreadOnly bool) ([]Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Notification
	for _, n := range r.notifications {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.ReadAt != nil {
			continue
		}
		cp := *n
		if n.ReadAt != nil {
			t := *n.ReadAt
			cp.ReadAt = &t
		}
		out = append(out, cp)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// MarkRead stamps one of the user's notifications as read.
func (r *InMemoryRepository) MarkRead(id, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	n, ok := r.notifications[id]
	if !ok || n.UserID != userID {
		return ErrNotificationNotFound
	}
	if n.ReadAt == nil {
		now := time.Now().UTC()
		n.ReadAt = &now
	}
	return nil
}

// UnreadCount returns the user's unread notification count.
func (r *InMemoryRepository) UnreadCount(userID string) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	count := 0
	for _, n := range r.notifications {
		if n.UserID == userID && n.ReadAt == nil {
			count++
		}
	}
	return count, nil
}
