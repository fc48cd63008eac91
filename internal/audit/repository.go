package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for audit log operations.
type Repository interface {
	// LogAccess records an access event to the audit log.
	// Returns the created audit log entry.
	LogAccess(entry LogEntry) (*AuditLog, error)

	// QueryByEntity retrieves audit logs for a specific entity, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error)

	// QueryByUser retrieves audit logs for a specific user, sorted by time (newest first).
	// Limit specifies the maximum number of entries to return (0 = no limit).
	QueryByUser(userID string, limit int) ([]*AuditLog, error)
}

// computeLogHash returns the SHA-256 hash of an entry's chained fields.
// Each entry's hash covers its own content plus the previous entry's hash,
// so modifying any historical entry breaks every hash after it.
func computeLogHash(log *AuditLog) string {
	payload := fmt.Sprintf("%s|%s|%s|%s|%s|%s|%s|%s",
		log.ID,
		log.UserID,
		log.EntityType,
		log.EntityID,
		log.Action,
		log.Outcome,
		log.CreatedAt.UTC().Format(time.RFC3339Nano),
		log.PreviousHash,
	)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// InMemoryRepository is an in-memory implementation of Repository.
// Used for testing and development. Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu   sync.RWMutex
	logs map[string]*AuditLog
	// Maintain insertion order for queries and hash chain verification
	order []string
	// Hash of the most recently appended entry
	lastHash string
}

// NewInMemoryRepository creates a new in-memory audit repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		logs:  make(map[string]*AuditLog),
		order: make([]string, 0),
	}
}

// LogAccess records an access event to the audit log. The entry is chained
// to the previous one via PreviousHash; the first entry has an empty hash.
func (r *InMemoryRepository) LogAccess(entry LogEntry) (*AuditLog, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	outcome := entry.Outcome
	if outcome == "" {
		outcome = OutcomeSuccess
	}

	log := &AuditLog{
		ID:           uuid.New().String(),
		UserID:       entry.UserID,
		EntityType:   entry.EntityType,
		EntityID:     entry.EntityID,
		Action:       entry.Action,
		Outcome:      outcome,
		CreatedAt:    time.Now().UTC(),
		RequestID:    entry.RequestID,
		IPAddress:    entry.IPAddress,
		UserAgent:    entry.UserAgent,
		PreviousHash: r.lastHash,
	}

	r.logs[log.ID] = log
	r.order = append(r.order, log.ID)
	r.lastHash = computeLogHash(log)

	// Return a copy to prevent external modification
	logCopy := *log
	return &logCopy, nil
}

// GetLastHash returns the hash of the most recently appended entry, or the
// empty string when the log is empty.
func (r *InMemoryRepository) GetLastHash() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastHash
}

// VerifyHashChain recomputes the hash chain from the beginning and reports
// whether every entry's PreviousHash matches. An empty log is valid.
func (r *InMemoryRepository) VerifyHashChain() (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	expected := ""
	for _, id := range r.order {
		log, ok := r.logs[id]
		if !ok {
			return false, fmt.Errorf("audit log %s missing from index", id)
		}
		if log.PreviousHash != expected {
			return false, nil
		}
		expected = computeLogHash(log)
	}
	return true, nil
}

// QueryByEntity retrieves audit logs for a specific entity, sorted by time (newest first).
func (r *InMemoryRepository) QueryByEntity(entityType, entityID string, limit int) ([]*AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*AuditLog

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		log := r.logs[id]

		if log.EntityType == entityType && log.EntityID == entityID {
			// Create a copy to prevent external modification
			logCopy := *log
			results = append(results, &logCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

// QueryByUser retrieves audit logs for a specific user, sorted by time (newest first).
func (r *InMemoryRepository) QueryByUser(userID string, limit int) ([]*AuditLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []*AuditLog

	// Iterate in reverse order (newest first)
	for i := len(r.order) - 1; i >= 0; i-- {
		id := r.order[i]
		log := r.logs[id]

		if log.UserID == userID {
			// Create a copy to prevent external modification
			logCopy := *log
			results = append(results, &logCopy)

			if limit > 0 && len(results) >= limit {
				break
			}
		}
	}

	return results, nil
}

// AnonymizeIPsBefore replaces the IP address of every log created before the
// cutoff with its anonymized form. IP addresses are not part of the hash chain,
// so anonymization does not invalidate chain verification. Returns the number
// of logs that were (or, in dry-run mode, would be) anonymized.
func (r *InMemoryRepository) AnonymizeIPsBefore(cutoff time.Time, dryRun bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	for _, id := range r.order {
		log := r.logs[id]
		if log.IPAddress == "" || !log.CreatedAt.Before(cutoff) {
			continue
		}
		anonymized := AnonymizeIP(log.IPAddress)
		if anonymized == log.IPAddress {
			continue
		}
		count++
		if !dryRun {
			log.IPAddress = anonymized
		}
	}

	return count, nil
}
