package report

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines report data operations.
type Repository interface {
	// Create files a new report in the open state.
	Create(report *Report) error

	// GetByID retrieves a report by ID.
	GetByID(id string) (*Report, error)

	// ListOpen returns open reports, oldest first so moderators work the
	// backlog in filing order.
	ListOpen() ([]Report, error)

	// Close moves an open report to resolved or dismissed, recording the
	// moderator. Closed reports cannot be reopened or re-closed.
	Close(id, status, resolverID string) (*Report, error)

	// CountByStatus returns report counts keyed by status.
	CountByStatus() (map[string]int, error)
}

// InMemoryRepository is an in-memory implementation of Repository, used for
// testing and development. Safe for concurrent use.
type InMemoryRepository struct {
	mu      sync.RWMutex
	reports map[string]*Report
}

// NewInMemoryRepository creates a new in-memory report repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{reports: make(map[string]*Report)}
}

// Create files a new report in the open state.
func (r *InMemoryRepository) Create(report *Report) error {
	if !ValidTargetType(report.TargetType) {
		return ErrInvalidTarget
	}
	if strings.TrimSpace(report.Reason) == "" {
		return ErrEmptyReason
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	report.ID = uuid.NewString()
	report.Status = StatusOpen
	report.CreatedAt = time.Now().UTC()
	report.ResolverID = nil
	report.ResolvedAt = nil

	cp := *report
	r.reports[cp.ID] = &cp
	return nil
}

// GetByID retrieves a report by ID.
func (r *InMemoryRepository) GetByID(id string) (*Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	return cloneReport(rep), nil
}

// ListOpen returns open reports, oldest first.
func (r *InMemoryRepository) ListOpen() ([]Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Status == StatusOpen {
			out = append(out, *cloneReport(rep))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Close moves an open report to resolved or dismissed.
func (r *InMemoryRepository) Close(id, status, resolverID string) (*Report, error) {
	if !closedStatus(status) {
		return nil, ErrInvalidTransition
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rep, ok := r.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	if rep.Status != StatusOpen {
		return nil, ErrReportClosed
	}

	now := time.Now().UTC()
	rep.Status = status
	rep.ResolverID = &resolverID
	rep.ResolvedAt = &now
	return cloneReport(rep), nil
}

// CountByStatus returns report counts keyed by status.
func (r *InMemoryRepository) CountByStatus() (map[string]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counts := map[string]int{
		StatusOpen:      0,
		StatusResolved:  0,
		StatusDismissed: 0,
	}
	for _, rep := range r.reports {
		counts[rep.Status]++
	}
	return counts, nil
}

func cloneReport(rep *Report) *Report {
	cp := *rep
	if rep.ResolverID != nil {
		v := *rep.ResolverID
		cp.ResolverID = &v
	}
	if rep.ResolvedAt != nil {
		t := *rep.ResolvedAt
		cp.ResolvedAt = &t
	}
	return &cp
}
