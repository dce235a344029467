package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/waleedmj05-bit/ultrasound-xoxo/model"
)

// ErrReportNotFound is returned for lookups and deletes of unknown ids.
var ErrReportNotFound = errors.New("report not found")

// StoreError wraps a failure talking to the record store. Callers surface it
// as a generic alert and leave their state untouched; nothing retries.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("report store %s failed: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// ReportStore is the persistence surface for reports. The store assigns the
// id and timestamps on creation; there is no update operation.
type ReportStore interface {
	Create(ctx context.Context, report *model.Report) (*model.Report, error)
	List(ctx context.Context) ([]model.Report, error)
	Get(ctx context.Context, id string) (*model.Report, error)
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps reports in process memory. It backs local runs and
// tests; production points at the hosted store instead.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]*model.Report
}

// NewMemoryStore creates an empty in-memory report store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{reports: make(map[string]*model.Report)}
}

func (s *MemoryStore) Create(_ context.Context, report *model.Report) (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := *report
	stored.ID = uuid.New().String()
	now := time.Now().UTC()
	stored.CreatedAt = now
	stored.UpdatedAt = now
	s.reports[stored.ID] = &stored

	result := stored
	return &result, nil
}

// List returns all reports, newest first.
func (s *MemoryStore) List(_ context.Context) ([]model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]model.Report, 0, len(s.reports))
	for _, r := range s.reports {
		result = append(result, *r)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.reports[id]
	if !ok {
		return nil, ErrReportNotFound
	}
	result := *r
	return &result, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.reports[id]; !ok {
		return ErrReportNotFound
	}
	delete(s.reports, id)
	return nil
}

// Count returns the number of stored reports.
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}
