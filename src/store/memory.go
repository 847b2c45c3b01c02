package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"insight-agent/src/contracts"
)

// MemoryStore is an in-memory implementation of Store.
// Useful for testing and the MCP server.
type MemoryStore struct {
	mu       sync.RWMutex
	runs     map[string]*contracts.RunStatus
	insights map[string]contracts.Insight // ticketID -> insight
	order    []string                     // ticket ids in insertion order
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:     make(map[string]*contracts.RunStatus),
		insights: make(map[string]contracts.Insight),
	}
}

// CreateRun creates a pending run record. An existing run is left untouched.
func (s *MemoryStore) CreateRun(ctx context.Context, runID string, channels []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[runID]; exists {
		return nil
	}
	s.runs[runID] = &contracts.RunStatus{
		RunID:    runID,
		Channels: append([]string(nil), channels...),
		Status:   contracts.RunPending,
	}
	return nil
}

// GetRunStatus returns the status of a run.
func (s *MemoryStore) GetRunStatus(ctx context.Context, runID string) (*contracts.RunStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status, exists := s.runs[runID]
	if !exists {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}

	// Return a copy
	statusCopy := *status
	statusCopy.Channels = append([]string(nil), status.Channels...)
	return &statusCopy, nil
}

// UpdateRunStatus replaces the status and counters of a run.
func (s *MemoryStore) UpdateRunStatus(ctx context.Context, status *contracts.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.runs[status.RunID]
	if !exists {
		return fmt.Errorf("run %s: %w", status.RunID, ErrNotFound)
	}

	updated := *status
	if updated.Channels == nil {
		updated.Channels = existing.Channels
	}
	s.runs[status.RunID] = &updated
	return nil
}

// SaveInsight inserts or replaces an insight.
func (s *MemoryStore) SaveInsight(ctx context.Context, insight *contracts.Insight) error {
	if insight.TicketID == "" {
		return errors.New("insight has no ticket id")
	}
	if insight.Status == "" {
		insight.Status = contracts.StatusTriage
	}
	if insight.CreatedAt == "" {
		insight.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.insights[insight.TicketID]; !exists {
		s.order = append(s.order, insight.TicketID)
	}
	stored := *insight
	stored.Quotes = append([]string(nil), insight.Quotes...)
	s.insights[insight.TicketID] = stored
	return nil
}

// GetInsight retrieves one insight by ticket id.
func (s *MemoryStore) GetInsight(ctx context.Context, ticketID string) (*contracts.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	insight, exists := s.insights[ticketID]
	if !exists {
		return nil, fmt.Errorf("insight %s: %w", ticketID, ErrNotFound)
	}
	return &insight, nil
}

// ListInsights retrieves the insights of a run, oldest first.
func (s *MemoryStore) ListInsights(ctx context.Context, runID string) ([]contracts.Insight, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []contracts.Insight{}
	for _, id := range s.order {
		insight := s.insights[id]
		if runID == "" || insight.RunID == runID {
			result = append(result, insight)
		}
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].CreatedAt < result[j].CreatedAt
	})
	return result, nil
}

// UpdateTicketStatus sets the workflow status of an insight.
func (s *MemoryStore) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	insight, exists := s.insights[ticketID]
	if !exists {
		return fmt.Errorf("insight %s: %w", ticketID, ErrNotFound)
	}
	insight.Status = status
	s.insights[ticketID] = insight
	return nil
}

// Close closes the store (no-op for memory store).
func (s *MemoryStore) Close() error {
	return nil
}
