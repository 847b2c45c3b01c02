// Package store defines the interface for persistent data storage.
package store

import (
	"context"
	"errors"

	"insight-agent/src/contracts"
)

// ErrNotFound is returned when a run or insight does not exist.
var ErrNotFound = errors.New("not found")

// Store defines the interface for persisting run status and escalated insights.
type Store interface {
	// CreateRun creates a pending run record
	CreateRun(ctx context.Context, runID string, channels []string) error

	// GetRunStatus returns the status of a run
	GetRunStatus(ctx context.Context, runID string) (*contracts.RunStatus, error)

	// UpdateRunStatus replaces the status and counters of a run
	UpdateRunStatus(ctx context.Context, status *contracts.RunStatus) error

	// SaveInsight inserts or replaces an insight keyed by its ticket id
	SaveInsight(ctx context.Context, insight *contracts.Insight) error

	// GetInsight retrieves one insight by ticket id
	GetInsight(ctx context.Context, ticketID string) (*contracts.Insight, error)

	// ListInsights retrieves the insights of a run, or all insights when runID is empty
	ListInsights(ctx context.Context, runID string) ([]contracts.Insight, error)

	// UpdateTicketStatus sets the workflow status of an insight
	UpdateTicketStatus(ctx context.Context, ticketID, status string) error

	// Close closes the store connection
	Close() error
}

// Open picks the backend: Postgres when dsn is set, otherwise SQLite at sqlitePath.
func Open(dsn, sqlitePath string) (Store, error) {
	if dsn != "" {
		return NewPostgresStore(dsn)
	}
	return NewSQLiteStore(sqlitePath)
}
