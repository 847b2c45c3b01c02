package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"insight-agent/src/contracts"
)

// sqlStore holds the queries shared by the Postgres and SQLite backends.
// Queries are written with ? placeholders and rebound per dialect.
type sqlStore struct {
	db       *sql.DB
	numbered bool // $1 placeholders
}

func (s *sqlStore) rebind(query string) string {
	if !s.numbered {
		return query
	}
	var sb strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteString("$" + strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

func (s *sqlStore) migrate(ctx context.Context, schema []string) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}

// CreateRun creates a pending run record.
func (s *sqlStore) CreateRun(ctx context.Context, runID string, channels []string) error {
	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channels: %w", err)
	}

	query := s.rebind(`
		INSERT INTO runs (run_id, channels, status, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (run_id) DO NOTHING
	`)

	if _, err := s.db.ExecContext(ctx, query, runID, string(channelsJSON), contracts.RunPending, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// GetRunStatus returns the status of a run.
func (s *sqlStore) GetRunStatus(ctx context.Context, runID string) (*contracts.RunStatus, error) {
	query := s.rebind(`
		SELECT run_id, channels, status, conversations, clusters, tickets, error
		FROM runs
		WHERE run_id = ?
	`)

	var (
		status       contracts.RunStatus
		channelsJSON string
	)
	err := s.db.QueryRowContext(ctx, query, runID).Scan(
		&status.RunID,
		&channelsJSON,
		&status.Status,
		&status.Conversations,
		&status.Clusters,
		&status.Tickets,
		&status.Error,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run status: %w", err)
	}

	if err := json.Unmarshal([]byte(channelsJSON), &status.Channels); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channels: %w", err)
	}
	return &status, nil
}

// UpdateRunStatus replaces the status and counters of a run.
func (s *sqlStore) UpdateRunStatus(ctx context.Context, status *contracts.RunStatus) error {
	query := s.rebind(`
		UPDATE runs
		SET status = ?,
		    conversations = ?,
		    clusters = ?,
		    tickets = ?,
		    error = ?,
		    completed_at = CASE WHEN ? IN ('completed', 'failed') THEN CURRENT_TIMESTAMP ELSE completed_at END
		WHERE run_id = ?
	`)

	result, err := s.db.ExecContext(ctx, query,
		status.Status,
		status.Conversations,
		status.Clusters,
		status.Tickets,
		status.Error,
		status.Status,
		status.RunID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("run %s: %w", status.RunID, ErrNotFound)
	}
	return nil
}

// SaveInsight inserts or replaces an insight keyed by ticket id.
func (s *sqlStore) SaveInsight(ctx context.Context, insight *contracts.Insight) error {
	if insight.TicketID == "" {
		return errors.New("insight has no ticket id")
	}
	if insight.Status == "" {
		insight.Status = contracts.StatusTriage
	}
	if insight.CreatedAt == "" {
		insight.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}

	quotesJSON, err := json.Marshal(insight.Quotes)
	if err != nil {
		return fmt.Errorf("failed to marshal quotes: %w", err)
	}

	query := s.rebind(`
		INSERT INTO insights (
			ticket_id, identifier, url, run_id, summary, channel_name,
			quotes, doc_url, suggestion, status, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (ticket_id) DO UPDATE SET
			identifier = EXCLUDED.identifier,
			url = EXCLUDED.url,
			run_id = EXCLUDED.run_id,
			summary = EXCLUDED.summary,
			channel_name = EXCLUDED.channel_name,
			quotes = EXCLUDED.quotes,
			doc_url = EXCLUDED.doc_url,
			suggestion = EXCLUDED.suggestion,
			status = EXCLUDED.status
	`)

	_, err = s.db.ExecContext(ctx, query,
		insight.TicketID,
		insight.Identifier,
		insight.URL,
		insight.RunID,
		insight.Summary,
		insight.ChannelName,
		string(quotesJSON),
		insight.DocURL,
		insight.Suggestion,
		insight.Status,
		insight.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save insight: %w", err)
	}
	return nil
}

const insightColumns = `ticket_id, identifier, url, run_id, summary, channel_name,
	quotes, doc_url, suggestion, status, created_at`

// GetInsight retrieves one insight by ticket id.
func (s *sqlStore) GetInsight(ctx context.Context, ticketID string) (*contracts.Insight, error) {
	query := s.rebind(`SELECT ` + insightColumns + ` FROM insights WHERE ticket_id = ?`)

	insight, err := scanInsight(s.db.QueryRowContext(ctx, query, ticketID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("insight %s: %w", ticketID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get insight: %w", err)
	}
	return insight, nil
}

// ListInsights retrieves the insights of a run, oldest first.
func (s *sqlStore) ListInsights(ctx context.Context, runID string) ([]contracts.Insight, error) {
	query := `SELECT ` + insightColumns + ` FROM insights`
	var args []interface{}
	if runID != "" {
		query += ` WHERE run_id = ?`
		args = append(args, runID)
	}
	query += ` ORDER BY created_at ASC, ticket_id ASC`

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer rows.Close()

	insights := []contracts.Insight{}
	for rows.Next() {
		insight, err := scanInsight(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight: %w", err)
		}
		insights = append(insights, *insight)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insights: %w", err)
	}
	return insights, nil
}

// UpdateTicketStatus sets the workflow status of an insight.
func (s *sqlStore) UpdateTicketStatus(ctx context.Context, ticketID, status string) error {
	result, err := s.db.ExecContext(ctx, s.rebind(`UPDATE insights SET status = ? WHERE ticket_id = ?`), status, ticketID)
	if err != nil {
		return fmt.Errorf("failed to update ticket status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("insight %s: %w", ticketID, ErrNotFound)
	}
	return nil
}

// Close closes the database connection.
func (s *sqlStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanInsight(row rowScanner) (*contracts.Insight, error) {
	var (
		insight    contracts.Insight
		quotesJSON string
	)
	err := row.Scan(
		&insight.TicketID,
		&insight.Identifier,
		&insight.URL,
		&insight.RunID,
		&insight.Summary,
		&insight.ChannelName,
		&quotesJSON,
		&insight.DocURL,
		&insight.Suggestion,
		&insight.Status,
		&insight.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(quotesJSON), &insight.Quotes); err != nil {
		return nil, fmt.Errorf("failed to unmarshal quotes: %w", err)
	}
	return &insight, nil
}
