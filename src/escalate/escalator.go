// Package escalate turns an accepted cluster into a filed, stored insight:
// documentation lookup, suggested change, ticket, record.
package escalate

import (
	"context"
	"fmt"

	"insight-agent/src/contracts"
	"insight-agent/src/logger"
	"insight-agent/src/store"
)

// DocFinder looks up the closest documentation page.
type DocFinder interface {
	Find(ctx context.Context, summary string) (contracts.Document, error)
}

// Drafter writes the suggested documentation change. It never fails.
type Drafter interface {
	Draft(ctx context.Context, c contracts.Cluster, doc contracts.Document) string
}

// TicketFiler files the ticket.
type TicketFiler interface {
	CreateIssue(ctx context.Context, c contracts.Cluster, doc contracts.Document, suggestion string) (contracts.Ticket, error)
}

// Escalator runs the per-cluster steps in order.
type Escalator struct {
	docs    DocFinder
	drafter Drafter
	tickets TicketFiler
	store   store.Store
	log     logger.Logger
}

// NewEscalator wires the collaborators. docs may be nil when no knowledge base
// is configured; tickets and store may be nil for dry runs only.
func NewEscalator(docs DocFinder, drafter Drafter, tickets TicketFiler, st store.Store, log logger.Logger) *Escalator {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Escalator{docs: docs, drafter: drafter, tickets: tickets, store: st, log: log}
}

// Escalate files one cluster. With dryRun the ticket and the record are skipped
// and the returned insight has no ticket fields.
func (e *Escalator) Escalate(ctx context.Context, runID string, c contracts.Cluster, dryRun bool) (*contracts.Insight, error) {
	doc := e.findDocs(ctx, c.Summary)
	suggestion := e.drafter.Draft(ctx, c, doc)

	insight := &contracts.Insight{
		RunID:       runID,
		Summary:     c.Summary,
		ChannelName: c.ChannelName,
		Quotes:      c.Quotes,
		DocURL:      doc.URL,
		Suggestion:  suggestion,
		Status:      contracts.StatusTriage,
	}

	if dryRun {
		e.log.Info("[Escalate] Dry run, not filing %q", c.Summary)
		return insight, nil
	}
	if e.tickets == nil || e.store == nil {
		return nil, fmt.Errorf("escalation requires a ticket filer and a store")
	}

	ticket, err := e.tickets.CreateIssue(ctx, c, doc, suggestion)
	if err != nil {
		return nil, fmt.Errorf("failed to create ticket: %w", err)
	}
	insight.TicketID = ticket.ID
	insight.Identifier = ticket.Identifier
	insight.URL = ticket.URL

	if err := e.store.SaveInsight(ctx, insight); err != nil {
		return nil, fmt.Errorf("failed to store insight for ticket %s: %w", ticket.Identifier, err)
	}

	e.log.Info("[Escalate] Filed %s for %q", ticket.Identifier, c.Summary)
	return insight, nil
}

// findDocs treats a lookup failure as "no documentation".
func (e *Escalator) findDocs(ctx context.Context, summary string) contracts.Document {
	if e.docs == nil {
		return contracts.Document{}
	}
	doc, err := e.docs.Find(ctx, summary)
	if err != nil {
		e.log.Warn("[Escalate] Documentation lookup failed: %v", err)
		return contracts.Document{}
	}
	return doc
}
