package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"insight-agent/src/contracts"
	"insight-agent/src/escalate"
	"insight-agent/src/insight"
	"insight-agent/src/logger"
	"insight-agent/src/provider"
	"insight-agent/src/store"
)

// Report is the outcome of a local run.
type Report struct {
	RunID    string
	Result   *insight.Result
	Insights []contracts.Insight
	// Failures holds one error per cluster whose escalation failed.
	Failures []error
}

// Runner executes a run in-process: ingest, engine, then escalation of every
// accepted cluster in order.
type Runner struct {
	source    provider.Source
	engine    *insight.Engine
	escalator *escalate.Escalator
	store     store.Store
	log       logger.Logger
}

// NewRunner wires a local runner.
func NewRunner(src provider.Source, engine *insight.Engine, esc *escalate.Escalator, st store.Store, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Runner{source: src, engine: engine, escalator: esc, store: st, log: log}
}

// Run executes req. A failed cluster escalation is logged and reported; only
// ingestion and engine failures abort the run.
func (r *Runner) Run(ctx context.Context, req contracts.RunRequest) (*Report, error) {
	report := &Report{RunID: req.RunID}

	if err := r.store.CreateRun(ctx, req.RunID, req.ChannelIDs); err != nil {
		return nil, fmt.Errorf("failed to create run: %w", err)
	}
	status := &contracts.RunStatus{RunID: req.RunID, Channels: req.ChannelIDs, Status: contracts.RunProcessing}
	r.saveStatus(ctx, status)

	fail := func(err error) (*Report, error) {
		status.Status = contracts.RunFailed
		status.Error = err.Error()
		r.saveStatus(ctx, status)
		return nil, err
	}

	refs, err := provider.ParseChannelRefs(req.ChannelIDs)
	if err != nil {
		return fail(err)
	}
	if len(refs) == 0 {
		return fail(provider.ErrMissingChannels)
	}

	since := time.Now().AddDate(0, 0, -req.SinceDays)
	r.log.Info("[Pipeline] Run %s: ingesting %d channels from %s", req.RunID, len(refs), r.source.Name())

	conversations, err := r.source.FetchConversations(ctx, refs, since)
	if err != nil {
		return fail(fmt.Errorf("failed to fetch conversations: %w", err))
	}
	status.Conversations = len(conversations)
	r.saveStatus(ctx, status)

	result, err := r.engine.Run(ctx, conversations)
	if err != nil {
		return fail(err)
	}
	report.Result = result
	status.Clusters = len(result.Clusters)
	r.saveStatus(ctx, status)

	for i, c := range result.Clusters {
		if err := ctx.Err(); err != nil {
			return fail(err)
		}

		r.log.Info("[Pipeline] Escalating cluster %d/%d: %s", i+1, len(result.Clusters), c.Summary)
		ins, err := r.escalator.Escalate(ctx, req.RunID, c, req.DryRun)
		if err != nil {
			r.log.Error("[Pipeline] Escalation failed for %q: %v", c.Summary, err)
			report.Failures = append(report.Failures, fmt.Errorf("cluster %d: %w", i, err))
			continue
		}
		report.Insights = append(report.Insights, *ins)
		if !req.DryRun {
			status.Tickets++
		}
	}

	status.Status = contracts.RunCompleted
	if len(report.Failures) > 0 {
		status.Error = errors.Join(report.Failures...).Error()
	}
	r.saveStatus(ctx, status)

	r.log.Info("[Pipeline] Run %s completed: %d conversations, %d clusters, %d tickets",
		req.RunID, status.Conversations, status.Clusters, status.Tickets)
	return report, nil
}

func (r *Runner) saveStatus(ctx context.Context, status *contracts.RunStatus) {
	if err := r.store.UpdateRunStatus(ctx, status); err != nil {
		r.log.Warn("[Pipeline] Could not update run %s: %v", status.RunID, err)
	}
}
