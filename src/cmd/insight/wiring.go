package main

import (
	"context"

	"insight-agent/src/config"
	"insight-agent/src/escalate"
	"insight-agent/src/insight"
	"insight-agent/src/pipeline"
	"insight-agent/src/provider"
	"insight-agent/src/store"
)

// components holds everything a local run needs.
type components struct {
	source    provider.Source
	engine    *insight.Engine
	escalator *escalate.Escalator
	store     store.Store
	closers   []func() error
}

// close releases the connections that were opened, newest first.
func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			log.Warn("[CLI] Cleanup failed: %v", err)
		}
	}
}

func buildLocal(ctx context.Context, cfg *config.Config, dryRun bool) (*components, error) {
	c := &components{}

	src, err := pipeline.NewSource(cfg)
	if err != nil {
		return nil, err
	}
	c.source = src

	engine, err := pipeline.NewEngine(cfg, log)
	if err != nil {
		return nil, err
	}
	c.engine = engine

	st, err := pipeline.OpenStore(cfg)
	if err != nil {
		return nil, err
	}
	c.store = st
	c.closers = append(c.closers, st.Close)

	esc, closeDocs, err := pipeline.NewEscalator(ctx, cfg, st, dryRun, log)
	if err != nil {
		c.close()
		return nil, err
	}
	c.escalator = esc
	c.closers = append(c.closers, closeDocs)

	return c, nil
}
