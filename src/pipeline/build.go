package pipeline

import (
	"context"
	"fmt"

	"insight-agent/src/config"
	"insight-agent/src/docs"
	"insight-agent/src/embedding"
	"insight-agent/src/escalate"
	"insight-agent/src/insight"
	"insight-agent/src/linear"
	"insight-agent/src/llm"
	"insight-agent/src/logger"
	"insight-agent/src/provider"
	"insight-agent/src/store"
	"insight-agent/src/suggest"

	_ "insight-agent/src/discord" // registers the discord source
)

// NewSource returns the Discord source configured in cfg.
func NewSource(cfg *config.Config) (provider.Source, error) {
	if err := cfg.ValidateIngest(); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMissingAPIToken, err)
	}
	return provider.NewSource("discord", cfg.DiscordBotToken)
}

// NewEmbedder returns the embedding client configured in cfg.
func NewEmbedder(cfg *config.Config, log logger.Logger) *embedding.Client {
	return embedding.NewClient(cfg.EmbeddingBaseURL, cfg.EmbeddingAPIKey, cfg.EmbeddingModel, log)
}

// NewEngine builds the extraction engine. Without a token estimator the
// prompt budget check is skipped.
func NewEngine(cfg *config.Config, log logger.Logger) (*insight.Engine, error) {
	if err := cfg.ValidateEngine(); err != nil {
		return nil, fmt.Errorf("%w: %v", provider.ErrMissingAPIToken, err)
	}

	gen, err := llm.NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.AnthropicModel)
	if err != nil {
		return nil, err
	}

	var opts []insight.Option
	if tokens, err := llm.NewTokenEstimator(); err != nil {
		log.Warn("[Pipeline] Token estimator unavailable, prompt budget not checked: %v", err)
	} else {
		opts = append(opts, insight.WithTokenCounter(tokens))
	}

	return insight.NewEngine(cfg.Engine, gen, NewEmbedder(cfg, log), log, opts...)
}

// OpenStore opens Postgres when a DSN is configured, SQLite otherwise.
func OpenStore(cfg *config.Config) (store.Store, error) {
	st, err := store.Open(cfg.PostgresDSN, cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return st, nil
}

// NewEscalator wires documentation lookup, drafting and ticketing. The
// knowledge base is optional; Linear is required unless dryRun is set.
// The returned func closes the Qdrant connection.
func NewEscalator(ctx context.Context, cfg *config.Config, st store.Store, dryRun bool, log logger.Logger) (*escalate.Escalator, func() error, error) {
	closer := func() error { return nil }

	var finder escalate.DocFinder
	f, err := docs.NewFinder(docs.Config{
		Host:       cfg.QdrantHost,
		Port:       cfg.QdrantPort,
		APIKey:     cfg.QdrantAPIKey,
		UseTLS:     cfg.QdrantUseTLS,
		Collection: cfg.QdrantCollection,
	}, NewEmbedder(cfg, log), log)
	switch {
	case err != nil:
		log.Warn("[Pipeline] Documentation lookup disabled: %v", err)
	case f.CheckCollection(ctx) != nil:
		log.Warn("[Pipeline] Documentation lookup disabled: collection %q unavailable", cfg.QdrantCollection)
		_ = f.Close()
	default:
		finder = f
		closer = f.Close
	}

	gen, err := llm.NewAnthropicGenerator(cfg.AnthropicAPIKey, cfg.SuggestionModel)
	if err != nil {
		_ = closer()
		return nil, nil, err
	}
	drafter := suggest.NewDrafter(gen.WithMaxTokens(suggest.MaxTokens), cfg.Engine.GenerateTimeout, log)

	var tickets escalate.TicketFiler
	if !dryRun {
		if err := cfg.ValidateEscalation(); err != nil {
			_ = closer()
			return nil, nil, fmt.Errorf("%w: %v", provider.ErrMissingAPIToken, err)
		}
		client, err := linear.NewClient(cfg.LinearAPIKey, cfg.LinearProjectID, cfg.LinearTeamID, log)
		if err != nil {
			_ = closer()
			return nil, nil, err
		}
		tickets = client
	}

	return escalate.NewEscalator(finder, drafter, tickets, st, log), closer, nil
}
