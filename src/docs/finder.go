// Package docs finds the knowledge-base page that best matches an insight.
// Pages are stored in a Qdrant collection, one point per page, with the page
// url, title and text in the payload.
package docs

import (
	"context"
	"errors"
	"fmt"

	"github.com/qdrant/go-client/qdrant"

	"insight-agent/src/contracts"
	"insight-agent/src/logger"
)

// ErrCollectionMissing is returned when the configured collection does not exist.
var ErrCollectionMissing = errors.New("documentation collection does not exist")

// Embedder converts texts into vectors.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// searcher is the part of *qdrant.Client the finder uses.
type searcher interface {
	Query(ctx context.Context, request *qdrant.QueryPoints) ([]*qdrant.ScoredPoint, error)
	CollectionExists(ctx context.Context, collectionName string) (bool, error)
}

// Config holds the Qdrant connection settings.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
}

// Finder looks up documentation by semantic similarity.
type Finder struct {
	client     searcher
	closer     func() error
	embedder   Embedder
	collection string
	log        logger.Logger
}

// NewFinder connects to Qdrant.
func NewFinder(cfg Config, embedder Embedder, log logger.Logger) (*Finder, error) {
	if cfg.Collection == "" {
		return nil, errors.New("qdrant collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	f := newFinder(client, embedder, cfg.Collection, log)
	f.closer = client.Close
	return f, nil
}

func newFinder(client searcher, embedder Embedder, collection string, log logger.Logger) *Finder {
	if log == nil {
		log = logger.NewSilentLogger()
	}
	return &Finder{
		client:     client,
		closer:     func() error { return nil },
		embedder:   embedder,
		collection: collection,
		log:        log,
	}
}

// CheckCollection fails when the collection is missing.
func (f *Finder) CheckCollection(ctx context.Context) error {
	exists, err := f.client.CollectionExists(ctx, f.collection)
	if err != nil {
		return fmt.Errorf("failed to check collection %s: %w", f.collection, err)
	}
	if !exists {
		return fmt.Errorf("%w: %s", ErrCollectionMissing, f.collection)
	}
	return nil
}

// Find returns the single closest page for summary. An empty summary or an
// empty collection yields an empty Document without error.
func (f *Finder) Find(ctx context.Context, summary string) (contracts.Document, error) {
	if summary == "" {
		f.log.Warn("[Docs] Missing summary, skipping documentation lookup")
		return contracts.Document{}, nil
	}

	f.log.Info("[Docs] Finding relevant docs for insight: %s", preview(summary, 80))

	vectors, err := f.embedder.Embed(ctx, []string{summary})
	if err != nil {
		return contracts.Document{}, fmt.Errorf("failed to embed summary: %w", err)
	}
	if len(vectors) != 1 {
		return contracts.Document{}, fmt.Errorf("expected 1 vector, got %d", len(vectors))
	}

	limit := uint64(1)
	hits, err := f.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: f.collection,
		Query:          qdrant.NewQuery(vectors[0]...),
		Limit:          &limit,
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return contracts.Document{}, fmt.Errorf("failed to query qdrant: %w", err)
	}

	if len(hits) == 0 {
		f.log.Warn("[Docs] No relevant documentation found")
		return contracts.Document{}, nil
	}

	doc := toDocument(hits[0])
	f.log.Info("[Docs] Found match with score %.3f: %s", doc.Score, doc.URL)
	return doc, nil
}

// Close releases the Qdrant connection.
func (f *Finder) Close() error {
	return f.closer()
}

func toDocument(hit *qdrant.ScoredPoint) contracts.Document {
	payload := hit.GetPayload()
	return contracts.Document{
		URL:   stringValue(payload["url"]),
		Title: stringValue(payload["title"]),
		Text:  stringValue(payload["text"]),
		Score: hit.GetScore(),
	}
}

func stringValue(v *qdrant.Value) string {
	if v == nil {
		return ""
	}
	return v.GetStringValue()
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
