package escalate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/logger"
	"insight-agent/src/store"
)

type fakeDocs struct {
	doc contracts.Document
	err error
}

func (f *fakeDocs) Find(ctx context.Context, summary string) (contracts.Document, error) {
	return f.doc, f.err
}

type fakeDrafter struct{}

func (fakeDrafter) Draft(ctx context.Context, c contracts.Cluster, doc contracts.Document) string {
	if doc.Empty() {
		return "no doc"
	}
	return "change " + doc.URL
}

type fakeTickets struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeTickets) CreateIssue(ctx context.Context, c contracts.Cluster, doc contracts.Document, suggestion string) (contracts.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return contracts.Ticket{}, f.err
	}
	id := fmt.Sprintf("DOC-%d", f.calls)
	return contracts.Ticket{ID: "id-" + id, Identifier: id, URL: "https://linear.app/x/" + id}, nil
}

func (f *fakeTickets) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testCluster = contracts.Cluster{
	Summary:     "[Rate Limiting] 429s hit during bulk import",
	ChannelName: "support",
	Quotes:      []string{"'429 again' - (from a)", "'429 again' - (from b)", "'so many 429' - (from c)"},
	Members:     2,
}

func TestEscalate_FilesAndStores(t *testing.T) {
	st := store.NewMemoryStore()
	tickets := &fakeTickets{}
	esc := NewEscalator(&fakeDocs{doc: contracts.Document{URL: "https://docs/limits", Text: "limits"}}, fakeDrafter{}, tickets, st, nil)

	insight, err := esc.Escalate(context.Background(), "run-1", testCluster, false)
	if err != nil {
		t.Fatalf("Escalate failed: %v", err)
	}
	if insight.Identifier != "DOC-1" || insight.DocURL != "https://docs/limits" || insight.Suggestion != "change https://docs/limits" {
		t.Errorf("Unexpected insight: %+v", insight)
	}

	stored, err := st.GetInsight(context.Background(), "id-DOC-1")
	if err != nil {
		t.Fatalf("GetInsight failed: %v", err)
	}
	if stored.Status != contracts.StatusTriage || stored.RunID != "run-1" || len(stored.Quotes) != 3 {
		t.Errorf("Unexpected stored insight: %+v", stored)
	}
}

func TestEscalate_DocFailureIsNotFatal(t *testing.T) {
	esc := NewEscalator(&fakeDocs{err: errors.New("qdrant down")}, fakeDrafter{}, &fakeTickets{}, store.NewMemoryStore(), nil)

	insight, err := esc.Escalate(context.Background(), "run-1", testCluster, false)
	if err != nil {
		t.Fatalf("Escalate failed: %v", err)
	}
	if insight.Suggestion != "no doc" || insight.DocURL != "" {
		t.Errorf("Expected escalation without documentation, got %+v", insight)
	}
}

func TestEscalate_DryRunSkipsSideEffects(t *testing.T) {
	tickets := &fakeTickets{}
	st := store.NewMemoryStore()
	esc := NewEscalator(nil, fakeDrafter{}, tickets, st, nil)

	insight, err := esc.Escalate(context.Background(), "run-1", testCluster, true)
	if err != nil {
		t.Fatalf("Escalate failed: %v", err)
	}
	if insight.TicketID != "" {
		t.Errorf("Expected no ticket in dry run, got %q", insight.TicketID)
	}
	if tickets.count() != 0 {
		t.Errorf("Expected no ticket calls, got %d", tickets.count())
	}
	all, _ := st.ListInsights(context.Background(), "")
	if len(all) != 0 {
		t.Errorf("Expected nothing stored, got %d", len(all))
	}
}

func TestEscalate_TicketFailure(t *testing.T) {
	esc := NewEscalator(nil, fakeDrafter{}, &fakeTickets{err: errors.New("graphql")}, store.NewMemoryStore(), nil)
	if _, err := esc.Escalate(context.Background(), "run-1", testCluster, false); err == nil {
		t.Error("Expected error when the ticket cannot be filed")
	}
}

func publishCluster(t *testing.T, brk broker.Broker, cm contracts.ClusterMessage) {
	t.Helper()
	data, err := json.Marshal(cm)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := brk.Publish(context.Background(), contracts.TopicClusters, cm.RunID, data); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAgent_EscalatesOnceAndCompletesRun(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	defer brk.Close()
	st := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.CreateRun(ctx, "run-7", []string{"1"}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	tickets := &fakeTickets{}
	agent := NewAgent(brk, NewEscalator(nil, fakeDrafter{}, tickets, st, nil), st, logger.NewSilentLogger())
	go func() { _ = agent.Run(ctx) }()
	waitForSubscription(t, brk)

	other := testCluster
	other.Summary = "[Endpoint] /v2/search ignores the limit parameter"

	publishCluster(t, brk, contracts.ClusterMessage{RunID: "run-7", Index: 0, Total: 2, Cluster: testCluster})
	// Redelivery of the first cluster.
	publishCluster(t, brk, contracts.ClusterMessage{RunID: "run-7", Index: 0, Total: 2, Cluster: testCluster})
	publishCluster(t, brk, contracts.ClusterMessage{RunID: "run-7", Index: 1, Total: 2, Cluster: other})

	waitFor(t, func() bool {
		s, err := st.GetRunStatus(ctx, "run-7")
		return err == nil && s.Status == contracts.RunCompleted
	})

	if tickets.count() != 2 {
		t.Errorf("Expected 2 tickets, got %d", tickets.count())
	}
	status, _ := st.GetRunStatus(ctx, "run-7")
	if status.Tickets != 2 {
		t.Errorf("Expected run to count 2 tickets, got %d", status.Tickets)
	}
}

func TestAgent_SimilarSummariesAreSeparateClusters(t *testing.T) {
	brk := broker.NewInMemoryBroker()
	defer brk.Close()
	st := store.NewMemoryStore()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := st.CreateRun(ctx, "run-8", []string{"1"}); err != nil {
		t.Fatalf("CreateRun failed: %v", err)
	}

	tickets := &fakeTickets{}
	agent := NewAgent(brk, NewEscalator(nil, fakeDrafter{}, tickets, st, nil), st, logger.NewSilentLogger())
	go func() { _ = agent.Run(ctx) }()
	waitForSubscription(t, brk)

	// Both summaries normalise to the same text once numbers and paths are masked.
	users := testCluster
	users.Summary = "[Endpoint] 404 on /v2/users/list"
	orders := testCluster
	orders.Summary = "[Endpoint] 500 on /v3/orders/export"

	publishCluster(t, brk, contracts.ClusterMessage{RunID: "run-8", Index: 0, Total: 2, Cluster: users})
	publishCluster(t, brk, contracts.ClusterMessage{RunID: "run-8", Index: 1, Total: 2, Cluster: orders})

	waitFor(t, func() bool {
		s, err := st.GetRunStatus(ctx, "run-8")
		return err == nil && s.Status == contracts.RunCompleted
	})

	if tickets.count() != 2 {
		t.Errorf("Expected 2 tickets, got %d", tickets.count())
	}
	insights, err := st.ListInsights(ctx, "run-8")
	if err != nil {
		t.Fatalf("ListInsights failed: %v", err)
	}
	if len(insights) != 2 {
		t.Errorf("Expected 2 stored insights, got %d", len(insights))
	}
}

func waitForSubscription(t *testing.T, brk *broker.InMemoryBroker) {
	t.Helper()
	waitFor(t, func() bool {
		return brk.Subscribed(contracts.TopicClusters, "insight-escalate")
	})
}
