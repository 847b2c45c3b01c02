package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"insight-agent/src/analyze"
	"insight-agent/src/broker"
	"insight-agent/src/config"
	"insight-agent/src/contracts"
	"insight-agent/src/escalate"
	"insight-agent/src/ingest"
	"insight-agent/src/insight"
	"insight-agent/src/logger"
	"insight-agent/src/provider"
	"insight-agent/src/store"
)

func TestDetectMode(t *testing.T) {
	tests := []struct {
		name     string
		config   *config.Config
		expected Mode
	}{
		{
			name:     "Local mode - no brokers",
			config:   &config.Config{RedpandaBrokers: []string{}},
			expected: LocalMode,
		},
		{
			name:     "Local mode - nil brokers",
			config:   &config.Config{},
			expected: LocalMode,
		},
		{
			name:     "Agentic mode - with brokers",
			config:   &config.Config{RedpandaBrokers: []string{"localhost:19092"}},
			expected: AgenticMode,
		},
		{
			name:     "Agentic mode - multiple brokers",
			config:   &config.Config{RedpandaBrokers: []string{"broker1:9092", "broker2:9092"}},
			expected: AgenticMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mode := DetectMode(tt.config)
			if mode != tt.expected {
				t.Errorf("Expected mode %v, got %v", tt.expected, mode)
			}
		})
	}
}

func TestNewRequest(t *testing.T) {
	a := NewRequest([]string{"1"}, 7, true)
	b := NewRequest([]string{"1"}, 7, true)

	if a.RunID == "" || a.RunID == b.RunID {
		t.Errorf("Expected unique run ids, got %q and %q", a.RunID, b.RunID)
	}
	if a.SinceDays != 7 || !a.DryRun || a.Timestamp == "" {
		t.Errorf("Unexpected request: %+v", a)
	}
}

// --- fakes shared by the end-to-end tests ---

const channelID = "123456789012345678"

type fakeSource struct{}

func (fakeSource) Name() string { return "fake" }

func (fakeSource) FetchConversations(ctx context.Context, refs []provider.ChannelRef, since time.Time) ([]contracts.Conversation, error) {
	var convs []contracts.Conversation
	for i, who := range []string{"ana", "ben", "cy"} {
		text := fmt.Sprintf("login fails with 401 (%d)", i)
		convs = append(convs, contracts.Conversation{
			ChannelID:   refs[0].ChannelID,
			ChannelName: "support",
			MainMessage: text,
			Quotes:      []string{fmt.Sprintf("'%s' - (from %s)", text, who)},
		})
	}
	return convs, nil
}

type cannedGenerator struct{}

func (cannedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	return `{"identified_issues":[{"summary":"[Authentication] Login fails with 401","conversation_indices":[0,1,2]}]}`, nil
}

type constantEmbedder struct{}

func (constantEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

type stubDrafter struct{}

func (stubDrafter) Draft(ctx context.Context, c contracts.Cluster, doc contracts.Document) string {
	return "explain 401s"
}

type countingTickets struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingTickets) CreateIssue(ctx context.Context, cl contracts.Cluster, doc contracts.Document, suggestion string) (contracts.Ticket, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return contracts.Ticket{}, c.err
	}
	return contracts.Ticket{ID: fmt.Sprintf("t-%d", c.calls), Identifier: fmt.Sprintf("DOC-%d", c.calls)}, nil
}

func (c *countingTickets) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func newEngine(t *testing.T) *insight.Engine {
	t.Helper()
	cfg := insight.DefaultConfig()
	cfg.MinSamples = 1
	engine, err := insight.NewEngine(cfg, cannedGenerator{}, constantEmbedder{}, nil)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	return engine
}

func TestRunner_Run(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tickets := &countingTickets{}
	runner := NewRunner(fakeSource{}, newEngine(t), escalate.NewEscalator(nil, stubDrafter{}, tickets, st, nil), st, nil)

	req := NewRequest([]string{channelID}, 7, false)
	report, err := runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(report.Result.Clusters) != 1 || len(report.Insights) != 1 {
		t.Fatalf("Expected 1 cluster and 1 insight, got %d and %d", len(report.Result.Clusters), len(report.Insights))
	}
	if got := len(report.Insights[0].Quotes); got != 3 {
		t.Errorf("Expected 3 quotes, got %d", got)
	}
	if tickets.count() != 1 {
		t.Errorf("Expected 1 ticket, got %d", tickets.count())
	}

	status, err := st.GetRunStatus(ctx, req.RunID)
	if err != nil {
		t.Fatalf("GetRunStatus failed: %v", err)
	}
	if status.Status != contracts.RunCompleted || status.Conversations != 3 || status.Clusters != 1 || status.Tickets != 1 {
		t.Errorf("Unexpected run status: %+v", status)
	}
}

func TestRunner_EscalationFailureIsRecorded(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	tickets := &countingTickets{err: errors.New("linear down")}
	runner := NewRunner(fakeSource{}, newEngine(t), escalate.NewEscalator(nil, stubDrafter{}, tickets, st, nil), st, nil)

	req := NewRequest([]string{channelID}, 7, false)
	report, err := runner.Run(ctx, req)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(report.Failures) != 1 || len(report.Insights) != 0 {
		t.Errorf("Expected 1 failure and no insights, got %d and %d", len(report.Failures), len(report.Insights))
	}

	status, _ := st.GetRunStatus(ctx, req.RunID)
	if status.Status != contracts.RunCompleted || status.Error == "" {
		t.Errorf("Expected completed run with recorded error, got %+v", status)
	}
}

func TestRunner_InvalidChannelFailsRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	runner := NewRunner(fakeSource{}, newEngine(t), escalate.NewEscalator(nil, stubDrafter{}, &countingTickets{}, st, nil), st, nil)

	req := NewRequest([]string{"general"}, 7, false)
	if _, err := runner.Run(ctx, req); !errors.Is(err, provider.ErrInvalidChannel) {
		t.Fatalf("Expected ErrInvalidChannel, got %v", err)
	}

	status, _ := st.GetRunStatus(ctx, req.RunID)
	if status.Status != contracts.RunFailed {
		t.Errorf("Expected failed run, got %s", status.Status)
	}
}

// TestAgenticPipeline_EndToEnd runs the three agents over the in-memory broker.
func TestAgenticPipeline_EndToEnd(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	brk := broker.NewInMemoryBroker()
	st := store.NewMemoryStore()
	log := logger.NewSilentLogger()
	tickets := &countingTickets{}

	agents := []Agent{
		ingest.NewAgent(brk, fakeSource{}, st, log),
		analyze.NewAgent(brk, newEngine(t), st, log),
		escalate.NewAgent(brk, escalate.NewEscalator(nil, stubDrafter{}, tickets, st, log), st, log),
	}
	done := make(chan error, 1)
	go func() { done <- RunAgents(ctx, log, agents...) }()

	waitFor(t, func() bool {
		return brk.Subscribed(contracts.TopicRequests, "insight-ingest") &&
			brk.Subscribed(contracts.TopicConversations, "insight-analyze") &&
			brk.Subscribed(contracts.TopicClusters, "insight-escalate")
	})

	p := NewAgenticPipeline(brk, st)
	runID, err := p.Submit(ctx, NewRequest([]string{channelID}, 7, false))
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	waitFor(t, func() bool {
		s, err := p.Status(ctx, runID)
		return err == nil && s.Status == contracts.RunCompleted
	})

	insights, err := p.Insights(ctx, runID)
	if err != nil {
		t.Fatalf("Insights failed: %v", err)
	}
	if len(insights) != 1 || insights[0].Status != contracts.StatusTriage {
		t.Errorf("Expected 1 triage insight, got %+v", insights)
	}

	status, _ := p.Status(ctx, runID)
	if status.Conversations != 3 || status.Clusters != 1 || status.Tickets != 1 {
		t.Errorf("Unexpected run status: %+v", status)
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("RunAgents returned %v after cancellation", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
}

func TestAgenticPipeline_SubmitRequiresChannels(t *testing.T) {
	p := NewAgenticPipeline(broker.NewInMemoryBroker(), store.NewMemoryStore())
	defer p.Close()

	if _, err := p.Submit(context.Background(), NewRequest(nil, 7, false)); !errors.Is(err, provider.ErrMissingChannels) {
		t.Errorf("Expected ErrMissingChannels, got %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
