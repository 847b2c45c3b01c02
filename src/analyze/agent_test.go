package analyze

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"insight-agent/src/broker"
	"insight-agent/src/contracts"
	"insight-agent/src/insight"
	"insight-agent/src/logger"
	"insight-agent/src/store"
)

type fakeEngine struct {
	result *insight.Result
	err    error
	got    []contracts.Conversation
}

func (f *fakeEngine) Run(ctx context.Context, convs []contracts.Conversation) (*insight.Result, error) {
	f.got = convs
	return f.result, f.err
}

func batchMessage(t *testing.T, batch contracts.ConversationBatch) broker.Message {
	t.Helper()
	data, err := json.Marshal(batch)
	if err != nil {
		t.Fatalf("Failed to marshal batch: %v", err)
	}
	return broker.Message{Topic: contracts.TopicConversations, Key: batch.RunID, Value: data}
}

func TestAgent_ProcessBatch(t *testing.T) {
	ctx := context.Background()
	brk := broker.NewInMemoryBroker()
	defer brk.Close()
	st := store.NewMemoryStore()
	_ = st.CreateRun(ctx, "run-1", nil)

	clustersChan, err := brk.Subscribe(ctx, contracts.TopicClusters, "test-consumer")
	if err != nil {
		t.Fatalf("Failed to subscribe: %v", err)
	}

	engine := &fakeEngine{result: &insight.Result{Clusters: []contracts.Cluster{
		{Summary: "[Authentication] a", Quotes: []string{"q1", "q2", "q3"}},
		{Summary: "[Endpoint] b", Quotes: []string{"q4", "q5", "q6", "q7", "q8"}},
	}}}
	agent := NewAgent(brk, engine, st, logger.NewSilentLogger())

	msg := batchMessage(t, contracts.ConversationBatch{RunID: "run-1", Conversations: []contracts.Conversation{{ChannelName: "support", MainMessage: "x"}}})
	if err := agent.processBatch(ctx, msg); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}
	if len(engine.got) != 1 {
		t.Errorf("Expected engine to receive 1 conversation, got %d", len(engine.got))
	}

	for i := 0; i < 2; i++ {
		select {
		case out := <-clustersChan:
			var cm contracts.ClusterMessage
			if err := json.Unmarshal(out.Value, &cm); err != nil {
				t.Fatalf("Failed to unmarshal cluster: %v", err)
			}
			if cm.Index != i || cm.Total != 2 || cm.RunID != "run-1" {
				t.Errorf("Unexpected cluster message: %+v", cm)
			}
		case <-time.After(1 * time.Second):
			t.Fatalf("Timeout waiting for cluster %d", i)
		}
	}

	status, _ := st.GetRunStatus(ctx, "run-1")
	if status.Clusters != 2 || status.Status == contracts.RunCompleted {
		t.Errorf("Unexpected run status: %+v", status)
	}
}

func TestAgent_NoClustersCompletesRun(t *testing.T) {
	ctx := context.Background()
	brk := broker.NewInMemoryBroker()
	defer brk.Close()
	st := store.NewMemoryStore()
	_ = st.CreateRun(ctx, "run-2", nil)

	agent := NewAgent(brk, &fakeEngine{result: &insight.Result{}}, st, logger.NewSilentLogger())
	if err := agent.processBatch(ctx, batchMessage(t, contracts.ConversationBatch{RunID: "run-2"})); err != nil {
		t.Fatalf("processBatch failed: %v", err)
	}

	status, _ := st.GetRunStatus(ctx, "run-2")
	if status.Status != contracts.RunCompleted {
		t.Errorf("Expected completed run, got %s", status.Status)
	}
}

func TestAgent_EngineFailureFailsRun(t *testing.T) {
	ctx := context.Background()
	brk := broker.NewInMemoryBroker()
	defer brk.Close()
	st := store.NewMemoryStore()
	_ = st.CreateRun(ctx, "run-3", nil)

	agent := NewAgent(brk, &fakeEngine{err: insight.ErrEmbedding}, st, logger.NewSilentLogger())
	err := agent.processBatch(ctx, batchMessage(t, contracts.ConversationBatch{RunID: "run-3"}))
	if !errors.Is(err, insight.ErrEmbedding) {
		t.Fatalf("Expected ErrEmbedding, got %v", err)
	}

	status, _ := st.GetRunStatus(ctx, "run-3")
	if status.Status != contracts.RunFailed || status.Error == "" {
		t.Errorf("Expected failed run, got %+v", status)
	}
}
