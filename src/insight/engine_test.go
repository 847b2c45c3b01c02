package insight

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"pgregory.net/rapid"

	"insight-agent/src/contracts"
	"insight-agent/src/logger"
)

// scriptedGenerator returns canned responses in call order and records prompts.
type scriptedGenerator struct {
	mu        sync.Mutex
	responses []string
	errs      []error
	prompts   []string
	deadlines []bool
}

func (g *scriptedGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	i := len(g.prompts)
	g.prompts = append(g.prompts, prompt)
	_, hasDeadline := ctx.Deadline()
	g.deadlines = append(g.deadlines, hasDeadline)

	if i < len(g.errs) && g.errs[i] != nil {
		return "", g.errs[i]
	}
	if i < len(g.responses) {
		return g.responses[i], nil
	}
	return `{"identified_issues": []}`, nil
}

func (g *scriptedGenerator) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.prompts)
}

// embedFunc adapts a function to the Embedder interface.
type embedFunc func(ctx context.Context, texts []string) ([][]float32, error)

func (f embedFunc) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return f(ctx, texts)
}

// tableEmbedder maps each summary to a fixed vector and counts calls.
type tableEmbedder struct {
	vectors map[string][]float32
	calls   int
	batches [][]string
	err     error
}

func (e *tableEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.calls++
	e.batches = append(e.batches, texts)
	if e.err != nil {
		return nil, e.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, ok := e.vectors[t]
		if !ok {
			return nil, fmt.Errorf("no vector for %q", t)
		}
		out[i] = v
	}
	return out, nil
}

func conv(channel, text string, quotes ...string) contracts.Conversation {
	if len(quotes) == 0 {
		quotes = []string{fmt.Sprintf("'%s' - (from someone)", text)}
	}
	return contracts.Conversation{ChannelName: channel, MainMessage: text, Quotes: quotes}
}

func issueJSON(summary string, indices ...int) string {
	parts := make([]string, len(indices))
	for i, idx := range indices {
		parts[i] = fmt.Sprint(idx)
	}
	return fmt.Sprintf(`{"summary": %q, "conversation_indices": [%s]}`, summary, strings.Join(parts, ", "))
}

func response(issues ...string) string {
	return `{"identified_issues": [` + strings.Join(issues, ", ") + `]}`
}

func newTestEngine(t *testing.T, cfg Config, gen *scriptedGenerator, emb Embedder) (*Engine, *logger.RecordingLogger) {
	t.Helper()
	log := logger.NewRecordingLogger()
	e, err := NewEngine(cfg, gen, emb, log)
	if err != nil {
		t.Fatalf("NewEngine() error = %v", err)
	}
	return e, log
}

func TestEngine_SameProblemAcrossBatchesMerges(t *testing.T) {
	convs := []contracts.Conversation{
		conv("support", "token expired after an hour", "'token expired after an hour' - (from ana)"),
		conv("support", "got 401 after lunch", "'got 401 after lunch' - (from bo)"),
		conv("support", "refresh does not work", "'refresh does not work' - (from cy)"),
		conv("support", "my access token dies", "'my access token dies' - (from di)"),
		conv("support", "auth stops after 60 min", "'auth stops after 60 min' - (from ed)"),
		conv("support", "same here, unauthorized", "'same here, unauthorized' - (from fu)"),
	}

	first := "[Authentication] Access tokens expire after one hour"
	second := "[Authentication] Tokens stop working after 60 minutes"
	gen := &scriptedGenerator{responses: []string{
		response(issueJSON(first, 0, 1, 2)),
		response(issueJSON(second, 0, 1, 2)),
	}}
	emb := &tableEmbedder{vectors: map[string][]float32{
		first:  {1, 0.05, 0},
		second: {0.98, 0.1, 0},
	}}

	cfg := DefaultConfig()
	cfg.MaxBatchConversations = 3
	engine, _ := newTestEngine(t, cfg, gen, emb)

	res, err := engine.Run(context.Background(), convs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gen.calls() != 2 {
		t.Errorf("generator calls = %d, want 2", gen.calls())
	}
	if emb.calls != 1 {
		t.Errorf("embedder calls = %d, want 1", emb.calls)
	}
	if len(res.Clusters) != 1 {
		t.Fatalf("len(Clusters) = %d, want 1 (%+v)", len(res.Clusters), res)
	}

	c := res.Clusters[0]
	if c.Summary != first || c.ChannelName != "support" {
		t.Errorf("representative = %q/%q, want %q/support", c.Summary, c.ChannelName, first)
	}
	want := make([]string, 0, 6)
	for _, cv := range convs {
		want = append(want, cv.Quotes...)
	}
	if !reflect.DeepEqual(c.Quotes, want) {
		t.Errorf("Quotes = %v, want %v", c.Quotes, want)
	}
	if c.Members != 2 {
		t.Errorf("Members = %d, want 2", c.Members)
	}
}

func TestEngine_FarApartIssuesRejected(t *testing.T) {
	convs := []contracts.Conversation{
		conv("support", "pagination cursor confusing"),
		conv("support", "what is a webhook"),
	}

	a := "[Data Format] Pagination cursor semantics are unclear"
	b := "[Conceptual] Users ask what webhooks are for"
	vectors := map[string][]float32{a: {1, 0}, b: {0, 1}}

	for _, minSamples := range []int{1, 2} {
		t.Run(fmt.Sprintf("min_samples=%d", minSamples), func(t *testing.T) {
			gen := &scriptedGenerator{responses: []string{response(issueJSON(a, 0), issueJSON(b, 1))}}
			emb := &tableEmbedder{vectors: vectors}

			cfg := DefaultConfig()
			cfg.MinSamples = minSamples
			engine, log := newTestEngine(t, cfg, gen, emb)

			res, err := engine.Run(context.Background(), convs)
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if len(res.Clusters) != 0 {
				t.Errorf("Clusters = %+v, want none", res.Clusters)
			}

			if minSamples == 1 {
				if len(res.Rejected) != 2 {
					t.Errorf("len(Rejected) = %d, want 2", len(res.Rejected))
				}
				if !log.Contains("INFO", a) || !log.Contains("INFO", b) {
					t.Error("rejected clusters were not logged with their summaries")
				}
			} else if res.Noise != 2 {
				t.Errorf("Noise = %d, want 2", res.Noise)
			}
		})
	}
}

func TestEngine_EmptyInputCallsNothing(t *testing.T) {
	gen := &scriptedGenerator{}
	emb := &tableEmbedder{}
	engine, _ := newTestEngine(t, DefaultConfig(), gen, emb)

	for _, input := range [][]contracts.Conversation{nil, {}} {
		res, err := engine.Run(context.Background(), input)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if len(res.Clusters) != 0 {
			t.Errorf("Clusters = %v, want empty", res.Clusters)
		}
	}

	if gen.calls() != 0 || emb.calls != 0 {
		t.Errorf("collaborators called: generator %d, embedder %d", gen.calls(), emb.calls)
	}
}

func TestEngine_FailedChannelIsSkipped(t *testing.T) {
	convs := []contracts.Conversation{
		conv("broken", "a"),
		conv("garbled", "b"),
		conv("support", "c", "q1", "q2", "q3"),
		conv("support", "d", "q4", "q5"),
	}

	summary := "[Rate Limiting] 429s when polling"
	other := "[Rate Limiting] Hitting the rate limit on polling"
	gen := &scriptedGenerator{
		errs:      []error{errors.New("upstream 529"), nil, nil},
		responses: []string{"", "I think the main issue is auth.", response(issueJSON(summary, 0), issueJSON(other, 1))},
	}
	emb := &tableEmbedder{vectors: map[string][]float32{summary: {1, 0}, other: {0.99, 0.05}}}
	engine, log := newTestEngine(t, DefaultConfig(), gen, emb)

	res, err := engine.Run(context.Background(), convs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if gen.calls() != 3 {
		t.Errorf("generator calls = %d, want 3", gen.calls())
	}
	if len(res.BatchErrors) != 2 {
		t.Fatalf("len(BatchErrors) = %d, want 2", len(res.BatchErrors))
	}

	var extErr *ExtractionError
	if !errors.As(res.BatchErrors[0], &extErr) || extErr.Kind != ErrorCollaborator || extErr.Batch.Channel != "broken" {
		t.Errorf("BatchErrors[0] = %v, want collaborator error for broken", res.BatchErrors[0])
	}
	if !errors.As(res.BatchErrors[1], &extErr) || extErr.Kind != ErrorParse || extErr.Batch.Channel != "garbled" {
		t.Errorf("BatchErrors[1] = %v, want parse error for garbled", res.BatchErrors[1])
	}
	if !log.Contains("ERROR", "broken") {
		t.Error("failed channel was not logged")
	}

	if len(res.Clusters) != 1 || len(res.Clusters[0].Quotes) != 5 {
		t.Fatalf("Clusters = %+v, want one cluster with 5 quotes", res.Clusters)
	}
}

func TestEngine_EmbeddingFailureIsFatal(t *testing.T) {
	convs := []contracts.Conversation{conv("support", "a"), conv("support", "b")}
	gen := &scriptedGenerator{responses: []string{response(issueJSON("[General] x", 0), issueJSON("[General] y", 1))}}

	t.Run("collaborator error", func(t *testing.T) {
		emb := &tableEmbedder{err: errors.New("connection reset")}
		engine, _ := newTestEngine(t, DefaultConfig(), gen, emb)

		res, err := engine.Run(context.Background(), convs)
		if !errors.Is(err, ErrEmbedding) {
			t.Fatalf("Run() error = %v, want ErrEmbedding", err)
		}
		if res != nil {
			t.Errorf("Run() result = %+v, want nil on fatal error", res)
		}
	})

	t.Run("length mismatch", func(t *testing.T) {
		gen.prompts = nil
		emb := embedFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
			return [][]float32{{1, 0}}, nil
		})
		engine, _ := newTestEngine(t, DefaultConfig(), gen, emb)

		if _, err := engine.Run(context.Background(), convs); !errors.Is(err, ErrEmbedding) {
			t.Fatalf("Run() error = %v, want ErrEmbedding", err)
		}
	})
}

func TestEngine_NoSurvivingIssuesSkipsEmbedding(t *testing.T) {
	convs := []contracts.Conversation{conv("support", "a"), conv("support", "b")}
	gen := &scriptedGenerator{responses: []string{response(issueJSON("[General] hallucinated", 7, -1))}}
	emb := &tableEmbedder{}
	engine, _ := newTestEngine(t, DefaultConfig(), gen, emb)

	res, err := engine.Run(context.Background(), convs)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Extracted != 0 || len(res.Clusters) != 0 {
		t.Errorf("Result = %+v, want nothing extracted", res)
	}
	if emb.calls != 0 {
		t.Errorf("embedder calls = %d, want 0", emb.calls)
	}
}

func TestEngine_IndicesStayWithinTheirBatch(t *testing.T) {
	convs := []contracts.Conversation{
		conv("alpha", "a0", "alpha-0"),
		conv("beta", "b0", "beta-0"),
		conv("beta", "b1", "beta-1"),
		conv("beta", "b2", "beta-2"),
	}

	// Index 2 is valid for beta but not for alpha.
	gen := &scriptedGenerator{responses: []string{
		response(issueJSON("[General] alpha issue", 0, 2)),
		response(issueJSON("[General] beta issue", 2)),
	}}

	cfg := DefaultConfig()
	engine, _ := newTestEngine(t, cfg, gen, &tableEmbedder{})

	issues, batches, errs := engine.Extract(context.Background(), convs)
	if batches != 2 || len(errs) != 0 {
		t.Fatalf("Extract() batches = %d, errs = %v", batches, errs)
	}

	want := []contracts.ExtractedIssue{
		{Summary: "[General] alpha issue", ChannelName: "alpha", Quotes: []string{"alpha-0"}},
		{Summary: "[General] beta issue", ChannelName: "beta", Quotes: []string{"beta-2"}},
	}
	if !reflect.DeepEqual(issues, want) {
		t.Errorf("Extract() = %+v, want %+v", issues, want)
	}
}

func TestEngine_CollaboratorCallsHaveDeadlines(t *testing.T) {
	convs := []contracts.Conversation{conv("support", "a"), conv("support", "b")}
	gen := &scriptedGenerator{responses: []string{response(issueJSON("[General] x", 0), issueJSON("[General] y", 1))}}

	embedHadDeadline := false
	emb := embedFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		deadline, ok := ctx.Deadline()
		embedHadDeadline = ok && time.Until(deadline) <= time.Second
		return [][]float32{{1, 0}, {0, 1}}, nil
	})

	cfg := DefaultConfig()
	cfg.EmbedTimeout = time.Second
	engine, _ := newTestEngine(t, cfg, gen, emb)

	if _, err := engine.Run(context.Background(), convs); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(gen.deadlines) != 1 || !gen.deadlines[0] {
		t.Error("generator call had no deadline")
	}
	if !embedHadDeadline {
		t.Error("embedding call did not use EmbedTimeout")
	}
}

type countingTokens struct{ n int }

func (c countingTokens) Count(string) int { return c.n }

func TestEngine_WarnsOnLargePrompt(t *testing.T) {
	gen := &scriptedGenerator{}
	log := logger.NewRecordingLogger()
	cfg := DefaultConfig()
	cfg.PromptTokenBudget = 10

	engine, err := NewEngine(cfg, gen, &tableEmbedder{}, log, WithTokenCounter(countingTokens{n: 50}))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := engine.Run(context.Background(), []contracts.Conversation{conv("support", "a")}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if gen.calls() != 1 {
		t.Errorf("generator calls = %d, want 1 (large prompts are still sent)", gen.calls())
	}
	if !log.Contains("WARN", "budget 10") {
		t.Error("expected a prompt budget warning")
	}
}

func TestNewEngine_Validates(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Eps = 3
	if _, err := NewEngine(cfg, &scriptedGenerator{}, &tableEmbedder{}, nil); err == nil {
		t.Error("NewEngine() with eps 3 should fail")
	}
	if _, err := NewEngine(DefaultConfig(), nil, &tableEmbedder{}, nil); err == nil {
		t.Error("NewEngine() without generator should fail")
	}
}

// Every extracted issue lands in exactly one cluster or is noise, clusters never
// outnumber issues and every cluster carries quotes.
func TestPropertyEngineCluster_Partition(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		n := rapid.IntRange(1, 25).Draw(rt, "issues")
		dim := rapid.IntRange(2, 4).Draw(rt, "dim")

		issues := make([]contracts.ExtractedIssue, n)
		vectors := make([][]float32, n)
		totalQuotes := 0
		for i := range issues {
			q := rapid.IntRange(1, 4).Draw(rt, "quotes")
			quotes := make([]string, q)
			for j := range quotes {
				quotes[j] = fmt.Sprintf("issue %d quote %d", i, j)
			}
			totalQuotes += q
			issues[i] = contracts.ExtractedIssue{Summary: fmt.Sprintf("[General] issue %d", i), ChannelName: "c", Quotes: quotes}

			v := make([]float32, dim)
			for d := range v {
				v[d] = float32(rapid.Float64Range(-1, 1).Draw(rt, "x"))
			}
			v[0] += 0.01
			vectors[i] = v
		}

		emb := embedFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
			return vectors, nil
		})

		cfg := DefaultConfig()
		cfg.Eps = rapid.Float64Range(0.05, 0.8).Draw(rt, "eps")
		cfg.MinSamples = rapid.IntRange(1, 4).Draw(rt, "minSamples")
		engine, err := NewEngine(cfg, &scriptedGenerator{}, emb, logger.NewSilentLogger())
		if err != nil {
			rt.Fatalf("NewEngine: %v", err)
		}

		clusters, noise, err := engine.Cluster(context.Background(), issues)
		if err != nil {
			rt.Fatalf("Cluster: %v", err)
		}

		if len(clusters) > n {
			rt.Fatalf("%d clusters from %d issues", len(clusters), n)
		}

		members, quotes := 0, 0
		for _, c := range clusters {
			if len(c.Quotes) == 0 || c.Members == 0 {
				rt.Fatalf("empty cluster %+v", c)
			}
			members += c.Members
			quotes += len(c.Quotes)
		}
		if members+noise != n {
			rt.Fatalf("members %d + noise %d != issues %d", members, noise, n)
		}
		if quotes > totalQuotes {
			rt.Fatalf("clusters hold %d quotes, only %d exist", quotes, totalQuotes)
		}

		again, noiseAgain, err := engine.Cluster(context.Background(), issues)
		if err != nil {
			rt.Fatalf("Cluster (again): %v", err)
		}
		if !reflect.DeepEqual(clusters, again) || noise != noiseAgain {
			rt.Fatalf("re-clustering identical input changed the result")
		}
	})
}
