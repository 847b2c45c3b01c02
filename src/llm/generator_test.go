package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
)

func messageResponse(blocks ...map[string]any) map[string]any {
	return map[string]any{
		"id":            "msg_test",
		"type":          "message",
		"role":          "assistant",
		"model":         DefaultModel,
		"content":       blocks,
		"stop_reason":   "end_turn",
		"stop_sequence": nil,
		"usage":         map[string]any{"input_tokens": 10, "output_tokens": 5},
	}
}

func newTestGenerator(t *testing.T, handler http.HandlerFunc) *AnthropicGenerator {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	gen, err := NewAnthropicGenerator("test-key", "", option.WithBaseURL(server.URL))
	if err != nil {
		t.Fatalf("NewAnthropicGenerator() error = %v", err)
	}
	return gen
}

func TestAnthropicGenerator_Generate(t *testing.T) {
	var gotPrompt, gotModel string
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/v1/messages") {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("X-Api-Key") != "test-key" {
			t.Errorf("X-Api-Key = %q", r.Header.Get("X-Api-Key"))
		}

		body, _ := io.ReadAll(r.Body)
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content []struct {
					Text string `json:"text"`
				} `json:"content"`
			} `json:"messages"`
		}
		if err := json.Unmarshal(body, &req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		gotModel = req.Model
		if len(req.Messages) == 1 && len(req.Messages[0].Content) == 1 {
			gotPrompt = req.Messages[0].Content[0].Text
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse(
			map[string]any{"type": "text", "text": "first "},
			map[string]any{"type": "text", "text": "second"},
		))
	})

	got, err := gen.Generate(context.Background(), "find the issues")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got != "first second" {
		t.Errorf("Generate() = %q, want %q", got, "first second")
	}
	if gotPrompt != "find the issues" {
		t.Errorf("prompt sent = %q", gotPrompt)
	}
	if gotModel != DefaultModel {
		t.Errorf("model sent = %q, want %q", gotModel, DefaultModel)
	}
}

func TestAnthropicGenerator_EmptyResponse(t *testing.T) {
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(messageResponse())
	})

	_, err := gen.Generate(context.Background(), "prompt")
	if !errors.Is(err, ErrEmptyResponse) {
		t.Errorf("Generate() error = %v, want ErrEmptyResponse", err)
	}
}

func TestAnthropicGenerator_ServerErrorNotRetried(t *testing.T) {
	calls := 0
	gen := newTestGenerator(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"type":"error","error":{"type":"api_error","message":"boom"}}`))
	})

	if _, err := gen.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("Generate() error = nil, want error")
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}
}

func TestNewAnthropicGenerator_RequiresKey(t *testing.T) {
	if _, err := NewAnthropicGenerator("", ""); err == nil {
		t.Error("NewAnthropicGenerator(\"\") error = nil, want error")
	}

	gen, err := NewAnthropicGenerator("k", "claude-3-5-haiku-20241022")
	if err != nil {
		t.Fatal(err)
	}
	if gen.Model() != "claude-3-5-haiku-20241022" {
		t.Errorf("Model() = %q", gen.Model())
	}
}
