package embedding

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
)

func TestBuildEmbeddingURL(t *testing.T) {
	tests := []struct {
		base string
		want string
	}{
		{"https://api.openai.com", "https://api.openai.com/v1/embeddings"},
		{"http://localhost:11434/v1", "http://localhost:11434/v1/embeddings"},
		{"https://proxy.example.com/v1/embeddings", "https://proxy.example.com/v1/embeddings"},
	}

	for _, tt := range tests {
		if got := buildEmbeddingURL(tt.base); got != tt.want {
			t.Errorf("buildEmbeddingURL(%q) = %q, want %q", tt.base, got, tt.want)
		}
	}
}

func TestClient_Embed(t *testing.T) {
	var gotReq embeddingRequest
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("path = %s", r.URL.Path)
		}
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotReq)

		// Out of order on purpose.
		w.Write([]byte(`{"model":"text-embedding-3-small","data":[
			{"index":1,"embedding":[0,1]},
			{"index":0,"embedding":[1,0]}
		]}`))
	}))
	defer server.Close()

	c := NewClient(server.URL+"/", "sk-test", "", nil)
	vectors, err := c.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}

	want := [][]float32{{1, 0}, {0, 1}}
	if !reflect.DeepEqual(vectors, want) {
		t.Errorf("Embed() = %v, want %v", vectors, want)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotReq.Model != DefaultModel || !reflect.DeepEqual(gotReq.Input, []string{"first", "second"}) {
		t.Errorf("request = %+v", gotReq)
	}
}

func TestClient_EmbedErrors(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		errPart string
	}{
		{name: "server error", status: 500, body: `{"error":"boom"}`, errPart: "status 500"},
		{name: "bad json", status: 200, body: `not json`, errPart: "decode"},
		{name: "short response", status: 200, body: `{"data":[{"index":0,"embedding":[1]}]}`, errPart: "got 1 embeddings for 2 texts"},
		{name: "index out of range", status: 200, body: `{"data":[{"index":0,"embedding":[1]},{"index":5,"embedding":[1]}]}`, errPart: "out of range"},
		{name: "duplicate index", status: 200, body: `{"data":[{"index":0,"embedding":[1]},{"index":0,"embedding":[1]}]}`, errPart: "duplicate"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calls := 0
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := NewClient(server.URL, "k", "m", nil)
			_, err := c.Embed(context.Background(), []string{"a", "b"})
			if err == nil || !strings.Contains(err.Error(), tt.errPart) {
				t.Errorf("Embed() error = %v, want containing %q", err, tt.errPart)
			}
			if calls != 1 {
				t.Errorf("server called %d times, want exactly 1", calls)
			}
		})
	}
}

func TestClient_EmbedNoInput(t *testing.T) {
	c := NewClient("http://unused", "", "", nil)
	if _, err := c.Embed(context.Background(), nil); !errors.Is(err, ErrNoInput) {
		t.Errorf("Embed(nil) error = %v, want ErrNoInput", err)
	}
}

func TestClient_EmbedHonoursContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewClient(server.URL, "", "", nil)
	if _, err := c.Embed(ctx, []string{"a"}); err == nil {
		t.Error("Embed() with cancelled context should fail")
	}
}
