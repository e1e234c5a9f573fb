package vllm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/evalerr"
)

type verdict struct {
	Grade string `json:"grade" mapstructure:"grade"`
}

var verdictSchema = []byte(`{
	"type": "object",
	"required": ["grade"],
	"properties": {"grade": {"type": "string", "minLength": 1}}
}`)

func chatBody(content string) string {
	return `{"choices": [{"message": {"content": ` + jsonString(content) + `}}]}`
}

func jsonString(s string) string {
	b, _ := json.Marshal(s)

	return string(b)
}

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()

	c, err := New(Config{BaseURL: url, Model: "qwen3-8b"}, zap.NewNop())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	return c
}

func TestGenerateStructured(t *testing.T) {
	t.Parallel()

	var captured chatRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&captured); err != nil {
			t.Errorf("decoding request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(chatBody(`{"grade": "pass"}`)))
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	var got verdict
	err := c.GenerateStructured(context.Background(), &ai.GenerateRequest{
		Prompt:      "grade the answer",
		System:      "you grade interviews",
		Temperature: 0.3,
		MaxTokens:   1000,
		Schema:      verdictSchema,
	}, &got)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Grade != "pass" {
		t.Fatalf("unexpected grade: %q", got.Grade)
	}

	if captured.Model != "qwen3-8b" {
		t.Fatalf("unexpected model: %q", captured.Model)
	}
	if len(captured.Messages) != 2 || captured.Messages[0].Role != "system" || captured.Messages[1].Role != "user" {
		t.Fatalf("unexpected messages: %+v", captured.Messages)
	}
	if captured.ResponseFormat == nil || captured.ResponseFormat.Type != "json_schema" {
		t.Fatalf("expected a json_schema response format, got %+v", captured.ResponseFormat)
	}
}

func TestGenerateStructuredServerErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(t, server.URL)

	var got verdict
	err := c.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &got)
	if !evalerr.Is(err, evalerr.KindUnavailable) {
		t.Fatalf("expected the unavailable kind, got %v", err)
	}
}

func TestGenerateStructuredConnectErrorIsUnavailable(t *testing.T) {
	t.Parallel()

	// Nothing listens on this address.
	c := newTestClient(t, "http://127.0.0.1:1")

	var got verdict
	err := c.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &got)
	if !evalerr.Is(err, evalerr.KindUnavailable) {
		t.Fatalf("expected the unavailable kind, got %v", err)
	}
}

func TestGenerateStructuredTimeout(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		<-release
		w.Write([]byte(chatBody(`{"grade": "late"}`)))
	}))
	defer server.Close()
	defer close(release)

	c, err := New(Config{BaseURL: server.URL, Model: "m", Timeout: 50 * time.Millisecond}, zap.NewNop())
	if err != nil {
		t.Fatalf("creating client: %v", err)
	}

	var got verdict
	err = c.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &got)
	if !evalerr.Is(err, evalerr.KindTimeout) {
		t.Fatalf("expected the timeout kind, got %v", err)
	}
}

func TestGenerateStructuredBadContentIsParseFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{name: "no choices", body: `{"choices": []}`},
		{name: "prose instead of JSON", body: chatBody("I refuse to answer in JSON.")},
		{name: "schema violation", body: chatBody(`{"grade": ""}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			c := newTestClient(t, server.URL)

			var got verdict
			err := c.GenerateStructured(context.Background(), &ai.GenerateRequest{
				Prompt: "p",
				Schema: verdictSchema,
			}, &got)
			if !evalerr.Is(err, evalerr.KindParseFailed) {
				t.Fatalf("expected the parse kind, got %v", err)
			}
		})
	}
}
