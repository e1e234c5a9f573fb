package anthropic

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/anthropics/anthropic-sdk-go"
	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/evalerr"
)

type fakeMessages struct {
	lastParams anthropic.MessageNewParams
	message    *anthropic.Message
	err        error
}

func (f *fakeMessages) create(_ context.Context, params anthropic.MessageNewParams) (*anthropic.Message, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return f.message, nil
}

func textMessage(text string) *anthropic.Message {
	return &anthropic.Message{
		Content: []anthropic.ContentBlockUnion{{Type: "text", Text: text}},
	}
}

func newTestClient(fake *fakeMessages) *Client {
	return &Client{messages: fake, model: "claude-test", logger: zap.NewNop()}
}

func TestGenerateStructuredDecodes(t *testing.T) {
	fake := &fakeMessages{message: textMessage(`{"score": 4}`)}
	client := newTestClient(fake)

	var out struct {
		Score int `json:"score" mapstructure:"score"`
	}
	req := &ai.GenerateRequest{
		Prompt:      "score the answer",
		System:      "you are a grader",
		Temperature: 0.5,
		MaxTokens:   2000,
	}
	if err := client.GenerateStructured(context.Background(), req, &out); err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if out.Score != 4 {
		t.Fatalf("expected score 4, got %d", out.Score)
	}

	params := fake.lastParams
	if params.Model != "claude-test" {
		t.Fatalf("unexpected model %q", params.Model)
	}
	if params.MaxTokens != 2000 {
		t.Fatalf("unexpected max tokens %d", params.MaxTokens)
	}
	if params.Temperature.Value != 0.5 {
		t.Fatalf("unexpected temperature %v", params.Temperature.Value)
	}
	if len(params.System) != 1 || params.System[0].Text != "you are a grader" {
		t.Fatalf("unexpected system blocks %+v", params.System)
	}
	if len(params.Messages) != 1 || params.Messages[0].Role != anthropic.MessageParamRoleUser {
		t.Fatalf("unexpected messages %+v", params.Messages)
	}
}

func TestGenerateStructuredDefaultsMaxTokens(t *testing.T) {
	fake := &fakeMessages{message: textMessage(`{}`)}
	client := newTestClient(fake)

	var out struct{}
	err := client.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &out)
	if err != nil {
		t.Fatalf("GenerateStructured: %v", err)
	}
	if fake.lastParams.MaxTokens != defaultMaxTokens {
		t.Fatalf("expected default max tokens, got %d", fake.lastParams.MaxTokens)
	}
}

func TestGenerateStructuredNoTextContent(t *testing.T) {
	fake := &fakeMessages{message: &anthropic.Message{}}
	client := newTestClient(fake)

	var out struct{}
	err := client.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &out)
	if !evalerr.Is(err, evalerr.KindParseFailed) {
		t.Fatalf("expected parse kind, got %v", err)
	}
}

func TestClassifyStatusCodes(t *testing.T) {
	cases := []struct {
		status int
		kind   evalerr.Kind
	}{
		{status: 429, kind: evalerr.KindUnavailable},
		{status: 503, kind: evalerr.KindUnavailable},
		{status: 529, kind: evalerr.KindUnavailable},
		{status: 408, kind: evalerr.KindTimeout},
	}
	for _, tc := range cases {
		fake := &fakeMessages{err: &anthropic.Error{StatusCode: tc.status}}
		client := newTestClient(fake)

		var out struct{}
		err := client.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &out)
		if !evalerr.Is(err, tc.kind) {
			t.Fatalf("status %d: expected %s, got %v", tc.status, tc.kind, err)
		}
	}
}

func TestClassifyDeadline(t *testing.T) {
	fake := &fakeMessages{err: fmt.Errorf("call: %w", context.DeadlineExceeded)}
	client := newTestClient(fake)

	var out struct{}
	err := client.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &out)
	if !evalerr.Is(err, evalerr.KindTimeout) {
		t.Fatalf("expected timeout kind, got %v", err)
	}
}

func TestClassifyPlainError(t *testing.T) {
	fake := &fakeMessages{err: fmt.Errorf("boom")}
	client := newTestClient(fake)

	var out struct{}
	err := client.GenerateStructured(context.Background(), &ai.GenerateRequest{Prompt: "p"}, &out)
	if err == nil {
		t.Fatal("expected an error")
	}
	if kind, ok := evalerr.KindOf(err); ok {
		t.Fatalf("expected no kind, got %s", kind)
	}
	if !strings.Contains(err.Error(), "anthropic message call") {
		t.Fatalf("unexpected error text %q", err)
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	if _, err := New(Config{}, nil); err == nil {
		t.Fatal("expected an error for missing api key")
	}
}
