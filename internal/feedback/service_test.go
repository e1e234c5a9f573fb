package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/ai/kotag"
	"github.com/devprep/feedback-engine/internal/badcase"
	"github.com/devprep/feedback-engine/internal/evalerr"
	"github.com/devprep/feedback-engine/internal/interview"
	"github.com/devprep/feedback-engine/internal/keyword"
	"github.com/devprep/feedback-engine/internal/pipeline"
)

type fakeChecker struct {
	verdict badcase.Verdict
	err     error
	calls   int
}

func (f *fakeChecker) Check(_ context.Context, _, _ string) (badcase.Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeRunner struct {
	final *pipeline.State
	err   error
	calls int
}

func (f *fakeRunner) Run(_ context.Context, state *pipeline.State) (*pipeline.State, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.final != nil {
		return f.final, nil
	}
	return state, nil
}

// stubGenerator fills whichever structured target a stage asks for.
type stubGenerator struct{}

func (stubGenerator) Name() string { return "stub" }

func (stubGenerator) GenerateStructured(_ context.Context, _ *ai.GenerateRequest, out any) error {
	item := interview.RubricItem{Score: 4, Rationale: "근거가 명확합니다."}
	switch v := out.(type) {
	case *interview.RubricScoreSet:
		*v = interview.RubricScoreSet{Accuracy: item, Logic: item, Specificity: item, Completeness: item, Delivery: item}
	case *interview.Feedback:
		*v = interview.Feedback{Strengths: "개념이 정확합니다.", Improvements: "예시를 추가하세요."}
	case *interview.FeedbackText:
		*v = interview.FeedbackText{Overall: interview.Feedback{Strengths: "좋음", Improvements: "보완"}}
	}
	return nil
}

type constEmbedder struct{}

func (constEmbedder) Encode(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vectors[i] = []float32{1, 0}
	}
	return vectors, nil
}

func validRequest(mode interview.Mode) *EvaluationRequest {
	return &EvaluationRequest{
		UserID:     "user-1",
		QuestionID: "q-1",
		Mode:       mode,
		History: interview.History{
			{Question: "TCP와 UDP의 차이를 설명해주세요.", Answer: "TCP는 연결 지향 프로토콜이고 UDP는 비연결형입니다.", Kind: interview.TurnNewTopic, Order: 1, TopicID: 1},
		},
	}
}

func TestEvaluateRejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*EvaluationRequest)
	}{
		{name: "missing user id", mutate: func(r *EvaluationRequest) { r.UserID = "" }},
		{name: "missing question id", mutate: func(r *EvaluationRequest) { r.QuestionID = "" }},
		{name: "unknown mode", mutate: func(r *EvaluationRequest) { r.Mode = "exam" }},
		{name: "empty history", mutate: func(r *EvaluationRequest) { r.History = nil }},
		{name: "turn without answer", mutate: func(r *EvaluationRequest) { r.History[0].Answer = "" }},
		{name: "non-increasing order", mutate: func(r *EvaluationRequest) {
			r.History = append(r.History, r.History[0])
		}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			runner := &fakeRunner{}
			service := NewService(&fakeChecker{}, runner, nil)

			req := validRequest(interview.ModePractice)
			tc.mutate(req)

			if _, err := service.Evaluate(context.Background(), req); err == nil {
				t.Fatal("expected a validation error")
			}
			if runner.calls != 0 {
				t.Fatal("pipeline must not run for an invalid request")
			}
		})
	}
}

func TestEvaluatePracticeModeRejection(t *testing.T) {
	checker := &fakeChecker{verdict: badcase.Verdict{
		Rejected: true,
		Kind:     badcase.KindInsufficient,
		Message:  "답변 내용이 충분하지 않아요.",
		Guidance: "조금 더 구체적으로 설명해 주세요.",
	}}
	runner := &fakeRunner{}
	service := NewService(checker, runner, nil)

	result, err := service.Evaluate(context.Background(), validRequest(interview.ModePractice))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Result != ResultRejected {
		t.Fatalf("expected rejected result, got %q", result.Result)
	}
	if result.Rejected == nil || result.Rejected.Kind != badcase.KindInsufficient {
		t.Fatalf("unexpected rejection payload %+v", result.Rejected)
	}
	if result.Evaluated != nil {
		t.Fatal("rejected results must carry no evaluation payload")
	}
	if runner.calls != 0 {
		t.Fatal("pipeline must not run for a rejected answer")
	}
	if result.EvalID == "" {
		t.Fatal("result must carry an evaluation id")
	}
}

func TestEvaluateRealModeSkipsPreFilter(t *testing.T) {
	checker := &fakeChecker{verdict: badcase.Verdict{Rejected: true, Kind: badcase.KindInappropriate}}
	runner := &fakeRunner{final: evaluatedState()}
	service := NewService(checker, runner, nil)

	result, err := service.Evaluate(context.Background(), validRequest(interview.ModeReal))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if checker.calls != 0 {
		t.Fatal("real mode must not run the pre-filter")
	}
	if result.Result != ResultEvaluated {
		t.Fatalf("expected evaluated result, got %q", result.Result)
	}
}

func TestEvaluateFailsOpenWhenPreFilterErrors(t *testing.T) {
	checker := &fakeChecker{err: errors.New("embedding backend down")}
	runner := &fakeRunner{final: evaluatedState()}
	service := NewService(checker, runner, nil)

	result, err := service.Evaluate(context.Background(), validRequest(interview.ModePractice))
	if err != nil {
		t.Fatalf("a broken pre-filter must not block the evaluation: %v", err)
	}
	if result.Result != ResultEvaluated {
		t.Fatalf("expected evaluated result, got %q", result.Result)
	}
	if runner.calls != 1 {
		t.Fatal("pipeline must run when the pre-filter fails open")
	}
}

func TestEvaluatePipelineErrorKeepsKind(t *testing.T) {
	runner := &fakeRunner{err: evalerr.Newf(evalerr.KindTimeout, "model deadline exceeded")}
	service := NewService(&fakeChecker{}, runner, nil)

	result, err := service.Evaluate(context.Background(), validRequest(interview.ModePractice))
	if result != nil {
		t.Fatal("a failed pipeline must not produce a result")
	}
	if !evalerr.Is(err, evalerr.KindTimeout) {
		t.Fatalf("expected the timeout kind to surface, got %v", err)
	}
}

func TestEvaluateCleanPracticeAnswerFullFlow(t *testing.T) {
	embedder := constEmbedder{}
	generator := stubGenerator{}

	checker := badcase.New(kotag.New(), embedder, badcase.Config{}, nil)
	runner := pipeline.NewRunner(nil,
		pipeline.NewKeywordStage(keyword.New(embedder, keyword.Config{}, nil)),
		pipeline.NewRubricStage(generator),
		pipeline.NewFeedbackStage(generator),
	)
	service := NewService(checker, runner, nil)

	result, err := service.Evaluate(context.Background(), validRequest(interview.ModePractice))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if result.Result != ResultEvaluated || result.Evaluated == nil || result.Rejected != nil {
		t.Fatalf("expected the evaluated path, got %+v", result)
	}

	evaluation := result.Evaluated
	if len(evaluation.RubricScores) != 5 {
		t.Fatalf("expected 5 rubric scores, got %d", len(evaluation.RubricScores))
	}
	if evaluation.RubricScores[0].Name != "정확성" {
		t.Fatalf("rubric scores must use Korean display names in stable order, got %q", evaluation.RubricScores[0].Name)
	}
	if evaluation.Coverage == nil || evaluation.Coverage.Ratio != 1.0 {
		t.Fatalf("no keywords must mean vacuous full coverage, got %+v", evaluation.Coverage)
	}
	if evaluation.Feedback == nil || evaluation.Feedback.Overall.Strengths == "" {
		t.Fatalf("expected overall feedback, got %+v", evaluation.Feedback)
	}
}

func TestResultJSONKeepsBothSlots(t *testing.T) {
	rejected := newRejectedResult("id-1", badcase.Verdict{Rejected: true, Kind: badcase.KindOffTopic, Message: "m", Guidance: "g"})
	data, err := json.Marshal(rejected)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"result":"rejected"`, `"evaluated":null`, `"kind":"OFF_TOPIC"`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("rejected JSON missing %s: %s", want, data)
		}
	}

	evaluated := newEvaluatedResult("id-2", evaluatedState())
	data, err = json.Marshal(evaluated)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, want := range []string{`"result":"evaluated"`, `"rejected":null`, `"coverage_ratio":1`} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("evaluated JSON missing %s: %s", want, data)
		}
	}
}

func evaluatedState() *pipeline.State {
	item := interview.RubricItem{Score: 4, Rationale: "근거"}
	return &pipeline.State{
		Coverage: &interview.KeywordCoverage{Covered: []string{}, Missing: []string{}, Ratio: 1},
		Rubric:   &interview.RubricScoreSet{Accuracy: item, Logic: item, Specificity: item, Completeness: item, Delivery: item},
		Feedback: &interview.FeedbackText{Overall: interview.Feedback{Strengths: "s", Improvements: "i"}},
		Step:     "feedback_generation",
	}
}
