package feedback

import (
	"github.com/devprep/feedback-engine/internal/badcase"
	"github.com/devprep/feedback-engine/internal/interview"
	"github.com/devprep/feedback-engine/internal/pipeline"
)

const (
	ResultEvaluated = "evaluated"
	ResultRejected  = "rejected"
)

// EvaluationResult is a discriminated union: Result names the path
// taken and exactly one of Rejected/Evaluated is non-null.
type EvaluationResult struct {
	EvalID    string      `json:"eval_id"`
	Result    string      `json:"result"`
	Rejected  *Rejection  `json:"rejected"`
	Evaluated *Evaluation `json:"evaluated"`
}

// Rejection carries the pre-filter outcome of the early path.
type Rejection struct {
	Kind     badcase.Kind `json:"kind"`
	Message  string       `json:"message"`
	Guidance string       `json:"guidance"`
}

// Evaluation carries the full-pipeline outcome of the normal path.
type Evaluation struct {
	RubricScores []interview.RubricScore    `json:"rubric_scores"`
	Coverage     *interview.KeywordCoverage `json:"keyword_coverage"`
	Feedback     *interview.FeedbackText    `json:"feedback"`
}

func newRejectedResult(evalID string, verdict badcase.Verdict) *EvaluationResult {
	return &EvaluationResult{
		EvalID: evalID,
		Result: ResultRejected,
		Rejected: &Rejection{
			Kind:     verdict.Kind,
			Message:  verdict.Message,
			Guidance: verdict.Guidance,
		},
	}
}

func newEvaluatedResult(evalID string, state *pipeline.State) *EvaluationResult {
	evaluation := &Evaluation{
		Coverage: state.Coverage,
		Feedback: state.Feedback,
	}
	if state.Rubric != nil {
		evaluation.RubricScores = state.Rubric.Metrics()
	}

	return &EvaluationResult{
		EvalID:    evalID,
		Result:    ResultEvaluated,
		Evaluated: evaluation,
	}
}
