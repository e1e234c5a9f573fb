// Package pipeline threads an evaluation state through the fixed stage
// order: keyword coverage, rubric evaluation, feedback generation.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/evalerr"
	"github.com/devprep/feedback-engine/internal/interview"
	"github.com/devprep/feedback-engine/internal/logger"
)

// State is the accumulator for one run. The request fields never change
// after construction; the result slots are filled by the stages.
type State struct {
	History      interview.History
	Keywords     []string
	Category     string
	QuestionType string

	Coverage *interview.KeywordCoverage
	Rubric   *interview.RubricScoreSet
	Feedback *interview.FeedbackText

	// Step names the last completed stage.
	Step string
}

// Update carries only the fields one stage computed. The runner merges
// it into the state; stages never touch each other's results.
type Update struct {
	Coverage *interview.KeywordCoverage
	Rubric   *interview.RubricScoreSet
	Feedback *interview.FeedbackText
}

func (s *State) merge(u Update) {
	if u.Coverage != nil {
		s.Coverage = u.Coverage
	}
	if u.Rubric != nil {
		s.Rubric = u.Rubric
	}
	if u.Feedback != nil {
		s.Feedback = u.Feedback
	}
}

// Stage is one step of the evaluation.
type Stage interface {
	Name() string
	Run(ctx context.Context, state *State) (Update, error)
}

// Runner executes stages sequentially. No retries and no branching; a
// failed stage ends the run.
type Runner struct {
	stages []Stage
	logger *zap.Logger
}

func NewRunner(log *zap.Logger, stages ...Stage) *Runner {
	if log == nil {
		log = zap.NewNop()
	}

	return &Runner{stages: stages, logger: log}
}

// Run drives the state through every stage and returns it fully
// populated. Errors carrying a known failure kind pass through
// unchanged; anything else is wrapped once as a generation failure.
func (r *Runner) Run(ctx context.Context, state *State) (*State, error) {
	for _, stage := range r.stages {
		start := time.Now()
		r.logger.Info("stage started", zap.String(logger.FieldStage, stage.Name()))

		update, err := stage.Run(ctx, state)
		if err != nil {
			r.logger.Error("stage failed",
				zap.String(logger.FieldStage, stage.Name()),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
			return nil, classifyStageError(stage.Name(), err)
		}

		state.merge(update)
		state.Step = stage.Name()

		r.logger.Info("stage completed",
			zap.String(logger.FieldStage, stage.Name()),
			zap.Duration("duration", time.Since(start)),
		)
	}

	return state, nil
}

func classifyStageError(stage string, err error) error {
	if _, ok := evalerr.KindOf(err); ok {
		return err
	}

	return evalerr.New(evalerr.KindGenerationFailed, fmt.Errorf("%s: %w", stage, err))
}
