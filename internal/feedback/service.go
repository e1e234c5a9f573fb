// Package feedback exposes the evaluation service: it validates the
// request, gates practice answers through the bad-case pre-filter and
// runs the staged pipeline for everything that passes.
package feedback

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/badcase"
	"github.com/devprep/feedback-engine/internal/interview"
	"github.com/devprep/feedback-engine/internal/logger"
	"github.com/devprep/feedback-engine/internal/pipeline"
)

// Checker is the bad-case pre-filter boundary.
type Checker interface {
	Check(ctx context.Context, question, answer string) (badcase.Verdict, error)
}

type pipelineRunner interface {
	Run(ctx context.Context, state *pipeline.State) (*pipeline.State, error)
}

// Service evaluates interview answers. Construct once and share; all
// dependencies are read-only.
type Service struct {
	checker Checker
	runner  pipelineRunner
	logger  *zap.Logger
}

func NewService(checker Checker, runner pipelineRunner, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}

	return &Service{checker: checker, runner: runner, logger: log}
}

// Evaluate runs one request end to end. Practice mode pre-filters the
// opening answer; a pre-filter that cannot run never blocks the
// evaluation. The returned result takes exactly one of the two paths.
func (s *Service) Evaluate(ctx context.Context, req *EvaluationRequest) (*EvaluationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	evalID := uuid.NewString()
	log := logger.WithEvalID(s.logger, evalID)

	log.Info("evaluation started",
		zap.String("mode", string(req.Mode)),
		zap.Int("turns", len(req.History)),
		zap.Int("keywords", len(req.Keywords)),
	)

	if req.Mode == interview.ModePractice {
		opening := req.History[0]

		verdict, err := s.checker.Check(ctx, opening.Question, opening.Answer)
		switch {
		case err != nil:
			log.Warn("pre-filter unavailable; proceeding to full evaluation", zap.Error(err))
		case verdict.Rejected:
			log.Info("answer rejected before evaluation", zap.String("kind", string(verdict.Kind)))
			return newRejectedResult(evalID, verdict), nil
		}
	}

	state := &pipeline.State{
		History:      req.History,
		Keywords:     req.Keywords,
		Category:     req.Category,
		QuestionType: req.QuestionType,
	}

	final, err := s.runner.Run(ctx, state)
	if err != nil {
		return nil, err
	}

	log.Info("evaluation completed", zap.String(logger.FieldStage, final.Step))

	return newEvaluatedResult(evalID, final), nil
}
