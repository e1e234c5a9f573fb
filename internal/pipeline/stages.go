package pipeline

import (
	"context"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/evalerr"
	"github.com/devprep/feedback-engine/internal/interview"
	"github.com/devprep/feedback-engine/internal/prompt"
	"github.com/devprep/feedback-engine/internal/schema"
)

const (
	rubricTemperature = 0.0
	rubricMaxTokens   = 4000

	feedbackTemperature     = 0.3
	feedbackMaxTokensSingle = 2000
	feedbackMaxTokensMulti  = 4000
)

type coverageScorer interface {
	Score(ctx context.Context, answer string, keywords []string) (interview.KeywordCoverage, error)
}

// KeywordStage scores the opening answer against the request keywords.
// Keyword practice is single-turn; real interviews pass no keywords and
// get vacuous full coverage.
type KeywordStage struct {
	scorer coverageScorer
}

func NewKeywordStage(scorer coverageScorer) *KeywordStage {
	return &KeywordStage{scorer: scorer}
}

func (s *KeywordStage) Name() string { return "keyword_coverage" }

func (s *KeywordStage) Run(ctx context.Context, state *State) (Update, error) {
	coverage, err := s.scorer.Score(ctx, state.History[0].Answer, state.Keywords)
	if err != nil {
		return Update{}, err
	}

	return Update{Coverage: &coverage}, nil
}

// RubricStage grades the transcript on the five rubric dimensions.
type RubricStage struct {
	generator ai.Generator
}

func NewRubricStage(generator ai.Generator) *RubricStage {
	return &RubricStage{generator: generator}
}

func (s *RubricStage) Name() string { return "rubric_evaluation" }

func (s *RubricStage) Run(ctx context.Context, state *State) (Update, error) {
	req := &ai.GenerateRequest{
		Prompt:      prompt.Rubric(state.History, promptContext(state)),
		System:      prompt.System(),
		Temperature: rubricTemperature,
		MaxTokens:   rubricMaxTokens,
		Schema:      schema.Rubric,
	}

	var scores interview.RubricScoreSet
	if err := s.generator.GenerateStructured(ctx, req, &scores); err != nil {
		return Update{}, err
	}
	if err := scores.Validate(); err != nil {
		return Update{}, evalerr.New(evalerr.KindParseFailed, err)
	}

	return Update{Rubric: &scores}, nil
}

// FeedbackStage writes the narrative feedback. One distinct topic gets
// overall feedback only; more get per-topic blocks plus a summary.
type FeedbackStage struct {
	generator ai.Generator
}

func NewFeedbackStage(generator ai.Generator) *FeedbackStage {
	return &FeedbackStage{generator: generator}
}

func (s *FeedbackStage) Name() string { return "feedback_generation" }

func (s *FeedbackStage) Run(ctx context.Context, state *State) (Update, error) {
	groups := interview.GroupByTopic(state.History)
	if len(groups) <= 1 {
		return s.single(ctx, state)
	}

	return s.multi(ctx, state, groups)
}

func (s *FeedbackStage) single(ctx context.Context, state *State) (Update, error) {
	req := &ai.GenerateRequest{
		Prompt:      prompt.FeedbackSingle(state.History, promptContext(state)),
		System:      prompt.System(),
		Temperature: feedbackTemperature,
		MaxTokens:   feedbackMaxTokensSingle,
		Schema:      schema.FeedbackOverall,
	}

	var overall interview.Feedback
	if err := s.generator.GenerateStructured(ctx, req, &overall); err != nil {
		return Update{}, err
	}

	return Update{Feedback: &interview.FeedbackText{Overall: overall}}, nil
}

func (s *FeedbackStage) multi(ctx context.Context, state *State, groups []interview.TopicGroup) (Update, error) {
	req := &ai.GenerateRequest{
		Prompt:      prompt.FeedbackMulti(groups, promptContext(state)),
		System:      prompt.System(),
		Temperature: feedbackTemperature,
		MaxTokens:   feedbackMaxTokensMulti,
		Schema:      schema.FeedbackMulti,
	}

	var feedback interview.FeedbackText
	if err := s.generator.GenerateStructured(ctx, req, &feedback); err != nil {
		return Update{}, err
	}
	if len(feedback.Topics) != len(groups) {
		return Update{}, evalerr.Newf(evalerr.KindParseFailed,
			"model returned %d topic feedbacks for %d topics", len(feedback.Topics), len(groups))
	}

	// Topic identity comes from the request, not the model.
	for i := range feedback.Topics {
		feedback.Topics[i].TopicID = groups[i].TopicID
		feedback.Topics[i].Question = groups[i].Representative().Question
	}

	return Update{Feedback: &feedback}, nil
}

func promptContext(state *State) prompt.Context {
	return prompt.Context{Category: state.Category, QuestionType: state.QuestionType}
}
