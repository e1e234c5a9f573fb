// Package badcase pre-filters answers that are not worth a generative
// evaluation: inappropriate language, degenerate or empty content, and
// answers about a different topic than the question.
package badcase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
)

// Kind names the rejection reason. At most one kind is ever set; the
// checks run in a fixed order and the first hit wins.
type Kind string

const (
	KindInappropriate Kind = "INAPPROPRIATE"
	KindInsufficient  Kind = "INSUFFICIENT"
	KindOffTopic      Kind = "OFF_TOPIC"
)

// Verdict is the check outcome: normal, or rejected with a reason and
// the user-facing Korean texts for it.
type Verdict struct {
	Rejected bool
	Kind     Kind
	Message  string
	Guidance string
}

var catalog = map[Kind]Verdict{
	KindInappropriate: {
		Rejected: true,
		Kind:     KindInappropriate,
		Message:  "답변에 부적절한 표현이 포함되어 있어요.",
		Guidance: "면접 상황에 맞는 언어로 답변을 다시 작성해 주세요.",
	},
	KindInsufficient: {
		Rejected: true,
		Kind:     KindInsufficient,
		Message:  "답변 내용이 충분하지 않아요.",
		Guidance: "질문에서 묻는 내용을 한두 문장이라도 구체적으로 설명해 주세요.",
	},
	KindOffTopic: {
		Rejected: true,
		Kind:     KindOffTopic,
		Message:  "답변이 질문과 다른 주제를 다루고 있어요.",
		Guidance: "질문의 핵심 키워드를 다시 확인하고 그 내용에 대해 답변해 주세요.",
	},
}

const (
	defaultMinMeaningfulTokens = 3
	defaultSimilarityThreshold = 0.3
)

// Config tunes the two thresholds the checker exposes.
type Config struct {
	MinMeaningfulTokens int
	SimilarityThreshold float64
}

// Checker runs the pre-filter rules. Safe for concurrent use; the
// injected tagger and embedder must be too.
type Checker struct {
	tagger              ai.Tagger
	embedder            ai.Embedder
	minMeaningfulTokens int
	similarityThreshold float64
	logger              *zap.Logger
}

// New builds a checker. Zero config fields fall back to the defaults
// (3 meaningful tokens, 0.3 similarity).
func New(tagger ai.Tagger, embedder ai.Embedder, cfg Config, log *zap.Logger) *Checker {
	if cfg.MinMeaningfulTokens <= 0 {
		cfg.MinMeaningfulTokens = defaultMinMeaningfulTokens
	}
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultSimilarityThreshold
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Checker{
		tagger:              tagger,
		embedder:            embedder,
		minMeaningfulTokens: cfg.MinMeaningfulTokens,
		similarityThreshold: cfg.SimilarityThreshold,
		logger:              log,
	}
}

// Check applies the rules in order: inappropriate, insufficient,
// off-topic. A returned error means the off-topic check could not run;
// the caller decides whether that blocks the evaluation.
func (c *Checker) Check(ctx context.Context, question, answer string) (Verdict, error) {
	if c.containsProfanity(answer) {
		return c.reject(KindInappropriate), nil
	}

	if c.isRepetitive(answer) || c.lacksContent(answer) {
		return c.reject(KindInsufficient), nil
	}

	offTopic, err := c.isOffTopic(ctx, question, answer)
	if err != nil {
		return Verdict{}, fmt.Errorf("off-topic check: %w", err)
	}
	if offTopic {
		return c.reject(KindOffTopic), nil
	}

	return Verdict{}, nil
}

func (c *Checker) reject(kind Kind) Verdict {
	c.logger.Info("answer rejected by pre-filter", zap.String("kind", string(kind)))
	return catalog[kind]
}
