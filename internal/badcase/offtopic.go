package badcase

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
)

// isOffTopic embeds the question and answer and compares them. Below
// the threshold the answer is judged to be about something else.
func (c *Checker) isOffTopic(ctx context.Context, question, answer string) (bool, error) {
	vectors, err := c.embedder.Encode(ctx, []string{question, answer})
	if err != nil {
		return false, err
	}
	if len(vectors) != 2 {
		return false, fmt.Errorf("expected 2 vectors, got %d", len(vectors))
	}

	similarity := ai.Cosine(vectors[0], vectors[1])
	c.logger.Debug("off-topic check",
		zap.Float64("similarity", similarity),
		zap.Float64("threshold", c.similarityThreshold),
	)

	return similarity < c.similarityThreshold, nil
}
