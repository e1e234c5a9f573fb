// Package keyword scores how well an answer covers a required keyword
// set, using overlapping answer chunks and embedding similarity.
package keyword

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/devprep/feedback-engine/internal/ai"
	"github.com/devprep/feedback-engine/internal/interview"
)

const (
	defaultThreshold = 0.5
	defaultWindow    = 20
	defaultStride    = 10
	defaultMinChunk  = 10
)

// Config tunes the matching threshold and the rune-counted chunking.
type Config struct {
	SimilarityThreshold float64
	WindowRunes         int
	StrideRunes         int
	MinChunkRunes       int
}

// Scorer computes keyword coverage. Safe for concurrent use; the
// injected embedder must be too.
type Scorer struct {
	embedder  ai.Embedder
	threshold float64
	window    int
	stride    int
	minChunk  int
	logger    *zap.Logger
}

// New builds a scorer. Zero config fields fall back to the defaults
// (threshold 0.5, window 20, stride 10, min chunk 10).
func New(embedder ai.Embedder, cfg Config, log *zap.Logger) *Scorer {
	if cfg.SimilarityThreshold <= 0 {
		cfg.SimilarityThreshold = defaultThreshold
	}
	if cfg.WindowRunes <= 0 {
		cfg.WindowRunes = defaultWindow
	}
	if cfg.StrideRunes <= 0 {
		cfg.StrideRunes = defaultStride
	}
	if cfg.MinChunkRunes <= 0 {
		cfg.MinChunkRunes = defaultMinChunk
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Scorer{
		embedder:  embedder,
		threshold: cfg.SimilarityThreshold,
		window:    cfg.WindowRunes,
		stride:    cfg.StrideRunes,
		minChunk:  cfg.MinChunkRunes,
		logger:    log,
	}
}

// Score partitions keywords into covered and missing. Every keyword is
// judged by its best similarity against any chunk (max-score). An empty
// keyword list is vacuously fully covered.
func (s *Scorer) Score(ctx context.Context, answer string, keywords []string) (interview.KeywordCoverage, error) {
	coverage := interview.KeywordCoverage{
		Covered: []string{},
		Missing: []string{},
		Ratio:   1.0,
	}
	if len(keywords) == 0 {
		return coverage, nil
	}

	chunks := chunk(normalize(answer), s.window, s.stride, s.minChunk)
	if len(chunks) == 0 {
		// Nothing left of the answer; no keyword can be present.
		coverage.Missing = append(coverage.Missing, keywords...)
		coverage.Ratio = 0
		return coverage, nil
	}

	chunkVectors, err := s.embedder.Encode(ctx, chunks)
	if err != nil {
		return interview.KeywordCoverage{}, fmt.Errorf("embed answer chunks: %w", err)
	}
	keywordVectors, err := s.embedder.Encode(ctx, keywords)
	if err != nil {
		return interview.KeywordCoverage{}, fmt.Errorf("embed keywords: %w", err)
	}

	for i, keyword := range keywords {
		best := 0.0
		for _, chunkVector := range chunkVectors {
			if sim := ai.Cosine(keywordVectors[i], chunkVector); sim > best {
				best = sim
			}
		}

		if best >= s.threshold {
			coverage.Covered = append(coverage.Covered, keyword)
		} else {
			coverage.Missing = append(coverage.Missing, keyword)
		}
	}

	coverage.Ratio = float64(len(coverage.Covered)) / float64(len(keywords))

	s.logger.Debug("keyword coverage scored",
		zap.Int("chunks", len(chunks)),
		zap.Int("keywords", len(keywords)),
		zap.Float64("ratio", coverage.Ratio),
	)

	return coverage, nil
}
