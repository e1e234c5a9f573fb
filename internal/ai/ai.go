// Package ai defines the capability boundary the evaluation core
// consumes: batched embeddings, morphological tagging and structured
// generation. Providers live in the subpackages.
package ai

import "context"

// GenerateRequest describes one structured-generation call. Schema
// holds the raw JSON Schema the response must conform to; providers may
// forward it to the backend and it is always enforced locally on decode.
type GenerateRequest struct {
	Prompt      string
	System      string
	Temperature float32
	MaxTokens   int32
	Schema      []byte
}

// Generator produces a JSON document matching the request schema and
// decodes it into out, which must be a pointer to the target struct.
// Failures are classified: timeout, unavailable, or parse-invalid.
type Generator interface {
	Name() string
	GenerateStructured(ctx context.Context, req *GenerateRequest, out any) error
}

// Embedder encodes texts into vectors. The result preserves input
// order and is deterministic for identical input.
type Embedder interface {
	Encode(ctx context.Context, texts []string) ([][]float32, error)
}

// Token is one unit of a tagged text: the surface form plus its
// grammatical tag (Kiwi-style POS tag names).
type Token struct {
	Text string
	Tag  string
}

// Tagger splits a text into grammatically tagged tokens.
type Tagger interface {
	Tokenize(text string) ([]Token, error)
}
