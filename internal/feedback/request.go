package feedback

import (
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/devprep/feedback-engine/internal/interview"
)

var validate = validator.New()

// EvaluationRequest is the caller-facing input of one evaluation.
// Category and QuestionType are opaque tags passed through to the
// prompts.
type EvaluationRequest struct {
	UserID       string            `json:"user_id" mapstructure:"user_id" validate:"required"`
	QuestionID   string            `json:"question_id" mapstructure:"question_id" validate:"required"`
	SessionID    string            `json:"session_id,omitempty" mapstructure:"session_id"`
	Mode         interview.Mode    `json:"mode" mapstructure:"mode" validate:"required,oneof=practice real"`
	History      interview.History `json:"history" mapstructure:"history" validate:"required,min=1,dive"`
	Keywords     []string          `json:"keywords,omitempty" mapstructure:"keywords"`
	Category     string            `json:"category,omitempty" mapstructure:"category"`
	QuestionType string            `json:"question_type,omitempty" mapstructure:"question_type"`
}

// Validate combines the struct tags with the ordering invariant the
// tags cannot express.
func (r *EvaluationRequest) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid evaluation request: %w", err)
	}

	if err := r.History.Validate(); err != nil {
		return fmt.Errorf("invalid evaluation request: %w", err)
	}

	return nil
}
