package interview

import (
	"fmt"
	"strings"
)

// RubricItem grades one rubric dimension: an integer score in [1,5] and
// the rationale behind it.
type RubricItem struct {
	Score     int    `json:"score" mapstructure:"score"`
	Rationale string `json:"rationale" mapstructure:"rationale"`
}

// RubricScoreSet is the five-dimension grading of an answer.
type RubricScoreSet struct {
	Accuracy     RubricItem `json:"accuracy" mapstructure:"accuracy"`
	Logic        RubricItem `json:"logic" mapstructure:"logic"`
	Specificity  RubricItem `json:"specificity" mapstructure:"specificity"`
	Completeness RubricItem `json:"completeness" mapstructure:"completeness"`
	Delivery     RubricItem `json:"delivery" mapstructure:"delivery"`
}

// RubricScore is the outward, display-named form of one dimension.
type RubricScore struct {
	Name    string `json:"name"`
	Score   int    `json:"score"`
	Comment string `json:"comment"`
}

// Metrics returns the set as a named list in stable order: accuracy,
// logic, specificity, completeness, delivery.
func (s *RubricScoreSet) Metrics() []RubricScore {
	return []RubricScore{
		{Name: "정확성", Score: s.Accuracy.Score, Comment: s.Accuracy.Rationale},
		{Name: "논리성", Score: s.Logic.Score, Comment: s.Logic.Rationale},
		{Name: "구체성", Score: s.Specificity.Score, Comment: s.Specificity.Rationale},
		{Name: "완성도", Score: s.Completeness.Score, Comment: s.Completeness.Rationale},
		{Name: "전달력", Score: s.Delivery.Score, Comment: s.Delivery.Rationale},
	}
}

// Validate checks that every score is bounded and every rationale is
// present. A set that fails here is not usable as a stage result.
func (s *RubricScoreSet) Validate() error {
	for _, metric := range s.Metrics() {
		if metric.Score < 1 || metric.Score > 5 {
			return fmt.Errorf("rubric score %q out of range: %d", metric.Name, metric.Score)
		}
		if strings.TrimSpace(metric.Comment) == "" {
			return fmt.Errorf("rubric score %q has an empty rationale", metric.Name)
		}
	}

	return nil
}
