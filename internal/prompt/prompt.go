// Package prompt renders the generation prompts from embedded
// templates. Templates are Korean-first and always end with a
// JSON-only response directive.
package prompt

import (
	"fmt"
	"strings"

	_ "embed"

	"github.com/devprep/feedback-engine/internal/interview"
)

//go:embed system.md
var systemTemplate string

//go:embed rubric.md
var rubricTemplate string

//go:embed feedback_single.md
var feedbackSingleTemplate string

//go:embed feedback_multi.md
var feedbackMultiTemplate string

const defaultTag = "일반"

// Context carries the opaque question tags a caller may attach. Empty
// values render as a generic tag.
type Context struct {
	Category     string
	QuestionType string
}

// System returns the shared interviewer persona.
func System() string {
	return strings.TrimSpace(systemTemplate)
}

// Rubric renders the five-dimension grading prompt over the full
// transcript.
func Rubric(history interview.History, pc Context) string {
	template := rubricTemplate
	if strings.TrimSpace(template) == "" {
		template = "{{CATEGORY}} {{QUESTION_TYPE}}\n{{TRANSCRIPT}}\nJSON:"
	}

	prompt := strings.ReplaceAll(template, "{{TRANSCRIPT}}", history.Transcript())
	return replaceTags(prompt, pc)
}

// FeedbackSingle renders the overall-only feedback prompt.
func FeedbackSingle(history interview.History, pc Context) string {
	template := feedbackSingleTemplate
	if strings.TrimSpace(template) == "" {
		template = "{{CATEGORY}} {{QUESTION_TYPE}}\n{{TRANSCRIPT}}\nJSON:"
	}

	prompt := strings.ReplaceAll(template, "{{TRANSCRIPT}}", history.Transcript())
	return replaceTags(prompt, pc)
}

// FeedbackMulti renders the per-topic feedback prompt. Each group
// becomes a numbered section led by its representative question.
func FeedbackMulti(groups []interview.TopicGroup, pc Context) string {
	template := feedbackMultiTemplate
	if strings.TrimSpace(template) == "" {
		template = "{{TOPIC_COUNT}} {{CATEGORY}} {{QUESTION_TYPE}}\n{{TOPIC_SECTIONS}}\nJSON:"
	}

	var sections strings.Builder
	for i, group := range groups {
		fmt.Fprintf(&sections, "## 주제 %d: %s\n\n%s\n\n", i+1, group.Representative().Question, group.Transcript())
	}

	prompt := strings.ReplaceAll(template, "{{TOPIC_COUNT}}", fmt.Sprintf("%d", len(groups)))
	prompt = strings.ReplaceAll(prompt, "{{TOPIC_SECTIONS}}", strings.TrimRight(sections.String(), "\n"))
	return replaceTags(prompt, pc)
}

func replaceTags(prompt string, pc Context) string {
	prompt = strings.ReplaceAll(prompt, "{{CATEGORY}}", orDefault(pc.Category))
	return strings.ReplaceAll(prompt, "{{QUESTION_TYPE}}", orDefault(pc.QuestionType))
}

func orDefault(tag string) string {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return defaultTag
	}
	return tag
}
