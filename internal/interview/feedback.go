package interview

// Feedback pairs what went well with what to improve.
type Feedback struct {
	Strengths    string `json:"strengths" mapstructure:"strengths"`
	Improvements string `json:"improvements" mapstructure:"improvements"`
}

// TopicFeedback is the narrative for one topic group of a multi-topic
// interview. Question holds the topic's representative question.
type TopicFeedback struct {
	TopicID      int    `json:"topic_id" mapstructure:"topic_id"`
	Question     string `json:"question" mapstructure:"question"`
	Strengths    string `json:"strengths" mapstructure:"strengths"`
	Improvements string `json:"improvements" mapstructure:"improvements"`
}

// FeedbackText is the narrative produced on the normal path. Topics is
// populated only when the history spans more than one topic.
type FeedbackText struct {
	Overall Feedback        `json:"overall" mapstructure:"overall"`
	Topics  []TopicFeedback `json:"topics,omitempty" mapstructure:"topics"`
}

// KeywordCoverage partitions a required-keyword set by semantic
// presence in the answer. Covered and Missing together are exactly the
// input keywords; Ratio is covered over total, 1.0 for an empty input.
type KeywordCoverage struct {
	Covered []string `json:"covered_keywords"`
	Missing []string `json:"missing_keywords"`
	Ratio   float64  `json:"coverage_ratio"`
}
