// Package interview holds the request-scoped records an answer
// evaluation works over: turns, histories, rubric scores and feedback.
package interview

import (
	"errors"
	"fmt"
	"strings"
)

// Mode selects how strictly an evaluation treats the answer. Practice
// runs the bad-case pre-filter; real interviews skip it.
type Mode string

const (
	ModePractice Mode = "practice"
	ModeReal     Mode = "real"
)

// TurnKind tells a topic-opening question apart from its follow-ups.
type TurnKind string

const (
	TurnNewTopic TurnKind = "new_topic"
	TurnFollowUp TurnKind = "follow_up"
)

// QATurn is one question/answer exchange. Immutable once received.
type QATurn struct {
	Question string   `json:"question" mapstructure:"question" validate:"required"`
	Answer   string   `json:"answer" mapstructure:"answer" validate:"required"`
	Kind     TurnKind `json:"turn_kind" mapstructure:"turn_kind" validate:"required,oneof=new_topic follow_up"`
	Order    int      `json:"turn_order" mapstructure:"turn_order"`
	TopicID  int      `json:"topic_id" mapstructure:"topic_id"`
}

// History is an ordered sequence of turns. It must be non-empty with
// strictly increasing turn order.
type History []QATurn

// Validate checks the ordering invariants the rest of the pipeline
// relies on.
func (h History) Validate() error {
	if len(h) == 0 {
		return errors.New("interview history is empty")
	}

	for i := 1; i < len(h); i++ {
		if h[i].Order <= h[i-1].Order {
			return fmt.Errorf("turn_order must be strictly increasing: index %d has order %d after %d",
				i, h[i].Order, h[i-1].Order)
		}
	}

	return nil
}

// Transcript renders the history as numbered question/answer blocks for
// prompt building.
func (h History) Transcript() string {
	var b strings.Builder
	for i, turn := range h {
		fmt.Fprintf(&b, "[질문 %d] %s\n[답변 %d] %s\n\n", i+1, turn.Question, i+1, turn.Answer)
	}

	return strings.TrimRight(b.String(), "\n")
}

// TopicGroup is the subset of a history sharing one topic id, kept in
// the original turn order.
type TopicGroup struct {
	TopicID int
	Turns   []QATurn
}

// Representative returns the topic's primary question: the first
// new-topic turn, or the first turn when none is flagged.
func (g TopicGroup) Representative() QATurn {
	for _, turn := range g.Turns {
		if turn.Kind == TurnNewTopic {
			return turn
		}
	}

	return g.Turns[0]
}

// Transcript renders the group's turns the same way History does.
func (g TopicGroup) Transcript() string {
	return History(g.Turns).Transcript()
}

// GroupByTopic splits a history into topic groups. Groups appear in
// order of first appearance; within a group the original turn order is
// preserved.
func GroupByTopic(h History) []TopicGroup {
	var groups []TopicGroup

	index := make(map[int]int, len(h))
	for _, turn := range h {
		i, ok := index[turn.TopicID]
		if !ok {
			i = len(groups)
			index[turn.TopicID] = i
			groups = append(groups, TopicGroup{TopicID: turn.TopicID})
		}
		groups[i].Turns = append(groups[i].Turns, turn)
	}

	return groups
}
