package domain

import (
	"time"
)

// AssessmentResult is the outcome of one completed questionnaire. It is
// computed once when the session enters the result state and never
// recomputed afterwards.
type AssessmentResult struct {
	Score          int    `json:"score"`
	Severity       string `json:"severity"`
	Recommendation string `json:"recommendation"`
	Response       string `json:"response"`
}

// AssessmentRecord is the durable form of a completed assessment handed to
// the persistence layer.
type AssessmentRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Score     int       `json:"score"`
	Severity  string    `json:"severity"`
	Answers   []int     `json:"answers"`
	CreatedAt time.Time `json:"created_at"`
}

// AssessmentSummary is a single row of a user's assessment history.
type AssessmentSummary struct {
	Score    int       `json:"score"`
	Severity string    `json:"severity"`
	TakenAt  time.Time `json:"taken_at"`
}

// ConversationTurn is one inbound/outbound exchange recorded for audit.
type ConversationTurn struct {
	UserID      string    `json:"user_id"`
	UserMessage string    `json:"user_message"`
	BotResponse string    `json:"bot_response"`
	CreatedAt   time.Time `json:"created_at"`
}
