package domain

import (
	"time"
)

// QuestionCount is the number of questions in the PHQ-9 questionnaire.
const QuestionCount = 9

// State identifies a conversational state in the assessment flow.
type State int

const (
	// StateMenu is the main menu; every session starts here.
	StateMenu State = iota
	// StateAsking means the session is inside the questionnaire;
	// QuestionIndex identifies the pending question.
	StateAsking
	// StateResult is entered exactly once per completed questionnaire.
	StateResult
	// StateResources shows the help and resources page.
	StateResources
	// StateSelfCare shows the self-care tips page.
	StateSelfCare
	// StateHistory shows previous assessment results.
	StateHistory
)

// String returns a human-readable state name for logging.
func (s State) String() string {
	switch s {
	case StateMenu:
		return "menu"
	case StateAsking:
		return "asking"
	case StateResult:
		return "result"
	case StateResources:
		return "resources"
	case StateSelfCare:
		return "self_care"
	case StateHistory:
		return "history"
	default:
		return "unknown"
	}
}

// Session holds the conversational state for one user. Sessions live in
// memory only; they are owned by the session store and must be mutated
// exclusively through it.
type Session struct {
	UserID         string
	State          State
	Answers        []int
	QuestionIndex  int
	Result         *AssessmentResult
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// ResetAssessment clears any in-flight questionnaire progress and positions
// the session at the first question.
func (s *Session) ResetAssessment() {
	s.Answers = s.Answers[:0]
	s.QuestionIndex = 0
	s.Result = nil
	s.State = StateAsking
}

// AddAnswer appends a validated answer and advances the question index.
// Callers must validate the value range first; invariant
// QuestionIndex == len(Answers) holds while in StateAsking.
func (s *Session) AddAnswer(value int) {
	s.Answers = append(s.Answers, value)
	s.QuestionIndex = len(s.Answers)
}

// AnswersComplete reports whether all questions have been answered.
func (s *Session) AnswersComplete() bool {
	return len(s.Answers) >= QuestionCount
}

// Touch records activity, deferring expiry.
func (s *Session) Touch(now time.Time) {
	s.LastActivityAt = now
}
