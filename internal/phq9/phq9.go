// Package phq9 implements scoring for the PHQ-9 depression screening
// questionnaire. Everything here is pure and safe for concurrent use.
package phq9

import (
	"errors"
	"fmt"
)

// QuestionCount is the fixed length of the questionnaire.
const QuestionCount = 9

// MaxScore is the highest reachable total score (9 questions x 3).
const MaxScore = 27

// ErrInvalidInput is returned when an answer sequence is not exactly nine
// values in [0,3], or a score is outside [0,27].
var ErrInvalidInput = errors.New("phq9: invalid input")

// Questions are the nine standard PHQ-9 items, asked about the past two weeks.
var Questions = [QuestionCount]string{
	"Little interest or pleasure in doing things?",
	"Feeling down, depressed, or hopeless?",
	"Trouble falling or staying asleep, or sleeping too much?",
	"Feeling tired or having little energy?",
	"Poor appetite or overeating?",
	"Feeling bad about yourself or that you're a failure?",
	"Trouble concentrating on things?",
	"Moving or speaking so slowly (or so fast) that others noticed?",
	"Thoughts that you'd be better off dead or hurting yourself?",
}

// AnswerOption is one of the four selectable answers for every question.
type AnswerOption struct {
	Label string
	Value int
}

// AnswerOptions are the four frequency levels, in ascending order. The
// option value is both the button payload and the score contribution.
var AnswerOptions = [4]AnswerOption{
	{Label: "Not at all", Value: 0},
	{Label: "Several days", Value: 1},
	{Label: "More than half the days", Value: 2},
	{Label: "Nearly every day", Value: 3},
}

// Severity is the depression severity tier derived from a total score.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityMild
	SeverityModerate
	SeverityModeratelySevere
	SeveritySevere
)

// String returns the tier name used in messages and persisted records.
func (s Severity) String() string {
	switch s {
	case SeverityNone:
		return "None"
	case SeverityMild:
		return "Mild"
	case SeverityModerate:
		return "Moderate"
	case SeverityModeratelySevere:
		return "Moderately Severe"
	case SeveritySevere:
		return "Severe"
	default:
		return "Unknown"
	}
}

// Classification bundles everything derived from a total score: the tier,
// its numeric level, a marker glyph for rendering, a fixed recommendation,
// and the ordered therapeutic response variants.
type Classification struct {
	Severity       Severity
	Level          int
	Marker         string
	Recommendation string
	Responses      []string
}

// Response returns the therapeutic response to render. The selection rule
// is deterministic: always the first variant.
func (c Classification) Response() string {
	return c.Responses[0]
}

var classifications = [5]Classification{
	{
		Severity:       SeverityNone,
		Level:          0,
		Marker:         "✅",
		Recommendation: "No depression detected. Keep maintaining healthy habits.",
		Responses: []string{
			"That's wonderful! It sounds like you're doing well mentally. Keep up these positive habits! 😊",
			"Your responses suggest good mental health. Continue what you're doing!",
		},
	},
	{
		Severity:       SeverityMild,
		Level:          1,
		Marker:         "🟡",
		Recommendation: "Mild depression detected. Consider regular exercise, good sleep, and social connection.",
		Responses: []string{
			"I notice some mild symptoms. Remember, it's normal to feel down sometimes. Here are some tips:\n• Get 7-8 hours of sleep\n• Exercise 30 minutes daily\n• Spend time with loved ones\n• Practice mindfulness",
			"You're experiencing some mild symptoms. These are common, and many people overcome them with self-care.",
		},
	},
	{
		Severity:       SeverityModerate,
		Level:          2,
		Marker:         "🟠",
		Recommendation: "Moderate depression detected. Professional counseling is recommended.",
		Responses: []string{
			"Your responses suggest moderate depression. I strongly encourage you to:\n• Talk to a counselor or therapist\n• Visit your doctor\n• Maintain routine\n• Reach out to friends/family\n\nYou don't have to face this alone.",
			"I'm concerned about what you've shared. Professional support can make a real difference. Would you like resources?",
		},
	},
	{
		Severity:       SeverityModeratelySevere,
		Level:          3,
		Marker:         "🔴",
		Recommendation: "Moderately severe depression detected. Please seek professional help.",
		Responses: []string{
			"Your symptoms seem quite significant. Please reach out to a mental health professional:\n🏥 SAMHSA National Helpline: 1-800-662-4357\n💬 988 Suicide & Crisis Lifeline: call or text 988\nYou deserve professional support.",
			"I care about your wellbeing. Please don't hesitate to contact a professional therapist or counselor.",
		},
	},
	{
		Severity:       SeveritySevere,
		Level:          4,
		Marker:         "🚨",
		Recommendation: "Severe depression detected. Please contact a mental health professional immediately.",
		Responses: []string{
			"⚠️ URGENT: Your responses indicate severe depression. PLEASE reach out immediately:\n🚨 Crisis Line: call 911 or 988 (Suicide & Crisis Lifeline)\n💬 Text HOME to 741741\nYour life has value. Help is available NOW.",
			"Your wellbeing is important. Please contact emergency services or a crisis line immediately.",
		},
	},
}

// CalculateScore sums a complete answer sequence. It fails unless the
// sequence is exactly nine values, each in [0,3].
func CalculateScore(answers []int) (int, error) {
	if len(answers) != QuestionCount {
		return 0, fmt.Errorf("%w: expected %d answers, got %d", ErrInvalidInput, QuestionCount, len(answers))
	}
	total := 0
	for i, a := range answers {
		if a < 0 || a > 3 {
			return 0, fmt.Errorf("%w: answer %d out of range: %d", ErrInvalidInput, i, a)
		}
		total += a
	}
	return total, nil
}

// Classify maps a total score onto its severity tier using the standard
// boundary-inclusive PHQ-9 thresholds:
//
//	0-4 none, 5-9 mild, 10-14 moderate, 15-19 moderately severe, 20-27 severe.
func Classify(score int) (Classification, error) {
	if score < 0 || score > MaxScore {
		return Classification{}, fmt.Errorf("%w: score out of range: %d", ErrInvalidInput, score)
	}
	switch {
	case score <= 4:
		return classifications[0], nil
	case score <= 9:
		return classifications[1], nil
	case score <= 14:
		return classifications[2], nil
	case score <= 19:
		return classifications[3], nil
	default:
		return classifications[4], nil
	}
}

// ValidAnswer reports whether v is one of the four discrete answer levels.
func ValidAnswer(v int) bool {
	return v >= 0 && v <= 3
}
