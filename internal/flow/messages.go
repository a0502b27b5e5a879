package flow

import (
	"fmt"
	"strings"

	"github.com/mindcarelabs/mindcare/internal/domain"
	"github.com/mindcarelabs/mindcare/internal/phq9"
)

const welcomeMessage = `👋 Welcome to MindCare!

I'm here to help you understand your mental health through a scientifically-backed assessment.

This service can:
✅ Conduct a depression screening (PHQ-9)
✅ Provide personalized insights
✅ Suggest helpful resources
✅ Maintain confidential records

⚠️ Important: this is NOT a substitute for professional medical advice.
Always consult a mental health professional for diagnosis and treatment.

What would you like to do?`

const menuMessage = `📋 MindCare Main Menu

What would you like to do today?`

const introMessage = `🧠 Depression Screening Assessment (PHQ-9)

You'll answer 9 questions about how you've been feeling over the past 2 weeks.

For each question, choose:
• 😊 Not at all (0)
• 😔 Several days (1)
• 😞 More than half the days (2)
• 😢 Nearly every day (3)

Your responses are confidential and saved securely.

Let's begin! 👇`

const resourcesMessage = `📚 Mental Health Resources

🌍 Global Resources:
• SAMHSA National Helpline: 1-800-662-4357
• International Association for Suicide Prevention: https://www.iasp.info/resources/Crisis_Centres/

🇺🇸 US-Specific:
• 988 Suicide & Crisis Lifeline: Call or text 988
• Crisis Text Line: Text HOME to 741741
• NAMI Helpline: 1-800-950-6264

💻 Online Resources:
• Mind.org.uk - Mental health information
• ADAA.org - Anxiety & Depression Association
• Headspace - Meditation app

⚠️ Emergency: If in immediate danger, call 911 or go to the nearest ER

Remember: Seeking help is a sign of strength, not weakness. 💪`

const selfCareMessage = `💪 Self-Care Tips for Mental Health

🛏️ Sleep:
• Maintain a regular sleep schedule (7-9 hours)
• Avoid screens 1 hour before bed

🏃 Exercise:
• 30 minutes of daily activity
• Walking, yoga, dancing all help

🍎 Nutrition:
• Eat regular, balanced meals
• Stay hydrated, limit caffeine and alcohol

👥 Social Connection:
• Reach out to friends and family
• Join support groups

🧘 Mindfulness:
• Meditation: 5-10 minutes daily
• Journal thoughts and feelings

Remember: Self-care isn't selfish. You deserve this support! ❤️`

const farewellMessage = `👋 Thank you for using MindCare. Take care of yourself!`

const resetNotice = `Looks like your previous session ended, so we're starting fresh.`

const invalidAnswerNotice = `That answer wasn't recognized. Please pick one of the options below.`

const persistFailureNotice = `⚠️ We couldn't save this result right now, so it is only shown here.`

const internalFaultMessage = `Something went wrong on our side. Let's go back to the main menu.`

func menuOptions() []Option {
	return []Option{
		{Label: "📋 Start Assessment", ChoiceID: ChoiceStartAssessment},
		{Label: "📊 View Previous Results", ChoiceID: ChoiceViewResults},
		{Label: "❓ Help & Resources", ChoiceID: ChoiceResources},
		{Label: "🚪 Exit", ChoiceID: ChoiceExit},
	}
}

func answerOptions() []Option {
	opts := make([]Option, 0, len(phq9.AnswerOptions))
	for _, o := range phq9.AnswerOptions {
		opts = append(opts, Option{
			Label:    o.Label,
			ChoiceID: fmt.Sprintf("%s%d", answerPrefix, o.Value),
		})
	}
	return opts
}

func resultOptions() []Option {
	return []Option{
		{Label: "💪 Self-Care Tips", ChoiceID: ChoiceSelfCare},
		{Label: "📚 Resources", ChoiceID: ChoiceResources},
		{Label: "↩️ Main Menu", ChoiceID: ChoiceMenu},
	}
}

func navOptions() []Option {
	return []Option{
		{Label: "↩️ Main Menu", ChoiceID: ChoiceMenu},
		{Label: "🚪 Exit", ChoiceID: ChoiceExit},
	}
}

func questionText(index int, annotation string) string {
	var b strings.Builder
	if annotation != "" {
		b.WriteString(annotation)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Question %d/%d\n\n%s", index+1, phq9.QuestionCount, phq9.Questions[index])
	return b.String()
}

func resultText(res *domain.AssessmentResult, marker, notice string) string {
	var b strings.Builder
	b.WriteString("📊 Assessment Results\n\n")
	fmt.Fprintf(&b, "%s Depression Severity: %s\n", marker, res.Severity)
	fmt.Fprintf(&b, "📈 PHQ-9 Score: %d/%d\n\n", res.Score, phq9.MaxScore)
	fmt.Fprintf(&b, "💭 Analysis:\n%s\n\n", res.Response)
	b.WriteString("📌 Next Steps:\n")
	b.WriteString("1. Save these results for your records\n")
	b.WriteString("2. If severe, contact a professional immediately\n")
	b.WriteString("3. Practice self-care daily\n")
	b.WriteString("4. Retake the assessment in 2 weeks")
	if notice != "" {
		b.WriteString("\n\n")
		b.WriteString(notice)
	}
	return b.String()
}

func historyText(items []domain.AssessmentSummary) string {
	if len(items) == 0 {
		return "📊 No previous assessments found.\n\nStart your first assessment to get results!"
	}
	var b strings.Builder
	b.WriteString("📊 Your Assessment History:\n\n")
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n   Score: %d/%d - %s\n\n",
			i+1, item.TakenAt.Format("2006-01-02 15:04"), item.Score, phq9.MaxScore, item.Severity)
	}
	return strings.TrimRight(b.String(), "\n")
}
