package flow

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mindcarelabs/mindcare/internal/domain"
	"github.com/mindcarelabs/mindcare/internal/identity"
	"github.com/mindcarelabs/mindcare/internal/phq9"
	"github.com/mindcarelabs/mindcare/internal/session"
	"github.com/mindcarelabs/mindcare/internal/store"
)

// historyLimit caps how many past results the history page shows.
const historyLimit = 5

// Machine advances per-user conversational state in response to inbound
// events. Each event for a user is handled atomically through the session
// store, so concurrent events for the same user are serialized while
// different users proceed in parallel.
type Machine struct {
	sessions *session.Store
	repo     store.Repository
}

// NewMachine creates a state machine over the given session store and
// persistence repository.
func NewMachine(sessions *session.Store, repo store.Repository) *Machine {
	return &Machine{sessions: sessions, repo: repo}
}

// Handle processes one inbound event for a user and returns the reply to
// render. It never returns an error: every failure mode maps to a
// user-facing action (re-prompt, reset notice, or generic apology).
func (m *Machine) Handle(ctx context.Context, userID string, ev Event) Action {
	_, created := m.sessions.GetOrCreate(userID)
	if created {
		m.registerUser(ctx, userID)
		if isBegin(ev) {
			return Action{Text: welcomeMessage, Options: menuOptions()}
		}
		// The event referenced a session we no longer have (expired or
		// never existed). Reset to the menu rather than failing.
		slog.Info("Event for unknown session, resetting to menu",
			"user_id", userID, "event_kind", ev.Kind, "payload", ev.Payload)
		return Action{Text: resetNotice + "\n\n" + menuMessage, Options: menuOptions()}
	}

	var act Action
	_, err := m.sessions.Update(userID, func(s *domain.Session) error {
		s.Touch(time.Now())
		act = m.transition(ctx, s, ev)
		if act.EndSession {
			// Remove under the same critical section so no concurrent
			// event for this user can observe the terminated session.
			return session.ErrRemoveSession
		}
		return nil
	})
	if errors.Is(err, session.ErrSessionExpired) {
		// Lost a race with the sweeper between lookup and update.
		m.sessions.GetOrCreate(userID)
		return Action{Text: resetNotice + "\n\n" + menuMessage, Options: menuOptions()}
	}

	if act.EndSession {
		slog.Info("Session terminated", "user_id", userID)
	}
	return act
}

func isBegin(ev Event) bool {
	return ev.Kind == EventCommand && ev.Payload == CommandStart
}

// registerUser upserts the user record on first contact. Best-effort: a
// persistence failure must not block the conversation.
func (m *Machine) registerUser(ctx context.Context, userID string) {
	now := time.Now()
	err := m.repo.UpsertUser(ctx, &domain.User{
		UserID:      userID,
		DisplayName: identity.DeriveDisplayName(userID),
		LastSeenAt:  now,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		slog.Warn("Failed to register user", "user_id", userID, "error", err)
	}
}

// transition is the single (state, event) -> (state, action) function.
// It runs under the session's per-user lock.
func (m *Machine) transition(ctx context.Context, s *domain.Session, ev Event) Action {
	switch s.State {
	case domain.StateMenu:
		return m.handleMenu(ctx, s, ev)
	case domain.StateAsking:
		return m.handleAsking(ctx, s, ev)
	case domain.StateResult:
		return m.handleResult(s, ev)
	case domain.StateResources, domain.StateSelfCare, domain.StateHistory:
		return m.handleInfoPage(ctx, s, ev)
	default:
		slog.Error("Session in unknown state, resetting", "user_id", s.UserID, "state", int(s.State))
		s.State = domain.StateMenu
		return Action{Text: menuMessage, Options: menuOptions()}
	}
}

func (m *Machine) handleMenu(ctx context.Context, s *domain.Session, ev Event) Action {
	if ev.Kind == EventChoice {
		switch ev.Payload {
		case ChoiceStartAssessment:
			s.ResetAssessment()
			slog.Info("Assessment started", "user_id", s.UserID)
			return Action{
				Text:    introMessage + "\n\n" + questionText(0, ""),
				Options: answerOptions(),
			}
		case ChoiceViewResults:
			s.State = domain.StateHistory
			return m.historyAction(ctx, s.UserID)
		case ChoiceResources:
			s.State = domain.StateResources
			return Action{Text: resourcesMessage, Options: navOptions()}
		case ChoiceExit:
			return Action{Text: farewellMessage, EndSession: true}
		}
	}
	// Unrecognized input while at the menu: re-render the menu.
	return Action{Text: menuMessage, Options: menuOptions()}
}

// parseAnswer extracts an answer value from an event. ok is true when the
// event is shaped like an answer at all; range validation is separate.
func parseAnswer(ev Event) (int, bool) {
	if ev.Kind != EventChoice || !strings.HasPrefix(ev.Payload, answerPrefix) {
		return 0, false
	}
	v, err := strconv.Atoi(strings.TrimPrefix(ev.Payload, answerPrefix))
	if err != nil {
		return 0, false
	}
	return v, true
}

func (m *Machine) handleAsking(ctx context.Context, s *domain.Session, ev Event) Action {
	v, ok := parseAnswer(ev)
	if !ok {
		// Not an answer and not a recognized navigation command: invalid
		// transition, re-render the pending question without advancing.
		slog.Debug("Non-answer event during questionnaire",
			"user_id", s.UserID, "question", s.QuestionIndex, "payload", ev.Payload)
		return Action{Text: questionText(s.QuestionIndex, invalidAnswerNotice), Options: answerOptions()}
	}
	if !phq9.ValidAnswer(v) {
		slog.Debug("Out-of-range answer value",
			"user_id", s.UserID, "question", s.QuestionIndex, "value", v)
		return Action{Text: questionText(s.QuestionIndex, invalidAnswerNotice), Options: answerOptions()}
	}

	s.AddAnswer(v)
	if !s.AnswersComplete() {
		return Action{Text: questionText(s.QuestionIndex, ""), Options: answerOptions()}
	}
	return m.enterResult(ctx, s)
}

// enterResult runs exactly once per completed questionnaire: it scores the
// answers, classifies them, persists the record best-effort, and caches the
// result on the session for idempotent re-rendering.
func (m *Machine) enterResult(ctx context.Context, s *domain.Session) Action {
	score, err := phq9.CalculateScore(s.Answers)
	if err != nil {
		// The questionnaire flow validated every answer, so this is an
		// internal consistency fault, not a user error.
		return m.internalFault(s, err)
	}
	c, err := phq9.Classify(score)
	if err != nil {
		return m.internalFault(s, err)
	}

	s.Result = &domain.AssessmentResult{
		Score:          score,
		Severity:       c.Severity.String(),
		Recommendation: c.Recommendation,
		Response:       c.Response(),
	}
	s.State = domain.StateResult

	rec := &domain.AssessmentRecord{
		ID:        uuid.NewString(),
		UserID:    s.UserID,
		Score:     score,
		Severity:  c.Severity.String(),
		Answers:   append([]int(nil), s.Answers...),
		CreatedAt: time.Now(),
	}

	notice := ""
	if err := m.repo.RecordAssessment(ctx, rec); err != nil {
		slog.Error("Failed to persist assessment",
			"user_id", s.UserID, "score", score, "error", err)
		notice = persistFailureNotice
	} else {
		slog.Info("Assessment recorded",
			"user_id", s.UserID, "assessment_id", rec.ID,
			"score", score, "severity", c.Severity.String())
	}

	return Action{Text: resultText(s.Result, c.Marker, notice), Options: resultOptions()}
}

func (m *Machine) internalFault(s *domain.Session, err error) Action {
	slog.Error("Scoring engine rejected validated answers",
		"user_id", s.UserID, "answers", len(s.Answers), "error", err)
	s.State = domain.StateMenu
	s.Answers = s.Answers[:0]
	s.QuestionIndex = 0
	return Action{Text: internalFaultMessage, Options: menuOptions()}
}

func (m *Machine) handleResult(s *domain.Session, ev Event) Action {
	if ev.Kind == EventChoice {
		switch ev.Payload {
		case ChoiceSelfCare:
			s.State = domain.StateSelfCare
			return Action{Text: selfCareMessage, Options: navOptions()}
		case ChoiceResources:
			s.State = domain.StateResources
			return Action{Text: resourcesMessage, Options: navOptions()}
		case ChoiceMenu:
			s.State = domain.StateMenu
			return Action{Text: menuMessage, Options: menuOptions()}
		case ChoiceExit:
			return Action{Text: farewellMessage, EndSession: true}
		}
	}
	// Re-render the cached result; never recompute or re-persist.
	return Action{Text: resultText(s.Result, markerForScore(s.Result.Score), ""), Options: resultOptions()}
}

func (m *Machine) handleInfoPage(ctx context.Context, s *domain.Session, ev Event) Action {
	if ev.Kind == EventChoice {
		switch ev.Payload {
		case ChoiceMenu:
			s.State = domain.StateMenu
			return Action{Text: menuMessage, Options: menuOptions()}
		case ChoiceExit:
			return Action{Text: farewellMessage, EndSession: true}
		}
	}

	switch s.State {
	case domain.StateSelfCare:
		return Action{Text: selfCareMessage, Options: navOptions()}
	case domain.StateHistory:
		return m.historyAction(ctx, s.UserID)
	default:
		return Action{Text: resourcesMessage, Options: navOptions()}
	}
}

func (m *Machine) historyAction(ctx context.Context, userID string) Action {
	items, err := m.repo.ListAssessments(ctx, userID, historyLimit)
	if err != nil {
		slog.Error("Failed to load assessment history", "user_id", userID, "error", err)
		return Action{
			Text:    "⚠️ We couldn't load your history right now. Please try again later.",
			Options: navOptions(),
		}
	}
	return Action{Text: historyText(items), Options: navOptions()}
}

// markerForScore re-derives the severity marker glyph for re-rendering a
// cached result. Classification is pure, so this never re-persists.
func markerForScore(score int) string {
	c, err := phq9.Classify(score)
	if err != nil {
		return "📊"
	}
	return c.Marker
}
