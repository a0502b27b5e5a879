package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/mindcarelabs/mindcare/internal/domain"
	"github.com/mindcarelabs/mindcare/internal/identity"
)

type fakeRepo struct {
	mu      sync.Mutex
	users   map[string]*domain.User
	history []domain.AssessmentSummary
	pingErr error
	listErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: make(map[string]*domain.User)}
}

func (f *fakeRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user := f.users[userID]
	if user == nil {
		return nil, nil
	}
	copy := *user
	return &copy, nil
}

func (f *fakeRepo) UpsertUser(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	copy := *user
	f.users[user.UserID] = &copy
	return nil
}

func (f *fakeRepo) UpdateLastSeen(_ context.Context, _ string, _ time.Time) error { return nil }

func (f *fakeRepo) RecordAssessment(_ context.Context, _ *domain.AssessmentRecord) error {
	return nil
}

func (f *fakeRepo) ListAssessments(_ context.Context, _ string, limit int) ([]domain.AssessmentSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	items := f.history
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (f *fakeRepo) RecordConversation(_ context.Context, _ *domain.ConversationTurn) error {
	return nil
}

func (f *fakeRepo) PurgeConversations(_ context.Context, _ time.Duration) (int64, error) {
	return 0, nil
}

func (f *fakeRepo) Ping(_ context.Context) error { return f.pingErr }
func (f *fakeRepo) Close() error                 { return nil }

// serve runs a request through the identity middleware into the handler,
// the same way the router wires it in production.
func serve(repo *fakeRepo, handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mw := identity.Middleware(repo, true)
	mw(handler).ServeHTTP(rr, req)
	return rr
}

func TestGetQuestions(t *testing.T) {
	repo := newFakeRepo()
	handler := NewAssessmentHandler(NewHandler(repo, ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/questions", nil)
	rr := httptest.NewRecorder()
	handler.GetQuestions(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var got struct {
		Questions []struct {
			Index int    `json:"index"`
			Text  string `json:"text"`
		} `json:"questions"`
		Options []struct {
			Label string `json:"label"`
			Value int    `json:"value"`
		} `json:"options"`
		MaxScore int `json:"max_score"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Questions) != 9 {
		t.Errorf("expected 9 questions, got %d", len(got.Questions))
	}
	if len(got.Options) != 4 {
		t.Errorf("expected 4 options, got %d", len(got.Options))
	}
	if got.MaxScore != 27 {
		t.Errorf("expected max score 27, got %d", got.MaxScore)
	}
}

func TestGetMe(t *testing.T) {
	repo := newFakeRepo()
	handler := NewAssessmentHandler(NewHandler(repo, ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	rr := serve(repo, handler.GetMe, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["user_id"] == "" {
		t.Error("expected a user_id")
	}
	if got["display_name"] == "" {
		t.Error("expected a display_name")
	}
}

func TestListAssessments(t *testing.T) {
	repo := newFakeRepo()
	repo.history = []domain.AssessmentSummary{
		{Score: 18, Severity: "Moderately Severe", TakenAt: time.Now()},
		{Score: 8, Severity: "Mild", TakenAt: time.Now().Add(-24 * time.Hour)},
	}
	handler := NewAssessmentHandler(NewHandler(repo, ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assessments", nil)
	rr := serve(repo, handler.ListAssessments, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	var got struct {
		Assessments []struct {
			Score    int    `json:"score"`
			Severity string `json:"severity"`
			TakenAt  string `json:"taken_at"`
		} `json:"assessments"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(got.Assessments) != 2 {
		t.Fatalf("expected 2 assessments, got %d", len(got.Assessments))
	}
	if got.Assessments[0].Score != 18 {
		t.Errorf("expected first score 18, got %d", got.Assessments[0].Score)
	}
}

func TestListAssessmentsInvalidLimit(t *testing.T) {
	repo := newFakeRepo()
	handler := NewAssessmentHandler(NewHandler(repo, ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assessments?limit=bogus", nil)
	rr := serve(repo, handler.ListAssessments, req)

	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestListAssessmentsRepoFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.listErr = errors.New("db offline")
	handler := NewAssessmentHandler(NewHandler(repo, ""), nil)

	req := httptest.NewRequest(http.MethodGet, "/api/assessments", nil)
	rr := serve(repo, handler.ListAssessments, req)

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestHealthDegradedWhenDatabaseDown(t *testing.T) {
	repo := newFakeRepo()
	repo.pingErr = errors.New("no such file")
	handler := NewHealthHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.Health(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}

	var got map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if got["status"] != "degraded" {
		t.Errorf("expected degraded status, got %v", got["status"])
	}
}

func TestHealthOK(t *testing.T) {
	repo := newFakeRepo()
	handler := NewHealthHandler(repo, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.Health(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}
