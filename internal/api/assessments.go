package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mindcarelabs/mindcare/internal/config"
	"github.com/mindcarelabs/mindcare/internal/identity"
	"github.com/mindcarelabs/mindcare/internal/phq9"
	"github.com/mindcarelabs/mindcare/internal/store"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// AssessmentHandler handles assessment-related endpoints.
type AssessmentHandler struct {
	*Handler
	cfg *config.Config
}

// NewAssessmentHandler creates a new assessment handler.
func NewAssessmentHandler(base *Handler, cfg *config.Config) *AssessmentHandler {
	return &AssessmentHandler{Handler: base, cfg: cfg}
}

// RegisterRoutes registers assessment routes.
func (h *AssessmentHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/me", h.GetMe)
		r.Get("/questions", h.GetQuestions)
		r.Get("/assessments", h.ListAssessments)
	})
}

// GetMe returns the current user's information.
func (h *AssessmentHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.repo.GetUser(r.Context(), userID)
	if err != nil || user == nil {
		Error(w, http.StatusUnauthorized, "user not found")
		return
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"user_id":      user.UserID,
		"display_name": user.DisplayName,
		"last_seen_at": user.LastSeenAt.UTC().Format(time.RFC3339),
	})
}

// GetQuestions returns the questionnaire content so clients can render it
// without hardcoding the copy.
func (h *AssessmentHandler) GetQuestions(w http.ResponseWriter, r *http.Request) {
	questions := make([]map[string]interface{}, 0, len(phq9.Questions))
	for i, q := range phq9.Questions {
		questions = append(questions, map[string]interface{}{
			"index": i,
			"text":  q,
		})
	}

	options := make([]map[string]interface{}, 0, len(phq9.AnswerOptions))
	for _, o := range phq9.AnswerOptions {
		options = append(options, map[string]interface{}{
			"label": o.Label,
			"value": o.Value,
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"questions": questions,
		"options":   options,
		"max_score": phq9.MaxScore,
	})
}

// ListAssessments returns the user's assessment history, most recent first.
func (h *AssessmentHandler) ListAssessments(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	items, err := h.repo.ListAssessments(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list assessments", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load assessments")
		return
	}

	results := make([]map[string]interface{}, 0, len(items))
	for _, item := range items {
		results = append(results, map[string]interface{}{
			"score":    item.Score,
			"severity": item.Severity,
			"taken_at": item.TakenAt.UTC().Format(time.RFC3339),
		})
	}

	JSON(w, http.StatusOK, map[string]interface{}{
		"assessments": results,
	})
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	repo store.Repository
	cfg  *config.Config
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(repo store.Repository, cfg *config.Config) *HealthHandler {
	return &HealthHandler{repo: repo, cfg: cfg}
}

// Health returns the health status of the API and its dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	healthCheckTimeout := 5 * time.Second
	if h.cfg != nil {
		healthCheckTimeout = h.cfg.Timeout.HealthCheck
	}
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := map[string]interface{}{
		"status": "healthy",
		"checks": map[string]string{"api": "ok"},
	}
	statusCode := http.StatusOK

	if err := h.repo.Ping(ctx); err != nil {
		slog.Error("Health check failed", "error", err)
		status["status"] = "degraded"
		status["checks"].(map[string]string)["database"] = "unreachable"
		statusCode = http.StatusServiceUnavailable
	} else {
		status["checks"].(map[string]string)["database"] = "ok"
	}

	JSON(w, statusCode, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}
