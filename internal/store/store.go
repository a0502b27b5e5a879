// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/mindcarelabs/mindcare/internal/domain"
)

// Repository defines the interface for persisting users, assessment results,
// and conversation turns. All calls made from the conversational flow are
// best-effort: a failure is logged and surfaced to the user only as a
// generic notice, never as a blocking error.
type Repository interface {
	// GetUser retrieves a user by ID. Returns (nil, nil) when absent.
	GetUser(ctx context.Context, userID string) (*domain.User, error)

	// UpsertUser creates or updates a user record.
	UpsertUser(ctx context.Context, user *domain.User) error

	// UpdateLastSeen updates the last_seen_at timestamp for a user.
	UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error

	// RecordAssessment stores one completed assessment.
	RecordAssessment(ctx context.Context, rec *domain.AssessmentRecord) error

	// ListAssessments returns a user's assessment history, most recent
	// first, at most limit rows (no limit when limit <= 0).
	ListAssessments(ctx context.Context, userID string, limit int) ([]domain.AssessmentSummary, error)

	// RecordConversation stores one inbound/outbound exchange.
	RecordConversation(ctx context.Context, turn *domain.ConversationTurn) error

	// PurgeConversations deletes conversation rows older than the
	// threshold and returns how many were removed.
	PurgeConversations(ctx context.Context, olderThan time.Duration) (int64, error)

	// Ping verifies database connectivity.
	Ping(ctx context.Context) error

	// Close closes the database connection.
	Close() error
}
