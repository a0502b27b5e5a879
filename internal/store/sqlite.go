package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/mindcarelabs/mindcare/internal/domain"
	"github.com/mindcarelabs/mindcare/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed repository.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS users (
		user_id TEXT PRIMARY KEY,
		display_name TEXT NOT NULL,
		last_seen_at INTEGER NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS assessments (
		assessment_id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		score INTEGER NOT NULL,
		severity TEXT NOT NULL,
		answers_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_assessments_user ON assessments(user_id, created_at DESC);

	CREATE TABLE IF NOT EXISTS conversations (
		conversation_id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id TEXT NOT NULL,
		user_message TEXT NOT NULL,
		bot_response TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		FOREIGN KEY (user_id) REFERENCES users(user_id)
	);
	CREATE INDEX IF NOT EXISTS idx_conversations_created ON conversations(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetUser retrieves a user by their user ID.
func (s *SQLiteStore) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	query := `
		SELECT user_id, display_name, last_seen_at, created_at, updated_at
		FROM users WHERE user_id = ?`

	row := s.db.QueryRowContext(ctx, query, userID)

	var user domain.User
	var lastSeen, createdAt, updatedAt int64

	err := row.Scan(&user.UserID, &user.DisplayName, &lastSeen, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user row: %w", err)
	}

	user.LastSeenAt = time.Unix(lastSeen, 0)
	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)

	return &user, nil
}

// UpsertUser creates or updates a user record.
func (s *SQLiteStore) UpsertUser(ctx context.Context, user *domain.User) error {
	query := `
	INSERT INTO users (user_id, display_name, last_seen_at, created_at, updated_at)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(user_id) DO UPDATE SET
		display_name = excluded.display_name,
		last_seen_at = excluded.last_seen_at,
		updated_at = excluded.updated_at`

	_, err := s.db.ExecContext(ctx, query,
		user.UserID, user.DisplayName,
		user.LastSeenAt.Unix(), user.CreatedAt.Unix(), user.UpdatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpdateLastSeen updates the last_seen_at timestamp for a user.
func (s *SQLiteStore) UpdateLastSeen(ctx context.Context, userID string, lastSeen time.Time) error {
	query := `UPDATE users SET last_seen_at = ?, updated_at = ? WHERE user_id = ?`
	result, err := s.db.ExecContext(ctx, query, lastSeen.Unix(), time.Now().Unix(), userID)
	if err != nil {
		return fmt.Errorf("update last_seen: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}
	if rows == 0 {
		slog.Warn("UpdateLastSeen affected 0 rows", "user_id", userID)
	}

	return nil
}

// RecordAssessment stores one completed assessment. An ID is assigned when
// the record carries none. Retries on SQLITE_BUSY since result persistence
// can race the conversation writer.
func (s *SQLiteStore) RecordAssessment(ctx context.Context, rec *domain.AssessmentRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}

	query := `
	INSERT INTO assessments (assessment_id, user_id, score, severity, answers_json, created_at)
	VALUES (?, ?, ?, ?, ?, ?)`

	err = shared.RetryOnSQLiteConflict(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			rec.ID, rec.UserID, rec.Score, rec.Severity, string(answers), rec.CreatedAt.Unix(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert assessment: %w", err)
	}
	return nil
}

// ListAssessments returns a user's assessment history, most recent first.
func (s *SQLiteStore) ListAssessments(ctx context.Context, userID string, limit int) ([]domain.AssessmentSummary, error) {
	query := `
		SELECT score, severity, created_at
		FROM assessments WHERE user_id = ?
		ORDER BY created_at DESC, assessment_id DESC`
	args := []interface{}{userID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query assessments: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close assessment rows", "error", closeErr)
		}
	}()

	var out []domain.AssessmentSummary
	for rows.Next() {
		var item domain.AssessmentSummary
		var takenAt int64
		if err := rows.Scan(&item.Score, &item.Severity, &takenAt); err != nil {
			return nil, fmt.Errorf("scan assessment row: %w", err)
		}
		item.TakenAt = time.Unix(takenAt, 0)
		out = append(out, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assessments: %w", err)
	}

	return out, nil
}

// RecordConversation stores one inbound/outbound exchange.
func (s *SQLiteStore) RecordConversation(ctx context.Context, turn *domain.ConversationTurn) error {
	createdAt := turn.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	query := `
	INSERT INTO conversations (user_id, user_message, bot_response, created_at)
	VALUES (?, ?, ?, ?)`

	err := shared.RetryOnSQLiteConflict(ctx, func() error {
		_, execErr := s.db.ExecContext(ctx, query,
			turn.UserID, turn.UserMessage, turn.BotResponse, createdAt.Unix(),
		)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	return nil
}

// PurgeConversations deletes conversation rows older than the threshold.
func (s *SQLiteStore) PurgeConversations(ctx context.Context, olderThan time.Duration) (int64, error) {
	threshold := time.Now().Add(-olderThan).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("purge conversations: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
