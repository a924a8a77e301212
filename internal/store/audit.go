package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// AuditEntry records a single entity mutation made by a user.
type AuditEntry struct {
	ID         int64     `json:"id"`
	EntityType string    `json:"entityType"`
	EntityID   int64     `json:"entityId"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"createdAt"`
}

const (
	defaultActivityLimit = 20
	maxActivityLimit     = 100
)

// execer is satisfied by both *sql.DB and *sql.Tx so audit rows can join the
// transaction of the mutation they describe.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func recordAudit(ctx context.Context, q execer, userID int64, entityType string, entityID int64, action string) error {
	if _, err := q.ExecContext(ctx, `
		INSERT INTO audit_log (user_id, entity_type, entity_id, action)
		VALUES ($1, $2, $3, $4)
	`, userID, entityType, entityID, action); err != nil {
		return fmt.Errorf("record audit: %w", err)
	}
	return nil
}

// ActivityByToken returns the authenticated user's most recent mutations.
func (s *Store) ActivityByToken(ctx context.Context, token string, limit int) ([]AuditEntry, error) {
	userID, err := s.UserIDByToken(ctx, token)
	if err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, entity_type, entity_id, action, created_at
		FROM audit_log
		WHERE user_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("select activity: %w", err)
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var entry AuditEntry
		if err := rows.Scan(&entry.ID, &entry.EntityType, &entry.EntityID, &entry.Action, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity: %w", err)
	}

	return entries, nil
}
