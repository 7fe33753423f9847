package audit

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PgStore writes audit entries to the audit_logs table
type PgStore struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStore creates a new PgStore
func NewPgStore(db *pgxpool.Pool, logger *zap.Logger) *PgStore {
	return &PgStore{
		db:     db,
		logger: logger,
	}
}

func (s *PgStore) Insert(ctx context.Context, entry Entry) error {
	query := `
		INSERT INTO audit_logs (
			user_id, operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.db.Exec(ctx, query,
		entry.UserID,
		entry.OperationType,
		entry.ResourceType,
		entry.ResourceID,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)
	if err != nil {
		return fmt.Errorf("failed to insert audit log: %w", err)
	}
	return nil
}

func (s *PgStore) ListByUser(ctx context.Context, userID string, limit int) ([]Entry, error) {
	query := `
		SELECT user_id, operation_type, resource_type, resource_id,
		       timestamp, ip_address, user_agent, additional_data
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.UserID,
			&e.OperationType,
			&e.ResourceType,
			&e.ResourceID,
			&e.Timestamp,
			&e.IPAddress,
			&e.UserAgent,
			&e.AdditionalData,
		); err != nil {
			s.logger.Error("Failed to scan audit log", zap.Error(err))
			continue
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit logs: %w", err)
	}
	return entries, nil
}
