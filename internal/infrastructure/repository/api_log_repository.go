package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"xnema-web/internal/domain/entity"
	"xnema-web/internal/domain/repository"
	"xnema-web/internal/infrastructure/database"
)

const maxLogRows = 200

type apiLogRepository struct {
	db     *database.Database
	logger *zap.Logger
}

// NewAPILogRepository creates a new API log repository
func NewAPILogRepository(db *database.Database, logger *zap.Logger) repository.APILogRepository {
	return &apiLogRepository{
		db:     db,
		logger: logger,
	}
}

// Save saves an API log entry; it is a no-op when the database is disabled
func (r *apiLogRepository) Save(ctx context.Context, log *entity.APILog) error {
	if !r.db.Enabled() {
		return nil
	}

	query := `
		INSERT INTO api_logs (endpoint, method, request_body, response_body, status_code, duration_ms, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.DB.ExecContext(ctx, query,
		log.Endpoint,
		log.Method,
		log.RequestBody,
		log.ResponseBody,
		log.StatusCode,
		log.Duration,
		log.Email,
		log.CreatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to save API log",
			zap.String("endpoint", log.Endpoint),
			zap.Error(err),
		)
		return fmt.Errorf("failed to save API log: %w", err)
	}

	return nil
}

func (r *apiLogRepository) FindAll(ctx context.Context, limit int) ([]entity.APILog, error) {
	query := `
		SELECT id, endpoint, method, request_body, response_body, status_code, duration_ms, email, created_at
		FROM api_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	return r.query(ctx, query, clampLimit(limit))
}

func (r *apiLogRepository) FindByEmail(ctx context.Context, email string, limit int) ([]entity.APILog, error) {
	query := `
		SELECT id, endpoint, method, request_body, response_body, status_code, duration_ms, email, created_at
		FROM api_logs
		WHERE email = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	return r.query(ctx, query, email, clampLimit(limit))
}

func (r *apiLogRepository) query(ctx context.Context, query string, args ...interface{}) ([]entity.APILog, error) {
	if !r.db.Enabled() {
		return []entity.APILog{}, nil
	}

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query API logs: %w", err)
	}
	defer rows.Close()

	logs := []entity.APILog{}
	for rows.Next() {
		var l entity.APILog
		if err := rows.Scan(
			&l.ID,
			&l.Endpoint,
			&l.Method,
			&l.RequestBody,
			&l.ResponseBody,
			&l.StatusCode,
			&l.Duration,
			&l.Email,
			&l.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan API log: %w", err)
		}
		logs = append(logs, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read API logs: %w", err)
	}

	return logs, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return 50
	}
	if limit > maxLogRows {
		return maxLogRows
	}
	return limit
}
