package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EmailLogRepository is the delivery ledger: one row per outbound email.
// Rows are created in the request path; only the dispatcher mutates them.
type EmailLogRepository interface {
	Create(ctx context.Context, log *domain.EmailLog) error
	GetByID(ctx context.Context, id string) (*domain.EmailLog, error)
	MarkSent(ctx context.Context, id string, at time.Time) error
	MarkFailed(ctx context.Context, id, errorMessage string) error
	RecordError(ctx context.Context, id, errorMessage string) error
	ListRecent(ctx context.Context, limit int) ([]domain.EmailLog, error)
}

type emailLogRepository struct {
	pool *pgxpool.Pool
}

// NewEmailLogRepository instantiates repository.
func NewEmailLogRepository(pool *pgxpool.Pool) EmailLogRepository {
	return &emailLogRepository{pool: pool}
}

func (r *emailLogRepository) Create(ctx context.Context, log *domain.EmailLog) error {
	const query = `
        INSERT INTO email_logs (recipient, subject, body_html, status, ticket_id)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	if log.Status == "" {
		log.Status = domain.EmailStatusPending
	}
	return r.pool.QueryRow(ctx, query,
		log.Recipient,
		log.Subject,
		log.BodyHTML,
		log.Status,
		log.TicketID,
	).Scan(&log.ID, &log.CreatedAt)
}

func (r *emailLogRepository) GetByID(ctx context.Context, id string) (*domain.EmailLog, error) {
	const query = `
        SELECT id, recipient, subject, body_html, status, ticket_id, error_message, sent_at, created_at
        FROM email_logs WHERE id=$1`

	var log domain.EmailLog
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&log.ID,
		&log.Recipient,
		&log.Subject,
		&log.BodyHTML,
		&log.Status,
		&log.TicketID,
		&log.ErrorMessage,
		&log.SentAt,
		&log.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *emailLogRepository) MarkSent(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE email_logs SET status=$1, sent_at=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.EmailStatusSent, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *emailLogRepository) MarkFailed(ctx context.Context, id, errorMessage string) error {
	const query = `UPDATE email_logs SET status=$1, error_message=$2 WHERE id=$3`
	cmd, err := r.pool.Exec(ctx, query, domain.EmailStatusFailed, errorMessage, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// RecordError captures the latest transport error while the row stays
// pending for a further attempt.
func (r *emailLogRepository) RecordError(ctx context.Context, id, errorMessage string) error {
	const query = `UPDATE email_logs SET error_message=$1 WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, errorMessage, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *emailLogRepository) ListRecent(ctx context.Context, limit int) ([]domain.EmailLog, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
        SELECT id, recipient, subject, body_html, status, ticket_id, error_message, sent_at, created_at
        FROM email_logs ORDER BY created_at DESC LIMIT $1`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.EmailLog
	for rows.Next() {
		var log domain.EmailLog
		if err := rows.Scan(
			&log.ID,
			&log.Recipient,
			&log.Subject,
			&log.BodyHTML,
			&log.Status,
			&log.TicketID,
			&log.ErrorMessage,
			&log.SentAt,
			&log.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, log)
	}
	return result, rows.Err()
}
