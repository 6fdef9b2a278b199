package mailer

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// Ledger creates delivery records and hands them to the work queue.
// Row creation happens synchronously in the request path so a reader
// immediately after the response observes the rows; sending happens in
// the dispatcher workers.
type Ledger struct {
	logs   repository.EmailLogRepository
	queue  Queue
	comp   *Composer
	logger *zap.Logger
}

// NewLedger builds the ledger.
func NewLedger(logs repository.EmailLogRepository, queue Queue, comp *Composer, logger *zap.Logger) *Ledger {
	return &Ledger{logs: logs, queue: queue, comp: comp, logger: logger}
}

// RecordTicketCreated writes one pending row per agent and queues a
// send task for each.
func (l *Ledger) RecordTicketCreated(ctx context.Context, ticket *domain.Ticket, agents []domain.User) error {
	for i := range agents {
		agent := &agents[i]
		subject, body := l.comp.TicketCreated(ticket, agent)
		if err := l.record(ctx, ticket.ID, agent.Email, subject, body); err != nil {
			return err
		}
	}
	return nil
}

// RecordStatusChanged writes one pending row addressed to the creator.
func (l *Ledger) RecordStatusChanged(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus, creator *domain.User) error {
	subject, body := l.comp.StatusChanged(ticket, oldStatus, creator)
	return l.record(ctx, ticket.ID, creator.Email, subject, body)
}

// RecordCommentAdded writes one pending row addressed to the creator,
// unless the creator authored the comment themselves.
func (l *Ledger) RecordCommentAdded(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment, author, creator *domain.User) error {
	if author.ID == creator.ID {
		return nil
	}
	subject, body := l.comp.CommentAdded(ticket, comment, author, creator)
	return l.record(ctx, ticket.ID, creator.Email, subject, body)
}

// Recent exposes the ledger for operator visibility.
func (l *Ledger) Recent(ctx context.Context, limit int) ([]domain.EmailLog, error) {
	return l.logs.ListRecent(ctx, limit)
}

func (l *Ledger) record(ctx context.Context, ticketID, recipient, subject, body string) error {
	log := &domain.EmailLog{
		Recipient: recipient,
		Subject:   subject,
		BodyHTML:  body,
		Status:    domain.EmailStatusPending,
		TicketID:  &ticketID,
	}
	if err := l.logs.Create(ctx, log); err != nil {
		return err
	}
	if err := l.queue.Enqueue(ctx, Task{LogID: log.ID, Attempt: 1}); err != nil {
		// The row stays pending; an operator can requeue it. Losing the
		// task must not fail the triggering write.
		l.logger.Error("enqueue mail task failed", zap.String("email_log_id", log.ID), zap.Error(err))
	}
	return nil
}
