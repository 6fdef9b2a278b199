package events

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/mailer"
	"github.com/spec-kit/helpdesk-service/internal/notifier"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

// FanoutSink is the production EventSink: per event it invalidates the
// read cache, creates delivery-ledger rows (queuing their sends for the
// async dispatcher), and pushes live notifications. All of it runs in
// the request path; failures are logged, never surfaced, so a broken
// notification chain cannot fail the write that triggered it.
type FanoutSink struct {
	users    repository.UserRepository
	cache    *cache.TicketCache
	ledger   *mailer.Ledger
	notifier *notifier.Notifier
	logger   *zap.Logger
}

// NewFanoutSink wires the sink.
func NewFanoutSink(users repository.UserRepository, tc *cache.TicketCache, ledger *mailer.Ledger, n *notifier.Notifier, logger *zap.Logger) *FanoutSink {
	return &FanoutSink{
		users:    users,
		cache:    tc,
		ledger:   ledger,
		notifier: n,
		logger:   logger,
	}
}

// TicketCreated emails every agent and broadcasts to the agents group.
func (s *FanoutSink) TicketCreated(ctx context.Context, ticket *domain.Ticket) {
	s.cache.Invalidate(ctx, ticket)

	creator, ok := s.lookupUser(ctx, ticket.CreatedBy, "ticket creator")
	if !ok {
		return
	}

	agents, err := s.users.ListByRole(ctx, domain.RoleAgent)
	if err != nil {
		s.logger.Error("listing agents for ticket-created fan-out failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	} else if err := s.ledger.RecordTicketCreated(ctx, ticket, agents); err != nil {
		s.logger.Error("recording ticket-created emails failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.notifier.TicketCreated(ticket, creator)
}

// StatusChanged emails the creator and pushes to their personal channel.
func (s *FanoutSink) StatusChanged(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.cache.Invalidate(ctx, ticket)

	creator, ok := s.lookupUser(ctx, ticket.CreatedBy, "ticket creator")
	if !ok {
		return
	}

	if err := s.ledger.RecordStatusChanged(ctx, ticket, oldStatus, creator); err != nil {
		s.logger.Error("recording status-changed email failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.notifier.StatusChanged(ticket, oldStatus)
}

// CommentCreated emails the creator (unless self-commenting) and pushes
// to the creator's and assignee's personal channels as applicable.
func (s *FanoutSink) CommentCreated(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment) {
	s.cache.Invalidate(ctx, ticket)

	creator, ok := s.lookupUser(ctx, ticket.CreatedBy, "ticket creator")
	if !ok {
		return
	}
	author, ok := s.lookupUser(ctx, comment.AuthorID, "comment author")
	if !ok {
		return
	}

	if err := s.ledger.RecordCommentAdded(ctx, ticket, comment, author, creator); err != nil {
		s.logger.Error("recording comment-added email failed",
			zap.String("ticket_id", ticket.ID), zap.Error(err))
	}

	s.notifier.CommentAdded(ticket, comment, author)
}

// lookupUser resolves a user id. A missing row is a benign race with a
// concurrent delete and quietly ends the fan-out.
func (s *FanoutSink) lookupUser(ctx context.Context, id, role string) (*domain.User, bool) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			s.logger.Error("resolving "+role+" failed", zap.String("user_id", id), zap.Error(err))
		}
		return nil, false
	}
	return user, true
}
