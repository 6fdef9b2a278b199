package events

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventSink receives the semantic events the change detector extracts
// from entity writes. Implementations are invoked synchronously in the
// request path, after the triggering write has committed, and must not
// surface errors back to it.
type EventSink interface {
	TicketCreated(ctx context.Context, ticket *domain.Ticket)
	StatusChanged(ctx context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus)
	CommentCreated(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment)
}
