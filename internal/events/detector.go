package events

import (
	"context"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Detector classifies persisted writes into discrete events. The write
// path calls it post-commit with an explicit before/after diff (the
// previous status captured before persisting), so recipients queried by
// the sink observe the final committed state. Each write produces at
// most one event.
type Detector struct {
	sink EventSink
}

// NewDetector builds a detector dispatching into the given sink.
func NewDetector(sink EventSink) *Detector {
	return &Detector{sink: sink}
}

// OnTicketWrite classifies a committed ticket write. A new row emits
// ticket-created; an update emits status-changed only when the status
// actually differs from the captured previous value.
func (d *Detector) OnTicketWrite(ctx context.Context, ticket *domain.Ticket, isNew bool, previousStatus domain.TicketStatus) {
	if isNew {
		d.sink.TicketCreated(ctx, ticket)
		return
	}
	if ticket.Status != previousStatus {
		d.sink.StatusChanged(ctx, ticket, previousStatus)
	}
}

// OnCommentWrite classifies a committed comment write. Comments are
// immutable, so creation is the only observable transition.
func (d *Detector) OnCommentWrite(ctx context.Context, ticket *domain.Ticket, comment *domain.Comment, isNew bool) {
	if !isNew {
		return
	}
	d.sink.CommentCreated(ctx, ticket, comment)
}
