package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type recordedEvent struct {
	kind      string
	ticketID  string
	oldStatus domain.TicketStatus
	commentID string
}

type recordingSink struct {
	events []recordedEvent
}

func (s *recordingSink) TicketCreated(_ context.Context, ticket *domain.Ticket) {
	s.events = append(s.events, recordedEvent{kind: "ticket_created", ticketID: ticket.ID})
}

func (s *recordingSink) StatusChanged(_ context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.events = append(s.events, recordedEvent{kind: "status_changed", ticketID: ticket.ID, oldStatus: oldStatus})
}

func (s *recordingSink) CommentCreated(_ context.Context, ticket *domain.Ticket, comment *domain.Comment) {
	s.events = append(s.events, recordedEvent{kind: "comment_created", ticketID: ticket.ID, commentID: comment.ID})
}

func TestOnTicketWriteCreation(t *testing.T) {
	sink := &recordingSink{}
	d := NewDetector(sink)

	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen}
	d.OnTicketWrite(context.Background(), ticket, true, "")

	require.Len(t, sink.events, 1)
	assert.Equal(t, "ticket_created", sink.events[0].kind)
	assert.Equal(t, "t-1", sink.events[0].ticketID)
}

func TestOnTicketWriteStatusChange(t *testing.T) {
	sink := &recordingSink{}
	d := NewDetector(sink)

	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusResolved}
	d.OnTicketWrite(context.Background(), ticket, false, domain.TicketStatusOpen)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "status_changed", sink.events[0].kind)
	assert.Equal(t, domain.TicketStatusOpen, sink.events[0].oldStatus)
}

func TestOnTicketWriteUnchangedStatusIsSilent(t *testing.T) {
	sink := &recordingSink{}
	d := NewDetector(sink)

	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen, Title: "renamed"}
	d.OnTicketWrite(context.Background(), ticket, false, domain.TicketStatusOpen)

	assert.Empty(t, sink.events, "an update that keeps the status must not emit")
}

func TestOnTicketWriteCreationWinsOverStatusDiff(t *testing.T) {
	sink := &recordingSink{}
	d := NewDetector(sink)

	// A freshly created ticket always emits exactly one creation event,
	// regardless of what the previous-status argument happens to hold.
	ticket := &domain.Ticket{ID: "t-1", Status: domain.TicketStatusOpen}
	d.OnTicketWrite(context.Background(), ticket, true, domain.TicketStatusClosed)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "ticket_created", sink.events[0].kind)
}

func TestOnCommentWrite(t *testing.T) {
	sink := &recordingSink{}
	d := NewDetector(sink)

	ticket := &domain.Ticket{ID: "t-1"}
	comment := &domain.Comment{ID: "c-1", TicketID: "t-1"}

	d.OnCommentWrite(context.Background(), ticket, comment, true)
	require.Len(t, sink.events, 1)
	assert.Equal(t, "comment_created", sink.events[0].kind)
	assert.Equal(t, "c-1", sink.events[0].commentID)

	d.OnCommentWrite(context.Background(), ticket, comment, false)
	assert.Len(t, sink.events, 1, "non-creation comment writes are silent")
}
