package notifier

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/hub"
)

const commentExcerptLimit = 100

// Pusher is the live channel fabric as the fan-out service sees it.
type Pusher interface {
	Broadcast(group string, payload any)
}

// TicketInfo is the ticket summary embedded in push payloads.
type TicketInfo struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Priority  string `json:"priority,omitempty"`
	Status    string `json:"status,omitempty"`
	OldStatus string `json:"old_status,omitempty"`
	NewStatus string `json:"new_status,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// CommentInfo is the comment excerpt embedded in push payloads.
type CommentInfo struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Content string `json:"content"`
}

// PushMessage is the wire format relayed verbatim to group members.
type PushMessage struct {
	Type    string       `json:"type"`
	Ticket  TicketInfo   `json:"ticket"`
	Comment *CommentInfo `json:"comment,omitempty"`
	Message string       `json:"message"`
}

// Notifier computes recipient channels per event and pushes structured
// messages into the hub. Delivery is fire-and-forget: nothing is
// persisted and a disconnected recipient simply misses the push.
type Notifier struct {
	pusher Pusher
	logger *zap.Logger
}

// NewNotifier builds the fan-out service.
func NewNotifier(pusher Pusher, logger *zap.Logger) *Notifier {
	return &Notifier{pusher: pusher, logger: logger}
}

// TicketCreated broadcasts the new ticket to every connected agent.
func (n *Notifier) TicketCreated(ticket *domain.Ticket, creator *domain.User) {
	n.pusher.Broadcast(hub.AgentsGroup, PushMessage{
		Type: "ticket_created",
		Ticket: TicketInfo{
			ID:        ticket.ID,
			Title:     ticket.Title,
			Priority:  string(ticket.Priority),
			Status:    string(ticket.Status),
			CreatedBy: creator.Name,
		},
		Message: fmt.Sprintf("New ticket %s: %s", ticket.ExternalKey, ticket.Title),
	})
}

// StatusChanged notifies the ticket's creator on their personal channel.
func (n *Notifier) StatusChanged(ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	n.pusher.Broadcast(hub.UserGroup(ticket.CreatedBy), PushMessage{
		Type: "status_changed",
		Ticket: TicketInfo{
			ID:        ticket.ID,
			Title:     ticket.Title,
			OldStatus: string(oldStatus),
			NewStatus: string(ticket.Status),
		},
		Message: fmt.Sprintf("Ticket %s status changed to %s", ticket.ExternalKey, ticket.Status),
	})
}

// CommentAdded notifies the creator (when someone else commented) and
// the assignee (when set and not the author). Zero, one or two pushes
// can result from a single comment.
func (n *Notifier) CommentAdded(ticket *domain.Ticket, comment *domain.Comment, author *domain.User) {
	msg := PushMessage{
		Type: "comment_added",
		Ticket: TicketInfo{
			ID:    ticket.ID,
			Title: ticket.Title,
		},
		Comment: &CommentInfo{
			ID:      comment.ID,
			Author:  author.Name,
			Content: excerpt(comment.Content),
		},
		Message: fmt.Sprintf("New comment on ticket %s by %s", ticket.ExternalKey, author.Name),
	}

	if comment.AuthorID != ticket.CreatedBy {
		n.pusher.Broadcast(hub.UserGroup(ticket.CreatedBy), msg)
	}
	if ticket.AssignedTo != nil && *ticket.AssignedTo != comment.AuthorID {
		n.pusher.Broadcast(hub.UserGroup(*ticket.AssignedTo), msg)
	}
}

func excerpt(content string) string {
	runes := []rune(content)
	if len(runes) <= commentExcerptLimit {
		return content
	}
	return string(runes[:commentExcerptLimit])
}
