package mailer

import (
	"fmt"
	"html"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// Composer renders subjects and HTML bodies for the notification
// emails. Bodies are rendered once, at ledger-row creation time, and
// stored on the row; the dispatcher sends them verbatim.
type Composer struct{}

// NewComposer returns a Composer.
func NewComposer() *Composer {
	return &Composer{}
}

// TicketCreated renders the new-ticket notification sent to an agent.
func (c *Composer) TicketCreated(ticket *domain.Ticket, recipient *domain.User) (subject, body string) {
	subject = fmt.Sprintf("[Ticket %s] %s", ticket.ExternalKey, ticket.Title)
	body = fmt.Sprintf(`
		<html>
		<body>
			<h2>New Ticket: %s</h2>
			<p>Hi %s,</p>
			<p>A new ticket has been filed and needs triage.</p>
			<p><strong>Priority:</strong> %s</p>
			<p>%s</p>
		</body>
		</html>
	`, html.EscapeString(ticket.Title),
		html.EscapeString(recipient.Name),
		html.EscapeString(string(ticket.Priority)),
		html.EscapeString(ticket.Description))
	return subject, body
}

// StatusChanged renders the status-update notification sent to the
// ticket's creator.
func (c *Composer) StatusChanged(ticket *domain.Ticket, oldStatus domain.TicketStatus, recipient *domain.User) (subject, body string) {
	subject = fmt.Sprintf("[Ticket %s] Status Updated", ticket.ExternalKey)
	body = fmt.Sprintf(`
		<html>
		<body>
			<h2>Ticket Status Updated</h2>
			<p>Hi %s,</p>
			<p>The status of ticket <strong>%s</strong> changed from %s to %s.</p>
		</body>
		</html>
	`, html.EscapeString(recipient.Name),
		html.EscapeString(ticket.Title),
		html.EscapeString(string(oldStatus)),
		html.EscapeString(string(ticket.Status)))
	return subject, body
}

// CommentAdded renders the new-comment notification sent to the
// ticket's creator.
func (c *Composer) CommentAdded(ticket *domain.Ticket, comment *domain.Comment, author, recipient *domain.User) (subject, body string) {
	subject = fmt.Sprintf("[Ticket %s] New Comment", ticket.ExternalKey)
	body = fmt.Sprintf(`
		<html>
		<body>
			<h2>New Comment on %s</h2>
			<p>Hi %s,</p>
			<p><strong>%s</strong> commented:</p>
			<blockquote>%s</blockquote>
		</body>
		</html>
	`, html.EscapeString(ticket.Title),
		html.EscapeString(recipient.Name),
		html.EscapeString(author.Name),
		html.EscapeString(comment.Content))
	return subject, body
}
