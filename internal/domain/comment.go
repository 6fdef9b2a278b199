package domain

import "time"

// Comment is an immutable entry in a ticket's conversation thread,
// ordered by creation time within the ticket.
type Comment struct {
	ID        string
	TicketID  string
	AuthorID  string
	Content   string
	CreatedAt time.Time
}
