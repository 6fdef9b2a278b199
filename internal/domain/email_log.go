package domain

import "time"

// EmailStatus tracks the delivery lifecycle of one outbound email.
type EmailStatus string

const (
	EmailStatusPending EmailStatus = "pending"
	EmailStatusSent    EmailStatus = "sent"
	EmailStatusFailed  EmailStatus = "failed"
)

// EmailLog is the durable record of a single outbound email attempt.
// Rows are created in the request path and mutated only by the mail
// dispatcher: pending until the final attempt, then sent or failed.
type EmailLog struct {
	ID           string
	Recipient    string
	Subject      string
	BodyHTML     string
	Status       EmailStatus
	TicketID     *string
	ErrorMessage string
	SentAt       *time.Time
	CreatedAt    time.Time
}
