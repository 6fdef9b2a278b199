package dto

import "time"

// CreateTicketRequest payload for filing a ticket.
type CreateTicketRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Priority    string `json:"priority"`
}

// UpdateTicketRequest payload for partial ticket updates. Absent fields
// are left untouched.
type UpdateTicketRequest struct {
	Title         *string `json:"title"`
	Description   *string `json:"description"`
	Priority      *string `json:"priority"`
	Status        *string `json:"status"`
	AssignedTo    *string `json:"assigned_to"`
	ClearAssignee bool    `json:"clear_assignee"`
}

// TicketSummary is the list-view projection.
type TicketSummary struct {
	ID          string    `json:"id"`
	ExternalKey string    `json:"external_key"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	Priority    string    `json:"priority"`
	CreatedBy   string    `json:"created_by"`
	AssignedTo  *string   `json:"assigned_to,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TicketDetail is the detail-view projection including the thread.
type TicketDetail struct {
	TicketSummary
	Description string            `json:"description"`
	Comments    []CommentResponse `json:"comments"`
}

// TicketListResponse is the cacheable list envelope.
type TicketListResponse struct {
	Data []TicketSummary `json:"data"`
}

// TicketDetailResponse is the cacheable detail envelope.
type TicketDetailResponse struct {
	Data TicketDetail `json:"data"`
}

// CreateCommentRequest payload for adding a comment.
type CreateCommentRequest struct {
	Content string `json:"content"`
}

// CommentResponse is the comment projection.
type CommentResponse struct {
	ID        string    `json:"id"`
	TicketID  string    `json:"ticket_id"`
	AuthorID  string    `json:"author_id"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// EmailLogResponse is the ledger projection for operator visibility.
type EmailLogResponse struct {
	ID           string     `json:"id"`
	Recipient    string     `json:"recipient"`
	Subject      string     `json:"subject"`
	Status       string     `json:"status"`
	TicketID     *string    `json:"ticket_id,omitempty"`
	ErrorMessage string     `json:"error_message,omitempty"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}
