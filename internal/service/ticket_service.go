package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// TicketService coordinates ticket and comment workflows. Every
// committed write is reported to the change detector, which drives the
// cache invalidation, email ledger and live fan-out.
type TicketService struct {
	tickets  repository.TicketRepository
	comments repository.CommentRepository
	users    repository.UserRepository
	detector *events.Detector
	cache    *cache.TicketCache
}

// TicketDependencies bundles what the ticket service needs.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	CommentRepo repository.CommentRepository
	UserRepo    repository.UserRepository
	Detector    *events.Detector
	Cache       *cache.TicketCache
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Title       string
	Description string
	Priority    domain.TicketPriority
}

// TicketUpdateInput describes a partial ticket update. Nil fields are
// left untouched; ClearAssignee removes the current assignment.
type TicketUpdateInput struct {
	Title         *string
	Description   *string
	Priority      *domain.TicketPriority
	Status        *domain.TicketStatus
	AssignedTo    *string
	ClearAssignee bool
}

// TicketListFilter describes list parameters. IsDefaultView reports
// whether the request carried no filter/search/ordering at all, which
// is the only cacheable shape.
type TicketListFilter struct {
	Statuses   []domain.TicketStatus
	Priorities []domain.TicketPriority
	AssignedTo *string
	SearchTerm *string
	OrderBy    string
	Limit      int
	Offset     int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	return &TicketService{
		tickets:  deps.TicketRepo,
		comments: deps.CommentRepo,
		users:    deps.UserRepo,
		detector: deps.Detector,
		cache:    deps.Cache,
	}
}

// Create files a new ticket for the caller.
func (s *TicketService) Create(ctx context.Context, user *domain.User, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	description := strings.TrimSpace(input.Description)
	if title == "" || description == "" {
		return nil, apperrors.NewValidationError("title and description required", nil)
	}
	priority := input.Priority
	if priority == "" {
		priority = domain.TicketPriorityMedium
	}
	if !domain.ValidPriority(priority) {
		return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": priority})
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		Title:       title,
		Description: description,
		Status:      domain.TicketStatusOpen,
		Priority:    priority,
		CreatedBy:   user.ID,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	s.detector.OnTicketWrite(ctx, ticket, true, "")
	return ticket, nil
}

// List returns tickets visible to the caller. Customers only ever see
// their own tickets regardless of filter.
func (s *TicketService) List(ctx context.Context, user *domain.User, filter TicketListFilter) ([]domain.Ticket, error) {
	repoFilter := repository.TicketFilter{
		AssignedTo: filter.AssignedTo,
		Statuses:   filter.Statuses,
		Priorities: filter.Priorities,
		SearchTerm: filter.SearchTerm,
		OrderBy:    filter.OrderBy,
		Limit:      filter.Limit,
		Offset:     filter.Offset,
	}
	if user.IsCustomer() {
		userID := user.ID
		repoFilter.CreatedBy = &userID
	}
	return s.tickets.ListWithFilter(ctx, repoFilter)
}

// Get fetches a ticket plus its comment thread, enforcing visibility.
func (s *TicketService) Get(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, []domain.Comment, error) {
	ticket, err := s.visibleTicket(ctx, user, ticketID)
	if err != nil {
		return nil, nil, err
	}
	comments, err := s.comments.ListByTicket(ctx, ticket.ID)
	if err != nil {
		return nil, nil, err
	}
	return ticket, comments, nil
}

// Update applies a partial update. Agents may change any field;
// customers may only touch title/description/priority on their own
// tickets, and only before resolution. The pre-write status is captured
// so the detector can observe the transition exactly once.
func (s *TicketService) Update(ctx context.Context, user *domain.User, ticketID string, input TicketUpdateInput) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if user.IsCustomer() {
		if ticket.CreatedBy != user.ID {
			return nil, apperrors.NewForbidden("not your ticket")
		}
		if input.Status != nil || input.AssignedTo != nil || input.ClearAssignee {
			return nil, apperrors.NewForbidden("only agents can change status or assignment")
		}
		if ticket.Status == domain.TicketStatusResolved || ticket.Status == domain.TicketStatusClosed {
			return nil, apperrors.NewForbidden("ticket can no longer be edited")
		}
	}

	previousStatus := ticket.Status

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, apperrors.NewValidationError("title cannot be empty", nil)
		}
		ticket.Title = title
	}
	if input.Description != nil {
		ticket.Description = strings.TrimSpace(*input.Description)
	}
	if input.Priority != nil {
		if !domain.ValidPriority(*input.Priority) {
			return nil, apperrors.NewValidationError("unknown priority", map[string]any{"priority": *input.Priority})
		}
		ticket.Priority = *input.Priority
	}
	if input.Status != nil {
		if !domain.ValidStatus(*input.Status) {
			return nil, apperrors.NewValidationError("unknown status", map[string]any{"status": *input.Status})
		}
		ticket.Status = *input.Status
	}
	if input.ClearAssignee {
		ticket.AssignedTo = nil
	} else if input.AssignedTo != nil {
		assignee, err := s.users.GetByID(ctx, *input.AssignedTo)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("assignee not found", nil)
			}
			return nil, err
		}
		if !assignee.IsAgent() {
			return nil, apperrors.NewValidationError("assignee must be an agent", nil)
		}
		ticket.AssignedTo = &assignee.ID
	}

	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, err
	}

	// Every committed update makes the cached views stale, not just the
	// ones the detector classifies as events.
	s.cache.Invalidate(ctx, ticket)
	s.detector.OnTicketWrite(ctx, ticket, false, previousStatus)
	return ticket, nil
}

// Delete hard-deletes a ticket; comments and email logs cascade away
// with it. Agent only. The cache entries are removed before the row so
// no reader can re-populate them from a stale read of the dying ticket.
func (s *TicketService) Delete(ctx context.Context, user *domain.User, ticketID string) error {
	if !user.IsAgent() {
		return apperrors.NewForbidden("only agents can delete tickets")
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return err
	}
	s.cache.Invalidate(ctx, ticket)
	return s.tickets.Delete(ctx, ticket.ID)
}

// AddComment appends an immutable comment to the ticket's thread.
func (s *TicketService) AddComment(ctx context.Context, user *domain.User, ticketID, content string) (*domain.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.NewValidationError("content required", nil)
	}
	ticket, err := s.visibleTicket(ctx, user, ticketID)
	if err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		TicketID: ticket.ID,
		AuthorID: user.ID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, err
	}

	s.detector.OnCommentWrite(ctx, ticket, comment, true)
	return comment, nil
}

func (s *TicketService) visibleTicket(ctx context.Context, user *domain.User, ticketID string) (*domain.Ticket, error) {
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if user.IsCustomer() && ticket.CreatedBy != user.ID {
		return nil, apperrors.NewForbidden("not your ticket")
	}
	return ticket, nil
}

func generateTicketKey() string {
	return "HD-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
