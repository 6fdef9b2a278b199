package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-service/internal/cache"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

type fakeTickets struct {
	byID       map[string]*domain.Ticket
	lastFilter repository.TicketFilter
}

func (f *fakeTickets) Create(_ context.Context, ticket *domain.Ticket) error {
	ticket.ID = fmt.Sprintf("t-%d", len(f.byID)+1)
	ticket.CreatedAt = time.Now()
	ticket.UpdatedAt = ticket.CreatedAt
	f.byID[ticket.ID] = ticket
	return nil
}

func (f *fakeTickets) Update(_ context.Context, ticket *domain.Ticket) error {
	if _, ok := f.byID[ticket.ID]; !ok {
		return pgx.ErrNoRows
	}
	ticket.UpdatedAt = time.Now()
	f.byID[ticket.ID] = ticket
	return nil
}

func (f *fakeTickets) Delete(_ context.Context, id string) error {
	if _, ok := f.byID[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.byID, id)
	return nil
}

func (f *fakeTickets) GetByID(_ context.Context, id string) (*domain.Ticket, error) {
	ticket, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *ticket
	return &copied, nil
}

func (f *fakeTickets) ListWithFilter(_ context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	f.lastFilter = filter
	var out []domain.Ticket
	for _, ticket := range f.byID {
		if filter.CreatedBy != nil && ticket.CreatedBy != *filter.CreatedBy {
			continue
		}
		out = append(out, *ticket)
	}
	return out, nil
}

type fakeComments struct {
	byTicket map[string][]domain.Comment
}

func (f *fakeComments) Create(_ context.Context, comment *domain.Comment) error {
	comment.ID = fmt.Sprintf("c-%d", len(f.byTicket[comment.TicketID])+1)
	comment.CreatedAt = time.Now()
	f.byTicket[comment.TicketID] = append(f.byTicket[comment.TicketID], *comment)
	return nil
}

func (f *fakeComments) GetByID(_ context.Context, id string) (*domain.Comment, error) {
	for _, comments := range f.byTicket {
		for i := range comments {
			if comments[i].ID == id {
				return &comments[i], nil
			}
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeComments) ListByTicket(_ context.Context, ticketID string) ([]domain.Comment, error) {
	return f.byTicket[ticketID], nil
}

type fakeUsers struct {
	byID map[string]*domain.User
}

func (f *fakeUsers) Create(_ context.Context, user *domain.User) error {
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) Update(_ context.Context, user *domain.User) error {
	f.byID[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	for _, user := range f.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUsers) ListByRole(_ context.Context, role domain.UserRole) ([]domain.User, error) {
	var out []domain.User
	for _, user := range f.byID {
		if user.Role == role {
			out = append(out, *user)
		}
	}
	return out, nil
}

type sinkEvent struct {
	kind      string
	ticketID  string
	oldStatus domain.TicketStatus
}

type recordingSink struct {
	events []sinkEvent
}

func (s *recordingSink) TicketCreated(_ context.Context, ticket *domain.Ticket) {
	s.events = append(s.events, sinkEvent{kind: "ticket_created", ticketID: ticket.ID})
}

func (s *recordingSink) StatusChanged(_ context.Context, ticket *domain.Ticket, oldStatus domain.TicketStatus) {
	s.events = append(s.events, sinkEvent{kind: "status_changed", ticketID: ticket.ID, oldStatus: oldStatus})
}

func (s *recordingSink) CommentCreated(_ context.Context, ticket *domain.Ticket, _ *domain.Comment) {
	s.events = append(s.events, sinkEvent{kind: "comment_created", ticketID: ticket.ID})
}

type recordingStore struct {
	deleted []string
}

func (s *recordingStore) Get(context.Context, string) ([]byte, bool)         { return nil, false }
func (s *recordingStore) Set(context.Context, string, []byte, time.Duration) {}
func (s *recordingStore) Del(_ context.Context, keys ...string) {
	s.deleted = append(s.deleted, keys...)
}

type serviceFixture struct {
	svc     *TicketService
	tickets *fakeTickets
	sink    *recordingSink
	store   *recordingStore
}

func newServiceFixture(users ...*domain.User) *serviceFixture {
	f := &serviceFixture{
		tickets: &fakeTickets{byID: map[string]*domain.Ticket{}},
		sink:    &recordingSink{},
		store:   &recordingStore{},
	}
	userRepo := &fakeUsers{byID: map[string]*domain.User{}}
	for _, user := range users {
		userRepo.byID[user.ID] = user
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		CommentRepo: &fakeComments{byTicket: map[string][]domain.Comment{}},
		UserRepo:    userRepo,
		Detector:    events.NewDetector(f.sink),
		Cache:       cache.NewTicketCache(f.store, time.Minute),
	})
	return f
}

var (
	testCustomer = &domain.User{ID: "u-1", Name: "Cora", Email: "cora@example.com", Role: domain.RoleCustomer}
	otherUser    = &domain.User{ID: "u-2", Name: "Omar", Email: "omar@example.com", Role: domain.RoleCustomer}
	testAgent    = &domain.User{ID: "a-1", Name: "Ada", Email: "ada@example.com", Role: domain.RoleAgent}
)

func createTicket(t *testing.T, f *serviceFixture, user *domain.User) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Create(context.Background(), user, TicketCreateInput{
		Title:       "Printer on fire",
		Description: "It is actually on fire.",
	})
	require.NoError(t, err)
	return ticket
}

func TestCreateDefaultsAndEmits(t *testing.T) {
	f := newServiceFixture(testCustomer)

	ticket := createTicket(t, f, testCustomer)

	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority, "priority defaults to medium")
	assert.Equal(t, "u-1", ticket.CreatedBy)
	assert.Regexp(t, `^HD-[0-9A-F]{8}$`, ticket.ExternalKey)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "ticket_created", f.sink.events[0].kind)
}

func TestCreateRejectsBlankFields(t *testing.T) {
	f := newServiceFixture(testCustomer)

	_, err := f.svc.Create(context.Background(), testCustomer, TicketCreateInput{Title: "  ", Description: "x"})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
	assert.Empty(t, f.sink.events, "nothing is emitted for rejected writes")
}

func TestListPinsCustomersToOwnTickets(t *testing.T) {
	f := newServiceFixture(testCustomer, otherUser)
	createTicket(t, f, testCustomer)
	createTicket(t, f, otherUser)

	mine, err := f.svc.List(context.Background(), testCustomer, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "u-1", mine[0].CreatedBy)

	all, err := f.svc.List(context.Background(), testAgent, TicketListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.Nil(t, f.tickets.lastFilter.CreatedBy, "agents are not creator-scoped")
}

func TestGetEnforcesOwnership(t *testing.T) {
	f := newServiceFixture(testCustomer, otherUser)
	ticket := createTicket(t, f, testCustomer)

	_, _, err := f.svc.Get(context.Background(), otherUser, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	got, _, err := f.svc.Get(context.Background(), testAgent, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ID, got.ID)
}

func TestUpdateStatusEmitsTransition(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)
	f.sink.events = nil

	status := domain.TicketStatusInProgress
	updated, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, updated.Status)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "status_changed", f.sink.events[0].kind)
	assert.Equal(t, domain.TicketStatusOpen, f.sink.events[0].oldStatus)
}

func TestUpdateWithoutStatusChangeIsSilent(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)
	f.sink.events = nil

	title := "Printer still on fire"
	_, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{Title: &title})
	require.NoError(t, err)
	assert.Empty(t, f.sink.events)
}

func TestUpdateWithoutStatusChangeStillInvalidatesCache(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)
	f.sink.events = nil
	f.store.deleted = nil

	title := "Printer still on fire"
	_, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{Title: &title})
	require.NoError(t, err)

	assert.Empty(t, f.sink.events, "no event, yet the cached views are stale")
	assert.Contains(t, f.store.deleted, "ticket-detail:"+ticket.ID)
	assert.Contains(t, f.store.deleted, "ticket-list:u-1")
	assert.Contains(t, f.store.deleted, "ticket-list:all")
}

func TestAssignmentChangeInvalidatesAssigneeScope(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)
	f.sink.events = nil
	f.store.deleted = nil

	agentID := testAgent.ID
	_, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{AssignedTo: &agentID})
	require.NoError(t, err)

	assert.Empty(t, f.sink.events)
	assert.Contains(t, f.store.deleted, "ticket-list:a-1")
	assert.Contains(t, f.store.deleted, "ticket-detail:"+ticket.ID)
}

func TestCustomerCannotChangeStatus(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)

	status := domain.TicketStatusClosed
	_, err := f.svc.Update(context.Background(), testCustomer, ticket.ID, TicketUpdateInput{Status: &status})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestCustomerCannotEditResolvedTicket(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)

	status := domain.TicketStatusResolved
	_, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{Status: &status})
	require.NoError(t, err)

	title := "edited"
	_, err = f.svc.Update(context.Background(), testCustomer, ticket.ID, TicketUpdateInput{Title: &title})
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}

func TestAssignmentRequiresAgent(t *testing.T) {
	f := newServiceFixture(testCustomer, otherUser, testAgent)
	ticket := createTicket(t, f, testCustomer)

	customerID := otherUser.ID
	_, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{AssignedTo: &customerID})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)

	agentID := testAgent.ID
	updated, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{AssignedTo: &agentID})
	require.NoError(t, err)
	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "a-1", *updated.AssignedTo)

	cleared, err := f.svc.Update(context.Background(), testAgent, ticket.ID, TicketUpdateInput{ClearAssignee: true})
	require.NoError(t, err)
	assert.Nil(t, cleared.AssignedTo)
}

func TestDeleteIsAgentOnly(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)

	err := f.svc.Delete(context.Background(), testCustomer, ticket.ID)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)

	require.NoError(t, f.svc.Delete(context.Background(), testAgent, ticket.ID))
	_, err = f.tickets.GetByID(context.Background(), ticket.ID)
	assert.ErrorIs(t, err, pgx.ErrNoRows)
}

func TestAddCommentEmits(t *testing.T) {
	f := newServiceFixture(testCustomer, testAgent)
	ticket := createTicket(t, f, testCustomer)
	f.sink.events = nil

	comment, err := f.svc.AddComment(context.Background(), testAgent, ticket.ID, "Restart it.")
	require.NoError(t, err)
	assert.Equal(t, "a-1", comment.AuthorID)

	require.Len(t, f.sink.events, 1)
	assert.Equal(t, "comment_created", f.sink.events[0].kind)

	_, err = f.svc.AddComment(context.Background(), testAgent, ticket.ID, "   ")
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.ToDomainError(err).Code)
}

func TestAddCommentEnforcesVisibility(t *testing.T) {
	f := newServiceFixture(testCustomer, otherUser)
	ticket := createTicket(t, f, testCustomer)

	_, err := f.svc.AddComment(context.Background(), otherUser, ticket.ID, "drive-by")
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.ToDomainError(err).Code)
}
