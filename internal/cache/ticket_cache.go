package cache

import (
	"context"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const (
	listKeyPrefix   = "ticket-list:"
	detailKeyPrefix = "ticket-detail:"

	// ListScopeAll is the list scope shared by all agents.
	ListScopeAll = "all"
)

// TicketCache caches serialized default-view list and detail responses.
// Only the unparameterized views are cached; any filtered, searched or
// reordered query bypasses the cache entirely.
type TicketCache struct {
	store Store
	ttl   time.Duration
}

// NewTicketCache builds the cache with the configured entry TTL.
func NewTicketCache(store Store, ttl time.Duration) *TicketCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TicketCache{store: store, ttl: ttl}
}

// ListKey derives the list cache key for the requesting user: customers
// get a per-user scope, agents share the "all" scope.
func (c *TicketCache) ListKey(user *domain.User) string {
	if user.IsCustomer() {
		return listKeyPrefix + user.ID
	}
	return listKeyPrefix + ListScopeAll
}

// DetailKey derives the detail cache key for a ticket.
func (c *TicketCache) DetailKey(ticketID string) string {
	return detailKeyPrefix + ticketID
}

// GetList returns the cached default list view for the user, if any.
func (c *TicketCache) GetList(ctx context.Context, user *domain.User) ([]byte, bool) {
	return c.store.Get(ctx, c.ListKey(user))
}

// SetList stores the serialized default list view for the user.
func (c *TicketCache) SetList(ctx context.Context, user *domain.User, payload []byte) {
	c.store.Set(ctx, c.ListKey(user), payload, c.ttl)
}

// GetDetail returns the cached detail view for the ticket, if any.
func (c *TicketCache) GetDetail(ctx context.Context, ticketID string) ([]byte, bool) {
	return c.store.Get(ctx, c.DetailKey(ticketID))
}

// SetDetail stores the serialized detail view for the ticket.
func (c *TicketCache) SetDetail(ctx context.Context, ticketID string, payload []byte) {
	c.store.Set(ctx, c.DetailKey(ticketID), payload, c.ttl)
}

// Invalidate removes every key a write to the ticket could have made
// stale: its detail entry plus the list scopes of the creator, all
// agents, and the assignee when set. A miss on delete is a no-op.
func (c *TicketCache) Invalidate(ctx context.Context, ticket *domain.Ticket) {
	keys := []string{
		c.DetailKey(ticket.ID),
		listKeyPrefix + ticket.CreatedBy,
		listKeyPrefix + ListScopeAll,
	}
	if ticket.AssignedTo != nil {
		keys = append(keys, listKeyPrefix+*ticket.AssignedTo)
	}
	c.store.Del(ctx, keys...)
}
