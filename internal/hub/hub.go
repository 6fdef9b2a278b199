package hub

import (
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

// AgentsGroup is the shared group every connected agent joins.
const AgentsGroup = "agents"

// UserGroup returns the personal group name for a user.
func UserGroup(userID string) string {
	return "user:" + userID
}

// Hub maintains named groups of live sessions and relays server-pushed
// messages to their members. Membership is shared mutable state and
// must stay safe under concurrent connect/disconnect from many
// connections.
type Hub struct {
	mu     sync.RWMutex
	groups map[string]map[*Session]struct{}

	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger, metrics *observability.Metrics) *Hub {
	return &Hub{
		groups:  make(map[string]map[*Session]struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Join adds the session to the group.
func (h *Hub) Join(group string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[*Session]struct{})
		h.groups[group] = members
	}
	members[s] = struct{}{}
}

// Leave removes the session from the group. Leaving a group the
// session never joined is a no-op.
func (h *Hub) Leave(group string, s *Session) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		return
	}
	delete(members, s)
	if len(members) == 0 {
		delete(h.groups, group)
	}
}

// MemberCount reports the current size of a group.
func (h *Hub) MemberCount(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

// Broadcast serializes the payload once and pushes it to every member
// of the group. Delivery is fire-and-forget: a session whose send
// buffer is full misses the message rather than blocking the caller.
func (h *Hub) Broadcast(group string, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		h.logger.Error("marshal push payload failed", zap.String("group", group), zap.Error(err))
		return
	}

	h.mu.RLock()
	members := make([]*Session, 0, len(h.groups[group]))
	for s := range h.groups[group] {
		members = append(members, s)
	}
	h.mu.RUnlock()

	for _, s := range members {
		if s.push(data) {
			h.metrics.RecordPush(group)
		}
	}
}
