package hub

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/observability"
)

func newTestHub() *Hub {
	return NewHub(zap.NewNop(), observability.NewMetrics())
}

func drainOne(t *testing.T, s *Session) []byte {
	t.Helper()
	select {
	case data := <-s.Outbound():
		return data
	default:
		t.Fatal("expected a pending message")
		return nil
	}
}

func TestJoinLeaveMembership(t *testing.T) {
	h := newTestHub()
	s := NewSession("u-1")

	assert.Equal(t, 0, h.MemberCount(AgentsGroup))

	h.Join(AgentsGroup, s)
	assert.Equal(t, 1, h.MemberCount(AgentsGroup))

	// Joining twice does not double-count.
	h.Join(AgentsGroup, s)
	assert.Equal(t, 1, h.MemberCount(AgentsGroup))

	h.Leave(AgentsGroup, s)
	assert.Equal(t, 0, h.MemberCount(AgentsGroup))

	// Leaving again, or leaving a group never joined, is a no-op.
	h.Leave(AgentsGroup, s)
	h.Leave(UserGroup("u-1"), s)
}

func TestBroadcastReachesEveryMember(t *testing.T) {
	h := newTestHub()
	a := NewSession("a-1")
	b := NewSession("a-2")
	h.Join(AgentsGroup, a)
	h.Join(AgentsGroup, b)

	h.Broadcast(AgentsGroup, map[string]string{"type": "ticket_created"})

	for _, s := range []*Session{a, b} {
		var decoded map[string]string
		require.NoError(t, json.Unmarshal(drainOne(t, s), &decoded))
		assert.Equal(t, "ticket_created", decoded["type"])
	}
}

func TestBroadcastToEmptyGroup(t *testing.T) {
	h := newTestHub()
	h.Broadcast("user:ghost", map[string]string{"type": "status_changed"})
}

func TestBroadcastSkipsOtherGroups(t *testing.T) {
	h := newTestHub()
	agent := NewSession("a-1")
	customer := NewSession("u-1")
	h.Join(AgentsGroup, agent)
	h.Join(UserGroup("u-1"), customer)

	h.Broadcast(UserGroup("u-1"), map[string]string{"type": "status_changed"})

	drainOne(t, customer)
	select {
	case <-agent.Outbound():
		t.Fatal("agent must not receive personal-channel messages")
	default:
	}
}

func TestSessionInManyGroups(t *testing.T) {
	h := newTestHub()
	s := NewSession("a-1")
	h.Join(AgentsGroup, s)
	h.Join(UserGroup("a-1"), s)

	h.Broadcast(AgentsGroup, map[string]string{"via": "agents"})
	h.Broadcast(UserGroup("a-1"), map[string]string{"via": "personal"})

	first := drainOne(t, s)
	second := drainOne(t, s)
	assert.NotEqual(t, first, second)
}

func TestClosedSessionDropsMessages(t *testing.T) {
	h := newTestHub()
	s := NewSession("u-1")
	h.Join(UserGroup("u-1"), s)
	s.Close()

	// Must not panic; the message is simply lost.
	h.Broadcast(UserGroup("u-1"), map[string]string{"type": "status_changed"})
}

func TestCloseIsIdempotent(t *testing.T) {
	s := NewSession("u-1")
	s.Close()
	s.Close()
}

func TestFullBufferDropsInsteadOfBlocking(t *testing.T) {
	h := newTestHub()
	s := NewSession("u-1")
	h.Join(UserGroup("u-1"), s)

	for i := 0; i < sendBufferSize+10; i++ {
		h.Broadcast(UserGroup("u-1"), map[string]int{"seq": i})
	}

	delivered := 0
	for {
		select {
		case <-s.Outbound():
			delivered++
			continue
		default:
		}
		break
	}
	assert.Equal(t, sendBufferSize, delivered)
}

func TestConcurrentJoinLeaveBroadcast(t *testing.T) {
	h := newTestHub()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := NewSession("u-1")
			h.Join(AgentsGroup, s)
			h.Broadcast(AgentsGroup, map[string]string{"type": "ticket_created"})
			h.Leave(AgentsGroup, s)
			s.Close()
		}()
	}
	wg.Wait()

	assert.Equal(t, 0, h.MemberCount(AgentsGroup))
}
