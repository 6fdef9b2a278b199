package hub

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/repository"
)

type inboundMessage struct {
	Type string `json:"type"`
}

var pongMessage = []byte(`{"type":"pong"}`)

// UpgradeGate rejects plain HTTP requests to the websocket endpoint.
func UpgradeGate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler serves one notification connection. The bearer credential
// arrives as a query parameter on the handshake; a missing or
// unresolvable token closes the connection before it joins any group,
// with no error payload sent to the unauthenticated peer.
func Handler(h *Hub, tokens *auth.TokenManager, users repository.UserRepository, logger *zap.Logger) fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		defer conn.Close()

		user, err := resolveSessionUser(context.Background(), tokens, users, conn.Query("token"))
		if err != nil {
			return
		}

		session := NewSession(user.ID)
		go writeLoop(conn, session)

		groups := []string{UserGroup(user.ID)}
		if user.IsAgent() {
			groups = append(groups, AgentsGroup)
		}
		for _, group := range groups {
			h.Join(group, session)
		}
		logger.Info("notification connection joined",
			zap.String("user_id", user.ID),
			zap.String("role", string(user.Role)))

		// Release memberships before the handler returns so a closing
		// connection can never receive another broadcast.
		defer func() {
			for _, group := range groups {
				h.Leave(group, session)
			}
			session.Close()
		}()

		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			if msg.Type == "ping" {
				session.push(pongMessage)
			}
		}
	})
}

// resolveSessionUser validates the handshake credential and loads the
// account it names. Any failure means the connection joins nothing.
func resolveSessionUser(ctx context.Context, tokens *auth.TokenManager, users repository.UserRepository, token string) (*domain.User, error) {
	if token == "" {
		return nil, errors.New("missing token")
	}
	claims, err := tokens.ParseToken(token)
	if err != nil {
		return nil, err
	}
	return users.GetByID(ctx, claims.UserID)
}

func writeLoop(conn *websocket.Conn, session *Session) {
	for data := range session.Outbound() {
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			return
		}
	}
}
