package ws

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/schoolpulse/comms/internal/auth"
	"github.com/schoolpulse/comms/internal/hub"
	"github.com/schoolpulse/comms/internal/metrics"
	"github.com/schoolpulse/comms/internal/presence"
	"github.com/schoolpulse/comms/internal/service"
)

// Config bounds the per-connection pumps.
type Config struct {
	PingInterval  time.Duration
	WriteDeadline time.Duration
	ReadDeadline  time.Duration
	MaxMsgSize    int64
	SendBuffer    int
}

// Gateway owns the websocket endpoints. Every connection walks
// connecting → authenticating → subscribed (or rejected, which closes
// without ever joining a group).
type Gateway struct {
	hub      *hub.Hub
	svc      *service.Service
	verifier *auth.Verifier
	presence *presence.Store
	cfg      Config
	log      *zap.SugaredLogger
}

func NewGateway(h *hub.Hub, svc *service.Service, verifier *auth.Verifier, pres *presence.Store, cfg Config, log *zap.SugaredLogger) *Gateway {
	return &Gateway{hub: h, svc: svc, verifier: verifier, presence: pres, cfg: cfg, log: log}
}

// Upgrade gates the websocket routes behind the protocol check.
func (g *Gateway) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Chat serves /ws/chat/:conversation_id.
func (g *Gateway) Chat() fiber.Handler {
	return websocket.New(g.chat)
}

// Notifications serves /ws/notifications.
func (g *Gateway) Notifications() fiber.Handler {
	return websocket.New(g.notifications)
}

// authenticate validates the handshake token. Fails closed: an invalid
// or missing token closes the socket before any group subscription and
// before any frame is written.
func (g *Gateway) authenticate(c *websocket.Conn) (auth.Principal, bool) {
	p, err := g.verifier.Verify(c.Query("token"))
	if err != nil {
		_ = c.Close()
		return auth.Principal{}, false
	}
	return p, true
}

type inboundFrame struct {
	Type           string `json:"type"`
	Text           string `json:"text"`
	Message        string `json:"message"`
	SenderID       string `json:"sender_id"`
	ConversationID string `json:"conversation_id"`
}

func (g *Gateway) chat(c *websocket.Conn) {
	principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	conversationID := c.Params("conversation_id")
	conv, err := g.svc.GetConversation(context.Background(), conversationID)
	if err != nil {
		g.log.Warnw("ws chat open on unknown conversation", "conversation_id", conversationID)
		_ = c.Close()
		return
	}

	client, socketID := g.subscribe(c, principal, hub.ConversationGroup(conv.ID))
	defer g.unsubscribe(c, principal, client, socketID)

	g.readLoop(c, func(frame inboundFrame) {
		if frame.Type != "chat_message" {
			return
		}
		text := frame.Text
		if text == "" {
			text = frame.Message
		}
		_, err := g.svc.Send(context.Background(), service.SendInput{
			SenderID:       principal.UserID,
			ReceiverID:     conv.Other(principal.UserID),
			ContextLabel:   conv.ContextLabel,
			Text:           text,
			ConversationID: conv.ID,
		})
		if err != nil {
			g.log.Warnw("ws send failed", "conversation_id", conv.ID, "sender_id", principal.UserID, "err", err)
		}
	})
}

func (g *Gateway) notifications(c *websocket.Conn) {
	principal, ok := g.authenticate(c)
	if !ok {
		return
	}
	client, socketID := g.subscribe(c, principal, hub.UserGroup(principal.UserID))
	defer g.unsubscribe(c, principal, client, socketID)

	// personal channel is push-only; inbound frames are ignored
	g.readLoop(c, func(inboundFrame) {})
}

// subscribe joins the group, confirms the connection, and starts the
// write pump.
func (g *Gateway) subscribe(c *websocket.Conn, principal auth.Principal, group string) (*hub.Client, string) {
	client := g.hub.NewClient(g.cfg.SendBuffer)
	g.hub.Join(group, client)
	metrics.OpenConnections.Inc()

	socketID := uuid.NewString()
	if g.presence != nil {
		if err := g.presence.AddConnection(context.Background(), principal.UserID, socketID); err != nil {
			g.log.Warnw("presence add", "user_id", principal.UserID, "err", err)
		}
	}

	_ = c.WriteJSON(map[string]string{"type": "connection_established"})

	go g.writePump(c, client)
	return client, socketID
}

// unsubscribe runs on every disconnect path, graceful or abrupt, and
// deterministically removes the client from all joined groups.
func (g *Gateway) unsubscribe(c *websocket.Conn, principal auth.Principal, client *hub.Client, socketID string) {
	g.hub.CloseClient(client)
	metrics.OpenConnections.Dec()
	if g.presence != nil {
		if err := g.presence.RemoveConnection(context.Background(), principal.UserID, socketID); err != nil {
			g.log.Warnw("presence remove", "user_id", principal.UserID, "err", err)
		}
	}
	_ = c.Close()
}

// readLoop processes inbound frames strictly in arrival order. Malformed
// frames are dropped without closing; a read error ends the connection.
func (g *Gateway) readLoop(c *websocket.Conn, handle func(inboundFrame)) {
	c.SetReadLimit(g.cfg.MaxMsgSize)
	_ = c.SetReadDeadline(time.Now().Add(g.cfg.ReadDeadline))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(g.cfg.ReadDeadline))
	})
	for {
		mt, data, err := c.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.TextMessage {
			continue
		}
		var frame inboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			g.log.Debugw("dropping malformed frame", "err", err)
			continue
		}
		handle(frame)
	}
}

func (g *Gateway) writePump(c *websocket.Conn, client *hub.Client) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer ticker.Stop()
	for {
		select {
		case b := <-client.Out():
			_ = c.SetWriteDeadline(time.Now().Add(g.cfg.WriteDeadline))
			if err := c.WriteMessage(websocket.TextMessage, b); err != nil {
				_ = c.Close()
				return
			}
		case <-client.Done():
			_ = c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case <-ticker.C:
			_ = c.SetWriteDeadline(time.Now().Add(g.cfg.WriteDeadline))
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(time.Second)); err != nil {
				_ = c.Close()
				return
			}
		}
	}
}
