package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/schoolpulse/comms/internal/apperrors"
	"github.com/schoolpulse/comms/internal/middleware"
	"github.com/schoolpulse/comms/internal/models"
	"github.com/schoolpulse/comms/internal/presence"
	"github.com/schoolpulse/comms/internal/service"
)

type RestHandler struct {
	svc      *service.Service
	presence *presence.Store
	log      *zap.SugaredLogger
}

func NewRestHandler(svc *service.Service, pres *presence.Store, log *zap.SugaredLogger) *RestHandler {
	return &RestHandler{svc: svc, presence: pres, log: log}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation):
		return fiber.StatusBadRequest
	case errors.Is(err, apperrors.ErrReceiverNotFound),
		errors.Is(err, apperrors.ErrParticipantNotFound),
		errors.Is(err, apperrors.ErrConversationNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, apperrors.ErrForbidden):
		return fiber.StatusForbidden
	case errors.Is(err, apperrors.ErrUnauthorized):
		return fiber.StatusUnauthorized
	default:
		return fiber.StatusInternalServerError
	}
}

func (h *RestHandler) fail(c *fiber.Ctx, err error) error {
	status := statusFor(err)
	if status == fiber.StatusInternalServerError {
		h.log.Errorw("request failed", "path", c.Path(), "err", err)
		return c.Status(status).JSON(fiber.Map{"error": "internal error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

// GET /api/conversations
func (h *RestHandler) ListConversations(c *fiber.Ctx) error {
	p, _ := middleware.Principal(c)
	out, err := h.svc.ListConversations(c.Context(), p.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	if out == nil {
		out = []models.ConversationSummary{}
	}
	return c.JSON(out)
}

// GET /api/conversations/:id/messages
func (h *RestHandler) ListMessages(c *fiber.Ctx) error {
	msgs, err := h.svc.ListMessages(c.Context(), c.Params("id"))
	if err != nil {
		return h.fail(c, err)
	}
	if msgs == nil {
		msgs = []models.Message{}
	}
	return c.JSON(msgs)
}

// POST /api/messages
func (h *RestHandler) SendMessage(c *fiber.Ctx) error {
	p, _ := middleware.Principal(c)
	var in service.SendInput
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	in.SenderID = p.UserID
	msg, err := h.svc.Send(c.Context(), in)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// POST /api/conversations/:id/read
func (h *RestHandler) MarkRead(c *fiber.Ctx) error {
	p, _ := middleware.Principal(c)
	marked, err := h.svc.MarkConversationRead(c.Context(), c.Params("id"), p.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "marked": marked})
}

// GET /api/unread-count
func (h *RestHandler) UnreadCount(c *fiber.Ctx) error {
	p, _ := middleware.Principal(c)
	n, err := h.svc.UnreadCount(c.Context(), p.UserID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"unread_count": n})
}

// POST /api/broadcasts
func (h *RestHandler) Broadcast(c *fiber.Ctx) error {
	p, _ := middleware.Principal(c)
	if p.Role != models.RoleBroadcaster {
		return h.fail(c, apperrors.ErrForbidden)
	}
	var in struct {
		ReceiverID string `json:"receiver_id"`
		Text       string `json:"text"`
	}
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid body"})
	}
	msg, err := h.svc.Broadcast(c.Context(), p.UserID, in.ReceiverID, in.Text)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GET /api/notifications
func (h *RestHandler) ListNotifications(c *fiber.Ctx) error {
	p, _ := middleware.Principal(c)
	limit := int64(c.QueryInt("limit", 50))
	out, err := h.svc.ListNotifications(c.Context(), p.UserID, limit)
	if err != nil {
		return h.fail(c, err)
	}
	if out == nil {
		out = []models.Notification{}
	}
	return c.JSON(out)
}

// GET /api/presence/:user_id
func (h *RestHandler) Presence(c *fiber.Ctx) error {
	if h.presence == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "presence unavailable"})
	}
	st, err := h.presence.Get(c.Context(), c.Params("user_id"))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(st)
}
