package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// ChatHandler exposes the assistant to signed-in end-users.
type ChatHandler struct {
	chat   *service.ChatService
	logger *zap.Logger
}

// NewChatHandler constructs handler.
func NewChatHandler(chat *service.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chat: chat, logger: logger}
}

// Send handles POST /chat.
func (h *ChatHandler) Send(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return errorutil.NewValidationError("invalid payload", nil)
	}

	turn, err := h.chat.Send(c.UserContext(), userID, req.Message)
	if err != nil {
		return h.failure(c, userID, err)
	}
	return c.JSON(dto.NewChatResponse(turn))
}

// Reset handles POST /chat/reset.
func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	message, err := h.chat.Reset(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(dto.ChatResetResponse{Status: "ok", Message: message})
}

// History handles GET /chat/history.
func (h *ChatHandler) History(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	history, err := h.chat.History(c.UserContext(), userID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewChatHistory(history)})
}

// OpenTicket handles POST /chat/ticket.
func (h *ChatHandler) OpenTicket(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}
	var req dto.OpenTicketRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return errorutil.NewValidationError("invalid payload", nil)
		}
	}

	ticket, err := h.chat.OpenTicket(c.UserContext(), userID, req.Title)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewTicketResponse(ticket)})
}

// failure keeps client errors in the standard envelope and turns everything else into the
// apology reply.
func (h *ChatHandler) failure(c *fiber.Ctx, userID string, err error) error {
	var domainErr *errorutil.DomainError
	if errors.As(err, &domainErr) && domainErr.HTTPStatus < http.StatusInternalServerError {
		return err
	}
	h.logger.Error("chat turn failed", zap.String("user_id", userID), zap.Error(err))
	return c.Status(http.StatusInternalServerError).JSON(dto.ChatErrorResponse{Reply: assistant.ApologyMessage})
}

func currentUserID(c *fiber.Ctx) (string, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return "", errorutil.NewUnauthorized("user required")
	}
	return principal.User.ID, nil
}
