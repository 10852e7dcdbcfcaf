package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk-service/internal/api/dto"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/service"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

// TicketsHandler lists an end-user's own tickets.
type TicketsHandler struct {
	service *service.TicketService
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(ticketService *service.TicketService) *TicketsHandler {
	return &TicketsHandler{service: ticketService}
}

// ListTickets GET /tickets?page=&page_size=.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return errorutil.NewUnauthorized("user required")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := c.QueryInt("page_size", 20)
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	tickets, err := h.service.ListUserTickets(c.UserContext(), principal.User.ID, pageSize, (page-1)*pageSize)
	if err != nil {
		return err
	}

	data := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		data = append(data, dto.NewTicketResponse(&tickets[i]))
	}
	return c.JSON(fiber.Map{
		"data": data,
		"meta": fiber.Map{"page": page, "page_size": pageSize},
	})
}
