package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// TicketResponse is the public view of a ticket.
type TicketResponse struct {
	ID          string                `json:"id"`
	ExternalKey string                `json:"external_key"`
	Topic       string                `json:"topic"`
	Title       string                `json:"title"`
	Description string                `json:"description"`
	Status      domain.TicketStatus   `json:"status"`
	Priority    domain.TicketPriority `json:"priority"`
	Tags        []string              `json:"tags"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// NewTicketResponse maps a ticket.
func NewTicketResponse(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:          t.ID,
		ExternalKey: t.ExternalKey,
		Topic:       t.Topic,
		Title:       t.Title,
		Description: t.Description,
		Status:      t.Status,
		Priority:    t.Priority,
		Tags:        t.Tags,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
