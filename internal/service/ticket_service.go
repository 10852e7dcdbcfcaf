package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const maxTicketTitle = 200

// TicketService opens and lists support tickets.
type TicketService struct {
	tickets    repository.TicketRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	TicketRepo repository.TicketRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// TicketCreateInput describes a new ticket.
type TicketCreateInput struct {
	Topic       string
	Title       string
	Description string
	Priority    domain.TicketPriority
	Tags        []string
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{tickets: deps.TicketRepo, dispatcher: deps.Dispatcher, logger: logger}
}

// CreateTicket opens a ticket on behalf of userID and publishes ticket_created.
func (s *TicketService) CreateTicket(ctx context.Context, userID string, input TicketCreateInput) (*domain.Ticket, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, errorutil.NewValidationError("title is required", map[string]any{"title": "required"})
	}
	if len([]rune(title)) > maxTicketTitle {
		title = string([]rune(title)[:maxTicketTitle])
	}

	ticket := &domain.Ticket{
		ExternalKey: generateTicketKey(),
		RequesterID: userID,
		Topic:       input.Topic,
		Title:       title,
		Description: strings.TrimSpace(input.Description),
		Status:      domain.TicketStatusOpen,
		Priority:    input.Priority,
		Tags:        input.Tags,
	}
	if ticket.Priority == "" {
		ticket.Priority = domain.TicketPriorityMedium
	}
	if ticket.Tags == nil {
		ticket.Tags = []string{}
	}

	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, err
	}

	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:     events.EventTicketCreated,
		TicketID: ticket.ID,
		Actor:    events.UserActor(userID),
		Payload: events.TicketCreatedPayload{
			ExternalKey: ticket.ExternalKey,
			Topic:       ticket.Topic,
			Priority:    ticket.Priority,
			Title:       ticket.Title,
		},
	})
	return ticket, nil
}

// ListUserTickets returns the user's own tickets, newest first.
func (s *TicketService) ListUserTickets(ctx context.Context, userID string, limit, offset int) ([]domain.Ticket, error) {
	return s.tickets.ListByUser(ctx, userID, limit, offset)
}

func generateTicketKey() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}
