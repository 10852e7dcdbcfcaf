package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

// NotificationService alerts the support team about chat and ticket events. Delivery is
// stubbed through the logger.
type NotificationService struct {
	logger *zap.Logger
	cfg    config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{logger: logger, cfg: cfg}
}

// Handles lists the event types the service reacts to.
func (n *NotificationService) Handles() []events.EventType {
	return []events.EventType{
		events.EventChatEscalated,
		events.EventChatResolved,
		events.EventChatReset,
		events.EventTicketCreated,
	}
}

// Handle routes one event to its notification channels.
func (n *NotificationService) Handle(ctx context.Context, event events.Event) error {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.String("conversation_id", event.ConversationID),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload),
	}

	switch event.Type {
	case events.EventChatEscalated:
		n.logger.Info("ChatEscalated", fields...)
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventTicketCreated:
		n.logger.Info("TicketCreated", fields...)
		n.sendEmailNotificationStub(ctx, event)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventChatResolved:
		n.logger.Info("ChatResolved", fields...)
		n.sendWebhookNotificationStub(ctx, event)
	case events.EventChatReset:
		n.logger.Debug("ChatReset", fields...)
	}
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("event_type", string(event.Type)),
		zap.String("conversation_id", event.ConversationID))
}

func (n *NotificationService) sendWebhookNotificationStub(_ context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("event_type", string(event.Type)),
		zap.String("conversation_id", event.ConversationID))
}
