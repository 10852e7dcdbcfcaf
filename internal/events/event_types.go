package events

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventChatEscalated EventType = "chat_escalated"
	EventChatResolved  EventType = "chat_resolved"
	EventChatReset     EventType = "chat_reset"
	EventTicketCreated EventType = "ticket_created"
)

// Actor identifies who caused an event.
type Actor struct {
	Type    domain.SubjectType `json:"type"`
	UserID  string             `json:"user_id,omitempty"`
	StaffID string             `json:"staff_id,omitempty"`
}

// UserActor builds an actor for an end-user.
func UserActor(userID string) Actor {
	return Actor{Type: domain.SubjectTypeUser, UserID: userID}
}

// Event is a domain event emitted by services. ConversationID is the chat the event
// belongs to; TicketID is set for ticket events.
type Event struct {
	ID             string    `json:"id"`
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id,omitempty"`
	TicketID       string    `json:"ticket_id,omitempty"`
	Actor          Actor     `json:"actor"`
	Timestamp      time.Time `json:"timestamp"`
	Payload        any       `json:"payload,omitempty"`
}

// ChatEscalatedPayload describes why a conversation was handed to the support team.
type ChatEscalatedPayload struct {
	Reason       string   `json:"reason"`
	Topic        string   `json:"topic"`
	MessageCount int      `json:"message_count"`
	Checklist    []string `json:"checklist"`
}

// ChatResolvedPayload is emitted when the user confirms the problem is solved.
type ChatResolvedPayload struct {
	Topic        string `json:"topic"`
	Tier         string `json:"tier,omitempty"`
	MessageCount int    `json:"message_count"`
}

// TicketCreatedPayload describes a ticket opened from a conversation.
type TicketCreatedPayload struct {
	ExternalKey string                `json:"external_key"`
	Topic       string                `json:"topic"`
	Priority    domain.TicketPriority `json:"priority"`
	Title       string                `json:"title"`
}
