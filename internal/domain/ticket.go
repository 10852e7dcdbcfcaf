package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "OPEN"
	TicketStatusResolved TicketStatus = "RESOLVED"
	TicketStatusClosed   TicketStatus = "CLOSED"
)

// TicketPriority enumerates how quickly the support team should react.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "LOW"
	TicketPriorityMedium TicketPriority = "MEDIUM"
	TicketPriorityHigh   TicketPriority = "HIGH"
)

// Ticket is a support case handed from the assistant to the human team.
// Description carries the checklist gathered during the conversation.
type Ticket struct {
	ID          string
	ExternalKey string
	RequesterID string
	Topic       string
	Title       string
	Description string
	Status      TicketStatus
	Priority    TicketPriority
	Tags        []string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
