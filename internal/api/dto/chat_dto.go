package dto

import (
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

// ChatRequest payload for POST /chat.
type ChatRequest struct {
	Message string `json:"message"`
}

// ChatResponse is one assistant turn.
type ChatResponse struct {
	Reply        string  `json:"reply"`
	Topic        string  `json:"topic"`
	MessageCount int     `json:"message_count"`
	Confidence   string  `json:"confidence"`
	Score        float64 `json:"score"`
	Tier         string  `json:"tier,omitempty"`
	Kind         string  `json:"kind"`
	Escalated    bool    `json:"escalated"`
}

// ChatErrorResponse is returned when a turn fails.
type ChatErrorResponse struct {
	Reply string `json:"reply"`
}

// ChatResetResponse acknowledges POST /chat/reset.
type ChatResetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// ChatHistoryEntry is one transcript line.
type ChatHistoryEntry struct {
	Role      domain.ChatRole `json:"role"`
	Text      string          `json:"text"`
	Topic     string          `json:"topic,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// OpenTicketRequest payload for POST /chat/ticket. Title is optional.
type OpenTicketRequest struct {
	Title string `json:"title"`
}

// NewChatResponse maps a chat turn.
func NewChatResponse(turn *service.ChatTurn) ChatResponse {
	confidence := "low"
	if turn.HasTopic() {
		confidence = "high"
	}
	return ChatResponse{
		Reply:        turn.Reply.Text,
		Topic:        string(turn.Topic),
		MessageCount: turn.MessageCount,
		Confidence:   confidence,
		Score:        turn.Reply.Confidence,
		Tier:         string(turn.Reply.Tier),
		Kind:         string(turn.Reply.Kind),
		Escalated:    turn.Escalated,
	}
}

// NewChatHistory maps a stored transcript.
func NewChatHistory(messages []domain.ChatMessage) []ChatHistoryEntry {
	out := make([]ChatHistoryEntry, 0, len(messages))
	for _, m := range messages {
		out = append(out, ChatHistoryEntry{Role: m.Role, Text: m.Text, Topic: m.Topic, CreatedAt: m.CreatedAt})
	}
	return out
}
