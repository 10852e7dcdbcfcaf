package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

const activityPreviewRunes = 50

// ChatService runs assistant turns against a user's stored conversation.
type ChatService struct {
	assistant  *assistant.Assistant
	store      repository.ConversationStore
	tickets    *TicketService
	activity   *ActivityService
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ChatDependencies bundles collaborators for the chat service. Tickets, Activity,
// Dispatcher and Metrics are optional.
type ChatDependencies struct {
	Assistant  *assistant.Assistant
	Store      repository.ConversationStore
	Tickets    *TicketService
	Activity   *ActivityService
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// ChatTurn is the result of one message. Topic is the conversation's current topic,
// which may differ from Reply.Topic on a clarification turn.
type ChatTurn struct {
	Reply        assistant.Reply
	Topic        assistant.TopicKey
	MessageCount int
	Escalated    bool
}

// HasTopic reports whether the conversation has settled on a topic.
func (t *ChatTurn) HasTopic() bool {
	return t.Topic != "" && t.Topic != assistant.TopicUnknown
}

func conversationTopic(state *assistant.State) assistant.TopicKey {
	if state == nil || state.LastTopic == "" {
		return assistant.TopicUnknown
	}
	return state.LastTopic
}

// NewChatService constructs the service.
func NewChatService(deps ChatDependencies) *ChatService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatService{
		assistant:  deps.Assistant,
		store:      deps.Store,
		tickets:    deps.Tickets,
		activity:   deps.Activity,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// Send processes one message from userID. A blank message gets the input prompt and leaves
// the conversation untouched.
func (s *ChatService) Send(ctx context.Context, userID, message string) (*ChatTurn, error) {
	if strings.TrimSpace(message) == "" {
		return s.prompt(ctx, userID), nil
	}

	release, err := s.lock(ctx, userID)
	if err != nil {
		return nil, err
	}
	defer release()

	prior, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	reply, next := s.assistant.Process(message, prior)

	start := time.Now()
	err = s.store.Save(ctx, userID, next)
	s.metrics.ObserveStoreOp("save", start)
	if err != nil {
		return nil, fmt.Errorf("save conversation: %w", err)
	}

	s.appendHistory(ctx, userID, message, reply)
	topic := conversationTopic(&next)
	s.activity.Record(ctx, userID, activityLine(message, topic))
	s.metrics.RecordChatTurn(string(reply.Topic), string(reply.Kind))

	if reply.Escalation != assistant.ReasonNone {
		s.metrics.RecordEscalation(string(reply.Escalation))
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:           events.EventChatEscalated,
			ConversationID: userID,
			Actor:          events.UserActor(userID),
			Payload: events.ChatEscalatedPayload{
				Reason:       string(reply.Escalation),
				Topic:        string(topic),
				MessageCount: next.MessageCount,
				Checklist:    assistant.Checklist(next.Context),
			},
		})
	}
	if reply.Kind == assistant.KindResolved {
		publishEvent(ctx, s.dispatcher, s.logger, events.Event{
			Type:           events.EventChatResolved,
			ConversationID: userID,
			Actor:          events.UserActor(userID),
			Payload: events.ChatResolvedPayload{
				Topic:        string(reply.Topic),
				Tier:         string(next.Tier),
				MessageCount: next.MessageCount,
			},
		})
	}

	s.logger.Debug("chat turn",
		zap.String("user_id", userID),
		zap.String("topic", string(reply.Topic)),
		zap.String("kind", string(reply.Kind)),
		zap.String("phase", string(next.Phase())),
		zap.Int("message_count", next.MessageCount))

	return &ChatTurn{Reply: reply, Topic: topic, MessageCount: next.MessageCount, Escalated: next.Escalated}, nil
}

// Reset forgets the user's conversation and returns the acknowledgment text.
func (s *ChatService) Reset(ctx context.Context, userID string) (string, error) {
	release, err := s.lock(ctx, userID)
	if err != nil {
		return "", err
	}
	defer release()

	start := time.Now()
	err = s.store.Delete(ctx, userID)
	s.metrics.ObserveStoreOp("delete", start)
	if err != nil {
		return "", fmt.Errorf("reset conversation: %w", err)
	}

	s.activity.Record(ctx, userID, "Reset chat")
	publishEvent(ctx, s.dispatcher, s.logger, events.Event{
		Type:           events.EventChatReset,
		ConversationID: userID,
		Actor:          events.UserActor(userID),
	})
	return assistant.ResetMessage, nil
}

// History returns the stored transcript, oldest first.
func (s *ChatService) History(ctx context.Context, userID string) ([]domain.ChatMessage, error) {
	start := time.Now()
	history, err := s.store.History(ctx, userID)
	s.metrics.ObserveStoreOp("history", start)
	return history, err
}

// OpenTicket turns the current conversation into a support ticket. An empty title
// defaults to the topic label.
func (s *ChatService) OpenTicket(ctx context.Context, userID, title string) (*domain.Ticket, error) {
	if s.tickets == nil {
		return nil, errorutil.NewInternalError(errors.New("ticket service not configured"))
	}

	state, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if conversationTopic(state) == assistant.TopicUnknown {
		return nil, errorutil.NewValidationError("describe the problem to the assistant before opening a ticket",
			map[string]any{"topic": "not identified"})
	}

	kb := s.assistant.KnowledgeBase()
	if strings.TrimSpace(title) == "" {
		title = kb.Label(state.LastTopic)
	}
	priority := domain.TicketPriorityMedium
	if state.Context.Sentiment.Urgency == assistant.UrgencyHigh {
		priority = domain.TicketPriorityHigh
	}

	ticket, err := s.tickets.CreateTicket(ctx, userID, TicketCreateInput{
		Topic:       string(state.LastTopic),
		Title:       title,
		Description: ticketDescription(*state),
		Priority:    priority,
		Tags:        []string{string(state.LastTopic)},
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordTicketFromChat()
	s.activity.Record(ctx, userID, "Opened ticket "+ticket.ExternalKey)
	return ticket, nil
}

// prompt answers a blank message from whatever state is stored, without writing.
func (s *ChatService) prompt(ctx context.Context, userID string) *ChatTurn {
	turn := &ChatTurn{
		Reply: assistant.Reply{
			Text:  assistant.PromptMessage,
			Kind:  assistant.KindPrompt,
			Topic: assistant.TopicUnknown,
		},
		Topic: assistant.TopicUnknown,
	}
	state, err := s.store.Load(ctx, userID)
	if err == nil && state != nil {
		turn.Topic = conversationTopic(state)
		turn.MessageCount = state.MessageCount
		turn.Escalated = state.Escalated
		turn.Reply.Tier = state.Tier
	}
	return turn
}

func (s *ChatService) lock(ctx context.Context, userID string) (func(), error) {
	start := time.Now()
	release, err := s.store.Lock(ctx, userID)
	s.metrics.ObserveStoreOp("lock", start)
	if errors.Is(err, repository.ErrConversationBusy) {
		return nil, errorutil.NewConflict("conversation is busy, try again", nil)
	}
	if err != nil {
		return nil, fmt.Errorf("lock conversation: %w", err)
	}
	return release, nil
}

// load returns the stored state. Corrupt state is deleted and reported as an error so the
// next turn starts fresh.
func (s *ChatService) load(ctx context.Context, userID string) (*assistant.State, error) {
	start := time.Now()
	state, err := s.store.Load(ctx, userID)
	s.metrics.ObserveStoreOp("load", start)
	if errors.Is(err, repository.ErrCorruptState) {
		s.logger.Warn("discarding corrupt conversation state", zap.String("user_id", userID), zap.Error(err))
		if delErr := s.store.Delete(ctx, userID); delErr != nil {
			s.logger.Error("delete corrupt conversation state", zap.String("user_id", userID), zap.Error(delErr))
		}
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation: %w", err)
	}
	return state, nil
}

func (s *ChatService) appendHistory(ctx context.Context, userID, message string, reply assistant.Reply) {
	now := s.now().UTC()
	start := time.Now()
	err := s.store.AppendHistory(ctx, userID,
		domain.ChatMessage{Role: domain.ChatRoleUser, Text: message, CreatedAt: now},
		domain.ChatMessage{Role: domain.ChatRoleAssistant, Text: reply.Text, Topic: string(reply.Topic), CreatedAt: now},
	)
	s.metrics.ObserveStoreOp("append_history", start)
	if err != nil {
		s.logger.Warn("chat history write failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func activityLine(message string, topic assistant.TopicKey) string {
	preview := []rune(strings.TrimSpace(message))
	if len(preview) > activityPreviewRunes {
		preview = preview[:activityPreviewRunes]
	}
	return fmt.Sprintf("Chat: %s... -> Topic: %s", string(preview), topic)
}

func ticketDescription(state assistant.State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Opened from a conversation with the assistant after %d messages.\n", state.MessageCount)
	if state.Tier != assistant.TierNone {
		fmt.Fprintf(&b, "Troubleshooting reached the %s tier.\n", state.Tier)
	}
	if items := assistant.Checklist(state.Context); len(items) > 0 {
		b.WriteString("\n")
		for _, item := range items {
			b.WriteString("- " + item + "\n")
		}
	}
	return strings.TrimSpace(b.String())
}
