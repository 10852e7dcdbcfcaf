package service

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/pkg/util/errorutil"
)

type chatFixture struct {
	svc      *ChatService
	store    *repository.MemoryConversationStore
	tickets  *fakeTicketRepo
	activity *fakeActivityRepo
	events   *eventRecorder
	metrics  *observability.Metrics
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	kb, err := assistant.DefaultKnowledgeBase()
	require.NoError(t, err)

	f := &chatFixture{
		store:    repository.NewMemoryConversationStore(repository.StoreOptions{HistoryLimit: 20}),
		tickets:  &fakeTicketRepo{},
		activity: &fakeActivityRepo{},
		events:   &eventRecorder{},
		metrics:  observability.NewMetrics(),
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventChatEscalated, events.EventChatResolved, events.EventChatReset, events.EventTicketCreated} {
		dispatcher.Subscribe(et, f.events.record)
	}
	logger := zap.NewNop()

	f.svc = NewChatService(ChatDependencies{
		Assistant:  assistant.New(kb),
		Store:      f.store,
		Tickets:    NewTicketService(TicketDependencies{TicketRepo: f.tickets, Dispatcher: dispatcher, Logger: logger}),
		Activity:   NewActivityService(f.activity, logger),
		Dispatcher: dispatcher,
		Metrics:    f.metrics,
		Logger:     logger,
	})
	return f
}

func domainCode(t *testing.T, err error) string {
	t.Helper()
	var de *errorutil.DomainError
	require.True(t, errors.As(err, &de), "expected a DomainError, got %v", err)
	return de.Code
}

func TestChatService_SendAnswersAndPersists(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	turn, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.NoError(t, err)

	assert.Equal(t, assistant.KindAnswer, turn.Reply.Kind)
	assert.Equal(t, assistant.TopicKey("wifi"), turn.Reply.Topic)
	assert.Equal(t, 1, turn.MessageCount)
	assert.False(t, turn.Escalated)

	state, err := f.store.Load(ctx, "u-1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, assistant.TierBasic, state.Tier)

	history, err := f.svc.History(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, domain.ChatRoleUser, history[0].Role)
	assert.Equal(t, "wifi fungerer ikke", history[0].Text)
	assert.Equal(t, domain.ChatRoleAssistant, history[1].Role)
	assert.Equal(t, turn.Reply.Text, history[1].Text)

	assert.Equal(t, []string{"Chat: wifi fungerer ikke... -> Topic: wifi"}, f.activity.actions())
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ChatTurnsTotal.WithLabelValues("wifi", "answer")))
}

func TestChatService_ActivityPreviewIsTruncated(t *testing.T) {
	assert.Equal(t,
		"Chat: aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa... -> Topic: unknown",
		activityLine(strings.Repeat("a", 80), assistant.TopicUnknown))
}

func TestChatService_BlankMessageLeavesStateAlone(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.NoError(t, err)

	turn, err := f.svc.Send(ctx, "u-1", "   ")
	require.NoError(t, err)
	assert.Equal(t, assistant.KindPrompt, turn.Reply.Kind)
	assert.Equal(t, assistant.PromptMessage, turn.Reply.Text)
	assert.Equal(t, 1, turn.MessageCount)

	state, err := f.store.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, 1, state.MessageCount)
	assert.Len(t, f.activity.actions(), 1)
}

func TestChatService_EscalationPublishedOnce(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	turn, err := f.svc.Send(ctx, "u-1", "jeg vil snakke med et menneske")
	require.NoError(t, err)
	assert.Equal(t, assistant.KindHandoff, turn.Reply.Kind)
	assert.True(t, turn.Escalated)

	_, err = f.svc.Send(ctx, "u-1", "jeg vil snakke med et menneske")
	require.NoError(t, err)

	escalations := f.events.ofType(events.EventChatEscalated)
	require.Len(t, escalations, 1)
	payload, ok := escalations[0].Payload.(events.ChatEscalatedPayload)
	require.True(t, ok)
	assert.Equal(t, string(assistant.ReasonHumanRequested), payload.Reason)
	assert.Equal(t, "u-1", escalations[0].ConversationID)
	assert.NotEmpty(t, escalations[0].ID)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.EscalationsTotal.WithLabelValues("human_requested")))
}

func TestChatService_TurnCapEscalates(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	var last *ChatTurn
	for _, msg := range []string{"wifi fungerer ikke", "fortsatt", "fortsatt samme problem", "virker ikke"} {
		turn, err := f.svc.Send(ctx, "u-1", msg)
		require.NoError(t, err)
		last = turn
	}

	assert.Equal(t, assistant.KindEscalation, last.Reply.Kind)
	assert.True(t, last.Escalated)
	assert.Len(t, f.events.ofType(events.EventChatEscalated), 1)
}

func TestChatService_ResolvedPublishesEvent(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.NoError(t, err)
	turn, err := f.svc.Send(ctx, "u-1", "takk, det fungerte!")
	require.NoError(t, err)

	assert.Equal(t, assistant.KindResolved, turn.Reply.Kind)
	resolved := f.events.ofType(events.EventChatResolved)
	require.Len(t, resolved, 1)
	assert.Equal(t, "wifi", resolved[0].Payload.(events.ChatResolvedPayload).Topic)
}

func TestChatService_ResetForgetsConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.NoError(t, err)

	msg, err := f.svc.Reset(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, assistant.ResetMessage, msg)

	state, err := f.store.Load(ctx, "u-1")
	require.NoError(t, err)
	assert.Nil(t, state)
	history, err := f.svc.History(ctx, "u-1")
	require.NoError(t, err)
	assert.Empty(t, history)

	assert.Contains(t, f.activity.actions(), "Reset chat")
	assert.Len(t, f.events.ofType(events.EventChatReset), 1)

	turn, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.NoError(t, err)
	assert.Equal(t, 1, turn.MessageCount)
}

func TestChatService_BusyConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	release, err := f.store.Lock(ctx, "u-1")
	require.NoError(t, err)
	defer release()

	_, err = f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", domainCode(t, err))

	var de *errorutil.DomainError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, http.StatusConflict, de.HTTPStatus)
}

type corruptStore struct {
	*repository.MemoryConversationStore
	deleted []string
}

func (c *corruptStore) Load(context.Context, string) (*assistant.State, error) {
	return nil, repository.ErrCorruptState
}

func (c *corruptStore) Delete(ctx context.Context, key string) error {
	c.deleted = append(c.deleted, key)
	return c.MemoryConversationStore.Delete(ctx, key)
}

func TestChatService_CorruptStateIsDiscarded(t *testing.T) {
	f := newChatFixture(t)
	store := &corruptStore{MemoryConversationStore: repository.NewMemoryConversationStore(repository.StoreOptions{})}
	f.svc.store = store

	_, err := f.svc.Send(context.Background(), "u-1", "wifi fungerer ikke")

	assert.ErrorIs(t, err, repository.ErrCorruptState)
	assert.Equal(t, []string{"u-1"}, store.deleted)
}

func TestChatService_ActivityFailureDoesNotFailTurn(t *testing.T) {
	f := newChatFixture(t)
	f.activity.err = errors.New("db down")

	turn, err := f.svc.Send(context.Background(), "u-1", "wifi fungerer ikke")

	require.NoError(t, err)
	assert.Equal(t, assistant.KindAnswer, turn.Reply.Kind)
}

func TestChatService_OpenTicketNeedsTopic(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.OpenTicket(ctx, "u-1", "")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))

	_, err = f.svc.Send(ctx, "u-1", "hei")
	require.NoError(t, err)
	_, err = f.svc.OpenTicket(ctx, "u-1", "")
	assert.Equal(t, "VALIDATION_FAILED", domainCode(t, err))
}

func TestChatService_OpenTicketFromConversation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke og jeg er frustrert, det haster")
	require.NoError(t, err)

	ticket, err := f.svc.OpenTicket(ctx, "u-1", "")
	require.NoError(t, err)

	kb := f.svc.assistant.KnowledgeBase()
	assert.Equal(t, kb.Label("wifi"), ticket.Title)
	assert.Equal(t, domain.TicketPriorityHigh, ticket.Priority)
	assert.Equal(t, []string{"wifi"}, ticket.Tags)
	assert.Equal(t, "wifi", ticket.Topic)
	assert.Equal(t, domain.TicketStatusOpen, ticket.Status)
	assert.Regexp(t, `^TCK-[0-9A-F]{8}$`, ticket.ExternalKey)
	assert.Contains(t, ticket.Description, "Opened from a conversation")

	created := f.events.ofType(events.EventTicketCreated)
	require.Len(t, created, 1)
	assert.Equal(t, ticket.ID, created[0].TicketID)

	listed, err := NewTicketService(TicketDependencies{TicketRepo: f.tickets}).ListUserTickets(ctx, "u-1", 10, 0)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.TicketsFromChat))
}

func TestChatService_OpenTicketKeepsGivenTitle(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	_, err := f.svc.Send(ctx, "u-1", "wifi fungerer ikke")
	require.NoError(t, err)

	ticket, err := f.svc.OpenTicket(ctx, "u-1", "  Wi-Fi i lesesalen  ")
	require.NoError(t, err)
	assert.Equal(t, "Wi-Fi i lesesalen", ticket.Title)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
}
