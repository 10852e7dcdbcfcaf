package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/config"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/observability"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	"github.com/spec-kit/helpdesk-service/internal/service"
)

type memUsers struct {
	mu    sync.Mutex
	users []*domain.User
}

func (m *memUsers) Create(_ context.Context, u *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u.ID = "user-" + u.Email
	m.users = append(m.users, u)
	return nil
}

func (m *memUsers) find(match func(*domain.User) bool) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if match(u) {
			return u, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memUsers) GetByID(_ context.Context, id string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.ID == id })
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	return m.find(func(u *domain.User) bool { return u.Email == email })
}

type memStaff struct {
	staff []*domain.StaffMember
}

func (m *memStaff) Create(_ context.Context, s *domain.StaffMember) error {
	m.staff = append(m.staff, s)
	return nil
}

func (m *memStaff) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	for _, s := range m.staff {
		if s.ID == id {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *memStaff) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	for _, s := range m.staff {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, pgx.ErrNoRows
}

type memTickets struct {
	mu      sync.Mutex
	tickets []domain.Ticket
}

func (m *memTickets) Create(_ context.Context, t *domain.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = "t-" + t.ExternalKey
	t.CreatedAt = time.Now()
	m.tickets = append(m.tickets, *t)
	return nil
}

func (m *memTickets) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Ticket{}
	for _, t := range m.tickets {
		if t.RequesterID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type memActivity struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
}

func (m *memActivity) Append(_ context.Context, e *domain.ActivityEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = int64(len(m.entries) + 1)
	e.CreatedAt = time.Now()
	m.entries = append(m.entries, *e)
	return nil
}

func (m *memActivity) Recent(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.ActivityEntry{}
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

type pingFunc func(context.Context) error

func (p pingFunc) Ping(ctx context.Context) error { return p(ctx) }

type failingStore struct {
	repository.ConversationStore
}

func (failingStore) Save(context.Context, string, assistant.State) error {
	return errors.New("redis down")
}

type testServer struct {
	app    *fiber.App
	tokens *auth.TokenManager
	store  repository.ConversationStore
}

func newTestServer(t *testing.T, wrapStore func(repository.ConversationStore) repository.ConversationStore) *testServer {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	kb, err := assistant.DefaultKnowledgeBase()
	require.NoError(t, err)

	var store repository.ConversationStore = repository.NewMemoryConversationStore(repository.StoreOptions{})
	if wrapStore != nil {
		store = wrapStore(store)
	}

	users := &memUsers{}
	staffHash, err := auth.HashPassword("vaktleder1", 4)
	require.NoError(t, err)
	staff := &memStaff{staff: []*domain.StaffMember{
		{ID: "s-1", Name: "Ola", Email: "ola@example.no", PasswordHash: staffHash, Role: domain.StaffRoleTeamLead, Active: true},
	}}
	tokens := auth.NewTokenManager("secret", "helpdesk", 15)
	dispatcher := events.NewInMemoryDispatcher()

	authSvc := service.NewAuthService(config.AuthConfig{BcryptCost: 4}, service.AuthDependencies{UserRepo: users, StaffRepo: staff, Tokens: tokens})
	activitySvc := service.NewActivityService(&memActivity{}, logger)
	ticketSvc := service.NewTicketService(service.TicketDependencies{TicketRepo: &memTickets{}, Dispatcher: dispatcher, Logger: logger})
	chatSvc := service.NewChatService(service.ChatDependencies{
		Assistant:  assistant.New(kb),
		Store:      store,
		Tickets:    ticketSvc,
		Activity:   activitySvc,
		Dispatcher: dispatcher,
		Metrics:    metrics,
		Logger:     logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health: handlers.NewHealthHandler("helpdesk", "test", map[string]handlers.Pinger{
			"redis": pingFunc(func(context.Context) error { return nil }),
		}),
		Users:          handlers.NewUsersHandler(authSvc),
		Staff:          handlers.NewStaffHandler(authSvc, activitySvc),
		Chat:           handlers.NewChatHandler(chatSvc, logger),
		Tickets:        handlers.NewTicketsHandler(ticketSvc),
		Metrics:        metrics.Handler(),
		AuthMiddleware: auth.NewAuthMiddleware(tokens, users, staff),
	})
	return &testServer{app: app, tokens: tokens, store: store}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (int, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]any{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *testServer) registerUser(t *testing.T) string {
	t.Helper()
	status, body := s.do(t, nethttp.MethodPost, "/auth/users/register", "", map[string]string{
		"name": "Kari", "email": "kari@example.no", "password": "hemmelig123",
	})
	require.Equal(t, nethttp.StatusCreated, status)
	data := body["data"].(map[string]any)
	return data["auth"].(map[string]any)["token"].(string)
}

func TestRoutes_Health(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "alive", body["status"])

	status, body = s.do(t, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ready", body["status"])
}

func TestRoutes_ChatRequiresUser(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, nethttp.MethodPost, "/chat", "", map[string]string{"message": "hei"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "UNAUTHORIZED", body["error"].(map[string]any)["code"])

	staffToken, err := s.tokens.Issue("s-1", domain.SubjectTypeStaff, domain.StaffRoleTeamLead)
	require.NoError(t, err)
	status, _ = s.do(t, nethttp.MethodPost, "/chat", staffToken.Value, map[string]string{"message": "hei"})
	assert.Equal(t, nethttp.StatusForbidden, status)
}

func TestRoutes_ChatConversation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.registerUser(t)

	status, body := s.do(t, nethttp.MethodPost, "/chat", token, map[string]string{"message": "wifi fungerer ikke"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "wifi", body["topic"])
	assert.Equal(t, "high", body["confidence"])
	assert.Equal(t, "answer", body["kind"])
	assert.Equal(t, "basic", body["tier"])
	assert.EqualValues(t, 1, body["message_count"])
	assert.Equal(t, false, body["escalated"])
	assert.NotEmpty(t, body["reply"])

	status, body = s.do(t, nethttp.MethodPost, "/chat", token, map[string]string{"message": ""})
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, assistant.PromptMessage, body["reply"])
	assert.EqualValues(t, 1, body["message_count"], "blank input does not consume a turn")

	status, body = s.do(t, nethttp.MethodGet, "/chat/history", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 2)

	status, body = s.do(t, nethttp.MethodPost, "/chat/ticket", token, nil)
	require.Equal(t, nethttp.StatusCreated, status)
	ticket := body["data"].(map[string]any)
	assert.Equal(t, "wifi", ticket["topic"])
	assert.Equal(t, "MEDIUM", ticket["priority"])

	status, body = s.do(t, nethttp.MethodGet, "/tickets", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Len(t, body["data"], 1)

	status, body = s.do(t, nethttp.MethodPost, "/chat/reset", token, nil)
	require.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, assistant.ResetMessage, body["message"])

	status, body = s.do(t, nethttp.MethodPost, "/chat", token, map[string]string{"message": "hei"})
	require.Equal(t, nethttp.StatusOK, status)
	assert.EqualValues(t, 1, body["message_count"])
	assert.Equal(t, "low", body["confidence"])
	assert.Equal(t, "clarification", body["kind"])
}

func TestRoutes_ChatTicketWithoutTopic(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.registerUser(t)

	status, body := s.do(t, nethttp.MethodPost, "/chat/ticket", token, map[string]string{"title": "Hjelp"})
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, "VALIDATION_FAILED", body["error"].(map[string]any)["code"])
}

func TestRoutes_ChatFailureReturnsApology(t *testing.T) {
	s := newTestServer(t, func(inner repository.ConversationStore) repository.ConversationStore {
		return failingStore{ConversationStore: inner}
	})
	token := s.registerUser(t)

	status, body := s.do(t, nethttp.MethodPost, "/chat", token, map[string]string{"message": "wifi fungerer ikke"})

	assert.Equal(t, nethttp.StatusInternalServerError, status)
	assert.Equal(t, assistant.ApologyMessage, body["reply"])
}

func TestRoutes_ChatBusyConversation(t *testing.T) {
	s := newTestServer(t, nil)
	token := s.registerUser(t)

	release, err := s.store.Lock(context.Background(), "user-kari@example.no")
	require.NoError(t, err)
	defer release()

	status, body := s.do(t, nethttp.MethodPost, "/chat", token, map[string]string{"message": "wifi fungerer ikke"})
	assert.Equal(t, nethttp.StatusConflict, status)
	assert.Equal(t, "CONFLICT", body["error"].(map[string]any)["code"])
}

func TestRoutes_AdminActivity(t *testing.T) {
	s := newTestServer(t, nil)
	userToken := s.registerUser(t)
	_, _ = s.do(t, nethttp.MethodPost, "/chat", userToken, map[string]string{"message": "wifi fungerer ikke"})

	status, _ := s.do(t, nethttp.MethodGet, "/admin/activity", userToken, nil)
	assert.Equal(t, nethttp.StatusForbidden, status)

	status, body := s.do(t, nethttp.MethodPost, "/auth/staff/login", "", map[string]string{
		"email": "ola@example.no", "password": "vaktleder1",
	})
	require.Equal(t, nethttp.StatusOK, status)
	staffToken := body["data"].(map[string]any)["auth"].(map[string]any)["token"].(string)

	status, body = s.do(t, nethttp.MethodGet, "/admin/activity?limit=10", staffToken, nil)
	require.Equal(t, nethttp.StatusOK, status)
	entries := body["data"].([]any)
	require.Len(t, entries, 1)
	assert.Equal(t, "Chat: wifi fungerer ikke... -> Topic: wifi", entries[0].(map[string]any)["action"])

	status, _ = s.do(t, nethttp.MethodGet, "/admin/activity?limit=0", staffToken, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
}

func TestRoutes_UnknownRouteUsesErrorEnvelope(t *testing.T) {
	s := newTestServer(t, nil)

	status, body := s.do(t, nethttp.MethodGet, "/nope", "", nil)

	assert.Equal(t, nethttp.StatusNotFound, status)
	assert.Equal(t, "NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestRoutes_Metrics(t *testing.T) {
	s := newTestServer(t, nil)
	_, _ = s.do(t, nethttp.MethodGet, "/health/live", "", nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "http_requests_total")
}
