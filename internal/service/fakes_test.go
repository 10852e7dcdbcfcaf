package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
)

type fakeTicketRepo struct {
	mu      sync.Mutex
	tickets []domain.Ticket
}

func (f *fakeTicketRepo) Create(_ context.Context, t *domain.Ticket) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	t.ID = "ticket-" + t.ExternalKey
	t.CreatedAt = time.Now()
	t.UpdatedAt = t.CreatedAt
	f.tickets = append(f.tickets, *t)
	return nil
}

func (f *fakeTicketRepo) ListByUser(_ context.Context, userID string, _, _ int) ([]domain.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Ticket
	for _, t := range f.tickets {
		if t.RequesterID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeActivityRepo struct {
	mu      sync.Mutex
	entries []domain.ActivityEntry
	err     error
}

func (f *fakeActivityRepo) Append(_ context.Context, e *domain.ActivityEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	e.ID = int64(len(f.entries) + 1)
	f.entries = append(f.entries, *e)
	return nil
}

func (f *fakeActivityRepo) Recent(_ context.Context, limit int) ([]domain.ActivityEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.ActivityEntry, 0, len(f.entries))
	for i := len(f.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, f.entries[i])
	}
	return out, nil
}

func (f *fakeActivityRepo) actions() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.entries))
	for i, e := range f.entries {
		out[i] = e.Action
	}
	return out
}

type userRecord struct {
	users map[string]*domain.User
}

func (u *userRecord) Create(_ context.Context, user *domain.User) error {
	user.ID = "u-" + user.Email
	u.users[user.Email] = user
	return nil
}

func (u *userRecord) GetByID(_ context.Context, id string) (*domain.User, error) {
	for _, user := range u.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (u *userRecord) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	if user, ok := u.users[email]; ok {
		return user, nil
	}
	return nil, pgx.ErrNoRows
}

type staffRecord struct {
	staff map[string]*domain.StaffMember
}

func (s *staffRecord) Create(_ context.Context, m *domain.StaffMember) error {
	s.staff[m.Email] = m
	return nil
}

func (s *staffRecord) GetByID(_ context.Context, id string) (*domain.StaffMember, error) {
	for _, m := range s.staff {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (s *staffRecord) GetByEmail(_ context.Context, email string) (*domain.StaffMember, error) {
	if m, ok := s.staff[email]; ok {
		return m, nil
	}
	return nil, pgx.ErrNoRows
}

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}
