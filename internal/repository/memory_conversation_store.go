package repository

import (
	"context"
	"sync"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

type memoryEntry struct {
	state     *assistant.State
	history   []domain.ChatMessage
	expiresAt time.Time
}

// MemoryConversationStore keeps conversations in process. It backs the CLI and tests.
type MemoryConversationStore struct {
	opts StoreOptions
	now  func() time.Time

	mu      sync.Mutex
	entries map[string]*memoryEntry
	locks   map[string]chan struct{}
}

// NewMemoryConversationStore returns an empty store.
func NewMemoryConversationStore(opts StoreOptions) *MemoryConversationStore {
	return &MemoryConversationStore{
		opts:    opts.withDefaults(),
		now:     time.Now,
		entries: make(map[string]*memoryEntry),
		locks:   make(map[string]chan struct{}),
	}
}

// entry returns the live entry for key, dropping it when expired. Callers hold mu.
func (s *MemoryConversationStore) entry(key string) *memoryEntry {
	e, ok := s.entries[key]
	if !ok {
		return nil
	}
	if !s.now().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil
	}
	return e
}

func (s *MemoryConversationStore) touch(key string) *memoryEntry {
	e := s.entry(key)
	if e == nil {
		e = &memoryEntry{}
		s.entries[key] = e
	}
	e.expiresAt = s.now().Add(s.opts.StateTTL)
	return e
}

func (s *MemoryConversationStore) Load(_ context.Context, key string) (*assistant.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(key)
	if e == nil || e.state == nil {
		return nil, nil
	}
	state := e.state.Clone()
	return &state, nil
}

func (s *MemoryConversationStore) Save(_ context.Context, key string, state assistant.State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := state.Clone()
	s.touch(key).state = &stored
	return nil
}

func (s *MemoryConversationStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryConversationStore) AppendHistory(_ context.Context, key string, messages ...domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(key)
	e.history = append(e.history, messages...)
	if extra := len(e.history) - s.opts.HistoryLimit; extra > 0 {
		e.history = append([]domain.ChatMessage(nil), e.history[extra:]...)
	}
	return nil
}

func (s *MemoryConversationStore) History(_ context.Context, key string) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.entry(key)
	if e == nil {
		return []domain.ChatMessage{}, nil
	}
	return append([]domain.ChatMessage{}, e.history...), nil
}

// Lock waits up to the configured budget for the per-key semaphore.
func (s *MemoryConversationStore) Lock(ctx context.Context, key string) (func(), error) {
	s.mu.Lock()
	sem, ok := s.locks[key]
	if !ok {
		sem = make(chan struct{}, 1)
		s.locks[key] = sem
	}
	s.mu.Unlock()

	timer := time.NewTimer(s.opts.LockWait)
	defer timer.Stop()

	select {
	case sem <- struct{}{}:
	default:
		select {
		case sem <- struct{}{}:
		case <-timer.C:
			return nil, ErrConversationBusy
		case <-ctx.Done():
			return nil, ErrConversationBusy
		}
	}

	var once sync.Once
	return func() { once.Do(func() { <-sem }) }, nil
}
