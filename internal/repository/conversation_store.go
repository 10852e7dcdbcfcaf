package repository

import (
	"context"
	"errors"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

var (
	// ErrConversationBusy is returned when another turn holds the conversation lock past the wait budget.
	ErrConversationBusy = errors.New("conversation is busy")
	// ErrCorruptState is returned when stored state cannot be decoded or fails validation.
	ErrCorruptState = errors.New("corrupt conversation state")
)

// ConversationStore keeps per-user assistant state and the chat transcript.
// Load returns nil, nil when no conversation exists.
type ConversationStore interface {
	Load(ctx context.Context, key string) (*assistant.State, error)
	Save(ctx context.Context, key string, state assistant.State) error
	Delete(ctx context.Context, key string) error
	AppendHistory(ctx context.Context, key string, messages ...domain.ChatMessage) error
	History(ctx context.Context, key string) ([]domain.ChatMessage, error)
	Lock(ctx context.Context, key string) (release func(), err error)
}

// StoreOptions tunes retention and locking for both store implementations.
type StoreOptions struct {
	KeyPrefix    string
	StateTTL     time.Duration
	LockTTL      time.Duration
	LockWait     time.Duration
	HistoryLimit int
}

func (o StoreOptions) withDefaults() StoreOptions {
	if o.KeyPrefix == "" {
		o.KeyPrefix = "helpdesk:chat"
	}
	if o.StateTTL <= 0 {
		o.StateTTL = 24 * time.Hour
	}
	if o.LockTTL <= 0 {
		o.LockTTL = 10 * time.Second
	}
	if o.LockWait < 0 {
		o.LockWait = 0
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = 20
	}
	return o
}

func (o StoreOptions) stateKey(key string) string   { return o.KeyPrefix + ":state:" + key }
func (o StoreOptions) historyKey(key string) string { return o.KeyPrefix + ":history:" + key }
func (o StoreOptions) lockKey(key string) string    { return o.KeyPrefix + ":lock:" + key }
