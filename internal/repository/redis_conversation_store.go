package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/spec-kit/helpdesk-service/internal/assistant"
	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const lockPollInterval = 25 * time.Millisecond

// releaseScript deletes the lock only while it still holds our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisConversationStore struct {
	client redis.UniversalClient
	opts   StoreOptions
}

// NewRedisConversationStore stores state as JSON strings and history as capped lists.
func NewRedisConversationStore(client redis.UniversalClient, opts StoreOptions) ConversationStore {
	return &redisConversationStore{client: client, opts: opts.withDefaults()}
}

func (s *redisConversationStore) Load(ctx context.Context, key string) (*assistant.State, error) {
	raw, err := s.client.Get(ctx, s.opts.stateKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load state: %w", err)
	}
	return decodeState(raw)
}

func (s *redisConversationStore) Save(ctx context.Context, key string, state assistant.State) error {
	if err := state.Validate(); err != nil {
		return err
	}
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.opts.stateKey(key), raw, s.opts.StateTTL)
	pipe.Expire(ctx, s.opts.historyKey(key), s.opts.StateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

func (s *redisConversationStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.opts.stateKey(key), s.opts.historyKey(key)).Err(); err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}

func (s *redisConversationStore) AppendHistory(ctx context.Context, key string, messages ...domain.ChatMessage) error {
	if len(messages) == 0 {
		return nil
	}
	values := make([]any, 0, len(messages))
	for _, msg := range messages {
		raw, err := json.Marshal(msg)
		if err != nil {
			return fmt.Errorf("encode history: %w", err)
		}
		values = append(values, raw)
	}

	hk := s.opts.historyKey(key)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, hk, values...)
	pipe.LTrim(ctx, hk, int64(-s.opts.HistoryLimit), -1)
	pipe.Expire(ctx, hk, s.opts.StateTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// History skips entries that no longer decode.
func (s *redisConversationStore) History(ctx context.Context, key string) ([]domain.ChatMessage, error) {
	items, err := s.client.LRange(ctx, s.opts.historyKey(key), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read history: %w", err)
	}
	out := make([]domain.ChatMessage, 0, len(items))
	for _, item := range items {
		var msg domain.ChatMessage
		if json.Unmarshal([]byte(item), &msg) != nil {
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}

// Lock polls SET NX until it wins or the wait budget runs out.
func (s *redisConversationStore) Lock(ctx context.Context, key string) (func(), error) {
	lk := s.opts.lockKey(key)
	token := uuid.NewString()
	deadline := time.Now().Add(s.opts.LockWait)

	for {
		ok, err := s.client.SetNX(ctx, lk, token, s.opts.LockTTL).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock: %w", err)
		}
		if ok {
			break
		}
		if !time.Now().Before(deadline) {
			return nil, ErrConversationBusy
		}
		select {
		case <-ctx.Done():
			return nil, ErrConversationBusy
		case <-time.After(lockPollInterval):
		}
	}

	var once sync.Once
	release := func() {
		once.Do(func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = releaseScript.Run(releaseCtx, s.client, []string{lk}, token).Err()
		})
	}
	return release, nil
}

func decodeState(raw []byte) (*assistant.State, error) {
	var state assistant.State
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	if err := state.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptState, err)
	}
	return &state, nil
}
