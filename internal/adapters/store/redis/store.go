// Package redis stores conversation history as one Redis list per thread.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/google/uuid"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

const keyPrefix = "readingd:thread:"

// Commands is the subset of the go-redis client the store uses.
type Commands interface {
	RPush(ctx context.Context, key string, values ...interface{}) *goredis.IntCmd
	Expire(ctx context.Context, key string, expiration time.Duration) *goredis.BoolCmd
	LRange(ctx context.Context, key string, start, stop int64) *goredis.StringSliceCmd
}

// Store keeps each thread under its own key. Every append refreshes the
// key's TTL, so a thread expires ttl after its last message.
type Store struct {
	rdb Commands
	ttl time.Duration
}

var _ ports.ConversationStore = (*Store)(nil)

// NewStore wraps rdb. A zero ttl keeps threads forever.
func NewStore(rdb Commands, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

func threadKey(threadID string) string { return keyPrefix + threadID }

func (s *Store) Append(ctx context.Context, threadID string, msgs ...ports.Message) error {
	if threadID == "" {
		return fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput)
	}
	if len(msgs) == 0 {
		return nil
	}

	values := make([]interface{}, len(msgs))
	for i, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now().UTC()
		}
		raw, err := json.Marshal(m)
		if err != nil {
			return fmt.Errorf("encode message: %w", err)
		}
		values[i] = string(raw)
	}

	key := threadKey(threadID)
	if err := s.rdb.RPush(ctx, key, values...).Err(); err != nil {
		return fmt.Errorf("append to %s: %w", key, err)
	}
	if s.ttl > 0 {
		if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("refresh ttl of %s: %w", key, err)
		}
	}
	return nil
}

func (s *Store) History(ctx context.Context, threadID string) ([]ports.Message, error) {
	key := threadKey(threadID)
	raw, err := s.rdb.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", key, err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownConversation, threadID)
	}

	msgs := make([]ports.Message, len(raw))
	for i, item := range raw {
		if err := json.Unmarshal([]byte(item), &msgs[i]); err != nil {
			return nil, fmt.Errorf("decode message %d of %s: %w", i, key, err)
		}
	}
	return msgs, nil
}
