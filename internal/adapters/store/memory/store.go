package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

type thread struct {
	msgs       []ports.Message
	lastActive time.Time
}

// Store keeps conversations in process memory; they are lost on restart. A
// thread idle for longer than ttl reads as unknown, and Purge frees it.
type Store struct {
	mu      sync.RWMutex
	threads map[string]*thread
	ttl     time.Duration
	now     func() time.Time
}

var _ ports.ConversationStore = (*Store)(nil)

// NewStore creates an empty store. A zero ttl keeps threads forever.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		threads: make(map[string]*thread),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *Store) Append(ctx context.Context, threadID string, msgs ...ports.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if threadID == "" {
		return fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	t, ok := s.threads[threadID]
	if !ok || s.expired(t, now) {
		t = &thread{}
		s.threads[threadID] = t
	}
	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = now.UTC()
		}
		t.msgs = append(t.msgs, m)
	}
	t.lastActive = now
	return nil
}

func (s *Store) History(ctx context.Context, threadID string) ([]ports.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.threads[threadID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownConversation, threadID)
	}
	if s.expired(t, s.now()) {
		return nil, fmt.Errorf("%w: %s expired", domain.ErrUnknownConversation, threadID)
	}
	return slices.Clone(t.msgs), nil
}

// Purge drops threads idle for longer than ttl and reports the number of
// removed messages.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.ttl <= 0 {
		return 0, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	var removed int64
	for id, t := range s.threads {
		if s.expired(t, now) {
			removed += int64(len(t.msgs))
			delete(s.threads, id)
		}
	}
	return removed, nil
}

func (s *Store) expired(t *thread, now time.Time) bool {
	return s.ttl > 0 && now.Sub(t.lastActive) > s.ttl
}
