// Package postgres persists conversation history in a single Postgres table.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversation_messages (
	seq        BIGSERIAL PRIMARY KEY,
	id         TEXT NOT NULL UNIQUE,
	thread_id  TEXT NOT NULL,
	role       TEXT NOT NULL,
	content    TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS conversation_messages_thread_idx ON conversation_messages (thread_id, seq);
`

const insertMessage = `INSERT INTO conversation_messages (id, thread_id, role, content, created_at) VALUES ($1, $2, $3, $4, $5)`

const selectHistory = `SELECT id, role, content, created_at FROM conversation_messages WHERE thread_id = $1 ORDER BY seq`

const deleteIdle = `DELETE FROM conversation_messages WHERE thread_id IN (
	SELECT thread_id FROM conversation_messages GROUP BY thread_id HAVING MAX(created_at) < $1
)`

// Store implements ports.ConversationStore. A thread whose newest message
// is older than ttl reads as unknown; Purge removes such threads.
type Store struct {
	db  *sqlx.DB
	ttl time.Duration
	now func() time.Time
}

var _ ports.ConversationStore = (*Store)(nil)

// Open connects to dsn with the lib/pq driver and verifies the connection.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return db, nil
}

// NewStore wraps db. A zero ttl keeps threads forever.
func NewStore(db *sqlx.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl, now: time.Now}
}

// Migrate creates the messages table when it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate conversation_messages: %w", err)
	}
	return nil
}

func (s *Store) Append(ctx context.Context, threadID string, msgs ...ports.Message) error {
	if threadID == "" {
		return fmt.Errorf("%w: thread id is required", domain.ErrInvalidInput)
	}
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, m := range msgs {
		if m.ID == "" {
			m.ID = uuid.NewString()
		}
		if m.CreatedAt.IsZero() {
			m.CreatedAt = s.now().UTC()
		}
		if _, err := tx.ExecContext(ctx, insertMessage, m.ID, threadID, string(m.Role), m.Content, m.CreatedAt); err != nil {
			return fmt.Errorf("insert message: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *Store) History(ctx context.Context, threadID string) ([]ports.Message, error) {
	var msgs []ports.Message
	if err := s.db.SelectContext(ctx, &msgs, selectHistory, threadID); err != nil {
		return nil, fmt.Errorf("select history: %w", err)
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownConversation, threadID)
	}
	if s.ttl > 0 && s.now().Sub(msgs[len(msgs)-1].CreatedAt) > s.ttl {
		return nil, fmt.Errorf("%w: %s expired", domain.ErrUnknownConversation, threadID)
	}
	return msgs, nil
}

// Purge deletes threads idle for longer than ttl and reports the number of
// removed messages.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, deleteIdle, s.now().Add(-s.ttl))
	if err != nil {
		return 0, fmt.Errorf("purge idle threads: %w", err)
	}
	return res.RowsAffected()
}
