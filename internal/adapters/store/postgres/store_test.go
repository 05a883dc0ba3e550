package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randomtoy/readingd/internal/domain"
	"github.com/randomtoy/readingd/internal/ports"
)

var fixedNow = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func newMockStore(t *testing.T, ttl time.Duration) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})

	store := NewStore(sqlx.NewDb(db, "postgres"), ttl)
	store.now = func() time.Time { return fixedNow }
	return store, mock
}

func TestMigrate(t *testing.T) {
	store, mock := newMockStore(t, 0)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS conversation_messages")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Migrate(context.Background()))
}

func TestAppendInsertsInOneTransaction(t *testing.T) {
	store, mock := newMockStore(t, 0)
	created := fixedNow.Add(-time.Minute)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertMessage)).
		WithArgs("m1", "t1", "user", "question", created).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec(regexp.QuoteMeta(insertMessage)).
		WithArgs(sqlmock.AnyArg(), "t1", "assistant", "answer", fixedNow).
		WillReturnResult(sqlmock.NewResult(2, 1))
	mock.ExpectCommit()

	err := store.Append(context.Background(), "t1",
		ports.Message{ID: "m1", Role: ports.RoleUser, Content: "question", CreatedAt: created},
		ports.Message{Role: ports.RoleAssistant, Content: "answer"},
	)
	require.NoError(t, err)
}

func TestAppendRollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t, 0)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(insertMessage)).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	err := store.Append(context.Background(), "t1", ports.Message{Role: ports.RoleUser, Content: "x"})
	require.ErrorContains(t, err, "disk full")
}

func TestAppendRequiresThreadID(t *testing.T) {
	store, _ := newMockStore(t, 0)

	err := store.Append(context.Background(), "", ports.Message{Content: "x"})
	require.ErrorIs(t, err, domain.ErrInvalidInput)
}

func historyRows(last time.Time) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "role", "content", "created_at"}).
		AddRow("m1", "user", "question", last.Add(-time.Second)).
		AddRow("m2", "assistant", "answer", last)
}

func TestHistory(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)
	last := fixedNow.Add(-10 * time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(selectHistory)).WithArgs("t1").WillReturnRows(historyRows(last))

	history, err := store.History(context.Background(), "t1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ports.Message{ID: "m2", Role: ports.RoleAssistant, Content: "answer", CreatedAt: last}, history[1])
}

func TestHistoryUnknownThread(t *testing.T) {
	store, mock := newMockStore(t, 0)

	mock.ExpectQuery(regexp.QuoteMeta(selectHistory)).WithArgs("nope").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role", "content", "created_at"}))

	_, err := store.History(context.Background(), "nope")
	require.ErrorIs(t, err, domain.ErrUnknownConversation)
}

func TestHistoryExpiredThread(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(selectHistory)).WithArgs("t1").
		WillReturnRows(historyRows(fixedNow.Add(-2 * time.Hour)))

	_, err := store.History(context.Background(), "t1")
	require.ErrorIs(t, err, domain.ErrUnknownConversation)
}

func TestPurge(t *testing.T) {
	store, mock := newMockStore(t, time.Hour)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM conversation_messages")).
		WithArgs(fixedNow.Add(-time.Hour)).
		WillReturnResult(sqlmock.NewResult(0, 4))

	n, err := store.Purge(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
}

func TestPurgeWithoutTTLIsNoop(t *testing.T) {
	store, _ := newMockStore(t, 0)

	n, err := store.Purge(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
