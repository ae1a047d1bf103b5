package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return NewStore(sqlx.NewDb(mockDB, "sqlmock"), zap.NewNop()), mock
}

func TestSaveSearch(t *testing.T) {
	store, mock := newMockStore(t)

	rec := &SearchRecord{
		Query:           "airspeed of an unladen swallow",
		SearchStrategy:  "sequential",
		QueryStrategy:   "verbatim",
		ResultFormat:    "answer",
		Status:          "completed",
		VisitedCount:    3,
		QueriesExecuted: json.RawMessage(`["airspeed of an unladen swallow"]`),
		Answer:          json.RawMessage(`{"content":"11 m/s"}`),
		StartedAt:       time.Now().Add(-time.Minute),
		FinishedAt:      time.Now(),
	}

	mock.ExpectExec(`INSERT INTO searches`).
		WithArgs(sqlmock.AnyArg(), rec.Query, rec.SearchStrategy, rec.QueryStrategy,
			rec.ResultFormat, rec.Status, rec.VisitedCount,
			[]byte(rec.QueriesExecuted), []byte(rec.Answer),
			rec.StartedAt, rec.FinishedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.SaveSearch(context.Background(), rec))
	assert.NotEqual(t, uuid.Nil, rec.ID, "missing id must be generated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveSearchPropagatesError(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`INSERT INTO searches`).
		WillReturnError(sql.ErrConnDone)

	err := store.SaveSearch(context.Background(), &SearchRecord{Query: "q"})
	assert.ErrorIs(t, err, sql.ErrConnDone)
}

func TestGetSearch(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "query", "search_strategy", "query_strategy", "result_format",
		"status", "visited_count", "queries_executed", "answer",
		"started_at", "finished_at", "created_at",
	}).AddRow(id, "q", "human", "verbatim", "answer",
		"completed", 2, []byte(`["q"]`), []byte(`{}`), now, now, now)

	mock.ExpectQuery(`SELECT \* FROM searches WHERE id = \$1`).
		WithArgs(id).
		WillReturnRows(rows)

	rec, err := store.GetSearch(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, id, rec.ID)
	assert.Equal(t, "q", rec.Query)
	assert.Equal(t, 2, rec.VisitedCount)
}

func TestGetSearchNotFound(t *testing.T) {
	store, mock := newMockStore(t)
	id := uuid.New()

	mock.ExpectQuery(`SELECT \* FROM searches WHERE id = \$1`).
		WithArgs(id).
		WillReturnError(sql.ErrNoRows)

	rec, err := store.GetSearch(context.Background(), id)
	require.NoError(t, err, "a missing record is not an error")
	assert.Nil(t, rec)
}

func TestRecentSearches(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Now()

	rows := sqlmock.NewRows([]string{
		"id", "query", "search_strategy", "query_strategy", "result_format",
		"status", "visited_count", "queries_executed", "answer",
		"started_at", "finished_at", "created_at",
	}).
		AddRow(uuid.New(), "newest", "human", "verbatim", "answer",
			"completed", 1, []byte(`[]`), []byte(`{}`), now, now, now).
		AddRow(uuid.New(), "older", "parallel", "single", "answer",
			"timed_out", 4, []byte(`[]`), []byte(`{}`), now, now, now)

	mock.ExpectQuery(`SELECT \* FROM searches ORDER BY created_at DESC LIMIT \$1`).
		WithArgs(20).
		WillReturnRows(rows)

	recs, err := store.RecentSearches(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "newest", recs[0].Query)
	assert.Equal(t, "timed_out", recs[1].Status)
}
