// Package db persists completed searches for audit and replay. Storage
// is best-effort: a write failure never fails the search that produced
// the record.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// SearchRecord is one completed search as stored.
type SearchRecord struct {
	ID              uuid.UUID       `db:"id"`
	Query           string          `db:"query"`
	SearchStrategy  string          `db:"search_strategy"`
	QueryStrategy   string          `db:"query_strategy"`
	ResultFormat    string          `db:"result_format"`
	Status          string          `db:"status"`
	VisitedCount    int             `db:"visited_count"`
	QueriesExecuted json.RawMessage `db:"queries_executed"`
	Answer          json.RawMessage `db:"answer"`
	StartedAt       time.Time       `db:"started_at"`
	FinishedAt      time.Time       `db:"finished_at"`
	CreatedAt       time.Time       `db:"created_at"`
}

// Store wraps the postgres connection pool.
type Store struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// Open connects to postgres and verifies the connection. An empty DSN
// returns (nil, nil): persistence is optional.
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if dsn == "" {
		return nil, nil
	}
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewStore wraps an existing connection; used by tests with sqlmock.
func NewStore(db *sqlx.DB, logger *zap.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying pool for health probes.
func (s *Store) DB() *sqlx.DB { return s.db }

// SaveSearch inserts one completed search record.
func (s *Store) SaveSearch(ctx context.Context, rec *SearchRecord) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO searches (
			id, query, search_strategy, query_strategy, result_format,
			status, visited_count, queries_executed, answer,
			started_at, finished_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Query, rec.SearchStrategy, rec.QueryStrategy, rec.ResultFormat,
		rec.Status, rec.VisitedCount, rec.QueriesExecuted, rec.Answer,
		rec.StartedAt, rec.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search: %w", err)
	}
	return nil
}

// GetSearch loads one search record by ID.
func (s *Store) GetSearch(ctx context.Context, id uuid.UUID) (*SearchRecord, error) {
	var rec SearchRecord
	err := s.db.GetContext(ctx, &rec,
		`SELECT * FROM searches WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get search: %w", err)
	}
	return &rec, nil
}

// RecentSearches lists the most recent searches, newest first.
func (s *Store) RecentSearches(ctx context.Context, limit int) ([]SearchRecord, error) {
	if limit < 1 {
		limit = 20
	}
	var recs []SearchRecord
	err := s.db.SelectContext(ctx, &recs,
		`SELECT * FROM searches ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("list searches: %w", err)
	}
	return recs, nil
}
