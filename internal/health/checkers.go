package health

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

// HTTPChecker probes an HTTP backend by GET-ing a URL.
type HTTPChecker struct {
	name     string
	url      string
	critical bool
	client   *http.Client
}

// NewHTTPChecker probes url; a response below 500 counts as healthy.
func NewHTTPChecker(name, url string, critical bool) *HTTPChecker {
	return &HTTPChecker{name: name, url: url, critical: critical, client: &http.Client{}}
}

func (c *HTTPChecker) Name() string   { return c.name }
func (c *HTTPChecker) Critical() bool { return c.critical }

func (c *HTTPChecker) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return nil
}

// RedisChecker pings the page cache.
type RedisChecker struct {
	client redis.UniversalClient
}

func NewRedisChecker(client redis.UniversalClient) *RedisChecker {
	return &RedisChecker{client: client}
}

func (c *RedisChecker) Name() string   { return "redis" }
func (c *RedisChecker) Critical() bool { return false }

func (c *RedisChecker) Check(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// PostgresChecker pings the search history database.
type PostgresChecker struct {
	db *sqlx.DB
}

func NewPostgresChecker(db *sqlx.DB) *PostgresChecker {
	return &PostgresChecker{db: db}
}

func (c *PostgresChecker) Name() string   { return "postgres" }
func (c *PostgresChecker) Critical() bool { return false }

func (c *PostgresChecker) Check(ctx context.Context) error {
	return c.db.PingContext(ctx)
}
