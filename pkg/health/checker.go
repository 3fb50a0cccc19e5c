package health

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/richxcame/carwash-pricing/pkg/common"
)

// DatabaseChecker returns a health check for the settings connection (database/sql)
func DatabaseChecker(db *sql.DB) common.Check {
	return func(ctx context.Context) error {
		if db == nil {
			return errors.New("database connection is nil")
		}
		return db.PingContext(ctx)
	}
}

// PoolChecker returns a health check for the pgx pool backing zone and catalog reads
func PoolChecker(pool *pgxpool.Pool) common.Check {
	return func(ctx context.Context) error {
		if pool == nil {
			return errors.New("database pool is nil")
		}
		return pool.Ping(ctx)
	}
}

// RedisChecker returns a health check function for Redis
func RedisChecker(client redis.UniversalClient) common.Check {
	return func(ctx context.Context) error {
		if client == nil {
			return errors.New("redis client is nil")
		}
		return client.Ping(ctx).Err()
	}
}

// NATSChecker reports whether the invalidation bus connection is usable
func NATSChecker(conn *nats.Conn) common.Check {
	return func(ctx context.Context) error {
		if conn == nil {
			return errors.New("nats connection is nil")
		}
		if !conn.IsConnected() {
			return fmt.Errorf("nats status %s", conn.Status())
		}
		return nil
	}
}
