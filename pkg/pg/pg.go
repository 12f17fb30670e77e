package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

var (
	// ErrFailedToParseConfig is returned for a malformed connection string.
	ErrFailedToParseConfig = errors.New("failed to parse postgres config")

	// ErrFailedToConnect is returned when all connection attempts fail.
	ErrFailedToConnect = errors.New("failed to open postgres connection")

	// ErrFailedToMigrate is returned when applying migrations fails.
	ErrFailedToMigrate = errors.New("failed to apply postgres migrations")
)

// Config is the env-driven postgres configuration for the notification
// store.
type Config struct {
	ConnectionString string        `env:"NOTIFY_PG_CONN_URL,required"`
	MaxOpenConns     int32         `env:"NOTIFY_PG_MAX_OPEN_CONNS" envDefault:"10"`
	MinConns         int32         `env:"NOTIFY_PG_MIN_CONNS" envDefault:"2"`
	RetryAttempts    int           `env:"NOTIFY_PG_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval    time.Duration `env:"NOTIFY_PG_RETRY_INTERVAL" envDefault:"5s"`
	MigrationsPath   string        `env:"NOTIFY_PG_MIGRATIONS_PATH" envDefault:"migrations"`
}

// Connect establishes a connection pool with linear backoff between
// attempts, so a restarting database does not fail engine startup.
func Connect(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	connConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, errors.Join(ErrFailedToParseConfig, err)
	}
	connConfig.MaxConns = cfg.MaxOpenConns
	connConfig.MinConns = cfg.MinConns

	for i := range cfg.RetryAttempts {
		pool, err := pgxpool.NewWithConfig(ctx, connConfig)
		if err == nil {
			if err = pool.Ping(ctx); err == nil {
				return pool, nil
			}
			pool.Close()
		}
		select {
		case <-ctx.Done():
			return nil, errors.Join(ErrFailedToConnect, ctx.Err())
		case <-time.After(time.Duration(i+1) * cfg.RetryInterval):
		}
	}
	return nil, ErrFailedToConnect
}

// Migrate applies the goose migrations under cfg.MigrationsPath. Goose
// needs a database/sql handle, so the pgx pool is bridged through stdlib.
func Migrate(ctx context.Context, pool *pgxpool.Pool, cfg Config) error {
	db := stdlib.OpenDBFromPool(pool)
	defer func(db *sql.DB) {
		_ = db.Close()
	}(db)

	if err := goose.SetDialect("postgres"); err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}
	if err := goose.UpContext(ctx, db, cfg.MigrationsPath); err != nil {
		return errors.Join(ErrFailedToMigrate, err)
	}
	return nil
}
