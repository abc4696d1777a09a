package tokenstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/logging"
	"github.com/sethvargo/go-retry"
)

const (
	TypeMemory   = "memory"
	TypeRedis    = "redis"
	TypePostgres = "postgres"

	DefaultConnectAttempts  = 5
	DefaultConnectBaseDelay = 2 * time.Second
)

// Config selects a backend and controls the startup connection check.
type Config struct {
	Type             string
	Redis            RedisConfig
	ConnectAttempts  int
	ConnectBaseDelay time.Duration
}

// Pinger is anything WaitReady can ping.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// New builds the Store named by cfg.Type. db is only used by the postgres
// backend and must already be migrated. Network backends are pinged with
// exponential backoff before New returns.
func New(ctx context.Context, cfg Config, db *sql.DB, logger logging.Logger) (Store, error) {
	logger = logger.With("module", "tokenstore", "store_type", cfg.Type)

	var s Store
	switch cfg.Type {
	case TypeMemory, "":
		logger.Info(ctx, "using in-memory token store")
		return NewMemoryStore(), nil
	case TypeRedis:
		s = NewRedisStore(cfg.Redis)
	case TypePostgres:
		if db == nil {
			return nil, fmt.Errorf("%w: postgres token store needs a database", common.ErrorValidation)
		}
		s = NewPostgresStore(db)
	default:
		return nil, fmt.Errorf("%w: unknown store type %q", common.ErrorValidation, cfg.Type)
	}

	if err := WaitReady(ctx, s, cfg.ConnectAttempts, cfg.ConnectBaseDelay, logger); err != nil {
		_ = s.Close()
		return nil, err
	}
	logger.Info(ctx, "token store ready")
	return s, nil
}

// WaitReady pings p up to attempts times, doubling the delay from base
// after each failure. It gives up early when ctx is done.
func WaitReady(ctx context.Context, p Pinger, attempts int, base time.Duration, logger logging.Logger) error {
	if attempts <= 0 {
		attempts = DefaultConnectAttempts
	}
	if base <= 0 {
		base = DefaultConnectBaseDelay
	}

	attempt := 0
	b := retry.WithMaxRetries(uint64(attempts-1), retry.NewExponential(base))
	err := retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := p.Ping(ctx); err != nil {
			logger.Warn(ctx, "backend not ready", "attempt", attempt, "of", attempts, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("backend not ready after %d attempts: %w", attempt, err)
	}
	return nil
}
