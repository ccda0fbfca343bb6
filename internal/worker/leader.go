package worker

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Leader runs fn only when this process holds the lock for key.
type Leader interface {
	RunIfLeader(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error)
}

// PgLeader elects with a session-level advisory lock held on a dedicated
// connection for the duration of fn.
type PgLeader struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
}

func NewPgLeader(pool *pgxpool.Pool, logger *slog.Logger) *PgLeader {
	return &PgLeader{pool: pool, logger: logger}
}

func (l *PgLeader) RunIfLeader(ctx context.Context, key int64, fn func(ctx context.Context) error) (bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var acquired bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired); err != nil {
		return false, err
	}
	if !acquired {
		return false, nil
	}
	defer func() {
		// Unlock with a fresh context so a cancelled run still releases it.
		if _, err := conn.Exec(context.WithoutCancel(ctx), `SELECT pg_advisory_unlock($1)`, key); err != nil {
			l.logger.Warn("failed to release leader lock", "key", key, "error", err.Error())
		}
	}()
	return true, fn(ctx)
}
