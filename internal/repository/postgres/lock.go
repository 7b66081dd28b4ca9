package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

var ErrLockBusy = errors.New("advisory lock is held by another session")

// AdvisoryLocker serialises work across processes with a session-level
// pg_try_advisory_lock held on one pooled connection for the duration of fn.
type AdvisoryLocker struct {
	db  *DB
	log *zap.Logger
}

func NewAdvisoryLocker(db *DB, log *zap.Logger) *AdvisoryLocker {
	return &AdvisoryLocker{db: db, log: log}
}

func (l *AdvisoryLocker) WithLock(ctx context.Context, key int64, fn func(ctx context.Context) error) error {
	conn, err := l.db.Pool.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire conn: %w", err)
	}
	defer conn.Release()

	var ok bool
	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&ok); err != nil {
		return fmt.Errorf("try advisory lock: %w", err)
	}
	if !ok {
		return ErrLockBusy
	}
	defer l.unlock(pooledSession{conn}, key)

	return fn(ctx)
}

// lockSession is the connection that holds a session-level lock.
type lockSession interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Discard closes the connection instead of returning it to the pool.
	Discard(ctx context.Context) error
}

type pooledSession struct{ c *pgxpool.Conn }

func (s pooledSession) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return s.c.Exec(ctx, sql, args...)
}

// Discard hijacks the connection so that the deferred Release is a no-op.
func (s pooledSession) Discard(ctx context.Context) error {
	return s.c.Hijack().Close(ctx)
}

// unlock releases the lock. When the unlock fails the connection may still
// hold it, so it is closed rather than pooled: ending the session frees the lock.
func (l *AdvisoryLocker) unlock(s lockSession, key int64) {
	// the run context may already be cancelled
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if _, err := s.Exec(ctx, `SELECT pg_advisory_unlock($1)`, key); err != nil {
		l.log.Error("advisory unlock, closing session", zap.Int64("key", key), zap.Error(err))
		if err := s.Discard(ctx); err != nil {
			l.log.Warn("close lock session", zap.Int64("key", key), zap.Error(err))
		}
	}
}
