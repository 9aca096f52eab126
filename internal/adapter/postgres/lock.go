package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// unlockTimeout bounds the unlock query issued on release.
const unlockTimeout = 5 * time.Second

// TryLock takes a session-level advisory lock on a dedicated connection.
// The lock lives as long as that connection, so the connection is held
// until release is called.
func (s *Store) TryLock(ctx context.Context, key int64) (release func(), acquired bool, err error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, false, fmt.Errorf("acquire lock connection: %w", err)
	}

	if err := conn.QueryRow(ctx, `SELECT pg_try_advisory_lock($1)`, key).Scan(&acquired); err != nil {
		conn.Release()
		return nil, false, fmt.Errorf("try advisory lock %d: %w", key, err)
	}
	if !acquired {
		conn.Release()
		return nil, false, nil
	}

	release = func() {
		uctx, cancel := context.WithTimeout(context.Background(), unlockTimeout)
		defer cancel()
		if _, err := conn.Exec(uctx, `SELECT pg_advisory_unlock($1)`, key); err != nil {
			// Closing the connection ends the session and drops the lock.
			slog.Error("advisory unlock failed, closing connection", "key", key, "error", err)
			_ = conn.Conn().Close(uctx)
		}
		conn.Release()
	}
	return release, true, nil
}
