package pool

import (
	"context"
	"database/sql"
	"time"
)

// Rows is the row iterator a session query returns. *sql.Rows satisfies it.
type Rows interface {
	Columns() ([]string, error)
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// Tx is an in-progress transaction on a session. *sql.Tx satisfies it.
type Tx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Commit() error
	Rollback() error
}

// Conn is one live database connection. Implementations are not safe for
// concurrent use; the pool guarantees single ownership.
type Conn interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
	Begin(ctx context.Context) (Tx, error)
	Close() error
}

// Dialer opens new connections for the pool.
type Dialer interface {
	Dial(ctx context.Context) (Conn, error)
}

// Session is an exclusively-owned handle to one live connection. It is owned
// by the pool while idle and loaned to exactly one operation while busy.
type Session struct {
	conn     Conn
	lastUsed time.Time

	// Flags are written by the single owning operation and read by the pool
	// at Release; the Release call orders the accesses.
	poisoned bool
	broken   bool
}

// Conn returns the underlying connection for the owning operation to use.
func (s *Session) Conn() Conn { return s.conn }

// Poison marks the session as suspect after a timed-out query whose
// server-side work may still be running. The pool discards it on Release.
func (s *Session) Poison() { s.poisoned = true }

// MarkBroken records that the underlying link failed mid-operation.
// The pool discards the session on Release instead of reusing it.
func (s *Session) MarkBroken() { s.broken = true }

func (s *Session) suspect() bool { return s.poisoned || s.broken }
