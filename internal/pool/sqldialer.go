package pool

import (
	"context"
	"database/sql"
)

// NewSQLDialer returns a Dialer that hands out dedicated sessions from db
// via database/sql's Conn, one underlying driver connection per session.
// The caller should size db's own limits at or above the pool's Max so the
// two pools never fight over connections.
func NewSQLDialer(db *sql.DB) Dialer {
	return &sqlDialer{db: db}
}

type sqlDialer struct {
	db *sql.DB
}

func (d *sqlDialer) Dial(ctx context.Context) (Conn, error) {
	c, err := d.db.Conn(ctx)
	if err != nil {
		return nil, err
	}
	return &sqlConn{c: c}, nil
}

// sqlConn adapts *sql.Conn to the pool's Conn interface.
type sqlConn struct {
	c *sql.Conn
}

func (s *sqlConn) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	rows, err := s.c.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (s *sqlConn) Begin(ctx context.Context) (Tx, error) {
	tx, err := s.c.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *sqlConn) Close() error {
	return s.c.Close()
}
