package oramcp

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"

	"github.com/goramcp/goramcp/internal/pool"
)

// queryFunc scripts a stub connection's response to QueryContext.
type queryFunc func(ctx context.Context, sqlText string, args []any) (pool.Rows, error)

type capturedQuery struct {
	sql  string
	args []any
}

// stubRows is an in-memory pool.Rows backed by a fixed grid.
type stubRows struct {
	cols    []string
	data    [][]any
	idx     int
	iterErr error
	closed  bool
}

func rowsOf(cols []string, data ...[]any) *stubRows {
	return &stubRows{cols: cols, data: data}
}

func (r *stubRows) Columns() ([]string, error) { return r.cols, nil }

func (r *stubRows) Next() bool {
	if r.idx >= len(r.data) {
		return false
	}
	r.idx++
	return true
}

func (r *stubRows) Scan(dest ...any) error {
	row := r.data[r.idx-1]
	if len(dest) != len(row) {
		return errors.New("stubRows: scan arity mismatch")
	}
	for i := range dest {
		*(dest[i].(*any)) = row[i]
	}
	return nil
}

func (r *stubRows) Err() error   { return r.iterErr }
func (r *stubRows) Close() error { r.closed = true; return nil }

type stubResult struct{ affected int64 }

func (r stubResult) LastInsertId() (int64, error) { return 0, errors.New("not supported") }
func (r stubResult) RowsAffected() (int64, error) { return r.affected, nil }

// stubTx records transaction calls for a single DML round trip.
type stubTx struct {
	execErr      error
	commitErr    error
	rollbackErr  error
	rowsAffected int64

	execSQL    string
	execArgs   []any
	committed  bool
	rolledBack bool
}

func (t *stubTx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	t.execSQL = query
	t.execArgs = args
	if t.execErr != nil {
		return nil, t.execErr
	}
	return stubResult{affected: t.rowsAffected}, nil
}

func (t *stubTx) Commit() error {
	if t.commitErr != nil {
		return t.commitErr
	}
	t.committed = true
	return nil
}

func (t *stubTx) Rollback() error {
	if t.rollbackErr != nil {
		return t.rollbackErr
	}
	t.rolledBack = true
	return nil
}

// stubConn is a scriptable pool.Conn that records every query it receives.
type stubConn struct {
	mu       sync.Mutex
	onQuery  queryFunc
	tx       *stubTx
	beginErr error
	queries  []capturedQuery
	begins   int
	closed   bool
}

func (c *stubConn) QueryContext(ctx context.Context, query string, args ...any) (pool.Rows, error) {
	c.mu.Lock()
	c.queries = append(c.queries, capturedQuery{sql: query, args: args})
	onQuery := c.onQuery
	c.mu.Unlock()
	if onQuery == nil {
		return rowsOf([]string{}), nil
	}
	return onQuery(ctx, query, args)
}

func (c *stubConn) Begin(ctx context.Context) (pool.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.begins++
	if c.beginErr != nil {
		return nil, c.beginErr
	}
	if c.tx == nil {
		c.tx = &stubTx{}
	}
	return c.tx, nil
}

func (c *stubConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *stubConn) queryCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.queries)
}

func (c *stubConn) queryAt(t *testing.T, i int) capturedQuery {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()
	if i >= len(c.queries) {
		t.Fatalf("expected at least %d queries, got %d", i+1, len(c.queries))
	}
	return c.queries[i]
}

// stubDialer hands out connections from newConn and counts dials.
type stubDialer struct {
	mu      sync.Mutex
	newConn func() *stubConn
	dials   int
}

func (d *stubDialer) Dial(ctx context.Context) (pool.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	return d.newConn(), nil
}

func (d *stubDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

func testConfig() Config {
	return Config{
		Pool:  PoolConfig{MinSessions: 1, MaxSessions: 2},
		Query: QueryConfig{DefaultTimeoutSeconds: 5},
	}
}

// newTestInstance builds an OracleMcp over a single stub connection. The
// dialer hands out the same conn on every dial so discard-then-redial paths
// stay observable through dialCount.
func newTestInstance(t *testing.T, config Config, conn *stubConn) (*OracleMcp, *stubDialer) {
	t.Helper()
	d := &stubDialer{newConn: func() *stubConn { return conn }}
	o, err := New(context.Background(), d, "scott", config, zerolog.Nop())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	t.Cleanup(func() { _ = o.Close(context.Background()) })
	return o, d
}

// wantToolError asserts err is a *ToolError of the given kind and returns it.
func wantToolError(t *testing.T, err error, kind ErrorKind) *ToolError {
	t.Helper()
	if err == nil {
		t.Fatal("expected an error, got nil")
	}
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %T: %v", err, err)
	}
	if te.Kind != kind {
		t.Fatalf("expected error kind %q, got %q (message: %s)", kind, te.Kind, te.Message)
	}
	return te
}
