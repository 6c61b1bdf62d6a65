package oramcp

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/goramcp/goramcp/internal/pool"
)

func TestConnectionInfo_ReadsVersionAndSessionEnv(t *testing.T) {
	t.Parallel()
	conn := &stubConn{onQuery: func(ctx context.Context, sqlText string, args []any) (pool.Rows, error) {
		if strings.Contains(sqlText, "v$version") {
			return rowsOf([]string{"BANNER"}, []any{"Oracle Database 19c Enterprise Edition"}), nil
		}
		return rowsOf([]string{"USER", "DB_NAME"}, []any{"SCOTT", "ORCLPDB1"}), nil
	}}
	o, _ := newTestInstance(t, testConfig(), conn)

	info, err := o.ConnectionInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info.Status != "connected" {
		t.Fatalf("expected status connected, got %q", info.Status)
	}
	if info.DatabaseVersion != "Oracle Database 19c Enterprise Edition" {
		t.Fatalf("unexpected version: %q", info.DatabaseVersion)
	}
	if info.ConnectedUser != "SCOTT" || info.DatabaseName != "ORCLPDB1" {
		t.Fatalf("unexpected session env: %q / %q", info.ConnectedUser, info.DatabaseName)
	}
	if info.ReadOnlyMode {
		t.Fatal("expected read_only_mode false")
	}

	if q := conn.queryAt(t, 0); !strings.Contains(q.sql, "v$version") {
		t.Fatalf("expected v$version query first, got %q", q.sql)
	}
	if q := conn.queryAt(t, 1); !strings.Contains(q.sql, "USERENV") {
		t.Fatalf("expected USERENV query second, got %q", q.sql)
	}
}

func TestConnectionInfo_SurfacesReadOnlyMode(t *testing.T) {
	t.Parallel()
	conn := &stubConn{onQuery: func(ctx context.Context, sqlText string, args []any) (pool.Rows, error) {
		if strings.Contains(sqlText, "v$version") {
			return rowsOf([]string{"BANNER"}, []any{"Oracle Database 19c"}), nil
		}
		return rowsOf([]string{"USER", "DB_NAME"}, []any{"SCOTT", "ORCL"}), nil
	}}
	config := testConfig()
	config.ReadOnly = true
	o, _ := newTestInstance(t, config, conn)

	info, err := o.ConnectionInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !info.ReadOnlyMode {
		t.Fatal("expected read_only_mode true")
	}
}

func TestConnectionInfo_BrokenLinkReportsConnectionFailure(t *testing.T) {
	t.Parallel()
	conn := &stubConn{onQuery: func(ctx context.Context, sqlText string, args []any) (pool.Rows, error) {
		return nil, errors.New("ORA-03113: end-of-file on communication channel")
	}}
	o, _ := newTestInstance(t, testConfig(), conn)

	_, err := o.ConnectionInfo(context.Background())
	wantToolError(t, err, KindConnectionFailure)
}
