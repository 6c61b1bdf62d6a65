package oramcp

import (
	"context"
	"strings"
	"testing"

	"github.com/goramcp/goramcp/internal/pool"
)

// previewConn scripts the two queries PreviewTable issues: the catalog
// existence check, then the preview itself.
func previewConn(count int64, preview *stubRows) *stubConn {
	return &stubConn{onQuery: func(ctx context.Context, sqlText string, args []any) (pool.Rows, error) {
		if strings.Contains(sqlText, "COUNT(*)") {
			return rowsOf([]string{"COUNT(*)"}, []any{count}), nil
		}
		return preview, nil
	}}
}

func TestPreviewTable_ReturnsRows(t *testing.T) {
	t.Parallel()
	conn := previewConn(1, rowsOf([]string{"EMPNO", "ENAME"},
		[]any{int64(7839), "KING"},
		[]any{int64(7698), "BLAKE"}))
	o, _ := newTestInstance(t, testConfig(), conn)

	output, err := o.PreviewTable(context.Background(), PreviewTableInput{Table: "emp"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output.RowCount != 2 {
		t.Fatalf("expected 2 rows, got %d", output.RowCount)
	}

	check := conn.queryAt(t, 0)
	if len(check.args) != 4 || check.args[1] != "EMP" {
		t.Fatalf("expected existence check binds for EMP, got %v", check.args)
	}

	preview := conn.queryAt(t, 1)
	if !strings.Contains(preview.sql, `"SCOTT"."EMP"`) {
		t.Fatalf("expected quoted identifiers in preview SQL, got %q", preview.sql)
	}
	if !strings.Contains(preview.sql, "FETCH FIRST :1 ROWS ONLY") {
		t.Fatalf("expected bound row cap, got %q", preview.sql)
	}
	if len(preview.args) != 1 || preview.args[0] != 10 {
		t.Fatalf("expected default limit 10 bound, got %v", preview.args)
	}
}

func TestPreviewTable_ExplicitLimitBound(t *testing.T) {
	t.Parallel()
	conn := previewConn(1, rowsOf([]string{"N"}, []any{int64(1)}))
	o, _ := newTestInstance(t, testConfig(), conn)

	if _, err := o.PreviewTable(context.Background(), PreviewTableInput{Table: "emp", Limit: 3}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	preview := conn.queryAt(t, 1)
	if len(preview.args) != 1 || preview.args[0] != 3 {
		t.Fatalf("expected limit 3 bound, got %v", preview.args)
	}
}

func TestPreviewTable_NotFound(t *testing.T) {
	t.Parallel()
	conn := previewConn(0, nil)
	o, _ := newTestInstance(t, testConfig(), conn)

	_, err := o.PreviewTable(context.Background(), PreviewTableInput{Table: "no_such_table"})
	wantToolError(t, err, KindNotFound)
	if n := conn.queryCount(); n != 1 {
		t.Fatalf("expected only the existence check to run, got %d queries", n)
	}
}

func TestPreviewTable_RejectsInvalidIdentifier(t *testing.T) {
	t.Parallel()
	conn := &stubConn{}
	o, _ := newTestInstance(t, testConfig(), conn)

	for _, table := range []string{
		`emp"; DROP TABLE emp --`,
		"emp; delete from emp",
		"emp table",
		"1emp",
		"",
	} {
		_, err := o.PreviewTable(context.Background(), PreviewTableInput{Table: table})
		wantToolError(t, err, KindSyntaxOrExecution)
	}
	if n := conn.queryCount(); n != 0 {
		t.Fatalf("expected no queries for invalid identifiers, got %d", n)
	}
}

func TestPreviewTable_RejectsInvalidSchema(t *testing.T) {
	t.Parallel()
	conn := &stubConn{}
	o, _ := newTestInstance(t, testConfig(), conn)

	_, err := o.PreviewTable(context.Background(), PreviewTableInput{Table: "emp", Schema: `hr"."secret`})
	wantToolError(t, err, KindSyntaxOrExecution)
	if n := conn.queryCount(); n != 0 {
		t.Fatalf("expected no queries for invalid schema, got %d", n)
	}
}
