package oramcp

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/goramcp/goramcp/internal/pool"
)

const defaultPreviewLimit = 10

// identPattern is strict Oracle identifier syntax: a leading letter followed
// by letters, digits, _, $, or # (max 128 bytes). Anything else is rejected
// before the name gets anywhere near a SQL string.
var identPattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_$#]{0,127}$`)

const tableExistsSQL = `
SELECT COUNT(*) FROM (
    SELECT table_name FROM all_tables WHERE owner = :1 AND table_name = :2
    UNION ALL
    SELECT view_name FROM all_views WHERE owner = :3 AND view_name = :4
)`

// PreviewTable returns the first rows of a table or view. The name cannot be
// a bind parameter, so it is validated against strict identifier syntax and
// checked against the catalog before being interpolated, quoted, into the
// preview statement. The row count is still bound (:1).
func (o *OracleMcp) PreviewTable(ctx context.Context, input PreviewTableInput) (*QueryOutput, error) {
	startTime := time.Now()

	limit := input.Limit
	if limit <= 0 {
		limit = defaultPreviewLimit
	}
	schema := o.resolveSchema(input.Schema)
	table := strings.ToUpper(input.Table)

	if !identPattern.MatchString(table) {
		return nil, o.toToolError(ctx, executionErrorf("invalid table name %q", input.Table))
	}
	if !identPattern.MatchString(schema) {
		return nil, o.toToolError(ctx, executionErrorf("invalid schema name %q", input.Schema))
	}

	sess, terr := o.acquireSession(ctx)
	if terr != nil {
		return nil, o.toToolError(ctx, terr)
	}
	defer o.pool.Release(sess)

	checkCtx, cancelCheck := context.WithTimeout(ctx, time.Duration(o.config.Query.DescribeTableTimeoutSeconds)*time.Second)
	defer cancelCheck()

	rows, err := sess.Conn().QueryContext(checkCtx, tableExistsSQL, schema, table, schema, table)
	if err != nil {
		o.flagSession(checkCtx, sess, err)
		return nil, o.toToolError(checkCtx, err)
	}
	count, err := scanCount(rows)
	if err != nil {
		o.flagSession(checkCtx, sess, err)
		return nil, o.toToolError(checkCtx, err)
	}
	if count == 0 {
		return nil, o.toToolError(ctx, notFoundf("table or view %s.%s not found", schema, table))
	}

	previewSQL := fmt.Sprintf(`SELECT * FROM %s.%s FETCH FIRST :1 ROWS ONLY`, quoteIdent(schema), quoteIdent(table))

	queryCtx, cancel := context.WithTimeout(ctx, o.timeouts.Resolve(previewSQL))
	defer cancel()

	prows, err := sess.Conn().QueryContext(queryCtx, previewSQL, limit)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	output, err := collectRows(prows, limit)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}
	output.Rows = o.sanitizer.SanitizeRows(output.Columns, output.Rows)
	if terr := o.capResultLength(output); terr != nil {
		return nil, o.toToolError(queryCtx, terr)
	}

	o.logger.Info().
		Str("schema", schema).
		Str("table", table).
		Dur("duration", time.Since(startTime)).
		Int("row_count", output.RowCount).
		Msg("preview_table executed")

	return output, nil
}

// quoteIdent wraps an already-validated identifier in double quotes.
func quoteIdent(name string) string {
	return `"` + name + `"`
}

// scanCount reads a single COUNT(*) value from rows.
func scanCount(rows pool.Rows) (int64, error) {
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return 0, err
		}
		return 0, fmt.Errorf("count query returned no rows")
	}
	var v any
	if err := rows.Scan(&v); err != nil {
		return 0, err
	}
	return asInt64(v), rows.Err()
}
