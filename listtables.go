package oramcp

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const listTablesSQL = `
SELECT table_name AS name, 'TABLE' AS kind
FROM all_tables
WHERE owner = :1
UNION ALL
SELECT view_name AS name, 'VIEW' AS kind
FROM all_views
WHERE owner = :2
ORDER BY name`

// ListTables returns the tables and views owned by the given schema
// (default: the connected schema), ordered by name ascending.
func (o *OracleMcp) ListTables(ctx context.Context, input ListTablesInput) (*ListTablesOutput, error) {
	startTime := time.Now()
	schema := o.resolveSchema(input.Schema)

	sess, terr := o.acquireSession(ctx)
	if terr != nil {
		return nil, o.toToolError(ctx, terr)
	}
	defer o.pool.Release(sess)

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(o.config.Query.ListTablesTimeoutSeconds)*time.Second)
	defer cancel()

	rows, err := sess.Conn().QueryContext(queryCtx, listTablesSQL, schema, schema)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}
	defer rows.Close()

	tables := []TableEntry{}
	for rows.Next() {
		var name, kind any
		if err := rows.Scan(&name, &kind); err != nil {
			return nil, o.toToolError(queryCtx, err)
		}
		tables = append(tables, TableEntry{Name: asString(name), Kind: asString(kind)})
	}
	if err := rows.Err(); err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	o.logger.Info().
		Str("schema", schema).
		Dur("duration", time.Since(startTime)).
		Int("table_count", len(tables)).
		Msg("list_tables executed")

	return &ListTablesOutput{Schema: schema, Tables: tables}, nil
}

// resolveSchema returns the owner filter for catalog queries: the given
// schema upper-cased, or the connected schema when empty.
func (o *OracleMcp) resolveSchema(schema string) string {
	if schema == "" {
		return o.schema
	}
	return strings.ToUpper(schema)
}

// asString renders a scanned catalog value as a string.
func asString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case []byte:
		return string(val)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprintf("%v", val)
	}
}

// asInt64 renders a scanned catalog value as an int64. Oracle NUMBER columns
// may arrive as int64, float64, or a textual number type depending on the
// driver; zero is returned for NULL.
func asInt64(v any) int64 {
	switch val := v.(type) {
	case nil:
		return 0
	case int64:
		return val
	case float64:
		return int64(val)
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	case fmt.Stringer:
		n, _ := strconv.ParseInt(val.String(), 10, 64)
		return n
	default:
		return 0
	}
}
