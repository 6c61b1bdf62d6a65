package oramcp

import (
	"context"
	"strings"
	"time"
)

const describeTableSQL = `
SELECT
    column_name,
    data_type,
    data_length,
    data_precision,
    data_scale,
    nullable,
    column_id,
    data_default
FROM all_tab_columns
WHERE owner = :1
  AND table_name = :2
ORDER BY column_id`

// DescribeTable returns column metadata for a table or view, ordered by
// ordinal position. Fails with NotFound when the name resolves to zero
// catalog rows (absent, or not visible to the current privileges).
func (o *OracleMcp) DescribeTable(ctx context.Context, input DescribeTableInput) (*DescribeTableOutput, error) {
	startTime := time.Now()
	schema := o.resolveSchema(input.Schema)
	table := strings.ToUpper(input.Table)

	sess, terr := o.acquireSession(ctx)
	if terr != nil {
		return nil, o.toToolError(ctx, terr)
	}
	defer o.pool.Release(sess)

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(o.config.Query.DescribeTableTimeoutSeconds)*time.Second)
	defer cancel()

	rows, err := sess.Conn().QueryContext(queryCtx, describeTableSQL, schema, table)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var name, dataType, length, precision, scale, nullable, position, def any
		if err := rows.Scan(&name, &dataType, &length, &precision, &scale, &nullable, &position, &def); err != nil {
			return nil, o.toToolError(queryCtx, err)
		}
		columns = append(columns, ColumnInfo{
			Name:      asString(name),
			DataType:  asString(dataType),
			Nullable:  asString(nullable) == "Y",
			Position:  asInt64(position),
			Length:    asInt64(length),
			Precision: asInt64(precision),
			Scale:     asInt64(scale),
			Default:   strings.TrimSpace(asString(def)),
		})
	}
	if err := rows.Err(); err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	if len(columns) == 0 {
		return nil, o.toToolError(queryCtx, notFoundf("table or view %s.%s not found", schema, table))
	}

	o.logger.Info().
		Str("schema", schema).
		Str("table", table).
		Dur("duration", time.Since(startTime)).
		Int("column_count", len(columns)).
		Msg("describe_table executed")

	return &DescribeTableOutput{Schema: schema, Name: table, Columns: columns}, nil
}
