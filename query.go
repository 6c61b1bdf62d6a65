package oramcp

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"
	"unicode/utf8"

	"github.com/goramcp/goramcp/internal/classify"
	"github.com/goramcp/goramcp/internal/pool"
)

// ExecuteQuery runs a read-only query and materializes the result. The
// statement must classify as a read (SELECT or WITH); anything else is
// rejected with a PolicyViolation before a session is acquired. Every
// returned error is a *ToolError.
func (o *OracleMcp) ExecuteQuery(ctx context.Context, input QueryInput) (*QueryOutput, error) {
	startTime := time.Now()

	if len(input.SQL) > o.config.Query.MaxSQLLength {
		return nil, o.toToolError(ctx, executionErrorf(
			"SQL too long: %d bytes exceeds maximum of %d bytes", len(input.SQL), o.config.Query.MaxSQLLength))
	}
	if kind := classify.Classify(input.SQL); kind != classify.Read {
		return nil, o.toToolError(ctx, policyViolationf(
			"execute_query only runs read statements; this statement classified as %s", kind))
	}

	output, err := o.runRead(ctx, input.SQL, input.Params, input.RowLimit)
	if err != nil {
		return nil, err
	}

	o.logger.Info().
		Str("sql", truncateForLog(input.SQL, 200)).
		Dur("duration", time.Since(startTime)).
		Int("row_count", output.RowCount).
		Bool("truncated", output.Truncated).
		Msg("query executed")
	return output, nil
}

// ExecuteDML runs a mutating statement inside a transaction: committed on
// success, explicitly rolled back on any failure so a failed call never
// leaves a partially-applied change pending on the session. Rejected
// outright in read-only mode, before any session is acquired.
func (o *OracleMcp) ExecuteDML(ctx context.Context, input DMLInput) (*DMLOutput, error) {
	startTime := time.Now()

	if o.config.ReadOnly {
		return nil, o.toToolError(ctx, policyViolationf("execute_dml is disabled: server is in read-only mode"))
	}
	if len(input.SQL) > o.config.Query.MaxSQLLength {
		return nil, o.toToolError(ctx, executionErrorf(
			"SQL too long: %d bytes exceeds maximum of %d bytes", len(input.SQL), o.config.Query.MaxSQLLength))
	}

	queryTimeout, timeoutRule := o.timeouts.ResolveWithPattern(input.SQL)

	sess, terr := o.acquireSession(ctx)
	if terr != nil {
		return nil, o.toToolError(ctx, terr)
	}
	defer o.pool.Release(sess)

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := sess.Conn().Begin(queryCtx)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	result, err := tx.ExecContext(queryCtx, input.SQL, input.Params...)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			sess.MarkBroken()
			o.logger.Warn().Err(rbErr).Msg("rollback after failed DML also failed")
		}
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			sess.MarkBroken()
		}
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	if err := tx.Commit(); err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	logEvent := o.logger.Info().
		Str("sql", truncateForLog(input.SQL, 200)).
		Dur("duration", time.Since(startTime)).
		Int64("rows_affected", affected)
	if timeoutRule != "" {
		logEvent = logEvent.Str("timeout_rule", timeoutRule)
	}
	logEvent.Msg("dml executed")

	return &DMLOutput{RowsAffected: affected}, nil
}

// runRead executes a read statement on a pooled session under the resolved
// timeout and materializes up to rowLimit rows (the configured default cap
// when rowLimit is zero). Every returned error is a *ToolError.
func (o *OracleMcp) runRead(ctx context.Context, sqlText string, params []any, rowLimit int) (*QueryOutput, error) {
	limit := rowLimit
	if limit <= 0 {
		limit = o.config.Query.DefaultRowLimit
	}
	queryTimeout, _ := o.timeouts.ResolveWithPattern(sqlText)

	sess, terr := o.acquireSession(ctx)
	if terr != nil {
		return nil, o.toToolError(ctx, terr)
	}
	defer o.pool.Release(sess)

	queryCtx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := sess.Conn().QueryContext(queryCtx, sqlText, params...)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	output, err := collectRows(rows, limit)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	output.Rows = o.sanitizer.SanitizeRows(output.Columns, output.Rows)
	if terr := o.capResultLength(output); terr != nil {
		return nil, o.toToolError(queryCtx, terr)
	}
	return output, nil
}

// capResultLength rejects results whose serialized rows exceed
// MaxResultLength characters. The row limit bounds row count, not row
// width, so a single wide CLOB cell can still produce an oversized result.
// The error carries a truncated preview and tells the agent to narrow the
// query.
func (o *OracleMcp) capResultLength(output *QueryOutput) *ToolError {
	jsonBytes, _ := json.Marshal(output.Rows)
	jsonStr := string(jsonBytes)
	if utf8.RuneCountInString(jsonStr) <= o.config.Query.MaxResultLength {
		return nil
	}
	runes := []rune(jsonStr)
	return executionErrorf("%s...[truncated] Result is too long! Add limits in your query!",
		string(runes[:o.config.Query.MaxResultLength]))
}

// acquireSession acquires a pooled session, mapping any failure (exhaustion,
// wait timeout, dial failure) to ConnectionFailure.
func (o *OracleMcp) acquireSession(ctx context.Context) (*pool.Session, *ToolError) {
	sess, err := o.pool.Acquire(ctx)
	if err != nil {
		return nil, &ToolError{Kind: KindConnectionFailure, Message: redactCredentials(err.Error())}
	}
	return sess, nil
}

// flagSession marks the session suspect after a failure: poisoned on
// timeout (server-side work may still be running), broken on a dead link.
// The pool discards flagged sessions instead of reusing them.
func (o *OracleMcp) flagSession(queryCtx context.Context, sess *pool.Session, err error) {
	switch classifyError(queryCtx, err) {
	case KindTimeout:
		sess.Poison()
	case KindConnectionFailure:
		sess.MarkBroken()
	}
}

// collectRows materializes rows into a QueryOutput, reading column metadata
// once and streaming at most limit rows. Remaining rows are not consumed;
// Truncated is set instead.
func collectRows(rows pool.Rows, limit int) (*QueryOutput, error) {
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	output := &QueryOutput{Columns: cols, Rows: [][]any{}}
	for rows.Next() {
		if len(output.Rows) >= limit {
			output.Truncated = true
			break
		}
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		for i, v := range values {
			values[i] = convertValue(v)
		}
		output.Rows = append(output.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	output.RowCount = len(output.Rows)
	return output, nil
}

// convertValue converts a driver-returned value to a JSON-friendly Go type.
// DATE/TIMESTAMP become RFC3339 strings, RAW/BLOB become hex strings.
func convertValue(v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case time.Time:
		return val.Format(time.RFC3339Nano)
	case []byte:
		return hex.EncodeToString(val)
	case float64:
		if math.IsNaN(val) {
			return "NaN"
		}
		if math.IsInf(val, 1) {
			return "Infinity"
		}
		if math.IsInf(val, -1) {
			return "-Infinity"
		}
		return val
	case fmt.Stringer:
		// godror.Number and friends: keep full precision as text.
		return val.String()
	default:
		return val
	}
}

// truncateForLog truncates a string for log output to avoid oversized log entries.
func truncateForLog(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	truncateAt := maxLen
	for truncateAt > 0 && !utf8.RuneStart(s[truncateAt]) {
		truncateAt--
	}
	return s[:truncateAt] + "...[truncated]"
}
