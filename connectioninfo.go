package oramcp

import (
	"context"
	"time"

	"github.com/goramcp/goramcp/internal/pool"
)

const versionSQL = `SELECT banner FROM v$version WHERE ROWNUM = 1`

const sessionEnvSQL = `SELECT user, sys_context('USERENV', 'DB_NAME') FROM dual`

// ConnectionInfo reads the database version, connected user, and database
// name from v$version and USERENV on a pooled session. Every returned error
// is a *ToolError.
func (o *OracleMcp) ConnectionInfo(ctx context.Context) (*ConnectionInfo, error) {
	startTime := time.Now()

	sess, terr := o.acquireSession(ctx)
	if terr != nil {
		return nil, o.toToolError(ctx, terr)
	}
	defer o.pool.Release(sess)

	queryCtx, cancel := context.WithTimeout(ctx, time.Duration(o.config.Query.ListTablesTimeoutSeconds)*time.Second)
	defer cancel()

	rows, err := sess.Conn().QueryContext(queryCtx, versionSQL)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}
	version, err := scanFirstRow(rows, 1)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	rows, err = sess.Conn().QueryContext(queryCtx, sessionEnvSQL)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}
	env, err := scanFirstRow(rows, 2)
	if err != nil {
		o.flagSession(queryCtx, sess, err)
		return nil, o.toToolError(queryCtx, err)
	}

	info := &ConnectionInfo{
		Status:          "connected",
		DatabaseVersion: asString(version[0]),
		ConnectedUser:   asString(env[0]),
		DatabaseName:    asString(env[1]),
		ReadOnlyMode:    o.config.ReadOnly,
	}

	o.logger.Info().
		Str("database_name", info.DatabaseName).
		Str("connected_user", info.ConnectedUser).
		Dur("duration", time.Since(startTime)).
		Msg("connection info read")

	return info, nil
}

// scanFirstRow reads the first row of rows into n values, draining nothing
// further. Missing rows leave the values nil.
func scanFirstRow(rows pool.Rows, n int) ([]any, error) {
	defer rows.Close()
	values := make([]any, n)
	ptrs := make([]any, n)
	for i := range values {
		ptrs[i] = &values[i]
	}
	if rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return values, nil
}
