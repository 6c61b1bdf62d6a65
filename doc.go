// Package oramcp provides safe, controlled Oracle Database access for AI
// agents through the Model Context Protocol (MCP).
//
// It exposes five tools (ExecuteQuery, ExecuteDML, ListTables,
// DescribeTable, and PreviewTable) over a bounded session pool with a full
// execution pipeline: statement classification, per-query timeouts,
// positional bind parameters, result materialization with row caps, data
// sanitization, and dynamic agent steering via error prompts.
//
// Reads and writes go through separate tools. ExecuteQuery only runs
// statements that classify as reads (SELECT, WITH); ExecuteDML runs mutating
// statements inside an explicit transaction, committed on success and rolled
// back on failure. A server-wide read-only mode disables ExecuteDML
// entirely. Statements whose leading keyword is not recognized are rejected,
// never run.
//
// Every failure crossing the tool boundary is a [ToolError] with a stable
// kind (policy_violation, timeout, connection_failure,
// syntax_or_execution_error, not_found) so agents can branch on failure
// class, and connection credentials are redacted from every message.
//
// # Library Usage
//
//	db, err := sql.Open("godror", connString)
//	if err != nil {
//		log.Fatal(err)
//	}
//	o, err := oramcp.New(ctx, pool.NewSQLDialer(db), "APP_USER", oramcp.Config{
//		Pool: oramcp.PoolConfig{MinSessions: 2, MaxSessions: 10},
//		Query: oramcp.QueryConfig{
//			DefaultTimeoutSeconds: 30,
//		},
//	}, logger)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer o.Close(ctx)
//
//	// Use directly
//	output, err := o.ExecuteQuery(ctx, oramcp.QueryInput{
//		SQL:    "SELECT * FROM employees WHERE department_id = :1",
//		Params: []any{50},
//	})
//
//	// Or register as MCP tools and resources
//	oramcp.RegisterMCPTools(mcpServer, o)
//	oramcp.RegisterMCPResources(mcpServer, o)
package oramcp
