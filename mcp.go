package oramcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// RegisterMCPTools registers ExecuteQuery, ExecuteDML, ListTables,
// DescribeTable, and PreviewTable as MCP tools on the given MCP server.
func RegisterMCPTools(mcpServer *server.MCPServer, oraMcp *OracleMcp) {
	// ExecuteQuery tool
	executeQueryTool := mcp.NewTool("execute_query",
		mcp.WithDescription("Execute a read-only SQL query (SELECT or WITH) against the Oracle database. Returns results as JSON. Use positional bind parameters (:1, :2, ...) for values."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL query to execute"),
		),
		mcp.WithArray("params",
			mcp.Description("Positional bind parameter values for :1, :2, ... placeholders"),
		),
		mcp.WithNumber("row_limit",
			mcp.Description("Maximum number of rows to return (default 1000)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(executeQueryTool, oraMcp.loggedToolHandler("execute_query", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		output, err := oraMcp.ExecuteQuery(ctx, QueryInput{
			SQL:      sql,
			Params:   argParams(req),
			RowLimit: req.GetInt("row_limit", 0),
		})
		if err != nil {
			return toolErrorResult(err), nil
		}
		return marshalResult(output, "failed to marshal query result"), nil
	}))

	// ExecuteDML tool
	executeDMLTool := mcp.NewTool("execute_dml",
		mcp.WithDescription("Execute a mutating SQL statement (INSERT, UPDATE, DELETE, MERGE, or DDL) against the Oracle database. Committed on success, rolled back on failure. Use positional bind parameters (:1, :2, ...) for values."),
		mcp.WithString("sql",
			mcp.Required(),
			mcp.Description("The SQL statement to execute"),
		),
		mcp.WithArray("params",
			mcp.Description("Positional bind parameter values for :1, :2, ... placeholders"),
		),
	)

	mcpServer.AddTool(executeDMLTool, oraMcp.loggedToolHandler("execute_dml", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sql, err := req.RequireString("sql")
		if err != nil {
			return mcp.NewToolResultError("sql parameter is required"), nil
		}
		output, err := oraMcp.ExecuteDML(ctx, DMLInput{
			SQL:    sql,
			Params: argParams(req),
		})
		if err != nil {
			return toolErrorResult(err), nil
		}
		return marshalResult(output, "failed to marshal dml result"), nil
	}))

	// ListTables tool
	listTablesTool := mcp.NewTool("list_tables",
		mcp.WithDescription("List the tables and views in a schema (defaults to the connected schema)."),
		mcp.WithString("schema",
			mcp.Description("The schema (owner) to list, defaults to the connected user"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(listTablesTool, oraMcp.loggedToolHandler("list_tables", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output, err := oraMcp.ListTables(ctx, ListTablesInput{Schema: req.GetString("schema", "")})
		if err != nil {
			return toolErrorResult(err), nil
		}
		return marshalResult(output, "failed to marshal list tables result"), nil
	}))

	// DescribeTable tool
	describeTableTool := mcp.NewTool("describe_table",
		mcp.WithDescription("Describe the columns of a table or view: name, data type, nullability, length, precision, scale, and default."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table or view name to describe"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema (owner), defaults to the connected user"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(describeTableTool, oraMcp.loggedToolHandler("describe_table", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		output, err := oraMcp.DescribeTable(ctx, DescribeTableInput{
			Table:  table,
			Schema: req.GetString("schema", ""),
		})
		if err != nil {
			return toolErrorResult(err), nil
		}
		return marshalResult(output, "failed to marshal describe table result"), nil
	}))

	// PreviewTable tool
	previewTableTool := mcp.NewTool("preview_table",
		mcp.WithDescription("Preview the first rows of a table or view."),
		mcp.WithString("table",
			mcp.Required(),
			mcp.Description("The table or view name to preview"),
		),
		mcp.WithString("schema",
			mcp.Description("The schema (owner), defaults to the connected user"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of rows to return (default 10)"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)

	mcpServer.AddTool(previewTableTool, oraMcp.loggedToolHandler("preview_table", func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		table, err := req.RequireString("table")
		if err != nil {
			return mcp.NewToolResultError("table parameter is required"), nil
		}
		output, err := oraMcp.PreviewTable(ctx, PreviewTableInput{
			Table:  table,
			Schema: req.GetString("schema", ""),
			Limit:  req.GetInt("limit", 0),
		})
		if err != nil {
			return toolErrorResult(err), nil
		}
		return marshalResult(output, "failed to marshal preview table result"), nil
	}))
}

// RegisterMCPResources registers the oracle://connection and oracle://schema
// resources on the given MCP server. Both read live data from the database;
// nothing is cached.
func RegisterMCPResources(mcpServer *server.MCPServer, oraMcp *OracleMcp) {
	connectionResource := mcp.NewResource("oracle://connection", "Database Connection Info",
		mcp.WithResourceDescription("Information about the current database connection"),
		mcp.WithMIMEType("application/json"),
	)

	mcpServer.AddResource(connectionResource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		info, err := oraMcp.ConnectionInfo(ctx)
		if err != nil {
			return nil, err
		}
		return jsonResourceContents(req.Params.URI, info)
	})

	schemaResource := mcp.NewResource("oracle://schema", "Schema Information",
		mcp.WithResourceDescription("Tables and views visible in the connected schema"),
		mcp.WithMIMEType("application/json"),
	)

	mcpServer.AddResource(schemaResource, func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		output, err := oraMcp.ListTables(ctx, ListTablesInput{})
		if err != nil {
			return nil, err
		}
		payload := struct {
			Schema     string       `json:"schema"`
			TableCount int          `json:"table_count"`
			Tables     []TableEntry `json:"tables"`
		}{output.Schema, len(output.Tables), output.Tables}
		return jsonResourceContents(req.Params.URI, payload)
	})
}

// jsonResourceContents wraps v as a single JSON text resource.
func jsonResourceContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{mcp.TextResourceContents{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}

// toolErrorResult serializes a *ToolError as a JSON error payload so callers
// can branch on the error kind. Non-ToolError errors fall back to plain text.
func toolErrorResult(err error) *mcp.CallToolResult {
	if te, ok := err.(*ToolError); ok {
		if b, merr := json.Marshal(te); merr == nil {
			return mcp.NewToolResultError(string(b))
		}
	}
	return mcp.NewToolResultError(err.Error())
}

// marshalResult marshals a tool output struct into a text result.
func marshalResult(output any, failMsg string) *mcp.CallToolResult {
	jsonBytes, err := json.Marshal(output)
	if err != nil {
		return mcp.NewToolResultError(failMsg)
	}
	return mcp.NewToolResultText(string(jsonBytes))
}

// argParams extracts the optional positional bind values from a request.
func argParams(req mcp.CallToolRequest) []any {
	args := req.GetArguments()
	raw, ok := args["params"]
	if !ok {
		return nil
	}
	params, ok := raw.([]any)
	if !ok {
		return nil
	}
	return params
}

// loggedToolHandler wraps a tool handler to log request and response lengths.
func (o *OracleMcp) loggedToolHandler(tool string, handler server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		reqLen := requestLength(req)
		result, err := handler(ctx, req)
		respLen := resultLength(result)
		o.logger.Info().
			Str("tool", tool).
			Int("request_bytes", reqLen).
			Int("response_bytes", respLen).
			Msg("tool call")
		return result, err
	}
}

// requestLength returns the JSON-encoded byte length of the request arguments.
func requestLength(req mcp.CallToolRequest) int {
	args := req.GetArguments()
	if len(args) == 0 {
		return 0
	}
	b, err := json.Marshal(args)
	if err != nil {
		return 0
	}
	return len(b)
}

// resultLength returns the total byte length of text content in a CallToolResult.
func resultLength(result *mcp.CallToolResult) int {
	if result == nil {
		return 0
	}
	total := 0
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			total += len(tc.Text)
		}
	}
	return total
}
