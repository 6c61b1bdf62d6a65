package oramcp

// QueryInput is the input for the execute_query tool.
type QueryInput struct {
	SQL string `json:"sql"`
	// Params are bound positionally to :1, :2, ... placeholders. Parameters
	// are never interpolated into SQL text.
	Params []any `json:"params,omitempty"`
	// RowLimit caps the number of rows materialized. Zero means the
	// configured default row limit.
	RowLimit int `json:"row_limit,omitempty"`
}

// QueryOutput is a materialized result set. Every row has exactly
// len(Columns) values, in column order.
type QueryOutput struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// DMLInput is the input for the execute_dml tool.
type DMLInput struct {
	SQL    string `json:"sql"`
	Params []any  `json:"params,omitempty"`
}

// DMLOutput is the result of a successful mutating statement.
type DMLOutput struct {
	RowsAffected int64 `json:"rows_affected"`
}

// ListTablesInput is the input for the list_tables tool.
type ListTablesInput struct {
	// Schema filters by owner. Empty means the connected schema.
	Schema string `json:"schema,omitempty"`
}

// TableEntry is one table or view visible to the connected schema.
type TableEntry struct {
	Name string `json:"name"`
	Kind string `json:"kind"` // "TABLE" or "VIEW"
}

// ListTablesOutput is the output of the list_tables tool, ordered by name.
type ListTablesOutput struct {
	Schema string       `json:"schema"`
	Tables []TableEntry `json:"tables"`
}

// DescribeTableInput is the input for the describe_table tool.
type DescribeTableInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
}

// ColumnInfo describes a single column, as reported by ALL_TAB_COLUMNS.
type ColumnInfo struct {
	Name      string `json:"column_name"`
	DataType  string `json:"data_type"`
	Nullable  bool   `json:"nullable"`
	Position  int64  `json:"ordinal_position"`
	Length    int64  `json:"length,omitempty"`
	Precision int64  `json:"precision,omitempty"`
	Scale     int64  `json:"scale,omitempty"`
	Default   string `json:"default_value,omitempty"`
}

// DescribeTableOutput is the output of the describe_table tool, ordered by
// ordinal position.
type DescribeTableOutput struct {
	Schema  string       `json:"schema"`
	Name    string       `json:"table_name"`
	Columns []ColumnInfo `json:"columns"`
}

// PreviewTableInput is the input for the preview_table tool.
type PreviewTableInput struct {
	Table  string `json:"table"`
	Schema string `json:"schema,omitempty"`
	// Limit caps the sample size. Zero means the default (10).
	Limit int `json:"limit,omitempty"`
}

// ConnectionInfo describes the live database connection. Served by the
// oracle://connection MCP resource.
type ConnectionInfo struct {
	Status          string `json:"status"`
	DatabaseVersion string `json:"database_version"`
	ConnectedUser   string `json:"connected_user"`
	DatabaseName    string `json:"database_name"`
	ReadOnlyMode    bool   `json:"read_only_mode"`
}
