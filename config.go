package oramcp

// Config is the base configuration used by library mode via New().
type Config struct {
	Pool         PoolConfig         `json:"pool"`
	Query        QueryConfig        `json:"query"`
	ReadOnly     bool               `json:"read_only"`
	ErrorPrompts []ErrorPromptRule  `json:"error_prompts"`
	Sanitization []SanitizationRule `json:"sanitization"`
}

// ServerConfig embeds Config and adds server-only fields for CLI mode.
type ServerConfig struct {
	Config
	Connection ConnectionConfig `json:"connection"`
	Server     ServerSettings   `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
}

// ConnectionConfig holds database connection parameters used by CLI mode.
// Credentials come from the environment or an interactive prompt, never
// from the config file.
type ConnectionConfig struct {
	// DSN is the Oracle connect descriptor, e.g. "dbhost:1521/ORCLPDB1".
	DSN string `json:"dsn"`
}

// PoolConfig holds session pool settings. Immutable after New().
type PoolConfig struct {
	MinSessions           int `json:"min_sessions"`
	MaxSessions           int `json:"max_sessions"`
	AcquireTimeoutSeconds int `json:"acquire_timeout_seconds"`
	IdleTimeoutSeconds    int `json:"idle_timeout_seconds"`
	ShutdownGraceSeconds  int `json:"shutdown_grace_seconds"`
}

// QueryConfig holds query execution settings.
type QueryConfig struct {
	DefaultTimeoutSeconds       int           `json:"default_timeout_seconds"`
	ListTablesTimeoutSeconds    int           `json:"list_tables_timeout_seconds"`
	DescribeTableTimeoutSeconds int           `json:"describe_table_timeout_seconds"`
	MaxSQLLength                int           `json:"max_sql_length"`
	// DefaultRowLimit caps materialized rows even when the caller did not
	// ask for a limit, to bound memory. Defaults to 1000.
	DefaultRowLimit             int           `json:"default_row_limit"`
	// MaxResultLength caps the serialized result in characters, so wide
	// CLOB cells cannot blow up a result that is within the row limit.
	// Defaults to 100000.
	MaxResultLength             int           `json:"max_result_length"`
	TimeoutRules                []TimeoutRule `json:"timeout_rules"`
}

// TimeoutRule maps a SQL pattern to a specific timeout duration.
type TimeoutRule struct {
	Pattern        string `json:"pattern"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

// ErrorPromptRule maps an error message pattern to a guidance message
// appended to matching tool errors.
type ErrorPromptRule struct {
	Pattern string `json:"pattern"`
	Message string `json:"message"`
}

// SanitizationRule defines a regex-based result sanitization rule,
// optionally scoped to columns matching ColumnPattern.
type SanitizationRule struct {
	Pattern       string `json:"pattern"`
	Replacement   string `json:"replacement"`
	ColumnPattern string `json:"column_pattern,omitempty"`
	Description   string `json:"description,omitempty"`
}

// ServerSettings holds transport settings for CLI mode.
type ServerSettings struct {
	// Transport is "stdio" or "http".
	Transport          string `json:"transport"`
	Port               int    `json:"port"`
	HealthCheckEnabled bool   `json:"health_check_enabled"`
	HealthCheckPath    string `json:"health_check_path"`
}

// LoggingConfig holds logging settings for CLI mode.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
	Output string `json:"output"` // stderr, stdout, or file path
}
