package oramcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/goramcp/goramcp/internal/errprompt"
	"github.com/goramcp/goramcp/internal/pool"
	"github.com/goramcp/goramcp/internal/sanitize"
	"github.com/goramcp/goramcp/internal/timeout"
)

// OracleMcp is the core engine that provides the ExecuteQuery, ExecuteDML,
// ListTables, DescribeTable, and PreviewTable tools. All exported methods
// are safe for concurrent use from multiple goroutines.
type OracleMcp struct {
	config     Config
	pool       *pool.Pool
	sanitizer  *sanitize.Sanitizer
	errPrompts *errprompt.Guide
	timeouts   *timeout.Resolver
	schema     string // connected schema (upper case), default catalog filter
	logger     zerolog.Logger
}

// New creates a new OracleMcp instance. dialer opens database sessions
// (production callers pass pool.NewSQLDialer over a godror *sql.DB); schema
// is the connected user, used as the default owner filter for catalog
// queries. Panics on invalid config. Returns an error only for runtime
// failures (initial sessions could not be opened).
func New(ctx context.Context, dialer pool.Dialer, schema string, config Config, logger zerolog.Logger) (*OracleMcp, error) {
	// --- Config validation (panics on invalid config) ---

	if schema == "" {
		panic("oramcp: schema must be non-empty")
	}
	if config.Pool.MinSessions < 1 {
		panic("oramcp: pool.min_sessions must be >= 1")
	}
	if config.Pool.MaxSessions < config.Pool.MinSessions {
		panic("oramcp: pool.max_sessions must be >= pool.min_sessions")
	}
	if config.Query.DefaultTimeoutSeconds <= 0 {
		panic("oramcp: query.default_timeout_seconds must be > 0")
	}
	if config.Query.MaxSQLLength < 0 {
		panic("oramcp: query.max_sql_length must not be negative")
	}
	if config.Query.DefaultRowLimit < 0 {
		panic("oramcp: query.default_row_limit must not be negative")
	}
	if config.Query.MaxResultLength < 0 {
		panic("oramcp: query.max_result_length must not be negative")
	}
	for _, rule := range config.Query.TimeoutRules {
		if rule.TimeoutSeconds <= 0 {
			panic(fmt.Sprintf("oramcp: timeout_rule with pattern %q has timeout_seconds <= 0", rule.Pattern))
		}
	}

	// Apply defaults for zero values
	if config.Query.MaxSQLLength == 0 {
		config.Query.MaxSQLLength = 100000
	}
	if config.Query.DefaultRowLimit == 0 {
		config.Query.DefaultRowLimit = 1000
	}
	if config.Query.MaxResultLength == 0 {
		config.Query.MaxResultLength = 100000
	}
	if config.Query.ListTablesTimeoutSeconds == 0 {
		config.Query.ListTablesTimeoutSeconds = 10
	}
	if config.Query.DescribeTableTimeoutSeconds == 0 {
		config.Query.DescribeTableTimeoutSeconds = 10
	}
	if config.Pool.AcquireTimeoutSeconds == 0 {
		config.Pool.AcquireTimeoutSeconds = 30
	}
	if config.Pool.ShutdownGraceSeconds == 0 {
		config.Pool.ShutdownGraceSeconds = 30
	}

	// --- Initialize internal components ---

	san, err := sanitize.NewSanitizer(mapSanitizationRules(config.Sanitization))
	if err != nil {
		return nil, err
	}
	guide, err := errprompt.New(mapErrorPromptRules(config.ErrorPrompts))
	if err != nil {
		return nil, err
	}

	timeoutRules := make([]timeout.Rule, len(config.Query.TimeoutRules))
	for i, r := range config.Query.TimeoutRules {
		timeoutRules[i] = timeout.Rule{
			Pattern: r.Pattern,
			Timeout: time.Duration(r.TimeoutSeconds) * time.Second,
		}
	}
	resolver := timeout.NewResolver(timeout.Config{
		DefaultTimeout: time.Duration(config.Query.DefaultTimeoutSeconds) * time.Second,
		Rules:          timeoutRules,
	})

	// --- Create session pool ---

	p, err := pool.New(ctx, dialer, pool.Config{
		Min:            config.Pool.MinSessions,
		Max:            config.Pool.MaxSessions,
		AcquireTimeout: time.Duration(config.Pool.AcquireTimeoutSeconds) * time.Second,
		IdleTimeout:    time.Duration(config.Pool.IdleTimeoutSeconds) * time.Second,
		ShutdownGrace:  time.Duration(config.Pool.ShutdownGraceSeconds) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create session pool: %w", err)
	}

	return &OracleMcp{
		config:     config,
		pool:       p,
		sanitizer:  san,
		errPrompts: guide,
		timeouts:   resolver,
		schema:     strings.ToUpper(schema),
		logger:     logger,
	}, nil
}

// Close tears down the session pool, waiting for in-flight operations up to
// the configured shutdown grace period.
func (o *OracleMcp) Close(ctx context.Context) error {
	return o.pool.Close(ctx)
}

// pingSQL is the connectivity round trip. A real statement, not a driver
// ping, so the whole statement path is exercised.
const pingSQL = `SELECT 1 FROM DUAL`

// Ping verifies database connectivity by acquiring a session and issuing
// SELECT 1 FROM DUAL.
func (o *OracleMcp) Ping(ctx context.Context) error {
	sess, err := o.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer o.pool.Release(sess)

	rows, err := sess.Conn().QueryContext(ctx, pingSQL)
	if err != nil {
		sess.MarkBroken()
		return err
	}
	defer rows.Close()
	for rows.Next() {
	}
	if err := rows.Err(); err != nil {
		sess.MarkBroken()
		return err
	}
	return nil
}

// mapSanitizationRules converts oramcp SanitizationRules to internal sanitize.Rules.
func mapSanitizationRules(rules []SanitizationRule) []sanitize.Rule {
	result := make([]sanitize.Rule, len(rules))
	for i, r := range rules {
		result[i] = sanitize.Rule{
			Pattern:       r.Pattern,
			Replacement:   r.Replacement,
			ColumnPattern: r.ColumnPattern,
		}
	}
	return result
}

// mapErrorPromptRules converts oramcp ErrorPromptRules to internal errprompt.Rules.
func mapErrorPromptRules(rules []ErrorPromptRule) []errprompt.Rule {
	result := make([]errprompt.Rule, len(rules))
	for i, r := range rules {
		result[i] = errprompt.Rule{
			Pattern: r.Pattern,
			Message: r.Message,
		}
	}
	return result
}
