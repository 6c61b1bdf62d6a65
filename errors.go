package oramcp

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"
)

// ErrorKind is the failure taxonomy exposed at the tool boundary.
type ErrorKind string

const (
	// KindPolicyViolation: read-only mode or the classifier rejected a write.
	KindPolicyViolation ErrorKind = "policy_violation"
	// KindTimeout: the per-query deadline elapsed before completion.
	KindTimeout ErrorKind = "timeout"
	// KindConnectionFailure: pool exhausted or the database link broke.
	KindConnectionFailure ErrorKind = "connection_failure"
	// KindSyntaxOrExecution: the database rejected the statement.
	KindSyntaxOrExecution ErrorKind = "syntax_or_execution_error"
	// KindNotFound: a catalog lookup returned no rows.
	KindNotFound ErrorKind = "not_found"
)

// ToolError is the structured error every tool returns. No raw internal
// fault crosses the tool boundary.
type ToolError struct {
	Kind    ErrorKind      `json:"kind"`
	Message string         `json:"message"`
	Detail  map[string]any `json:"detail,omitempty"`
}

func (e *ToolError) Error() string {
	return string(e.Kind) + ": " + e.Message
}

func policyViolationf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindPolicyViolation, Message: fmt.Sprintf(format, args...)}
}

func notFoundf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func executionErrorf(format string, args ...any) *ToolError {
	return &ToolError{Kind: KindSyntaxOrExecution, Message: fmt.Sprintf(format, args...)}
}

// Oracle error codes indicating the session or network link is gone, rather
// than the statement being at fault.
var connectionOraCodes = []string{
	"ORA-01033", // initialization or shutdown in progress
	"ORA-01034", // not available
	"ORA-03113", // end-of-file on communication channel
	"ORA-03114", // not connected
	"ORA-03135", // connection lost contact
	"ORA-12170", // connect timeout
	"ORA-12541", // no listener
	"ORA-12545", // target host does not exist
	"ORA-28547", // connection to server failed
}

// classifyError maps a failure from the driver or pool to an ErrorKind.
// queryCtx is the per-query deadline context, checked so a cancellation
// surfacing as a driver error still reports as Timeout.
func classifyError(queryCtx context.Context, err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) || queryCtx.Err() == context.DeadlineExceeded {
		return KindTimeout
	}
	if isConnectionError(err) {
		return KindConnectionFailure
	}
	return KindSyntaxOrExecution
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	msg := err.Error()
	for _, code := range connectionOraCodes {
		if strings.Contains(msg, code) {
			return true
		}
	}
	return false
}

// Connection-string credential fragments that must never leave the tool
// boundary, whatever sanitization rules the operator configured.
var credentialRedactions = []*regexp.Regexp{
	regexp.MustCompile(`(?i)password\s*=\s*"[^"]*"`),
	regexp.MustCompile(`(?i)password\s*=\s*\S+`),
	regexp.MustCompile(`(?i)\b\w+/[^@\s]+@`), // user/password@dsn shorthand
}

func redactCredentials(msg string) string {
	for _, re := range credentialRedactions {
		msg = re.ReplaceAllString(msg, "[REDACTED]")
	}
	return msg
}

// toToolError converts any failure into a *ToolError: existing ToolErrors
// pass through, everything else is classified and its message redacted.
// Matching error prompts are appended to steer the agent, and the failure
// is logged.
func (o *OracleMcp) toToolError(queryCtx context.Context, err error) *ToolError {
	var te *ToolError
	if !errors.As(err, &te) {
		te = &ToolError{
			Kind:    classifyError(queryCtx, err),
			Message: redactCredentials(o.sanitizer.SanitizeString(err.Error())),
		}
	}

	guidance, fired := o.errPrompts.Lookup(te.Message)

	logEvent := o.logger.Error().Str("kind", string(te.Kind)).Str("message", te.Message)
	if len(fired) > 0 {
		logEvent = logEvent.Strs("error_prompts", fired)
	}
	logEvent.Msg("tool error")

	if guidance != "" {
		te.Message = te.Message + "\n\n" + guidance
	}
	return te
}
