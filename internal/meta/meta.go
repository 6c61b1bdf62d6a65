// Package meta holds build metadata shared by the CLI and the MCP server.
package meta

// Version is the goramcp release version. Overridden at build time via
// -ldflags "-X github.com/goramcp/goramcp/internal/meta.Version=...".
var Version = "1.0.0"
