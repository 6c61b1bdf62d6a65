package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	_ "github.com/godror/godror"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	oramcp "github.com/goramcp/goramcp"
	"github.com/goramcp/goramcp/internal/meta"
	"github.com/goramcp/goramcp/internal/pool"
)

func runServe() error {
	ctx := context.Background()

	// 1. Load ServerConfig
	serverConfig, err := loadServerConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Resolve credentials. Never stored in the config file.
	username := os.Getenv("ORACLE_USER")
	if username == "" {
		username = promptInput("Username: ")
	}
	password := os.Getenv("ORACLE_PASSWORD")
	if password == "" {
		password = promptPassword("Password: ")
	}
	dsn := os.Getenv("ORACLE_DSN")
	if dsn == "" {
		dsn = serverConfig.Connection.DSN
	}
	if username == "" || dsn == "" {
		return fmt.Errorf("username and connect descriptor are required (ORACLE_USER, ORACLE_DSN, or connection.dsn)")
	}

	// 3. Setup logger
	logger := setupLogger(serverConfig.Logging)

	// 4. Open the database handle and create the OracleMcp instance
	db, err := sql.Open("godror", buildConnString(username, password, dsn))
	if err != nil {
		return fmt.Errorf("failed to open database handle: %w", err)
	}
	defer db.Close()
	// The session pool owns the limits; keep the sql.DB cap in step so
	// dedicated connections never exceed it.
	db.SetMaxOpenConns(serverConfig.Pool.MaxSessions)

	oraMcp, err := oramcp.New(ctx, pool.NewSQLDialer(db), username, serverConfig.Config, logger)
	if err != nil {
		return fmt.Errorf("failed to create OracleMcp: %w", err)
	}
	defer oraMcp.Close(ctx)

	// 5. Test database connection
	logger.Info().Msg("testing database connection")
	if err := oraMcp.Ping(ctx); err != nil {
		logger.Error().Err(err).Msg("database connection test failed")
		return fmt.Errorf("database connection test failed: %w", err)
	}
	logger.Info().Msg("database connection test successful")

	// 6. Create MCP server with initialize lifecycle logging
	hooks := &server.Hooks{}
	hooks.AddAfterInitialize(func(ctx context.Context, id any, req *mcp.InitializeRequest, result *mcp.InitializeResult) {
		logger.Info().
			Str("client_name", req.Params.ClientInfo.Name).
			Str("client_version", req.Params.ClientInfo.Version).
			Msg("AI agent connected (MCP initialize)")
	})

	mcpServer := server.NewMCPServer("goramcp", meta.Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithHooks(hooks),
	)

	oramcp.RegisterMCPTools(mcpServer, oraMcp)
	oramcp.RegisterMCPResources(mcpServer, oraMcp)

	// 7. Serve over the configured transport
	switch serverConfig.Server.Transport {
	case "", "stdio":
		logger.Info().Msg("starting goramcp server on stdio")
		return server.ServeStdio(mcpServer)
	case "http":
		return serveHTTP(mcpServer, serverConfig, logger)
	default:
		return fmt.Errorf("unknown server.transport %q (want stdio or http)", serverConfig.Server.Transport)
	}
}

func serveHTTP(mcpServer *server.MCPServer, serverConfig *oramcp.ServerConfig, logger zerolog.Logger) error {
	if serverConfig.Server.Port <= 0 {
		panic("goramcp: server.port must be > 0 when transport is http")
	}

	addr := fmt.Sprintf(":%d", serverConfig.Server.Port)
	mux := http.NewServeMux()

	// Health check endpoint (process liveness only, not DB connectivity)
	if serverConfig.Server.HealthCheckEnabled {
		if serverConfig.Server.HealthCheckPath == "" {
			panic("goramcp: health_check_path must be set when health_check_enabled is true")
		}
		mux.HandleFunc(serverConfig.Server.HealthCheckPath, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})
	}

	httpSrv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Create StreamableHTTPServer with custom http.Server
	streamableServer := server.NewStreamableHTTPServer(mcpServer,
		server.WithEndpointPath("/mcp"),
		server.WithStateLess(true),
		server.WithStreamableHTTPServer(httpSrv),
	)

	// Manually register the MCP handler: Start() does NOT register
	// when a custom *http.Server is provided via WithStreamableHTTPServer.
	mux.Handle("/mcp", streamableServer)

	logger.Info().Int("port", serverConfig.Server.Port).Msg("starting goramcp server")
	return streamableServer.Start(addr)
}

func loadServerConfig() (*oramcp.ServerConfig, error) {
	configPath := os.Getenv("GORAMCP_CONFIG_PATH")
	if configPath == "" {
		configPath = ".goramcp/config.json"
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", configPath, err)
	}

	var config oramcp.ServerConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// buildConnString builds a godror connection string in logfmt form. The
// values are quoted so passwords with spaces or special characters survive.
func buildConnString(username, password, dsn string) string {
	return fmt.Sprintf("user=%q password=%q connectString=%q", username, password, dsn)
}

func setupLogger(config oramcp.LoggingConfig) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(config.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	var output io.Writer = os.Stderr
	if config.Output == "stdout" {
		output = os.Stdout
	} else if config.Output != "" && config.Output != "stderr" {
		f, err := os.OpenFile(config.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err == nil {
			output = f
		}
	}

	if config.Format == "text" {
		output = zerolog.ConsoleWriter{Out: output}
	}

	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

func promptInput(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	var input string
	fmt.Scanln(&input)
	return input
}

func promptPassword(prompt string) string {
	fmt.Fprint(os.Stderr, prompt)
	password, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr) // newline after password input
	if err != nil {
		return ""
	}
	return string(password)
}
