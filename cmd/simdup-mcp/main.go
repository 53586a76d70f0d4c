package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/ludo-technologies/simdup/internal/config"
	"github.com/ludo-technologies/simdup/internal/version"
	"github.com/ludo-technologies/simdup/mcp"
)

const serverName = "simdup"

// configEnv names a configuration file; discovery is used when unset.
const configEnv = "SIMDUP_MCP_CONFIG"

func main() {
	// Log to stderr, MCP uses stdout for JSON-RPC
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	configPath := os.Getenv(configEnv)
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Config error: %v\n", err)
		os.Exit(1)
	}

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)

	handlers := mcp.NewHandlerSet(mcp.NewDependencies(cfg, configPath, logger.Level(zerolog.WarnLevel)))
	mcp.RegisterTools(server, handlers)

	logger.Info().
		Str("version", version.Short()).
		Str("tools", fmt.Sprint(mcp.ToolNames)).
		Msg("starting MCP server, waiting for client connection")

	// Blocks until the server is terminated
	if err := mcpserver.ServeStdio(server); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}
