package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/appointment"
	"github.com/btouchard/driveflow/internal/auth"
	"github.com/btouchard/driveflow/internal/task"
)

// Deps holds shared dependencies injected into MCP handlers.
type Deps struct {
	Appointments *appointment.Store
	Tokens       *auth.TokenManager
	Tasks        *task.Manager
	Version      string
}

// NewServer creates and configures the MCP server with all tools registered.
func NewServer(deps *Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"DriveFlow",
		deps.Version,
		server.WithToolCapabilities(true),
		server.WithLogging(),
	)

	registerTools(s, deps)

	return s
}
