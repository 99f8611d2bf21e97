package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/auth"
)

// CalendarStatus returns a handler that reports the authorization state.
func CalendarStatus(tm *auth.TokenManager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		return mcp.NewToolResultText(formatState(tm)), nil
	}
}

// SetClientID returns a handler that configures the OAuth client id.
func SetClientID(tm *auth.TokenManager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		id, _ := args["client_id"].(string)
		if err := tm.SetClientID(id); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText("Client id saved.\n\n" + formatState(tm)), nil
	}
}

// ConnectCalendar returns a handler that starts the consent flow.
func ConnectCalendar(tm *auth.TokenManager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if err := tm.Connect(); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Connect failed: %s", err)), nil
		}
		return mcp.NewToolResultText(formatState(tm)), nil
	}
}

func formatState(tm *auth.TokenManager) string {
	var b strings.Builder
	state := tm.State()

	fmt.Fprintf(&b, "Calendar: %s\n", state.Name())
	if id := tm.ClientID(); id != "" {
		fmt.Fprintf(&b, "Client id: %s\n", id)
	}

	switch state.(type) {
	case auth.Unconfigured:
		b.WriteString("Set a client id with set_client_id to enable Google Calendar sync.")
	case auth.Configured:
		b.WriteString("Use connect_calendar to authorize access.")
	case auth.Authorizing:
		b.WriteString("Waiting for consent in the browser.")
	case auth.Authorized:
		b.WriteString("New appointments are mirrored to Google Calendar.")
	case auth.Expired:
		b.WriteString("The session expired. Use connect_calendar to reconnect.")
	}
	return b.String()
}
