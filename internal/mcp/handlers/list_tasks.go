package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/task"
)

// ListSyncTasks returns a handler that lists calendar sync tasks with optional filters.
func ListSyncTasks(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		filter := task.Filter{
			Limit: 20,
		}

		if status, ok := args["status"].(string); ok {
			filter.Status = status
		}
		if id, ok := args["appointment_id"].(string); ok {
			filter.Subject = id
		}
		if limit, ok := args["limit"].(float64); ok && limit > 0 {
			filter.Limit = int(limit)
		}

		tasks := tm.List(filter)

		if len(tasks) == 0 {
			return mcp.NewToolResultText("No sync tasks found matching the given filters."), nil
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "📋 Sync tasks (%d found)\n\n", len(tasks))

		for _, t := range tasks {
			fmt.Fprintf(&sb, "%s **%s** %s (%s)\n", statusIcon(t.Status), t.ID, t.Kind, t.Status)
			fmt.Fprintf(&sb, "  Appointment: %s | Duration: %s\n", t.Subject, formatDuration(t))
			if t.Result != "" {
				fmt.Fprintf(&sb, "  Event: %s\n", t.Result)
			}
			if t.Note != "" {
				fmt.Fprintf(&sb, "  Note: %s\n", t.Note)
			}
			if t.Error != "" {
				fmt.Fprintf(&sb, "  Error: %s\n", t.Error)
			}
			sb.WriteString("\n")
		}

		return mcp.NewToolResultText(sb.String()), nil
	}
}

func statusIcon(s task.Status) string {
	switch s {
	case task.StatusPending:
		return "⏳"
	case task.StatusRunning:
		return "🔄"
	case task.StatusCompleted:
		return "✅"
	case task.StatusFailed:
		return "❌"
	case task.StatusSkipped:
		return "⏭"
	default:
		return "❓"
	}
}
