package handlers

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/task"
)

const (
	longPollInterval = 250 * time.Millisecond
	longPollMaxWait  = 30
)

// CheckSyncTask returns a handler that reports a sync task's current status.
// When wait_seconds > 0 and the task is still running, it long-polls
// until the task finishes or the timeout expires.
func CheckSyncTask(tm *task.Manager) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		taskID, _ := args["task_id"].(string)
		if taskID == "" {
			return mcp.NewToolResultError("task_id is required"), nil
		}

		t, err := tm.Get(taskID)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Task not found: %s", err)), nil
		}

		waitSeconds := 0
		if w, ok := args["wait_seconds"].(float64); ok && w > 0 {
			waitSeconds = min(int(w), longPollMaxWait)
		}

		snap := t.Snapshot()
		if waitSeconds > 0 && !t.IsTerminal() {
			snap = waitForChange(ctx, t, snap, time.Duration(waitSeconds)*time.Second)
		}

		return mcp.NewToolResultText(formatCheckResponse(snap)), nil
	}
}

// waitForChange polls the task until its status changes, the task
// finishes, or the timeout expires.
func waitForChange(ctx context.Context, t *task.Task, initial task.Snapshot, timeout time.Duration) task.Snapshot {
	deadline := time.After(timeout)
	ticker := time.NewTicker(longPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return t.Snapshot()
		case <-t.Done():
			return t.Snapshot()
		case <-deadline:
			return t.Snapshot()
		case <-ticker.C:
			snap := t.Snapshot()
			if snap.Status != initial.Status {
				return snap
			}
		}
	}
}

func formatCheckResponse(snap task.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Task: %s (%s)\n", snap.ID, snap.Kind)
	fmt.Fprintf(&b, "Appointment: %s\n", snap.Subject)
	fmt.Fprintf(&b, "Status: %s\n", snap.Status)

	switch snap.Status {
	case task.StatusRunning:
		fmt.Fprintf(&b, "Duration: %s\n", formatDuration(snap))
		b.WriteString("\nUse wait_seconds to wait for the result.")

	case task.StatusCompleted:
		fmt.Fprintf(&b, "Duration: %s\n", formatDuration(snap))
		if snap.Result != "" {
			fmt.Fprintf(&b, "Calendar event: %s\n", snap.Result)
		}
		if snap.Note != "" {
			fmt.Fprintf(&b, "Note: %s\n", snap.Note)
		}

	case task.StatusSkipped:
		fmt.Fprintf(&b, "Reason: %s\n", snap.Note)

	case task.StatusFailed:
		fmt.Fprintf(&b, "Duration: %s\n", formatDuration(snap))
		if snap.Error != "" {
			fmt.Fprintf(&b, "Error: %s\n", snap.Error)
		}
	}

	return b.String()
}

func formatDuration(s task.Snapshot) string {
	d := s.Duration()
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(100 * time.Millisecond).String()
}
