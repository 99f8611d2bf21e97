package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/mcp/handlers"
)

func registerTools(s *server.MCPServer, deps *Deps) {
	// list_appointments: every appointment in insertion order
	s.AddTool(
		mcp.NewTool("list_appointments",
			mcp.WithDescription("List all scheduled test drives with their calendar sync state."),
		),
		handlers.ListAppointments(deps.Appointments),
	)

	// appointments_by_date: one calendar day, ordered by time
	s.AddTool(
		mcp.NewTool("appointments_by_date",
			mcp.WithDescription("List the test drives on one calendar day, earliest first."),
			mcp.WithString("date",
				mcp.Required(),
				mcp.Description("Day as YYYY-MM-DD, in the dealership timezone"),
			),
		),
		handlers.AppointmentsByDate(deps.Appointments),
	)

	// add_appointment: schedule a test drive
	s.AddTool(
		mcp.NewTool("add_appointment",
			mcp.WithDescription("Schedule a test drive. Returns immediately; the Google Calendar copy is created in the background when connected."),
			mcp.WithString("lead_name",
				mcp.Required(),
				mcp.Description("Customer name"),
			),
			mcp.WithString("phone",
				mcp.Required(),
				mcp.Description("Customer phone number"),
			),
			mcp.WithString("model",
				mcp.Required(),
				mcp.Description("Vehicle model to test"),
			),
			mcp.WithString("date",
				mcp.Required(),
				mcp.Description("Start time, RFC 3339 or YYYY-MM-DDTHH:MM in the dealership timezone"),
			),
			mcp.WithString("notes",
				mcp.Description("Optional notes"),
			),
		),
		handlers.AddAppointment(deps.Appointments),
	)

	// update_appointment: partial update
	s.AddTool(
		mcp.NewTool("update_appointment",
			mcp.WithDescription("Change fields of a test drive. Omitted fields are kept. An unknown id changes nothing."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Appointment id"),
			),
			mcp.WithString("lead_name", mcp.Description("Customer name")),
			mcp.WithString("phone", mcp.Description("Customer phone number")),
			mcp.WithString("model", mcp.Description("Vehicle model")),
			mcp.WithString("date", mcp.Description("New start time")),
			mcp.WithString("notes", mcp.Description("Notes")),
			mcp.WithString("status",
				mcp.Description("Appointment status"),
				mcp.Enum("scheduled", "completed", "cancelled"),
			),
		),
		handlers.UpdateAppointment(deps.Appointments),
	)

	// delete_appointment
	s.AddTool(
		mcp.NewTool("delete_appointment",
			mcp.WithDescription("Remove a test drive. Its Google Calendar event is deleted in the background."),
			mcp.WithString("id",
				mcp.Required(),
				mcp.Description("Appointment id"),
			),
		),
		handlers.DeleteAppointment(deps.Appointments),
	)

	// calendar_status: authorization state
	s.AddTool(
		mcp.NewTool("calendar_status",
			mcp.WithDescription("Show whether Google Calendar is configured and connected."),
		),
		handlers.CalendarStatus(deps.Tokens),
	)

	// set_client_id: configure the OAuth client
	s.AddTool(
		mcp.NewTool("set_client_id",
			mcp.WithDescription("Set the Google OAuth client id used to connect the calendar."),
			mcp.WithString("client_id",
				mcp.Required(),
				mcp.Description("OAuth client id from the Google Cloud console"),
			),
		),
		handlers.SetClientID(deps.Tokens),
	)

	// connect_calendar: start consent
	s.AddTool(
		mcp.NewTool("connect_calendar",
			mcp.WithDescription("Open the Google consent page to connect the calendar. Returns before consent completes."),
		),
		handlers.ConnectCalendar(deps.Tokens),
	)

	// list_sync_tasks: background calendar sync history
	s.AddTool(
		mcp.NewTool("list_sync_tasks",
			mcp.WithDescription("List background calendar sync tasks, newest first."),
			mcp.WithString("status",
				mcp.Description("Filter by status"),
				mcp.Enum("all", "pending", "running", "completed", "failed", "skipped"),
			),
			mcp.WithString("appointment_id",
				mcp.Description("Only tasks for this appointment"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of tasks to return (default: 20)"),
			),
		),
		handlers.ListSyncTasks(deps.Tasks),
	)

	// check_sync_task: one task, with optional long-poll
	s.AddTool(
		mcp.NewTool("check_sync_task",
			mcp.WithDescription("Check one calendar sync task. Supports long-polling with wait_seconds."),
			mcp.WithString("task_id",
				mcp.Required(),
				mcp.Description("Sync task id"),
			),
			mcp.WithNumber("wait_seconds",
				mcp.Description("Wait up to N seconds for the task to finish. 0 for immediate response."),
			),
		),
		handlers.CheckSyncTask(deps.Tasks),
	)
}
