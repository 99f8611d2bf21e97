package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/btouchard/driveflow/internal/appointment"
)

// ListAppointments returns a handler that lists every appointment.
func ListAppointments(s *appointment.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		list := s.List()
		if len(list) == 0 {
			return mcp.NewToolResultText("No appointments scheduled."), nil
		}
		return mcp.NewToolResultText(formatAppointments(fmt.Sprintf("Appointments (%d)", len(list)), list, s.Location())), nil
	}
}

// AppointmentsByDate returns a handler that lists one day's appointments.
func AppointmentsByDate(s *appointment.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		day, _ := args["date"].(string)
		if day == "" {
			return mcp.NewToolResultError("date is required"), nil
		}
		d, err := appointment.ParseDay(day, s.Location())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		list := s.QueryByDate(d)
		if len(list) == 0 {
			return mcp.NewToolResultText(fmt.Sprintf("No appointments on %s.", day)), nil
		}
		return mcp.NewToolResultText(formatAppointments(fmt.Sprintf("Appointments on %s (%d)", day, len(list)), list, s.Location())), nil
	}
}

// AddAppointment returns a handler that schedules a test drive.
func AddAppointment(s *appointment.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		rawDate, _ := args["date"].(string)
		if rawDate == "" {
			return mcp.NewToolResultError("date is required"), nil
		}
		date, err := appointment.ParseDateTime(rawDate, s.Location())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		d := appointment.Draft{Date: date}
		d.LeadName, _ = args["lead_name"].(string)
		d.Phone, _ = args["phone"].(string)
		d.Model, _ = args["model"].(string)
		d.Notes, _ = args["notes"].(string)

		a, err := s.Add(d)
		if err != nil {
			return toolError(err), nil
		}

		return mcp.NewToolResultText(fmt.Sprintf("Scheduled %s (id %s).\nCalendar sync runs in the background; use list_sync_tasks to follow it.",
			describe(a, s.Location()), a.ID)), nil
	}
}

// UpdateAppointment returns a handler that patches an appointment.
func UpdateAppointment(s *appointment.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		id, _ := args["id"].(string)
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		var p appointment.Patch
		p.LeadName = optString(args, "lead_name")
		p.Phone = optString(args, "phone")
		p.Model = optString(args, "model")
		p.Notes = optString(args, "notes")
		if st := optString(args, "status"); st != nil {
			status := appointment.Status(*st)
			p.Status = &status
		}
		if raw := optString(args, "date"); raw != nil {
			date, err := appointment.ParseDateTime(*raw, s.Location())
			if err != nil {
				return mcp.NewToolResultError(err.Error()), nil
			}
			p.Date = &date
		}

		a, ok, err := s.Update(id, p)
		if err != nil {
			return toolError(err), nil
		}
		if !ok {
			return mcp.NewToolResultText(fmt.Sprintf("No appointment with id %s; nothing changed.", id)), nil
		}
		return mcp.NewToolResultText("Updated " + describe(a, s.Location())), nil
	}
}

// DeleteAppointment returns a handler that removes an appointment.
func DeleteAppointment(s *appointment.Store) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		id, _ := args["id"].(string)
		if id == "" {
			return mcp.NewToolResultError("id is required"), nil
		}

		a, ok, err := s.Delete(id)
		if err != nil {
			return toolError(err), nil
		}
		if !ok {
			return mcp.NewToolResultText(fmt.Sprintf("No appointment with id %s; nothing deleted.", id)), nil
		}
		return mcp.NewToolResultText("Deleted " + describe(a, s.Location())), nil
	}
}

func formatAppointments(title string, list []appointment.Appointment, loc *time.Location) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\n\n", title)
	for _, a := range list {
		fmt.Fprintf(&sb, "- %s\n", describe(a, loc))
		fmt.Fprintf(&sb, "  id: %s | phone: %s | status: %s", a.ID, a.Phone, a.Status)
		if a.Linked() {
			fmt.Fprintf(&sb, " | calendar: %s", a.ExternalEventID)
		} else {
			sb.WriteString(" | calendar: not synced")
		}
		sb.WriteString("\n")
		if a.Notes != "" {
			fmt.Fprintf(&sb, "  notes: %s\n", a.Notes)
		}
	}
	return sb.String()
}

func describe(a appointment.Appointment, loc *time.Location) string {
	return fmt.Sprintf("%s, %s test drive for %s", a.Date.In(loc).Format("Mon 2006-01-02 15:04"), a.Model, a.LeadName)
}

func optString(args map[string]any, key string) *string {
	v, ok := args[key].(string)
	if !ok {
		return nil
	}
	return &v
}

func toolError(err error) *mcp.CallToolResult {
	if errors.Is(err, appointment.ErrInvalid) {
		return mcp.NewToolResultError(err.Error())
	}
	return mcp.NewToolResultError(fmt.Sprintf("Failed: %s", err))
}
