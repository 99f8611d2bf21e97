package calsync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// ErrUnauthorized marks a remote call rejected because the token is no
// longer valid.
var ErrUnauthorized = errors.New("calendar authorization rejected")

// Remote is the external calendar's events collection.
type Remote interface {
	Insert(ctx context.Context, token string, ev Event) (string, error)
	Patch(ctx context.Context, token, eventID string, ev Event) (string, error)
	Delete(ctx context.Context, token, eventID string) error
}

// GoogleCalendar is a Remote backed by the Google Calendar v3 API.
type GoogleCalendar struct {
	calendarID string
	endpoint   string
	base       *http.Client
}

// NewGoogleCalendar creates a remote for calendarID. An empty endpoint uses
// the public Google API.
func NewGoogleCalendar(calendarID, endpoint string) *GoogleCalendar {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &GoogleCalendar{calendarID: calendarID, endpoint: endpoint}
}

// SetHTTPClient sets the client the bearer transport wraps.
func (g *GoogleCalendar) SetHTTPClient(c *http.Client) {
	g.base = c
}

// service builds a Calendar service authorized with token. The token is
// read per call so an invalidated token is never reused.
func (g *GoogleCalendar) service(ctx context.Context, token string) (*calendar.Service, error) {
	if g.base != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.base)
	}
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: token,
		TokenType:   "Bearer",
	}))

	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if g.endpoint != "" {
		opts = append(opts, option.WithEndpoint(g.endpoint))
	}

	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating calendar service: %w", err)
	}
	return svc, nil
}

func (g *GoogleCalendar) Insert(ctx context.Context, token string, ev Event) (string, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(g.calendarID, toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", classify("creating event", err)
	}
	if created.Id == "" {
		return "", fmt.Errorf("creating event: response carried no id")
	}
	return created.Id, nil
}

func (g *GoogleCalendar) Patch(ctx context.Context, token, eventID string, ev Event) (string, error) {
	svc, err := g.service(ctx, token)
	if err != nil {
		return "", err
	}
	updated, err := svc.Events.Patch(g.calendarID, eventID, toGoogle(ev)).Context(ctx).Do()
	if err != nil {
		return "", classify("updating event", err)
	}
	return updated.Id, nil
}

func (g *GoogleCalendar) Delete(ctx context.Context, token, eventID string) error {
	svc, err := g.service(ctx, token)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(g.calendarID, eventID).Context(ctx).Do(); err != nil {
		return classify("deleting event", err)
	}
	return nil
}

func toGoogle(ev Event) *calendar.Event {
	return &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       &calendar.EventDateTime{DateTime: ev.Start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: ev.End.Format(time.RFC3339)},
	}
}

// classify wraps err, mapping a 401 response to ErrUnauthorized.
func classify(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusUnauthorized {
		return fmt.Errorf("%s: %w: %s", op, ErrUnauthorized, gerr.Message)
	}
	return fmt.Errorf("%s: %w", op, err)
}
