package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/petasbytes/calagent/calendar"
)

// Response is the JSON envelope every calendar tool returns. Calendar-level
// failures are reported here with Success=false so the model can react;
// only malformed tool input is returned as a Go error.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Message string `json:"message,omitempty"`
}

type UpdateEventInput struct {
	EventID       string    `json:"eventId" jsonschema_description:"ID of the event to update"`
	Summary       *string   `json:"summary,omitempty" jsonschema_description:"New title of the event"`
	StartDateTime *string   `json:"startDateTime,omitempty" jsonschema_description:"New start time (RFC3339)"`
	EndDateTime   *string   `json:"endDateTime,omitempty" jsonschema_description:"New end time (RFC3339)"`
	Description   *string   `json:"description,omitempty" jsonschema_description:"New description"`
	Attendees     *[]string `json:"attendees,omitempty" jsonschema_description:"Replacement list of attendee email addresses"`
	Location      *string   `json:"location,omitempty" jsonschema_description:"New location"`
}

type DeleteEventInput struct {
	EventID string `json:"eventId" jsonschema_description:"ID of the event to delete"`
}

type RangeInput struct {
	TimeMin string `json:"timeMin" jsonschema_description:"Start of time range (RFC3339)"`
	TimeMax string `json:"timeMax" jsonschema_description:"End of time range (RFC3339)"`
}

type CreateMultipleEventsInput struct {
	Events  []calendar.EventInput `json:"events" jsonschema_description:"Events to create"`
	Options calendar.BatchOptions `json:"options,omitempty"`
}

var (
	CreateEventInputSchema          = GenerateSchema[calendar.EventInput]()
	UpdateEventInputSchema          = GenerateSchema[UpdateEventInput]()
	DeleteEventInputSchema          = GenerateSchema[DeleteEventInput]()
	RangeInputSchema                = GenerateSchema[RangeInput]()
	CreateMultipleEventsInputSchema = GenerateSchema[CreateMultipleEventsInput]()
)

// Registry returns all calendar tool definitions bound to svc.
func Registry(svc *calendar.Service) []ToolDefinition {
	c := calendarTools{svc: svc}
	return []ToolDefinition{
		{
			Name:        "create_event",
			Description: "Create a new calendar event. Times are RFC3339 with an explicit offset.",
			InputSchema: CreateEventInputSchema,
			Function:    c.createEvent,
		},
		{
			Name:        "update_event",
			Description: "Update an existing calendar event. Only the supplied fields change.",
			InputSchema: UpdateEventInputSchema,
			Function:    c.updateEvent,
		},
		{
			Name:        "delete_event",
			Description: "Delete a calendar event by ID.",
			InputSchema: DeleteEventInputSchema,
			Function:    c.deleteEvent,
		},
		{
			Name:        "check_availability",
			Description: "Check whether a time range is free and list the busy slots inside it.",
			InputSchema: RangeInputSchema,
			Function:    c.checkAvailability,
		},
		{
			Name:        "list_events",
			Description: "List calendar events overlapping a time range, ordered by start time.",
			InputSchema: RangeInputSchema,
			Function:    c.listEvents,
		},
		{
			Name: "create_multiple_events",
			Description: `Create multiple calendar events in a single batch operation.

Events are processed in chunks of 10. With options.stopOnError, processing stops after the first chunk containing a failure.
With options.validateOnly, events are only validated and nothing is created.`,
			InputSchema: CreateMultipleEventsInputSchema,
			Function:    c.createMultipleEvents,
		},
	}
}

type calendarTools struct {
	svc *calendar.Service
}

func (c calendarTools) createEvent(ctx context.Context, input json.RawMessage) (string, error) {
	var in calendar.EventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	e, err := c.svc.CreateEvent(ctx, in)
	if err != nil {
		return failure(err, "Failed to create event")
	}
	return encode(Response{Success: true, Data: e, Message: "Event created successfully"})
}

func (c calendarTools) updateEvent(ctx context.Context, input json.RawMessage) (string, error) {
	var in UpdateEventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	if in.EventID == "" {
		return "", fmt.Errorf("eventId is required")
	}
	e, err := c.svc.UpdateEvent(ctx, in.EventID, calendar.EventPatch{
		Summary:       in.Summary,
		StartDateTime: in.StartDateTime,
		EndDateTime:   in.EndDateTime,
		Description:   in.Description,
		Attendees:     in.Attendees,
		Location:      in.Location,
	})
	if err != nil {
		return failure(err, "Failed to update event")
	}
	return encode(Response{Success: true, Data: e, Message: "Event updated successfully"})
}

func (c calendarTools) deleteEvent(ctx context.Context, input json.RawMessage) (string, error) {
	var in DeleteEventInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	if in.EventID == "" {
		return "", fmt.Errorf("eventId is required")
	}
	if err := c.svc.DeleteEvent(ctx, in.EventID); err != nil {
		return failure(err, "Failed to delete event")
	}
	return encode(Response{Success: true, Message: "Event deleted successfully"})
}

func (c calendarTools) checkAvailability(ctx context.Context, input json.RawMessage) (string, error) {
	var in RangeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	min, max, err := calendar.ParseRange(in.TimeMin, in.TimeMax)
	if err != nil {
		return failure(err, "Failed to check availability")
	}
	av, err := c.svc.CheckAvailability(ctx, min, max)
	if err != nil {
		return failure(err, "Failed to check availability")
	}
	msg := "Time slot is available"
	if !av.Available {
		msg = "Time slot has conflicts"
	}
	return encode(Response{Success: true, Data: av, Message: msg})
}

func (c calendarTools) listEvents(ctx context.Context, input json.RawMessage) (string, error) {
	var in RangeInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	min, max, err := calendar.ParseRange(in.TimeMin, in.TimeMax)
	if err != nil {
		return failure(err, "Failed to fetch events")
	}
	events, err := c.svc.ListEvents(ctx, min, max)
	if err != nil {
		return failure(err, "Failed to fetch events")
	}
	return encode(Response{Success: true, Data: events, Message: "Events retrieved successfully"})
}

func (c calendarTools) createMultipleEvents(ctx context.Context, input json.RawMessage) (string, error) {
	var in CreateMultipleEventsInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", err
	}
	if len(in.Events) == 0 {
		return "", fmt.Errorf("events must not be empty")
	}
	return encode(c.svc.CreateMultipleEvents(ctx, in.Events, in.Options))
}

// failure maps calendar errors into an unsuccessful Response. Errors that
// are not calendar-level (e.g. storage failures) still produce a Response,
// with the raw cause kept out of Message.
func failure(err error, msg string) (string, error) {
	var verr *calendar.ValidationError
	switch {
	case errors.As(err, &verr), errors.Is(err, calendar.ErrEventNotFound), errors.Is(err, calendar.ErrInvalidRange):
		return encode(Response{Success: false, Error: err.Error(), Message: msg})
	default:
		log.WithError(err).Warn(msg)
		return encode(Response{Success: false, Error: "internal error", Message: msg})
	}
}

func encode(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
