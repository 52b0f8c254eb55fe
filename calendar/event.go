// Package calendar implements the calendar operations the agent exposes as
// tools: event CRUD, range listing, availability and batch creation.
package calendar

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrEventNotFound = errors.New("event not found")
	ErrInvalidRange  = errors.New("time range end must be after start")
)

// Event is a stored calendar entry.
type Event struct {
	ID          string    `json:"id"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Location    string    `json:"location,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Overlaps reports whether e intersects the half-open window [min, max).
func (e Event) Overlaps(min, max time.Time) bool {
	return e.Start.Before(max) && e.End.After(min)
}

// EventInput is the caller-facing form of a new event. Times are RFC3339.
type EventInput struct {
	Summary       string   `json:"summary" jsonschema_description:"Title of the event"`
	StartDateTime string   `json:"startDateTime" jsonschema_description:"Start time of the event (RFC3339, e.g. 2026-10-14T09:00:00+02:00)"`
	EndDateTime   string   `json:"endDateTime" jsonschema_description:"End time of the event (RFC3339)"`
	Description   string   `json:"description,omitempty" jsonschema_description:"Description of the event"`
	Attendees     []string `json:"attendees,omitempty" jsonschema_description:"List of attendee email addresses"`
	Location      string   `json:"location,omitempty" jsonschema_description:"Location of the event"`
}

// EventPatch carries the fields of an update; nil means unchanged.
type EventPatch struct {
	Summary       *string   `json:"summary,omitempty"`
	StartDateTime *string   `json:"startDateTime,omitempty"`
	EndDateTime   *string   `json:"endDateTime,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Attendees     *[]string `json:"attendees,omitempty"`
	Location      *string   `json:"location,omitempty"`
}

// Busy is an occupied interval.
type Busy struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Availability is the answer to a free/busy query.
type Availability struct {
	Available bool   `json:"isAvailable"`
	Busy      []Busy `json:"busySlots"`
}

// Store persists events.
type Store interface {
	CreateEvent(ctx context.Context, e Event) error
	GetEvent(ctx context.Context, id string) (Event, error)
	UpdateEvent(ctx context.Context, e Event) error
	DeleteEvent(ctx context.Context, id string) error
	// ListEvents returns events overlapping [min, max) ordered by start.
	ListEvents(ctx context.Context, min, max time.Time) ([]Event, error)
}

// ValidationError describes why an EventInput was rejected.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

// Validate checks an EventInput and returns its parsed start and end.
func Validate(in EventInput) (time.Time, time.Time, error) {
	if strings.TrimSpace(in.Summary) == "" {
		return time.Time{}, time.Time{}, &ValidationError{"Event summary is required"}
	}
	if in.StartDateTime == "" {
		return time.Time{}, time.Time{}, &ValidationError{"Start time is required"}
	}
	if in.EndDateTime == "" {
		return time.Time{}, time.Time{}, &ValidationError{"End time is required"}
	}
	start, err := time.Parse(time.RFC3339, in.StartDateTime)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{"Invalid start time format"}
	}
	end, err := time.Parse(time.RFC3339, in.EndDateTime)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{"Invalid end time format"}
	}
	if !end.After(start) {
		return time.Time{}, time.Time{}, &ValidationError{"End time must be after start time"}
	}
	return start, end, nil
}

// ParseRange parses an RFC3339 window and rejects empty or inverted ranges.
func ParseRange(timeMin, timeMax string) (time.Time, time.Time, error) {
	min, err := time.Parse(time.RFC3339, timeMin)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{"Invalid timeMin format"}
	}
	max, err := time.Parse(time.RFC3339, timeMax)
	if err != nil {
		return time.Time{}, time.Time{}, &ValidationError{"Invalid timeMax format"}
	}
	if !max.After(min) {
		return time.Time{}, time.Time{}, ErrInvalidRange
	}
	return min, max, nil
}
