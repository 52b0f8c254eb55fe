package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
)

// Service applies validation and ID/time stamping on top of a Store.
type Service struct {
	store Store
	now   func() time.Time
	newID func() string
	log   *log.Entry
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used for CreatedAt/UpdatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides event ID generation.
func WithIDGenerator(f func() string) Option {
	return func(s *Service) { s.newID = f }
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
		log:   log.WithField("component", "calendar"),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// CreateEvent validates in and stores a new event.
func (s *Service) CreateEvent(ctx context.Context, in EventInput) (Event, error) {
	start, end, err := Validate(in)
	if err != nil {
		return Event{}, err
	}
	now := s.now().UTC()
	e := Event{
		ID:          s.newID(),
		Summary:     in.Summary,
		Description: in.Description,
		Location:    in.Location,
		Start:       start,
		End:         end,
		Attendees:   in.Attendees,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return Event{}, fmt.Errorf("create event: %w", err)
	}
	s.log.WithField("event_id", e.ID).Debug("event created")
	return e, nil
}

// UpdateEvent applies patch to the event with the given id. The merged
// event must still pass validation.
func (s *Service) UpdateEvent(ctx context.Context, id string, patch EventPatch) (Event, error) {
	cur, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return Event{}, err
	}
	in := EventInput{
		Summary:       cur.Summary,
		StartDateTime: cur.Start.Format(time.RFC3339),
		EndDateTime:   cur.End.Format(time.RFC3339),
		Description:   cur.Description,
		Attendees:     cur.Attendees,
		Location:      cur.Location,
	}
	if patch.Summary != nil {
		in.Summary = *patch.Summary
	}
	if patch.StartDateTime != nil {
		in.StartDateTime = *patch.StartDateTime
	}
	if patch.EndDateTime != nil {
		in.EndDateTime = *patch.EndDateTime
	}
	if patch.Description != nil {
		in.Description = *patch.Description
	}
	if patch.Attendees != nil {
		in.Attendees = *patch.Attendees
	}
	if patch.Location != nil {
		in.Location = *patch.Location
	}
	start, end, err := Validate(in)
	if err != nil {
		return Event{}, err
	}
	cur.Summary = in.Summary
	cur.Description = in.Description
	cur.Location = in.Location
	cur.Attendees = in.Attendees
	cur.Start = start
	cur.End = end
	cur.UpdatedAt = s.now().UTC()
	if err := s.store.UpdateEvent(ctx, cur); err != nil {
		return Event{}, fmt.Errorf("update event: %w", err)
	}
	s.log.WithField("event_id", id).Debug("event updated")
	return cur, nil
}

func (s *Service) DeleteEvent(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.log.WithField("event_id", id).Debug("event deleted")
	return nil
}

// ListEvents returns events overlapping [min, max).
func (s *Service) ListEvents(ctx context.Context, min, max time.Time) ([]Event, error) {
	if !max.After(min) {
		return nil, ErrInvalidRange
	}
	return s.store.ListEvents(ctx, min, max)
}

// CheckAvailability reports the busy intervals within [min, max). The window
// is available iff no event overlaps it.
func (s *Service) CheckAvailability(ctx context.Context, min, max time.Time) (Availability, error) {
	events, err := s.ListEvents(ctx, min, max)
	if err != nil {
		return Availability{}, err
	}
	busy := make([]Busy, 0, len(events))
	for _, e := range events {
		busy = append(busy, Busy{Start: e.Start, End: e.End})
	}
	return Availability{Available: len(busy) == 0, Busy: busy}, nil
}
