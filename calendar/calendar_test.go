package calendar_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/calagent/calendar"
)

var base = time.Date(2026, 10, 14, 9, 0, 0, 0, time.UTC)

func at(h int) string { return base.Add(time.Duration(h) * time.Hour).Format(time.RFC3339) }

func newService(t *testing.T) *calendar.Service {
	t.Helper()
	var n atomic.Int64
	return calendar.NewService(calendar.NewMemStore(),
		calendar.WithClock(func() time.Time { return base }),
		calendar.WithIDGenerator(func() string { return fmt.Sprintf("ev-%03d", n.Add(1)) }),
	)
}

func TestValidate(t *testing.T) {
	ok := calendar.EventInput{Summary: "Standup", StartDateTime: at(0), EndDateTime: at(1)}
	tests := []struct {
		name   string
		mutate func(*calendar.EventInput)
		reason string
	}{
		{"missing summary", func(in *calendar.EventInput) { in.Summary = " " }, "Event summary is required"},
		{"missing start", func(in *calendar.EventInput) { in.StartDateTime = "" }, "Start time is required"},
		{"missing end", func(in *calendar.EventInput) { in.EndDateTime = "" }, "End time is required"},
		{"bad start", func(in *calendar.EventInput) { in.StartDateTime = "tomorrow 9am" }, "Invalid start time format"},
		{"bad end", func(in *calendar.EventInput) { in.EndDateTime = "2026-13-01" }, "Invalid end time format"},
		{"end equals start", func(in *calendar.EventInput) { in.EndDateTime = in.StartDateTime }, "End time must be after start time"},
		{"end before start", func(in *calendar.EventInput) { in.EndDateTime = at(-1) }, "End time must be after start time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := ok
			tt.mutate(&in)
			_, _, err := calendar.Validate(in)
			var verr *calendar.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.reason, verr.Reason)
		})
	}

	start, end, err := calendar.Validate(ok)
	require.NoError(t, err)
	assert.True(t, start.Equal(base))
	assert.Equal(t, time.Hour, end.Sub(start))
}

func TestParseRange(t *testing.T) {
	_, _, err := calendar.ParseRange(at(2), at(1))
	assert.ErrorIs(t, err, calendar.ErrInvalidRange)

	_, _, err = calendar.ParseRange("nope", at(1))
	assert.Error(t, err)

	min, max, err := calendar.ParseRange(at(0), at(8))
	require.NoError(t, err)
	assert.Equal(t, 8*time.Hour, max.Sub(min))
}

func TestService_CRUD(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	e, err := svc.CreateEvent(ctx, calendar.EventInput{Summary: "Lunch", StartDateTime: at(3), EndDateTime: at(4), Attendees: []string{"a@example.com"}})
	require.NoError(t, err)
	assert.Equal(t, "ev-001", e.ID)
	assert.True(t, e.CreatedAt.Equal(base))

	title := "Long lunch"
	endAt := at(5)
	up, err := svc.UpdateEvent(ctx, e.ID, calendar.EventPatch{Summary: &title, EndDateTime: &endAt})
	require.NoError(t, err)
	assert.Equal(t, "Long lunch", up.Summary)
	assert.Equal(t, 2*time.Hour, up.End.Sub(up.Start))
	assert.Equal(t, []string{"a@example.com"}, up.Attendees)

	badEnd := at(2)
	_, err = svc.UpdateEvent(ctx, e.ID, calendar.EventPatch{EndDateTime: &badEnd})
	var verr *calendar.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.UpdateEvent(ctx, "missing", calendar.EventPatch{Summary: &title})
	assert.ErrorIs(t, err, calendar.ErrEventNotFound)

	require.NoError(t, svc.DeleteEvent(ctx, e.ID))
	assert.ErrorIs(t, svc.DeleteEvent(ctx, e.ID), calendar.ErrEventNotFound)
}

func TestService_ListAndAvailability(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	for _, h := range []int{6, 1, 3} {
		_, err := svc.CreateEvent(ctx, calendar.EventInput{Summary: fmt.Sprintf("h%d", h), StartDateTime: at(h), EndDateTime: at(h + 1)})
		require.NoError(t, err)
	}

	events, err := svc.ListEvents(ctx, base, base.Add(5*time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "h1", events[0].Summary)
	assert.Equal(t, "h3", events[1].Summary)

	// [2h, 3h) touches h3 only at its start and must be free.
	av, err := svc.CheckAvailability(ctx, base.Add(2*time.Hour), base.Add(3*time.Hour))
	require.NoError(t, err)
	assert.True(t, av.Available)
	assert.Empty(t, av.Busy)

	av, err = svc.CheckAvailability(ctx, base.Add(90*time.Minute), base.Add(200*time.Minute))
	require.NoError(t, err)
	assert.False(t, av.Available)
	assert.Len(t, av.Busy, 2)

	_, err = svc.ListEvents(ctx, base, base)
	assert.ErrorIs(t, err, calendar.ErrInvalidRange)
}

func batchInputs(n int, badAt ...int) []calendar.EventInput {
	bad := map[int]bool{}
	for _, i := range badAt {
		bad[i] = true
	}
	out := make([]calendar.EventInput, n)
	for i := range out {
		out[i] = calendar.EventInput{Summary: fmt.Sprintf("e%d", i), StartDateTime: at(i), EndDateTime: at(i + 1)}
		if bad[i] {
			out[i].EndDateTime = out[i].StartDateTime
		}
	}
	return out
}

func TestCreateMultipleEvents_AllSucceed(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	resp := svc.CreateMultipleEvents(ctx, batchInputs(23), calendar.BatchOptions{})
	assert.True(t, resp.Success)
	assert.Equal(t, calendar.BatchSummary{Total: 23, Successful: 23, Failed: 0}, resp.Summary)
	assert.Equal(t, "Successfully created all 23 events.", resp.Message)
	require.Len(t, resp.Results, 23)
	for i, r := range resp.Results {
		assert.Equal(t, fmt.Sprintf("e%d", i), r.Input.Summary, "order kept")
		assert.NotEmpty(t, r.EventID)
	}

	events, err := svc.ListEvents(ctx, base, base.Add(48*time.Hour))
	require.NoError(t, err)
	assert.Len(t, events, 23)
}

func TestCreateMultipleEvents_PartialFailure(t *testing.T) {
	svc := newService(t)
	resp := svc.CreateMultipleEvents(context.Background(), batchInputs(12, 4, 11), calendar.BatchOptions{})
	assert.False(t, resp.Success)
	assert.Equal(t, calendar.BatchSummary{Total: 12, Successful: 10, Failed: 2}, resp.Summary)
	assert.Equal(t, "created 10 events successfully, 2 failed.", resp.Message)
	assert.Equal(t, calendar.BatchFailed, resp.Results[4].Status)
	assert.Equal(t, "End time must be after start time", resp.Results[4].Error)
}

func TestCreateMultipleEvents_StopOnError(t *testing.T) {
	svc := newService(t)
	// Failure in the first chunk; the second chunk must not run.
	resp := svc.CreateMultipleEvents(context.Background(), batchInputs(15, 2), calendar.BatchOptions{StopOnError: true})
	assert.False(t, resp.Success)
	assert.Len(t, resp.Results, calendar.BatchChunkSize)
	assert.Equal(t, calendar.BatchSummary{Total: 15, Successful: 9, Failed: 6}, resp.Summary)
	assert.Contains(t, resp.Message, "Batch operation failed")
}

func TestCreateMultipleEvents_ValidateOnly(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	resp := svc.CreateMultipleEvents(ctx, batchInputs(3, 1), calendar.BatchOptions{ValidateOnly: true})
	assert.Equal(t, "validated 2 events successfully, 1 failed.", resp.Message)
	assert.Equal(t, "Event validation successful", resp.Results[0].Message)

	events, err := svc.ListEvents(ctx, base, base.Add(24*time.Hour))
	require.NoError(t, err)
	assert.Empty(t, events, "validate-only stores nothing")
}

type failingStore struct{ *calendar.MemStore }

func (failingStore) CreateEvent(context.Context, calendar.Event) error { return errors.New("disk full") }

func TestCreateEvent_StoreErrorWrapped(t *testing.T) {
	svc := calendar.NewService(failingStore{calendar.NewMemStore()})
	_, err := svc.CreateEvent(context.Background(), calendar.EventInput{Summary: "x", StartDateTime: at(0), EndDateTime: at(1)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create event: disk full")
}
