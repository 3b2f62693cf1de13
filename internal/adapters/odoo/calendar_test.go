package odoo

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customk9/booking-gateway/internal/domain"
)

type recordedCall struct {
	req   domain.RPCRequest
	level domain.PrivilegeLevel
}

type fakeCaller struct {
	calls   []recordedCall
	results []json.RawMessage
	errs    []error
}

func (f *fakeCaller) Call(_ context.Context, req domain.RPCRequest, level domain.PrivilegeLevel) (json.RawMessage, error) {
	f.calls = append(f.calls, recordedCall{req: req, level: level})
	idx := len(f.calls) - 1
	var err error
	if idx < len(f.errs) {
		err = f.errs[idx]
	}
	var result json.RawMessage
	if idx < len(f.results) {
		result = f.results[idx]
	}
	return result, err
}

func TestListDayBuildsDayFilter(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`[
		{"id":1,"name":"Existing","start":"2026-03-10 10:00:00","stop":"2026-03-10 11:00:00","location":"Training Room"}
	]`)}}
	cal := NewCalendar(caller)

	day := time.Date(2026, 3, 10, 15, 30, 0, 0, time.UTC)
	got, err := cal.ListDay(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].ID)
	assert.Equal(t, "Training Room", got[0].Location)

	require.Len(t, caller.calls, 1)
	call := caller.calls[0]
	assert.Equal(t, "calendar.event", call.req.Model)
	assert.Equal(t, "search_read", call.req.Method)
	assert.Equal(t, domain.PrivilegeUser, call.level)

	filter := call.req.Args[0].([]any)
	require.Len(t, filter, 2)
	assert.Equal(t, []any{"start", ">=", "2026-03-10 00:00:00"}, filter[0])
	assert.Equal(t, []any{"start", "<", "2026-03-11 00:00:00"}, filter[1])
}

func TestOverlappingUsesHalfOpenFilter(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`[]`)}}
	cal := NewCalendar(caller)

	iv := domain.NewInterval(time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC), time.Hour)
	got, err := cal.Overlapping(context.Background(), iv)
	require.NoError(t, err)
	assert.Empty(t, got)

	filter := caller.calls[0].req.Args[0].([]any)
	assert.Equal(t, []any{"start", "<", "2026-03-10 11:00:00"}, filter[0])
	assert.Equal(t, []any{"stop", ">", "2026-03-10 10:00:00"}, filter[1])
}

func TestCreateBuildsEventPayload(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`99`)}}
	cal := NewCalendar(caller, WithPrivilegedWrites())

	start := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	id, err := cal.Create(context.Background(), domain.BookingRequest{
		Type:     domain.SessionGroup,
		Service:  "Puppy Class",
		Interval: domain.NewInterval(start, 90*time.Minute),
		Participants: []domain.Participant{
			{PartnerID: 7, Name: "Alex"},
			{Name: "Walk-in guest"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	call := caller.calls[0]
	assert.Equal(t, "create", call.req.Method)
	assert.Equal(t, domain.PrivilegePrivileged, call.level)

	payload := call.req.Args[0].(map[string]any)
	assert.Equal(t, "Puppy Class - group session", payload["name"])
	assert.Equal(t, "2026-03-10 10:00:00", payload["start"])
	assert.Equal(t, "2026-03-10 11:30:00", payload["stop"])
	assert.Equal(t, 1.5, payload["duration"])
	assert.Equal(t, "Training Hall", payload["location"])
	assert.Equal(t, "busy", payload["show_as"])
	assert.Equal(t, false, payload["allday"])
	// Only registered partners join the attendee link.
	assert.Equal(t, []any{[]any{6, 0, []int{7}}}, payload["partner_ids"])
}

func TestGetReadsBackByID(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`[
		{"id":99,"name":"Puppy Class - group session","start":"2026-03-10 10:00:00","stop":"2026-03-10 11:30:00","location":"Training Hall"}
	]`)}}
	cal := NewCalendar(caller)

	res, ok, err := cal.Get(context.Background(), 99)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(99), res.ID)

	call := caller.calls[0]
	assert.Equal(t, "read", call.req.Method)
	assert.Equal(t, []any{[]int64{99}, eventFields}, call.req.Args)
}

func TestGetReportsMissingEvent(t *testing.T) {
	t.Parallel()

	t.Run("empty result", func(t *testing.T) {
		t.Parallel()
		caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`[]`)}}
		_, ok, err := NewCalendar(caller).Get(context.Background(), 99)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing error", func(t *testing.T) {
		t.Parallel()
		caller := &fakeCaller{errs: []error{domain.NewError(domain.KindNotFound, "record gone")}}
		_, ok, err := NewCalendar(caller).Get(context.Background(), 99)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestDeleteUnlinks(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`true`)}}
	require.NoError(t, NewCalendar(caller).Delete(context.Background(), 99))

	call := caller.calls[0]
	assert.Equal(t, "unlink", call.req.Method)
	assert.Equal(t, []any{[]int64{99}}, call.req.Args)
}

func TestListUpcomingOrdersAndLimits(t *testing.T) {
	t.Parallel()

	caller := &fakeCaller{results: []json.RawMessage{json.RawMessage(`[]`)}}
	cal := NewCalendar(caller)

	from := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	_, err := cal.ListUpcoming(context.Background(), 21, from, from.AddDate(0, 1, 0))
	require.NoError(t, err)

	call := caller.calls[0]
	assert.Equal(t, "start ASC", call.req.Kwargs["order"])
	assert.Equal(t, 50, call.req.Kwargs["limit"])

	filter := call.req.Args[0].([]any)
	assert.Equal(t, []any{"partner_ids", "in", []int{21}}, filter[2])
}
