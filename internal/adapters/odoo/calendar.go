package odoo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/ports"
)

const eventModel = "calendar.event"

var eventFields = []string{"id", "name", "start", "stop", "location"}

// Calendar implements ports.Reservations on top of the dispatcher. It owns
// the backend's calendar.event representation: domain filters, the naive
// UTC datetime format, and the event payload shape.
type Calendar struct {
	caller     ports.Caller
	writeLevel domain.PrivilegeLevel
}

var _ ports.Reservations = (*Calendar)(nil)

type CalendarOption func(*Calendar)

// WithPrivilegedWrites routes create/delete through the privileged session,
// for deployments where portal users cannot write calendar events directly.
func WithPrivilegedWrites() CalendarOption {
	return func(c *Calendar) { c.writeLevel = domain.PrivilegePrivileged }
}

func NewCalendar(caller ports.Caller, opts ...CalendarOption) *Calendar {
	c := &Calendar{caller: caller, writeLevel: domain.PrivilegeUser}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Calendar) ListDay(ctx context.Context, day time.Time) ([]domain.Reservation, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	filter := []any{
		[]any{"start", ">=", FormatDatetime(dayStart)},
		[]any{"start", "<", FormatDatetime(dayStart.AddDate(0, 0, 1))},
	}
	return c.searchRead(ctx, filter, nil)
}

func (c *Calendar) Overlapping(ctx context.Context, iv domain.Interval) ([]domain.Reservation, error) {
	// Half-open intersection: existing.start < iv.stop AND existing.stop >
	// iv.start. Touching endpoints are not conflicts.
	filter := []any{
		[]any{"start", "<", FormatDatetime(iv.Stop)},
		[]any{"stop", ">", FormatDatetime(iv.Start)},
	}
	return c.searchRead(ctx, filter, nil)
}

func (c *Calendar) ListUpcoming(ctx context.Context, partnerID int, from, until time.Time) ([]domain.Reservation, error) {
	filter := []any{
		[]any{"start", ">=", FormatDatetime(from)},
		[]any{"start", "<", FormatDatetime(until)},
		[]any{"partner_ids", "in", []int{partnerID}},
	}
	kwargs := map[string]any{"order": "start ASC", "limit": 50}
	return c.searchRead(ctx, filter, kwargs)
}

func (c *Calendar) Create(ctx context.Context, req domain.BookingRequest) (int64, error) {
	raw, err := c.caller.Call(ctx, domain.RPCRequest{
		Model:  eventModel,
		Method: "create",
		Args:   []any{c.eventPayload(req)},
	}, c.writeLevel)
	if err != nil {
		return 0, fmt.Errorf("create reservation: %w", err)
	}

	var id int64
	if err := json.Unmarshal(raw, &id); err != nil {
		return 0, domain.WrapError(domain.KindUnknown, "decode created reservation id", err)
	}
	return id, nil
}

func (c *Calendar) Get(ctx context.Context, id int64) (domain.Reservation, bool, error) {
	raw, err := c.caller.Call(ctx, domain.RPCRequest{
		Model:  eventModel,
		Method: "read",
		Args:   []any{[]int64{id}, eventFields},
	}, c.writeLevel)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return domain.Reservation{}, false, nil
		}
		return domain.Reservation{}, false, fmt.Errorf("read reservation %d: %w", id, err)
	}

	var rows []eventRecord
	if err := json.Unmarshal(raw, &rows); err != nil {
		return domain.Reservation{}, false, domain.WrapError(domain.KindUnknown, "decode reservation", err)
	}
	if len(rows) == 0 {
		return domain.Reservation{}, false, nil
	}
	return toReservation(rows[0]), true, nil
}

func (c *Calendar) Delete(ctx context.Context, id int64) error {
	_, err := c.caller.Call(ctx, domain.RPCRequest{
		Model:  eventModel,
		Method: "unlink",
		Args:   []any{[]int64{id}},
	}, c.writeLevel)
	if err != nil {
		return fmt.Errorf("cancel reservation %d: %w", id, err)
	}
	return nil
}

func (c *Calendar) searchRead(ctx context.Context, filter []any, extraKwargs map[string]any) ([]domain.Reservation, error) {
	kwargs := map[string]any{"fields": eventFields}
	for k, v := range extraKwargs {
		kwargs[k] = v
	}

	raw, err := c.caller.Call(ctx, domain.RPCRequest{
		Model:  eventModel,
		Method: "search_read",
		Args:   []any{filter},
		Kwargs: kwargs,
	}, domain.PrivilegeUser)
	if err != nil {
		return nil, fmt.Errorf("read reservations: %w", err)
	}

	var rows []eventRecord
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, domain.WrapError(domain.KindUnknown, "decode reservations", err)
	}

	out := make([]domain.Reservation, 0, len(rows))
	for _, row := range rows {
		out = append(out, toReservation(row))
	}
	return out, nil
}

func (c *Calendar) eventPayload(req domain.BookingRequest) map[string]any {
	location := "Training Room"
	if req.Type == domain.SessionGroup {
		location = "Training Hall"
	}

	names := make([]string, 0, len(req.Participants))
	partnerIDs := make([]int, 0, len(req.Participants))
	for _, p := range req.Participants {
		names = append(names, p.Name)
		if p.PartnerID != 0 {
			partnerIDs = append(partnerIDs, p.PartnerID)
		}
	}

	payload := map[string]any{
		"name":     fmt.Sprintf("%s - %s session", req.Service, req.Type),
		"start":    FormatDatetime(req.Interval.Start),
		"stop":     FormatDatetime(req.Interval.Stop),
		"duration": req.Interval.Duration().Hours(),
		"location": location,
		"allday":   false,
		"show_as":  "busy",
		"description": fmt.Sprintf("Service: %s\nType: %s\nParticipants: %s",
			req.Service, req.Type, strings.Join(names, ", ")),
	}
	if len(partnerIDs) > 0 {
		// many2many replace command
		payload["partner_ids"] = []any{[]any{6, 0, partnerIDs}}
	}
	return payload
}

func toReservation(row eventRecord) domain.Reservation {
	return domain.Reservation{
		ID:       row.ID,
		Name:     string(row.Name),
		Start:    row.Start.Time,
		Stop:     row.Stop.Time,
		Location: string(row.Location),
	}
}
