package application

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/ports"
)

// AvailabilityService computes the free slot grid for a day. Reads go to
// the calendar once per request; when that read fails the service degrades
// to the full deterministic grid rather than surfacing an error, so the
// user always sees slots. Stale slots are caught again at booking time.
type AvailabilityService struct {
	res   ports.Reservations
	clock ports.Clock
	hours domain.BusinessHours
	log   zerolog.Logger
}

func NewAvailabilityService(res ports.Reservations, clock ports.Clock, hours domain.BusinessHours, log zerolog.Logger) *AvailabilityService {
	return &AvailabilityService{res: res, clock: clock, hours: hours, log: log}
}

// Slots returns the free slots of the given day for a session type. The
// grid steps by the session duration from opening time and only includes
// slots that fit entirely before closing.
func (s *AvailabilityService) Slots(ctx context.Context, day time.Time, typ domain.SessionType) ([]domain.Slot, error) {
	existing, err := s.res.ListDay(ctx, day)
	if err != nil {
		s.log.Warn().Err(err).Str("day", day.Format("2006-01-02")).
			Msg("calendar read failed, serving default slot grid")
		return s.grid(day, typ), nil
	}

	out := make([]domain.Slot, 0)
	for _, slot := range s.grid(day, typ) {
		if s.taken(slot, existing) {
			continue
		}
		out = append(out, slot)
	}
	return out, nil
}

func (s *AvailabilityService) grid(day time.Time, typ domain.SessionType) []domain.Slot {
	dur := typ.Duration()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	open := midnight.Add(s.hours.Open)
	close := midnight.Add(s.hours.Close)

	var slots []domain.Slot
	for start := open; !start.Add(dur).After(close); start = start.Add(dur) {
		slots = append(slots, domain.Slot{Start: start, End: start.Add(dur)})
	}
	return slots
}

func (s *AvailabilityService) taken(slot domain.Slot, existing []domain.Reservation) bool {
	iv := slot.Interval()
	for _, r := range existing {
		if iv.Overlaps(r.Interval()) {
			return true
		}
	}
	return false
}
