package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/metrics"
	"github.com/customk9/booking-gateway/internal/ports"
)

// upcomingWindow bounds how far ahead the appointment listing looks.
const upcomingWindow = 31 * 24 * time.Hour

// BookingService books appointments against a backend that offers no
// transactions. It compensates with a local in-flight guard keyed by the
// requested interval, a conflict re-check immediately before creation and
// a read-back afterwards to verify the event actually landed.
type BookingService struct {
	res   ports.Reservations
	clock ports.Clock
	log   zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
}

func NewBookingService(res ports.Reservations, clock ports.Clock, log zerolog.Logger) *BookingService {
	return &BookingService{
		res:     res,
		clock:   clock,
		log:     log,
		pending: make(map[string]struct{}),
	}
}

// Book runs one booking attempt end to end and returns the created
// reservation id. The in-flight guard is always released, whatever the
// outcome.
func (s *BookingService) Book(ctx context.Context, req domain.BookingRequest) (resID int64, err error) {
	defer func() {
		metrics.BookingAttempts.WithLabelValues(resultLabel(err)).Inc()
	}()

	if err := req.Validate(); err != nil {
		return 0, err
	}

	key := req.Interval.Key()
	if !s.acquire(key) {
		return 0, domain.NewError(domain.KindBookingInProgress,
			"a booking for this time slot is already being processed")
	}
	defer s.release(key)

	overlapping, err := s.res.Overlapping(ctx, req.Interval)
	if err != nil {
		return 0, fmt.Errorf("check conflicts: %w", err)
	}
	if len(overlapping) > 0 {
		return 0, domain.ConflictError(conflictDetails(overlapping))
	}

	id, err := s.res.Create(ctx, req)
	if err != nil {
		return 0, err
	}

	created, ok, err := s.res.Get(ctx, id)
	if err != nil {
		return 0, fmt.Errorf("verify reservation %d: %w", id, err)
	}
	if !ok {
		return 0, domain.NewError(domain.KindUnknown, "created reservation could not be read back")
	}

	s.log.Info().
		Int64("id", created.ID).
		Time("start", created.Start).
		Str("type", string(req.Type)).
		Msg("booking confirmed")
	return created.ID, nil
}

// Upcoming lists the partner's appointments from now through the next
// month, soonest first.
func (s *BookingService) Upcoming(ctx context.Context, partnerID int) ([]domain.Reservation, error) {
	if partnerID == 0 {
		return nil, domain.NewError(domain.KindBadRequest, "partner id is required")
	}
	now := s.clock.Now()
	return s.res.ListUpcoming(ctx, partnerID, now, now.Add(upcomingWindow))
}

// Cancel removes an existing reservation.
func (s *BookingService) Cancel(ctx context.Context, id int64) error {
	if id <= 0 {
		return domain.NewError(domain.KindBadRequest, "reservation id is required")
	}
	_, ok, err := s.res.Get(ctx, id)
	if err != nil {
		return fmt.Errorf("look up reservation %d: %w", id, err)
	}
	if !ok {
		return domain.NewError(domain.KindNotFound, "reservation not found")
	}
	return s.res.Delete(ctx, id)
}

func (s *BookingService) acquire(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.pending[key]; busy {
		return false
	}
	s.pending[key] = struct{}{}
	return true
}

func (s *BookingService) release(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

func conflictDetails(rs []domain.Reservation) []domain.ConflictDetail {
	out := make([]domain.ConflictDetail, 0, len(rs))
	for _, r := range rs {
		out = append(out, domain.ConflictDetail{ID: r.ID, Start: r.Start, Stop: r.Stop})
	}
	return out
}

func resultLabel(err error) string {
	if err == nil {
		return "ok"
	}
	switch domain.KindOf(err) {
	case domain.KindConflict:
		return "conflict"
	case domain.KindBookingInProgress:
		return "in_progress"
	case domain.KindBadRequest:
		return "invalid"
	default:
		return "error"
	}
}
