package ports

import (
	"context"
	"time"

	"github.com/customk9/booking-gateway/internal/domain"
)

// Reservations reads and writes calendar reservations on the remote
// backend. Every read is a point-in-time snapshot; the backend offers no
// check-and-reserve primitive, so callers re-validate before committing.
type Reservations interface {
	// ListDay returns all reservations starting on the given day.
	ListDay(ctx context.Context, day time.Time) ([]domain.Reservation, error)

	// Overlapping returns reservations intersecting the half-open interval.
	Overlapping(ctx context.Context, iv domain.Interval) ([]domain.Reservation, error)

	// Create writes a new reservation and returns its id.
	Create(ctx context.Context, req domain.BookingRequest) (int64, error)

	// Get reads a reservation back by id; ok=false when it does not exist.
	Get(ctx context.Context, id int64) (domain.Reservation, bool, error)

	// Delete cancels a reservation.
	Delete(ctx context.Context, id int64) error

	// ListUpcoming returns reservations for a partner in [from, until).
	ListUpcoming(ctx context.Context, partnerID int, from, until time.Time) ([]domain.Reservation, error)
}
