package application

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/customk9/booking-gateway/internal/domain"
)

func bookingFixture(t *testing.T, res *fakeReservations) *BookingService {
	t.Helper()
	return NewBookingService(res, newFakeClock(testStart), zerolog.Nop())
}

func bookingReq() domain.BookingRequest {
	return domain.BookingRequest{
		Type:         domain.SessionIndividual,
		Service:      "Obedience Training",
		Interval:     domain.NewInterval(at(10, 0), time.Hour),
		Participants: []domain.Participant{{PartnerID: 7, Name: "Alex"}},
	}
}

func TestBookHappyPath(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{
		createID: 99,
		getOK:    true,
		getRes:   domain.Reservation{ID: 99, Start: at(10, 0), Stop: at(11, 0)},
	}
	svc := bookingFixture(t, res)

	id, err := svc.Book(context.Background(), bookingReq())
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Equal(t, 1, res.overlapCalls, "conflicts re-checked before create")
	assert.Equal(t, 1, res.createCalls)
	assert.Equal(t, 1, res.getCalls, "created event read back")
}

func TestBookRejectsInvalidRequest(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{}
	svc := bookingFixture(t, res)

	req := bookingReq()
	req.Service = ""
	_, err := svc.Book(context.Background(), req)
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Zero(t, res.createCalls)
}

func TestBookReturnsConflictWithDetails(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{overlapping: []domain.Reservation{
		{ID: 5, Start: at(10, 30), Stop: at(11, 30)},
	}}
	svc := bookingFixture(t, res)

	_, err := svc.Book(context.Background(), bookingReq())
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	details := domain.ConflictsOf(err)
	require.Len(t, details, 1)
	assert.Equal(t, int64(5), details[0].ID)
	assert.Equal(t, at(10, 30), details[0].Start)

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Zero(t, res.createCalls, "no create after a detected conflict")
}

func TestBookFailsWhenReadBackMissesEvent(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{createID: 99, getOK: false}
	svc := bookingFixture(t, res)

	_, err := svc.Book(context.Background(), bookingReq())
	require.Error(t, err)
	assert.Equal(t, domain.KindUnknown, domain.KindOf(err))
}

func TestConcurrentBookingsForSameSlotAreSerialized(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{
		createID: 99,
		getOK:    true,
		getRes:   domain.Reservation{ID: 99, Start: at(10, 0), Stop: at(11, 0)},
	}
	// Hold the first attempt inside create long enough for the others to
	// hit the guard.
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	res.beforeCreate = func() {
		if first.CompareAndSwap(true, false) {
			<-release
		}
	}
	svc := bookingFixture(t, res)

	var inProgress, succeeded atomic.Int32
	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Book(context.Background(), bookingReq())
			switch {
			case err == nil:
				succeeded.Add(1)
			case domain.IsKind(err, domain.KindBookingInProgress):
				inProgress.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), succeeded.Load())
	assert.Equal(t, int32(4), inProgress.Load())

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Equal(t, 1, res.createCalls)
}

func TestGuardIsReleasedAfterFailure(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{createErr: domain.NewError(domain.KindServerError, "boom")}
	svc := bookingFixture(t, res)

	_, err := svc.Book(context.Background(), bookingReq())
	require.Error(t, err)

	// Same slot can be retried immediately; the guard must not leak.
	res.mu.Lock()
	res.createErr = nil
	res.createID = 99
	res.getOK = true
	res.getRes = domain.Reservation{ID: 99}
	res.mu.Unlock()

	id, err := svc.Book(context.Background(), bookingReq())
	require.NoError(t, err)
	assert.Equal(t, int64(99), id)
}

func TestBookingsForDifferentSlotsDoNotBlockEachOther(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{
		createID: 99,
		getOK:    true,
		getRes:   domain.Reservation{ID: 99},
	}
	release := make(chan struct{})
	var first atomic.Bool
	first.Store(true)
	res.beforeCreate = func() {
		if first.CompareAndSwap(true, false) {
			<-release
		}
	}
	svc := bookingFixture(t, res)

	blocked := make(chan struct{})
	go func() {
		_, _ = svc.Book(context.Background(), bookingReq())
		close(blocked)
	}()
	time.Sleep(20 * time.Millisecond)

	other := bookingReq()
	other.Interval = domain.NewInterval(at(14, 0), time.Hour)
	_, err := svc.Book(context.Background(), other)
	require.NoError(t, err, "a different slot books while the first is held")

	close(release)
	<-blocked
}

func TestUpcomingRequiresPartner(t *testing.T) {
	t.Parallel()

	svc := bookingFixture(t, &fakeReservations{})

	_, err := svc.Upcoming(context.Background(), 0)
	assert.Equal(t, domain.KindBadRequest, domain.KindOf(err))
}

func TestUpcomingListsMonthAhead(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{upcoming: []domain.Reservation{{ID: 1}, {ID: 2}}}
	svc := bookingFixture(t, res)

	got, err := svc.Upcoming(context.Background(), 21)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestCancelChecksExistence(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{getOK: false}
	svc := bookingFixture(t, res)

	err := svc.Cancel(context.Background(), 42)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Zero(t, res.deleteCalls)
}

func TestCancelDeletesExistingReservation(t *testing.T) {
	t.Parallel()

	res := &fakeReservations{getOK: true, getRes: domain.Reservation{ID: 42}}
	svc := bookingFixture(t, res)

	require.NoError(t, svc.Cancel(context.Background(), 42))

	res.mu.Lock()
	defer res.mu.Unlock()
	assert.Equal(t, 1, res.deleteCalls)
}
