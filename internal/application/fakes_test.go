package application

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/customk9/booking-gateway/internal/domain"
)

// fakeBackend counts handshakes and lets tests script per-call outcomes.
type fakeBackend struct {
	mu sync.Mutex

	authCalls   int
	authErr     error
	authDelay   time.Duration
	sessionTTL  time.Duration
	now         func() time.Time
	logoutCalls int
	logoutErr   error

	executeFn func(sess domain.Session, req domain.RPCRequest) (json.RawMessage, error)
}

func newFakeBackend(now func() time.Time) *fakeBackend {
	return &fakeBackend{sessionTTL: 12 * time.Hour, now: now}
}

func (f *fakeBackend) Authenticate(_ context.Context, cred domain.Credential) (domain.Session, error) {
	f.mu.Lock()
	f.authCalls++
	delay := f.authDelay
	err := f.authErr
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if err != nil {
		return domain.Session{}, err
	}

	now := f.now()
	return domain.Session{
		UID:       7,
		Login:     cred.Login,
		Name:      "Alex",
		PartnerID: 21,
		Token:     "tok-" + cred.Login,
		IssuedAt:  now,
		ExpiresAt: now.Add(f.sessionTTL),
	}, nil
}

func (f *fakeBackend) Execute(_ context.Context, sess domain.Session, req domain.RPCRequest) (json.RawMessage, error) {
	f.mu.Lock()
	fn := f.executeFn
	f.mu.Unlock()
	if fn == nil {
		return json.RawMessage(`null`), nil
	}
	return fn(sess, req)
}

func (f *fakeBackend) Logout(context.Context, domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logoutCalls++
	return f.logoutErr
}

func (f *fakeBackend) handshakes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.authCalls
}

// fakeStore is an in-memory ports.SessionStore.
type fakeStore struct {
	mu      sync.Mutex
	sess    domain.Session
	present bool
	saveErr error
	saves   int
	clears  int
}

func (f *fakeStore) Save(sess domain.Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves++
	if f.saveErr != nil {
		return f.saveErr
	}
	f.sess = sess
	f.present = true
	return nil
}

func (f *fakeStore) Load() (domain.Session, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sess, f.present
}

func (f *fakeStore) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clears++
	f.present = false
	f.sess = domain.Session{}
	return nil
}

// fakeClock is a settable ports.Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(now time.Time) *fakeClock { return &fakeClock{now: now} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeReservations scripts the calendar repository.
type fakeReservations struct {
	mu sync.Mutex

	dayEvents []domain.Reservation
	dayErr    error
	dayCalls  int

	overlapping  []domain.Reservation
	overlapErr   error
	overlapCalls int

	createID    int64
	createErr   error
	createCalls int
	created     []domain.BookingRequest

	getRes   domain.Reservation
	getOK    bool
	getErr   error
	getCalls int

	deleteErr   error
	deleteCalls int

	upcoming    []domain.Reservation
	upcomingErr error

	beforeCreate func()
}

func (f *fakeReservations) ListDay(context.Context, time.Time) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dayCalls++
	return f.dayEvents, f.dayErr
}

func (f *fakeReservations) Overlapping(context.Context, domain.Interval) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.overlapCalls++
	return f.overlapping, f.overlapErr
}

func (f *fakeReservations) Create(_ context.Context, req domain.BookingRequest) (int64, error) {
	f.mu.Lock()
	hook := f.beforeCreate
	f.mu.Unlock()
	if hook != nil {
		hook()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.createCalls++
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.created = append(f.created, req)
	return f.createID, nil
}

func (f *fakeReservations) Get(context.Context, int64) (domain.Reservation, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.getCalls++
	return f.getRes, f.getOK, f.getErr
}

func (f *fakeReservations) Delete(context.Context, int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleteCalls++
	return f.deleteErr
}

func (f *fakeReservations) ListUpcoming(context.Context, int, time.Time, time.Time) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upcoming, f.upcomingErr
}
