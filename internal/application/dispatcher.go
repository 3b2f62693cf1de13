package application

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/metrics"
	"github.com/customk9/booking-gateway/internal/ports"
)

type sessionProvider interface {
	Ensure(ctx context.Context, level domain.PrivilegeLevel) (domain.Session, error)
	Refresh(ctx context.Context, level domain.PrivilegeLevel) (domain.Session, error)
	Invalidate(ctx context.Context) error
}

// Dispatcher funnels every remote call through the session lifecycle. A
// call that comes back unauthorized triggers exactly one refresh and one
// retry; calls arriving while a refresh is in flight queue up and are
// released in arrival order once it settles.
type Dispatcher struct {
	backend  ports.Backend
	sessions sessionProvider
	log      zerolog.Logger

	mu         sync.Mutex
	refreshing map[domain.PrivilegeLevel]bool
	waiters    map[domain.PrivilegeLevel][]chan error
}

var _ ports.Caller = (*Dispatcher)(nil)

func NewDispatcher(backend ports.Backend, sessions sessionProvider, log zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		backend:    backend,
		sessions:   sessions,
		log:        log,
		refreshing: make(map[domain.PrivilegeLevel]bool),
		waiters:    make(map[domain.PrivilegeLevel][]chan error),
	}
}

// Call executes one backend request under the session for the given
// privilege level.
func (d *Dispatcher) Call(ctx context.Context, req domain.RPCRequest, level domain.PrivilegeLevel) (json.RawMessage, error) {
	if err := d.awaitRefresh(ctx, level); err != nil {
		return nil, err
	}

	sess, err := d.sessions.Ensure(ctx, level)
	if err != nil {
		return nil, err
	}

	raw, err := d.execute(ctx, sess, req)
	if err == nil {
		return raw, nil
	}
	if !domain.IsKind(err, domain.KindUnauthorized) {
		return nil, err
	}

	d.log.Debug().
		Str("model", req.Model).
		Str("method", req.Method).
		Msg("call rejected as unauthorized, refreshing session")

	sess, rerr := d.refresh(ctx, level)
	if rerr != nil {
		return nil, rerr
	}

	raw, err = d.execute(ctx, sess, req)
	if err == nil {
		return raw, nil
	}
	if domain.IsKind(err, domain.KindUnauthorized) && level == domain.PrivilegeUser {
		// A fresh session was rejected too. The credentials themselves
		// are no longer accepted, so drop the local session entirely.
		if ierr := d.sessions.Invalidate(ctx); ierr != nil {
			d.log.Warn().Err(ierr).Msg("failed to invalidate session after repeated rejection")
		}
	}
	return nil, err
}

func (d *Dispatcher) execute(ctx context.Context, sess domain.Session, req domain.RPCRequest) (json.RawMessage, error) {
	start := time.Now()
	raw, err := d.backend.Execute(ctx, sess, req)
	metrics.RPCDuration.WithLabelValues(req.Model, req.Method).Observe(time.Since(start).Seconds())

	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	metrics.RPCCalls.WithLabelValues(req.Model, req.Method, outcome).Inc()
	return raw, err
}

// awaitRefresh blocks while a refresh for the level is in flight. Waiters
// are released in the order they arrived; a failed refresh aborts them all
// with the refresh error.
func (d *Dispatcher) awaitRefresh(ctx context.Context, level domain.PrivilegeLevel) error {
	d.mu.Lock()
	if !d.refreshing[level] {
		d.mu.Unlock()
		return nil
	}
	ch := make(chan error, 1)
	d.waiters[level] = append(d.waiters[level], ch)
	d.mu.Unlock()

	select {
	case err := <-ch:
		return err
	case <-ctx.Done():
		return domain.WrapError(domain.KindNetworkError, "waiting for session refresh", ctx.Err())
	}
}

// refresh runs one coalesced refresh for the level. The first caller
// performs it; callers that raced in behind it wait for the same outcome.
func (d *Dispatcher) refresh(ctx context.Context, level domain.PrivilegeLevel) (domain.Session, error) {
	d.mu.Lock()
	if d.refreshing[level] {
		ch := make(chan error, 1)
		d.waiters[level] = append(d.waiters[level], ch)
		d.mu.Unlock()

		select {
		case err := <-ch:
			if err != nil {
				return domain.Session{}, err
			}
			return d.sessions.Ensure(ctx, level)
		case <-ctx.Done():
			return domain.Session{}, domain.WrapError(domain.KindNetworkError, "waiting for session refresh", ctx.Err())
		}
	}
	d.refreshing[level] = true
	d.mu.Unlock()

	sess, err := d.sessions.Refresh(ctx, level)

	d.mu.Lock()
	d.refreshing[level] = false
	waiting := d.waiters[level]
	d.waiters[level] = nil
	d.mu.Unlock()

	for _, ch := range waiting {
		ch <- err
	}
	return sess, err
}
