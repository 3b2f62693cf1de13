package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/metrics"
	"github.com/customk9/booking-gateway/internal/ports"
)

// RefreshMargin is the fraction of a session's lifetime treated as the
// pre-expiry window in which calls trigger a refresh instead of riding the
// existing session to the wire.
const RefreshMargin = 0.10

// SessionService owns the lifecycle of both sessions: the interactive user
// session, persisted across restarts, and the privileged service session,
// which is held in memory only. Concurrent handshakes for the same session
// are coalesced so the backend sees at most one in flight.
type SessionService struct {
	backend ports.Backend
	store   ports.SessionStore
	clock   ports.Clock
	log     zerolog.Logger

	adminCred domain.Credential
	margin    float64

	sf singleflight.Group

	mu         sync.Mutex
	user       *domain.Session
	userCred   domain.Credential
	privileged *domain.Session

	onLogin  []func(domain.Session)
	onLogout []func()
}

type SessionOption func(*SessionService)

func WithSessionLogger(log zerolog.Logger) SessionOption {
	return func(s *SessionService) { s.log = log }
}

// WithRefreshMargin overrides the pre-expiry refresh window fraction.
func WithRefreshMargin(margin float64) SessionOption {
	return func(s *SessionService) {
		if margin > 0 && margin < 1 {
			s.margin = margin
		}
	}
}

func NewSessionService(backend ports.Backend, store ports.SessionStore, clock ports.Clock, adminCred domain.Credential, opts ...SessionOption) *SessionService {
	s := &SessionService{
		backend:   backend,
		store:     store,
		clock:     clock,
		log:       zerolog.Nop(),
		adminCred: adminCred,
		margin:    RefreshMargin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnLogin registers an observer called after every successful user
// authentication or refresh. Registration is not safe after use begins.
func (s *SessionService) OnLogin(fn func(domain.Session)) { s.onLogin = append(s.onLogin, fn) }

// OnLogout registers an observer called after the user session is
// invalidated.
func (s *SessionService) OnLogout(fn func()) { s.onLogout = append(s.onLogout, fn) }

// Restore loads a previously persisted user session. It is meant to run
// once at startup, before any traffic.
func (s *SessionService) Restore() {
	sess, ok := s.store.Load()
	if !ok {
		return
	}
	s.mu.Lock()
	s.user = &sess
	s.userCred = domain.Credential{Login: sess.Login}
	s.mu.Unlock()
	s.log.Info().Str("login", sess.Login).Msg("restored persisted session")
}

// Authenticate performs the user handshake and installs the resulting
// session. Concurrent calls for the same login share one handshake.
func (s *SessionService) Authenticate(ctx context.Context, cred domain.Credential) (domain.Session, error) {
	if cred.Empty() {
		return domain.Session{}, domain.NewError(domain.KindUnauthorized, "credentials are required")
	}

	v, err, _ := s.sf.Do("auth:"+cred.Login, func() (any, error) {
		sess, err := s.backend.Authenticate(ctx, cred)
		if err != nil {
			return nil, err
		}

		s.mu.Lock()
		s.user = &sess
		s.userCred = cred
		s.mu.Unlock()

		if err := s.store.Save(sess); err != nil {
			s.log.Warn().Err(err).Msg("failed to persist session")
		}
		s.notifyLogin(sess)
		return sess, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return v.(domain.Session), nil
}

// Current returns the active session for the given privilege level without
// touching the backend.
func (s *SessionService) Current(level domain.PrivilegeLevel) (domain.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess := s.sessionFor(level)
	if sess == nil || !sess.Valid() {
		return domain.Session{}, false
	}
	return *sess, true
}

// Ensure returns a usable session for the given level, refreshing it first
// when it is inside the pre-expiry margin or the privileged session was
// never established.
func (s *SessionService) Ensure(ctx context.Context, level domain.PrivilegeLevel) (domain.Session, error) {
	s.mu.Lock()
	sess := s.sessionFor(level)
	now := s.clock.Now()
	if sess != nil && sess.Valid() && !sess.NeedsRefresh(now, s.margin) {
		out := *sess
		s.mu.Unlock()
		return out, nil
	}
	s.mu.Unlock()
	return s.Refresh(ctx, level)
}

// Refresh re-authenticates the session for the given level. Concurrent
// refreshes of the same level are coalesced into a single handshake.
func (s *SessionService) Refresh(ctx context.Context, level domain.PrivilegeLevel) (domain.Session, error) {
	v, err, _ := s.sf.Do("refresh:"+string(level), func() (any, error) {
		cred := s.credentialFor(level)
		if cred.Empty() {
			return nil, domain.NewError(domain.KindUnauthorized, "no credentials available for session refresh")
		}

		sess, err := s.backend.Authenticate(ctx, cred)
		if err != nil {
			metrics.SessionRefreshes.WithLabelValues(string(level), "error").Inc()
			return nil, fmt.Errorf("refresh %s session: %w", level, err)
		}
		metrics.SessionRefreshes.WithLabelValues(string(level), "ok").Inc()

		s.mu.Lock()
		switch level {
		case domain.PrivilegePrivileged:
			sess.Privileged = true
			s.privileged = &sess
		default:
			s.user = &sess
		}
		s.mu.Unlock()

		if level == domain.PrivilegeUser {
			if err := s.store.Save(sess); err != nil {
				s.log.Warn().Err(err).Msg("failed to persist refreshed session")
			}
			s.notifyLogin(sess)
		}
		s.log.Debug().Str("level", string(level)).Int("uid", sess.UID).Msg("session refreshed")
		return sess, nil
	})
	if err != nil {
		return domain.Session{}, err
	}
	return v.(domain.Session), nil
}

// Invalidate drops the user session, best-effort revoking it remotely and
// clearing the persisted record. It is idempotent.
func (s *SessionService) Invalidate(ctx context.Context) error {
	s.mu.Lock()
	sess := s.user
	s.user = nil
	s.userCred = domain.Credential{}
	s.mu.Unlock()

	if sess != nil && sess.Valid() {
		if err := s.backend.Logout(ctx, *sess); err != nil {
			s.log.Warn().Err(err).Msg("remote logout failed")
		}
	}
	if err := s.store.Clear(); err != nil {
		return fmt.Errorf("invalidate session: %w", err)
	}
	s.notifyLogout()
	return nil
}

func (s *SessionService) sessionFor(level domain.PrivilegeLevel) *domain.Session {
	if level == domain.PrivilegePrivileged {
		return s.privileged
	}
	return s.user
}

func (s *SessionService) credentialFor(level domain.PrivilegeLevel) domain.Credential {
	if level == domain.PrivilegePrivileged {
		return s.adminCred
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userCred
}

func (s *SessionService) notifyLogin(sess domain.Session) {
	for _, fn := range s.onLogin {
		fn(sess)
	}
}

func (s *SessionService) notifyLogout() {
	for _, fn := range s.onLogout {
		fn()
	}
}
