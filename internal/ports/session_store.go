package ports

import "github.com/customk9/booking-gateway/internal/domain"

// SessionStore persists the user session across process restarts as a
// signed, time-boxed record. Load returns ok=false for a missing, malformed,
// tampered, or over-age record; those are all "no session", never errors.
type SessionStore interface {
	Save(sess domain.Session) error
	Load() (domain.Session, bool)
	Clear() error
}
