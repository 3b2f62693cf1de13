package domain

import "time"

// PrivilegeLevel selects which of the two process-wide sessions a remote
// call rides on.
type PrivilegeLevel string

const (
	PrivilegeUser       PrivilegeLevel = "user"
	PrivilegePrivileged PrivilegeLevel = "privileged"
)

// Credential is a login/secret pair. It never leaves the session layer.
type Credential struct {
	Login  string
	Secret string
}

func (c Credential) Empty() bool { return c.Login == "" || c.Secret == "" }

// Session is an authenticated identity against the remote backend. Callers
// receive it as an immutable snapshot; only the session service mutates the
// stored copy.
type Session struct {
	UID        int
	Login      string
	Name       string
	PartnerID  int
	Token      string
	Privileged bool

	// Context is the execution context the backend handed out at login and
	// expects echoed back on every call (lang, tz, uid).
	Context map[string]any

	IssuedAt  time.Time
	ExpiresAt time.Time
}

func (s Session) Valid() bool { return s.UID != 0 && s.Token != "" }

func (s Session) Lifetime() time.Duration { return s.ExpiresAt.Sub(s.IssuedAt) }

// NeedsRefresh reports whether the session is expired or inside the trailing
// refresh margin, expressed as a fraction of its lifetime.
func (s Session) NeedsRefresh(now time.Time, margin float64) bool {
	if !s.Valid() {
		return true
	}
	lifetime := s.Lifetime()
	if lifetime <= 0 {
		return true
	}
	threshold := s.ExpiresAt.Add(-time.Duration(float64(lifetime) * margin))
	return !now.Before(threshold)
}
