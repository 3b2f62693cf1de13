package state

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pelletier/go-toml/v2"
	"github.com/rs/zerolog"

	"github.com/customk9/booking-gateway/internal/domain"
	"github.com/customk9/booking-gateway/internal/ports"
)

// DefaultMaxAge bounds how long a persisted session is trusted, independent
// of the expiry the backend reported.
const DefaultMaxAge = 24 * time.Hour

type fileRecord struct {
	Record string `toml:"record"`
}

type sessionClaims struct {
	UID        int            `json:"uid"`
	Login      string         `json:"login"`
	Name       string         `json:"name"`
	PartnerID  int            `json:"partner_id"`
	Token      string         `json:"token"`
	Privileged bool           `json:"privileged"`
	Context    map[string]any `json:"context,omitempty"`
	jwt.RegisteredClaims
}

// Store persists the user session to disk as a signed claim set so a
// restarted process can resume without re-authenticating. A missing,
// malformed, tampered or over-age record is treated as absence, never as
// an error.
type Store struct {
	path   string
	secret []byte
	maxAge time.Duration
	log    zerolog.Logger
	now    func() time.Time
}

var _ ports.SessionStore = (*Store)(nil)

type Option func(*Store)

func WithMaxAge(d time.Duration) Option {
	return func(s *Store) { s.maxAge = d }
}

func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

func WithNow(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

func NewStore(path string, secret []byte, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("state: path is required")
	}
	if len(secret) == 0 {
		return nil, errors.New("state: signing secret is required")
	}
	s := &Store{
		path:   path,
		secret: secret,
		maxAge: DefaultMaxAge,
		log:    zerolog.Nop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Save(sess domain.Session) error {
	now := s.now()
	claims := sessionClaims{
		UID:        sess.UID,
		Login:      sess.Login,
		Name:       sess.Name,
		PartnerID:  sess.PartnerID,
		Token:      sess.Token,
		Privileged: sess.Privileged,
		Context:    sess.Context,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return fmt.Errorf("sign session record: %w", err)
	}

	data, err := toml.Marshal(fileRecord{Record: signed})
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	return s.writeAtomic(data)
}

func (s *Store) Load() (domain.Session, bool) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return domain.Session{}, false
	}

	var rec fileRecord
	if err := toml.Unmarshal(data, &rec); err != nil || rec.Record == "" {
		s.log.Debug().Msg("discarding malformed session record")
		return domain.Session{}, false
	}

	var claims sessionClaims
	token, err := jwt.ParseWithClaims(rec.Record, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		s.log.Debug().Err(err).Msg("discarding unverifiable session record")
		return domain.Session{}, false
	}

	issued := claims.IssuedAt
	expires := claims.ExpiresAt
	if issued == nil || expires == nil {
		return domain.Session{}, false
	}
	if s.now().Sub(issued.Time) > s.maxAge {
		s.log.Debug().Msg("discarding over-age session record")
		return domain.Session{}, false
	}

	sess := domain.Session{
		UID:        claims.UID,
		Login:      claims.Login,
		Name:       claims.Name,
		PartnerID:  claims.PartnerID,
		Token:      claims.Token,
		Privileged: claims.Privileged,
		Context:    claims.Context,
		IssuedAt:   issued.Time,
		ExpiresAt:  expires.Time,
	}
	if !sess.Valid() {
		return domain.Session{}, false
	}
	return sess, true
}

func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("clear session record: %w", err)
	}
	return nil
}

func (s *Store) writeAtomic(data []byte) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".session-*.toml")
	if err != nil {
		return fmt.Errorf("create temp state file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("restrict state file mode: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write state file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close state file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace state file: %w", err)
	}
	return nil
}
