package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	// VisitorCookie survives browser restarts and scopes the cart and profile.
	VisitorCookie = "NAEGA_VISITOR"
	// SessionCookie has no expiry and scopes page state and the order handoff snapshot.
	SessionCookie = "NAEGA_SESSION"

	defaultVisitorTTL = 365 * 24 * time.Hour
)

// Identity names the two storage scopes of a request.
type Identity struct {
	VisitorID string
	SessionID string
}

type contextKey struct{}

// WithIdentity stores identity on the context.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// FromContext returns the identity assigned by Manager.Middleware.
func FromContext(ctx context.Context) (Identity, bool) {
	if ctx == nil {
		return Identity{}, false
	}
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok && id.VisitorID != "" && id.SessionID != ""
}

// Manager issues and verifies the signed visitor and session cookies.
type Manager struct {
	key        []byte
	secure     bool
	visitorTTL time.Duration
	newID      func() string
	clock      func() time.Time
	ephemeral  bool
}

// Option customises the Manager.
type Option func(*Manager)

// WithSecureCookies marks both cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) { m.secure = secure }
}

// WithVisitorTTL overrides the visitor cookie lifetime.
func WithVisitorTTL(ttl time.Duration) Option {
	return func(m *Manager) {
		if ttl > 0 {
			m.visitorTTL = ttl
		}
	}
}

// WithIDGenerator overrides identifier generation, mainly for tests.
func WithIDGenerator(fn func() string) Option {
	return func(m *Manager) {
		if fn != nil {
			m.newID = fn
		}
	}
}

// WithClock overrides the time source.
func WithClock(fn func() time.Time) Option {
	return func(m *Manager) {
		if fn != nil {
			m.clock = fn
		}
	}
}

// NewManager builds a Manager. An empty signing key produces a random process-local key.
func NewManager(signingKey string, opts ...Option) (*Manager, error) {
	m := &Manager{
		key:        []byte(strings.TrimSpace(signingKey)),
		visitorTTL: defaultVisitorTTL,
		newID:      uuid.NewString,
		clock:      time.Now,
	}
	if len(m.key) == 0 {
		m.key = make([]byte, 32)
		if _, err := rand.Read(m.key); err != nil {
			return nil, errors.New("session: generate signing key: " + err.Error())
		}
		m.ephemeral = true
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

// Ephemeral reports whether the signing key was generated at startup.
func (m *Manager) Ephemeral() bool { return m.ephemeral }

// Middleware resolves the identity from cookies, issuing new ones when absent or tampered.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Identity{}
		if value, ok := m.read(r, VisitorCookie); ok {
			id.VisitorID = value
		} else {
			id.VisitorID = m.newID()
			m.write(w, VisitorCookie, id.VisitorID, m.clock().Add(m.visitorTTL))
		}
		if value, ok := m.read(r, SessionCookie); ok {
			id.SessionID = value
		} else {
			id.SessionID = m.newID()
			m.write(w, SessionCookie, id.SessionID, time.Time{})
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

func (m *Manager) read(r *http.Request, name string) (string, bool) {
	c, err := r.Cookie(name)
	if err != nil || c.Value == "" {
		return "", false
	}
	value, sig, found := strings.Cut(c.Value, ".")
	if !found || value == "" {
		return "", false
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return "", false
	}
	if !hmac.Equal(got, m.sign(name, value)) {
		return "", false
	}
	return value, true
}

func (m *Manager) write(w http.ResponseWriter, name, value string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value + "." + base64.RawURLEncoding.EncodeToString(m.sign(name, value)),
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
		Expires:  expires,
	})
}

func (m *Manager) sign(name, value string) []byte {
	mac := hmac.New(sha256.New, m.key)
	mac.Write([]byte(name))
	mac.Write([]byte{0})
	mac.Write([]byte(value))
	return mac.Sum(nil)
}
