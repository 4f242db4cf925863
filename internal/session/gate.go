// Package session issues and checks the signed "auth" cookie that carries the
// account id between requests. Nothing is stored server-side: the cookie is a
// base64url JSON payload followed by its HMAC-SHA256 signature.
package session

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/atinyakov/trellix/internal/models"
)

// CookieName is the name of the session cookie.
const CookieName = "auth"

// DefaultMaxAge is how long an issued session stays valid.
const DefaultMaxAge = 30 * 24 * time.Hour

// ErrNoSecret is returned when a Gate is built without a signing secret.
var ErrNoSecret = errors.New("session: signing secret is required")

// Options configure a Gate.
type Options struct {
	// Secret signs and verifies cookies. It must not be empty.
	Secret []byte
	// Secure sets the Secure attribute on issued cookies.
	Secure bool
	// MaxAge is the session lifetime. Zero means DefaultMaxAge.
	MaxAge time.Duration
	// Now returns the current time. Nil means time.Now.
	Now func() time.Time
}

// claims is the signed cookie payload.
type claims struct {
	Sub string `json:"sub"`
	Exp int64  `json:"exp"`
}

// Gate issues session cookies and authenticates requests by them.
type Gate struct {
	secret []byte
	secure bool
	maxAge time.Duration
	now    func() time.Time
}

// NewGate returns a Gate for opts.
func NewGate(opts Options) (*Gate, error) {
	if len(opts.Secret) == 0 {
		return nil, ErrNoSecret
	}
	g := &Gate{
		secret: append([]byte(nil), opts.Secret...),
		secure: opts.Secure,
		maxAge: opts.MaxAge,
		now:    opts.Now,
	}
	if g.maxAge <= 0 {
		g.maxAge = DefaultMaxAge
	}
	if g.now == nil {
		g.now = time.Now
	}
	return g, nil
}

// Issue returns a cookie that authenticates accountID until it expires.
func (g *Gate) Issue(accountID string) (*http.Cookie, error) {
	if accountID == "" {
		return nil, errors.New("session: empty account id")
	}
	raw, err := json.Marshal(claims{Sub: accountID, Exp: g.now().Add(g.maxAge).Unix()})
	if err != nil {
		return nil, fmt.Errorf("marshal claims: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(raw)

	return g.cookie(payload+"."+g.sign(payload), int(g.maxAge/time.Second)), nil
}

// Authenticate returns the account id carried by the request's cookie.
// A missing, malformed, forged or expired cookie yields false.
func (g *Gate) Authenticate(r *http.Request) (string, bool) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", false
	}

	payload, signature, ok := strings.Cut(c.Value, ".")
	if !ok || payload == "" || signature == "" {
		return "", false
	}
	if !hmac.Equal([]byte(signature), []byte(g.sign(payload))) {
		return "", false
	}

	decoded, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return "", false
	}
	var cl claims
	if err := json.Unmarshal(decoded, &cl); err != nil {
		return "", false
	}
	if cl.Sub == "" || cl.Exp == 0 || g.now().Unix() >= cl.Exp {
		return "", false
	}
	return cl.Sub, true
}

// Require is Authenticate for callers that want an error.
func (g *Gate) Require(r *http.Request) (string, error) {
	id, ok := g.Authenticate(r)
	if !ok {
		return "", models.ErrUnauthenticated
	}
	return id, nil
}

// Clear returns a cookie that removes the session from the browser.
func (g *Gate) Clear() *http.Cookie {
	return Expired(g.secure)
}

// Expired returns an already expired session cookie. Callers without a Gate
// at hand use it to drop a stale session.
func Expired(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (g *Gate) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (g *Gate) sign(payload string) string {
	mac := hmac.New(sha256.New, g.secret)
	_, _ = mac.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
