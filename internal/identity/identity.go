// Package identity gives anonymous visitors a stable pseudo-identity so they
// can be matched to a previously submitted response for editing, without
// requiring accounts.
//
// The identity is a random token persisted client-side in a long-lived
// cookie. It has NO cryptographic integrity — anyone can present any token —
// so it must never gate authorization. It is purely a best-effort
// "find my response" convenience, with exact name match as the fallback.
package identity

import (
	"net/http"
	"time"

	"github.com/google/uuid"
)

// CookieName is the client-side key holding the identity token.
const CookieName = "schedule_tool_user_id"

// MaxAge is the cookie's validity window: one year.
const MaxAge = 365 * 24 * time.Hour

// TokenStore abstracts the client-persisted token location, so the resolver
// logic is the same in production (a browser cookie bound to one
// request/response pair) and in tests (an in-memory store).
type TokenStore interface {
	// Token returns the persisted token, if any.
	Token() (string, bool)
	// SetToken persists the token with the store's expiry.
	SetToken(token string)
}

// GetOrCreate returns the store's existing token, or generates a new random
// one, persists it, and returns it.
//
// Idempotent: when a token already exists it is returned as-is and the store
// is not written again, so repeated calls within one request (or across
// requests from the same browser) observe the same identity.
func GetOrCreate(store TokenStore) string {
	if token, ok := store.Token(); ok {
		return token
	}

	token := uuid.NewString()
	store.SetToken(token)
	return token
}

// CookieStore persists the token in an HTTP cookie. It is bound to a single
// request/response pair: reads come from the request's Cookie header, writes
// go out as a Set-Cookie on the response.
type CookieStore struct {
	w http.ResponseWriter
	r *http.Request
}

var _ TokenStore = (*CookieStore)(nil)

func NewCookieStore(w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{w: w, r: r}
}

func (c *CookieStore) Token() (string, bool) {
	cookie, err := c.r.Cookie(CookieName)
	if err != nil || cookie.Value == "" {
		return "", false
	}
	return cookie.Value, true
}

func (c *CookieStore) SetToken(token string) {
	// HttpOnly is deliberately off so a browser frontend could read the
	// token too; it protects nothing, so there is nothing to hide from
	// script.
	http.SetCookie(c.w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(MaxAge.Seconds()),
		SameSite: http.SameSiteLaxMode,
	})
}

// MemoryStore is a TokenStore backed by a plain variable, for tests.
// Writes counts SetToken calls so tests can assert idempotence.
type MemoryStore struct {
	token  string
	set    bool
	Writes int
}

var _ TokenStore = (*MemoryStore)(nil)

func (m *MemoryStore) Token() (string, bool) {
	return m.token, m.set
}

func (m *MemoryStore) SetToken(token string) {
	m.token = token
	m.set = true
	m.Writes++
}
