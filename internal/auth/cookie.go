package auth

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/sessions"
)

const (
	CookieName     = "workout-session"
	cookieTokenKey = "token"
)

var ErrNoSessionCookie = errors.New("no session cookie")

// CookieStore keeps the session token in a signed cookie. The cookie only
// carries the opaque token, the session itself lives in redis.
type CookieStore struct {
	store *sessions.CookieStore
}

func NewCookieStore(secret []byte, secure bool, ttl time.Duration) *CookieStore {
	store := sessions.NewCookieStore(secret)
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(ttl.Seconds()),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
	return &CookieStore{store: store}
}

// Token returns the session token carried by the request cookie.
func (c *CookieStore) Token(r *http.Request) (string, error) {
	session, err := c.store.Get(r, CookieName)
	if err != nil {
		// tampered or signed with an old secret
		return "", ErrNoSessionCookie
	}

	token, ok := session.Values[cookieTokenKey].(string)
	if !ok || token == "" {
		return "", ErrNoSessionCookie
	}
	return token, nil
}

func (c *CookieStore) Save(w http.ResponseWriter, r *http.Request, token string) error {
	session, _ := c.store.Get(r, CookieName)
	session.Values[cookieTokenKey] = token
	return session.Save(r, w)
}

func (c *CookieStore) Clear(w http.ResponseWriter, r *http.Request) error {
	session, _ := c.store.Get(r, CookieName)
	delete(session.Values, cookieTokenKey)
	session.Options.MaxAge = -1
	return session.Save(r, w)
}
